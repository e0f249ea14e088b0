package types

import "time"

// PortfolioEntry is a read-only view of one position valued at the current price.
type PortfolioEntry struct {
	AccountID        uint     `json:"account_id"`
	Symbol           string   `json:"stock_symbol"`
	CompanyName      string   `json:"company_name"`
	TotalShares      Quantity `json:"total_shares"`
	AverageCostBasis Money    `json:"average_cost_basis"`
	CurrentPrice     Money    `json:"current_price"`
	MarketValue      Money    `json:"market_value"`
	UnrealizedPL     Money    `json:"unrealized_profit_loss"`
}

// TransactionResponse is a Transaction enriched with account display data.
type TransactionResponse struct {
	Reference       string          `json:"transaction_reference"`
	Type            TransactionType `json:"type"`
	FromAccountID   *uint           `json:"from_account_id,omitempty"`
	FromAccountType AccountType     `json:"from_account_type,omitempty"`
	ToAccountID     uint            `json:"to_account_id"`
	ToAccountType   AccountType     `json:"to_account_type"`
	Amount          Money           `json:"amount"`
	Description     string          `json:"description"`
	Timestamp       time.Time       `json:"timestamp"`
}

// StockTransactionResponse is a StockTransaction enriched with account and company data.
type StockTransactionResponse struct {
	Reference     string      `json:"transaction_reference"`
	AccountID     uint        `json:"account_id"`
	AccountType   AccountType `json:"account_type"`
	Symbol        string      `json:"stock_symbol"`
	CompanyName   string      `json:"company_name"`
	Side          Side        `json:"type"`
	Quantity      Quantity    `json:"quantity"`
	PricePerShare Money       `json:"price_per_share"`
	TotalAmount   Money       `json:"total_amount"`
	ProfitLoss    *Money      `json:"profit_loss,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
}
