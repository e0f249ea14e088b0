package types

import "time"

// Stock is a tradable instrument with a static price and a share inventory.
type Stock struct {
	Symbol          string    `gorm:"primaryKey;size:16" json:"symbol"`
	CompanyName     string    `gorm:"not null" json:"company_name"`
	CurrentPrice    Money     `gorm:"not null" json:"current_price"`
	AvailableShares Quantity  `gorm:"not null" json:"available_shares"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Position is an account's holding of one stock.
type Position struct {
	ID               uint      `gorm:"primaryKey" json:"-"`
	AccountID        uint      `gorm:"uniqueIndex:idx_positions_account_symbol;not null" json:"account_id"`
	Symbol           string    `gorm:"uniqueIndex:idx_positions_account_symbol;size:16;not null" json:"stock_symbol"`
	TotalShares      Quantity  `gorm:"not null" json:"total_shares"`
	AverageCostBasis Money     `gorm:"not null" json:"average_cost_basis"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// StockTransaction is the immutable record of an executed buy or sell.
type StockTransaction struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	Reference     string    `gorm:"uniqueIndex;size:64;not null" json:"transaction_reference"`
	AccountID     uint      `gorm:"not null" json:"account_id"`
	Symbol        string    `gorm:"size:16;not null" json:"stock_symbol"`
	Side          Side      `gorm:"size:8;not null" json:"type"`
	Quantity      Quantity  `gorm:"not null" json:"quantity"`
	PricePerShare Money     `gorm:"not null" json:"price_per_share"`
	TotalAmount   Money     `gorm:"not null" json:"total_amount"`
	ProfitLoss    *Money    `json:"profit_loss,omitempty"`
	Timestamp     time.Time `gorm:"column:occurred_at;not null" json:"timestamp"`
}
