package audit

import (
	"context"

	"github.com/ksred/summit-api/internal/types"
)

func (s *Service) accountTypes(ctx context.Context, ids []uint) (map[uint]types.AccountType, error) {
	accounts, err := s.store.FindAccounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]types.AccountType, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a.Type
	}
	return byID, nil
}

func (s *Service) stocksBySymbol(ctx context.Context, symbols []string) (map[string]types.Stock, error) {
	stocks, err := s.store.FindStocks(ctx, symbols)
	if err != nil {
		return nil, err
	}
	bySymbol := make(map[string]types.Stock, len(stocks))
	for _, st := range stocks {
		bySymbol[st.Symbol] = st
	}
	return bySymbol, nil
}

func (s *Service) enrichTransaction(ctx context.Context, txn *types.Transaction) (*types.TransactionResponse, error) {
	out, err := s.enrichTransactions(ctx, []types.Transaction{*txn})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *Service) enrichTransactions(ctx context.Context, txns []types.Transaction) ([]types.TransactionResponse, error) {
	ids := make([]uint, 0, 2*len(txns))
	for _, t := range txns {
		ids = append(ids, t.ToAccountID)
		if t.FromAccountID != nil {
			ids = append(ids, *t.FromAccountID)
		}
	}
	accountTypes, err := s.accountTypes(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]types.TransactionResponse, 0, len(txns))
	for _, t := range txns {
		resp := types.TransactionResponse{
			Reference:     t.Reference,
			Type:          t.Type,
			FromAccountID: t.FromAccountID,
			ToAccountID:   t.ToAccountID,
			ToAccountType: accountTypes[t.ToAccountID],
			Amount:        t.Amount,
			Description:   t.Description,
			Timestamp:     t.Timestamp,
		}
		if t.FromAccountID != nil {
			resp.FromAccountType = accountTypes[*t.FromAccountID]
		}
		out = append(out, resp)
	}
	return out, nil
}

func (s *Service) enrichTrade(ctx context.Context, trade *types.StockTransaction) (*types.StockTransactionResponse, error) {
	out, err := s.enrichTrades(ctx, []types.StockTransaction{*trade})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *Service) enrichTrades(ctx context.Context, trades []types.StockTransaction) ([]types.StockTransactionResponse, error) {
	ids := make([]uint, 0, len(trades))
	symbols := make([]string, 0, len(trades))
	for _, t := range trades {
		ids = append(ids, t.AccountID)
		symbols = append(symbols, t.Symbol)
	}
	accountTypes, err := s.accountTypes(ctx, ids)
	if err != nil {
		return nil, err
	}
	stocks, err := s.stocksBySymbol(ctx, symbols)
	if err != nil {
		return nil, err
	}

	out := make([]types.StockTransactionResponse, 0, len(trades))
	for _, t := range trades {
		out = append(out, types.StockTransactionResponse{
			Reference:     t.Reference,
			AccountID:     t.AccountID,
			AccountType:   accountTypes[t.AccountID],
			Symbol:        t.Symbol,
			CompanyName:   stocks[t.Symbol].CompanyName,
			Side:          t.Side,
			Quantity:      t.Quantity,
			PricePerShare: t.PricePerShare,
			TotalAmount:   t.TotalAmount,
			ProfitLoss:    t.ProfitLoss,
			Timestamp:     t.Timestamp,
		})
	}
	return out, nil
}
