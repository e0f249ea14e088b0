// Package audit answers read-only questions about holdings and the immutable record logs.
package audit

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ksred/summit-api/internal/store"
	"github.com/ksred/summit-api/internal/types"
)

// Service serves portfolio valuations and history. It never writes.
type Service struct {
	store        store.Repository
	defaultLimit int
	maxLimit     int
}

func NewService(repo store.Repository, opts Options) *Service {
	s := &Service{
		store:        repo,
		defaultLimit: opts.DefaultLimit,
		maxLimit:     opts.MaxLimit,
	}
	if s.defaultLimit <= 0 {
		s.defaultLimit = DefaultHistoryLimit
	}
	if s.maxLimit <= 0 {
		s.maxLimit = MaxHistoryLimit
	}
	if s.defaultLimit > s.maxLimit {
		s.defaultLimit = s.maxLimit
	}
	return s
}

// Limit clamps a requested history size: non-positive means the default, anything above the max is capped.
func (s *Service) Limit(requested int) int {
	switch {
	case requested <= 0:
		return s.defaultLimit
	case requested > s.maxLimit:
		return s.maxLimit
	default:
		return requested
	}
}

func (s *Service) ownedAccounts(ctx context.Context, identity string) ([]uint, map[uint]bool, error) {
	accounts, err := s.store.AccountsForIdentity(ctx, identity)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]uint, 0, len(accounts))
	owned := make(map[uint]bool, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
		owned[a.ID] = true
	}
	return ids, owned, nil
}

// Portfolio values every position held by the identity's accounts at current prices,
// ordered by account then symbol.
func (s *Service) Portfolio(ctx context.Context, identity string) ([]types.PortfolioEntry, error) {
	ids, _, err := s.ownedAccounts(ctx, identity)
	if err != nil {
		return nil, err
	}
	positions, err := s.store.FindPositionsForAccounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(positions))
	for _, p := range positions {
		symbols = append(symbols, p.Symbol)
	}
	stocks, err := s.stocksBySymbol(ctx, symbols)
	if err != nil {
		return nil, err
	}

	entries := make([]types.PortfolioEntry, 0, len(positions))
	for _, p := range positions {
		entry := types.PortfolioEntry{
			AccountID:        p.AccountID,
			Symbol:           p.Symbol,
			TotalShares:      p.TotalShares,
			AverageCostBasis: p.AverageCostBasis,
			CurrentPrice:     p.AverageCostBasis,
		}
		if stock, ok := stocks[p.Symbol]; ok {
			entry.CompanyName = stock.CompanyName
			entry.CurrentPrice = stock.CurrentPrice
		} else {
			log.Warn().Str("service", "audit").Str("symbol", p.Symbol).Msg("position held in unlisted stock, valued at cost")
		}
		entry.MarketValue = entry.CurrentPrice.Mul(p.TotalShares)
		entry.UnrealizedPL = entry.CurrentPrice.Sub(p.AverageCostBasis).Mul(p.TotalShares)
		entries = append(entries, entry)
	}
	return entries, nil
}

// TransactionHistory returns the most recent deposits and transfers touching the identity's accounts.
func (s *Service) TransactionHistory(ctx context.Context, identity string, limit int) ([]types.TransactionResponse, error) {
	ids, _, err := s.ownedAccounts(ctx, identity)
	if err != nil {
		return nil, err
	}
	txns, err := s.store.RecentTransactionsForAccounts(ctx, ids, s.Limit(limit))
	if err != nil {
		return nil, err
	}
	return s.enrichTransactions(ctx, txns)
}

// TradeHistory returns the most recent buys and sells made from the identity's accounts.
func (s *Service) TradeHistory(ctx context.Context, identity string, limit int) ([]types.StockTransactionResponse, error) {
	ids, _, err := s.ownedAccounts(ctx, identity)
	if err != nil {
		return nil, err
	}
	trades, err := s.store.RecentTradesForAccounts(ctx, ids, s.Limit(limit))
	if err != nil {
		return nil, err
	}
	return s.enrichTrades(ctx, trades)
}

// FindTransactionByReference returns a transaction when one of its accounts belongs to identity.
func (s *Service) FindTransactionByReference(ctx context.Context, reference, identity string) (*types.TransactionResponse, error) {
	txn, err := s.transaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	_, owned, err := s.ownedAccounts(ctx, identity)
	if err != nil {
		return nil, err
	}
	if !txn.Involves(owned) {
		return nil, fmt.Errorf("%w to view transaction %s", types.ErrUnauthorized, reference)
	}
	return s.enrichTransaction(ctx, txn)
}

// FindTradeByReference returns a trade when its account belongs to identity.
func (s *Service) FindTradeByReference(ctx context.Context, reference, identity string) (*types.StockTransactionResponse, error) {
	trade, err := s.trade(ctx, reference)
	if err != nil {
		return nil, err
	}
	_, owned, err := s.ownedAccounts(ctx, identity)
	if err != nil {
		return nil, err
	}
	if !owned[trade.AccountID] {
		return nil, fmt.Errorf("%w to view trade %s", types.ErrUnauthorized, reference)
	}
	return s.enrichTrade(ctx, trade)
}

// LookupTransaction is the unrestricted admin form of FindTransactionByReference.
func (s *Service) LookupTransaction(ctx context.Context, reference string) (*types.TransactionResponse, error) {
	txn, err := s.transaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	return s.enrichTransaction(ctx, txn)
}

// LookupTrade is the unrestricted admin form of FindTradeByReference.
func (s *Service) LookupTrade(ctx context.Context, reference string) (*types.StockTransactionResponse, error) {
	trade, err := s.trade(ctx, reference)
	if err != nil {
		return nil, err
	}
	return s.enrichTrade(ctx, trade)
}

func (s *Service) AllRecentTransactions(ctx context.Context, limit int) ([]types.TransactionResponse, error) {
	txns, err := s.store.AllRecentTransactions(ctx, s.Limit(limit))
	if err != nil {
		return nil, err
	}
	return s.enrichTransactions(ctx, txns)
}

func (s *Service) AllRecentTrades(ctx context.Context, limit int) ([]types.StockTransactionResponse, error) {
	trades, err := s.store.AllRecentTrades(ctx, s.Limit(limit))
	if err != nil {
		return nil, err
	}
	return s.enrichTrades(ctx, trades)
}

func (s *Service) transaction(ctx context.Context, reference string) (*types.Transaction, error) {
	txn, err := s.store.FindTransactionByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrTransactionNotFound, reference)
	}
	return txn, nil
}

func (s *Service) trade(ctx context.Context, reference string) (*types.StockTransaction, error) {
	trade, err := s.store.FindTradeByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrTransactionNotFound, reference)
	}
	return trade, nil
}
