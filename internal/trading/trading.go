package trading

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ksred/summit-api/internal/metrics"
	"github.com/ksred/summit-api/internal/reference"
	"github.com/ksred/summit-api/internal/store"
	"github.com/ksred/summit-api/internal/types"
)

// Service handles stock trading against static prices and a finite share inventory.
type Service struct {
	store          store.Store
	references     reference.Generator
	now            func() time.Time
	metrics        *metrics.Recorder
	idempotencyTTL time.Duration
}

// NewService creates a new trading service over the given store.
func NewService(st store.Store, opts Options) *Service {
	s := &Service{
		store:          st,
		references:     opts.References,
		now:            opts.Clock,
		metrics:        opts.Metrics,
		idempotencyTTL: opts.IdempotencyTTL,
	}
	if s.references == nil {
		s.references = reference.NewDefault()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.idempotencyTTL <= 0 {
		s.idempotencyTTL = 24 * time.Hour
	}
	return s
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (s *Service) lockKeys(req TradeRequest, identity, symbol string) []string {
	keys := []string{store.AccountKey(req.AccountID), store.StockKey(symbol)}
	if req.IdempotencyKey != "" {
		keys = append(keys, store.IdempotencyKey(identity, req.IdempotencyKey))
	}
	return keys
}

// Buy purchases req.Quantity shares at the current price.
// Checks, in order: positive quantity, account exists, caller owns it, account not frozen,
// stock exists, sufficient cash, sufficient inventory.
func (s *Service) Buy(ctx context.Context, req TradeRequest, identity string) (trade *types.StockTransaction, err error) {
	symbol := normalizeSymbol(req.Symbol)
	start := time.Now()
	logger := log.With().
		Str("service", "trading").
		Str("operation", "buy").
		Str("identity", identity).
		Uint("account_id", req.AccountID).
		Str("symbol", symbol).
		Int64("quantity", int64(req.Quantity)).
		Logger()
	defer func() { s.finish(logger, "buy", start, err) }()

	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be greater than zero", types.ErrInvalidAmount)
	}

	err = s.store.Atomically(ctx, s.lockKeys(req, identity, symbol), func(repo store.Repository) error {
		replay, err := s.replay(ctx, repo, identity, req.IdempotencyKey)
		if err != nil || replay != nil {
			trade = replay
			return err
		}

		account, err := s.tradableAccount(ctx, repo, req.AccountID, identity)
		if err != nil {
			return err
		}

		stock, err := repo.FindStock(ctx, symbol)
		if err != nil {
			return err
		}
		if stock == nil {
			return fmt.Errorf("%w: %s", types.ErrInstrumentNotFound, symbol)
		}

		cost := stock.CurrentPrice.Mul(req.Quantity)
		if account.Balance.LessThan(cost) {
			return fmt.Errorf("%w: need %s, have %s", types.ErrInsufficientFunds, cost.Display(), account.Balance.Display())
		}
		if stock.AvailableShares < req.Quantity {
			return fmt.Errorf("%w: %d %s available", types.ErrInsufficientInventory, stock.AvailableShares, symbol)
		}

		now := s.now()
		stock.AvailableShares -= req.Quantity
		stock.UpdatedAt = now
		if err := repo.SaveStock(ctx, stock); err != nil {
			return err
		}

		account.Balance = account.Balance.Sub(cost)
		account.UpdatedAt = now
		if err := repo.SaveAccount(ctx, account); err != nil {
			return err
		}

		position, err := repo.FindPosition(ctx, account.ID, symbol)
		if err != nil {
			return err
		}
		if position == nil {
			position = &types.Position{
				AccountID:        account.ID,
				Symbol:           symbol,
				TotalShares:      req.Quantity,
				AverageCostBasis: stock.CurrentPrice,
				CreatedAt:        now,
			}
		} else {
			position.AverageCostBasis = WeightedAverageCost(position.TotalShares, position.AverageCostBasis, req.Quantity, stock.CurrentPrice)
			position.TotalShares += req.Quantity
		}
		position.UpdatedAt = now
		if err := repo.SavePosition(ctx, position); err != nil {
			return err
		}

		trade, err = s.record(ctx, repo, account.ID, symbol, types.Buy, req.Quantity, stock.CurrentPrice, nil, now)
		if err != nil {
			return err
		}
		return s.remember(ctx, repo, identity, req.IdempotencyKey, trade.Reference, now)
	})
	if err != nil {
		return nil, err
	}
	return trade, nil
}

// Sell disposes of req.Quantity shares from a position at the current price.
// Checks, in order: positive quantity, account exists, caller owns it, account not frozen,
// position exists, sufficient shares, stock exists.
func (s *Service) Sell(ctx context.Context, req TradeRequest, identity string) (trade *types.StockTransaction, err error) {
	symbol := normalizeSymbol(req.Symbol)
	start := time.Now()
	logger := log.With().
		Str("service", "trading").
		Str("operation", "sell").
		Str("identity", identity).
		Uint("account_id", req.AccountID).
		Str("symbol", symbol).
		Int64("quantity", int64(req.Quantity)).
		Logger()
	defer func() { s.finish(logger, "sell", start, err) }()

	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be greater than zero", types.ErrInvalidAmount)
	}

	err = s.store.Atomically(ctx, s.lockKeys(req, identity, symbol), func(repo store.Repository) error {
		replay, err := s.replay(ctx, repo, identity, req.IdempotencyKey)
		if err != nil || replay != nil {
			trade = replay
			return err
		}

		account, err := s.tradableAccount(ctx, repo, req.AccountID, identity)
		if err != nil {
			return err
		}

		position, err := repo.FindPosition(ctx, account.ID, symbol)
		if err != nil {
			return err
		}
		if position == nil {
			return fmt.Errorf("%w: %s in account %d", types.ErrPositionNotFound, symbol, account.ID)
		}
		if position.TotalShares < req.Quantity {
			return fmt.Errorf("%w: hold %d %s", types.ErrInsufficientShares, position.TotalShares, symbol)
		}

		stock, err := repo.FindStock(ctx, symbol)
		if err != nil {
			return err
		}
		if stock == nil {
			return fmt.Errorf("%w: %s", types.ErrInstrumentNotFound, symbol)
		}

		now := s.now()
		proceeds := stock.CurrentPrice.Mul(req.Quantity)
		profitLoss := stock.CurrentPrice.Sub(position.AverageCostBasis).Mul(req.Quantity)

		stock.AvailableShares += req.Quantity
		stock.UpdatedAt = now
		if err := repo.SaveStock(ctx, stock); err != nil {
			return err
		}

		account.Balance = account.Balance.Add(proceeds)
		account.UpdatedAt = now
		if err := repo.SaveAccount(ctx, account); err != nil {
			return err
		}

		if position.TotalShares == req.Quantity {
			if err := repo.DeletePosition(ctx, position); err != nil {
				return err
			}
		} else {
			position.TotalShares -= req.Quantity
			position.UpdatedAt = now
			if err := repo.SavePosition(ctx, position); err != nil {
				return err
			}
		}

		trade, err = s.record(ctx, repo, account.ID, symbol, types.Sell, req.Quantity, stock.CurrentPrice, &profitLoss, now)
		if err != nil {
			return err
		}
		return s.remember(ctx, repo, identity, req.IdempotencyKey, trade.Reference, now)
	})
	if err != nil {
		return nil, err
	}
	return trade, nil
}

// AvailableStocks lists stocks with shares left to buy, ordered by symbol.
func (s *Service) AvailableStocks(ctx context.Context) ([]types.Stock, error) {
	stocks, err := s.store.ListAvailableStocks(ctx)
	if err != nil {
		return nil, err
	}
	if stocks == nil {
		stocks = []types.Stock{}
	}
	return stocks, nil
}

// ListStock creates or replaces an instrument's name, price and inventory.
func (s *Service) ListStock(ctx context.Context, req ListStockRequest) (stock *types.Stock, err error) {
	symbol := normalizeSymbol(req.Symbol)
	start := time.Now()
	logger := log.With().
		Str("service", "trading").
		Str("operation", "list_stock").
		Str("symbol", symbol).
		Logger()
	defer func() { s.finish(logger, "list_stock", start, err) }()

	if symbol == "" || strings.TrimSpace(req.CompanyName) == "" {
		return nil, fmt.Errorf("%w: symbol and company name are required", types.ErrInvalidRequest)
	}
	if !req.CurrentPrice.IsPositive() {
		return nil, fmt.Errorf("%w: price must be greater than zero", types.ErrInvalidAmount)
	}
	if !req.CurrentPrice.WithinScale() {
		return nil, fmt.Errorf("%w: price has fractions of a cent", types.ErrInvalidAmount)
	}
	if req.AvailableShares < 0 {
		return nil, fmt.Errorf("%w: available shares must not be negative", types.ErrInvalidAmount)
	}

	err = s.store.Atomically(ctx, []string{store.StockKey(symbol)}, func(repo store.Repository) error {
		stock = &types.Stock{
			Symbol:          symbol,
			CompanyName:     strings.TrimSpace(req.CompanyName),
			CurrentPrice:    req.CurrentPrice,
			AvailableShares: req.AvailableShares,
			UpdatedAt:       s.now(),
		}
		return repo.SaveStock(ctx, stock)
	})
	if err != nil {
		return nil, err
	}
	return stock, nil
}

// WeightedAverageCost blends an existing holding with a new purchase, rounded half-up to cents.
func WeightedAverageCost(oldShares types.Quantity, oldAvg types.Money, newShares types.Quantity, price types.Money) types.Money {
	total := oldAvg.Mul(oldShares).Add(price.Mul(newShares))
	return total.DivRound(oldShares + newShares)
}

func (s *Service) tradableAccount(ctx context.Context, repo store.Repository, accountID uint, identity string) (*types.Account, error) {
	account, err := repo.FindAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("%w: %d", types.ErrAccountNotFound, accountID)
	}

	owned, err := repo.AccountsForIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}
	isOwner := false
	for _, a := range owned {
		if a.ID == account.ID {
			isOwner = true
			break
		}
	}
	if !isOwner {
		return nil, fmt.Errorf("%w to trade with account %d", types.ErrUnauthorized, accountID)
	}

	if account.Frozen {
		return nil, fmt.Errorf("%w: account %d", types.ErrAccountFrozen, accountID)
	}
	return account, nil
}

func (s *Service) record(ctx context.Context, repo store.Repository, accountID uint, symbol string, side types.Side, qty types.Quantity, price types.Money, profitLoss *types.Money, at time.Time) (*types.StockTransaction, error) {
	ref, err := s.references(reference.Trade, at)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrPersistence, err)
	}

	trade := &types.StockTransaction{
		Reference:     ref,
		AccountID:     accountID,
		Symbol:        symbol,
		Side:          side,
		Quantity:      qty,
		PricePerShare: price,
		TotalAmount:   price.Mul(qty),
		ProfitLoss:    profitLoss,
		Timestamp:     at,
	}
	if err := repo.CreateTrade(ctx, trade); err != nil {
		return nil, err
	}
	return trade, nil
}

func (s *Service) replay(ctx context.Context, repo store.Repository, identity, key string) (*types.StockTransaction, error) {
	if key == "" {
		return nil, nil
	}
	record, err := repo.FindIdempotencyRecord(ctx, identity, key, s.now())
	if err != nil || record == nil {
		return nil, err
	}
	if record.ResourceType != types.IdempotencyTrade {
		return nil, fmt.Errorf("%w: idempotency key already used for a %s", types.ErrInvalidRequest, record.ResourceType)
	}

	trade, err := repo.FindTradeByReference(ctx, record.Reference)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrTransactionNotFound, record.Reference)
	}
	return trade, nil
}

func (s *Service) remember(ctx context.Context, repo store.Repository, identity, key, ref string, now time.Time) error {
	if key == "" {
		return nil
	}
	return repo.SaveIdempotencyRecord(ctx, &types.IdempotencyRecord{
		Identity:     identity,
		Key:          key,
		ResourceType: types.IdempotencyTrade,
		Reference:    ref,
		ExpiresAt:    now.Add(s.idempotencyTTL),
	})
}

func (s *Service) finish(logger zerolog.Logger, operation string, start time.Time, err error) {
	s.metrics.Observe(operation, start, err)

	switch {
	case err == nil:
		logger.Info().Dur("duration", time.Since(start)).Msg(operation + " committed")
	case types.IsRejection(err):
		logger.Warn().Err(err).Msg(operation + " rejected")
	default:
		logger.Error().Err(err).Msg(operation + " failed")
	}
}
