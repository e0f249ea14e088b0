package trading

import (
	"context"
	"time"

	"github.com/ksred/summit-api/internal/metrics"
	"github.com/ksred/summit-api/internal/reference"
	"github.com/ksred/summit-api/internal/types"
)

// TradeRequest buys or sells whole shares of a stock for an owned account.
type TradeRequest struct {
	AccountID      uint           `json:"account_id"`
	Symbol         string         `json:"-"`
	Quantity       types.Quantity `json:"quantity"`
	IdempotencyKey string         `json:"-"`
}

// ListStockRequest adds an instrument or replaces its price and inventory.
type ListStockRequest struct {
	Symbol          string         `json:"-"`
	CompanyName     string         `json:"company_name"`
	CurrentPrice    types.Money    `json:"current_price"`
	AvailableShares types.Quantity `json:"available_shares"`
}

// Options configures a Service. Zero values fall back to production defaults.
type Options struct {
	References     reference.Generator
	Clock          func() time.Time
	Metrics        *metrics.Recorder
	IdempotencyTTL time.Duration
}

type tradeFunc func(ctx context.Context, req TradeRequest, identity string) (*types.StockTransaction, error)
