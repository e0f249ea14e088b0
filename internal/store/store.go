package store

import (
	"context"
	"strconv"
	"time"

	"github.com/ksred/summit-api/internal/types"
)

// IdentityResolver maps an authenticated identity to the accounts it owns.
type IdentityResolver interface {
	AccountsForIdentity(ctx context.Context, identity string) ([]types.Account, error)
}

// AccountStore reads and writes cash accounts. Find methods return nil, nil when absent.
type AccountStore interface {
	FindAccount(ctx context.Context, id uint) (*types.Account, error)
	FindAccounts(ctx context.Context, ids []uint) ([]types.Account, error)
	CreateAccount(ctx context.Context, account *types.Account) error
	SaveAccount(ctx context.Context, account *types.Account) error
}

// InstrumentStore reads and writes the tradable stock catalogue.
type InstrumentStore interface {
	FindStock(ctx context.Context, symbol string) (*types.Stock, error)
	FindStocks(ctx context.Context, symbols []string) ([]types.Stock, error)
	SaveStock(ctx context.Context, stock *types.Stock) error
	ListAvailableStocks(ctx context.Context) ([]types.Stock, error)
}

// PositionStore holds per-account share holdings; a position exists only while it has shares.
type PositionStore interface {
	FindPosition(ctx context.Context, accountID uint, symbol string) (*types.Position, error)
	FindPositionsForAccounts(ctx context.Context, accountIDs []uint) ([]types.Position, error)
	SavePosition(ctx context.Context, position *types.Position) error
	DeletePosition(ctx context.Context, position *types.Position) error
}

// TransactionStore is the append-only log of deposits and transfers.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, txn *types.Transaction) error
	FindTransactionByReference(ctx context.Context, reference string) (*types.Transaction, error)
	RecentTransactionsForAccounts(ctx context.Context, accountIDs []uint, limit int) ([]types.Transaction, error)
	AllRecentTransactions(ctx context.Context, limit int) ([]types.Transaction, error)
}

// TradeStore is the append-only log of executed buys and sells.
type TradeStore interface {
	CreateTrade(ctx context.Context, trade *types.StockTransaction) error
	FindTradeByReference(ctx context.Context, reference string) (*types.StockTransaction, error)
	RecentTradesForAccounts(ctx context.Context, accountIDs []uint, limit int) ([]types.StockTransaction, error)
	AllRecentTrades(ctx context.Context, limit int) ([]types.StockTransaction, error)
}

// IdempotencyStore remembers replayable responses keyed by identity and idempotency key.
type IdempotencyStore interface {
	FindIdempotencyRecord(ctx context.Context, identity, key string, now time.Time) (*types.IdempotencyRecord, error)
	SaveIdempotencyRecord(ctx context.Context, record *types.IdempotencyRecord) error
	PurgeExpiredIdempotencyRecords(ctx context.Context, now time.Time) (int64, error)
}

// Repository is the full set of store capabilities available inside and outside a unit of work.
type Repository interface {
	IdentityResolver
	AccountStore
	InstrumentStore
	PositionStore
	TransactionStore
	TradeStore
	IdempotencyStore
}

// UnitOfWork runs fn atomically. Every write made through the Repository passed to fn
// commits together or not at all, and concurrent units sharing a lock key are serialized.
type UnitOfWork interface {
	Atomically(ctx context.Context, lockKeys []string, fn func(repo Repository) error) error
}

// Store is a Repository that can also open units of work.
type Store interface {
	Repository
	UnitOfWork
}

// Lock keys used with Atomically.
func AccountKey(id uint) string                  { return "account:" + strconv.FormatUint(uint64(id), 10) }
func StockKey(symbol string) string              { return "stock:" + symbol }
func IdempotencyKey(identity, key string) string { return "idempotency:" + identity + ":" + key }
