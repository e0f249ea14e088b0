package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ksred/summit-api/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Database is the gorm-backed Store.
type Database struct {
	db    *gorm.DB
	locks *lockTable
	inTx  bool
}

var _ Store = (*Database)(nil)

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db, locks: newLockTable()}
}

// DB exposes the underlying handle for migrations and tests.
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Atomically acquires lockKeys, opens a transaction and runs fn against it.
// The transaction rolls back when fn returns an error or panics.
// Calls nested inside fn reuse the enclosing transaction and its locks.
func (d *Database) Atomically(ctx context.Context, lockKeys []string, fn func(repo Repository) error) (err error) {
	if d.inTx {
		return fn(d)
	}

	release := d.locks.acquire(lockKeys)
	defer release()

	tx := d.db.WithContext(ctx).Begin()
	if err := tx.Error; err != nil {
		return persistence(err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(&Database{db: tx, locks: d.locks, inTx: true}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return persistence(err)
	}
	return nil
}

func persistence(err error) error {
	return fmt.Errorf("%w: %w", types.ErrPersistence, err)
}

// forUpdate reads rows with an exclusive row lock inside a transaction on dialects that support it.
func (d *Database) forUpdate(ctx context.Context) *gorm.DB {
	q := d.db.WithContext(ctx)
	if d.inTx && d.db.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (d *Database) AccountsForIdentity(ctx context.Context, identity string) ([]types.Account, error) {
	var accounts []types.Account
	if err := d.db.WithContext(ctx).Where("owner = ?", identity).Order("id").Find(&accounts).Error; err != nil {
		return nil, persistence(err)
	}
	return accounts, nil
}

func (d *Database) FindAccount(ctx context.Context, id uint) (*types.Account, error) {
	var account types.Account
	if err := d.forUpdate(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistence(err)
	}
	return &account, nil
}

func (d *Database) FindAccounts(ctx context.Context, ids []uint) ([]types.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var accounts []types.Account
	if err := d.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&accounts).Error; err != nil {
		return nil, persistence(err)
	}
	return accounts, nil
}

func (d *Database) CreateAccount(ctx context.Context, account *types.Account) error {
	if err := d.db.WithContext(ctx).Create(account).Error; err != nil {
		return persistence(err)
	}
	return nil
}

func (d *Database) SaveAccount(ctx context.Context, account *types.Account) error {
	if err := d.db.WithContext(ctx).Save(account).Error; err != nil {
		return persistence(err)
	}
	return nil
}

func (d *Database) FindStock(ctx context.Context, symbol string) (*types.Stock, error) {
	var stock types.Stock
	if err := d.forUpdate(ctx).Where("symbol = ?", symbol).First(&stock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistence(err)
	}
	return &stock, nil
}

func (d *Database) FindStocks(ctx context.Context, symbols []string) ([]types.Stock, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	var stocks []types.Stock
	if err := d.db.WithContext(ctx).Where("symbol IN ?", symbols).Order("symbol").Find(&stocks).Error; err != nil {
		return nil, persistence(err)
	}
	return stocks, nil
}

// SaveStock inserts or replaces the stock keyed by symbol.
func (d *Database) SaveStock(ctx context.Context, stock *types.Stock) error {
	if err := d.db.WithContext(ctx).Save(stock).Error; err != nil {
		return persistence(err)
	}
	return nil
}

func (d *Database) ListAvailableStocks(ctx context.Context) ([]types.Stock, error) {
	var stocks []types.Stock
	if err := d.db.WithContext(ctx).Where("available_shares > 0").Order("symbol").Find(&stocks).Error; err != nil {
		return nil, persistence(err)
	}
	return stocks, nil
}

func (d *Database) FindPosition(ctx context.Context, accountID uint, symbol string) (*types.Position, error) {
	var position types.Position
	err := d.forUpdate(ctx).
		Where("account_id = ? AND symbol = ?", accountID, symbol).
		First(&position).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistence(err)
	}
	return &position, nil
}

func (d *Database) FindPositionsForAccounts(ctx context.Context, accountIDs []uint) ([]types.Position, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	var positions []types.Position
	err := d.db.WithContext(ctx).
		Where("account_id IN ?", accountIDs).
		Order("account_id, symbol").
		Find(&positions).Error
	if err != nil {
		return nil, persistence(err)
	}
	return positions, nil
}

func (d *Database) SavePosition(ctx context.Context, position *types.Position) error {
	q := d.db.WithContext(ctx)
	var err error
	if position.ID == 0 {
		err = q.Create(position).Error
	} else {
		err = q.Save(position).Error
	}
	if err != nil {
		return persistence(err)
	}
	return nil
}

func (d *Database) DeletePosition(ctx context.Context, position *types.Position) error {
	if err := d.db.WithContext(ctx).Delete(&types.Position{}, position.ID).Error; err != nil {
		return persistence(err)
	}
	return nil
}

func (d *Database) CreateTransaction(ctx context.Context, txn *types.Transaction) error {
	if err := d.db.WithContext(ctx).Create(txn).Error; err != nil {
		return persistence(err)
	}
	return nil
}

func (d *Database) FindTransactionByReference(ctx context.Context, reference string) (*types.Transaction, error) {
	var txn types.Transaction
	if err := d.db.WithContext(ctx).Where("reference = ?", reference).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistence(err)
	}
	return &txn, nil
}

func (d *Database) RecentTransactionsForAccounts(ctx context.Context, accountIDs []uint, limit int) ([]types.Transaction, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	var txns []types.Transaction
	err := d.db.WithContext(ctx).
		Where("to_account_id IN ? OR from_account_id IN ?", accountIDs, accountIDs).
		Order("occurred_at desc, id desc").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, persistence(err)
	}
	return txns, nil
}

func (d *Database) AllRecentTransactions(ctx context.Context, limit int) ([]types.Transaction, error) {
	var txns []types.Transaction
	if err := d.db.WithContext(ctx).Order("occurred_at desc, id desc").Limit(limit).Find(&txns).Error; err != nil {
		return nil, persistence(err)
	}
	return txns, nil
}

func (d *Database) CreateTrade(ctx context.Context, trade *types.StockTransaction) error {
	if err := d.db.WithContext(ctx).Create(trade).Error; err != nil {
		return persistence(err)
	}
	return nil
}

func (d *Database) FindTradeByReference(ctx context.Context, reference string) (*types.StockTransaction, error) {
	var trade types.StockTransaction
	if err := d.db.WithContext(ctx).Where("reference = ?", reference).First(&trade).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistence(err)
	}
	return &trade, nil
}

func (d *Database) RecentTradesForAccounts(ctx context.Context, accountIDs []uint, limit int) ([]types.StockTransaction, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	var trades []types.StockTransaction
	err := d.db.WithContext(ctx).
		Where("account_id IN ?", accountIDs).
		Order("occurred_at desc, id desc").
		Limit(limit).
		Find(&trades).Error
	if err != nil {
		return nil, persistence(err)
	}
	return trades, nil
}

func (d *Database) AllRecentTrades(ctx context.Context, limit int) ([]types.StockTransaction, error) {
	var trades []types.StockTransaction
	if err := d.db.WithContext(ctx).Order("occurred_at desc, id desc").Limit(limit).Find(&trades).Error; err != nil {
		return nil, persistence(err)
	}
	return trades, nil
}

// FindIdempotencyRecord returns the unexpired record for identity and key, or nil.
func (d *Database) FindIdempotencyRecord(ctx context.Context, identity, key string, now time.Time) (*types.IdempotencyRecord, error) {
	var record types.IdempotencyRecord
	err := d.db.WithContext(ctx).
		Where("identity = ? AND idempotency_key = ? AND expires_at > ?", identity, key, now).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistence(err)
	}
	return &record, nil
}

// SaveIdempotencyRecord writes the record, replacing an expired one left for the same identity and key.
func (d *Database) SaveIdempotencyRecord(ctx context.Context, record *types.IdempotencyRecord) error {
	err := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "identity"}, {Name: "idempotency_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"resource_type", "reference", "expires_at"}),
		}).
		Create(record).Error
	if err != nil {
		return persistence(err)
	}
	return nil
}

func (d *Database) PurgeExpiredIdempotencyRecords(ctx context.Context, now time.Time) (int64, error) {
	result := d.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&types.IdempotencyRecord{})
	if result.Error != nil {
		return 0, persistence(result.Error)
	}
	return result.RowsAffected, nil
}
