// Package testutil provides in-memory databases and fixtures for package tests.
package testutil

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ksred/summit-api/internal/database"
	"github.com/ksred/summit-api/internal/reference"
	"github.com/ksred/summit-api/internal/store"
	"github.com/ksred/summit-api/internal/types"
)

// NewGormDB returns a migrated in-memory sqlite database closed at test cleanup.
func NewGormDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.NewDatabase("sqlite", ":memory:")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return db
}

// NewStore returns a store.Database over a fresh in-memory database.
func NewStore(t testing.TB) *store.Database {
	t.Helper()
	return store.NewDatabase(NewGormDB(t))
}

// References returns a deterministic reference generator.
func References() reference.Generator {
	return reference.New(rand.New(rand.NewSource(1)))
}

// Clock is a manually advanced time source. Each call to Now moves it forward one millisecond
// so records created in sequence have distinct timestamps.
type Clock struct {
	base  time.Time
	ticks atomic.Int64
}

func NewClock() *Clock {
	return &Clock{base: time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	n := c.ticks.Add(1)
	return c.base.Add(time.Duration(n) * time.Millisecond)
}

func CreateAccount(t testing.TB, st store.Repository, owner string, accountType types.AccountType, balance string) *types.Account {
	t.Helper()

	account := &types.Account{
		Owner:   owner,
		Type:    accountType,
		Balance: types.MustParseMoney(balance),
	}
	require.NoError(t, st.CreateAccount(context.Background(), account))
	return account
}

func FreezeAccount(t testing.TB, st store.Repository, account *types.Account) {
	t.Helper()

	account.Frozen = true
	require.NoError(t, st.SaveAccount(context.Background(), account))
}

func CreateStock(t testing.TB, st store.Repository, symbol, company, price string, shares int64) *types.Stock {
	t.Helper()

	stock := &types.Stock{
		Symbol:          symbol,
		CompanyName:     company,
		CurrentPrice:    types.MustParseMoney(price),
		AvailableShares: types.Quantity(shares),
	}
	require.NoError(t, st.SaveStock(context.Background(), stock))
	return stock
}

func CreatePosition(t testing.TB, st store.Repository, accountID uint, symbol string, shares int64, avg string) *types.Position {
	t.Helper()

	position := &types.Position{
		AccountID:        accountID,
		Symbol:           symbol,
		TotalShares:      types.Quantity(shares),
		AverageCostBasis: types.MustParseMoney(avg),
	}
	require.NoError(t, st.SavePosition(context.Background(), position))
	return position
}

// ReloadAccount reads the committed state of an account.
func ReloadAccount(t testing.TB, st store.Repository, id uint) *types.Account {
	t.Helper()

	account, err := st.FindAccount(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, account)
	return account
}

func ReloadStock(t testing.TB, st store.Repository, symbol string) *types.Stock {
	t.Helper()

	stock, err := st.FindStock(context.Background(), symbol)
	require.NoError(t, err)
	require.NotNil(t, stock)
	return stock
}

// AssertMoney compares amounts numerically so "10" equals "10.00".
func AssertMoney(t testing.TB, want string, got types.Money, msgAndArgs ...interface{}) {
	t.Helper()
	require.Truef(t, types.MustParseMoney(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}
