package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/summit-api/internal/database/migrations"
	"github.com/ksred/summit-api/internal/types"
)

func TestNewDatabaseMigratesSqlite(t *testing.T) {
	db, err := NewDatabase("sqlite", ":memory:")
	require.NoError(t, err)

	for _, model := range []interface{}{
		&types.Account{},
		&types.Transaction{},
		&types.Stock{},
		&types.Position{},
		&types.StockTransaction{},
		&types.IdempotencyRecord{},
	} {
		assert.True(t, db.Migrator().HasTable(model))
	}
	assert.True(t, db.Migrator().HasIndex(&types.StockTransaction{}, "idx_stock_transactions_account"))
}

func TestNewDatabaseRunsMigrationsTwice(t *testing.T) {
	db, err := NewDatabase("sqlite", ":memory:")
	require.NoError(t, err)

	require.NoError(t, migrations.Run(db))
}

func TestNewDatabaseRejectsUnknownDriver(t *testing.T) {
	_, err := NewDatabase("mysql", "")
	assert.Error(t, err)
}
