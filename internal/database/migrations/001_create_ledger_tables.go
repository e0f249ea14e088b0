package migrations

import (
	"github.com/ksred/summit-api/internal/types"
	"gorm.io/gorm"
)

func CreateLedgerTables(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Account{},
		&types.Transaction{},
		&types.Stock{},
		&types.Position{},
		&types.StockTransaction{},
		&types.IdempotencyRecord{},
	)
}
