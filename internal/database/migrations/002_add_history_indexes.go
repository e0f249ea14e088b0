package migrations

import "gorm.io/gorm"

// AddHistoryIndexes covers the per-account history queries, newest first.
func AddHistoryIndexes(db *gorm.DB) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_transactions_to_account ON transactions (to_account_id, occurred_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_from_account ON transactions (from_account_id, occurred_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_stock_transactions_account ON stock_transactions (account_id, occurred_at DESC)`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
