package migrations

import "gorm.io/gorm"

// Run applies every migration in order. Each step is idempotent.
func Run(db *gorm.DB) error {
	if err := CreateLedgerTables(db); err != nil {
		return err
	}
	if err := AddHistoryIndexes(db); err != nil {
		return err
	}
	return nil
}
