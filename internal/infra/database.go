package infra

import (
	"fmt"

	"stockpos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies any idempotent SQL patches that GORM
// cannot express (CHECK constraints, partial indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations brings the schema up to date. Also used by integration tests
// against a throwaway database.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Product{},
		&model.Warehouse{},
		&model.Client{},
		&model.StockEntry{},
		&model.StockMovement{},
		&model.Sale{},
		&model.SaleLine{},
		&model.Payment{},
		&model.Transfer{},
		&model.TransferLine{},
		&model.DocumentCounter{},
		&model.AuditEntry{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot express.
// Each statement is guarded by an existence check so re-running on an
// already-patched schema is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// The ledger invariant 0 <= reserved <= quantity is enforced in the
		// repository's guarded updates; the CHECK is the backstop against any
		// future write path that bypasses them.
		{"stock_entries reserved bounds check", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_stock_reserved_bounds') THEN
    ALTER TABLE stock_entries
      ADD CONSTRAINT chk_stock_reserved_bounds CHECK (reserved >= 0 AND reserved <= quantity);
  END IF;
END $$`},
		{"stock_entries non-negative quantity check", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_stock_quantity_nonneg') THEN
    ALTER TABLE stock_entries
      ADD CONSTRAINT chk_stock_quantity_nonneg CHECK (quantity >= 0);
  END IF;
END $$`},
		// Partial index for the low-stock dashboard query.
		{"partial low-stock index", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_stock_low') THEN
    CREATE INDEX idx_stock_low
        ON stock_entries (warehouse_id)
        WHERE quantity - reserved <= alert_threshold;
  END IF;
END $$`},
		// Movement history is queried almost exclusively by product then date.
		{"movement history index", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_movements_product_created') THEN
    CREATE INDEX idx_movements_product_created
        ON stock_movements (product_id, created_at DESC);
  END IF;
END $$`},
		{"audit entity index", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_audit_entity') THEN
    CREATE INDEX idx_audit_entity
        ON audit_entries (entity, entity_id, created_at DESC);
  END IF;
END $$`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
