package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/seedbed-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Core identity + auth
		// =========================
		&types.User{},
		&types.UserToken{},

		// =========================
		// Seeds + ledger
		// =========================
		&types.Seed{},
		&types.SeedTransaction{},

		// =========================
		// Taxonomy
		// =========================
		&types.Category{},
		&types.Tag{},

		// =========================
		// Automation control plane
		// =========================
		&types.Automation{},
		&types.PressurePoint{},
		&types.AutomationQueueEntry{},
	)
}

// EnsureLedgerIndexes creates the composite and partial indexes gorm
// tags cannot express. Postgres only; the sqlite dev path relies on the
// idempotent-enqueue check instead of the partial unique index.
func EnsureLedgerIndexes(db *gorm.DB) error {
	// Replay order: created_at ASC, ties broken by insertion id.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_seed_transaction_replay_order
		ON seed_transaction (seed_id, created_at ASC, id ASC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_seed_transaction_replay_order: %w", err)
	}

	// Dequeue order mirrors this composite: priority DESC, created_at ASC.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_automation_queue_dispatch
		ON automation_queue_entry (priority DESC, created_at ASC)
		WHERE status = 'pending';
	`).Error; err != nil {
		return fmt.Errorf("create idx_automation_queue_dispatch: %w", err)
	}

	// At-most-one outstanding entry per (seed, automation) pair.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uk_automation_queue_pair_active
		ON automation_queue_entry (seed_id, automation_id)
		WHERE status IN ('pending', 'running');
	`).Error; err != nil {
		return fmt.Errorf("create uk_automation_queue_pair_active: %w", err)
	}

	// Pressure bounds, enforced at the storage layer as well as in the
	// atomic increment expression.
	if err := db.Exec(`
		DO $$ BEGIN
			ALTER TABLE pressure_point
				ADD CONSTRAINT ck_pressure_amount_bounds
				CHECK (pressure_amount >= 0 AND pressure_amount <= 100);
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$;
	`).Error; err != nil {
		return fmt.Errorf("create ck_pressure_amount_bounds: %w", err)
	}

	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if s.postgres {
		if err := EnsureLedgerIndexes(s.db); err != nil {
			s.log.Error("Ledger index migration failed", "error", err)
			return err
		}
	}
	return nil
}
