package automation

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/pkg/dbctx"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
)

// QueueRepo is the durable priority queue of pending (seed, automation)
// jobs. Dispatch order is priority DESC, created_at ASC — the same
// composite the dispatch index encodes. Idempotent enqueue plus the
// partial unique index keep at most one outstanding entry per pair.
type QueueRepo interface {
	// EnqueueIfAbsent inserts a pending entry unless one is already
	// outstanding (pending or running) for the pair. Returns the entry
	// and whether a new row was created.
	EnqueueIfAbsent(dbc dbctx.Context, seedID, automationID uuid.UUID, priority int) (*types.AutomationQueueEntry, bool, error)
	// ClaimNext locks and transitions the best pending entry (or a
	// failed one whose retry backoff has elapsed and attempts remain)
	// to running.
	ClaimNext(dbc dbctx.Context, maxAttempts int, retryDelay time.Duration) (*types.AutomationQueueEntry, error)
	// MarkSucceeded deletes the entry; success leaves no queue residue.
	MarkSucceeded(dbc dbctx.Context, id uuid.UUID) error
	// MarkFailed transitions running -> failed, recording the error.
	// Entries under maxAttempts remain claimable after backoff; beyond
	// it they are terminal and only visible to operators.
	MarkFailed(dbc dbctx.Context, id uuid.UUID, jobErr error) error
	// ReleaseToPending returns a claimed entry to the pending state
	// without consuming an attempt (graceful-shutdown path).
	ReleaseToPending(dbc dbctx.Context, id uuid.UUID) error
	HasOutstanding(dbc dbctx.Context, seedID, automationID uuid.UUID) (bool, error)
	ListBySeeds(dbc dbctx.Context, seedIDs []uuid.UUID) ([]*types.AutomationQueueEntry, error)
	ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.AutomationQueueEntry, error)
	// ReleaseStaleRunning returns running entries whose lock is older
	// than staleAfter to pending (crash recovery at startup).
	ReleaseStaleRunning(dbc dbctx.Context, staleAfter time.Duration) (int64, error)
}

type queueRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQueueRepo(db *gorm.DB, baseLog *logger.Logger) QueueRepo {
	return &queueRepo{
		db:  db,
		log: baseLog.With("repo", "QueueRepo"),
	}
}

func (r *queueRepo) EnqueueIfAbsent(dbc dbctx.Context, seedID, automationID uuid.UUID, priority int) (*types.AutomationQueueEntry, bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if seedID == uuid.Nil || automationID == uuid.Nil {
		return nil, false, nil
	}
	var entry *types.AutomationQueueEntry
	inserted := false
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var existing types.AutomationQueueEntry
		qErr := txx.
			Where("seed_id = ? AND automation_id = ? AND status IN ?",
				seedID, automationID, []string{types.QueueStatusPending, types.QueueStatusRunning}).
			Limit(1).
			Find(&existing).Error
		if qErr != nil {
			return qErr
		}
		if existing.ID != uuid.Nil {
			entry = &existing
			return nil
		}
		now := time.Now()
		row := &types.AutomationQueueEntry{
			ID:           uuid.New(),
			SeedID:       seedID,
			AutomationID: automationID,
			Priority:     priority,
			Status:       types.QueueStatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if cErr := txx.Create(row).Error; cErr != nil {
			// The partial unique index is the backstop for races the
			// check above cannot see; a duplicate insert is a no-op.
			if errors.Is(cErr, gorm.ErrDuplicatedKey) {
				return txx.
					Where("seed_id = ? AND automation_id = ? AND status IN ?",
						seedID, automationID, []string{types.QueueStatusPending, types.QueueStatusRunning}).
					Limit(1).
					Find(&existing).Error
			}
			return cErr
		}
		entry = row
		inserted = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if entry == nil {
		return nil, false, nil
	}
	return entry, inserted, nil
}

func (r *queueRepo) ClaimNext(dbc dbctx.Context, maxAttempts int, retryDelay time.Duration) (*types.AutomationQueueEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	retryCutoff := now.Add(-retryDelay)
	var claimed *types.AutomationQueueEntry
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var entry types.AutomationQueueEntry
		q := txx.
			Where(`
        (
          status = ?
          OR (
            status = ?
            AND attempts < ?
            AND (last_error_at IS NULL OR last_error_at < ?)
          )
        )
      `, types.QueueStatusPending, types.QueueStatusFailed, maxAttempts, retryCutoff).
			Order("priority DESC").
			Order("created_at ASC")
		if txx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		qErr := q.First(&entry).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.AutomationQueueEntry{}).
			Where("id = ?", entry.ID).
			Updates(map[string]interface{}{
				"status":     types.QueueStatusRunning,
				"attempts":   gorm.Expr("attempts + 1"),
				"locked_at":  now,
				"updated_at": now,
			}).Error
		if uErr != nil {
			return uErr
		}
		entry.Status = types.QueueStatusRunning
		entry.Attempts++
		entry.LockedAt = &now
		claimed = &entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *queueRepo) MarkSucceeded(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.AutomationQueueEntry{}).Error
}

func (r *queueRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, jobErr error) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.AutomationQueueEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        types.QueueStatusFailed,
			"error":         msg,
			"last_error_at": now,
			"locked_at":     nil,
			"updated_at":    now,
		}).Error
}

func (r *queueRepo) ReleaseToPending(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(dbc.Ctx).
		Model(&types.AutomationQueueEntry{}).
		Where("id = ? AND status = ?", id, types.QueueStatusRunning).
		Updates(map[string]interface{}{
			"status":     types.QueueStatusPending,
			"attempts":   gorm.Expr("attempts - 1"),
			"locked_at":  nil,
			"updated_at": now,
		}).Error
}

func (r *queueRepo) HasOutstanding(dbc dbctx.Context, seedID, automationID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if seedID == uuid.Nil || automationID == uuid.Nil {
		return false, nil
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.AutomationQueueEntry{}).
		Where("seed_id = ? AND automation_id = ? AND status IN ?",
			seedID, automationID, []string{types.QueueStatusPending, types.QueueStatusRunning}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *queueRepo) ListBySeeds(dbc dbctx.Context, seedIDs []uuid.UUID) ([]*types.AutomationQueueEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AutomationQueueEntry
	if len(seedIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("seed_id IN ?", seedIDs).
		Order("priority DESC").
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *queueRepo) ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.AutomationQueueEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*types.AutomationQueueEntry
	if err := transaction.WithContext(dbc.Ctx).
		Where("status = ?", status).
		Order("priority DESC").
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *queueRepo) ReleaseStaleRunning(dbc dbctx.Context, staleAfter time.Duration) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	cutoff := time.Now().Add(-staleAfter)
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.AutomationQueueEntry{}).
		Where("status = ? AND locked_at IS NOT NULL AND locked_at < ?", types.QueueStatusRunning, cutoff).
		Updates(map[string]interface{}{
			"status":     types.QueueStatusPending,
			"locked_at":  nil,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
