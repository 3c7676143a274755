package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/seedbed-backend/internal/automations"
	automationrepo "github.com/yungbote/seedbed-backend/internal/data/repos/automation"
	seedsrepo "github.com/yungbote/seedbed-backend/internal/data/repos/seeds"
	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/ledger"
	"github.com/yungbote/seedbed-backend/internal/pkg/apperr"
	"github.com/yungbote/seedbed-backend/internal/pkg/dbctx"
	"github.com/yungbote/seedbed-backend/internal/platform/envutil"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
)

const (
	maxAttempts  = 5
	retryDelay   = 30 * time.Second
	staleRunning = 30 * time.Minute
)

// Worker drains the automation queue with a bounded pool. Different
// seeds run in parallel; same-seed work is serialized through the
// ledger service's seed lock, so no two automations ever mutate one
// seed's ledger concurrently.
type Worker struct {
	log      *logger.Logger
	ledger   ledger.Service
	seeds    seedsrepo.SeedRepo
	queue    automationrepo.QueueRepo
	points   automationrepo.PressurePointRepo
	rows     automationrepo.AutomationRepo
	registry *automations.Registry

	jobTimeout time.Duration
	wg         sync.WaitGroup
}

func NewWorker(
	baseLog *logger.Logger,
	ledgerSvc ledger.Service,
	seeds seedsrepo.SeedRepo,
	queue automationrepo.QueueRepo,
	points automationrepo.PressurePointRepo,
	rows automationrepo.AutomationRepo,
	registry *automations.Registry,
) *Worker {
	timeoutSec := envutil.GetEnvAsInt("AUTOMATION_TIMEOUT_SECONDS", 60, baseLog)
	return &Worker{
		log:        baseLog.With("component", "AutomationWorker"),
		ledger:     ledgerSvc,
		seeds:      seeds,
		queue:      queue,
		points:     points,
		rows:       rows,
		registry:   registry,
		jobTimeout: time.Duration(timeoutSec) * time.Second,
	}
}

// Start recovers entries orphaned by a previous crash, then launches
// the pool. Loops exit when ctx is cancelled; Wait blocks until
// in-flight jobs have been handed back.
func (w *Worker) Start(ctx context.Context) {
	released, err := w.queue.ReleaseStaleRunning(dbctx.Background(ctx), staleRunning)
	if err != nil {
		w.log.Warn("stale running recovery failed", "error", err)
	} else if released > 0 {
		w.log.Info("recovered stale running entries", "count", released)
	}

	concurrency := envutil.GetEnvAsInt("WORKER_CONCURRENCY", 4, w.log)
	if concurrency < 1 {
		concurrency = 1
	}
	w.log.Info("Starting automation worker pool", "concurrency", concurrency)

	for i := 0; i < concurrency; i++ {
		workerID := i + 1
		w.wg.Add(1)
		go w.runLoop(ctx, workerID)
	}
}

// Wait blocks until every loop has stopped. Call after cancelling the
// Start context.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	defer w.wg.Done()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			entry, err := w.queue.ClaimNext(dbctx.Background(ctx), maxAttempts, retryDelay)
			if err != nil {
				if ctx.Err() == nil {
					w.log.Warn("ClaimNext failed", "worker_id", workerID, "error", err)
				}
				continue
			}
			if entry == nil {
				continue
			}
			w.execute(ctx, workerID, entry)
		}
	}
}

func (w *Worker) execute(ctx context.Context, workerID int, entry *types.AutomationQueueEntry) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("automation panic",
				"worker_id", workerID,
				"entry_id", entry.ID,
				"seed_id", entry.SeedID,
				"panic", r,
			)
			w.fail(entry, fmt.Errorf("panic: %v", r))
		}
	}()

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	err := w.run(jobCtx, entry)
	switch {
	case err == nil:
		dbc := dbctx.Background(context.Background())
		if mErr := w.queue.MarkSucceeded(dbc, entry.ID); mErr != nil {
			w.log.Warn("MarkSucceeded failed", "entry_id", entry.ID, "error", mErr)
		}
		// Accumulated pressure has been spent; the next structural
		// change starts the climb from zero.
		if rErr := w.points.Reset(dbc, entry.SeedID, entry.AutomationID); rErr != nil {
			w.log.Warn("pressure reset failed", "entry_id", entry.ID, "error", rErr)
		}
	case ctx.Err() != nil:
		// Shutdown, not a job failure: hand the entry back without
		// consuming an attempt.
		if rErr := w.queue.ReleaseToPending(dbctx.Background(context.Background()), entry.ID); rErr != nil {
			w.log.Warn("ReleaseToPending failed", "entry_id", entry.ID, "error", rErr)
		}
		w.log.Info("entry released on shutdown", "worker_id", workerID, "entry_id", entry.ID)
	default:
		w.log.Warn("automation run failed",
			"worker_id", workerID,
			"entry_id", entry.ID,
			"seed_id", entry.SeedID,
			"attempts", entry.Attempts,
			"error", err,
		)
		w.fail(entry, err)
	}
}

func (w *Worker) fail(entry *types.AutomationQueueEntry, err error) {
	if mErr := w.queue.MarkFailed(dbctx.Background(context.Background()), entry.ID, err); mErr != nil {
		w.log.Error("MarkFailed failed", "entry_id", entry.ID, "error", mErr)
	}
}

// run resolves the automation and executes it under the seed lock with
// a fetch-then-append pattern: the projection is re-read immediately
// before Process so idempotency checks see the latest ledger, and the
// resulting transactions are appended before the lock is released.
func (w *Worker) run(ctx context.Context, entry *types.AutomationQueueEntry) error {
	dbc := dbctx.Background(ctx)

	rows, err := w.rows.GetByIDs(dbc, []uuid.UUID{entry.AutomationID})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("automation %s not registered in database", entry.AutomationID)
	}
	row := rows[0]
	if !row.Enabled {
		return fmt.Errorf("automation %s is disabled", row.Name)
	}
	a, ok := w.registry.Get(row.Name)
	if !ok {
		return fmt.Errorf("no behavior registered for automation %q", row.Name)
	}

	seed, err := w.seeds.GetByID(dbc, entry.SeedID)
	if err != nil {
		return err
	}
	if seed == nil {
		// Seed deleted while queued; nothing left to do.
		w.log.Info("seed gone, dropping entry", "entry_id", entry.ID, "seed_id", entry.SeedID)
		return nil
	}

	return w.ledger.WithSeedLock(entry.SeedID, func() error {
		state, sErr := w.ledger.GetState(ctx, entry.SeedID)
		if sErr != nil {
			if errors.Is(sErr, apperr.ErrInvalidSeed) || errors.Is(sErr, apperr.ErrNotFound) {
				w.log.Warn("seed not projectable, dropping entry", "seed_id", entry.SeedID, "error", sErr)
				return nil
			}
			return sErr
		}

		proposals, pErr := a.Process(ctx, automations.ProcessInput{Seed: seed, State: state})
		if pErr != nil {
			return pErr
		}
		for _, proposal := range proposals {
			automationID := entry.AutomationID
			if _, _, aErr := w.ledger.AppendLocked(ctx, entry.SeedID, proposal.Type, proposal.Payload, &automationID); aErr != nil {
				return aErr
			}
		}
		if len(proposals) > 0 {
			w.log.Info("automation applied",
				"automation", row.Name,
				"seed_id", entry.SeedID,
				"transactions", len(proposals),
			)
		}
		return nil
	})
}
