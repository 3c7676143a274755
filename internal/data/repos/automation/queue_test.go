package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/seedbed-backend/internal/data/repos/testutil"
	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/pkg/dbctx"
)

func TestEnqueueIfAbsentIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)

	user := testutil.SeedUser(t, ctx, tx, "queue-idem@test.dev")
	seed := testutil.SeedSeed(t, ctx, tx, user.ID, "queue-idem-seed")
	auto := testutil.SeedAutomation(t, ctx, tx, "queue_idem_tagger")

	repo := NewQueueRepo(tx, log)

	entry, created, err := repo.EnqueueIfAbsent(dbc, seed.ID, auto.ID, 60)
	if err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if !created || entry == nil {
		t.Fatalf("first enqueue should create an entry")
	}

	again, created, err := repo.EnqueueIfAbsent(dbc, seed.ID, auto.ID, 90)
	if err != nil {
		t.Fatalf("second enqueue: %v", err)
	}
	if created {
		t.Fatalf("second enqueue must not create a duplicate")
	}
	if again.ID != entry.ID {
		t.Fatalf("second enqueue returned a different entry")
	}
	if again.Priority != 60 {
		t.Fatalf("outstanding entry priority changed: got %d, want 60", again.Priority)
	}
}

func TestClaimNextOrdersByPriorityThenAge(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)

	user := testutil.SeedUser(t, ctx, tx, "queue-order@test.dev")
	low := testutil.SeedSeed(t, ctx, tx, user.ID, "queue-order-low")
	high := testutil.SeedSeed(t, ctx, tx, user.ID, "queue-order-high")
	auto := testutil.SeedAutomation(t, ctx, tx, "queue_order_tagger")

	repo := NewQueueRepo(tx, log)

	if _, _, err := repo.EnqueueIfAbsent(dbc, low.ID, auto.ID, 55); err != nil {
		t.Fatalf("enqueue low: %v", err)
	}
	if _, _, err := repo.EnqueueIfAbsent(dbc, high.ID, auto.ID, 95); err != nil {
		t.Fatalf("enqueue high: %v", err)
	}

	claimed, err := repo.ClaimNext(dbc, 5, 30*time.Second)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed == nil {
		t.Fatalf("expected a claimable entry")
	}
	if claimed.SeedID != high.ID {
		t.Fatalf("claimed seed %s, want the higher-priority one", claimed.SeedID)
	}
	if claimed.Status != types.QueueStatusRunning {
		t.Fatalf("claimed status = %s, want running", claimed.Status)
	}
}

func TestMarkFailedThenRetryAndTerminal(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)

	user := testutil.SeedUser(t, ctx, tx, "queue-fail@test.dev")
	seed := testutil.SeedSeed(t, ctx, tx, user.ID, "queue-fail-seed")
	auto := testutil.SeedAutomation(t, ctx, tx, "queue_fail_tagger")

	repo := NewQueueRepo(tx, log)

	if _, _, err := repo.EnqueueIfAbsent(dbc, seed.ID, auto.ID, 70); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	claimed, err := repo.ClaimNext(dbc, 2, 0)
	if err != nil || claimed == nil {
		t.Fatalf("claim: %v", err)
	}
	if err := repo.MarkFailed(dbc, claimed.ID, errors.New("model unavailable")); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	// One attempt consumed; with zero backoff the entry is claimable
	// again until attempts reach the cap.
	reclaimed, err := repo.ClaimNext(dbc, 2, 0)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if reclaimed == nil || reclaimed.ID != claimed.ID {
		t.Fatalf("failed entry with remaining attempts should be reclaimable")
	}
	if err := repo.MarkFailed(dbc, reclaimed.ID, errors.New("model unavailable")); err != nil {
		t.Fatalf("mark failed again: %v", err)
	}

	terminal, err := repo.ClaimNext(dbc, 2, 0)
	if err != nil {
		t.Fatalf("claim after exhaustion: %v", err)
	}
	if terminal != nil {
		t.Fatalf("entry past max attempts must not be claimable")
	}

	failed, err := repo.ListByStatus(dbc, types.QueueStatusFailed, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("failed list = %d entries, want 1", len(failed))
	}
	if failed[0].Error == "" {
		t.Fatalf("terminal entry should record the error")
	}
}

func TestMarkSucceededDeletesEntry(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)

	user := testutil.SeedUser(t, ctx, tx, "queue-done@test.dev")
	seed := testutil.SeedSeed(t, ctx, tx, user.ID, "queue-done-seed")
	auto := testutil.SeedAutomation(t, ctx, tx, "queue_done_tagger")

	repo := NewQueueRepo(tx, log)

	if _, _, err := repo.EnqueueIfAbsent(dbc, seed.ID, auto.ID, 50); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	claimed, err := repo.ClaimNext(dbc, 5, 0)
	if err != nil || claimed == nil {
		t.Fatalf("claim: %v", err)
	}
	if err := repo.MarkSucceeded(dbc, claimed.ID); err != nil {
		t.Fatalf("mark succeeded: %v", err)
	}

	outstanding, err := repo.HasOutstanding(dbc, seed.ID, auto.ID)
	if err != nil {
		t.Fatalf("has outstanding: %v", err)
	}
	if outstanding {
		t.Fatalf("success must leave no queue residue")
	}

	// Pair is free again for the next pressure crossing.
	_, created, err := repo.EnqueueIfAbsent(dbc, seed.ID, auto.ID, 50)
	if err != nil {
		t.Fatalf("re-enqueue: %v", err)
	}
	if !created {
		t.Fatalf("pair should be enqueueable after success")
	}
}

func TestReleaseToPendingKeepsAttempts(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)

	user := testutil.SeedUser(t, ctx, tx, "queue-release@test.dev")
	seed := testutil.SeedSeed(t, ctx, tx, user.ID, "queue-release-seed")
	auto := testutil.SeedAutomation(t, ctx, tx, "queue_release_tagger")

	repo := NewQueueRepo(tx, log)

	if _, _, err := repo.EnqueueIfAbsent(dbc, seed.ID, auto.ID, 50); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	claimed, err := repo.ClaimNext(dbc, 5, 0)
	if err != nil || claimed == nil {
		t.Fatalf("claim: %v", err)
	}
	if err := repo.ReleaseToPending(dbc, claimed.ID); err != nil {
		t.Fatalf("release: %v", err)
	}

	reclaimed, err := repo.ClaimNext(dbc, 5, 0)
	if err != nil || reclaimed == nil {
		t.Fatalf("reclaim after release: %v", err)
	}
	if reclaimed.Attempts != claimed.Attempts {
		t.Fatalf("release consumed an attempt: %d -> %d", claimed.Attempts, reclaimed.Attempts)
	}
}
