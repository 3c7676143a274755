package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/seedbed-backend/internal/automations"
	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/ledger"
	"github.com/yungbote/seedbed-backend/internal/pkg/dbctx"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
)

type appendCall struct {
	txType       types.TransactionType
	automationID *uuid.UUID
}

type fakeLedger struct {
	states  map[uuid.UUID]*ledger.SeedState
	appends []appendCall
	locked  int
}

func (f *fakeLedger) Append(ctx context.Context, seedID uuid.UUID, txType types.TransactionType, payload datatypes.JSON, automationID *uuid.UUID) (*types.SeedTransaction, *ledger.SeedState, error) {
	return nil, nil, fmt.Errorf("scheduler must append under the seed lock")
}

func (f *fakeLedger) AppendLocked(ctx context.Context, seedID uuid.UUID, txType types.TransactionType, payload datatypes.JSON, automationID *uuid.UUID) (*types.SeedTransaction, *ledger.SeedState, error) {
	if f.locked == 0 {
		return nil, nil, fmt.Errorf("AppendLocked outside WithSeedLock")
	}
	f.appends = append(f.appends, appendCall{txType: txType, automationID: automationID})
	return &types.SeedTransaction{ID: uuid.New(), SeedID: seedID, Type: txType}, f.states[seedID], nil
}

func (f *fakeLedger) GetState(ctx context.Context, seedID uuid.UUID) (*ledger.SeedState, error) {
	if st, ok := f.states[seedID]; ok {
		return st, nil
	}
	return nil, fmt.Errorf("seed %s: not found", seedID)
}

func (f *fakeLedger) GetStates(ctx context.Context, seedIDs []uuid.UUID) (map[uuid.UUID]*ledger.SeedState, error) {
	return f.states, nil
}

func (f *fakeLedger) WithSeedLock(seedID uuid.UUID, fn func() error) error {
	f.locked++
	defer func() { f.locked-- }()
	return fn()
}

func (f *fakeLedger) Invalidate(ctx context.Context, seedID uuid.UUID) {}

type fakeSeedRepo struct {
	seeds map[uuid.UUID]*types.Seed
}

func (f *fakeSeedRepo) Create(dbc dbctx.Context, seeds []*types.Seed) ([]*types.Seed, error) {
	return seeds, nil
}
func (f *fakeSeedRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Seed, error) {
	return f.seeds[id], nil
}
func (f *fakeSeedRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Seed, error) {
	return nil, nil
}
func (f *fakeSeedRepo) UpdateSlug(dbc dbctx.Context, id uuid.UUID, slug string) error { return nil }
func (f *fakeSeedRepo) ListMissingSlug(dbc dbctx.Context, limit int) ([]*types.Seed, error) {
	return nil, nil
}
func (f *fakeSeedRepo) Delete(dbc dbctx.Context, id uuid.UUID) error { return nil }

type fakeQueueRepo struct {
	succeeded []uuid.UUID
	failed    []uuid.UUID
	released  []uuid.UUID
	lastErr   error
}

func (f *fakeQueueRepo) EnqueueIfAbsent(dbc dbctx.Context, seedID, automationID uuid.UUID, priority int) (*types.AutomationQueueEntry, bool, error) {
	return nil, false, nil
}
func (f *fakeQueueRepo) ClaimNext(dbc dbctx.Context, maxAttempts int, retryDelay time.Duration) (*types.AutomationQueueEntry, error) {
	return nil, nil
}
func (f *fakeQueueRepo) MarkSucceeded(dbc dbctx.Context, id uuid.UUID) error {
	f.succeeded = append(f.succeeded, id)
	return nil
}
func (f *fakeQueueRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, jobErr error) error {
	f.failed = append(f.failed, id)
	f.lastErr = jobErr
	return nil
}
func (f *fakeQueueRepo) ReleaseToPending(dbc dbctx.Context, id uuid.UUID) error {
	f.released = append(f.released, id)
	return nil
}
func (f *fakeQueueRepo) HasOutstanding(dbc dbctx.Context, seedID, automationID uuid.UUID) (bool, error) {
	return false, nil
}
func (f *fakeQueueRepo) ListBySeeds(dbc dbctx.Context, seedIDs []uuid.UUID) ([]*types.AutomationQueueEntry, error) {
	return nil, nil
}
func (f *fakeQueueRepo) ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.AutomationQueueEntry, error) {
	return nil, nil
}
func (f *fakeQueueRepo) ReleaseStaleRunning(dbc dbctx.Context, staleAfter time.Duration) (int64, error) {
	return 0, nil
}

type fakePointRepo struct {
	resets int
}

func (f *fakePointRepo) AddPressure(dbc dbctx.Context, seedID, automationID uuid.UUID, delta int) (int, error) {
	return 0, nil
}
func (f *fakePointRepo) Get(dbc dbctx.Context, seedID, automationID uuid.UUID) (*types.PressurePoint, error) {
	return nil, nil
}
func (f *fakePointRepo) ListBySeeds(dbc dbctx.Context, seedIDs []uuid.UUID) ([]*types.PressurePoint, error) {
	return nil, nil
}
func (f *fakePointRepo) Reset(dbc dbctx.Context, seedID, automationID uuid.UUID) error {
	f.resets++
	return nil
}

type fakeAutomationRepo struct {
	rows map[uuid.UUID]*types.Automation
}

func (f *fakeAutomationRepo) UpsertByName(dbc dbctx.Context, name string) (*types.Automation, error) {
	return nil, nil
}
func (f *fakeAutomationRepo) GetByName(dbc dbctx.Context, name string) (*types.Automation, error) {
	return nil, nil
}
func (f *fakeAutomationRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Automation, error) {
	var out []*types.Automation
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}
func (f *fakeAutomationRepo) ListEnabled(dbc dbctx.Context) ([]*types.Automation, error) {
	return nil, nil
}
func (f *fakeAutomationRepo) SetEnabled(dbc dbctx.Context, id uuid.UUID, enabled bool) error {
	return nil
}

type scriptedAutomation struct {
	name      string
	proposals []automations.ProposedTransaction
	err       error
	panics    bool
}

func (s *scriptedAutomation) Name() string { return s.name }
func (s *scriptedAutomation) Process(ctx context.Context, in automations.ProcessInput) ([]automations.ProposedTransaction, error) {
	if s.panics {
		panic("scripted panic")
	}
	return s.proposals, s.err
}
func (s *scriptedAutomation) CalculatePressure(state *ledger.SeedState, change *types.StructuralChange) int {
	return 0
}

type harness struct {
	worker *Worker
	led    *fakeLedger
	queue  *fakeQueueRepo
	points *fakePointRepo
	entry  *types.AutomationQueueEntry
}

func newHarness(t *testing.T, auto *scriptedAutomation) *harness {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}

	seedID := uuid.New()
	autoID := uuid.New()

	led := &fakeLedger{states: map[uuid.UUID]*ledger.SeedState{
		seedID: {SeedID: seedID, Content: "note", Tags: []ledger.TagRef{}, Categories: []ledger.CategoryRef{}},
	}}
	seedRepo := &fakeSeedRepo{seeds: map[uuid.UUID]*types.Seed{
		seedID: {ID: seedID, UserID: uuid.New()},
	}}
	queue := &fakeQueueRepo{}
	points := &fakePointRepo{}
	rows := &fakeAutomationRepo{rows: map[uuid.UUID]*types.Automation{
		autoID: {ID: autoID, Name: auto.name, Enabled: true},
	}}

	registry := automations.NewRegistry()
	if err := registry.Register(auto); err != nil {
		t.Fatalf("Register: %v", err)
	}

	worker := NewWorker(log, led, seedRepo, queue, points, rows, registry)
	entry := &types.AutomationQueueEntry{
		ID:           uuid.New(),
		SeedID:       seedID,
		AutomationID: autoID,
		Status:       types.QueueStatusRunning,
		Attempts:     1,
	}
	return &harness{worker: worker, led: led, queue: queue, points: points, entry: entry}
}

func TestExecuteAppendsAndSucceeds(t *testing.T) {
	tagPayload := datatypes.JSON([]byte(fmt.Sprintf(`{"tag_id":%q,"name":"go"}`, uuid.New())))
	auto := &scriptedAutomation{
		name:      "auto_tagger",
		proposals: []automations.ProposedTransaction{{Type: types.TxAddTag, Payload: tagPayload}},
	}
	h := newHarness(t, auto)

	h.worker.execute(context.Background(), 1, h.entry)

	if len(h.led.appends) != 1 {
		t.Fatalf("appends = %d, want 1", len(h.led.appends))
	}
	call := h.led.appends[0]
	if call.txType != types.TxAddTag {
		t.Fatalf("append type = %s", call.txType)
	}
	if call.automationID == nil || *call.automationID != h.entry.AutomationID {
		t.Fatalf("append not source-tagged with automation id: %v", call.automationID)
	}
	if len(h.queue.succeeded) != 1 || h.queue.succeeded[0] != h.entry.ID {
		t.Fatalf("succeeded = %v", h.queue.succeeded)
	}
	if h.points.resets != 1 {
		t.Fatalf("pressure resets = %d, want 1", h.points.resets)
	}
}

func TestExecuteMarksFailedOnError(t *testing.T) {
	auto := &scriptedAutomation{name: "auto_tagger", err: fmt.Errorf("model unavailable")}
	h := newHarness(t, auto)

	h.worker.execute(context.Background(), 1, h.entry)

	if len(h.queue.failed) != 1 {
		t.Fatalf("failed = %v", h.queue.failed)
	}
	if h.points.resets != 0 {
		t.Fatalf("pressure reset on failure: %d", h.points.resets)
	}
}

func TestExecuteRecoversPanic(t *testing.T) {
	auto := &scriptedAutomation{name: "auto_tagger", panics: true}
	h := newHarness(t, auto)

	h.worker.execute(context.Background(), 1, h.entry)

	if len(h.queue.failed) != 1 {
		t.Fatalf("panic did not mark entry failed: %v", h.queue.failed)
	}
}

func TestExecuteReleasesOnShutdown(t *testing.T) {
	auto := &scriptedAutomation{name: "auto_tagger", err: context.Canceled}
	h := newHarness(t, auto)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.worker.execute(ctx, 1, h.entry)

	if len(h.queue.released) != 1 {
		t.Fatalf("released = %v, want the entry back in pending", h.queue.released)
	}
	if len(h.queue.failed) != 0 {
		t.Fatalf("shutdown consumed an attempt: %v", h.queue.failed)
	}
}

func TestExecuteDropsEntryForDeletedSeed(t *testing.T) {
	auto := &scriptedAutomation{name: "auto_tagger"}
	h := newHarness(t, auto)
	h.entry.SeedID = uuid.New() // not in the repo

	h.worker.execute(context.Background(), 1, h.entry)

	if len(h.queue.succeeded) != 1 {
		t.Fatalf("entry for deleted seed should be dropped, got %v", h.queue.succeeded)
	}
	if len(h.led.appends) != 0 {
		t.Fatalf("appends for deleted seed: %d", len(h.led.appends))
	}
}

func TestExecuteFailsDisabledAutomation(t *testing.T) {
	auto := &scriptedAutomation{name: "auto_tagger"}
	h := newHarness(t, auto)
	for _, row := range h.worker.rows.(*fakeAutomationRepo).rows {
		row.Enabled = false
	}

	h.worker.execute(context.Background(), 1, h.entry)

	if len(h.queue.failed) != 1 {
		t.Fatalf("disabled automation should fail the entry, got %v", h.queue.failed)
	}
	if len(h.led.appends) != 0 {
		t.Fatalf("disabled automation appended: %d", len(h.led.appends))
	}
}
