package ledger

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/pkg/apperr"
)

var testBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func mkTx(t *testing.T, seedID uuid.UUID, txType types.TransactionType, payload any, offset time.Duration) *types.SeedTransaction {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &types.SeedTransaction{
		ID:        uuid.New(),
		SeedID:    seedID,
		Type:      txType,
		Payload:   datatypes.JSON(raw),
		CreatedAt: testBase.Add(offset),
	}
}

func TestProjectCreateSeed(t *testing.T) {
	seedID := uuid.New()
	txs := []*types.SeedTransaction{
		mkTx(t, seedID, types.TxCreateSeed, types.CreateSeedPayload{Content: "Test note about #rust"}, 0),
	}

	state, err := Project(txs)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if state.Content != "Test note about #rust" {
		t.Fatalf("content = %q", state.Content)
	}
	if len(state.Tags) != 0 || len(state.Categories) != 0 {
		t.Fatalf("expected empty tags and categories, got %v / %v", state.Tags, state.Categories)
	}
	if !state.Timestamp.Equal(txs[0].CreatedAt) {
		t.Fatalf("timestamp = %v, want %v", state.Timestamp, txs[0].CreatedAt)
	}
}

func TestProjectAddTag(t *testing.T) {
	seedID := uuid.New()
	tagID := uuid.New()
	txs := []*types.SeedTransaction{
		mkTx(t, seedID, types.TxCreateSeed, types.CreateSeedPayload{Content: "Test note about #rust"}, 0),
		mkTx(t, seedID, types.TxAddTag, types.AddTagPayload{TagID: tagID, Name: "rust"}, time.Second),
	}

	state, err := Project(txs)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if len(state.Tags) != 1 || state.Tags[0].ID != tagID || state.Tags[0].Name != "rust" {
		t.Fatalf("tags = %v", state.Tags)
	}
}

func TestProjectTagIdempotence(t *testing.T) {
	seedID := uuid.New()
	tagID := uuid.New()
	txs := []*types.SeedTransaction{
		mkTx(t, seedID, types.TxCreateSeed, types.CreateSeedPayload{Content: "note"}, 0),
		mkTx(t, seedID, types.TxAddTag, types.AddTagPayload{TagID: tagID, Name: "go"}, time.Second),
		mkTx(t, seedID, types.TxAddTag, types.AddTagPayload{TagID: tagID, Name: "go"}, 2*time.Second),
	}

	state, err := Project(txs)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if len(state.Tags) != 1 {
		t.Fatalf("duplicate add_tag projected twice: %v", state.Tags)
	}
}

func TestProjectRemoveTag(t *testing.T) {
	seedID := uuid.New()
	keep := uuid.New()
	drop := uuid.New()
	txs := []*types.SeedTransaction{
		mkTx(t, seedID, types.TxCreateSeed, types.CreateSeedPayload{Content: "note"}, 0),
		mkTx(t, seedID, types.TxAddTag, types.AddTagPayload{TagID: keep, Name: "keep"}, time.Second),
		mkTx(t, seedID, types.TxAddTag, types.AddTagPayload{TagID: drop, Name: "drop"}, 2*time.Second),
		mkTx(t, seedID, types.TxRemoveTag, types.RemoveTagPayload{TagID: drop}, 3*time.Second),
	}

	state, err := Project(txs)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if len(state.Tags) != 1 || state.Tags[0].ID != keep {
		t.Fatalf("tags = %v", state.Tags)
	}
}

func TestProjectSingleCategoryInvariant(t *testing.T) {
	seedID := uuid.New()
	c1 := uuid.New()
	c2 := uuid.New()
	txs := []*types.SeedTransaction{
		mkTx(t, seedID, types.TxCreateSeed, types.CreateSeedPayload{Content: "note"}, 0),
		mkTx(t, seedID, types.TxSetCategory, types.SetCategoryPayload{CategoryID: c1, Name: "work", Path: "/work"}, time.Second),
		mkTx(t, seedID, types.TxSetCategory, types.SetCategoryPayload{CategoryID: c2, Name: "home", Path: "/home"}, 2*time.Second),
	}

	state, err := Project(txs)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if len(state.Categories) != 1 {
		t.Fatalf("categories length = %d, want 1", len(state.Categories))
	}
	if state.Categories[0].ID != c2 {
		t.Fatalf("category = %v, want %s (last write)", state.Categories[0], c2)
	}
}

func TestProjectRemoveCategory(t *testing.T) {
	seedID := uuid.New()
	txs := []*types.SeedTransaction{
		mkTx(t, seedID, types.TxCreateSeed, types.CreateSeedPayload{Content: "note"}, 0),
		mkTx(t, seedID, types.TxSetCategory, types.SetCategoryPayload{CategoryID: uuid.New(), Name: "work", Path: "/work"}, time.Second),
		mkTx(t, seedID, types.TxRemoveCategory, types.RemoveCategoryPayload{}, 2*time.Second),
	}

	state, err := Project(txs)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if len(state.Categories) != 0 {
		t.Fatalf("categories = %v, want empty", state.Categories)
	}
	if state.Category() != nil {
		t.Fatalf("Category() = %v, want nil", state.Category())
	}
}

func TestProjectEditContent(t *testing.T) {
	seedID := uuid.New()
	txs := []*types.SeedTransaction{
		mkTx(t, seedID, types.TxCreateSeed, types.CreateSeedPayload{Content: "v1"}, 0),
		mkTx(t, seedID, types.TxEditContent, types.EditContentPayload{Content: "v2"}, time.Second),
	}

	state, err := Project(txs)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if state.Content != "v2" {
		t.Fatalf("content = %q, want v2", state.Content)
	}
}

func TestProjectSprouts(t *testing.T) {
	seedID := uuid.New()
	autoID := uuid.New()
	txs := []*types.SeedTransaction{
		mkTx(t, seedID, types.TxCreateSeed, types.CreateSeedPayload{Content: "note"}, 0),
		mkTx(t, seedID, types.TxAddSprout, types.AddSproutPayload{Kind: "followup", Text: "check later"}, time.Second),
		// Legacy alias still replays.
		mkTx(t, seedID, types.TxAddFollowup, types.AddSproutPayload{Text: "older row"}, 2*time.Second),
	}
	txs[1].AutomationID = &autoID

	state, err := Project(txs)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if len(state.Sprouts) != 2 {
		t.Fatalf("sprouts = %v", state.Sprouts)
	}
	if state.Sprouts[0].Kind != "followup" || state.Sprouts[0].AutomationID == nil {
		t.Fatalf("first sprout = %+v", state.Sprouts[0])
	}
	if state.Sprouts[1].Kind != "sprout" {
		t.Fatalf("empty kind should default to sprout, got %q", state.Sprouts[1].Kind)
	}
}

func TestProjectDeterministic(t *testing.T) {
	seedID := uuid.New()
	txs := []*types.SeedTransaction{
		mkTx(t, seedID, types.TxCreateSeed, types.CreateSeedPayload{Content: "note"}, 0),
		mkTx(t, seedID, types.TxAddTag, types.AddTagPayload{TagID: uuid.New(), Name: "a"}, time.Second),
		mkTx(t, seedID, types.TxSetCategory, types.SetCategoryPayload{CategoryID: uuid.New(), Name: "w", Path: "/w"}, 2*time.Second),
		mkTx(t, seedID, types.TxAddSprout, types.AddSproutPayload{Text: "x"}, 3*time.Second),
	}

	first, err := Project(txs)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	second, err := Project(txs)
	if err != nil {
		t.Fatalf("Project (again): %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("projection not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestProjectInvalidFirstTransaction(t *testing.T) {
	seedID := uuid.New()
	txs := []*types.SeedTransaction{
		mkTx(t, seedID, types.TxAddTag, types.AddTagPayload{TagID: uuid.New(), Name: "x"}, 0),
	}

	if _, err := Project(txs); !errors.Is(err, apperr.ErrInvalidSeed) {
		t.Fatalf("err = %v, want ErrInvalidSeed", err)
	}
	if _, err := Project(nil); !errors.Is(err, apperr.ErrInvalidSeed) {
		t.Fatalf("empty sequence err = %v, want ErrInvalidSeed", err)
	}
}

func TestProjectDuplicateCreateSeed(t *testing.T) {
	seedID := uuid.New()
	txs := []*types.SeedTransaction{
		mkTx(t, seedID, types.TxCreateSeed, types.CreateSeedPayload{Content: "a"}, 0),
		mkTx(t, seedID, types.TxCreateSeed, types.CreateSeedPayload{Content: "b"}, time.Second),
	}

	if _, err := Project(txs); !errors.Is(err, apperr.ErrInvalidSeed) {
		t.Fatalf("err = %v, want ErrInvalidSeed", err)
	}
}

func TestProjectUnknownTypeFailsLoudly(t *testing.T) {
	seedID := uuid.New()
	txs := []*types.SeedTransaction{
		mkTx(t, seedID, types.TxCreateSeed, types.CreateSeedPayload{Content: "a"}, 0),
		mkTx(t, seedID, types.TransactionType("merge_seeds"), map[string]string{}, time.Second),
	}

	if _, err := Project(txs); !errors.Is(err, apperr.ErrUnknownTransactionType) {
		t.Fatalf("err = %v, want ErrUnknownTransactionType", err)
	}
}

func TestProjectMalformedPayload(t *testing.T) {
	seedID := uuid.New()
	bad := mkTx(t, seedID, types.TxAddTag, types.AddTagPayload{TagID: uuid.New(), Name: "x"}, time.Second)
	bad.Payload = datatypes.JSON([]byte(`{"tag_id": 42`))
	txs := []*types.SeedTransaction{
		mkTx(t, seedID, types.TxCreateSeed, types.CreateSeedPayload{Content: "a"}, 0),
		bad,
	}

	if _, err := Project(txs); !errors.Is(err, apperr.ErrMalformedPayload) {
		t.Fatalf("err = %v, want ErrMalformedPayload", err)
	}
}
