package automations

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/ledger"
	"github.com/yungbote/seedbed-backend/internal/pkg/dbctx"
)

type fakeAI struct {
	reply string
	err   error
	calls int
}

func (f *fakeAI) GenerateText(ctx context.Context, system, user string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeTagRepo struct {
	byName map[string]*types.Tag
}

func newFakeTagRepo() *fakeTagRepo {
	return &fakeTagRepo{byName: map[string]*types.Tag{}}
}

func (f *fakeTagRepo) Create(dbc dbctx.Context, tags []*types.Tag) ([]*types.Tag, error) {
	for _, tg := range tags {
		f.byName[tg.Name] = tg
	}
	return tags, nil
}

func (f *fakeTagRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Tag, error) {
	for _, tg := range f.byName {
		if tg.ID == id {
			return tg, nil
		}
	}
	return nil, nil
}

func (f *fakeTagRepo) GetByName(dbc dbctx.Context, name string) (*types.Tag, error) {
	return f.byName[strings.ToLower(strings.TrimSpace(name))], nil
}

func (f *fakeTagRepo) GetOrCreateByName(dbc dbctx.Context, name string) (*types.Tag, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, nil
	}
	if tg, ok := f.byName[name]; ok {
		return tg, nil
	}
	tg := &types.Tag{ID: uuid.New(), Name: name}
	f.byName[name] = tg
	return tg, nil
}

func (f *fakeTagRepo) List(dbc dbctx.Context) ([]*types.Tag, error) { return nil, nil }
func (f *fakeTagRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}
func (f *fakeTagRepo) Delete(dbc dbctx.Context, id uuid.UUID) error { return nil }

func seedState(content string, tags ...ledger.TagRef) *ledger.SeedState {
	return &ledger.SeedState{
		SeedID:     uuid.New(),
		Content:    content,
		Tags:       tags,
		Categories: []ledger.CategoryRef{},
	}
}

func TestAutoTaggerProposesMissingTags(t *testing.T) {
	repo := newFakeTagRepo()
	existing, _ := repo.GetOrCreateByName(dbctx.Background(context.Background()), "rust")
	ai := &fakeAI{reply: `["rust", "go", "Go", ""]`}

	tagger := NewAutoTagger(ai, repo, DefaultConfig().Tagging, testLogger(t))
	state := seedState("Test note about #rust", ledger.TagRef{ID: existing.ID, Name: existing.Name})

	proposals, err := tagger.Process(context.Background(), ProcessInput{
		Seed:  &types.Seed{ID: state.SeedID, UserID: uuid.New()},
		State: state,
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	// "rust" already on the seed, "go" duplicated and blank filtered.
	if len(proposals) != 1 {
		t.Fatalf("proposals = %d, want 1", len(proposals))
	}
	if proposals[0].Type != types.TxAddTag {
		t.Fatalf("type = %s", proposals[0].Type)
	}
	if !strings.Contains(string(proposals[0].Payload), `"go"`) {
		t.Fatalf("payload = %s", proposals[0].Payload)
	}
}

func TestAutoTaggerFencedResponse(t *testing.T) {
	repo := newFakeTagRepo()
	ai := &fakeAI{reply: "Here you go:\n```json\n[\"focus\"]\n```"}

	tagger := NewAutoTagger(ai, repo, DefaultConfig().Tagging, testLogger(t))
	proposals, err := tagger.Process(context.Background(), ProcessInput{
		Seed:  &types.Seed{ID: uuid.New()},
		State: seedState("deep work session notes"),
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(proposals) != 1 {
		t.Fatalf("proposals = %d, want 1", len(proposals))
	}
}

func TestAutoTaggerSkipsEmptyContent(t *testing.T) {
	ai := &fakeAI{reply: `["x"]`}
	tagger := NewAutoTagger(ai, newFakeTagRepo(), DefaultConfig().Tagging, testLogger(t))

	proposals, err := tagger.Process(context.Background(), ProcessInput{
		Seed:  &types.Seed{ID: uuid.New()},
		State: seedState("   "),
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(proposals) != 0 || ai.calls != 0 {
		t.Fatalf("expected no work for empty content, got %d proposals %d calls", len(proposals), ai.calls)
	}
}

func TestAutoTaggerPressure(t *testing.T) {
	tagID := uuid.New()
	tagger := NewAutoTagger(nil, nil, DefaultConfig().Tagging, testLogger(t))
	state := seedState("note", ledger.TagRef{ID: tagID, Name: "rust"})

	got := tagger.CalculatePressure(state, &types.StructuralChange{
		Domain: types.ChangeDomainTag,
		Type:   types.ChangeRemove,
		TagID:  tagID,
	})
	if got != 15 {
		t.Fatalf("remove of carried tag = %d, want 15", got)
	}

	got = tagger.CalculatePressure(state, &types.StructuralChange{
		Domain: types.ChangeDomainTag,
		Type:   types.ChangeRemove,
		TagID:  uuid.New(),
	})
	if got != 0 {
		t.Fatalf("remove of unrelated tag = %d, want 0", got)
	}

	// Category churn scores full weight, but only for categorized
	// seeds.
	got = tagger.CalculatePressure(state, &types.StructuralChange{
		Domain: types.ChangeDomainCategory,
		Type:   types.ChangeRename,
	})
	if got != 0 {
		t.Fatalf("category rename of uncategorized seed = %d, want 0", got)
	}

	state.Categories = []ledger.CategoryRef{{ID: uuid.New(), Name: "w", Path: "/w"}}
	got = tagger.CalculatePressure(state, &types.StructuralChange{
		Domain: types.ChangeDomainCategory,
		Type:   types.ChangeRename,
	})
	if got != 10 {
		t.Fatalf("category rename = %d, want 10", got)
	}
}
