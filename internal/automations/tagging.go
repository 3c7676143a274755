package automations

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"github.com/yungbote/seedbed-backend/internal/data/repos/taxonomy"
	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/ledger"
	"github.com/yungbote/seedbed-backend/internal/pkg/dbctx"
	"github.com/yungbote/seedbed-backend/internal/pkg/jsonx"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
	"github.com/yungbote/seedbed-backend/internal/platform/openai"
)

const AutoTaggerName = "auto_tagger"

const maxTagsPerSeed = 8

const taggerSystemPrompt = `You tag short personal notes. Given a note, reply with a JSON array of
1-5 lowercase tag names (single words or short hyphenated phrases) that
capture its topics. Reply with the JSON array only, no prose.`

// AutoTagger asks the model for topic tags and proposes add_tag
// transactions for the ones the seed does not already carry.
type AutoTagger struct {
	ai      openai.Client
	tags    taxonomy.TagRepo
	weights Weights
	log     *logger.Logger
}

func NewAutoTagger(ai openai.Client, tags taxonomy.TagRepo, weights Weights, baseLog *logger.Logger) *AutoTagger {
	return &AutoTagger{
		ai:      ai,
		tags:    tags,
		weights: weights,
		log:     baseLog.With("automation", AutoTaggerName),
	}
}

func (a *AutoTagger) Name() string { return AutoTaggerName }

func (a *AutoTagger) Process(ctx context.Context, in ProcessInput) ([]ProposedTransaction, error) {
	if in.State == nil || strings.TrimSpace(in.State.Content) == "" {
		return nil, nil
	}
	if len(in.State.Tags) >= maxTagsPerSeed {
		return nil, nil
	}

	user := fmt.Sprintf("Note:\n%s\n\nExisting tags: %s", in.State.Content, tagNames(in.State))
	raw, err := a.ai.GenerateText(ctx, taggerSystemPrompt, user)
	if err != nil {
		return nil, fmt.Errorf("tag suggestion: %w", err)
	}
	names, err := jsonx.ExtractStrings(raw)
	if err != nil {
		return nil, fmt.Errorf("tag suggestion parse: %w", err)
	}

	var out []ProposedTransaction
	seen := map[string]bool{}
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		tag, tErr := a.tags.GetOrCreateByName(dbctx.Background(ctx), name)
		if tErr != nil {
			return nil, tErr
		}
		if tag == nil || in.State.HasTag(tag.ID) {
			// Already present: skipping keeps retries idempotent.
			continue
		}
		payload, _ := json.Marshal(types.AddTagPayload{TagID: tag.ID, Name: tag.Name})
		out = append(out, ProposedTransaction{Type: types.TxAddTag, Payload: datatypes.JSON(payload)})
		if len(in.State.Tags)+len(out) >= maxTagsPerSeed {
			break
		}
	}
	a.log.Debug("tag proposals computed", "seed_id", in.State.SeedID, "proposed", len(out))
	return out, nil
}

// CalculatePressure scores structural churn by how much it degrades
// existing tag assignments. Tag-domain changes only count when the seed
// actually carries the affected tag.
func (a *AutoTagger) CalculatePressure(state *ledger.SeedState, change *types.StructuralChange) int {
	if state == nil || change == nil {
		return 0
	}
	w := a.weights.For(change.Type)
	switch change.Domain {
	case types.ChangeDomainTag:
		if !state.HasTag(change.TagID) {
			return 0
		}
		return w
	case types.ChangeDomainCategory:
		// Category churn shifts the seed's topical context, so carried
		// tags deserve a fresh look too. Only categorized seeds are
		// affected; a rename scores the full configured weight.
		if state.Category() == nil {
			return 0
		}
		return w
	default:
		return 0
	}
}

func tagNames(state *ledger.SeedState) string {
	if len(state.Tags) == 0 {
		return "(none)"
	}
	names := make([]string, len(state.Tags))
	for i, t := range state.Tags {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}
