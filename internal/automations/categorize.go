package automations

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/seedbed-backend/internal/data/repos/taxonomy"
	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/ledger"
	"github.com/yungbote/seedbed-backend/internal/pkg/dbctx"
	"github.com/yungbote/seedbed-backend/internal/pkg/jsonx"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
	"github.com/yungbote/seedbed-backend/internal/platform/openai"
)

const AutoCategorizerName = "auto_categorizer"

const categorizerSystemPrompt = `You file short personal notes into a category hierarchy. Given a note
and the existing category paths, reply with a JSON array holding exactly
one path (e.g. ["/work/projects"]). Prefer an existing path; propose a
new one (reusing an existing prefix where sensible) only when nothing
fits. Segments are lowercase words separated by "/". Reply with the JSON
array only, no prose.`

// AutoCategorizer asks the model for the best category path, creating
// missing hierarchy segments, and proposes a set_category transaction
// when the answer differs from the seed's current category.
type AutoCategorizer struct {
	ai         openai.Client
	categories taxonomy.CategoryRepo
	weights    Weights
	log        *logger.Logger
}

func NewAutoCategorizer(ai openai.Client, categories taxonomy.CategoryRepo, weights Weights, baseLog *logger.Logger) *AutoCategorizer {
	return &AutoCategorizer{
		ai:         ai,
		categories: categories,
		weights:    weights,
		log:        baseLog.With("automation", AutoCategorizerName),
	}
}

func (a *AutoCategorizer) Name() string { return AutoCategorizerName }

func (a *AutoCategorizer) Process(ctx context.Context, in ProcessInput) ([]ProposedTransaction, error) {
	if in.Seed == nil || in.State == nil || strings.TrimSpace(in.State.Content) == "" {
		return nil, nil
	}

	existing, err := a.categories.ListByUser(dbctx.Background(ctx), in.Seed.UserID)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(existing))
	for _, c := range existing {
		paths = append(paths, c.Path)
	}
	pathList := "(none)"
	if len(paths) > 0 {
		pathList = strings.Join(paths, "\n")
	}

	user := fmt.Sprintf("Note:\n%s\n\nExisting category paths:\n%s", in.State.Content, pathList)
	raw, err := a.ai.GenerateText(ctx, categorizerSystemPrompt, user)
	if err != nil {
		return nil, fmt.Errorf("category suggestion: %w", err)
	}
	suggestions, err := jsonx.ExtractStrings(raw)
	if err != nil {
		return nil, fmt.Errorf("category suggestion parse: %w", err)
	}
	if len(suggestions) == 0 {
		return nil, nil
	}

	path := normalizePath(suggestions[0])
	if path == "" {
		return nil, nil
	}

	cat, err := a.resolvePath(ctx, in.Seed.UserID, path)
	if err != nil {
		return nil, err
	}
	if cat == nil || in.State.HasCategory(cat.ID) {
		// Current category already matches the suggestion; emitting
		// nothing keeps retries idempotent.
		return nil, nil
	}

	payload, _ := json.Marshal(types.SetCategoryPayload{CategoryID: cat.ID, Name: cat.Name, Path: cat.Path})
	a.log.Debug("category proposal computed", "seed_id", in.State.SeedID, "path", cat.Path)
	return []ProposedTransaction{{Type: types.TxSetCategory, Payload: datatypes.JSON(payload)}}, nil
}

// resolvePath walks the suggested path segment by segment, creating
// categories that do not exist yet, and returns the leaf.
func (a *AutoCategorizer) resolvePath(ctx context.Context, userID uuid.UUID, path string) (*types.Category, error) {
	dbc := dbctx.Background(ctx)
	segments := strings.Split(strings.Trim(path, "/"), "/")

	var parent *types.Category
	prefix := ""
	for _, seg := range segments {
		prefix = prefix + "/" + seg
		matches, err := a.categories.ListByPathPrefix(dbc, userID, prefix)
		if err != nil {
			return nil, err
		}
		var node *types.Category
		for _, m := range matches {
			if m.Path == prefix {
				node = m
				break
			}
		}
		if node == nil {
			node = &types.Category{
				ID:     uuid.New(),
				UserID: userID,
				Name:   seg,
				Path:   prefix,
			}
			if parent != nil {
				pid := parent.ID
				node.ParentID = &pid
			}
			if _, err := a.categories.Create(dbc, []*types.Category{node}); err != nil {
				// Concurrent creator won the unique path index; re-read.
				matches, rErr := a.categories.ListByPathPrefix(dbc, userID, prefix)
				if rErr != nil {
					return nil, err
				}
				node = nil
				for _, m := range matches {
					if m.Path == prefix {
						node = m
						break
					}
				}
				if node == nil {
					return nil, err
				}
			}
		}
		parent = node
	}
	return parent, nil
}

// CalculatePressure weights hierarchy changes heavily: the categorizer
// owns the mapping from seeds to that hierarchy. Tag changes never
// contribute. An uncategorized seed accrues pressure only from additive
// changes, which create new filing candidates for it.
func (a *AutoCategorizer) CalculatePressure(state *ledger.SeedState, change *types.StructuralChange) int {
	if state == nil || change == nil || change.Domain != types.ChangeDomainCategory {
		return 0
	}
	if state.Category() == nil && change.Type != types.ChangeAddChild {
		return 0
	}
	return a.weights.For(change.Type)
}

func normalizePath(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	segments := strings.Split(p, "/")
	clean := segments[:0]
	for _, s := range segments {
		s = strings.TrimSpace(s)
		if s != "" {
			clean = append(clean, s)
		}
	}
	if len(clean) == 0 {
		return ""
	}
	return "/" + strings.Join(clean, "/")
}
