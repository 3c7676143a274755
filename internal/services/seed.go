package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	seedsrepo "github.com/yungbote/seedbed-backend/internal/data/repos/seeds"
	"github.com/yungbote/seedbed-backend/internal/data/repos/taxonomy"
	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/ledger"
	"github.com/yungbote/seedbed-backend/internal/pkg/apperr"
	"github.com/yungbote/seedbed-backend/internal/pkg/dbctx"
	"github.com/yungbote/seedbed-backend/internal/pkg/slugify"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
)

// SeedView is a seed joined with its projection, the shape every read
// endpoint returns.
type SeedView struct {
	Seed  *types.Seed       `json:"seed"`
	State *ledger.SeedState `json:"state"`
}

// SeedService owns the seed lifecycle. Every mutation is expressed as a
// ledger transaction through the ledger service; the only non-ledger
// writes here are the identity row itself and the denormalized slug.
type SeedService interface {
	CreateSeed(ctx context.Context, userID uuid.UUID, content string) (*SeedView, error)
	GetSeed(ctx context.Context, userID, seedID uuid.UUID) (*SeedView, error)
	ListSeeds(ctx context.Context, userID uuid.UUID) ([]*SeedView, error)
	ListTransactions(ctx context.Context, userID, seedID uuid.UUID) ([]*types.SeedTransaction, error)
	DeleteSeed(ctx context.Context, userID, seedID uuid.UUID) error

	EditContent(ctx context.Context, userID, seedID uuid.UUID, content string) (*SeedView, error)
	AddTag(ctx context.Context, userID, seedID uuid.UUID, name string) (*SeedView, error)
	RemoveTag(ctx context.Context, userID, seedID, tagID uuid.UUID) (*SeedView, error)
	SetCategory(ctx context.Context, userID, seedID, categoryID uuid.UUID) (*SeedView, error)
	RemoveCategory(ctx context.Context, userID, seedID uuid.UUID) (*SeedView, error)
	AddSprout(ctx context.Context, userID, seedID uuid.UUID, kind, text string) (*SeedView, error)

	// BackfillSlugs recomputes missing slugs from each seed's projected
	// content. Slugs sit outside the append-only invariant.
	BackfillSlugs(ctx context.Context, limit int) (int, error)
	// CleanupInvalidSeeds deletes the user's seeds whose ledger never
	// validly began with create_seed.
	CleanupInvalidSeeds(ctx context.Context, userID uuid.UUID) (int, error)
}

type seedService struct {
	log    *logger.Logger
	seeds  seedsrepo.SeedRepo
	txs    seedsrepo.TransactionRepo
	tags   taxonomy.TagRepo
	cats   taxonomy.CategoryRepo
	ledger ledger.Service
}

func NewSeedService(
	baseLog *logger.Logger,
	seeds seedsrepo.SeedRepo,
	txs seedsrepo.TransactionRepo,
	tags taxonomy.TagRepo,
	cats taxonomy.CategoryRepo,
	ledgerSvc ledger.Service,
) SeedService {
	return &seedService{
		log:    baseLog.With("service", "SeedService"),
		seeds:  seeds,
		txs:    txs,
		tags:   tags,
		cats:   cats,
		ledger: ledgerSvc,
	}
}

func (s *seedService) CreateSeed(ctx context.Context, userID uuid.UUID, content string) (*SeedView, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated: %w", apperr.ErrUnauthorized)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("content required: %w", apperr.ErrInvalidArgument)
	}

	seed := &types.Seed{ID: uuid.New(), UserID: userID}
	seed.Slug = slugify.ForSeed(seed.ID, content)
	if _, err := s.seeds.Create(dbctx.Background(ctx), []*types.Seed{seed}); err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(types.CreateSeedPayload{Content: content})
	_, state, err := s.ledger.Append(ctx, seed.ID, types.TxCreateSeed, datatypes.JSON(payload), nil)
	if err != nil {
		// The identity row without its opening transaction is an invalid
		// seed; remove it rather than leaving cleanup debt.
		_ = s.seeds.Delete(dbctx.Background(ctx), seed.ID)
		return nil, err
	}
	s.log.Info("seed created", "seed_id", seed.ID, "user_id", userID)
	return &SeedView{Seed: seed, State: state}, nil
}

func (s *seedService) GetSeed(ctx context.Context, userID, seedID uuid.UUID) (*SeedView, error) {
	seed, err := s.owned(ctx, userID, seedID)
	if err != nil {
		return nil, err
	}
	state, err := s.ledger.GetState(ctx, seedID)
	if err != nil {
		return nil, err
	}
	return &SeedView{Seed: seed, State: state}, nil
}

func (s *seedService) ListSeeds(ctx context.Context, userID uuid.UUID) ([]*SeedView, error) {
	seeds, err := s.seeds.ListByUser(dbctx.Background(ctx), userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(seeds))
	for i, sd := range seeds {
		ids[i] = sd.ID
	}
	states, err := s.ledger.GetStates(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*SeedView, 0, len(seeds))
	for _, sd := range seeds {
		state, ok := states[sd.ID]
		if !ok {
			// Invalid or empty ledger: excluded from derived views.
			continue
		}
		out = append(out, &SeedView{Seed: sd, State: state})
	}
	return out, nil
}

func (s *seedService) ListTransactions(ctx context.Context, userID, seedID uuid.UUID) ([]*types.SeedTransaction, error) {
	if _, err := s.owned(ctx, userID, seedID); err != nil {
		return nil, err
	}
	return s.txs.ListBySeed(dbctx.Background(ctx), seedID)
}

func (s *seedService) DeleteSeed(ctx context.Context, userID, seedID uuid.UUID) error {
	if _, err := s.owned(ctx, userID, seedID); err != nil {
		return err
	}
	if err := s.seeds.Delete(dbctx.Background(ctx), seedID); err != nil {
		return err
	}
	s.ledger.Invalidate(ctx, seedID)
	return nil
}

func (s *seedService) EditContent(ctx context.Context, userID, seedID uuid.UUID, content string) (*SeedView, error) {
	payload, _ := json.Marshal(types.EditContentPayload{Content: content})
	return s.append(ctx, userID, seedID, types.TxEditContent, payload)
}

func (s *seedService) AddTag(ctx context.Context, userID, seedID uuid.UUID, name string) (*SeedView, error) {
	tag, err := s.tags.GetOrCreateByName(dbctx.Background(ctx), name)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, fmt.Errorf("tag name required: %w", apperr.ErrInvalidArgument)
	}
	payload, _ := json.Marshal(types.AddTagPayload{TagID: tag.ID, Name: tag.Name})
	return s.append(ctx, userID, seedID, types.TxAddTag, payload)
}

func (s *seedService) RemoveTag(ctx context.Context, userID, seedID, tagID uuid.UUID) (*SeedView, error) {
	payload, _ := json.Marshal(types.RemoveTagPayload{TagID: tagID})
	return s.append(ctx, userID, seedID, types.TxRemoveTag, payload)
}

func (s *seedService) SetCategory(ctx context.Context, userID, seedID, categoryID uuid.UUID) (*SeedView, error) {
	cat, err := s.cats.GetByID(dbctx.Background(ctx), categoryID)
	if err != nil {
		return nil, err
	}
	if cat == nil || cat.UserID != userID {
		return nil, fmt.Errorf("category %s: %w", categoryID, apperr.ErrNotFound)
	}
	payload, _ := json.Marshal(types.SetCategoryPayload{CategoryID: cat.ID, Name: cat.Name, Path: cat.Path})
	return s.append(ctx, userID, seedID, types.TxSetCategory, payload)
}

func (s *seedService) RemoveCategory(ctx context.Context, userID, seedID uuid.UUID) (*SeedView, error) {
	return s.append(ctx, userID, seedID, types.TxRemoveCategory, []byte(`{}`))
}

func (s *seedService) AddSprout(ctx context.Context, userID, seedID uuid.UUID, kind, text string) (*SeedView, error) {
	payload, _ := json.Marshal(types.AddSproutPayload{Kind: kind, Text: text})
	return s.append(ctx, userID, seedID, types.TxAddSprout, payload)
}

func (s *seedService) append(ctx context.Context, userID, seedID uuid.UUID, txType types.TransactionType, payload datatypes.JSON) (*SeedView, error) {
	seed, err := s.owned(ctx, userID, seedID)
	if err != nil {
		return nil, err
	}
	_, state, err := s.ledger.Append(ctx, seedID, txType, payload, nil)
	if err != nil {
		return nil, err
	}
	return &SeedView{Seed: seed, State: state}, nil
}

func (s *seedService) owned(ctx context.Context, userID, seedID uuid.UUID) (*types.Seed, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated: %w", apperr.ErrUnauthorized)
	}
	seed, err := s.seeds.GetByID(dbctx.Background(ctx), seedID)
	if err != nil {
		return nil, err
	}
	if seed == nil || seed.UserID != userID {
		return nil, fmt.Errorf("seed %s: %w", seedID, apperr.ErrNotFound)
	}
	return seed, nil
}

func (s *seedService) BackfillSlugs(ctx context.Context, limit int) (int, error) {
	seeds, err := s.seeds.ListMissingSlug(dbctx.Background(ctx), limit)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, sd := range seeds {
		state, sErr := s.ledger.GetState(ctx, sd.ID)
		if sErr != nil {
			s.log.Warn("slug backfill skipping seed", "seed_id", sd.ID, "error", sErr)
			continue
		}
		slug := slugify.ForSeed(sd.ID, state.Content)
		if uErr := s.seeds.UpdateSlug(dbctx.Background(ctx), sd.ID, slug); uErr != nil {
			return updated, uErr
		}
		updated++
	}
	if updated > 0 {
		s.log.Info("slugs backfilled", "count", updated)
	}
	return updated, nil
}

func (s *seedService) CleanupInvalidSeeds(ctx context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, fmt.Errorf("not authenticated: %w", apperr.ErrUnauthorized)
	}
	seeds, err := s.seeds.ListByUser(dbctx.Background(ctx), userID)
	if err != nil {
		return 0, err
	}
	ids := make([]uuid.UUID, len(seeds))
	for i, sd := range seeds {
		ids[i] = sd.ID
	}
	bySeed, err := s.txs.ListBySeeds(dbctx.Background(ctx), ids)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, sd := range seeds {
		rows := bySeed[sd.ID]
		if _, pErr := ledger.Project(rows); pErr == nil {
			continue
		}
		if dErr := s.seeds.Delete(dbctx.Background(ctx), sd.ID); dErr != nil {
			return removed, dErr
		}
		s.ledger.Invalidate(ctx, sd.ID)
		removed++
	}
	if removed > 0 {
		s.log.Info("invalid seeds removed", "user_id", userID, "count", removed)
	}
	return removed, nil
}
