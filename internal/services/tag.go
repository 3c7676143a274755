package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/seedbed-backend/internal/data/repos/taxonomy"
	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/ledger"
	"github.com/yungbote/seedbed-backend/internal/pkg/apperr"
	"github.com/yungbote/seedbed-backend/internal/pkg/dbctx"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
	"github.com/yungbote/seedbed-backend/internal/pressure"
)

// TagService owns the tag vocabulary. Tags are shared entities keyed by
// normalized name; structural mutations fan out into the pressure model
// scoped to the acting user's seeds.
type TagService interface {
	CreateTag(ctx context.Context, name string, color *string) (*types.Tag, error)
	ListTags(ctx context.Context) ([]*types.Tag, error)
	RenameTag(ctx context.Context, userID, id uuid.UUID, newName string) (*types.Tag, error)
	SetColor(ctx context.Context, id uuid.UUID, color *string) error
	// DeleteTag removes the tag and appends remove_tag to the user's
	// seeds that carry it, keeping projections consistent without
	// touching ledger history.
	DeleteTag(ctx context.Context, userID, id uuid.UUID) error
}

type tagService struct {
	log      *logger.Logger
	tags     taxonomy.TagRepo
	seedSvc  SeedService
	ledger   ledger.Service
	pressure pressure.Service
}

func NewTagService(
	baseLog *logger.Logger,
	tags taxonomy.TagRepo,
	seedSvc SeedService,
	ledgerSvc ledger.Service,
	pressureSvc pressure.Service,
) TagService {
	return &tagService{
		log:      baseLog.With("service", "TagService"),
		tags:     tags,
		seedSvc:  seedSvc,
		ledger:   ledgerSvc,
		pressure: pressureSvc,
	}
}

func (s *tagService) CreateTag(ctx context.Context, name string, color *string) (*types.Tag, error) {
	tag, err := s.tags.GetOrCreateByName(dbctx.Background(ctx), name)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, fmt.Errorf("tag name required: %w", apperr.ErrInvalidArgument)
	}
	if color != nil {
		if err := s.tags.UpdateFields(dbctx.Background(ctx), tag.ID, map[string]interface{}{"color": color}); err != nil {
			return nil, err
		}
		tag.Color = color
	}
	return tag, nil
}

func (s *tagService) ListTags(ctx context.Context) ([]*types.Tag, error) {
	return s.tags.List(dbctx.Background(ctx))
}

func (s *tagService) RenameTag(ctx context.Context, userID, id uuid.UUID, newName string) (*types.Tag, error) {
	tag, err := s.existing(ctx, id)
	if err != nil {
		return nil, err
	}
	newName = strings.ToLower(strings.TrimSpace(newName))
	if newName == "" {
		return nil, fmt.Errorf("tag name required: %w", apperr.ErrInvalidArgument)
	}
	if newName == tag.Name {
		return tag, nil
	}
	if err := s.tags.UpdateFields(dbctx.Background(ctx), id, map[string]interface{}{"name": newName}); err != nil {
		return nil, err
	}
	tag.Name = newName

	change := &types.StructuralChange{
		Domain: types.ChangeDomainTag,
		Type:   types.ChangeRename,
		UserID: userID,
		TagID:  id,
	}
	if err := s.pressure.Apply(ctx, change); err != nil {
		s.log.Warn("pressure fan-out failed", "change", change.Type, "error", err)
	}
	return tag, nil
}

func (s *tagService) SetColor(ctx context.Context, id uuid.UUID, color *string) error {
	if _, err := s.existing(ctx, id); err != nil {
		return err
	}
	// Color is cosmetic; no structural change is emitted.
	return s.tags.UpdateFields(dbctx.Background(ctx), id, map[string]interface{}{"color": color})
}

func (s *tagService) DeleteTag(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.existing(ctx, id); err != nil {
		return err
	}

	views, err := s.seedSvc.ListSeeds(ctx, userID)
	if err != nil {
		return err
	}
	var carrying []uuid.UUID
	for _, v := range views {
		if v.State.HasTag(id) {
			carrying = append(carrying, v.Seed.ID)
		}
	}

	if err := s.tags.Delete(dbctx.Background(ctx), id); err != nil {
		return err
	}

	// Scored against projections that still carry the tag; the cascade
	// below strips it.
	change := &types.StructuralChange{
		Domain: types.ChangeDomainTag,
		Type:   types.ChangeRemove,
		UserID: userID,
		TagID:  id,
	}
	if err := s.pressure.Apply(ctx, change); err != nil {
		s.log.Warn("pressure fan-out failed", "change", change.Type, "error", err)
	}

	payload, _ := json.Marshal(types.RemoveTagPayload{TagID: id})
	for _, seedID := range carrying {
		if _, _, aErr := s.ledger.Append(ctx, seedID, types.TxRemoveTag, payload, nil); aErr != nil {
			return fmt.Errorf("cascade remove_tag for seed %s: %w", seedID, aErr)
		}
	}
	s.log.Info("tag deleted", "tag_id", id, "cascaded_seeds", len(carrying))
	return nil
}

func (s *tagService) existing(ctx context.Context, id uuid.UUID) (*types.Tag, error) {
	tag, err := s.tags.GetByID(dbctx.Background(ctx), id)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, fmt.Errorf("tag %s: %w", id, apperr.ErrNotFound)
	}
	return tag, nil
}
