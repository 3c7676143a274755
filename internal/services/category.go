package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/seedbed-backend/internal/data/repos/taxonomy"
	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/ledger"
	"github.com/yungbote/seedbed-backend/internal/pkg/apperr"
	"github.com/yungbote/seedbed-backend/internal/pkg/dbctx"
	"github.com/yungbote/seedbed-backend/internal/pkg/slugify"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
	"github.com/yungbote/seedbed-backend/internal/pressure"
)

// CategoryService owns the category tree: materialized-path
// maintenance on rename/move/delete, cascade semantics for seed
// associations, and structural-change emission into the pressure
// model.
type CategoryService interface {
	CreateCategory(ctx context.Context, userID uuid.UUID, parentID *uuid.UUID, name string) (*types.Category, error)
	GetCategory(ctx context.Context, userID, id uuid.UUID) (*types.Category, error)
	ListCategories(ctx context.Context, userID uuid.UUID) ([]*types.Category, error)
	RenameCategory(ctx context.Context, userID, id uuid.UUID, newName string) (*types.Category, error)
	MoveCategory(ctx context.Context, userID, id uuid.UUID, newParentID *uuid.UUID) (*types.Category, error)
	DeleteCategory(ctx context.Context, userID, id uuid.UUID) error
}

type categoryService struct {
	log      *logger.Logger
	cats     taxonomy.CategoryRepo
	seedSvc  SeedService
	ledger   ledger.Service
	pressure pressure.Service
}

func NewCategoryService(
	baseLog *logger.Logger,
	cats taxonomy.CategoryRepo,
	seedSvc SeedService,
	ledgerSvc ledger.Service,
	pressureSvc pressure.Service,
) CategoryService {
	return &categoryService{
		log:      baseLog.With("service", "CategoryService"),
		cats:     cats,
		seedSvc:  seedSvc,
		ledger:   ledgerSvc,
		pressure: pressureSvc,
	}
}

func (s *categoryService) CreateCategory(ctx context.Context, userID uuid.UUID, parentID *uuid.UUID, name string) (*types.Category, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated: %w", apperr.ErrUnauthorized)
	}
	segment := pathSegment(name)
	if segment == "" {
		return nil, fmt.Errorf("category name required: %w", apperr.ErrInvalidArgument)
	}

	parentPath := ""
	if parentID != nil && *parentID != uuid.Nil {
		parent, err := s.ownedCategory(ctx, userID, *parentID)
		if err != nil {
			return nil, err
		}
		parentPath = parent.Path
	}

	cat := &types.Category{
		ID:       uuid.New(),
		UserID:   userID,
		ParentID: parentID,
		Name:     strings.TrimSpace(name),
		Path:     parentPath + "/" + segment,
	}
	if _, err := s.cats.Create(dbctx.Background(ctx), []*types.Category{cat}); err != nil {
		return nil, err
	}

	change := &types.StructuralChange{
		Domain:      types.ChangeDomainCategory,
		Type:        types.ChangeAddChild,
		UserID:      userID,
		CategoryID:  cat.ID,
		NewPath:     cat.Path,
		NewParentID: parentID,
	}
	if err := s.pressure.Apply(ctx, change); err != nil {
		s.log.Warn("pressure fan-out failed", "change", change.Type, "error", err)
	}
	return cat, nil
}

func (s *categoryService) GetCategory(ctx context.Context, userID, id uuid.UUID) (*types.Category, error) {
	return s.ownedCategory(ctx, userID, id)
}

func (s *categoryService) ListCategories(ctx context.Context, userID uuid.UUID) ([]*types.Category, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated: %w", apperr.ErrUnauthorized)
	}
	return s.cats.ListByUser(dbctx.Background(ctx), userID)
}

func (s *categoryService) RenameCategory(ctx context.Context, userID, id uuid.UUID, newName string) (*types.Category, error) {
	cat, err := s.ownedCategory(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	segment := pathSegment(newName)
	if segment == "" {
		return nil, fmt.Errorf("category name required: %w", apperr.ErrInvalidArgument)
	}

	oldPath := cat.Path
	newPath := parentOf(oldPath) + "/" + segment
	if newPath != oldPath {
		// Rewrites the whole subtree: descendants keep their suffix
		// under the renamed prefix.
		if _, err := s.cats.RewritePathPrefix(dbctx.Background(ctx), userID, oldPath, newPath); err != nil {
			return nil, err
		}
	}
	if err := s.cats.UpdateFields(dbctx.Background(ctx), id, map[string]interface{}{"name": strings.TrimSpace(newName)}); err != nil {
		return nil, err
	}
	cat.Name = strings.TrimSpace(newName)
	cat.Path = newPath

	change := &types.StructuralChange{
		Domain:     types.ChangeDomainCategory,
		Type:       types.ChangeRename,
		UserID:     userID,
		CategoryID: id,
		OldPath:    oldPath,
		NewPath:    newPath,
	}
	if err := s.pressure.Apply(ctx, change); err != nil {
		s.log.Warn("pressure fan-out failed", "change", change.Type, "error", err)
	}
	return cat, nil
}

func (s *categoryService) MoveCategory(ctx context.Context, userID, id uuid.UUID, newParentID *uuid.UUID) (*types.Category, error) {
	cat, err := s.ownedCategory(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	newParentPath := ""
	if newParentID != nil && *newParentID != uuid.Nil {
		parent, pErr := s.ownedCategory(ctx, userID, *newParentID)
		if pErr != nil {
			return nil, pErr
		}
		if types.IsAncestorPath(cat.Path, parent.Path) {
			return nil, fmt.Errorf("cannot move a category under its own subtree: %w", apperr.ErrInvalidArgument)
		}
		newParentPath = parent.Path
	}

	oldPath := cat.Path
	oldParentID := cat.ParentID
	newPath := newParentPath + "/" + lastSegment(oldPath)
	if newPath == oldPath {
		return cat, nil
	}

	if _, err := s.cats.RewritePathPrefix(dbctx.Background(ctx), userID, oldPath, newPath); err != nil {
		return nil, err
	}
	if err := s.cats.UpdateFields(dbctx.Background(ctx), id, map[string]interface{}{"parent_id": newParentID}); err != nil {
		return nil, err
	}
	cat.ParentID = newParentID
	cat.Path = newPath

	change := &types.StructuralChange{
		Domain:      types.ChangeDomainCategory,
		Type:        types.ChangeMove,
		UserID:      userID,
		CategoryID:  id,
		OldPath:     oldPath,
		NewPath:     newPath,
		OldParentID: oldParentID,
		NewParentID: newParentID,
	}
	if err := s.pressure.Apply(ctx, change); err != nil {
		s.log.Warn("pressure fan-out failed", "change", change.Type, "error", err)
	}
	return cat, nil
}

// DeleteCategory removes the category and its descendants, then
// cascades to seed associations by appending remove_category to every
// seed currently filed in the deleted subtree. The ledger stays
// append-only: the cascade is new transactions, never rewritten
// history.
func (s *categoryService) DeleteCategory(ctx context.Context, userID, id uuid.UUID) error {
	cat, err := s.ownedCategory(ctx, userID, id)
	if err != nil {
		return err
	}
	oldPath := cat.Path

	// Affected seeds must be collected from projections before the
	// subtree disappears.
	views, err := s.seedSvc.ListSeeds(ctx, userID)
	if err != nil {
		return err
	}
	var filed []uuid.UUID
	for _, v := range views {
		if c := v.State.Category(); c != nil && types.IsAncestorPath(oldPath, c.Path) {
			filed = append(filed, v.Seed.ID)
		}
	}

	if _, err := s.cats.DeleteSubtree(dbctx.Background(ctx), userID, oldPath); err != nil {
		return err
	}

	// Pressure is applied while projections still reference the removed
	// category; the cascade below clears those references.
	change := &types.StructuralChange{
		Domain:     types.ChangeDomainCategory,
		Type:       types.ChangeRemove,
		UserID:     userID,
		CategoryID: id,
		OldPath:    oldPath,
	}
	if err := s.pressure.Apply(ctx, change); err != nil {
		s.log.Warn("pressure fan-out failed", "change", change.Type, "error", err)
	}

	for _, seedID := range filed {
		if _, _, aErr := s.ledger.Append(ctx, seedID, types.TxRemoveCategory, []byte(`{}`), nil); aErr != nil {
			return fmt.Errorf("cascade remove_category for seed %s: %w", seedID, aErr)
		}
	}
	s.log.Info("category deleted", "category_id", id, "path", oldPath, "cascaded_seeds", len(filed))
	return nil
}

func (s *categoryService) ownedCategory(ctx context.Context, userID, id uuid.UUID) (*types.Category, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated: %w", apperr.ErrUnauthorized)
	}
	cat, err := s.cats.GetByID(dbctx.Background(ctx), id)
	if err != nil {
		return nil, err
	}
	if cat == nil || cat.UserID != userID {
		return nil, fmt.Errorf("category %s: %w", id, apperr.ErrNotFound)
	}
	return cat, nil
}

func pathSegment(name string) string {
	return slugify.FromContent(name)
}

func parentOf(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return ""
	}
	return path[:idx]
}

func lastSegment(path string) string {
	idx := strings.LastIndex(path, "/")
	return path[idx+1:]
}
