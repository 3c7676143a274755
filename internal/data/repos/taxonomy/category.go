package taxonomy

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/pkg/dbctx"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
)

type CategoryRepo interface {
	Create(dbc dbctx.Context, categories []*types.Category) ([]*types.Category, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Category, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Category, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Category, error)
	ListByPathPrefix(dbc dbctx.Context, userID uuid.UUID, pathPrefix string) ([]*types.Category, error)
	// RewritePathPrefix updates the path of a category and all its
	// descendants after a rename or move. oldPrefix and newPrefix are
	// full category paths.
	RewritePathPrefix(dbc dbctx.Context, userID uuid.UUID, oldPrefix, newPrefix string) (int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// DeleteSubtree removes the category and every descendant by path
	// prefix.
	DeleteSubtree(dbc dbctx.Context, userID uuid.UUID, path string) (int64, error)
}

type categoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCategoryRepo(db *gorm.DB, baseLog *logger.Logger) CategoryRepo {
	return &categoryRepo{
		db:  db,
		log: baseLog.With("repo", "CategoryRepo"),
	}
}

func (r *categoryRepo) Create(dbc dbctx.Context, categories []*types.Category) ([]*types.Category, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(categories) == 0 {
		return []*types.Category{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Category, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var cat types.Category
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&cat).Error
	if err != nil {
		return nil, err
	}
	if cat.ID == uuid.Nil {
		return nil, nil
	}
	return &cat, nil
}

func (r *categoryRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Category, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Category
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *categoryRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Category, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Category
	if userID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("path ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *categoryRepo) ListByPathPrefix(dbc dbctx.Context, userID uuid.UUID, pathPrefix string) ([]*types.Category, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Category
	if userID == uuid.Nil || pathPrefix == "" {
		return out, nil
	}
	prefix := strings.TrimRight(pathPrefix, "/")
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND (path = ? OR path LIKE ?)", userID, prefix, likeEscape(prefix)+"/%").
		Order("path ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *categoryRepo) RewritePathPrefix(dbc dbctx.Context, userID uuid.UUID, oldPrefix, newPrefix string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || oldPrefix == "" || newPrefix == "" || oldPrefix == newPrefix {
		return 0, nil
	}
	old := strings.TrimRight(oldPrefix, "/")
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Category{}).
		Where("user_id = ? AND (path = ? OR path LIKE ?)", userID, old, likeEscape(old)+"/%").
		Updates(map[string]interface{}{
			"path":       gorm.Expr("? || substr(path, ?)", strings.TrimRight(newPrefix, "/"), len(old)+1),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *categoryRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Category{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *categoryRepo) DeleteSubtree(dbc dbctx.Context, userID uuid.UUID, path string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || path == "" {
		return 0, nil
	}
	prefix := strings.TrimRight(path, "/")
	res := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND (path = ? OR path LIKE ?)", userID, prefix, likeEscape(prefix)+"/%").
		Delete(&types.Category{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func likeEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
