package taxonomy

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/pkg/dbctx"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
)

type TagRepo interface {
	Create(dbc dbctx.Context, tags []*types.Tag) ([]*types.Tag, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Tag, error)
	GetByName(dbc dbctx.Context, name string) (*types.Tag, error)
	GetOrCreateByName(dbc dbctx.Context, name string) (*types.Tag, error)
	List(dbc dbctx.Context) ([]*types.Tag, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type tagRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTagRepo(db *gorm.DB, baseLog *logger.Logger) TagRepo {
	return &tagRepo{
		db:  db,
		log: baseLog.With("repo", "TagRepo"),
	}
}

func (r *tagRepo) Create(dbc dbctx.Context, tags []*types.Tag) ([]*types.Tag, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(tags) == 0 {
		return []*types.Tag{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *tagRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Tag, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var tag types.Tag
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&tag).Error
	if err != nil {
		return nil, err
	}
	if tag.ID == uuid.Nil {
		return nil, nil
	}
	return &tag, nil
}

func (r *tagRepo) GetByName(dbc dbctx.Context, name string) (*types.Tag, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, nil
	}
	var tag types.Tag
	err := transaction.WithContext(dbc.Ctx).
		Where("name = ?", name).
		Limit(1).
		Find(&tag).Error
	if err != nil {
		return nil, err
	}
	if tag.ID == uuid.Nil {
		return nil, nil
	}
	return &tag, nil
}

// GetOrCreateByName resolves a tag by normalized name, creating it when
// absent. Concurrent creators race on the unique index; the loser
// re-reads.
func (r *tagRepo) GetOrCreateByName(dbc dbctx.Context, name string) (*types.Tag, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, nil
	}
	if tag, err := r.GetByName(dbc, name); err != nil || tag != nil {
		return tag, err
	}
	tag := &types.Tag{ID: uuid.New(), Name: name}
	if _, err := r.Create(dbc, []*types.Tag{tag}); err != nil {
		if existing, gErr := r.GetByName(dbc, name); gErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}
	return tag, nil
}

func (r *tagRepo) List(dbc dbctx.Context) ([]*types.Tag, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Tag
	if err := transaction.WithContext(dbc.Ctx).
		Order("name ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *tagRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Tag{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *tagRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.Tag{}).Error
}
