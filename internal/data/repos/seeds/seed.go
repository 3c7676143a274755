package seeds

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/pkg/dbctx"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
)

type SeedRepo interface {
	Create(dbc dbctx.Context, seeds []*types.Seed) ([]*types.Seed, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Seed, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Seed, error)
	UpdateSlug(dbc dbctx.Context, id uuid.UUID, slug string) error
	ListMissingSlug(dbc dbctx.Context, limit int) ([]*types.Seed, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type seedRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSeedRepo(db *gorm.DB, baseLog *logger.Logger) SeedRepo {
	return &seedRepo{
		db:  db,
		log: baseLog.With("repo", "SeedRepo"),
	}
}

func (r *seedRepo) Create(dbc dbctx.Context, seeds []*types.Seed) ([]*types.Seed, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(seeds) == 0 {
		return []*types.Seed{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&seeds).Error; err != nil {
		return nil, err
	}
	return seeds, nil
}

func (r *seedRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Seed, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var seed types.Seed
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&seed).Error
	if err != nil {
		return nil, err
	}
	if seed.ID == uuid.Nil {
		return nil, nil
	}
	return &seed, nil
}

func (r *seedRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Seed, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Seed
	if userID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *seedRepo) UpdateSlug(dbc dbctx.Context, id uuid.UUID, slug string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Seed{}).
		Where("id = ?", id).
		Update("slug", slug).Error
}

func (r *seedRepo) ListMissingSlug(dbc dbctx.Context, limit int) ([]*types.Seed, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*types.Seed
	if err := transaction.WithContext(dbc.Ctx).
		Where("slug IS NULL OR slug = ''").
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the seed row; transactions, pressure points and queue
// entries for it cascade at the database level.
func (r *seedRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.Seed{}).Error
}
