package automation

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/pkg/dbctx"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
)

type AutomationRepo interface {
	// UpsertByName makes sure a registry row exists for the named
	// automation and returns it. Registration at process start is the
	// only writer.
	UpsertByName(dbc dbctx.Context, name string) (*types.Automation, error)
	GetByName(dbc dbctx.Context, name string) (*types.Automation, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Automation, error)
	ListEnabled(dbc dbctx.Context) ([]*types.Automation, error)
	SetEnabled(dbc dbctx.Context, id uuid.UUID, enabled bool) error
}

type automationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAutomationRepo(db *gorm.DB, baseLog *logger.Logger) AutomationRepo {
	return &automationRepo{
		db:  db,
		log: baseLog.With("repo", "AutomationRepo"),
	}
}

func (r *automationRepo) UpsertByName(dbc dbctx.Context, name string) (*types.Automation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	if existing, err := r.GetByName(dbc, name); err != nil || existing != nil {
		return existing, err
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	row := &types.Automation{ID: uuid.New(), Name: name, Enabled: true}
	if err := transaction.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		// Lost a race on the unique name index; re-read.
		if existing, gErr := r.GetByName(dbc, name); gErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}
	return row, nil
}

func (r *automationRepo) GetByName(dbc dbctx.Context, name string) (*types.Automation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if name == "" {
		return nil, nil
	}
	var row types.Automation
	err := transaction.WithContext(dbc.Ctx).
		Where("name = ?", name).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *automationRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Automation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Automation
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

func (r *automationRepo) ListEnabled(dbc dbctx.Context) ([]*types.Automation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Automation
	if err := transaction.WithContext(dbc.Ctx).
		Where("enabled = ?", true).
		Order("name ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *automationRepo) SetEnabled(dbc dbctx.Context, id uuid.UUID, enabled bool) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Automation{}).
		Where("id = ?", id).
		Update("enabled", enabled).Error
}
