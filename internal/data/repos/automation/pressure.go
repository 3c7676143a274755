package automation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/pkg/dbctx"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
)

// PressurePointRepo owns the (seed, automation) pressure accumulators.
// AddPressure is an atomic SQL increment against the stored value, not
// a read-modify-write, so concurrent category-change bursts cannot lose
// updates.
type PressurePointRepo interface {
	// AddPressure adds delta (clamped to [0,100]) to the pair's
	// accumulator, saturating at 100, and returns the resulting amount.
	AddPressure(dbc dbctx.Context, seedID, automationID uuid.UUID, delta int) (int, error)
	Get(dbc dbctx.Context, seedID, automationID uuid.UUID) (*types.PressurePoint, error)
	ListBySeeds(dbc dbctx.Context, seedIDs []uuid.UUID) ([]*types.PressurePoint, error)
	Reset(dbc dbctx.Context, seedID, automationID uuid.UUID) error
}

type pressurePointRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPressurePointRepo(db *gorm.DB, baseLog *logger.Logger) PressurePointRepo {
	return &pressurePointRepo{
		db:  db,
		log: baseLog.With("repo", "PressurePointRepo"),
	}
}

func (r *pressurePointRepo) AddPressure(dbc dbctx.Context, seedID, automationID uuid.UUID, delta int) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if seedID == uuid.Nil || automationID == uuid.Nil {
		return 0, nil
	}
	if delta < 0 {
		delta = 0
	}
	if delta > 100 {
		delta = 100
	}
	// CASE keeps the saturating add portable between Postgres and the
	// sqlite dev driver (LEAST is Postgres-only).
	var amount int
	err := transaction.WithContext(dbc.Ctx).Raw(`
		INSERT INTO pressure_point (seed_id, automation_id, pressure_amount, last_updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (seed_id, automation_id) DO UPDATE SET
			pressure_amount = CASE
				WHEN pressure_point.pressure_amount + excluded.pressure_amount > 100 THEN 100
				ELSE pressure_point.pressure_amount + excluded.pressure_amount
			END,
			last_updated = excluded.last_updated
		RETURNING pressure_amount
	`, seedID, automationID, delta, time.Now()).Scan(&amount).Error
	if err != nil {
		return 0, err
	}
	return amount, nil
}

func (r *pressurePointRepo) Get(dbc dbctx.Context, seedID, automationID uuid.UUID) (*types.PressurePoint, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if seedID == uuid.Nil || automationID == uuid.Nil {
		return nil, nil
	}
	var pp types.PressurePoint
	err := transaction.WithContext(dbc.Ctx).
		Where("seed_id = ? AND automation_id = ?", seedID, automationID).
		Limit(1).
		Find(&pp).Error
	if err != nil {
		return nil, err
	}
	if pp.SeedID == uuid.Nil {
		return nil, nil
	}
	return &pp, nil
}

func (r *pressurePointRepo) ListBySeeds(dbc dbctx.Context, seedIDs []uuid.UUID) ([]*types.PressurePoint, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.PressurePoint
	if len(seedIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("seed_id IN ?", seedIDs).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *pressurePointRepo) Reset(dbc dbctx.Context, seedID, automationID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if seedID == uuid.Nil || automationID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.PressurePoint{}).
		Where("seed_id = ? AND automation_id = ?", seedID, automationID).
		Updates(map[string]interface{}{
			"pressure_amount": 0,
			"last_updated":    time.Now(),
		}).Error
}
