package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	automationrepo "github.com/yungbote/seedbed-backend/internal/data/repos/automation"
	seedsrepo "github.com/yungbote/seedbed-backend/internal/data/repos/seeds"
	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/pkg/apperr"
	"github.com/yungbote/seedbed-backend/internal/pkg/dbctx"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
)

// OpsService exposes the control plane for operators and curious users:
// queue state, pressure accumulators and the automation registry.
// Everything here is read-mostly; the one mutation is the enable
// toggle.
type OpsService interface {
	ListQueue(ctx context.Context, userID uuid.UUID) ([]*types.AutomationQueueEntry, error)
	ListFailed(ctx context.Context, limit int) ([]*types.AutomationQueueEntry, error)
	ListPressure(ctx context.Context, userID uuid.UUID) ([]*types.PressurePoint, error)
	ListAutomations(ctx context.Context) ([]*types.Automation, error)
	SetAutomationEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
}

type opsService struct {
	log    *logger.Logger
	seeds  seedsrepo.SeedRepo
	queue  automationrepo.QueueRepo
	points automationrepo.PressurePointRepo
	rows   automationrepo.AutomationRepo
}

func NewOpsService(
	baseLog *logger.Logger,
	seeds seedsrepo.SeedRepo,
	queue automationrepo.QueueRepo,
	points automationrepo.PressurePointRepo,
	rows automationrepo.AutomationRepo,
) OpsService {
	return &opsService{
		log:    baseLog.With("service", "OpsService"),
		seeds:  seeds,
		queue:  queue,
		points: points,
		rows:   rows,
	}
}

func (s *opsService) ListQueue(ctx context.Context, userID uuid.UUID) ([]*types.AutomationQueueEntry, error) {
	ids, err := s.userSeedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.queue.ListBySeeds(dbctx.Background(ctx), ids)
}

func (s *opsService) ListFailed(ctx context.Context, limit int) ([]*types.AutomationQueueEntry, error) {
	return s.queue.ListByStatus(dbctx.Background(ctx), types.QueueStatusFailed, limit)
}

func (s *opsService) ListPressure(ctx context.Context, userID uuid.UUID) ([]*types.PressurePoint, error) {
	ids, err := s.userSeedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.points.ListBySeeds(dbctx.Background(ctx), ids)
}

func (s *opsService) ListAutomations(ctx context.Context) ([]*types.Automation, error) {
	return s.rows.ListEnabled(dbctx.Background(ctx))
}

func (s *opsService) SetAutomationEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	if id == uuid.Nil {
		return fmt.Errorf("automation id required: %w", apperr.ErrInvalidArgument)
	}
	s.log.Info("automation toggled", "automation_id", id, "enabled", enabled)
	return s.rows.SetEnabled(dbctx.Background(ctx), id, enabled)
}

func (s *opsService) userSeedIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated: %w", apperr.ErrUnauthorized)
	}
	seeds, err := s.seeds.ListByUser(dbctx.Background(ctx), userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(seeds))
	for i, sd := range seeds {
		ids[i] = sd.ID
	}
	return ids, nil
}
