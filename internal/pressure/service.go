package pressure

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/seedbed-backend/internal/automations"
	automationrepo "github.com/yungbote/seedbed-backend/internal/data/repos/automation"
	seedsrepo "github.com/yungbote/seedbed-backend/internal/data/repos/seeds"
	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/ledger"
	"github.com/yungbote/seedbed-backend/internal/pkg/dbctx"
	"github.com/yungbote/seedbed-backend/internal/platform/envutil"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
)

// Service reacts to structural changes. For every seed whose projection
// references the affected entity it asks each registered automation to
// score the change, adds the score to the pair's pressure accumulator,
// and enqueues a job once the accumulated amount crosses the threshold.
//
// Queue priority is the accumulated pressure at enqueue time, so the
// seeds hit hardest by structural churn run first.
type Service interface {
	Apply(ctx context.Context, change *types.StructuralChange) error
}

type service struct {
	ledger    ledger.Service
	seeds     seedsrepo.SeedRepo
	points    automationrepo.PressurePointRepo
	queue     automationrepo.QueueRepo
	rows      automationrepo.AutomationRepo
	registry  *automations.Registry
	threshold int
	fanout    int
	log       *logger.Logger
}

func NewService(
	ledgerSvc ledger.Service,
	seeds seedsrepo.SeedRepo,
	points automationrepo.PressurePointRepo,
	queue automationrepo.QueueRepo,
	rows automationrepo.AutomationRepo,
	registry *automations.Registry,
	cfg automations.Config,
	logg *logger.Logger,
) Service {
	return &service{
		ledger:    ledgerSvc,
		seeds:     seeds,
		points:    points,
		queue:     queue,
		rows:      rows,
		registry:  registry,
		threshold: cfg.Threshold,
		fanout:    envutil.GetEnvAsInt("PRESSURE_FANOUT_CONCURRENCY", 8, logg),
		log:       logg.With("service", "PressureService"),
	}
}

func (s *service) Apply(ctx context.Context, change *types.StructuralChange) error {
	if change == nil || change.UserID == uuid.Nil {
		return nil
	}

	seeds, err := s.seeds.ListByUser(dbctx.Background(ctx), change.UserID)
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		return nil
	}
	seedIDs := make([]uuid.UUID, len(seeds))
	seedsByID := make(map[uuid.UUID]*types.Seed, len(seeds))
	for i, sd := range seeds {
		seedIDs[i] = sd.ID
		seedsByID[sd.ID] = sd
	}

	states, err := s.ledger.GetStates(ctx, seedIDs)
	if err != nil {
		return err
	}

	var affected []*ledger.SeedState
	for _, state := range states {
		if s.affects(state, change) {
			affected = append(affected, state)
		}
	}
	if len(affected) == 0 {
		return nil
	}
	s.log.Debug("structural change fan-out",
		"domain", change.Domain,
		"type", change.Type,
		"affected_seeds", len(affected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanout)
	for _, state := range affected {
		state := state
		g.Go(func() error {
			return s.score(gctx, state, change)
		})
	}
	return g.Wait()
}

// affects decides whether a seed's projection references the changed
// entity. Category matches are transitive: a change to an ancestor path
// affects every seed filed under it. Additive category changes also
// reach uncategorized seeds, which now have a new filing candidate; the
// per-automation scoring decides whether that amounts to any pressure.
func (s *service) affects(state *ledger.SeedState, change *types.StructuralChange) bool {
	switch change.Domain {
	case types.ChangeDomainTag:
		return state.HasTag(change.TagID)
	case types.ChangeDomainCategory:
		cat := state.Category()
		if cat == nil {
			return change.Type == types.ChangeAddChild
		}
		if cat.ID == change.CategoryID {
			return true
		}
		if change.OldPath != "" && types.IsAncestorPath(change.OldPath, cat.Path) {
			return true
		}
		return change.NewPath != "" && types.IsAncestorPath(change.NewPath, cat.Path)
	default:
		return false
	}
}

func (s *service) score(ctx context.Context, state *ledger.SeedState, change *types.StructuralChange) error {
	dbc := dbctx.Background(ctx)
	for _, a := range s.registry.All() {
		delta := a.CalculatePressure(state, change)
		if delta <= 0 {
			continue
		}
		automationID, enabled, err := s.resolve(dbc, a.Name())
		if err != nil {
			return err
		}
		if !enabled {
			continue
		}
		amount, err := s.points.AddPressure(dbc, state.SeedID, automationID, delta)
		if err != nil {
			return err
		}
		if amount < s.threshold {
			continue
		}
		_, inserted, err := s.queue.EnqueueIfAbsent(dbc, state.SeedID, automationID, amount)
		if err != nil {
			return err
		}
		if inserted {
			s.log.Info("automation enqueued",
				"seed_id", state.SeedID,
				"automation", a.Name(),
				"pressure", amount)
		}
	}
	return nil
}

// resolve maps an automation name to its registry row. Enabled is read
// on every change so operator toggles take effect without a restart.
func (s *service) resolve(dbc dbctx.Context, name string) (uuid.UUID, bool, error) {
	row, err := s.rows.GetByName(dbc, name)
	if err != nil {
		return uuid.Nil, false, err
	}
	if row == nil {
		row, err = s.rows.UpsertByName(dbc, name)
		if err != nil || row == nil {
			return uuid.Nil, false, err
		}
	}
	return row.ID, row.Enabled, nil
}
