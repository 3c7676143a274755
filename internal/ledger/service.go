package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	seedsrepo "github.com/yungbote/seedbed-backend/internal/data/repos/seeds"
	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/pkg/apperr"
	"github.com/yungbote/seedbed-backend/internal/pkg/dbctx"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
)

// Service is the single write path into the transaction ledger. All
// appends funnel through it: payloads are shape-validated before
// anything is persisted, writes to the same seed are serialized by a
// per-seed lock, and the projection cache is invalidated on every
// successful append. Rejected transactions are never partially
// persisted.
type Service interface {
	// Append validates and persists one transaction, returning the
	// stored row and the seed's fresh projection. automationID is nil
	// for user-authored writes.
	Append(ctx context.Context, seedID uuid.UUID, txType types.TransactionType, payload datatypes.JSON, automationID *uuid.UUID) (*types.SeedTransaction, *SeedState, error)
	// AppendLocked is Append for callers that already hold the seed's
	// write lock through WithSeedLock. Calling it without the lock
	// breaks same-seed serialization.
	AppendLocked(ctx context.Context, seedID uuid.UUID, txType types.TransactionType, payload datatypes.JSON, automationID *uuid.UUID) (*types.SeedTransaction, *SeedState, error)
	// GetState returns the seed's projection, from cache when possible.
	GetState(ctx context.Context, seedID uuid.UUID) (*SeedState, error)
	// GetStates batch-projects many seeds. Seeds whose ledger does not
	// begin with a valid create_seed are excluded from the result, not
	// errors: invalid seeds are invisible in derived views.
	GetStates(ctx context.Context, seedIDs []uuid.UUID) (map[uuid.UUID]*SeedState, error)
	// WithSeedLock runs fn while holding the seed's write lock. The
	// scheduler uses it to make fetch-then-append atomic around an
	// automation run.
	WithSeedLock(seedID uuid.UUID, fn func() error) error
	Invalidate(ctx context.Context, seedID uuid.UUID)
}

type service struct {
	db    *gorm.DB
	txs   seedsrepo.TransactionRepo
	cache *ProjectionCache
	log   *logger.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*seedLock
}

type seedLock struct {
	sync.Mutex
	refs int
}

func NewService(db *gorm.DB, txs seedsrepo.TransactionRepo, cache *ProjectionCache, baseLog *logger.Logger) Service {
	return &service{
		db:    db,
		txs:   txs,
		cache: cache,
		log:   baseLog.With("service", "LedgerService"),
		locks: map[uuid.UUID]*seedLock{},
	}
}

// acquire returns the lock for a seed, creating it on first use. Locks
// are reference counted and dropped from the map when idle so the map
// does not grow with the seed table.
func (s *service) acquire(seedID uuid.UUID) *seedLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[seedID]
	if !ok {
		l = &seedLock{}
		s.locks[seedID] = l
	}
	l.refs++
	return l
}

func (s *service) release(seedID uuid.UUID, l *seedLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, seedID)
	}
}

func (s *service) WithSeedLock(seedID uuid.UUID, fn func() error) error {
	l := s.acquire(seedID)
	defer s.release(seedID, l)
	l.Lock()
	defer l.Unlock()
	return fn()
}

func (s *service) Append(ctx context.Context, seedID uuid.UUID, txType types.TransactionType, payload datatypes.JSON, automationID *uuid.UUID) (*types.SeedTransaction, *SeedState, error) {
	var stored *types.SeedTransaction
	var state *SeedState
	err := s.WithSeedLock(seedID, func() error {
		var lErr error
		stored, state, lErr = s.AppendLocked(ctx, seedID, txType, payload, automationID)
		return lErr
	})
	if err != nil {
		return nil, nil, err
	}
	return stored, state, nil
}

func (s *service) AppendLocked(ctx context.Context, seedID uuid.UUID, txType types.TransactionType, payload datatypes.JSON, automationID *uuid.UUID) (*types.SeedTransaction, *SeedState, error) {
	if seedID == uuid.Nil {
		return nil, nil, fmt.Errorf("seed id required: %w", apperr.ErrInvalidArgument)
	}
	normalized, canonical, err := types.ValidatePayload(txType, payload)
	if err != nil {
		return nil, nil, err
	}

	var stored *types.SeedTransaction
	var state *SeedState
	err = s.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: txx}
		existing, lErr := s.txs.ListBySeed(dbc, seedID)
		if lErr != nil {
			return lErr
		}
		// create_seed opens a ledger; everything else extends one.
		if len(existing) == 0 && normalized != types.TxCreateSeed {
			return fmt.Errorf("seed %s has no create_seed transaction: %w", seedID, apperr.ErrInvalidSeed)
		}
		if len(existing) > 0 && normalized == types.TxCreateSeed {
			return fmt.Errorf("seed %s already created: %w", seedID, apperr.ErrInvalidSeed)
		}

		row := &types.SeedTransaction{
			ID:           uuid.New(),
			SeedID:       seedID,
			Type:         normalized,
			Payload:      canonical,
			AutomationID: automationID,
		}
		if _, aErr := s.txs.Append(dbc, []*types.SeedTransaction{row}); aErr != nil {
			return aErr
		}

		// Project inside the transaction so the returned state reflects
		// exactly the sequence we just extended.
		full := append(existing, row)
		projected, pErr := Project(full)
		if pErr != nil {
			return pErr
		}
		stored = row
		state = projected
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.cache.Invalidate(ctx, seedID)
	s.cache.Put(ctx, state)
	s.log.Debug("transaction appended",
		"seed_id", seedID,
		"type", stored.Type,
		"automated", stored.Authored())
	return stored, state, nil
}

func (s *service) GetState(ctx context.Context, seedID uuid.UUID) (*SeedState, error) {
	if seedID == uuid.Nil {
		return nil, fmt.Errorf("seed id required: %w", apperr.ErrInvalidArgument)
	}
	if cached := s.cache.Get(ctx, seedID); cached != nil {
		return cached, nil
	}
	rows, err := s.txs.ListBySeed(dbctx.Background(ctx), seedID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("seed %s: %w", seedID, apperr.ErrNotFound)
	}
	state, err := Project(rows)
	if err != nil {
		return nil, err
	}
	s.cache.Put(ctx, state)
	return state, nil
}

func (s *service) GetStates(ctx context.Context, seedIDs []uuid.UUID) (map[uuid.UUID]*SeedState, error) {
	out := make(map[uuid.UUID]*SeedState, len(seedIDs))
	if len(seedIDs) == 0 {
		return out, nil
	}
	bySeed, err := s.txs.ListBySeeds(dbctx.Background(ctx), seedIDs)
	if err != nil {
		return nil, err
	}
	for seedID, rows := range bySeed {
		state, pErr := Project(rows)
		if pErr != nil {
			// Invalid seeds are excluded from derived views; they stay
			// in the table until cleanup removes them.
			s.log.Warn("excluding seed from batch projection", "seed_id", seedID, "error", pErr)
			continue
		}
		out[seedID] = state
	}
	return out, nil
}

func (s *service) Invalidate(ctx context.Context, seedID uuid.UUID) {
	s.cache.Invalidate(ctx, seedID)
}
