package seeds

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/pkg/dbctx"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
)

// TransactionRepo is the append-only ledger store. It exposes no update
// path: a stored transaction's type, payload and created_at can never
// change. Payload semantics are validated upstream in the ledger
// service; this store does not interpret them.
type TransactionRepo interface {
	Append(dbc dbctx.Context, txs []*types.SeedTransaction) ([]*types.SeedTransaction, error)
	ListBySeed(dbc dbctx.Context, seedID uuid.UUID) ([]*types.SeedTransaction, error)
	ListBySeeds(dbc dbctx.Context, seedIDs []uuid.UUID) (map[uuid.UUID][]*types.SeedTransaction, error)
	CountBySeed(dbc dbctx.Context, seedID uuid.UUID) (int64, error)
}

type transactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTransactionRepo(db *gorm.DB, baseLog *logger.Logger) TransactionRepo {
	return &transactionRepo{
		db:  db,
		log: baseLog.With("repo", "TransactionRepo"),
	}
}

func (r *transactionRepo) Append(dbc dbctx.Context, txs []*types.SeedTransaction) ([]*types.SeedTransaction, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(txs) == 0 {
		return []*types.SeedTransaction{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

// ListBySeed returns the seed's ledger in replay order: created_at ASC,
// ties broken by id (insertion order for same-timestamp writes).
func (r *transactionRepo) ListBySeed(dbc dbctx.Context, seedID uuid.UUID) ([]*types.SeedTransaction, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.SeedTransaction
	if seedID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("seed_id = ?", seedID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *transactionRepo) ListBySeeds(dbc dbctx.Context, seedIDs []uuid.UUID) (map[uuid.UUID][]*types.SeedTransaction, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := make(map[uuid.UUID][]*types.SeedTransaction, len(seedIDs))
	if len(seedIDs) == 0 {
		return out, nil
	}
	var rows []*types.SeedTransaction
	if err := transaction.WithContext(dbc.Ctx).
		Where("seed_id IN ?", seedIDs).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.SeedID] = append(out[row.SeedID], row)
	}
	return out, nil
}

func (r *transactionRepo) CountBySeed(dbc dbctx.Context, seedID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if seedID == uuid.Nil {
		return 0, nil
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.SeedTransaction{}).
		Where("seed_id = ?", seedID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
