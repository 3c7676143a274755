package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Seed is the identity record for a note. Content and structural
// attributes are never stored on this row; they exist only as the
// projection of the seed's transaction ledger.
type Seed struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Slug      string    `gorm:"uniqueIndex" json:"slug"`
	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`

	Transactions []SeedTransaction `gorm:"foreignKey:SeedID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Seed) TableName() string { return "seed" }

// TransactionType enumerates the ledger event kinds.
type TransactionType string

const (
	TxCreateSeed     TransactionType = "create_seed"
	TxEditContent    TransactionType = "edit_content"
	TxAddTag         TransactionType = "add_tag"
	TxRemoveTag      TransactionType = "remove_tag"
	TxSetCategory    TransactionType = "set_category"
	TxRemoveCategory TransactionType = "remove_category"
	TxAddSprout      TransactionType = "add_sprout"

	// Legacy alias for TxAddSprout, accepted on input and normalized
	// before persistence. Old rows may still carry it.
	TxAddFollowup TransactionType = "add_followup"
)

// SeedTransaction is an immutable ledger entry. There is deliberately no
// update path for these rows: once appended, type, payload and
// created_at never change. Replay order is created_at ASC with id as the
// tie-break (insertion order for same-timestamp writes).
type SeedTransaction struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SeedID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_seed_transaction_replay,priority:1" json:"seed_id"`
	Type         TransactionType `gorm:"column:type;not null;index" json:"type"`
	Payload      datatypes.JSON  `gorm:"column:payload;type:jsonb;not null" json:"payload"`
	AutomationID *uuid.UUID      `gorm:"type:uuid;column:automation_id;index" json:"automation_id,omitempty"`
	CreatedAt    time.Time       `gorm:"not null;default:now();index:idx_seed_transaction_replay,priority:2" json:"created_at"`
}

func (SeedTransaction) TableName() string { return "seed_transaction" }

// Authored reports whether the transaction was written by an automation
// rather than a user action. Automation-authored transactions are
// suppressed as structural-change sources so the feedback loop cannot
// retrigger itself.
func (t *SeedTransaction) Authored() bool {
	return t.AutomationID != nil && *t.AutomationID != uuid.Nil
}
