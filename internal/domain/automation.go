package domain

import (
	"time"

	"github.com/google/uuid"
)

// Automation is the registry row for a logical capability. Behavior is
// resolved in-process by Name at registration time; there is no
// string-keyed function dispatch persisted in the database.
type Automation struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Enabled   bool      `gorm:"not null;default:true" json:"enabled"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Automation) TableName() string { return "automation" }

// PressurePoint accumulates structural-change pressure per
// (seed, automation) pair. PressureAmount is saturating: always within
// [0,100]. Mutated only through PressurePointRepo's atomic increment,
// reset to 0 once a queued job for the pair is successfully processed.
type PressurePoint struct {
	SeedID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"seed_id"`
	AutomationID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"automation_id"`
	PressureAmount int       `gorm:"not null;default:0" json:"pressure_amount"`
	LastUpdated    time.Time `gorm:"not null;default:now()" json:"last_updated"`
}

func (PressurePoint) TableName() string { return "pressure_point" }

// Queue entry statuses. Entries are deleted on success; "failed" is the
// terminal parking state after retries are exhausted.
const (
	QueueStatusPending = "pending"
	QueueStatusRunning = "running"
	QueueStatusFailed  = "failed"
)

// AutomationQueueEntry is transient control-plane state: created when
// pressure crosses the threshold, deleted once processed. Losing one
// delays an automation run, it never loses ledger data.
type AutomationQueueEntry struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SeedID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"seed_id"`
	AutomationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"automation_id"`
	Priority     int        `gorm:"not null;default:0" json:"priority"`
	Status       string     `gorm:"not null;default:'pending';index" json:"status"`
	Attempts     int        `gorm:"not null;default:0" json:"attempts"`
	Error        string     `json:"error,omitempty"`
	LastErrorAt  *time.Time `gorm:"index" json:"last_error_at,omitempty"`
	LockedAt     *time.Time `json:"locked_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (AutomationQueueEntry) TableName() string { return "automation_queue_entry" }
