package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is a hierarchical entity with a materialized path. Path
// encodes the full ancestor chain (e.g. /work/projects) and is unique
// per user. Deleting a category cascades to descendants by path prefix.
type Category struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_category_user_path,priority:1" json:"user_id"`
	ParentID  *uuid.UUID `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Name      string     `gorm:"not null" json:"name"`
	Path      string     `gorm:"not null;uniqueIndex:uk_category_user_path,priority:2" json:"path"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Category) TableName() string { return "category" }

// IsAncestorPath reports whether p is the path of an ancestor of (or
// equal to) other, by path-prefix match on segment boundaries.
func IsAncestorPath(p, other string) bool {
	if p == "" || other == "" {
		return false
	}
	if p == other {
		return true
	}
	return strings.HasPrefix(other, strings.TrimRight(p, "/")+"/")
}

type Tag struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Color     *string   `json:"color,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Tag) TableName() string { return "tag" }
