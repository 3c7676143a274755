package domain

import "github.com/google/uuid"

// ChangeDomain distinguishes category-tree changes from tag changes.
type ChangeDomain string

const (
	ChangeDomainCategory ChangeDomain = "category"
	ChangeDomainTag      ChangeDomain = "tag"
)

// ChangeType enumerates the structural mutations that feed the pressure
// model.
type ChangeType string

const (
	ChangeRename   ChangeType = "rename"
	ChangeMove     ChangeType = "move"
	ChangeRemove   ChangeType = "remove"
	ChangeAddChild ChangeType = "add_child"
)

// StructuralChange is emitted whenever a category or tag mutation
// occurs. The pressure model fans it out to every seed whose projection
// references the affected entity, directly or via a path-prefix match
// on an ancestor category.
type StructuralChange struct {
	Domain      ChangeDomain `json:"domain"`
	Type        ChangeType   `json:"type"`
	UserID      uuid.UUID    `json:"user_id"`
	CategoryID  uuid.UUID    `json:"category_id,omitempty"`
	TagID       uuid.UUID    `json:"tag_id,omitempty"`
	OldPath     string       `json:"old_path,omitempty"`
	NewPath     string       `json:"new_path,omitempty"`
	OldParentID *uuid.UUID   `json:"old_parent_id,omitempty"`
	NewParentID *uuid.UUID   `json:"new_parent_id,omitempty"`
}
