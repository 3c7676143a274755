package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/seedbed-backend/internal/domain"
	"github.com/yungbote/seedbed-backend/internal/pkg/apperr"
)

// TagRef is a tag as seen from a projected seed.
type TagRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// CategoryRef is a category as seen from a projected seed. Path is the
// materialized path at the time the set_category transaction was
// written; the live value should be resolved against the category table
// when freshness matters.
type CategoryRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Path string    `json:"path"`
}

// Sprout is a side artifact attached to a seed (followup notes, idea
// musings). It is carried in the projection's metadata, not in core
// content.
type Sprout struct {
	Kind         string     `json:"kind"`
	Text         string     `json:"text"`
	AutomationID *uuid.UUID `json:"automation_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// SeedState is the projection of a seed's transaction ledger. It is
// derived, never persisted: produced fresh from the ordered sequence,
// safe to cache, invalidated whenever the seed's transaction set
// changes.
type SeedState struct {
	SeedID     uuid.UUID     `json:"seed_id"`
	Content    string        `json:"content"`
	Tags       []TagRef      `json:"tags"`
	Categories []CategoryRef `json:"categories"`
	Sprouts    []Sprout      `json:"sprouts"`
	// Timestamp is the created_at of the last applied transaction.
	Timestamp time.Time `json:"timestamp"`
	TxCount   int       `json:"tx_count"`
}

// Category returns the seed's single category, or nil. The projected
// Categories slice never holds more than one element: set_category
// replaces it wholesale.
func (s *SeedState) Category() *CategoryRef {
	if len(s.Categories) == 0 {
		return nil
	}
	return &s.Categories[0]
}

// HasTag reports whether the projection already carries the tag id.
// Automations use this before emitting add_tag so retries stay
// idempotent.
func (s *SeedState) HasTag(id uuid.UUID) bool {
	for _, t := range s.Tags {
		if t.ID == id {
			return true
		}
	}
	return false
}

// HasCategory reports whether the projection's category is id.
func (s *SeedState) HasCategory(id uuid.UUID) bool {
	c := s.Category()
	return c != nil && c.ID == id
}

// Project folds an ordered transaction sequence into a SeedState. The
// fold is total, deterministic and side-effect free: the same sequence
// always yields the same state, which is what makes the projection
// cacheable at all.
//
// The sequence must begin with create_seed; anything else means the
// seed was never validly created and projection fails with
// apperr.ErrInvalidSeed. An unrecognized transaction type fails loudly
// with apperr.ErrUnknownTransactionType rather than being skipped —
// silently dropping a transaction would corrupt every derived view.
func Project(txs []*types.SeedTransaction) (*SeedState, error) {
	if len(txs) == 0 {
		return nil, fmt.Errorf("empty transaction sequence: %w", apperr.ErrInvalidSeed)
	}
	first := txs[0]
	if types.NormalizeTransactionType(first.Type) != types.TxCreateSeed {
		return nil, fmt.Errorf("first transaction is %s, want create_seed: %w", first.Type, apperr.ErrInvalidSeed)
	}

	state := &SeedState{
		SeedID:     first.SeedID,
		Tags:       []TagRef{},
		Categories: []CategoryRef{},
		Sprouts:    []Sprout{},
	}
	for i, tx := range txs {
		if err := apply(state, tx, i == 0); err != nil {
			return nil, err
		}
		state.Timestamp = tx.CreatedAt
		state.TxCount++
	}
	return state, nil
}

func apply(state *SeedState, tx *types.SeedTransaction, isFirst bool) error {
	t := types.NormalizeTransactionType(tx.Type)
	switch t {
	case types.TxCreateSeed:
		if !isFirst {
			// A second create_seed mid-sequence means the ledger was
			// corrupted at write time.
			return fmt.Errorf("create_seed at position > 0 for seed %s: %w", tx.SeedID, apperr.ErrInvalidSeed)
		}
		var p types.CreateSeedPayload
		if err := decode(tx, &p); err != nil {
			return err
		}
		state.Content = p.Content
	case types.TxEditContent:
		var p types.EditContentPayload
		if err := decode(tx, &p); err != nil {
			return err
		}
		state.Content = p.Content
	case types.TxAddTag:
		var p types.AddTagPayload
		if err := decode(tx, &p); err != nil {
			return err
		}
		// Idempotent by id: replaying add_tag for a tag already present
		// must not duplicate it.
		if !state.HasTag(p.TagID) {
			state.Tags = append(state.Tags, TagRef{ID: p.TagID, Name: p.Name})
		}
	case types.TxRemoveTag:
		var p types.RemoveTagPayload
		if err := decode(tx, &p); err != nil {
			return err
		}
		for i, tag := range state.Tags {
			if tag.ID == p.TagID {
				state.Tags = append(state.Tags[:i], state.Tags[i+1:]...)
				break
			}
		}
	case types.TxSetCategory:
		var p types.SetCategoryPayload
		if err := decode(tx, &p); err != nil {
			return err
		}
		// Seeds carry at most one category: set_category replaces the
		// whole slice, last write wins.
		state.Categories = []CategoryRef{{ID: p.CategoryID, Name: p.Name, Path: p.Path}}
	case types.TxRemoveCategory:
		state.Categories = []CategoryRef{}
	case types.TxAddSprout:
		var p types.AddSproutPayload
		if err := decode(tx, &p); err != nil {
			return err
		}
		kind := p.Kind
		if kind == "" {
			kind = "sprout"
		}
		state.Sprouts = append(state.Sprouts, Sprout{
			Kind:         kind,
			Text:         p.Text,
			AutomationID: tx.AutomationID,
			CreatedAt:    tx.CreatedAt,
		})
	default:
		return fmt.Errorf("%w: %s (tx %s)", apperr.ErrUnknownTransactionType, tx.Type, tx.ID)
	}
	return nil
}

func decode(tx *types.SeedTransaction, into any) error {
	if len(tx.Payload) == 0 {
		return fmt.Errorf("tx %s (%s) has empty payload: %w", tx.ID, tx.Type, apperr.ErrMalformedPayload)
	}
	if err := json.Unmarshal(tx.Payload, into); err != nil {
		return fmt.Errorf("tx %s (%s): decode payload: %v: %w", tx.ID, tx.Type, err, apperr.ErrMalformedPayload)
	}
	return nil
}
