package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/seedbed-backend/internal/pkg/apperr"
)

// Typed transaction payloads. The ledger store itself never interprets
// these; shape validation happens once, in the ledger service, before a
// transaction is persisted.

type CreateSeedPayload struct {
	Content string `json:"content"`
}

type EditContentPayload struct {
	Content string `json:"content"`
}

type AddTagPayload struct {
	TagID uuid.UUID `json:"tag_id"`
	Name  string    `json:"name"`
}

type RemoveTagPayload struct {
	TagID uuid.UUID `json:"tag_id"`
}

type SetCategoryPayload struct {
	CategoryID uuid.UUID `json:"category_id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
}

type RemoveCategoryPayload struct{}

type AddSproutPayload struct {
	Kind string `json:"kind,omitempty"`
	Text string `json:"text"`
}

// NormalizeTransactionType folds legacy aliases into their current
// form. The source data model evolved followup/idea_musing into the
// unified sprout concept; new writes always use add_sprout.
func NormalizeTransactionType(t TransactionType) TransactionType {
	if t == TxAddFollowup {
		return TxAddSprout
	}
	return t
}

// ValidatePayload checks raw against the shape required for t. It
// returns the normalized type and a canonical payload encoding, or an
// error wrapping apperr.ErrMalformedPayload.
func ValidatePayload(t TransactionType, raw datatypes.JSON) (TransactionType, datatypes.JSON, error) {
	t = NormalizeTransactionType(t)
	switch t {
	case TxCreateSeed:
		var p CreateSeedPayload
		if err := decodeStrict(raw, &p); err != nil {
			return t, nil, err
		}
		if strings.TrimSpace(p.Content) == "" {
			return t, nil, fmt.Errorf("create_seed requires non-empty content: %w", apperr.ErrMalformedPayload)
		}
		return t, mustJSON(p), nil
	case TxEditContent:
		var p EditContentPayload
		if err := decodeStrict(raw, &p); err != nil {
			return t, nil, err
		}
		return t, mustJSON(p), nil
	case TxAddTag:
		var p AddTagPayload
		if err := decodeStrict(raw, &p); err != nil {
			return t, nil, err
		}
		if p.TagID == uuid.Nil || strings.TrimSpace(p.Name) == "" {
			return t, nil, fmt.Errorf("add_tag requires tag_id and name: %w", apperr.ErrMalformedPayload)
		}
		return t, mustJSON(p), nil
	case TxRemoveTag:
		var p RemoveTagPayload
		if err := decodeStrict(raw, &p); err != nil {
			return t, nil, err
		}
		if p.TagID == uuid.Nil {
			return t, nil, fmt.Errorf("remove_tag requires tag_id: %w", apperr.ErrMalformedPayload)
		}
		return t, mustJSON(p), nil
	case TxSetCategory:
		var p SetCategoryPayload
		if err := decodeStrict(raw, &p); err != nil {
			return t, nil, err
		}
		if p.CategoryID == uuid.Nil {
			return t, nil, fmt.Errorf("set_category requires category_id: %w", apperr.ErrMalformedPayload)
		}
		return t, mustJSON(p), nil
	case TxRemoveCategory:
		return t, datatypes.JSON([]byte("{}")), nil
	case TxAddSprout:
		var p AddSproutPayload
		if err := decodeStrict(raw, &p); err != nil {
			return t, nil, err
		}
		if strings.TrimSpace(p.Text) == "" {
			return t, nil, fmt.Errorf("add_sprout requires text: %w", apperr.ErrMalformedPayload)
		}
		if p.Kind == "" {
			p.Kind = "sprout"
		}
		return t, mustJSON(p), nil
	default:
		return t, nil, fmt.Errorf("%w: %s", apperr.ErrUnknownTransactionType, t)
	}
}

func decodeStrict(raw datatypes.JSON, into any) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty payload: %w", apperr.ErrMalformedPayload)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, apperr.ErrMalformedPayload)
	}
	return nil
}

func mustJSON(v any) datatypes.JSON {
	b, _ := json.Marshal(v)
	return datatypes.JSON(b)
}
