package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/seedbed-backend/internal/pkg/apperr"
)

func TestValidatePayloadCreateSeed(t *testing.T) {
	typ, canon, err := ValidatePayload(TxCreateSeed, datatypes.JSON(`{"content":"Test note about #rust"}`))
	if err != nil {
		t.Fatalf("ValidatePayload: %v", err)
	}
	if typ != TxCreateSeed {
		t.Fatalf("type = %s, want %s", typ, TxCreateSeed)
	}
	if !strings.Contains(string(canon), "Test note about #rust") {
		t.Fatalf("canonical payload lost content: %s", canon)
	}
}

func TestValidatePayloadRejectsBlankContent(t *testing.T) {
	_, _, err := ValidatePayload(TxCreateSeed, datatypes.JSON(`{"content":"   "}`))
	if !errors.Is(err, apperr.ErrMalformedPayload) {
		t.Fatalf("err = %v, want ErrMalformedPayload", err)
	}
}

func TestValidatePayloadNormalizesFollowup(t *testing.T) {
	typ, canon, err := ValidatePayload(TxAddFollowup, datatypes.JSON(`{"text":"compare with zig"}`))
	if err != nil {
		t.Fatalf("ValidatePayload: %v", err)
	}
	if typ != TxAddSprout {
		t.Fatalf("type = %s, want %s", typ, TxAddSprout)
	}
	if !strings.Contains(string(canon), `"kind":"sprout"`) {
		t.Fatalf("default kind missing: %s", canon)
	}
}

func TestValidatePayloadAddTagRequiresIDAndName(t *testing.T) {
	_, _, err := ValidatePayload(TxAddTag, datatypes.JSON(`{"name":"rust"}`))
	if !errors.Is(err, apperr.ErrMalformedPayload) {
		t.Fatalf("missing tag_id: err = %v, want ErrMalformedPayload", err)
	}
	id := uuid.New()
	_, _, err = ValidatePayload(TxAddTag, datatypes.JSON(`{"tag_id":"`+id.String()+`","name":"rust"}`))
	if err != nil {
		t.Fatalf("valid add_tag rejected: %v", err)
	}
}

func TestValidatePayloadRemoveCategoryIgnoresBody(t *testing.T) {
	_, canon, err := ValidatePayload(TxRemoveCategory, nil)
	if err != nil {
		t.Fatalf("ValidatePayload: %v", err)
	}
	if string(canon) != "{}" {
		t.Fatalf("canonical payload = %s, want {}", canon)
	}
}

func TestValidatePayloadUnknownType(t *testing.T) {
	_, _, err := ValidatePayload(TransactionType("mystery_op"), datatypes.JSON(`{}`))
	if !errors.Is(err, apperr.ErrUnknownTransactionType) {
		t.Fatalf("err = %v, want ErrUnknownTransactionType", err)
	}
}

func TestValidatePayloadEmptyBody(t *testing.T) {
	_, _, err := ValidatePayload(TxEditContent, nil)
	if !errors.Is(err, apperr.ErrMalformedPayload) {
		t.Fatalf("err = %v, want ErrMalformedPayload", err)
	}
}
