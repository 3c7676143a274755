package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yungbote/seedbed-backend/internal/pkg/jsonx"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
)

func testClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", srv.URL)
	t.Setenv("OPENAI_MAX_RETRIES", "0")

	logg, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	c, err := NewClient(logg)
	if err != nil {
		t.Fatalf("init client: %v", err)
	}
	return c
}

func TestGenerateTextReturnsContent(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"[\"rust\"]"},"finish_reason":"stop"}]}`))
	})

	got, err := c.GenerateText(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if got != `["rust"]` {
		t.Fatalf("got %q, want content verbatim", got)
	}
}

func TestGenerateTextFallsBackToReasoning(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"","reasoning":"The tags are [\"rust\",\"go\"]"},"finish_reason":"stop"}]}`))
	})

	got, err := c.GenerateText(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if got == "" {
		t.Fatalf("reasoning-only response must not yield empty text")
	}

	// The downstream extractor must recover the array from the prose.
	tags, err := jsonx.ExtractStrings(got)
	if err != nil {
		t.Fatalf("extract from reasoning text: %v", err)
	}
	if len(tags) != 2 || tags[0] != "rust" || tags[1] != "go" {
		t.Fatalf("extracted %v, want [rust go]", tags)
	}
}

func TestGenerateTextPrefersContentOverReasoning(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"[\"answer\"]","reasoning":"irrelevant deliberation"},"finish_reason":"stop"}]}`))
	})

	got, err := c.GenerateText(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if got != `["answer"]` {
		t.Fatalf("got %q, want content when both channels are present", got)
	}
}

func TestGenerateTextNoChoices(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	if _, err := c.GenerateText(context.Background(), "sys", "user"); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}
