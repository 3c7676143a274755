package jsonx

import (
	"reflect"
	"testing"
)

type tagSuggestion struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

func TestExtractArrayPlain(t *testing.T) {
	var out []tagSuggestion
	if err := ExtractArray(`[{"name":"rust","confidence":0.9}]`, &out); err != nil {
		t.Fatalf("ExtractArray: %v", err)
	}
	if len(out) != 1 || out[0].Name != "rust" {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestExtractArrayFenced(t *testing.T) {
	text := "Here are the tags:\n```json\n[{\"name\":\"go\",\"confidence\":0.8},{\"name\":\"db\",\"confidence\":0.7}]\n```\nLet me know."
	var out []tagSuggestion
	if err := ExtractArray(text, &out); err != nil {
		t.Fatalf("ExtractArray: %v", err)
	}
	if len(out) != 2 || out[1].Name != "db" {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestExtractArrayTrailingProse(t *testing.T) {
	text := `Reasoning: the note mentions databases. ["postgres","sql"] hope that helps`
	got, err := ExtractStrings(text)
	if err != nil {
		t.Fatalf("ExtractStrings: %v", err)
	}
	want := []string{"postgres", "sql"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestExtractArrayTruncated(t *testing.T) {
	// finish_reason=length style cutoff mid-element
	text := `[{"name":"rust","confidence":0.9},{"name":"sys`
	var out []tagSuggestion
	if err := ExtractArray(text, &out); err != nil {
		t.Fatalf("ExtractArray: %v", err)
	}
	if len(out) != 1 || out[0].Name != "rust" {
		t.Fatalf("expected the complete element only, got %+v", out)
	}
}

func TestExtractArrayTruncatedInsideFence(t *testing.T) {
	text := "```json\n[\"alpha\",\"beta\",\"ga"
	got, err := ExtractStrings(text)
	if err != nil {
		t.Fatalf("ExtractStrings: %v", err)
	}
	want := []string{"alpha", "beta"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestExtractArrayBracketInString(t *testing.T) {
	text := `["a]b","c"]`
	got, err := ExtractStrings(text)
	if err != nil {
		t.Fatalf("ExtractStrings: %v", err)
	}
	want := []string{"a]b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestExtractArrayNoJSON(t *testing.T) {
	var out []string
	if err := ExtractArray("I could not produce any tags for this note.", &out); err == nil {
		t.Fatalf("expected error for prose-only input")
	}
}

func TestExtractArrayEmpty(t *testing.T) {
	var out []string
	if err := ExtractArray("", &out); err == nil {
		t.Fatalf("expected error for empty input")
	}
}
