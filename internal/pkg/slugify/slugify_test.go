package slugify

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestFromContent(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Test note about #rust", "test-note-about-rust"},
		{"  Hello,   World!  ", "hello-world"},
		{"ALL CAPS", "all-caps"},
		{"###", ""},
		{"one two three four five six seven eight nine ten", "one-two-three-four-five-six-seven-eight"},
	}
	for _, c := range cases {
		if got := FromContent(c.in); got != c.want {
			t.Fatalf("FromContent(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestForSeedDisambiguates(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	sa := ForSeed(a, "same content")
	sb := ForSeed(b, "same content")
	if sa == sb {
		t.Fatalf("slugs for distinct seeds with identical content must differ: %q", sa)
	}
	if !strings.HasSuffix(sa, "-same-content") {
		t.Fatalf("slug %q missing content part", sa)
	}
	prefix := strings.SplitN(a.String(), "-", 2)[0]
	if !strings.HasPrefix(sa, prefix+"-") {
		t.Fatalf("slug %q missing id prefix %q", sa, prefix)
	}
}

func TestForSeedEmptyContentFallsBackToPrefix(t *testing.T) {
	id := uuid.New()
	got := ForSeed(id, "!!!")
	want := strings.SplitN(id.String(), "-", 2)[0]
	if got != want {
		t.Fatalf("ForSeed = %q, want bare prefix %q", got, want)
	}
}
