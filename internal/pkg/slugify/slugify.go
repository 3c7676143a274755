// Package slugify derives human-readable, collision-resolved seed
// slugs. A slug is a denormalized cache computed once from create_seed
// content plus an id-derived disambiguation prefix; it is outside the
// append-only ledger invariant and safe to backfill or recompute.
package slugify

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const maxWords = 8

// ForSeed builds the globally unique slug for a seed: the first hex
// group of the seed id, a dash, then a slugged prefix of the content.
// The id prefix makes collisions across identical content impossible
// without a retry loop.
func ForSeed(id uuid.UUID, content string) string {
	prefix := strings.SplitN(id.String(), "-", 2)[0]
	base := FromContent(content)
	if base == "" {
		return prefix
	}
	return prefix + "-" + base
}

// FromContent lowercases, strips non-alphanumerics and joins the first
// few words with dashes.
func FromContent(content string) string {
	var words []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			words = append(words, b.String())
			b.Reset()
		}
	}
	for _, r := range content {
		if len(words) >= maxWords {
			break
		}
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			flush()
		}
	}
	flush()
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, "-")
}
