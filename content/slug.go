package content

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// MaxSlugLength bounds derived slugs.
const MaxSlugLength = 80

// DeriveSlug converts a title to a URL-safe slug: lowercase ASCII letters and
// digits separated by single hyphens. Applying it to its own output is a
// no-op. A title with no letters or digits yields "".
func DeriveSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if len(out) > MaxSlugLength {
		out = strings.TrimRight(out[:MaxSlugLength], "-")
	}
	return out
}

// SlugOrFallback derives a slug from s, or returns a unique "untitled-"
// identifier when s has nothing to derive one from.
func SlugOrFallback(s string) string {
	if slug := DeriveSlug(s); slug != "" {
		return slug
	}
	return "untitled-" + strings.ToLower(ulid.Make().String())
}

// ValidSlug reports whether s is already in derived form.
func ValidSlug(s string) bool {
	return s != "" && DeriveSlug(s) == s
}
