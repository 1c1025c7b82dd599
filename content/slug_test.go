package content

import (
	"strings"
	"testing"
)

func TestDeriveSlug(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"My First Post", "my-first-post"},
		{"  Hello, World!  ", "hello-world"},
		{"Go 1.24 -- release notes", "go-1-24-release-notes"},
		{"already-a-slug", "already-a-slug"},
		{"Café Crème", "caf-cr-me"},
		{"!!!", ""},
		{"", ""},
		{"---a---b---", "a-b"},
	}
	for _, tt := range tests {
		if got := DeriveSlug(tt.input); got != tt.want {
			t.Errorf("DeriveSlug(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDeriveSlugIsIdempotent(t *testing.T) {
	inputs := []string{
		"My First Post",
		"Trailing symbols ???",
		"ÜNICODE ünïcödé 123",
		strings.Repeat("word ", 40),
		strings.Repeat("a", 79) + " b",
		"x-",
	}
	for _, in := range inputs {
		once := DeriveSlug(in)
		if twice := DeriveSlug(once); twice != once {
			t.Errorf("DeriveSlug not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestDeriveSlugTruncates(t *testing.T) {
	got := DeriveSlug(strings.Repeat("a", 79) + " bcd")
	if len(got) > MaxSlugLength {
		t.Fatalf("len = %d, want <= %d", len(got), MaxSlugLength)
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("truncated slug %q ends with a hyphen", got)
	}
	if got != strings.Repeat("a", 79) {
		t.Errorf("got %q", got)
	}
}

func TestSlugOrFallback(t *testing.T) {
	if got := SlugOrFallback("Hello"); got != "hello" {
		t.Errorf("SlugOrFallback(Hello) = %q", got)
	}
	a := SlugOrFallback("???")
	b := SlugOrFallback("???")
	if !strings.HasPrefix(a, "untitled-") {
		t.Errorf("fallback %q lacks untitled- prefix", a)
	}
	if a == b {
		t.Errorf("fallback slugs should be unique, got %q twice", a)
	}
	if !ValidSlug(a) {
		t.Errorf("fallback %q is not a valid slug", a)
	}
}

func TestValidSlug(t *testing.T) {
	if !ValidSlug("my-post") {
		t.Error("my-post should be valid")
	}
	for _, s := range []string{"", "My-Post", "-post", "a--b", "a b"} {
		if ValidSlug(s) {
			t.Errorf("%q should be invalid", s)
		}
	}
}
