package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eringen/quill/frontmatter"
)

// Issue describes a problem found in a hand-written document.
type Issue struct {
	Kind    Kind
	File    string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s/%s: %s", i.Kind.Dir(), i.File, i.Message)
}

// Check inspects every document of kind and reports malformed front matter,
// file names that are not valid slugs, and out-of-range completion values.
func (r *Repository) Check(ctx context.Context, kind Kind) ([]Issue, error) {
	files, err := r.files(kind)
	if err != nil {
		return nil, err
	}
	var issues []Issue
	report := func(name, format string, args ...any) {
		issues = append(issues, Issue{Kind: kind, File: name, Message: fmt.Sprintf(format, args...)})
	}
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := os.ReadFile(filepath.Join(r.Dir(kind), name))
		if err != nil {
			report(name, "unreadable: %v", err)
			continue
		}
		if stem := strings.TrimSuffix(name, filepath.Ext(name)); !ValidSlug(stem) {
			report(name, "file name is not a valid slug (want %q)", DeriveSlug(stem))
		}
		doc := frontmatter.Parse(src)
		if doc.Err != nil {
			report(name, "malformed front matter: %v", doc.Err)
			continue
		}
		if !frontmatter.HasBlock(string(src)) {
			report(name, "no front matter block")
		}
		if kind == KindTask {
			if n, ok := (value{doc.Fields["completion_percentage"]}).Int(); ok && n != ClampPercent(n) {
				report(name, "completion_percentage %d is outside 0-100", n)
			}
		}
		if d, ok := doc.Fields["date"]; ok {
			if _, ok := ParseDate(value{d}.String()); !ok {
				report(name, "unrecognized date %q", value{d}.String())
			}
		}
	}
	return issues, nil
}
