package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eringen/quill/content"
	"github.com/eringen/quill/publish"
	"github.com/eringen/quill/scaffold"
)

type newOptions struct {
	category string
	tags     string
	slug     string
	draft    bool
}

func (c *cli) newCmd() *cobra.Command {
	var opts newOptions
	cmd := &cobra.Command{
		Use:   "new <kind> <title>",
		Short: "Create a document from the kind's starter template",
		Example: `  quill new post "Hello World" --tags go,web
  quill new event "Garden Meetup" --draft`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := content.ParseKind(args[0])
			if err != nil {
				return err
			}
			title := strings.Join(args[1:], " ")
			res, err := c.create(cmd.Context(), kind, title, opts)
			if err != nil {
				return err
			}
			state := "published"
			if !res.Published {
				state = "draft"
			}
			file := filepath.Join(c.cfg.ContentDir, kind.Dir(), res.Filename)
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (%s)\n", kind, file, state)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.category, "category", "", "category written to the front matter")
	cmd.Flags().StringVar(&opts.tags, "tags", "", "comma-separated tags")
	cmd.Flags().StringVar(&opts.slug, "slug", "", "slug (derived from the title when empty)")
	cmd.Flags().BoolVar(&opts.draft, "draft", false, "write the document as unpublished")
	return cmd
}

// create renders the kind's scaffold and writes it under the content root.
// An existing document with the same slug is never overwritten.
func (c *cli) create(ctx context.Context, kind content.Kind, title string, opts newOptions) (publish.SaveResult, error) {
	slug := content.DeriveSlug(opts.slug)
	if slug == "" {
		slug = content.SlugOrFallback(title)
	}
	_, err := c.repository().GetBySlug(ctx, kind, slug)
	switch {
	case err == nil:
		return publish.SaveResult{}, fmt.Errorf("%s/%s already exists", kind.Dir(), slug)
	case !errors.Is(err, content.ErrNotFound):
		return publish.SaveResult{}, err
	}

	doc, err := scaffold.Render(kind, scaffold.Data{Title: title, Now: c.now()})
	if err != nil {
		return publish.SaveResult{}, err
	}
	published := !opts.draft
	w := publish.NewWriter(&publish.LocalStore{Root: c.cfg.ContentDir},
		publish.WithClock(c.now),
		publish.WithLogger(c.logger),
	)
	return w.Save(ctx, publish.SaveRequest{
		Kind:      kind,
		Category:  opts.category,
		Slug:      slug,
		Title:     title,
		Body:      doc.Body,
		Tags:      content.SplitList(opts.tags),
		Published: &published,
		Extra:     doc.Fields,
	})
}
