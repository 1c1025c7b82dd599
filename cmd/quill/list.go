package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/eringen/quill/content"
)

type listOptions struct {
	all      bool
	category string
	tag      string
	view     string
	json     bool
}

func (c *cli) listCmd() *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "List documents of one kind",
		Example: `  quill list posts --tag go
  quill list events --view upcoming
  quill list tasks --view overdue --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := content.ParseKind(args[0])
			if err != nil {
				return err
			}
			rs, err := c.list(cmd.Context(), kind, opts)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), rs)
			}
			return writeTable(cmd.OutOrStdout(), kind, rs)
		},
	}
	cmd.Flags().BoolVar(&opts.all, "all", false, "include unpublished documents")
	cmd.Flags().StringVar(&opts.category, "category", "", "only documents in this category")
	cmd.Flags().StringVar(&opts.tag, "tag", "", "only documents with this tag")
	cmd.Flags().StringVar(&opts.view, "view", "", "events: upcoming|past; tasks: overdue|checkup|active|completed; creative: featured")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print JSON instead of a table")
	return cmd
}

// views maps a --view name to the kind it applies to and its query.
var views = map[string]struct {
	kind content.Kind
	run  func(*content.Query, context.Context) ([]content.Record, error)
}{
	"upcoming":  {content.KindEvent, (*content.Query).UpcomingEvents},
	"past":      {content.KindEvent, (*content.Query).PastEvents},
	"overdue":   {content.KindTask, (*content.Query).OverdueTasks},
	"checkup":   {content.KindTask, (*content.Query).TasksNeedingCheckup},
	"active":    {content.KindTask, (*content.Query).ActiveTasks},
	"completed": {content.KindTask, (*content.Query).CompletedTasks},
	"featured":  {content.KindCreative, (*content.Query).FeaturedCreative},
}

func (c *cli) list(ctx context.Context, kind content.Kind, opts listOptions) ([]content.Record, error) {
	repo := c.repository()
	var (
		rs  []content.Record
		err error
	)
	switch {
	case opts.view != "":
		v, ok := views[opts.view]
		if !ok {
			return nil, fmt.Errorf("unknown view %q", opts.view)
		}
		if v.kind != kind {
			return nil, fmt.Errorf("view %q applies to %s, not %s", opts.view, v.kind.Dir(), kind.Dir())
		}
		rs, err = v.run(content.NewQuery(repo), ctx)
	case opts.all:
		rs, err = repo.ListAllIncludingDrafts(ctx, kind)
	default:
		rs, err = repo.ListAll(ctx, kind)
	}
	if err != nil {
		return nil, err
	}
	if opts.category != "" {
		kept := rs[:0]
		for _, r := range rs {
			if r.Category == opts.category {
				kept = append(kept, r)
			}
		}
		rs = kept
	}
	if opts.tag != "" {
		rs = content.FilterByTag(rs, opts.tag)
	}
	return rs, nil
}

func writeJSON(w io.Writer, rs []content.Record) error {
	if rs == nil {
		rs = []content.Record{}
	}
	// Bodies make the listing unreadable; use the API for full records.
	for i := range rs {
		rs[i].Body = ""
	}
	b, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func writeTable(w io.Writer, kind content.Kind, rs []content.Record) error {
	fmt.Fprintf(w, "%s (%d)\n", kindLabel(kind), len(rs))
	if len(rs) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tDATE\tTITLE\tDETAIL")
	for _, r := range rs {
		title := r.Title
		if !r.Published {
			title += " (draft)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Slug, r.Date, title, detail(r))
	}
	return tw.Flush()
}

// detail is the one kind-specific column of the table.
func detail(r content.Record) string {
	switch {
	case r.Event != nil:
		return strings.TrimSpace(r.Event.EventDate + " " + r.Event.LocationType)
	case r.Task != nil:
		s := r.Task.Status
		if p := r.Task.CompletionPercentage; p != nil {
			s += fmt.Sprintf(" %d%%", *p)
		}
		if r.Task.DueDate != "" {
			s += " due " + r.Task.DueDate
		}
		return s
	case r.Creative != nil:
		return r.Creative.CreativeType
	}
	return r.Category
}
