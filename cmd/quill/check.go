package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/eringen/quill/content"
)

const checkDebounce = 300 * time.Millisecond

func (c *cli) checkCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report malformed documents in the content tree",
		Long: `check parses every document of every kind and reports malformed front
matter, file names that are not valid slugs, unrecognized dates and task
completion percentages outside 0-100.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := c.repository()
			out := cmd.OutOrStdout()
			n, err := checkAll(cmd.Context(), repo, out)
			if err != nil {
				return err
			}
			if watch {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return c.watch(ctx, repo, out)
			}
			if n > 0 {
				return fmt.Errorf("%d issue(s) found", n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "re-check whenever a document changes")
	return cmd
}

// checkAll checks every kind and returns the number of issues printed.
func checkAll(ctx context.Context, repo *content.Repository, w io.Writer) (int, error) {
	total := 0
	for _, kind := range content.Kinds() {
		issues, err := repo.Check(ctx, kind)
		if err != nil {
			return total, err
		}
		for _, is := range issues {
			fmt.Fprintln(w, is.String())
		}
		total += len(issues)
		if len(issues) > 0 {
			fmt.Fprintf(w, "%s: %d issue(s)\n", kindLabel(kind), len(issues))
		}
	}
	if total == 0 {
		fmt.Fprintln(w, "no issues found")
	}
	return total, nil
}

// watch re-runs checkAll after document changes settle, until ctx is done.
func (c *cli) watch(ctx context.Context, repo *content.Repository, w io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	for _, kind := range content.Kinds() {
		dir := repo.Dir(kind)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	c.logger.Infof("watching %s for changes", repo.Root())

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isDocumentEvent(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(checkDebounce)
			} else {
				timer.Reset(checkDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			fmt.Fprintf(w, "\n[%s] re-checking\n", c.now().Format("15:04:05"))
			if _, err := checkAll(ctx, repo, w); err != nil {
				c.logger.Errorf("check: %v", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Errorf("watcher: %v", err)
		}
	}
}

func isDocumentEvent(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	switch strings.ToLower(filepath.Ext(ev.Name)) {
	case ".md", ".mdx":
		return true
	}
	return false
}
