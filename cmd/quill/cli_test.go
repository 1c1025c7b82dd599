package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eringen/quill/content"
)

func noEnv(string) string { return "" }

// run executes the root command against a temporary content root.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(noEnv)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--content", dir}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestLoadConfigEnvAliases(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("GITHUB_REPOSITORY", "someone/site")
	t.Setenv("QUILL_CONTENT_DIR", "/srv/content")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("QUILL_ANALYTICS_RETENTION_DAYS", "90")

	cfg, used, err := loadConfig("", noEnv)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if used != "" {
		t.Errorf("used = %q, want no config file", used)
	}
	if cfg.GitHub.Token != "ghp_test" || cfg.GitHub.Repository != "someone/site" {
		t.Errorf("github = %+v", cfg.GitHub)
	}
	if cfg.ContentDir != "/srv/content" {
		t.Errorf("ContentDir = %q", cfg.ContentDir)
	}
	if cfg.SessionSecret != "s3cret" {
		t.Errorf("SessionSecret = %q", cfg.SessionSecret)
	}
	if cfg.AnalyticsRetentionDays != 90 {
		t.Errorf("AnalyticsRetentionDays = %d, want 90", cfg.AnalyticsRetentionDays)
	}
	if cfg.Addr != ":3000" || cfg.DraftsDatabasePath != "data/drafts.db" {
		t.Errorf("defaults not applied: addr=%q drafts=%q", cfg.Addr, cfg.DraftsDatabasePath)
	}
	if cfg.ReadOnly {
		t.Error("ReadOnly set without a hosting flag")
	}
}

func TestLoadConfigHostedIsReadOnly(t *testing.T) {
	getenv := func(k string) string {
		if k == "NETLIFY" {
			return "true"
		}
		return ""
	}
	cfg, _, err := loadConfig("", getenv)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if !cfg.ReadOnly {
		t.Error("ReadOnly = false on a hosted build")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	src := `name: Field Notes
url: https://notes.example.com
content_dir: notes
github:
  repository: someone/notes
  branch: trunk
ai_rate_limit: 5
analytics_retention_days: 30
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, used, err := loadConfig(path, noEnv)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if used != path {
		t.Errorf("used = %q, want %q", used, path)
	}
	if cfg.Name != "Field Notes" || cfg.ContentDir != "notes" || cfg.AIRateLimit != 5 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.AnalyticsRetentionDays != 30 {
		t.Errorf("AnalyticsRetentionDays = %d, want 30", cfg.AnalyticsRetentionDays)
	}
	if cfg.GitHub.Branch != "trunk" || cfg.GitHub.Repository != "someone/notes" {
		t.Errorf("github = %+v", cfg.GitHub)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), noEnv); err == nil {
		t.Fatal("expected an error for a missing explicit config file")
	}
}

func TestNewAndListEvents(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "new", "event", "Garden", "Meetup", "--tags", "garden, community")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !strings.Contains(out, "events/garden-meetup.mdx") {
		t.Errorf("new output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "events", "garden-meetup.mdx")); err != nil {
		t.Fatalf("document not written: %v", err)
	}

	out, err = run(t, dir, "list", "events", "--view", "upcoming", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var rs []content.Record
	if err := json.Unmarshal([]byte(out), &rs); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(rs) != 1 {
		t.Fatalf("got %d upcoming events, want 1", len(rs))
	}
	r := rs[0]
	if r.Slug != "garden-meetup" || r.Title != "Garden Meetup" {
		t.Errorf("record = %s %q", r.Slug, r.Title)
	}
	if r.Event == nil || r.Event.EventDate == "" {
		t.Fatalf("event details missing: %+v", r.Event)
	}
	if len(r.Tags) != 2 || r.Tags[0] != "garden" {
		t.Errorf("tags = %v", r.Tags)
	}

	out, err = run(t, dir, "list", "events", "--tag", "community")
	if err != nil {
		t.Fatalf("list table: %v", err)
	}
	if !strings.Contains(out, "Events (1)") || !strings.Contains(out, "garden-meetup") {
		t.Errorf("table = %q", out)
	}
}

func TestNewDraftHiddenUnlessAll(t *testing.T) {
	dir := t.TempDir()
	if _, err := run(t, dir, "new", "post", "Half Done", "--draft"); err != nil {
		t.Fatalf("new: %v", err)
	}

	out, err := run(t, dir, "list", "posts")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Posts (0)") {
		t.Errorf("draft listed without --all: %q", out)
	}

	out, err = run(t, dir, "list", "posts", "--all")
	if err != nil {
		t.Fatalf("list --all: %v", err)
	}
	if !strings.Contains(out, "half-done") || !strings.Contains(out, "(draft)") {
		t.Errorf("list --all = %q", out)
	}
}

func TestNewRefusesExisting(t *testing.T) {
	dir := t.TempDir()
	if _, err := run(t, dir, "new", "task", "Fix the fence"); err != nil {
		t.Fatalf("first new: %v", err)
	}
	_, err := run(t, dir, "new", "task", "Fix the fence")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("err = %v, want already exists", err)
	}
}

func TestListViewKindMismatch(t *testing.T) {
	if _, err := run(t, t.TempDir(), "list", "posts", "--view", "overdue"); err == nil {
		t.Fatal("expected an error for a task view on posts")
	}
	if _, err := run(t, t.TempDir(), "list", "recipes"); err == nil {
		t.Fatal("expected an error for an unknown kind")
	}
}

func TestCheckReportsIssues(t *testing.T) {
	dir := t.TempDir()
	tasks := filepath.Join(dir, "tasks")
	if err := os.MkdirAll(tasks, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"too-far.md":  "---\ntitle: Too far\ndate: 2024-06-01\ncompletion_percentage: 150\n---\nbody\n",
		"Bad Name.md": "---\ntitle: Bad\ndate: 2024-06-01\n---\nbody\n",
	}
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(tasks, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	out, err := run(t, dir, "check")
	if err == nil || !strings.Contains(err.Error(), "2 issue(s) found") {
		t.Fatalf("err = %v, want 2 issues", err)
	}
	for _, want := range []string{
		"tasks/too-far.md: completion_percentage 150 is outside 0-100",
		"tasks/Bad Name.md: file name is not a valid slug",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckClean(t *testing.T) {
	dir := t.TempDir()
	if _, err := run(t, dir, "new", "creative", "Night Walk"); err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := run(t, dir, "check")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "no issues found") {
		t.Errorf("output = %q", out)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, t.TempDir(), "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if out != "quill dev\n" {
		t.Errorf("version output = %q", out)
	}
}
