package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/eringen/quill/content"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func testWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	root := t.TempDir()
	logger := log.New("test")
	logger.SetOutput(io.Discard)
	w := NewWriter(&LocalStore{Root: root},
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(logger),
	)
	return w, root
}

func boolPtr(b bool) *bool { return &b }

func TestSaveWritesFrontMatterDocument(t *testing.T) {
	w, root := testWriter(t)

	res, err := w.Save(context.Background(), SaveRequest{
		Title:     "My First Post",
		Body:      "Hello world",
		Category:  "Tech",
		Tags:      content.SplitList("a, b"),
		Published: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if res.Slug != "my-first-post" || res.Filename != "my-first-post.mdx" {
		t.Errorf("result = %+v", res)
	}
	if res.Kind != content.KindPost || res.Mode != ModeLocal || res.Published {
		t.Errorf("result = %+v", res)
	}

	data, err := os.ReadFile(filepath.Join(root, "posts", "my-first-post.mdx"))
	if err != nil {
		t.Fatalf("document not written: %v", err)
	}
	doc := string(data)
	if !strings.HasPrefix(doc, "---\n") {
		t.Errorf("document should open with a front-matter block:\n%s", doc)
	}
	for _, want := range []string{
		`title: "My First Post"`,
		`date: "2024-06-15"`,
		`category: "Tech"`,
		`tags: ["a", "b"]`,
		"published: false",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q:\n%s", want, doc)
		}
	}
	if !strings.HasSuffix(doc, "---\n\nHello world\n") {
		t.Errorf("body should follow the block:\n%s", doc)
	}
}

func TestSaveRoundTripsThroughRepository(t *testing.T) {
	w, root := testWriter(t)
	ctx := context.Background()

	if _, err := w.Save(ctx, SaveRequest{
		Title:     "Round Trip",
		Body:      "Body text",
		Category:  "Events",
		Tags:      []string{"go", "meetup"},
		Published: boolPtr(true),
		Extra: map[string]any{
			"event_date": "2024-07-01",
		},
	}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	repo := content.NewRepository(root)
	rec, err := repo.GetBySlug(ctx, content.KindEvent, "round-trip")
	if err != nil {
		t.Fatalf("GetBySlug failed: %v", err)
	}
	if rec.Title != "Round Trip" || rec.Category != "Events" || !rec.Published {
		t.Errorf("record = %+v", rec)
	}
	if len(rec.Tags) != 2 || rec.Tags[0] != "go" || rec.Tags[1] != "meetup" {
		t.Errorf("tags = %v", rec.Tags)
	}
	if rec.Event == nil || rec.Event.EventDate != "2024-07-01" {
		t.Errorf("event = %+v", rec.Event)
	}
	if strings.TrimSpace(rec.Body) != "Body text" {
		t.Errorf("body = %q", rec.Body)
	}

	listed, err := repo.ListAll(ctx, content.KindEvent)
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 {
		t.Errorf("listed %d events, want 1", len(listed))
	}
}

func TestSaveValidatesBeforeWriting(t *testing.T) {
	w, root := testWriter(t)

	tests := []SaveRequest{
		{Title: "", Body: "body"},
		{Title: "   ", Body: "body"},
		{Title: "Title", Body: "\n\t"},
		{Title: "Title", Body: "body", Kind: content.Kind("recipe")},
	}
	for _, req := range tests {
		if _, err := w.Save(context.Background(), req); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Save(%+v) err = %v, want ErrInvalidInput", req, err)
		}
	}
	entries, _ := os.ReadDir(root)
	if len(entries) != 0 {
		t.Errorf("validation failures should not touch disk, found %d entries", len(entries))
	}
}

func TestSaveKeepsExistingBlock(t *testing.T) {
	w, root := testWriter(t)
	body := "---\ntitle: Handwritten\ncustom: 1\n---\n\nText"

	res, err := w.Save(context.Background(), SaveRequest{
		Title:            "Ignored Title",
		Slug:             "Hand Written!",
		Body:             body,
		DefaultPublished: true,
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if res.Slug != "hand-written" || !res.Published {
		t.Errorf("result = %+v", res)
	}
	data, err := os.ReadFile(filepath.Join(root, "posts", "hand-written.mdx"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != body+"\n" {
		t.Errorf("document = %q, want the body unchanged", data)
	}
}

func TestSaveFallbackSlugAndClamp(t *testing.T) {
	w, root := testWriter(t)

	res, err := w.Save(context.Background(), SaveRequest{
		Title:    "???",
		Body:     "body",
		Category: "Tasks",
		Extra:    map[string]any{"completion_percentage": 150, "status": "active"},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasPrefix(res.Slug, "untitled-") || res.Kind != content.KindTask {
		t.Errorf("result = %+v", res)
	}
	data, err := os.ReadFile(filepath.Join(root, "tasks", res.Filename))
	if err != nil {
		t.Fatal(err)
	}
	doc := string(data)
	if !strings.Contains(doc, "completion_percentage: 100") {
		t.Errorf("completion should be clamped:\n%s", doc)
	}
	if strings.Index(doc, "completion_percentage") > strings.Index(doc, "status") {
		t.Errorf("extra keys should be sorted:\n%s", doc)
	}
}

func TestLocalStoreRejectsEscapingPaths(t *testing.T) {
	s := &LocalStore{Root: t.TempDir()}
	_, err := s.Put(context.Background(), PutRequest{Path: "../outside.mdx", Content: []byte("x")})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestLocalStoreReportsPrefixedPath(t *testing.T) {
	root := t.TempDir()
	s := NewStore(StoreConfig{LocalRoot: root})
	got, err := s.Put(context.Background(), PutRequest{Path: "posts/hello.mdx", Content: []byte("x")})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if got != "content/posts/hello.mdx" {
		t.Errorf("path = %q, want content/posts/hello.mdx", got)
	}
	if _, err := os.Stat(filepath.Join(root, "posts", "hello.mdx")); err != nil {
		t.Errorf("file not written under root: %v", err)
	}
}
