package quill

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/eringen/quill/enrich"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeCompleter struct {
	reply string
	err   error
	calls atomic.Int32
}

func (f *fakeCompleter) Complete(ctx context.Context, p enrich.Prompt) (string, error) {
	f.calls.Add(1)
	return f.reply, f.err
}

func quietLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

func newTestApp(t *testing.T, cfg SiteConfig, opts ...Option) *App {
	t.Helper()
	dir := t.TempDir()
	if cfg.ContentDir == "" {
		cfg.ContentDir = filepath.Join(dir, "content")
	}
	cfg.StaticDir = filepath.Join(dir, "public")
	cfg.DraftsDatabasePath = filepath.Join(dir, "data", "drafts.db")
	cfg.AnalyticsDatabasePath = filepath.Join(dir, "data", "analytics.db")
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "test-secret-test-secret-test-sec"
	}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow }), WithLogger(quietLogger())}, opts...)
	a := New(cfg, opts...)
	if err := a.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func do(t *testing.T, a *App, method, target string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func writeDoc(t *testing.T, root, dir, name, text string) {
	t.Helper()
	path := filepath.Join(root, dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestInitRequiresSessionSecret(t *testing.T) {
	a := New(SiteConfig{DraftsDatabasePath: filepath.Join(t.TempDir(), "d.db")})
	a.Config.SessionSecret = ""
	if err := a.Init(); err == nil || !strings.Contains(err.Error(), "SessionSecret") {
		t.Fatalf("expected SessionSecret error, got %v", err)
	}
}

func TestSavePostWritesDocument(t *testing.T) {
	a := newTestApp(t, SiteConfig{})
	rec := do(t, a, http.MethodPost, "/api/save-post", map[string]any{
		"title":    "My First Post",
		"content":  "Hello world",
		"category": "Tech",
		"tags":     "a, b",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Success   bool   `json:"success"`
		Filename  string `json:"filename"`
		Slug      string `json:"slug"`
		Path      string `json:"path"`
		Kind      string `json:"kind"`
		Published bool   `json:"published"`
		Mode      string `json:"mode"`
	}
	decode(t, rec, &res)
	// The content root is an absolute temp dir; the reported path is not.
	if res.Path != "content/posts/my-first-post.mdx" {
		t.Errorf("path = %q, want content/posts/my-first-post.mdx", res.Path)
	}
	if !res.Success || res.Filename != "my-first-post.mdx" || res.Slug != "my-first-post" {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Kind != "post" || res.Published || res.Mode != "local-fs" {
		t.Errorf("unexpected result %+v", res)
	}

	data, err := os.ReadFile(filepath.Join(a.Config.ContentDir, "posts", "my-first-post.mdx"))
	if err != nil {
		t.Fatalf("document not written: %v", err)
	}
	for _, want := range []string{`title: "My First Post"`, `date: "2024-06-15"`, `tags: ["a", "b"]`, "published: false"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("document missing %q:\n%s", want, data)
		}
	}

	// Drafts are hidden from listings but still addressable by slug.
	list := do(t, a, http.MethodGet, "/api/content/posts", nil)
	if list.Code != http.StatusOK || strings.TrimSpace(list.Body.String()) != "[]" {
		t.Errorf("list = %d %s, want empty", list.Code, list.Body.String())
	}
	get := do(t, a, http.MethodGet, "/api/content/post/my-first-post", nil)
	if get.Code != http.StatusOK {
		t.Errorf("get status = %d", get.Code)
	}
}

func TestSavePostVisibleOnNextList(t *testing.T) {
	a := newTestApp(t, SiteConfig{})
	rec := do(t, a, http.MethodPost, "/api/save-post", map[string]any{
		"title":     "Garden Meetup",
		"content":   "Bring gloves.",
		"category":  "Events",
		"published": true,
		"extra":     map[string]any{"event_date": "2024-07-01T10:00:00Z"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var upcoming []map[string]any
	decode(t, do(t, a, http.MethodGet, "/api/events/upcoming", nil), &upcoming)
	if len(upcoming) != 1 || upcoming[0]["slug"] != "garden-meetup" {
		t.Errorf("upcoming = %v", upcoming)
	}
}

func TestSavePostValidation(t *testing.T) {
	a := newTestApp(t, SiteConfig{})
	rec := do(t, a, http.MethodPost, "/api/save-post", map[string]any{"content": "body only"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body errorBody
	decode(t, rec, &body)
	if !strings.Contains(body.Error, "title is required") {
		t.Errorf("error = %q", body.Error)
	}
	if _, err := os.Stat(filepath.Join(a.Config.ContentDir, "posts")); err == nil {
		entries, _ := os.ReadDir(filepath.Join(a.Config.ContentDir, "posts"))
		if len(entries) != 0 {
			t.Errorf("rejected request wrote %d files", len(entries))
		}
	}
}

func TestSavePostGitHubNotConfigured(t *testing.T) {
	a := newTestApp(t, SiteConfig{ReadOnly: true})
	rec := do(t, a, http.MethodPost, "/api/save-post", map[string]any{"title": "T", "content": "C"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not configured") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestSavePostGitHubCommitFailure(t *testing.T) {
	gh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"message":"sha mismatch"}`)
	}))
	defer gh.Close()

	a := newTestApp(t, SiteConfig{ReadOnly: true, GitHub: GitHubConfig{
		Token:      "tok",
		Repository: "owner/site",
		APIBase:    gh.URL,
	}})
	rec := do(t, a, http.MethodPost, "/api/save-post", map[string]any{"title": "T", "content": "C"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "409") || !strings.Contains(rec.Body.String(), "sha mismatch") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "tok") {
		t.Errorf("token leaked: %s", rec.Body.String())
	}
}

func TestPublishToFiles(t *testing.T) {
	a := newTestApp(t, SiteConfig{})
	rec := do(t, a, http.MethodPost, "/api/posts/publish-to-files", map[string]any{
		"title": "Launch Notes",
		"body":  "We shipped.",
		"tags":  []string{"release"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var res publishFilesResponse
	decode(t, rec, &res)
	if !res.OK || res.Slug != "launch-notes" {
		t.Errorf("unexpected %+v", res)
	}
	var posts []map[string]any
	decode(t, do(t, a, http.MethodGet, "/api/content/posts?tag=RELEASE", nil), &posts)
	if len(posts) != 1 {
		t.Errorf("posts by tag = %v", posts)
	}
}

func TestContentRoutes(t *testing.T) {
	a := newTestApp(t, SiteConfig{})
	root := a.Config.ContentDir
	writeDoc(t, root, "posts", "hello.md", "---\ntitle: Hello\ndate: 2024-05-01\ncategory: Tech\ntags: [go, web]\n---\n# Hello\n\nBody text.\n")
	writeDoc(t, root, "posts", "other.md", "---\ntitle: Other\ndate: 2024-04-01\ncategory: Life\ntags: [go]\n---\nOther body.\n")
	writeDoc(t, root, "tasks", "fence.md", "---\ntitle: Fence\ndue_date: 2024-06-01\nstatus: active\n---\n")

	t.Run("category", func(t *testing.T) {
		var rs []map[string]any
		decode(t, do(t, a, http.MethodGet, "/api/content/posts?category=Tech", nil), &rs)
		if len(rs) != 1 || rs[0]["slug"] != "hello" {
			t.Errorf("by category = %v", rs)
		}
	})
	t.Run("not found", func(t *testing.T) {
		rec := do(t, a, http.MethodGet, "/api/content/posts/missing", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
		var body errorBody
		decode(t, rec, &body)
		if body.Error == "" {
			t.Errorf("missing error message")
		}
	})
	t.Run("unknown kind", func(t *testing.T) {
		if rec := do(t, a, http.MethodGet, "/api/content/poems", nil); rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
	t.Run("html", func(t *testing.T) {
		rec := do(t, a, http.MethodGet, "/api/content/posts/hello/html", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
			t.Errorf("content type = %q", rec.Header().Get("Content-Type"))
		}
		if !strings.Contains(rec.Body.String(), `<h1 id="hello">Hello</h1>`) {
			t.Errorf("body = %s", rec.Body.String())
		}
	})
	t.Run("related", func(t *testing.T) {
		var rs []map[string]any
		decode(t, do(t, a, http.MethodGet, "/api/content/posts/hello/related", nil), &rs)
		if len(rs) != 1 || rs[0]["slug"] != "other" {
			t.Errorf("related = %v", rs)
		}
	})
	t.Run("jsonld", func(t *testing.T) {
		var ld map[string]any
		decode(t, do(t, a, http.MethodGet, "/api/content/posts/hello/jsonld", nil), &ld)
		if ld["@type"] != "BlogPosting" || ld["headline"] != "Hello" {
			t.Errorf("jsonld = %v", ld)
		}
	})
	t.Run("overdue", func(t *testing.T) {
		var rs []map[string]any
		decode(t, do(t, a, http.MethodGet, "/api/tasks/overdue", nil), &rs)
		if len(rs) != 1 || rs[0]["slug"] != "fence" {
			t.Errorf("overdue = %v", rs)
		}
	})
	t.Run("tags", func(t *testing.T) {
		var tags []string
		decode(t, do(t, a, http.MethodGet, "/api/tags/posts", nil), &tags)
		if strings.Join(tags, ",") != "go,web" {
			t.Errorf("tags = %v", tags)
		}
	})
	t.Run("feed", func(t *testing.T) {
		var rs []map[string]any
		decode(t, do(t, a, http.MethodGet, "/api/feed", nil), &rs)
		if len(rs) != 3 {
			t.Errorf("feed has %d records, want 3", len(rs))
		}
	})
	t.Run("rss", func(t *testing.T) {
		rec := do(t, a, http.MethodGet, "/feed.xml", nil)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<title>Hello</title>") {
			t.Errorf("rss = %d %s", rec.Code, rec.Body.String())
		}
		if strings.Contains(rec.Body.String(), "Fence") {
			t.Errorf("rss should only carry posts")
		}
	})
	t.Run("sitemap", func(t *testing.T) {
		rec := do(t, a, http.MethodGet, "/sitemap.xml", nil)
		body := rec.Body.String()
		for _, want := range []string{"http://localhost:3000/posts/hello/", "http://localhost:3000/tasks/fence/", "<lastmod>2024-05-01</lastmod>"} {
			if !strings.Contains(body, want) {
				t.Errorf("sitemap missing %q", want)
			}
		}
	})
}

func TestEnrichRoutes(t *testing.T) {
	fake := &fakeCompleter{reply: `Sure: {"summary":"A post.","tags":["Go","#web"],"category":"Tech","meta_description":"Meta."}`}
	a := newTestApp(t, SiteConfig{}, WithCompleter(fake))

	content := strings.Repeat("Go makes concurrency approachable. ", 4)
	rec := do(t, a, http.MethodPost, "/api/ai-enrich", map[string]any{"title": "Go", "content": content})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var res enrich.MetadataResult
	decode(t, rec, &res)
	if !res.AIEnhanced || res.Category != "Tech" || strings.Join(res.Tags, ",") != "go,web" {
		t.Errorf("unexpected %+v", res)
	}

	short := do(t, a, http.MethodPost, "/api/ai-enrich", map[string]any{"title": "Go", "content": "tiny"})
	if short.Code != http.StatusBadRequest {
		t.Errorf("short content status = %d, want 400", short.Code)
	}
	if got := fake.calls.Load(); got != 1 {
		t.Errorf("completer called %d times, want 1", got)
	}
}

func TestEnrichNotConfigured(t *testing.T) {
	a := newTestApp(t, SiteConfig{})
	rec := do(t, a, http.MethodPost, "/api/ai-improve", map[string]any{"content": strings.Repeat("x", 60)})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestEnrichUpstreamFailureDegrades(t *testing.T) {
	fake := &fakeCompleter{err: &enrich.UpstreamError{Status: 503, Body: "down"}}
	a := newTestApp(t, SiteConfig{}, WithCompleter(fake))

	rec := do(t, a, http.MethodPost, "/api/ai-questions", map[string]any{"content": strings.Repeat("word ", 30)})
	if rec.Code != http.StatusOK {
		t.Fatalf("questions status = %d, want 200", rec.Code)
	}
	var q enrich.QuestionsResult
	decode(t, rec, &q)
	if q.AIEnhanced || len(q.Questions) != 2 {
		t.Errorf("unexpected %+v", q)
	}

	improve := do(t, a, http.MethodPost, "/api/ai-improve", map[string]any{"content": strings.Repeat("word ", 30)})
	if improve.Code != http.StatusInternalServerError {
		t.Errorf("improve status = %d, want 500", improve.Code)
	}
}

func TestEnrichRateLimit(t *testing.T) {
	fake := &fakeCompleter{reply: "Improved text."}
	a := newTestApp(t, SiteConfig{AIRateLimit: 2}, WithCompleter(fake))
	body := map[string]any{"content": strings.Repeat("word ", 30)}
	for i := 0; i < 2; i++ {
		if rec := do(t, a, http.MethodPost, "/api/ai-improve", body); rec.Code != http.StatusOK {
			t.Fatalf("call %d status = %d", i, rec.Code)
		}
	}
	if rec := do(t, a, http.MethodPost, "/api/ai-improve", body); rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if rec := do(t, a, http.MethodGet, "/api/health", nil); rec.Code != http.StatusOK {
		t.Errorf("health limited too: %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	a := newTestApp(t, SiteConfig{
		GitHub: GitHubConfig{Token: "ghp_secret", Repository: "owner/site"},
		OpenAI: OpenAIConfig{APIKey: "sk-secret"},
	})
	rec := do(t, a, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
	}
	if strings.Contains(rec.Body.String(), "secret") {
		t.Errorf("health leaked a secret: %s", rec.Body.String())
	}
	var h healthResponse
	decode(t, rec, &h)
	if !h.OK || !h.GitHub.HasToken || h.GitHub.Repo != "owner/site" || h.GitHub.Branch != "main" || !h.AI.HasKey {
		t.Errorf("unexpected %+v", h)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Errorf("missing request id")
	}
}

func TestDraftRoutes(t *testing.T) {
	a := newTestApp(t, SiteConfig{})

	if rec := do(t, a, http.MethodPost, "/api/posts/draft", map[string]any{"title": "No slug"}); rec.Code != http.StatusBadRequest {
		t.Errorf("missing slug status = %d, want 400", rec.Code)
	}
	if rec := do(t, a, http.MethodPost, "/api/posts/draft", map[string]any{"slug": "wip", "title": "WIP", "tags": "a,b", "author": "ada"}); rec.Code != http.StatusOK {
		t.Fatalf("draft status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, a, http.MethodPost, "/api/posts/publish", map[string]any{"slug": "missing"}); rec.Code != http.StatusNotFound {
		t.Errorf("publish unknown status = %d, want 404", rec.Code)
	}
	if rec := do(t, a, http.MethodPost, "/api/posts/publish", map[string]any{"slug": "wip"}); rec.Code != http.StatusOK {
		t.Fatalf("publish status = %d", rec.Code)
	}

	var got map[string]any
	decode(t, do(t, a, http.MethodGet, "/api/posts/drafts/wip", nil), &got)
	if got["published"] != true || got["draft"] != false {
		t.Errorf("draft = %v", got)
	}
	var published []map[string]any
	decode(t, do(t, a, http.MethodGet, "/api/posts/published", nil), &published)
	if len(published) != 1 {
		t.Errorf("published = %v", published)
	}
	var byAuthor []map[string]any
	decode(t, do(t, a, http.MethodGet, "/api/posts/published?author=ada", nil), &byAuthor)
	if len(byAuthor) != 1 {
		t.Errorf("by author = %v", byAuthor)
	}
}

func TestSessionRoutes(t *testing.T) {
	a := newTestApp(t, SiteConfig{AdminEmail: "Owner@Example.com", AdminPassword: "hunter2"})

	if rec := do(t, a, http.MethodPost, "/api/session", map[string]any{"email": "owner@example.com", "password": "nope"}); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", rec.Code)
	}

	rec := do(t, a, http.MethodPost, "/api/session", map[string]any{"email": "owner@example.com", "password": "hunter2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var login sessionResponse
	decode(t, rec, &login)
	if !login.Authenticated || !login.Admin {
		t.Errorf("login = %+v", login)
	}

	cookies := rec.Result().Cookies()
	var state sessionResponse
	decode(t, do(t, a, http.MethodGet, "/api/session", nil, cookies...), &state)
	if !state.Authenticated || state.Email != "owner@example.com" || !state.Admin {
		t.Errorf("state = %+v", state)
	}

	var anon sessionResponse
	decode(t, do(t, a, http.MethodGet, "/api/session", nil), &anon)
	if anon.Authenticated {
		t.Errorf("anonymous request reported authenticated")
	}
}

func TestSessionLoginLimiter(t *testing.T) {
	a := newTestApp(t, SiteConfig{AdminPassword: "pw", LoginRateLimit: 2})
	bad := map[string]any{"email": "x@example.com", "password": "wrong"}
	for i := 0; i < 2; i++ {
		do(t, a, http.MethodPost, "/api/session", bad)
	}
	rec := do(t, a, http.MethodPost, "/api/session", map[string]any{"email": "x@example.com", "password": "pw"})
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}

// adminCookies logs in as the configured admin and returns the session.
func adminCookies(t *testing.T, a *App) []*http.Cookie {
	t.Helper()
	rec := do(t, a, http.MethodPost, "/api/session", map[string]any{"email": a.Config.AdminEmail, "password": a.Config.AdminPassword})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	return rec.Result().Cookies()
}

func upload(t *testing.T, a *App, name string, data []byte, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

var adminConfig = SiteConfig{AdminEmail: "owner@example.com", AdminPassword: "pw"}

func TestUpload(t *testing.T) {
	a := newTestApp(t, adminConfig)

	img := image.NewRGBA(image.Rect(0, 0, 2000, 1000))
	for x := 0; x < 2000; x++ {
		img.Set(x, x/2, color.RGBA{R: 200, A: 255})
	}
	rec := upload(t, a, "Holiday Photo.PNG", encodePNG(t, img), adminCookies(t, a)...)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var res UploadedImage
	decode(t, rec, &res)
	if res.URL != "/public/uploads/holiday-photo.jpg" || res.Width != maxImageWidth || res.Height != 800 {
		t.Errorf("unexpected %+v", res)
	}
	if _, err := os.Stat(filepath.Join(a.Config.StaticDir, "uploads", "holiday-photo.jpg")); err != nil {
		t.Errorf("upload not stored: %v", err)
	}
}

func TestUploadRequiresAdmin(t *testing.T) {
	a := newTestApp(t, adminConfig)
	data := encodePNG(t, image.NewRGBA(image.Rect(0, 0, 10, 10)))

	if rec := upload(t, a, "photo.png", data); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rec.Code)
	}

	guest := do(t, a, http.MethodPost, "/api/session", map[string]any{"email": "guest@example.com", "password": "pw"})
	if guest.Code != http.StatusOK {
		t.Fatalf("guest login status = %d", guest.Code)
	}
	if rec := upload(t, a, "photo.png", data, guest.Result().Cookies()...); rec.Code != http.StatusForbidden {
		t.Errorf("guest status = %d, want 403", rec.Code)
	}

	if _, err := os.Stat(filepath.Join(a.Config.StaticDir, "uploads", "photo.jpg")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("rejected upload was stored: %v", err)
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	a := newTestApp(t, adminConfig)
	if rec := upload(t, a, "notes.txt", []byte("not an image"), adminCookies(t, a)...); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadRejectsHugeCanvas(t *testing.T) {
	a := newTestApp(t, adminConfig)
	// A valid PNG header claiming 10000x10000 pixels, with no pixel data.
	var hdr bytes.Buffer
	hdr.WriteString("\x89PNG\r\n\x1a\n")
	ihdr := []byte{0, 0, 0x27, 0x10, 0, 0, 0x27, 0x10, 8, 6, 0, 0, 0}
	binary.Write(&hdr, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	hdr.Write(chunk)
	binary.Write(&hdr, binary.BigEndian, crc32.ChecksumIEEE(chunk))

	rec := upload(t, a, "big.png", hdr.Bytes(), adminCookies(t, a)...)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "too large") {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestAnalyticsRoutes(t *testing.T) {
	a := newTestApp(t, SiteConfig{AdminEmail: "owner@example.com", AdminPassword: "pw"})
	writeDoc(t, a.Config.ContentDir, "posts", "hello.md", "---\ntitle: Hello\n---\nBody.\n")

	if rec := do(t, a, http.MethodPost, "/api/analytics/collect", map[string]any{"kind": "posts", "slug": "hello", "referrer": "https://www.google.com/"}); rec.Code != http.StatusNoContent {
		t.Fatalf("collect status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, a, http.MethodPost, "/api/analytics/collect", map[string]any{"kind": "post", "slug": "missing"}); rec.Code != http.StatusNotFound {
		t.Errorf("collect missing status = %d, want 404", rec.Code)
	}
	if rec := do(t, a, http.MethodPost, "/api/analytics/collect", map[string]any{"kind": "poems", "slug": "hello"}); rec.Code != http.StatusBadRequest {
		t.Errorf("collect bad kind status = %d, want 400", rec.Code)
	}

	if rec := do(t, a, http.MethodGet, "/api/analytics/stats", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous stats status = %d, want 401", rec.Code)
	}

	login := do(t, a, http.MethodPost, "/api/session", map[string]any{"email": "owner@example.com", "password": "pw"})
	if login.Code != http.StatusOK {
		t.Fatalf("login status = %d", login.Code)
	}
	rec := do(t, a, http.MethodGet, "/api/analytics/stats?period=today", nil, login.Result().Cookies()...)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var st struct {
		Period     string `json:"period"`
		TotalViews int    `json:"total_views"`
		TopRecords []struct {
			Slug  string `json:"slug"`
			Views int    `json:"views"`
		} `json:"top_records"`
		Referrers []struct {
			Name string `json:"name"`
		} `json:"referrers"`
	}
	decode(t, rec, &st)
	if st.Period != "today" || st.TotalViews != 1 || len(st.TopRecords) != 1 || st.TopRecords[0].Slug != "hello" {
		t.Errorf("stats = %+v", st)
	}
	if len(st.Referrers) != 1 || st.Referrers[0].Name != "Google" {
		t.Errorf("referrers = %+v", st.Referrers)
	}
}

func TestAnalyticsStatsRequiresAdmin(t *testing.T) {
	a := newTestApp(t, SiteConfig{AdminEmail: "owner@example.com", AdminPassword: "pw"})
	login := do(t, a, http.MethodPost, "/api/session", map[string]any{"email": "guest@example.com", "password": "pw"})
	if login.Code != http.StatusOK {
		t.Fatalf("login status = %d", login.Code)
	}
	rec := do(t, a, http.MethodGet, "/api/analytics/stats", nil, login.Result().Cookies()...)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
