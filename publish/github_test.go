package publish

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

type fakeGitHub struct {
	existingSHA string
	putStatus   int
	gets        atomic.Int32
	puts        atomic.Int32
	lastPut     map[string]any
	lastPath    string
	auth        string
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.auth = r.Header.Get("Authorization")
	switch r.Method {
	case http.MethodGet:
		f.gets.Add(1)
		if f.existingSHA == "" {
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"sha": f.existingSHA})
	case http.MethodPut:
		f.puts.Add(1)
		f.lastPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&f.lastPut)
		status := f.putStatus
		if status == 0 {
			status = http.StatusCreated
		}
		w.WriteHeader(status)
		if status >= 300 {
			w.Write([]byte(`{"message":"conflict"}`))
			return
		}
		w.Write([]byte(`{"content":{}}`))
	}
}

func TestGitHubStoreCommitsWithExistingSHA(t *testing.T) {
	fake := &fakeGitHub{existingSHA: "abc123"}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store := NewStore(StoreConfig{
		ReadOnly:   true,
		Token:      "tok",
		Repository: "me/site",
		Branch:     "main",
		APIBase:    srv.URL,
	})
	if store.Mode() != ModeGitHub {
		t.Fatalf("mode = %q, want %q", store.Mode(), ModeGitHub)
	}

	loc, err := store.Put(context.Background(), PutRequest{
		Path:    "posts/hello.mdx",
		Content: []byte("---\ntitle: \"Hello\"\n---\n"),
		Message: "chore(publish): hello.mdx",
	})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if loc != "content/posts/hello.mdx" {
		t.Errorf("location = %q", loc)
	}
	if fake.lastPath != "/repos/me/site/contents/content/posts/hello.mdx" {
		t.Errorf("PUT path = %q", fake.lastPath)
	}
	if fake.auth != "Bearer tok" {
		t.Errorf("Authorization = %q", fake.auth)
	}
	if fake.lastPut["sha"] != "abc123" || fake.lastPut["branch"] != "main" {
		t.Errorf("payload = %v", fake.lastPut)
	}
	if fake.lastPut["message"] != "chore(publish): hello.mdx" {
		t.Errorf("message = %v", fake.lastPut["message"])
	}
	decoded, err := base64.StdEncoding.DecodeString(fake.lastPut["content"].(string))
	if err != nil || string(decoded) != "---\ntitle: \"Hello\"\n---\n" {
		t.Errorf("content = %q (%v)", decoded, err)
	}
}

func TestGitHubStoreNewFileOmitsSHA(t *testing.T) {
	fake := &fakeGitHub{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store := &GitHubStore{Owner: "me", Repo: "site", Token: "tok", APIBase: srv.URL}
	if _, err := store.Put(context.Background(), PutRequest{Path: "tasks/new.mdx", Content: []byte("x")}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, ok := fake.lastPut["sha"]; ok {
		t.Errorf("sha should be omitted for a new file: %v", fake.lastPut)
	}
}

func TestGitHubStoreSurfacesCommitError(t *testing.T) {
	fake := &fakeGitHub{putStatus: http.StatusConflict}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store := &GitHubStore{Owner: "me", Repo: "site", Token: "tok", APIBase: srv.URL}
	_, err := store.Put(context.Background(), PutRequest{Path: "posts/x.mdx", Content: []byte("x")})
	var commitErr *CommitError
	if !errors.As(err, &commitErr) {
		t.Fatalf("err = %v, want *CommitError", err)
	}
	if commitErr.Status != http.StatusConflict || commitErr.Body != `{"message":"conflict"}` {
		t.Errorf("commit error = %+v", commitErr)
	}
}

func TestGitHubStoreRequiresCredentials(t *testing.T) {
	fake := &fakeGitHub{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	for _, cfg := range []StoreConfig{
		{ReadOnly: true, Repository: "me/site", APIBase: srv.URL},
		{ReadOnly: true, Token: "tok", APIBase: srv.URL},
		{ReadOnly: true, Token: "tok", Repository: "no-slash", APIBase: srv.URL},
	} {
		w := NewWriter(NewStore(cfg))
		_, err := w.Save(context.Background(), SaveRequest{Title: "T", Body: "B"})
		if !errors.Is(err, ErrNotConfigured) {
			t.Errorf("cfg %+v: err = %v, want ErrNotConfigured", cfg, err)
		}
	}
	if fake.gets.Load() != 0 || fake.puts.Load() != 0 {
		t.Errorf("no request should be made without credentials (gets=%d puts=%d)", fake.gets.Load(), fake.puts.Load())
	}
}

func TestNewStoreDefaultsToLocal(t *testing.T) {
	store := NewStore(StoreConfig{LocalRoot: t.TempDir()})
	if store.Mode() != ModeLocal {
		t.Errorf("mode = %q, want %q", store.Mode(), ModeLocal)
	}
}
