package publish

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

const defaultGitHubAPI = "https://api.github.com"

// Committer identifies the author recorded on remote commits.
type Committer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// GitHubStore commits documents through the GitHub contents API. Each Put
// fetches the current blob sha once and submits it with the new content;
// a concurrent edit between the two calls surfaces as a CommitError.
type GitHubStore struct {
	Owner     string
	Repo      string
	Branch    string
	Token     string
	APIBase   string
	Prefix    string // repository directory holding the content tree
	Committer *Committer
	Client    *http.Client
}

func (s *GitHubStore) Mode() string { return ModeGitHub }

func (s *GitHubStore) configured() error {
	var missing []string
	if s.Token == "" {
		missing = append(missing, "token")
	}
	if s.Owner == "" || s.Repo == "" {
		missing = append(missing, "repository")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: github %s missing", ErrNotConfigured, strings.Join(missing, " and "))
	}
	return nil
}

func (s *GitHubStore) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (s *GitHubStore) contentsURL(repoPath string) string {
	base := strings.TrimRight(s.APIBase, "/")
	if base == "" {
		base = defaultGitHubAPI
	}
	segments := strings.Split(repoPath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		base, url.PathEscape(s.Owner), url.PathEscape(s.Repo), strings.Join(segments, "/"))
}

func (s *GitHubStore) branch() string {
	if s.Branch == "" {
		return "main"
	}
	return s.Branch
}

func (s *GitHubStore) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
}

// Put commits req.Content at Prefix/req.Path on the configured branch.
func (s *GitHubStore) Put(ctx context.Context, req PutRequest) (string, error) {
	if err := s.configured(); err != nil {
		return "", err
	}
	repoPath := path.Join(s.Prefix, req.Path)
	endpoint := s.contentsURL(repoPath)

	sha, err := s.currentSHA(ctx, endpoint)
	if err != nil {
		return "", err
	}

	payload := struct {
		Message   string     `json:"message"`
		Content   string     `json:"content"`
		Branch    string     `json:"branch"`
		SHA       string     `json:"sha,omitempty"`
		Committer *Committer `json:"committer,omitempty"`
	}{
		Message:   req.Message,
		Content:   base64.StdEncoding.EncodeToString(req.Content),
		Branch:    s.branch(),
		SHA:       sha,
		Committer: s.Committer,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal commit: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create commit request: %w", err)
	}
	s.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client().Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("github commit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return "", &CommitError{Status: resp.StatusCode, Body: string(respBody)}
	}
	io.Copy(io.Discard, resp.Body)
	return repoPath, nil
}

// currentSHA returns the blob sha of an existing file, or "" when the file
// does not exist or cannot be read.
func (s *GitHubStore) currentSHA(ctx context.Context, endpoint string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?ref="+url.QueryEscape(s.branch()), nil)
	if err != nil {
		return "", fmt.Errorf("create lookup request: %w", err)
	}
	s.setHeaders(httpReq)

	resp, err := s.client().Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("github lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", nil
	}
	var existing struct {
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&existing); err != nil {
		return "", nil
	}
	return existing.SHA, nil
}

// StoreConfig selects and configures a Store once at startup.
type StoreConfig struct {
	// ReadOnly is set on deployments whose filesystem cannot be written.
	ReadOnly   bool
	LocalRoot  string
	Token      string
	Repository string // "owner/repo"
	Branch     string
	APIBase    string
	Prefix     string
	Committer  *Committer
	Client     *http.Client
}

// NewStore returns a GitHubStore on read-only deployments and a LocalStore
// otherwise. Missing GitHub settings are reported on the first Put.
func NewStore(cfg StoreConfig) Store {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "content"
	}
	if !cfg.ReadOnly {
		return &LocalStore{Root: cfg.LocalRoot, Prefix: prefix}
	}
	owner, repo, _ := strings.Cut(cfg.Repository, "/")
	return &GitHubStore{
		Owner:     strings.TrimSpace(owner),
		Repo:      strings.TrimSpace(repo),
		Branch:    cfg.Branch,
		Token:     cfg.Token,
		APIBase:   cfg.APIBase,
		Prefix:    prefix,
		Committer: cfg.Committer,
		Client:    cfg.Client,
	}
}
