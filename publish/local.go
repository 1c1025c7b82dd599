package publish

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore writes documents beneath Root on the local filesystem.
// Reported paths are Prefix/<path>, independent of where Root lives, so
// they match what a GitHubStore with the same prefix reports.
type LocalStore struct {
	Root   string
	Prefix string
}

func (s *LocalStore) Mode() string { return ModeLocal }

// Put writes req.Content to Root/req.Path, creating parent directories. The
// file is written to a temporary sibling first and renamed into place.
func (s *LocalStore) Put(ctx context.Context, req PutRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	root := filepath.Clean(s.Root)
	full := filepath.Join(root, filepath.FromSlash(req.Path))
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", fmt.Errorf("%w: path %q escapes content root", ErrInvalidInput, req.Path)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".quill-*")
	if err != nil {
		return "", fmt.Errorf("write %s: %w", req.Path, err)
	}
	if _, err := tmp.Write(req.Content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", req.Path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", req.Path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", req.Path, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", req.Path, err)
	}
	return path.Join(s.Prefix, req.Path), nil
}
