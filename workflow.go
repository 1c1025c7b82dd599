package quill

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/quill/content"
	"github.com/eringen/quill/enrich"
	"github.com/eringen/quill/frontmatter"
	"github.com/eringen/quill/publish"
)

// Workflow actions.
const (
	actionOptimizePost     = "optimize_post"
	actionGenerateSeries   = "generate_series"
	actionCrossReference   = "cross_reference"
	actionPerformanceAudit = "performance_audit"
)

type workflowRequest struct {
	Action  string          `json:"action"`
	Slug    string          `json:"slug"`
	Options json.RawMessage `json:"options"`
}

type optimizeOptions struct {
	EnhanceReadability bool `json:"enhance_readability"`
	AutoApply          bool `json:"auto_apply"`
}

type optimizeResponse struct {
	enrich.OptimizeResult
	Applied bool   `json:"applied"`
	Path    string `json:"path,omitempty"`
}

// handleWorkflow runs one multi-step editorial action over stored posts.
func (a *App) handleWorkflow(c echo.Context) error {
	var req workflowRequest
	if err := c.Bind(&req); err != nil {
		return apiError(c, badRequest("invalid request body"))
	}
	ctx := c.Request().Context()

	switch req.Action {
	case actionOptimizePost:
		return a.optimizePost(c, req)
	case actionGenerateSeries:
		var opts enrich.SeriesRequest
		if err := decodeOptions(req.Options, &opts); err != nil {
			return apiError(c, err)
		}
		res, err := a.AI.Series(ctx, opts)
		if err != nil {
			return apiError(c, err)
		}
		return c.JSON(http.StatusOK, res)
	case actionCrossReference:
		posts, err := a.postDigests(ctx)
		if err != nil {
			return apiError(c, err)
		}
		res, err := a.AI.CrossReference(ctx, posts)
		if err != nil {
			return apiError(c, err)
		}
		return c.JSON(http.StatusOK, res)
	case actionPerformanceAudit:
		posts, err := a.postDigests(ctx)
		if err != nil {
			return apiError(c, err)
		}
		res, err := a.AI.Audit(ctx, posts)
		if err != nil {
			return apiError(c, err)
		}
		return c.JSON(http.StatusOK, res)
	}
	return apiError(c, badRequest("unknown workflow action %q", req.Action))
}

// optimizePost reviews one post and, with auto_apply, writes the suggested
// meta description and any readability rewrite back to its file.
func (a *App) optimizePost(c echo.Context, req workflowRequest) error {
	var opts optimizeOptions
	if err := decodeOptions(req.Options, &opts); err != nil {
		return apiError(c, err)
	}
	if strings.TrimSpace(req.Slug) == "" {
		return apiError(c, badRequest("slug is required"))
	}
	if opts.AutoApply && !a.IsAdmin(c) {
		return c.JSON(http.StatusForbidden, errorBody{Error: "auto_apply requires an admin session"})
	}
	ctx := c.Request().Context()
	rec, err := a.Content.GetBySlug(ctx, content.KindPost, req.Slug)
	if err != nil {
		return apiError(c, err)
	}
	res, err := a.AI.OptimizePost(ctx, enrich.OptimizeRequest{
		Title:              rec.Title,
		Content:            rec.Body,
		EnhanceReadability: opts.EnhanceReadability,
	})
	if err != nil {
		return apiError(c, err)
	}
	out := optimizeResponse{OptimizeResult: res}
	if opts.AutoApply {
		location, err := a.applyOptimization(ctx, rec, res)
		if err != nil {
			return apiError(c, err)
		}
		out.Applied, out.Path = true, location
		out.WorkflowSteps = append(out.WorkflowSteps, "applied changes to "+rec.Path)
	}
	return c.JSON(http.StatusOK, out)
}

// applyOptimization rewrites the post's source file, keeping its name and
// every existing field.
func (a *App) applyOptimization(ctx context.Context, rec content.Record, res enrich.OptimizeResult) (string, error) {
	src, err := os.ReadFile(filepath.Join(a.Content.Root(), filepath.FromSlash(rec.Path)))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rec.Path, err)
	}
	doc := frontmatter.Parse(src)
	if doc.Err != nil {
		return "", fmt.Errorf("%s: %w", rec.Path, doc.Err)
	}
	if res.SEOSuggestions.MetaDescription != "" {
		doc.Fields["meta_description"] = res.SEOSuggestions.MetaDescription
	}
	body := doc.Body
	if res.ImprovedContent != "" {
		body = res.ImprovedContent
	}
	fields := frontmatter.FromMap(doc.Fields, "title", "date", "category", "tags", "summary", "published")
	out, err := frontmatter.Compose(fields, body)
	if err != nil {
		return "", err
	}
	location, err := a.publishStore.Put(ctx, publish.PutRequest{
		Path:    rec.Path,
		Content: out,
		Message: "chore(optimize): " + path.Base(rec.Path),
	})
	if err != nil {
		return "", err
	}
	a.Echo.Logger.Infof("workflow: optimized %s via %s", location, a.publishStore.Mode())
	return location, nil
}

// postDigests condenses every published post.
func (a *App) postDigests(ctx context.Context) ([]enrich.PostDigest, error) {
	recs, err := a.Content.ListAll(ctx, content.KindPost)
	if err != nil {
		return nil, err
	}
	digests := make([]enrich.PostDigest, 0, len(recs))
	for _, r := range recs {
		digests = append(digests, enrich.Digest(r))
	}
	return digests, nil
}

func decodeOptions(raw json.RawMessage, target any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return badRequest("invalid options: %v", err)
	}
	return nil
}
