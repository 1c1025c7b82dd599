package quill

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/quill/content"
	"github.com/eringen/quill/drafts"
	"github.com/eringen/quill/publish"
)

type savePostRequest struct {
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Category  string          `json:"category"`
	Tags      content.TagList `json:"tags"`
	Summary   string          `json:"summary"`
	Published *bool           `json:"published"`
	Slug      string          `json:"slug"`
	Kind      string          `json:"kind"`
	Date      string          `json:"date"`
	Extra     map[string]any  `json:"extra"`
}

type savePostResponse struct {
	Success bool `json:"success"`
	publish.SaveResult
}

// handleSavePost writes a new document from the editor. The target kind
// comes from an explicit kind or the category; published defaults to false.
func (a *App) handleSavePost(c echo.Context) error {
	var req savePostRequest
	if err := c.Bind(&req); err != nil {
		return apiError(c, badRequest("invalid request body"))
	}
	var kind content.Kind
	if req.Kind != "" {
		k, err := content.ParseKind(req.Kind)
		if err != nil {
			return apiError(c, badRequest("%v", err))
		}
		kind = k
	}
	res, err := a.Writer.Save(c.Request().Context(), publish.SaveRequest{
		Kind:      kind,
		Category:  req.Category,
		Slug:      req.Slug,
		Title:     req.Title,
		Body:      req.Content,
		Date:      req.Date,
		Tags:      req.Tags,
		Summary:   req.Summary,
		Published: req.Published,
		Extra:     req.Extra,
	})
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, savePostResponse{Success: true, SaveResult: res})
}

type publishFilesRequest struct {
	Slug    string          `json:"slug"`
	Title   string          `json:"title"`
	Body    string          `json:"body"`
	Summary string          `json:"summary"`
	Tags    content.TagList `json:"tags"`
}

type publishFilesResponse struct {
	OK   bool   `json:"ok"`
	Slug string `json:"slug"`
	Path string `json:"path"`
	Mode string `json:"mode"`
}

// handlePublishToFiles writes a published post document.
func (a *App) handlePublishToFiles(c echo.Context) error {
	var req publishFilesRequest
	if err := c.Bind(&req); err != nil {
		return apiError(c, badRequest("invalid request body"))
	}
	res, err := a.Writer.Save(c.Request().Context(), publish.SaveRequest{
		Kind:             content.KindPost,
		Slug:             req.Slug,
		Title:            req.Title,
		Body:             req.Body,
		Tags:             req.Tags,
		Summary:          req.Summary,
		DefaultPublished: true,
	})
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, publishFilesResponse{OK: true, Slug: res.Slug, Path: res.Path, Mode: res.Mode})
}

type draftRequest struct {
	Slug    string          `json:"slug"`
	Title   string          `json:"title"`
	Body    string          `json:"body"`
	Summary string          `json:"summary"`
	Tags    content.TagList `json:"tags"`
	Author  string          `json:"author"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func (a *App) handleDraft(c echo.Context) error {
	var req draftRequest
	if err := c.Bind(&req); err != nil {
		return apiError(c, badRequest("invalid request body"))
	}
	if _, err := a.Drafts.Upsert(c.Request().Context(), drafts.Draft{
		Slug:    req.Slug,
		Title:   req.Title,
		Body:    req.Body,
		Summary: req.Summary,
		Tags:    req.Tags,
		Author:  req.Author,
	}); err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, okResponse{OK: true})
}

func (a *App) handleDraftPublish(c echo.Context) error {
	var req struct {
		Slug string `json:"slug"`
	}
	if err := c.Bind(&req); err != nil {
		return apiError(c, badRequest("invalid request body"))
	}
	if err := a.Drafts.Publish(c.Request().Context(), req.Slug); err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, okResponse{OK: true})
}

func (a *App) handleDraftGet(c echo.Context) error {
	d, err := a.Drafts.Get(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// handleDraftList lists published drafts, or every draft of ?author=.
func (a *App) handleDraftList(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		list []drafts.Draft
		err  error
	)
	if author := strings.TrimSpace(c.QueryParam("author")); author != "" {
		list, err = a.Drafts.ListByAuthor(ctx, author)
	} else {
		limit, _ := strconv.Atoi(c.QueryParam("limit"))
		list, err = a.Drafts.ListPublished(ctx, limit)
	}
	if err != nil {
		return apiError(c, err)
	}
	if list == nil {
		list = []drafts.Draft{}
	}
	return c.JSON(http.StatusOK, list)
}
