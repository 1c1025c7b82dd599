package quill

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/quill/content"
)

// records never serializes as null.
func records(rs []content.Record) []content.Record {
	if rs == nil {
		return []content.Record{}
	}
	return rs
}

func (a *App) kindParam(c echo.Context) (content.Kind, error) {
	return content.ParseKind(c.Param("kind"))
}

func (a *App) handleList(c echo.Context) error {
	kind, err := a.kindParam(c)
	if err != nil {
		return apiError(c, err)
	}
	ctx := c.Request().Context()
	var rs []content.Record
	if category := strings.TrimSpace(c.QueryParam("category")); category != "" {
		rs, err = a.Query.ByCategory(ctx, kind, category)
	} else {
		rs, err = a.Content.ListAll(ctx, kind)
	}
	if err != nil {
		return apiError(c, err)
	}
	if tag := c.QueryParam("tag"); tag != "" {
		rs = content.FilterByTag(rs, tag)
	}
	return c.JSON(http.StatusOK, records(rs))
}

func (a *App) record(c echo.Context) (content.Record, error) {
	kind, err := a.kindParam(c)
	if err != nil {
		return content.Record{}, err
	}
	return a.Content.GetBySlug(c.Request().Context(), kind, c.Param("slug"))
}

func (a *App) handleGet(c echo.Context) error {
	rec, err := a.record(c)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// handleGetHTML renders the record body as an HTML fragment.
func (a *App) handleGetHTML(c echo.Context) error {
	rec, err := a.record(c)
	if err != nil {
		return apiError(c, err)
	}
	return Render(c, a.Renderer.Component(rec.Body))
}

func (a *App) handleRelated(c echo.Context) error {
	rec, err := a.record(c)
	if err != nil {
		return apiError(c, err)
	}
	all, err := a.Content.ListAll(c.Request().Context(), rec.Kind)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, records(FilterRelated(rec, all)))
}

func (a *App) handleJSONLD(c echo.Context) error {
	rec, err := a.record(c)
	if err != nil {
		return apiError(c, err)
	}
	return c.Blob(http.StatusOK, "application/ld+json", []byte(RecordJsonLD(rec, a.Config)))
}

func (a *App) handleTags(c echo.Context) error {
	kind, err := a.kindParam(c)
	if err != nil {
		return apiError(c, err)
	}
	tags, err := a.Query.Tags(c.Request().Context(), kind)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, tags)
}

// handleView serves one of the canned query-layer views.
func (a *App) handleView(view func(context.Context) ([]content.Record, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		rs, err := view(c.Request().Context())
		if err != nil {
			return apiError(c, err)
		}
		return c.JSON(http.StatusOK, records(rs))
	}
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Content.ListAll(c.Request().Context(), content.KindPost)
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleSitemap(c echo.Context) error {
	all, err := a.Query.All(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, all)
}

type healthResponse struct {
	OK     bool         `json:"ok"`
	GitHub healthGitHub `json:"github"`
	AI     healthAI     `json:"ai"`
	Env    healthEnv    `json:"env"`
	Time   string       `json:"time"`
}

type healthGitHub struct {
	HasToken bool   `json:"has_token"`
	Repo     string `json:"repo"`
	Branch   string `json:"branch"`
}

type healthAI struct {
	HasKey bool `json:"has_key"`
}

type healthEnv struct {
	ReadOnly bool   `json:"read_only"`
	Mode     string `json:"mode"`
}

// handleHealth reports which integrations are configured without exposing
// any secret value.
func (a *App) handleHealth(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, healthResponse{
		OK: true,
		GitHub: healthGitHub{
			HasToken: a.Config.GitHub.Token != "",
			Repo:     a.Config.GitHub.Repository,
			Branch:   a.Config.GitHub.Branch,
		},
		AI:   healthAI{HasKey: a.AI.Configured()},
		Env:  healthEnv{ReadOnly: a.Config.ReadOnly, Mode: a.Writer.Mode()},
		Time: a.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}
