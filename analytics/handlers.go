package analytics

import (
	"context"
	"net/http"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"

	"github.com/eringen/quill/content"
)

// Limiter admits or rejects a request keyed by client address.
type Limiter interface {
	Allow(key string) bool
}

// Handler serves the collect beacon and the stats report.
type Handler struct {
	store    *Store
	limiter  Limiter
	exists   func(ctx context.Context, kind content.Kind, slug string) error
	siteHost string
	now      func() time.Time
}

type HandlerOption func(*Handler)

// WithLimiter rate-limits the collect endpoint.
func WithLimiter(l Limiter) HandlerOption {
	return func(h *Handler) { h.limiter = l }
}

// WithRecordCheck rejects views of records for which exists returns an error.
func WithRecordCheck(exists func(ctx context.Context, kind content.Kind, slug string) error) HandlerOption {
	return func(h *Handler) { h.exists = exists }
}

// WithSiteURL treats referrers from siteURL's host as direct traffic.
func WithSiteURL(siteURL string) HandlerOption {
	return func(h *Handler) {
		if u, err := url.Parse(siteURL); err == nil {
			h.siteHost = u.Hostname()
		}
	}
}

func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

func NewHandler(store *Store, opts ...HandlerOption) *Handler {
	h := &Handler{store: store, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// CollectRequest is the beacon body sent when a record is opened.
type CollectRequest struct {
	Kind      string `json:"kind"`
	Slug      string `json:"slug"`
	Referrer  string `json:"referrer"`
	UserAgent string `json:"user_agent"`
}

func (r CollectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Kind, validation.Required, validation.By(func(v any) error {
			_, err := content.ParseKind(v.(string))
			return err
		})),
		validation.Field(&r.Slug, validation.Required, validation.By(func(v any) error {
			if !content.ValidSlug(v.(string)) {
				return validation.NewError("validation_slug", "must be a valid slug")
			}
			return nil
		})),
		validation.Field(&r.Referrer, validation.Length(0, 2048)),
		validation.Field(&r.UserAgent, validation.Length(0, 512)),
	)
}

type errorBody struct {
	Error string `json:"error"`
}

// Collect records one view. Requests carrying DNT: 1 are acknowledged and
// dropped.
func (h *Handler) Collect(c echo.Context) error {
	if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
		return c.NoContent(http.StatusTooManyRequests)
	}
	if c.Request().Header.Get("DNT") == "1" {
		return c.NoContent(http.StatusNoContent)
	}

	var req CollectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	}
	kind, _ := content.ParseKind(req.Kind)
	ctx := c.Request().Context()
	if h.exists != nil {
		if err := h.exists(ctx, kind, req.Slug); err != nil {
			return c.JSON(http.StatusNotFound, errorBody{Error: "not found"})
		}
	}

	ua := req.UserAgent
	if ua == "" {
		ua = c.Request().UserAgent()
	}
	browser, device := ParseUserAgent(ua)
	view := View{
		Kind:      kind,
		Slug:      req.Slug,
		VisitorID: h.store.Hasher().VisitorID(c.RealIP(), ua),
		Referrer:  CleanReferrer(req.Referrer, h.siteHost),
		Browser:   browser,
		Device:    device,
		Bot:       BotName(ua),
		At:        h.now(),
	}
	if err := h.store.Record(ctx, view); err != nil {
		c.Logger().Errorf("analytics: %v", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Stats reports aggregates for ?period=today|week|month|year.
func (h *Handler) Stats(c echo.Context) error {
	p := ParsePeriod(c.QueryParam("period"))
	from, to := p.Range(h.now())
	st, err := h.store.Stats(c.Request().Context(), p.Name, from, to)
	if err != nil {
		c.Logger().Errorf("analytics: %v", err)
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
	return c.JSON(http.StatusOK, st)
}

// RegisterRoutes mounts the collect beacon on api and the report behind admin.
func (h *Handler) RegisterRoutes(api *echo.Group, admin echo.MiddlewareFunc) {
	api.POST("/analytics/collect", h.Collect)
	api.GET("/analytics/stats", h.Stats, admin)
}
