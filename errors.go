package quill

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/quill/content"
	"github.com/eringen/quill/drafts"
	"github.com/eringen/quill/enrich"
	"github.com/eringen/quill/publish"
)

type errorBody struct {
	Error string `json:"error"`
}

// errBadRequest marks request-shape problems found by the handlers
// themselves, such as an undecodable body or an unknown kind.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// statusOf maps pipeline errors to an HTTP status and a client-safe message.
func statusOf(err error) (int, string) {
	var commitErr *publish.CommitError
	var upstreamErr *enrich.UpstreamError
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, publish.ErrInvalidInput),
		errors.Is(err, enrich.ErrInvalidInput),
		errors.Is(err, drafts.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, content.ErrUnknownKind),
		errors.Is(err, content.ErrNotFound),
		errors.Is(err, drafts.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, publish.ErrNotConfigured),
		errors.Is(err, enrich.ErrNotConfigured):
		return http.StatusInternalServerError, err.Error()
	case errors.As(err, &commitErr):
		return http.StatusBadGateway, commitErr.Error()
	case errors.As(err, &upstreamErr):
		return http.StatusInternalServerError, "enrichment service failed"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// apiError writes err as a JSON error response. Server-side failures are
// logged with the request ID.
func apiError(c echo.Context, err error) error {
	code, msg := statusOf(err)
	if code >= http.StatusInternalServerError {
		c.Logger().Errorf("%s %s [%s]: %v", c.Request().Method, c.Path(), requestID(c), err)
	}
	return c.JSON(code, errorBody{Error: msg})
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		_ = apiError(c, err)
		return
	}
	if he.Code >= http.StatusInternalServerError {
		c.Logger().Errorf("server error: %v", err)
	}
	msg := http.StatusText(he.Code)
	if s, ok := he.Message.(string); ok && s != "" {
		msg = s
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	_ = c.JSON(he.Code, errorBody{Error: msg})
}
