package quill

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

// ErrBadCredentials is returned by an IdentityVerifier that rejects a login.
var ErrBadCredentials = errors.New("invalid email or password")

// Identity is a verified user.
type Identity struct {
	Email string
}

// IdentityVerifier is the identity oracle behind /api/session. The session
// it produces only gates editor UI; no content pipeline route consults it.
type IdentityVerifier interface {
	Verify(ctx context.Context, email, password string) (Identity, error)
}

// PasswordVerifier accepts any email paired with the configured password.
// An empty Password rejects every login.
type PasswordVerifier struct {
	Password string
}

func (v PasswordVerifier) Verify(_ context.Context, email, password string) (Identity, error) {
	email = strings.TrimSpace(email)
	if v.Password == "" || email == "" {
		return Identity{}, ErrBadCredentials
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(v.Password)) != 1 {
		return Identity{}, ErrBadCredentials
	}
	return Identity{Email: email}, nil
}

type sessionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
	Admin         bool   `json:"admin"`
}

func (a *App) sessionState(c echo.Context) sessionResponse {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return sessionResponse{}
	}
	auth, _ := sess.Values["authenticated"].(bool)
	email, _ := sess.Values["email"].(string)
	if !auth {
		return sessionResponse{}
	}
	return sessionResponse{Authenticated: true, Email: email, Admin: a.isAdminEmail(email)}
}

func (a *App) isAdminEmail(email string) bool {
	admin := strings.TrimSpace(a.Config.AdminEmail)
	return admin != "" && strings.EqualFold(strings.TrimSpace(email), admin)
}

// IsAdmin reports whether the current session belongs to the admin email.
func (a *App) IsAdmin(c echo.Context) bool {
	return a.sessionState(c).Admin
}

// requireAdmin rejects requests whose session is not the admin's.
func (a *App) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		st := a.sessionState(c)
		switch {
		case !st.Authenticated:
			return c.JSON(http.StatusUnauthorized, errorBody{Error: "authentication required"})
		case !st.Admin:
			return c.JSON(http.StatusForbidden, errorBody{Error: "forbidden"})
		}
		return next(c)
	}
}

func (a *App) handleSessionGet(c echo.Context) error {
	return c.JSON(http.StatusOK, a.sessionState(c))
}

func (a *App) handleSessionCreate(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.JSON(http.StatusTooManyRequests, errorBody{Error: "too many login attempts, try again later"})
	}
	var req sessionRequest
	if err := c.Bind(&req); err != nil {
		return apiError(c, badRequest("invalid request body"))
	}
	id, err := a.identity.Verify(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		a.loginLimiter.Record(ip)
		if errors.Is(err, ErrBadCredentials) {
			return c.JSON(http.StatusUnauthorized, errorBody{Error: err.Error()})
		}
		return apiError(c, err)
	}
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return apiError(c, err)
	}
	sess.Values["authenticated"] = true
	sess.Values["email"] = id.Email
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, sessionResponse{Authenticated: true, Email: id.Email, Admin: a.isAdminEmail(id.Email)})
}

func handleSessionDelete(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return apiError(c, err)
	}
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, sessionResponse{})
}
