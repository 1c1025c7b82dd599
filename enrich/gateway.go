package enrich

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

var (
	// ErrInvalidInput marks a request rejected before contacting the service.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotConfigured is returned when no completion service is available.
	ErrNotConfigured = errors.New("completion service not configured")
)

// Gateway runs enrichment tasks against a Completer.
type Gateway struct {
	completer Completer
	logger    echo.Logger
	now       func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

func WithLogger(l echo.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGateway creates a Gateway. A nil completer is allowed: every task then
// validates its input and fails with ErrNotConfigured.
func NewGateway(c Completer, opts ...Option) *Gateway {
	g := &Gateway{
		completer: c,
		logger:    log.New("enrich"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Configured reports whether a completion service is attached.
func (g *Gateway) Configured() bool { return g.completer != nil }

func (g *Gateway) complete(ctx context.Context, task string, p Prompt) (string, error) {
	if g.completer == nil {
		return "", ErrNotConfigured
	}
	raw, err := g.completer.Complete(ctx, p)
	if err != nil {
		g.logger.Errorf("enrich %s: %v", task, err)
		return "", err
	}
	return raw, nil
}

// degrade reports whether a task with a fallback may swallow err.
func degrade(err error) bool {
	return !errors.Is(err, ErrNotConfigured) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// invalid flattens ozzo validation errors into one readable message.
func invalid(err error) error {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, errs[k].Error())
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}

func required(msg string) validation.Rule {
	return validation.By(func(value any) error {
		if s, _ := value.(string); strings.TrimSpace(s) == "" {
			return validation.NewError("validation_required", msg)
		}
		return nil
	})
}

func minRunes(n int, msg string) validation.Rule {
	return validation.By(func(value any) error {
		if s, _ := value.(string); utf8.RuneCountInString(s) < n {
			return validation.NewError("validation_too_short", msg)
		}
		return nil
	})
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
