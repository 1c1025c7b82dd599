package quill

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/quill/enrich"
	"github.com/eringen/quill/publish"
)

// SiteConfig holds all configuration for a quill site. It is resolved once
// at startup; handlers never read the environment themselves.
type SiteConfig struct {
	Name        string // Site name (default "Quill")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS
	Author      string // Author name for JSON-LD

	Addr               string // Listen address (default ":3000")
	ContentDir         string // Content root holding posts/, events/, creative/, tasks/ (default "content")
	StaticDir          string // Static assets and uploads (default "public")
	DraftsDatabasePath string // SQLite path for editor drafts (default "data/drafts.db")

	AnalyticsDatabasePath  string // SQLite path for view counts (default "data/analytics.db")
	AnalyticsRetentionDays int    // Views older than this are pruned (default 365)

	// ReadOnly selects the GitHub commit path for the Document Writer, for
	// hosts whose filesystem cannot be written.
	ReadOnly bool
	GitHub   GitHubConfig
	OpenAI   OpenAIConfig

	AdminEmail    string // Identity whose session is reported as admin
	AdminPassword string // Password accepted by the default identity verifier
	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	AIRateLimit    int // Enrichment calls per IP per minute (default 30)
	LoginRateLimit int // Session attempts per IP per minute (default 5)
}

type GitHubConfig struct {
	Token      string
	Repository string // owner/repo
	Branch     string // default "main"
	APIBase    string // default "https://api.github.com"
	Prefix     string // repo-relative content root (default "content")
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string // default enrich.DefaultBaseURL
	Model   string // default enrich.DefaultModel
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Quill"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.ContentDir == "" {
		c.ContentDir = "content"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.DraftsDatabasePath == "" {
		c.DraftsDatabasePath = "data/drafts.db"
	}
	if c.AnalyticsDatabasePath == "" {
		c.AnalyticsDatabasePath = "data/analytics.db"
	}
	if c.AnalyticsRetentionDays == 0 {
		c.AnalyticsRetentionDays = 365
	}
	if c.GitHub.Branch == "" {
		c.GitHub.Branch = "main"
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = enrich.DefaultBaseURL
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = enrich.DefaultModel
	}
	if c.AIRateLimit == 0 {
		c.AIRateLimit = 30
	}
	if c.LoginRateLimit == 0 {
		c.LoginRateLimit = 5
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are set up.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithCompleter replaces the OpenAI client built from OpenAIConfig.
func WithCompleter(c enrich.Completer) Option {
	return func(a *App) {
		a.completer = c
	}
}

// WithPublishStore replaces the document store chosen from ReadOnly.
func WithPublishStore(s publish.Store) Option {
	return func(a *App) {
		a.publishStore = s
	}
}

// WithIdentityVerifier replaces the password verifier used by /api/session.
func WithIdentityVerifier(v IdentityVerifier) Option {
	return func(a *App) {
		a.identity = v
	}
}

// WithClock sets the time source used for dates and queries.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the logger shared by the server and the content pipeline.
func WithLogger(l echo.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.Echo.Logger = l
		}
	}
}
