// Package quill serves a file-based personal publishing system over HTTP.
// Four kinds of documents (posts, events, creative pieces and tasks) live as
// front-matter Markdown files under a content root; quill lists and queries
// them, writes new ones to disk or to a GitHub repository, keeps editor
// drafts in SQLite, and proxies AI enrichment tasks to a chat-completion
// service.
package quill

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/quill/analytics"
	"github.com/eringen/quill/content"
	"github.com/eringen/quill/drafts"
	"github.com/eringen/quill/enrich"
	"github.com/eringen/quill/markdown"
	"github.com/eringen/quill/publish"
)

// App is the central quill application. It wires the content pipeline,
// drafts and analytics databases, enrichment gateway, handlers and
// middleware together.
type App struct {
	Config    SiteConfig
	Echo      *echo.Echo
	Content   *content.Repository
	Query     *content.Query
	Writer    *publish.Writer
	Drafts    *drafts.Store
	Analytics *analytics.Store
	AI        *enrich.Gateway
	Renderer  *markdown.Renderer

	completer      enrich.Completer
	publishStore   publish.Store
	identity       IdentityVerifier
	loginLimiter   *RateLimiter
	aiLimiter      *RateLimiter
	collectLimiter *RateLimiter
	stopPruning    func()
	customRoutes   []func(*App)
	now            func() time.Time
	ready          bool
}

// New creates a quill App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		now:    time.Now,
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens the drafts database, builds the content pipeline and registers
// middleware and routes. Start calls it; tests call it directly and drive
// a.Echo with httptest.
func (a *App) Init() error {
	if a.ready {
		return nil
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("quill: SessionSecret is required")
	}

	logger := a.Echo.Logger

	store, err := drafts.NewStore(a.Config.DraftsDatabasePath, drafts.WithClock(a.now))
	if err != nil {
		return fmt.Errorf("quill: init drafts store: %w", err)
	}
	a.Drafts = store

	stats, err := analytics.NewStore(a.Config.AnalyticsDatabasePath)
	if err != nil {
		return fmt.Errorf("quill: init analytics store: %w", err)
	}
	a.Analytics = stats
	a.stopPruning = stats.StartPruning(
		time.Duration(a.Config.AnalyticsRetentionDays)*24*time.Hour, 6*time.Hour, logger)

	a.Content = content.NewRepository(a.Config.ContentDir,
		content.WithLogger(logger),
		content.WithClock(a.now),
	)
	a.Query = content.NewQuery(a.Content)

	if a.publishStore == nil {
		a.publishStore = publish.NewStore(publish.StoreConfig{
			ReadOnly:   a.Config.ReadOnly,
			LocalRoot:  a.Config.ContentDir,
			Token:      a.Config.GitHub.Token,
			Repository: a.Config.GitHub.Repository,
			Branch:     a.Config.GitHub.Branch,
			APIBase:    a.Config.GitHub.APIBase,
			Prefix:     a.Config.GitHub.Prefix,
			Committer:  &publish.Committer{Name: a.Config.Name + " Publisher", Email: "noreply@users.noreply.github.com"},
		})
	}
	a.Writer = publish.NewWriter(a.publishStore,
		publish.WithClock(a.now),
		publish.WithLogger(logger),
	)

	if a.completer == nil && a.Config.OpenAI.APIKey != "" {
		a.completer = enrich.NewOpenAIClient(a.Config.OpenAI.BaseURL, a.Config.OpenAI.APIKey, a.Config.OpenAI.Model)
	}
	a.AI = enrich.NewGateway(a.completer,
		enrich.WithLogger(logger),
		enrich.WithClock(a.now),
	)

	a.Renderer = markdown.New()

	if a.identity == nil {
		a.identity = PasswordVerifier{Password: a.Config.AdminPassword}
	}
	a.loginLimiter = NewRateLimiter(a.Config.LoginRateLimit, time.Minute)
	a.aiLimiter = NewRateLimiter(a.Config.AIRateLimit, time.Minute)
	a.collectLimiter = NewRateLimiter(60, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

// Start initializes the App and starts the server.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.Config.StaticDir)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/sitemap.xml", a.handleSitemap)

	api := e.Group("/api")
	api.GET("/health", a.handleHealth)

	api.GET("/content/:kind", a.handleList)
	api.GET("/content/:kind/:slug", a.handleGet)
	api.GET("/content/:kind/:slug/html", a.handleGetHTML)
	api.GET("/content/:kind/:slug/related", a.handleRelated)
	api.GET("/content/:kind/:slug/jsonld", a.handleJSONLD)
	api.GET("/events/upcoming", a.handleView(a.Query.UpcomingEvents))
	api.GET("/events/past", a.handleView(a.Query.PastEvents))
	api.GET("/tasks/overdue", a.handleView(a.Query.OverdueTasks))
	api.GET("/tasks/checkup", a.handleView(a.Query.TasksNeedingCheckup))
	api.GET("/tasks/active", a.handleView(a.Query.ActiveTasks))
	api.GET("/tasks/completed", a.handleView(a.Query.CompletedTasks))
	api.GET("/creative/featured", a.handleView(a.Query.FeaturedCreative))
	api.GET("/feed", a.handleView(a.Query.All))
	api.GET("/tags/:kind", a.handleTags)

	api.POST("/save-post", a.handleSavePost)
	api.POST("/posts/publish-to-files", a.handlePublishToFiles)
	api.POST("/posts/draft", a.handleDraft)
	api.POST("/posts/publish", a.handleDraftPublish)
	api.GET("/posts/drafts/:slug", a.handleDraftGet)
	api.GET("/posts/published", a.handleDraftList)
	api.POST("/upload", a.handleUpload, a.requireAdmin)

	limited := a.rateLimit(a.aiLimiter)
	api.POST("/ai-enrich", enrichHandler(a.AI.Metadata), limited)
	api.POST("/ai-improve", enrichHandler(a.AI.Improve), limited)
	api.POST("/ai-embellish", enrichHandler(a.AI.Embellish), limited)
	api.POST("/ai-questions", enrichHandler(a.AI.Questions), limited)
	api.POST("/ai-mdx", enrichHandler(a.AI.MDX), limited)
	api.POST("/ai-social", enrichHandler(a.AI.Social), limited)
	api.POST("/ai-event", enrichHandler(a.AI.Event), limited)
	api.POST("/ai-creative", enrichHandler(a.AI.Creative), limited)
	api.POST("/ai-analyze", enrichHandler(a.AI.Analyze), limited)
	api.POST("/workflow", a.handleWorkflow, limited)

	analytics.NewHandler(a.Analytics,
		analytics.WithLimiter(a.collectLimiter),
		analytics.WithSiteURL(a.Config.URL),
		analytics.WithClock(a.now),
		analytics.WithRecordCheck(func(ctx context.Context, kind content.Kind, slug string) error {
			_, err := a.Content.GetBySlug(ctx, kind, slug)
			return err
		}),
	).RegisterRoutes(api, a.requireAdmin)

	api.GET("/session", a.handleSessionGet)
	api.POST("/session", a.handleSessionCreate)
	api.DELETE("/session", handleSessionDelete)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.aiLimiter != nil {
		a.aiLimiter.Stop()
	}
	if a.collectLimiter != nil {
		a.collectLimiter.Stop()
	}
	if a.stopPruning != nil {
		a.stopPruning()
	}
	var errs []error
	if a.Analytics != nil {
		errs = append(errs, a.Analytics.Close())
	}
	if a.Drafts != nil {
		errs = append(errs, a.Drafts.Close())
	}
	return errors.Join(errs...)
}
