package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/eringen/quill"
)

// fileConfig mirrors quill.yaml. Every key can also be set through a
// QUILL_-prefixed environment variable, e.g. QUILL_GITHUB_TOKEN.
type fileConfig struct {
	Name        string `mapstructure:"name"`
	URL         string `mapstructure:"url"`
	Description string `mapstructure:"description"`
	Author      string `mapstructure:"author"`
	Addr        string `mapstructure:"addr"`
	ContentDir  string `mapstructure:"content_dir"`
	StaticDir   string `mapstructure:"static_dir"`
	DraftsDB    string `mapstructure:"drafts_db"`
	AnalyticsDB string `mapstructure:"analytics_db"`
	ReadOnly    bool   `mapstructure:"read_only"`

	AnalyticsRetentionDays int `mapstructure:"analytics_retention_days"`

	GitHub struct {
		Token      string `mapstructure:"token"`
		Repository string `mapstructure:"repository"`
		Branch     string `mapstructure:"branch"`
		APIBase    string `mapstructure:"api_base"`
		Prefix     string `mapstructure:"prefix"`
	} `mapstructure:"github"`

	OpenAI struct {
		APIKey  string `mapstructure:"api_key"`
		BaseURL string `mapstructure:"base_url"`
		Model   string `mapstructure:"model"`
	} `mapstructure:"openai"`

	Admin struct {
		Email    string `mapstructure:"email"`
		Password string `mapstructure:"password"`
	} `mapstructure:"admin"`

	SessionSecret  string `mapstructure:"session_secret"`
	CookieSecure   bool   `mapstructure:"cookie_secure"`
	AIRateLimit    int    `mapstructure:"ai_rate_limit"`
	LoginRateLimit int    `mapstructure:"login_rate_limit"`
}

// envAliases binds the conventional un-prefixed variable names alongside
// the QUILL_ ones. The first non-empty variable wins.
var envAliases = map[string][]string{
	"github.token":      {"QUILL_GITHUB_TOKEN", "GITHUB_TOKEN", "GITHUB_PERSONAL_TOKEN"},
	"github.repository": {"QUILL_GITHUB_REPOSITORY", "GITHUB_REPOSITORY"},
	"github.branch":     {"QUILL_GITHUB_BRANCH", "GITHUB_BRANCH"},
	"openai.api_key":    {"QUILL_OPENAI_API_KEY", "OPENAI_API_KEY"},
	"session_secret":    {"QUILL_SESSION_SECRET", "SESSION_SECRET"},
	"admin.email":       {"QUILL_ADMIN_EMAIL", "ADMIN_EMAIL"},
	"admin.password":    {"QUILL_ADMIN_PASSWORD", "ADMIN_PASSWORD"},
}

// loadConfig resolves the site configuration once: defaults, then the
// config file, then the environment. getenv is consulted only for the
// hosting flags that switch the writer to read-only mode.
func loadConfig(cfgFile string, getenv func(string) string) (quill.SiteConfig, string, error) {
	v := viper.New()

	v.SetDefault("content_dir", "content")
	v.SetDefault("static_dir", "public")
	v.SetDefault("drafts_db", "data/drafts.db")
	v.SetDefault("analytics_db", "data/analytics.db")
	v.SetDefault("addr", ":3000")
	v.SetDefault("read_only", false)
	v.SetDefault("cookie_secure", false)
	// Registered so AutomaticEnv and Unmarshal see them without a file.
	for _, key := range []string{
		"name", "url", "description", "author",
		"github.api_base", "github.prefix", "openai.base_url", "openai.model",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("ai_rate_limit", 0)
	v.SetDefault("login_rate_limit", 0)
	v.SetDefault("analytics_retention_days", 0)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("quill")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("QUILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return quill.SiteConfig{}, "", fmt.Errorf("bind %s: %w", key, err)
		}
	}

	used := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return quill.SiteConfig{}, "", fmt.Errorf("read config: %w", err)
		}
	} else {
		used = v.ConfigFileUsed()
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return quill.SiteConfig{}, "", fmt.Errorf("decode config: %w", err)
	}

	// Hosted builds cannot write their own filesystem.
	readOnly := fc.ReadOnly || getenv("NETLIFY") != "" || getenv("VERCEL") != ""

	return quill.SiteConfig{
		Name:                   fc.Name,
		URL:                    fc.URL,
		Description:            fc.Description,
		Author:                 fc.Author,
		Addr:                   fc.Addr,
		ContentDir:             fc.ContentDir,
		StaticDir:              fc.StaticDir,
		DraftsDatabasePath:     fc.DraftsDB,
		AnalyticsDatabasePath:  fc.AnalyticsDB,
		AnalyticsRetentionDays: fc.AnalyticsRetentionDays,
		ReadOnly:               readOnly,
		GitHub: quill.GitHubConfig{
			Token:      fc.GitHub.Token,
			Repository: fc.GitHub.Repository,
			Branch:     fc.GitHub.Branch,
			APIBase:    fc.GitHub.APIBase,
			Prefix:     fc.GitHub.Prefix,
		},
		OpenAI: quill.OpenAIConfig{
			APIKey:  fc.OpenAI.APIKey,
			BaseURL: fc.OpenAI.BaseURL,
			Model:   fc.OpenAI.Model,
		},
		AdminEmail:     fc.Admin.Email,
		AdminPassword:  fc.Admin.Password,
		SessionSecret:  fc.SessionSecret,
		CookieSecure:   fc.CookieSecure,
		AIRateLimit:    fc.AIRateLimit,
		LoginRateLimit: fc.LoginRateLimit,
	}, used, nil
}
