package herald

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/eringen/herald/graphql"
	"github.com/eringen/herald/views"
)

// SiteConfig holds all configuration for a herald site.
type SiteConfig struct {
	Name        string `mapstructure:"name"`        // Site name (default "Blog")
	URL         string `mapstructure:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `mapstructure:"description"` // Site description for RSS and meta tags
	Author      string `mapstructure:"author"`      // Author name for JSON-LD

	GraphQLURL        string  `mapstructure:"graphql_url"`   // Required: WPGraphQL endpoint
	GraphQLToken      string  `mapstructure:"graphql_token"` // Optional bearer token
	PageSize          int     `mapstructure:"page_size"`     // Items per list request (default 100)
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`

	RetryMode    string        `mapstructure:"retry_mode"` // fixed|linear|exponential
	RetryInitial time.Duration `mapstructure:"retry_initial"`
	RetryMax     time.Duration `mapstructure:"retry_max"`
	RetryCount   *int          `mapstructure:"retry_count"` // nil keeps the default of 3, 0 disables retries

	ContentTypes []ContentType `mapstructure:"content_types"` // default DefaultContentTypes()
	Concurrency  int           `mapstructure:"concurrency"`   // page registration/render workers (default 8)
	SanitizeHTML bool          `mapstructure:"sanitize_html"` // run WordPress HTML through bluemonday

	OutputDir    string `mapstructure:"output_dir"`    // Generated site (default "public")
	StaticDir    string `mapstructure:"static_dir"`    // Copied verbatim into OutputDir when set
	Addr         string `mapstructure:"addr"`          // Listen address (default ":3000")
	DatabasePath string `mapstructure:"database_path"` // SQLite path (default "data/herald.db")

	AdminPassword   string        `mapstructure:"admin_password"` // Console login password
	SessionSecret   string        `mapstructure:"session_secret"` // Console session encryption secret
	CookieSecure    bool          `mapstructure:"cookie_secure"`  // Set true for HTTPS
	WebhookToken    string        `mapstructure:"webhook_token"`  // Shared secret for /hooks/rebuild
	RebuildSchedule string        `mapstructure:"rebuild_schedule"`
	HistoryCacheTTL time.Duration `mapstructure:"history_cache_ttl"` // Console build list cache (default 30s)

	LogFormat string `mapstructure:"log_format"` // text|json
	LogLevel  string `mapstructure:"log_level"`  // debug|info|warn|error
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimSuffix(c.URL, "/")
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if len(c.ContentTypes) == 0 {
		c.ContentTypes = DefaultContentTypes()
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 8
	}
	if c.OutputDir == "" {
		c.OutputDir = "public"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/herald.db"
	}
	if c.HistoryCacheTTL == 0 {
		c.HistoryCacheTTL = 30 * time.Second
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Normalize fills defaults in place.
func (c *SiteConfig) Normalize() {
	c.setDefaults()
}

// Validate checks the fields a build cannot run without.
func (c SiteConfig) Validate() error {
	if c.GraphQLURL == "" {
		return fmt.Errorf("herald: GraphQLURL is required")
	}
	seen := make(map[string]bool)
	primary := 0
	for _, ct := range c.ContentTypes {
		if ct.Name == "" || ct.Connection == "" || ct.Template == "" {
			return fmt.Errorf("herald: content type %q needs name, connection and template", ct.Name)
		}
		if seen[ct.Name] {
			return fmt.Errorf("herald: content type %q declared twice", ct.Name)
		}
		seen[ct.Name] = true
		if ct.Primary {
			primary++
		}
	}
	if primary > 1 {
		return fmt.Errorf("herald: at most one primary content type, got %d", primary)
	}
	if c.RetryCount != nil && *c.RetryCount < 0 {
		return fmt.Errorf("herald: retry_count cannot be negative, got %d", *c.RetryCount)
	}
	return c.RetryPolicy().Validate()
}

// RetryPolicy builds the GraphQL client's retry policy.
func (c SiteConfig) RetryPolicy() graphql.Policy {
	retries := -1
	if c.RetryCount != nil {
		retries = *c.RetryCount
	}
	return graphql.NewPolicy(graphql.BackoffMode(c.RetryMode), c.RetryInitial, c.RetryMax, retries)
}

func (c SiteConfig) viewConfig() views.SiteConfig {
	return views.SiteConfig{Name: c.Name, URL: c.URL, Description: c.Description, Author: c.Author}
}

// primaryTemplate is the template of the primary content type, whose pages
// make up the home page and the feed.
func (c SiteConfig) primaryTemplate() string {
	for _, ct := range c.ContentTypes {
		if ct.Primary {
			return ct.Template
		}
	}
	return TemplatePost
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStore attaches the build history store.
func WithStore(s *Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
