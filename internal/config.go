package internal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/cmsloader/internal/cache"
	"github.com/starford/cmsloader/internal/discovery"
	"github.com/starford/cmsloader/internal/index"
	"github.com/starford/cmsloader/internal/loader"
	"github.com/starford/cmsloader/internal/remote"
	"github.com/starford/cmsloader/internal/watcher"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Content   ContentConfig     `yaml:"content"`
	Remote    RemoteConfig      `yaml:"remote"`
	Discovery DiscoveryConfig   `yaml:"discovery"`
	Cache     CacheConfig       `yaml:"cache"`
	Index     IndexConfig       `yaml:"index"`
	Watch     WatchConfig       `yaml:"watch"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Content, &c.Remote, &c.Discovery, &c.Cache, &c.Index, &c.Watch, &c.Auth,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ContentConfig describes where content files live locally.
//
// A file of collection c is read from <root>/<prefix>/<c>/<file> for every
// root in order, then from <base>/<prefix>/<c>/<file> for every static base
// URL.
type ContentConfig struct {
	Roots          []string `yaml:"roots"`
	Prefix         string   `yaml:"prefix"`
	Extension      string   `yaml:"extension"`
	StaticBaseURLs []string `yaml:"static_base_urls"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Prefix, validation.Required),
		validation.Field(&c.Extension, validation.Required, validation.By(func(any) error {
			if !strings.HasPrefix(c.Extension, ".") {
				return fmt.Errorf("must start with a dot")
			}
			return nil
		})),
		validation.Field(&c.StaticBaseURLs, validation.Each(validation.By(httpURL))),
	)
}

// RemoteConfig configures the remote contents API, consulted after every
// local source missed.
type RemoteConfig struct {
	Enabled          bool          `yaml:"enabled"`
	BaseURL          string        `yaml:"base_url"`
	Owner            string        `yaml:"owner"`
	Repo             string        `yaml:"repo"`
	Ref              string        `yaml:"ref"`
	Token            string        `yaml:"token"`
	Timeout          time.Duration `yaml:"timeout"`
	SuccessDelay     time.Duration `yaml:"success_delay"`
	FailureDelay     time.Duration `yaml:"failure_delay"`
	BreakerThreshold int           `yaml:"breaker_threshold"`
}

// Validate validates the remote configuration. Owner and repo are only
// required when the remote is enabled.
func (c *RemoteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.By(httpURL)),
		validation.Field(&c.Owner, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Repo, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.SuccessDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.FailureDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.BreakerThreshold, validation.Required, validation.Min(1)),
	)
}

// ClientConfig converts c into a remote client configuration.
func (c *RemoteConfig) ClientConfig() remote.Config {
	return remote.Config{
		BaseURL: c.BaseURL,
		Owner:   c.Owner,
		Repo:    c.Repo,
		Ref:     c.Ref,
		Token:   c.Token,
		Timeout: c.Timeout,
	}
}

// DiscoveryConfig configures how collection file lists are found.
type DiscoveryConfig struct {
	// ScanLocal lists collection directories under the content roots when
	// the remote listing is unavailable.
	ScanLocal bool `yaml:"scan_local"`
	// Manifest is the last-resort file list per collection. It also defines
	// which collections are served. Empty means discovery.DefaultManifest.
	Manifest map[string][]string `yaml:"manifest"`
}

// Validate validates the discovery configuration.
func (c *DiscoveryConfig) Validate() error {
	if len(c.Manifest) == 0 {
		c.Manifest = discovery.DefaultManifest()
	}
	for name := range c.Manifest {
		if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("discovery: invalid collection name %q", name)
		}
	}
	return nil
}

// CacheConfig configures the collection cache.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Second)),
	)
}

// IndexConfig holds the search index database location.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// WatchConfig configures cache invalidation on local file changes.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how cache invalidation is protected:
//   - "disabled" (default): anyone may invalidate, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
//
// Reads are always public.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

func httpURL(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return fmt.Errorf("must be an http(s) URL")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Content: ContentConfig{
			Roots:     []string{"."},
			Prefix:    "_data",
			Extension: ".md",
		},
		Remote: RemoteConfig{
			BaseURL:          remote.DefaultBaseURL,
			Ref:              "main",
			Timeout:          10 * time.Second,
			SuccessDelay:     loader.DefaultSuccessDelay,
			FailureDelay:     loader.DefaultFailureDelay,
			BreakerThreshold: loader.DefaultBreakerThreshold,
		},
		Cache: CacheConfig{
			TTL: cache.DefaultTTL,
		},
		Index: IndexConfig{
			Path: index.MemoryDSN,
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: watcher.DefaultDebounce,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
