// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/catalog-feed/pkg/catalog"
	"github.com/Sternrassler/catalog-feed/pkg/export"
	"github.com/Sternrassler/catalog-feed/pkg/graphql"
	"github.com/Sternrassler/catalog-feed/pkg/logging"
	"github.com/Sternrassler/catalog-feed/pkg/pagination"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the complete service configuration.
type Config struct {
	Upstream UpstreamConfig
	Schedule ScheduleConfig
	Media    MediaConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Server   ServerConfig
	Export   ExportConfig
	Log      LogConfig
}

// UpstreamConfig locates and authenticates the GraphQL upstream.
type UpstreamConfig struct {
	StoreDomain   string        `env:"STORE_DOMAIN" env-description:"Upstream store host, e.g. example.myshopify.com"`
	BaseURL       string        `env:"UPSTREAM_BASE_URL" env-description:"Overrides scheme and host of the upstream"`
	APIVersion    string        `env:"API_VERSION" env-default:"2024-10"`
	AccessToken   string        `env:"ACCESS_TOKEN" env-description:"Upstream access token"`
	TokenHeader   string        `env:"TOKEN_HEADER" env-default:"X-Shopify-Access-Token"`
	UserAgent     string        `env:"USER_AGENT" env-default:"catalog-feed/0.1.0"`
	Timeout       time.Duration `env:"UPSTREAM_TIMEOUT" env-default:"30s"`
	ForceTwoPhase bool          `env:"FORCE_TWO_PHASE" env-default:"false"`
}

// ScheduleConfig paces pagination, detail lookups and throttle retries.
type ScheduleConfig struct {
	PageSize           int           `env:"PAGE_SIZE" env-default:"50"`
	PageDelay          time.Duration `env:"PAGE_DELAY" env-default:"500ms"`
	ItemDelay          time.Duration `env:"ITEM_DELAY" env-default:"250ms"`
	ThrottleBackoff    time.Duration `env:"THROTTLE_BACKOFF" env-default:"2s"`
	MaxThrottleRetries int           `env:"MAX_THROTTLE_RETRIES" env-default:"10"`
	MaxPages           int           `env:"MAX_PAGES" env-default:"1000"`
}

// MediaConfig controls canonicalization of bare media ids.
type MediaConfig struct {
	Namespace   string `env:"MEDIA_NAMESPACE" env-default:"shopify"`
	DefaultType string `env:"MEDIA_DEFAULT_TYPE" env-default:"MediaImage"`
}

// RedisConfig locates the shared cache and cost state store.
type RedisConfig struct {
	Addr     string `env:"REDIS_URL" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

// CacheConfig sets how long a transformed feed is served from cache.
type CacheConfig struct {
	TTL time.Duration `env:"CACHE_TTL" env-default:"1h"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port           string        `env:"PORT" env-default:"8080"`
	APIKey         string        `env:"API_KEY" env-description:"Shared secret expected in X-API-Key"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" env-default:"10m"`
}

// ExportConfig targets the S3 bucket feeds are exported to. An empty bucket disables export.
type ExportConfig struct {
	Bucket          string `env:"EXPORT_S3_BUCKET"`
	Region          string `env:"EXPORT_S3_REGION" env-default:"us-east-1"`
	Endpoint        string `env:"EXPORT_S3_ENDPOINT"`
	Prefix          string `env:"EXPORT_S3_PREFIX" env-default:"feeds"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `env:"EXPORT_S3_PATH_STYLE" env-default:"false"`
}

// LogConfig sets log level and format.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Pretty bool   `env:"LOG_PRETTY" env-default:"false"`
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c Config) Validate() error {
	var errs []error
	if c.Upstream.StoreDomain == "" && c.Upstream.BaseURL == "" {
		errs = append(errs, errors.New("STORE_DOMAIN is required"))
	}
	if c.Upstream.AccessToken == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN is required"))
	}
	if c.Server.APIKey == "" {
		errs = append(errs, errors.New("API_KEY is required"))
	}
	if c.Schedule.PageSize <= 0 || c.Schedule.PageSize > 250 {
		errs = append(errs, fmt.Errorf("PAGE_SIZE must be within 1..250, got %d", c.Schedule.PageSize))
	}
	if c.Schedule.MaxThrottleRetries < 0 {
		errs = append(errs, errors.New("MAX_THROTTLE_RETRIES must not be negative"))
	}
	return errors.Join(errs...)
}

// Store returns the name the store's cache and state keys are scoped by.
func (c Config) Store() string {
	if c.Upstream.StoreDomain != "" {
		return c.Upstream.StoreDomain
	}
	return "default"
}

// GraphQL returns the query executor configuration.
func (c Config) GraphQL() graphql.Config {
	cfg := graphql.DefaultConfig(c.Upstream.StoreDomain, c.Upstream.AccessToken)
	cfg.BaseURL = c.Upstream.BaseURL
	cfg.APIVersion = c.Upstream.APIVersion
	cfg.TokenHeader = c.Upstream.TokenHeader
	cfg.UserAgent = c.Upstream.UserAgent
	cfg.Timeout = c.Upstream.Timeout
	return cfg
}

// PaginationSchedule returns the pacing policy.
func (c Config) PaginationSchedule() pagination.Schedule {
	return pagination.Schedule{
		PageSize:           c.Schedule.PageSize,
		PageDelay:          c.Schedule.PageDelay,
		ItemDelay:          c.Schedule.ItemDelay,
		ThrottleBackoff:    c.Schedule.ThrottleBackoff,
		MaxThrottleRetries: c.Schedule.MaxThrottleRetries,
		MaxPages:           c.Schedule.MaxPages,
	}
}

// Catalog returns the catalog fetcher configuration.
func (c Config) Catalog() catalog.Config {
	return catalog.Config{
		Schedule:      c.PaginationSchedule(),
		ForceTwoPhase: c.Upstream.ForceTwoPhase,
	}
}

// S3 returns the exporter configuration.
func (c Config) S3() export.Config {
	return export.Config{
		Bucket:          c.Export.Bucket,
		Region:          c.Export.Region,
		Prefix:          c.Export.Prefix,
		AccessKeyID:     c.Export.AccessKeyID,
		SecretAccessKey: c.Export.SecretAccessKey,
		Endpoint:        c.Export.Endpoint,
		UsePathStyle:    c.Export.UsePathStyle,
	}
}

// Logging returns the logger configuration.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	return cfg
}
