package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type contextKey string

func (c contextKey) String() string {
	return "atelier/config/" + string(c)
}

const (
	ctxKeyConfiguration = contextKey("configurationKey")

	DefaultSiteURL              = "https://renovo-atelier.pl"
	DefaultEmailWidgetScriptURL = "https://cdn.jsdelivr.net/npm/@emailjs/browser@4/dist/email.min.js"
	DefaultHtmxScriptURL        = "https://unpkg.com/htmx.org@2.0.4"
)

// ToContext adds service configuration to the current supplied context.
func ToContext(ctx context.Context, config any) context.Context {
	return context.WithValue(ctx, ctxKeyConfiguration, config)
}

// FromContext extracts service configuration from the supplied context if any exist.
func FromContext[T any](ctx context.Context) T {
	if cfg, ok := ctx.Value(ctxKeyConfiguration).(T); ok {
		return cfg
	}
	var zero T
	return zero
}

// FromEnv convenience method to process configs.
func FromEnv[T any]() (T, error) {
	return env.ParseAs[T]()
}

// FillEnv convenience method to fill a config object with environment data.
func FillEnv(v any) error {
	return env.Parse(v)
}

type ConfigurationDefault struct {
	LogLevel      string `envDefault:"info"                      env:"LOG_LEVEL"       yaml:"log_level"`
	LogFormat     string `envDefault:"text"                      env:"LOG_FORMAT"      yaml:"log_format"`
	LogTimeFormat string `envDefault:"2006-01-02T15:04:05Z07:00" env:"LOG_TIME_FORMAT" yaml:"log_time_format"`
	LogColored    bool   `envDefault:"true"                      env:"LOG_COLORED"     yaml:"log_colored"`

	LogShowStackTrace bool `envDefault:"false" env:"LOG_SHOW_STACK_TRACE" yaml:"log_show_stack_trace"`

	TraceRequests bool `envDefault:"false" env:"TRACE_REQUESTS" yaml:"trace_requests"`

	OpenTelemetryDisable    bool    `envDefault:"false" env:"OPENTELEMETRY_DISABLE"        yaml:"opentelemetry_disable"`
	OpenTelemetryTraceRatio float64 `envDefault:"0.1"   env:"OPENTELEMETRY_TRACE_ID_RATIO" yaml:"opentelemetry_trace_id_ratio"`

	ServiceName        string `envDefault:"atelier" env:"SERVICE_NAME"        yaml:"service_name"`
	ServiceEnvironment string `envDefault:""        env:"SERVICE_ENVIRONMENT" yaml:"service_environment"`
	ServiceVersion     string `envDefault:""        env:"SERVICE_VERSION"     yaml:"service_version"`

	HTTPServerPort string `envDefault:":8080" env:"HTTP_PORT" yaml:"http_server_port"`

	SiteURLValue         string `envDefault:"https://renovo-atelier.pl" env:"SITE_URL"                yaml:"site_url"`
	TranslationsPath     string `envDefault:""                          env:"TRANSLATIONS_PATH"       yaml:"translations_path"`
	EmailWidgetScriptURL string `envDefault:""                          env:"EMAIL_WIDGET_SCRIPT_URL" yaml:"email_widget_script_url"`
	HtmxScriptURL        string `envDefault:""                          env:"HTMX_SCRIPT_URL"         yaml:"htmx_script_url"`

	BasketCacheURI   string `envDefault:"mem://basket" env:"BASKET_CACHE_URI"   yaml:"basket_cache_uri"`
	BasketSessionTTL string `envDefault:"720h"         env:"BASKET_SESSION_TTL" yaml:"basket_session_ttl"`

	RateLimitRequestsPerSecond float64 `envDefault:"5"  env:"RATE_LIMIT_RPS"   yaml:"rate_limit_rps"`
	RateLimitBurst             int     `envDefault:"10" env:"RATE_LIMIT_BURST" yaml:"rate_limit_burst"`

	ExportBucketURL   string `envDefault:"file:///tmp/atelier-export" env:"EXPORT_BUCKET_URL"  yaml:"export_bucket_url"`
	ExportConcurrency int    `envDefault:"4"                          env:"EXPORT_CONCURRENCY" yaml:"export_concurrency"`
}

type ConfigurationService interface {
	Name() string
	Environment() string
	Version() string
}

var _ ConfigurationService = new(ConfigurationDefault)

func (c *ConfigurationDefault) Name() string {
	return c.ServiceName
}
func (c *ConfigurationDefault) Environment() string {
	return c.ServiceEnvironment
}
func (c *ConfigurationDefault) Version() string {
	return c.ServiceVersion
}

type ConfigurationLogLevel interface {
	LoggingLevel() string
	LoggingFormat() string
	LoggingTimeFormat() string
	LoggingShowStackTrace() bool
	LoggingColored() bool
	LoggingLevelIsDebug() bool
}

var _ ConfigurationLogLevel = new(ConfigurationDefault)

func (c *ConfigurationDefault) LoggingLevel() string {
	return c.LogLevel
}

func (c *ConfigurationDefault) LoggingTimeFormat() string {
	return c.LogTimeFormat
}

func (c *ConfigurationDefault) LoggingFormat() string {
	return c.LogFormat
}

func (c *ConfigurationDefault) LoggingColored() bool {
	return c.LogColored
}

func (c *ConfigurationDefault) LoggingShowStackTrace() bool {
	return c.LogShowStackTrace
}

func (c *ConfigurationDefault) LoggingLevelIsDebug() bool {
	return c.LoggingLevel() == "debug" || c.LoggingLevel() == "trace"
}

type ConfigurationTraceRequests interface {
	TraceReq() bool
}

var _ ConfigurationTraceRequests = new(ConfigurationDefault)

func (c *ConfigurationDefault) TraceReq() bool {
	return c.TraceRequests
}

type ConfigurationTelemetry interface {
	DisableOpenTelemetry() bool
	SamplingRatio() float64
}

var _ ConfigurationTelemetry = new(ConfigurationDefault)

func (c *ConfigurationDefault) DisableOpenTelemetry() bool {
	return c.OpenTelemetryDisable
}

// SamplingRatio is the share of root traces recorded, clamped to [0, 1].
func (c *ConfigurationDefault) SamplingRatio() float64 {
	return min(max(c.OpenTelemetryTraceRatio, 0), 1)
}

type ConfigurationPorts interface {
	HTTPPort() string
}

var _ ConfigurationPorts = new(ConfigurationDefault)

func (c *ConfigurationDefault) HTTPPort() string {
	if i, err := strconv.Atoi(c.HTTPServerPort); err == nil && i > 0 {
		return fmt.Sprintf(":%s", strings.TrimSpace(c.HTTPServerPort))
	}

	if strings.HasPrefix(c.HTTPServerPort, ":") || strings.Contains(c.HTTPServerPort, ":") {
		return c.HTTPServerPort
	}

	return ":8080"
}

// ConfigurationSite describes where the site is published and which
// external scripts its pages load.
type ConfigurationSite interface {
	SiteURL() string
	TranslationsDir() string
	EmailWidgetScript() string
	HtmxScript() string
}

var _ ConfigurationSite = new(ConfigurationDefault)

func (c *ConfigurationDefault) SiteURL() string {
	if c.SiteURLValue == "" {
		return DefaultSiteURL
	}
	return strings.TrimRight(c.SiteURLValue, "/")
}

// TranslationsDir is an override directory for the message catalogs.
// Empty means the catalogs compiled into the binary.
func (c *ConfigurationDefault) TranslationsDir() string {
	return c.TranslationsPath
}

func (c *ConfigurationDefault) EmailWidgetScript() string {
	if c.EmailWidgetScriptURL == "" {
		return DefaultEmailWidgetScriptURL
	}
	return c.EmailWidgetScriptURL
}

func (c *ConfigurationDefault) HtmxScript() string {
	if c.HtmxScriptURL == "" {
		return DefaultHtmxScriptURL
	}
	return c.HtmxScriptURL
}

type ConfigurationBasket interface {
	GetBasketCacheURI() string
	GetBasketSessionTTL() time.Duration
	GetRateLimit() (float64, int)
}

var _ ConfigurationBasket = new(ConfigurationDefault)

func (c *ConfigurationDefault) GetBasketCacheURI() string {
	if strings.TrimSpace(c.BasketCacheURI) == "" {
		return "mem://basket"
	}
	return c.BasketCacheURI
}

func (c *ConfigurationDefault) GetBasketSessionTTL() time.Duration {
	if d, err := time.ParseDuration(c.BasketSessionTTL); err == nil && d > 0 {
		return d
	}
	return 30 * 24 * time.Hour
}

// GetRateLimit returns the sustained rate and burst allowed per client
// on basket mutations. A non positive rate disables limiting.
func (c *ConfigurationDefault) GetRateLimit() (float64, int) {
	burst := c.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	return c.RateLimitRequestsPerSecond, burst
}

type ConfigurationExport interface {
	GetExportBucketURL() string
	GetExportConcurrency() int
}

var _ ConfigurationExport = new(ConfigurationDefault)

func (c *ConfigurationDefault) GetExportBucketURL() string {
	return c.ExportBucketURL
}

func (c *ConfigurationDefault) GetExportConcurrency() int {
	if c.ExportConcurrency <= 0 {
		return 1
	}
	return c.ExportConcurrency
}
