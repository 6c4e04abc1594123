package config

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Cookie    CookieConfig
	Commerce  CommerceConfig
	Breaker   BreakerConfig
	Auth      AuthConfig
	Evidence  EvidenceConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// IsProduction reports whether the service runs in production
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	TrustedProxies   []string
	HSTSEnabled      bool // Send Strict-Transport-Security; enable behind TLS

	// RateLimitRequests caps requests per cart session (or client IP) in each
	// RateLimitWindow. Zero disables rate limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// CookieConfig holds the cart session cookie attributes
type CookieConfig struct {
	Domain   string        // Domain for cookies (empty = current domain)
	Path     string        // Path for cookies
	Secure   bool          // Secure flag (should be true in production for HTTPS)
	SameSite string        // SameSite policy: "strict", "lax", or "none"
	MaxAge   time.Duration // Lifetime of cookies written by the service
}

// SameSiteMode maps the configured policy onto http.SameSite
func (c CookieConfig) SameSiteMode() http.SameSite {
	switch strings.ToLower(c.SameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// CommerceConfig holds settings for the external commerce backend
type CommerceConfig struct {
	BaseURL         string
	Timeout         time.Duration // Transport-level timeout for every outbound call
	MaxResponseSize int64
	UserAgent       string
}

// BreakerConfig holds circuit breaker settings for the commerce client
type BreakerConfig struct {
	Enabled          bool
	MaxRequests      uint32        // Requests allowed through while half-open
	Interval         time.Duration // Closed-state window after which counts reset
	Timeout          time.Duration // Open-state duration before probing again
	FailureThreshold uint32        // Consecutive failures that open the breaker
}

// AuthConfig holds customer access token verification settings.
// An empty secret disables local verification.
type AuthConfig struct {
	AccessTokenSecret string
	Issuer            string
	Leeway            time.Duration
}

// EvidenceConfig holds payment evidence settings
type EvidenceConfig struct {
	AllowedMimeTypes []string
}

// StorageConfig holds object storage settings used to verify evidence uploads
type StorageConfig struct {
	VerifyUploads   bool
	Bucket          string
	Region          string
	Endpoint        string // Custom endpoint for S3-compatible stores
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// CacheConfig holds pickup location cache settings
type CacheConfig struct {
	Driver    string // memory, redis, or none
	PickupTTL time.Duration
	KeyPrefix string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable tracing
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string
	Insecure          bool // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool
	LogsEnabled       bool // Tee zap logs into the OTEL logs pipeline
	ExportInterval    time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with STOREFRONT_ prefix (e.g., STOREFRONT_COMMERCE_BASE_URL)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	return fromViper(v)
}

// LoadFile loads configuration from an explicit TOML file plus environment variables
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			HSTSEnabled:      v.GetBool("http.hsts_enabled"),

			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
		},
		Cookie: CookieConfig{
			Domain:   v.GetString("cookie.domain"),
			Path:     v.GetString("cookie.path"),
			Secure:   v.GetBool("cookie.secure"),
			SameSite: v.GetString("cookie.same_site"),
			MaxAge:   v.GetDuration("cookie.max_age"),
		},
		Commerce: CommerceConfig{
			BaseURL:         v.GetString("commerce.base_url"),
			Timeout:         v.GetDuration("commerce.timeout"),
			MaxResponseSize: v.GetInt64("commerce.max_response_size"),
			UserAgent:       v.GetString("commerce.user_agent"),
		},
		Breaker: BreakerConfig{
			Enabled:          v.GetBool("breaker.enabled"),
			MaxRequests:      v.GetUint32("breaker.max_requests"),
			Interval:         v.GetDuration("breaker.interval"),
			Timeout:          v.GetDuration("breaker.timeout"),
			FailureThreshold: v.GetUint32("breaker.failure_threshold"),
		},
		Auth: AuthConfig{
			AccessTokenSecret: v.GetString("auth.access_token_secret"),
			Issuer:            v.GetString("auth.issuer"),
			Leeway:            v.GetDuration("auth.leeway"),
		},
		Evidence: EvidenceConfig{
			AllowedMimeTypes: v.GetStringSlice("evidence.allowed_mime_types"),
		},
		Storage: StorageConfig{
			VerifyUploads:   v.GetBool("storage.verify_uploads"),
			Bucket:          v.GetString("storage.bucket"),
			Region:          v.GetString("storage.region"),
			Endpoint:        v.GetString("storage.endpoint"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Cache: CacheConfig{
			Driver:    v.GetString("cache.driver"),
			PickupTTL: v.GetDuration("cache.pickup_ttl"),
			KeyPrefix: v.GetString("cache.key_prefix"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storefront-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB, evidence files go straight to storage
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.Cookie.Path == "" {
		cfg.Cookie.Path = "/"
	}
	if cfg.Cookie.SameSite == "" {
		cfg.Cookie.SameSite = "lax"
	}
	if cfg.Cookie.MaxAge == 0 {
		cfg.Cookie.MaxAge = 30 * 24 * time.Hour
	}
	if cfg.Commerce.BaseURL == "" {
		cfg.Commerce.BaseURL = "http://localhost:9000/store"
	}
	if cfg.Commerce.Timeout == 0 {
		cfg.Commerce.Timeout = 15 * time.Second
	}
	if cfg.Commerce.MaxResponseSize == 0 {
		cfg.Commerce.MaxResponseSize = 5 << 20 // 5MB
	}
	if cfg.Commerce.UserAgent == "" {
		cfg.Commerce.UserAgent = cfg.App.Name
	}
	if cfg.Breaker.MaxRequests == 0 {
		cfg.Breaker.MaxRequests = 1
	}
	if cfg.Breaker.Interval == 0 {
		cfg.Breaker.Interval = time.Minute
	}
	if cfg.Breaker.Timeout == 0 {
		cfg.Breaker.Timeout = 30 * time.Second
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = 5
	}
	if len(cfg.Evidence.AllowedMimeTypes) == 0 {
		cfg.Evidence.AllowedMimeTypes = []string{"image/jpeg", "image/png", "image/webp", "application/pdf"}
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Cache.Driver == "" {
		cfg.Cache.Driver = "memory"
	}
	if cfg.Cache.PickupTTL == 0 {
		cfg.Cache.PickupTTL = 10 * time.Minute
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "storefront:pickup:"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	u, err := url.Parse(c.Commerce.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("commerce.base_url must be an absolute URL, got %q", c.Commerce.BaseURL)
	}

	switch c.Cache.Driver {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("cache.driver must be one of memory, redis, none; got %q", c.Cache.Driver)
	}

	switch strings.ToLower(c.Cookie.SameSite) {
	case "strict", "lax", "none":
	default:
		return fmt.Errorf("cookie.same_site must be one of strict, lax, none; got %q", c.Cookie.SameSite)
	}
	// SameSite=None requires Secure flag
	if strings.EqualFold(c.Cookie.SameSite, "none") && !c.Cookie.Secure {
		return fmt.Errorf("cookie.same_site=none requires cookie.secure=true")
	}

	if c.HTTP.RateLimitRequests < 0 {
		return fmt.Errorf("http.rate_limit_requests must not be negative, got %d", c.HTTP.RateLimitRequests)
	}

	if c.Storage.VerifyUploads && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage.verify_uploads is enabled")
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	// Production-specific validations
	if c.App.IsProduction() {
		if !c.Cookie.Secure {
			return fmt.Errorf("cookie.secure must be true in production (HTTPS required for secure cookies)")
		}
		if u.Scheme != "https" {
			return fmt.Errorf("commerce.base_url must use https in production")
		}
		if c.Auth.AccessTokenSecret != "" && len(c.Auth.AccessTokenSecret) < 32 {
			return fmt.Errorf("auth.access_token_secret must be at least 32 characters in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}
