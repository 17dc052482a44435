// Package config provides application configuration loaded from environment
// variables with defaults and validation. It covers the HTTP server, logging,
// the backend and local cache databases, notification delivery, background
// jobs, web protection and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Notification channels.
const (
	ChannelLink = "link"
	ChannelAMQP = "amqp"
)

// Transition policies.
const (
	PolicyPermissive  = "permissive"
	PolicyForwardOnly = "forward_only"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool              // OTEL_ENABLED
	Endpoint    string            // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool              // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	Headers     map[string]string // OTEL_EXPORTER_OTLP_HEADERS ("k=v,k2=v2")
	Timeout     time.Duration     // OTEL_EXPORTER_OTLP_TIMEOUT
	ServiceName string            // OTEL_SERVICE_NAME
	Environment string            // OTEL_DEPLOYMENT_ENVIRONMENT
	SampleRatio float64           // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects and locates the backend database.
type DBConfig struct {
	Driver string // DB_DRIVER: sqlite|postgres
	Path   string // DB_PATH (sqlite)
	DSN    string // DB_DSN (postgres)
}

// NotifyConfig controls WhatsApp message rendering and hand-off.
type NotifyConfig struct {
	Channel        string        // NOTIFY_CHANNEL: link|amqp
	AMQPURL        string        // AMQP_URL
	AMQPExchange   string        // AMQP_EXCHANGE
	TemplatesPath  string        // TEMPLATES_PATH (optional YAML)
	Locale         language.Tag  // TEMPLATE_LOCALE
	EtaDays        int           // ETA_DAYS
	RetrySchedule  string        // NOTIFY_RETRY_SCHEDULE (cron, empty disables)
	PurgeSchedule  string        // IDEMPOTENCY_PURGE_SCHEDULE (cron, empty disables)
	DispatchWindow time.Duration // NOTIFY_TIMEOUT: bound on one background dispatch
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Persistence
	DB               DBConfig
	CachePath        string        // CACHE_PATH: local sqlite for blobs
	BackendTimeout   time.Duration // BACKEND_TIMEOUT
	OfflineFallback  bool          // OFFLINE_FALLBACK
	TransitionPolicy string        // TRANSITION_POLICY: permissive|forward_only

	// Notifications and jobs
	Notify NotifyConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// LoadDotEnv loads variables from the given files (".env" when none) into
// the process environment. Missing files are skipped; variables already
// set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Persistence
		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", DriverSQLite)),
			Path:   getenv("DB_PATH", "tracker.db"),
			DSN:    getenv("DB_DSN", ""),
		},
		CachePath:        getenv("CACHE_PATH", "cache.db"),
		BackendTimeout:   getdur("BACKEND_TIMEOUT", 15*time.Second),
		OfflineFallback:  getbool("OFFLINE_FALLBACK", true),
		TransitionPolicy: strings.ToLower(getenv("TRANSITION_POLICY", PolicyPermissive)),

		// Notifications and jobs
		Notify: NotifyConfig{
			Channel:        strings.ToLower(getenv("NOTIFY_CHANNEL", ChannelLink)),
			AMQPURL:        getenv("AMQP_URL", ""),
			AMQPExchange:   getenv("AMQP_EXCHANGE", "shipment.notifications"),
			TemplatesPath:  getenv("TEMPLATES_PATH", ""),
			EtaDays:        getint("ETA_DAYS", 14),
			RetrySchedule:  strings.TrimSpace(getenv("NOTIFY_RETRY_SCHEDULE", "")),
			PurgeSchedule:  strings.TrimSpace(getenv("IDEMPOTENCY_PURGE_SCHEDULE", "0 0 * * * *")),
			DispatchWindow: getdur("NOTIFY_TIMEOUT", 15*time.Second),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			Headers:     splitPairs(getenv("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Timeout:     getdur("OTEL_EXPORTER_OTLP_TIMEOUT", 10*time.Second),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-shipment-tracker"),
			Environment: getenv("OTEL_DEPLOYMENT_ENVIRONMENT", ""),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.TransitionPolicy == "forward-only" {
		cfg.TransitionPolicy = PolicyForwardOnly
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}

	switch cfg.DB.Driver {
	case DriverSQLite:
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case DriverPostgres:
		if strings.TrimSpace(cfg.DB.DSN) == "" {
			return cfg, errors.New("DB_DSN is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if strings.TrimSpace(cfg.CachePath) == "" {
		return cfg, errors.New("CACHE_PATH must not be empty")
	}
	if cfg.BackendTimeout <= 0 {
		return cfg, errors.New("BACKEND_TIMEOUT must be > 0")
	}
	switch cfg.TransitionPolicy {
	case PolicyPermissive, PolicyForwardOnly:
	default:
		return cfg, errors.New("TRANSITION_POLICY must be one of: permissive, forward_only")
	}

	switch cfg.Notify.Channel {
	case ChannelLink:
	case ChannelAMQP:
		if strings.TrimSpace(cfg.Notify.AMQPURL) == "" {
			return cfg, errors.New("AMQP_URL is required when NOTIFY_CHANNEL=amqp")
		}
	default:
		return cfg, errors.New("NOTIFY_CHANNEL must be one of: link, amqp")
	}
	tag, err := language.Parse(getenv("TEMPLATE_LOCALE", "es-AR"))
	if err != nil {
		return cfg, fmt.Errorf("TEMPLATE_LOCALE: %w", err)
	}
	cfg.Notify.Locale = tag
	if cfg.Notify.EtaDays < 0 {
		return cfg, errors.New("ETA_DAYS must be >= 0")
	}
	if cfg.Notify.DispatchWindow <= 0 {
		return cfg, errors.New("NOTIFY_TIMEOUT must be > 0")
	}

	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	if cfg.OTEL.Timeout <= 0 {
		return cfg, errors.New("OTEL_EXPORTER_OTLP_TIMEOUT must be > 0")
	}

	return cfg, nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// splitPairs parses "k=v,k2=v2". Entries without '=' or with an empty key
// are dropped.
func splitPairs(s string) map[string]string {
	items := splitCSV(s)
	if len(items) == 0 {
		return nil
	}
	out := make(map[string]string, len(items))
	for _, it := range items {
		k, v, ok := strings.Cut(it, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
