// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage, shared secrets, LINE credentials, personalised link
// templates, the daily push schedule, rate limiting and observability.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone database for APP_TIMEZONE / DAILY_PUSH_TZ on minimal images

	"github.com/joho/godotenv"
)

// Unresolved submission policies.
const (
	UnresolvedReject = "reject"
	UnresolvedStore  = "store"
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
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// LineConfig holds LINE Messaging API credentials.
type LineConfig struct {
	ChannelSecret      string // LINE_CHANNEL_SECRET (webhook signature)
	ChannelAccessToken string // LINE_CHANNEL_ACCESS_TOKEN (push/reply/profile)
	APIBaseURL         string // LINE_API_BASE_URL
}

// Configured reports whether outbound LINE calls can be made.
func (l LineConfig) Configured() bool { return l.ChannelAccessToken != "" }

// DispatchConfig bounds a single outbound notification.
type DispatchConfig struct {
	Timeout      time.Duration // per attempt
	RetryBackoff time.Duration // wait before the single retry
}

// LinkConfig holds the templates for the personalised links.
type LinkConfig struct {
	FormBaseURL string // prefilled Google Form URL without the token entry
	FormEntryID string // e.g. "entry.123456"
	AppBaseURL  string // dashboard base, no trailing slash
}

// SurveyConfig controls form ingestion.
type SurveyConfig struct {
	TokenLabel       string // question label carrying the external token
	CatalogPath      string // yaml catalog; empty means the embedded default
	UnresolvedPolicy string // reject|store
}

// DailyPushConfig schedules the internal daily timer.
type DailyPushConfig struct {
	Enabled     bool
	At          string // HH:MM
	Hour        int
	Minute      int
	TZ          string
	Location    *time.Location
	Concurrency int
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
	AdminBasePath  string // base path for operator routes

	// Storage
	DBDriver string // sqlite|mysql
	DBPath   string // SQLite path
	DBDSN    string // MySQL DSN

	// Shared secrets
	WebhookToken string // X-Webhook-Token for the form relay
	TaskToken    string // X-Task-Token for task/admin routes

	// Display and day bucketing
	Timezone string
	Location *time.Location

	Line      LineConfig
	Dispatch  DispatchConfig
	Links     LinkConfig
	Survey    SurveyConfig
	DailyPush DailyPushConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
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
// Shared secrets are checked separately by RequireSecrets so that
// offline commands (migrate, daily-push) can run without them.
func Load() (Config, error) {
	tz := getenv("APP_TIMEZONE", "Asia/Tokyo")
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8000"),
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
		AdminBasePath:  normalizeBasePath(getenv("ADMIN_BASE_PATH", "/admin")),

		// Storage
		DBDriver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBPath:   getenv("DB_PATH", "app.db"),
		DBDSN:    getenv("DB_DSN", ""),

		WebhookToken: strings.TrimSpace(getenv("WEBHOOK_TOKEN", "")),
		TaskToken:    strings.TrimSpace(getenv("TASK_TOKEN", "")),

		Timezone: tz,

		Line: LineConfig{
			ChannelSecret:      strings.TrimSpace(getenv("LINE_CHANNEL_SECRET", "")),
			ChannelAccessToken: strings.TrimSpace(getenv("LINE_CHANNEL_ACCESS_TOKEN", "")),
			APIBaseURL:         strings.TrimRight(getenv("LINE_API_BASE_URL", "https://api.line.me"), "/"),
		},
		Dispatch: DispatchConfig{
			Timeout:      getdur("DISPATCH_TIMEOUT", 10*time.Second),
			RetryBackoff: getdur("DISPATCH_RETRY_BACKOFF", 500*time.Millisecond),
		},
		Links: LinkConfig{
			FormBaseURL: strings.TrimSpace(getenv("FORM_BASE_URL", "")),
			FormEntryID: strings.TrimSpace(getenv("FORM_ENTRY_ID", "")),
			AppBaseURL:  strings.TrimRight(strings.TrimSpace(getenv("APP_BASE_URL", "http://localhost:8000")), "/"),
		},
		Survey: SurveyConfig{
			TokenLabel:       strings.TrimSpace(getenv("FORM_TOKEN_LABEL", "ユーザーID")),
			CatalogPath:      getenv("QUESTION_CATALOG_PATH", ""),
			UnresolvedPolicy: strings.ToLower(getenv("UNRESOLVED_POLICY", UnresolvedReject)),
		},
		DailyPush: DailyPushConfig{
			Enabled:     getbool("DAILY_PUSH_ENABLED", false),
			At:          getenv("DAILY_PUSH_AT", "08:00"),
			TZ:          getenv("DAILY_PUSH_TZ", tz),
			Concurrency: getint("DAILY_PUSH_CONCURRENCY", 4),
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

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-wellbeing-backend"),
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
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "mysql":
		if strings.TrimSpace(cfg.DBDSN) == "" {
			return cfg, errors.New("DB_DSN must not be empty when DB_DRIVER=mysql")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, mysql")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return cfg, fmt.Errorf("APP_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if (cfg.Line.ChannelSecret == "") != (cfg.Line.ChannelAccessToken == "") {
		return cfg, errors.New("LINE_CHANNEL_SECRET and LINE_CHANNEL_ACCESS_TOKEN must be set together")
	}
	if cfg.Dispatch.Timeout <= 0 {
		return cfg, errors.New("DISPATCH_TIMEOUT must be > 0")
	}
	if cfg.Dispatch.RetryBackoff < 0 {
		return cfg, errors.New("DISPATCH_RETRY_BACKOFF must be >= 0")
	}
	if (cfg.Links.FormBaseURL == "") != (cfg.Links.FormEntryID == "") {
		return cfg, errors.New("FORM_BASE_URL and FORM_ENTRY_ID must be set together")
	}
	if cfg.Links.AppBaseURL == "" {
		return cfg, errors.New("APP_BASE_URL must not be empty")
	}
	if cfg.Survey.TokenLabel == "" {
		return cfg, errors.New("FORM_TOKEN_LABEL must not be empty")
	}
	switch cfg.Survey.UnresolvedPolicy {
	case UnresolvedReject, UnresolvedStore:
	default:
		return cfg, errors.New("UNRESOLVED_POLICY must be one of: reject, store")
	}

	h, m, err := parseClock(cfg.DailyPush.At)
	if err != nil {
		return cfg, fmt.Errorf("DAILY_PUSH_AT: %w", err)
	}
	cfg.DailyPush.Hour, cfg.DailyPush.Minute = h, m
	if cfg.DailyPush.Location, err = time.LoadLocation(cfg.DailyPush.TZ); err != nil {
		return cfg, fmt.Errorf("DAILY_PUSH_TZ: %w", err)
	}
	if cfg.DailyPush.Concurrency < 1 {
		return cfg, errors.New("DAILY_PUSH_CONCURRENCY must be >= 1")
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
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// RequireSecrets reports an error when a shared secret guarding an inbound
// route is missing. The HTTP server refuses to start without them.
func (c Config) RequireSecrets() error {
	if c.WebhookToken == "" {
		return errors.New("WEBHOOK_TOKEN must not be empty")
	}
	if c.TaskToken == "" {
		return errors.New("TASK_TOKEN must not be empty")
	}
	return nil
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

// parseClock parses "HH:MM" in 24h form.
func parseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	return t.Hour(), t.Minute(), nil
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
