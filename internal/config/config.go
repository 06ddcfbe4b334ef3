// Package config loads the assistant's runtime settings from environment
// variables. Plain scalar settings are read with small typed helpers; the
// Redis and LLM blocks are decoded with envconfig. Everything is validated
// before the server starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Dialogue state backends.
const (
	StateMemory = "memory"
	StateRedis  = "redis"
	StateDB     = "db"
)

// Per-session lock backends.
const (
	LockLocal = "local"
	LockRedis = "redis"
)

// Fallback providers.
const (
	FallbackStatic = "static"
	FallbackFAQ    = "faq"
	FallbackOpenAI = "openai"
	FallbackGemini = "gemini"
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

// OTELConfig defines OpenTelemetry tracing settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects and tunes the relational store.
type DBConfig struct {
	Driver          string // sqlite|postgres
	Path            string // DB_PATH, sqlite only
	DSN             string // DATABASE_URL, postgres only
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Trace           bool // emit GORM spans when OTEL is enabled
}

// RedisConfig is decoded by envconfig with the REDIS prefix
// (REDIS_URL, REDIS_READ_TIMEOUT, ...). Timeouts are in seconds.
type RedisConfig struct {
	URL          string `split_words:"true"`
	ReadTimeout  int    `split_words:"true" default:"3"`
	WriteTimeout int    `split_words:"true" default:"3"`
	DialTimeout  int    `split_words:"true" default:"5"`
	KeyPrefix    string `split_words:"true" default:"printshop"`
}

// DialogueConfig controls where dialogue state lives and how turns of the
// same session are serialized.
type DialogueConfig struct {
	StateBackend    string        // STATE_BACKEND
	StateTTL        time.Duration // STATE_TTL, redis only
	LockBackend     string        // LOCK_BACKEND
	LockTTL         time.Duration // LOCK_TTL, redis only
	TurnLockTimeout time.Duration // TURN_LOCK_TIMEOUT
	MaxInputRunes   int           // MAX_INPUT_RUNES
}

// LLMConfig is decoded by envconfig without a prefix.
type LLMConfig struct {
	OpenAIKey    string  `envconfig:"OPENAI_API_KEY"`
	GeminiKey    string  `envconfig:"GEMINI_API_KEY"`
	Model        string  `envconfig:"LLM_MODEL"`
	Temperature  float32 `envconfig:"LLM_TEMPERATURE" default:"0.3"`
	MaxTokens    int     `envconfig:"LLM_MAX_TOKENS" default:"400"`
	SystemPrompt string  `envconfig:"LLM_SYSTEM_PROMPT"`
}

// FallbackConfig selects the free-form responder used for unrecognized input.
type FallbackConfig struct {
	Provider     string        // FALLBACK_PROVIDER
	Timeout      time.Duration // FALLBACK_TIMEOUT
	FAQPath      string        // FAQ_PATH
	FAQThreshold float64       // FAQ_THRESHOLD in [0,1]
	LLM          LLMConfig
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test

	// Logging / Docs
	LogLevel       string
	LogPretty      bool
	LogRedact      bool // scrub PII from access logs
	SwaggerEnabled bool
	APIBasePath    string

	DB       DBConfig
	Redis    RedisConfig
	Dialogue DialogueConfig
	Fallback FallbackConfig

	// Rate limiting
	RateRPS   float64
	RateBurst int

	CORS     CORSConfig
	Security SecurityConfig

	IdempotencyTTL time.Duration

	OTEL OTELConfig
}

// UsesRedis reports whether any component needs a Redis client.
func (c Config) UsesRedis() bool {
	return c.Dialogue.StateBackend == StateRedis || c.Dialogue.LockBackend == LockRedis
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables, applies defaults,
// normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		LogRedact:      getbool("LOG_REDACT", true),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		DB: DBConfig{
			Driver:          strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:            getenv("DB_PATH", "printshop.db"),
			DSN:             getenv("DATABASE_URL", ""),
			MaxOpenConns:    getint("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getint("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getdur("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			Trace:           getbool("DB_TRACE", true),
		},

		Dialogue: DialogueConfig{
			StateBackend:    strings.ToLower(getenv("STATE_BACKEND", StateDB)),
			StateTTL:        getdur("STATE_TTL", 24*time.Hour),
			LockBackend:     strings.ToLower(getenv("LOCK_BACKEND", LockLocal)),
			LockTTL:         getdur("LOCK_TTL", 30*time.Second),
			TurnLockTimeout: getdur("TURN_LOCK_TIMEOUT", 10*time.Second),
			MaxInputRunes:   getint("MAX_INPUT_RUNES", 2000),
		},

		Fallback: FallbackConfig{
			Provider:     strings.ToLower(getenv("FALLBACK_PROVIDER", FallbackStatic)),
			Timeout:      getdur("FALLBACK_TIMEOUT", 8*time.Second),
			FAQPath:      getenv("FAQ_PATH", "data/faq.md"),
			FAQThreshold: getfloat("FAQ_THRESHOLD", 0.25),
		},

		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "printshop-assistant"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	if err := envconfig.Process("redis", &cfg.Redis); err != nil {
		return cfg, fmt.Errorf("redis config: %w", err)
	}
	if err := envconfig.Process("", &cfg.Fallback.LLM); err != nil {
		return cfg, fmt.Errorf("llm config: %w", err)
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
	if cfg.DB.Driver == "postgresql" || cfg.DB.Driver == "pg" {
		cfg.DB.Driver = "postgres"
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}

	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.DSN) == "" {
			return errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.DB.MaxOpenConns < 1 || cfg.DB.MaxIdleConns < 0 {
		return errors.New("DB pool sizes must be positive")
	}

	switch cfg.Dialogue.StateBackend {
	case StateMemory, StateRedis, StateDB:
	default:
		return errors.New("STATE_BACKEND must be one of: memory, redis, db")
	}
	switch cfg.Dialogue.LockBackend {
	case LockLocal, LockRedis:
	default:
		return errors.New("LOCK_BACKEND must be one of: local, redis")
	}
	if cfg.UsesRedis() && strings.TrimSpace(cfg.Redis.URL) == "" {
		return errors.New("REDIS_URL is required for the redis state or lock backend")
	}
	if cfg.Dialogue.StateTTL <= 0 || cfg.Dialogue.LockTTL <= 0 || cfg.Dialogue.TurnLockTimeout <= 0 {
		return errors.New("STATE_TTL, LOCK_TTL and TURN_LOCK_TIMEOUT must be > 0")
	}
	if cfg.Dialogue.MaxInputRunes < 1 {
		return errors.New("MAX_INPUT_RUNES must be >= 1")
	}

	switch cfg.Fallback.Provider {
	case FallbackStatic, FallbackFAQ:
	case FallbackOpenAI:
		if cfg.Fallback.LLM.OpenAIKey == "" {
			return errors.New("OPENAI_API_KEY is required when FALLBACK_PROVIDER=openai")
		}
	case FallbackGemini:
		if cfg.Fallback.LLM.GeminiKey == "" {
			return errors.New("GEMINI_API_KEY is required when FALLBACK_PROVIDER=gemini")
		}
	default:
		return errors.New("FALLBACK_PROVIDER must be one of: static, faq, openai, gemini")
	}
	if cfg.Fallback.Timeout <= 0 {
		return errors.New("FALLBACK_TIMEOUT must be > 0")
	}
	if cfg.Fallback.FAQThreshold < 0 || cfg.Fallback.FAQThreshold > 1 {
		return errors.New("FAQ_THRESHOLD must be between 0 and 1")
	}

	if cfg.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

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
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures a leading '/' and strips a trailing one.
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
