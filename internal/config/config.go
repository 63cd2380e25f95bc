package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	HTTPPort        string
	AppEnv          string
	LogMode         string
	LogFile         string
	PricingStrict   bool
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	DBDriver       string
	DBDSN          string
	MigrationsPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DraftTTL      time.Duration

	KafkaBrokers []string
	ConsumeDevis bool

	SubmitWorkers         int
	OutboxRetention       time.Duration
	OutboxCleanupSchedule string

	SessionTTL      time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
	CORSOrigins     []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_MODE", "development")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("MAX_BODY_BYTES", 1<<20) // 1MB

	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "file:quotes.db")
	v.SetDefault("MIGRATIONS_PATH", "internal/repository/migrations")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DRAFT_TTL", "24h")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("CONSUME_DEVIS", false)

	v.SetDefault("SUBMIT_WORKERS", 64)
	v.SetDefault("OUTBOX_RETENTION", "168h")
	v.SetDefault("OUTBOX_CLEANUP_SCHEDULE", "@daily")

	v.SetDefault("SESSION_TTL", "2h")
	v.SetDefault("RATE_LIMIT_MAX", 10)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
}

// Load reads configuration from the environment. When file is not empty it is
// read first (any format viper understands, including .env) and the
// environment overrides it.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := &Config{
		HTTPPort:        v.GetString("HTTP_PORT"),
		AppEnv:          v.GetString("APP_ENV"),
		LogMode:         v.GetString("LOG_MODE"),
		LogFile:         v.GetString("LOG_FILE"),
		RequestTimeout:  v.GetDuration("REQUEST_TIMEOUT"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		MaxBodyBytes:    v.GetInt64("MAX_BODY_BYTES"),

		DBDriver:       v.GetString("DB_DRIVER"),
		DBDSN:          v.GetString("DB_DSN"),
		MigrationsPath: v.GetString("MIGRATIONS_PATH"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		DraftTTL:      v.GetDuration("DRAFT_TTL"),

		KafkaBrokers: splitList(v.GetString("KAFKA_BROKERS")),
		ConsumeDevis: v.GetBool("CONSUME_DEVIS"),

		SubmitWorkers:         v.GetInt("SUBMIT_WORKERS"),
		OutboxRetention:       v.GetDuration("OUTBOX_RETENTION"),
		OutboxCleanupSchedule: v.GetString("OUTBOX_CLEANUP_SCHEDULE"),

		SessionTTL:      v.GetDuration("SESSION_TTL"),
		RateLimitMax:    v.GetInt("RATE_LIMIT_MAX"),
		RateLimitWindow: v.GetDuration("RATE_LIMIT_WINDOW"),
		CORSOrigins:     splitList(v.GetString("CORS_ORIGINS")),
	}

	// strict pricing defaults to on outside production
	if v.IsSet("PRICING_STRICT") {
		cfg.PricingStrict = v.GetBool("PRICING_STRICT")
	} else {
		cfg.PricingStrict = cfg.AppEnv != "production"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("%w: DB_DRIVER must be postgres or sqlite, got %q", ErrInvalidConfig, c.DBDriver)
	}
	if c.RateLimitMax <= 0 {
		return fmt.Errorf("%w: RATE_LIMIT_MAX must be positive", ErrInvalidConfig)
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("%w: RATE_LIMIT_WINDOW must be positive", ErrInvalidConfig)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("%w: SESSION_TTL must be positive", ErrInvalidConfig)
	}
	if c.SubmitWorkers <= 0 {
		return fmt.Errorf("%w: SUBMIT_WORKERS must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
