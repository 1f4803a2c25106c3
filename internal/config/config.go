package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the process configuration, read from SLA_* environment variables.
type Config struct {
	Port           string        `envconfig:"PORT" default:"8080" validate:"required,numeric"`
	DBPath         string        `envconfig:"DB_PATH" default:"data/sla.db"`
	DatabaseURL    string        `envconfig:"DATABASE_URL"`
	RedisAddr      string        `envconfig:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	RedisPassword  string        `envconfig:"REDIS_PASSWORD"`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0" validate:"min=0"`
	ReportCacheTTL time.Duration `envconfig:"REPORT_CACHE_TTL" default:"24h" validate:"gt=0"`
	RulesPath      string        `envconfig:"RULES_PATH"`
	Timezone       string        `envconfig:"TIMEZONE" default:"America/Los_Angeles" validate:"required"`
	Workers        int           `envconfig:"WORKERS" default:"0" validate:"min=0"`
	MaxUploadMB    int64         `envconfig:"MAX_UPLOAD_MB" default:"64" validate:"gt=0"`

	// Location is Timezone resolved by Load.
	Location *time.Location `ignored:"true"`
}

// Prefix is the environment variable prefix of every setting.
const Prefix = "SLA"

var validate = validator.New()

// Load reads an optional .env file, then binds and validates the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load config: timezone %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	return &cfg, nil
}

// UsePostgres reports whether runs go to a shared postgres database instead of sqlite.
func (c *Config) UsePostgres() bool { return c.DatabaseURL != "" }

// MaxUploadBytes is the multipart request size limit.
func (c *Config) MaxUploadBytes() int64 { return c.MaxUploadMB << 20 }

// Get returns the environment value of key, or fallback when it is unset or empty.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
