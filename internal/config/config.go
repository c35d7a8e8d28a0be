package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	OpenAI     OpenAIConfig
	Inventory  InventoryConfig
	PostgreSQL PostgreSQLConfig
	Session    SessionConfig
	Matching   MatchingConfig
	Logging    LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int    `env:"SERVER_PORT" envDefault:"8080"`
	Host           string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	GinMode        string `env:"GIN_MODE" envDefault:"release"`
	AllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`
}

// OpenAIConfig holds language model and moderation API configuration
type OpenAIConfig struct {
	APIKey          string  `env:"OPENAI_API_KEY"`
	APIBase         string  `env:"OPENAI_API_BASE" envDefault:"https://api.openai.com/v1"`
	ChatModel       string  `env:"OPENAI_CHAT_MODEL" envDefault:"gpt-3.5-turbo"`
	ModerationModel string  `env:"OPENAI_MODERATION_MODEL" envDefault:"text-moderation-latest"`
	ChatTemperature float32 `env:"OPENAI_CHAT_TEMPERATURE" envDefault:"0.1"`
	ChatMaxTokens   int     `env:"OPENAI_CHAT_MAX_TOKENS" envDefault:"300"`
	Timeout         int     `env:"OPENAI_TIMEOUT" envDefault:"30"` // seconds
	MaxRetries      int     `env:"OPENAI_MAX_RETRIES" envDefault:"2"`
	RateLimit       float64 `env:"OPENAI_RATE_LIMIT" envDefault:"3"` // requests per second
	RateBurst       int     `env:"OPENAI_RATE_BURST" envDefault:"5"`
}

// Enabled reports whether an API key has been configured
func (c OpenAIConfig) Enabled() bool {
	return c.APIKey != ""
}

// InventoryConfig selects where housing listings are loaded from
type InventoryConfig struct {
	Source  string `env:"INVENTORY_SOURCE" envDefault:"csv"` // csv or postgres
	CSVPath string `env:"INVENTORY_CSV_PATH" envDefault:"data/blr_housing_data.csv"`
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string `env:"DATABASE_URL"`
	Host               string `env:"PG_HOST" envDefault:"localhost"`
	Port               int    `env:"PG_PORT" envDefault:"5432"`
	User               string `env:"PG_USER" envDefault:"postgres"`
	Password           string `env:"PG_PASSWORD"`
	Database           string `env:"PG_DATABASE" envDefault:"housing_assistant"`
	SSLMode            string `env:"PG_SSLMODE" envDefault:"disable"`
	MaxConnections     int    `env:"PG_MAX_CONNECTIONS" envDefault:"10"`
	MaxIdleConnections int    `env:"PG_MAX_IDLE_CONNECTIONS" envDefault:"2"`
	// Enabled turns on the audit log and feedback tables even when listings come from CSV.
	Enabled bool `env:"PG_ENABLED" envDefault:"false"`
}

// SessionConfig holds conversation session storage configuration
type SessionConfig struct {
	Store         string        `env:"SESSION_STORE" envDefault:"memory"` // memory or redis
	TTL           time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
}

// MatchingConfig holds scoring and validation policy
type MatchingConfig struct {
	TopK      int   `env:"MATCH_TOP_K" envDefault:"5"`
	MinScore  int   `env:"MATCH_MIN_SCORE" envDefault:"2"`
	MinBudget int64 `env:"MATCH_MIN_BUDGET" envDefault:"1500000"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that env tags cannot express
func (c *Config) Validate() error {
	switch c.Inventory.Source {
	case "csv", "postgres":
	default:
		return fmt.Errorf("invalid INVENTORY_SOURCE %q, must be csv or postgres", c.Inventory.Source)
	}
	switch c.Session.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid SESSION_STORE %q, must be memory or redis", c.Session.Store)
	}
	if c.Matching.TopK <= 0 {
		return fmt.Errorf("MATCH_TOP_K must be positive")
	}
	if c.Matching.MinScore < 0 {
		return fmt.Errorf("MATCH_MIN_SCORE cannot be negative")
	}
	return nil
}

// UsePostgres reports whether a database connection is needed
func (c *Config) UsePostgres() bool {
	return c.Inventory.Source == "postgres" || c.PostgreSQL.Enabled
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}
