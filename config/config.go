package config

import (
	"fmt"
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// DefaultIPHashSalt is used when IP_HASH_SALT is not configured. Digests made
// with it can be brute-forced by anyone who knows this value.
const DefaultIPHashSalt = "sitepulse-default-salt-change-me"

type Config struct {
	Env     string `env:"APP_ENV" env-default:"local"`
	Port    string `env:"PORT" env-default:"8080"`
	GinMode string `env:"GIN_MODE" env-default:"debug"`

	Store      StoreConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
	Auth       AuthConfig

	IPHashSalt     string        `env:"IP_HASH_SALT"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
	IngestTimeout  time.Duration `env:"INGEST_TIMEOUT" env-default:"5s"`
	QueryTimeout   time.Duration `env:"QUERY_TIMEOUT" env-default:"30s"`
	ActiveWindow   time.Duration `env:"ACTIVE_WINDOW" env-default:"5m"`
	Timezone       string        `env:"TIMEZONE"`
}

type StoreConfig struct {
	Driver      string `env:"STORE_DRIVER" env-default:"sqlite"`
	DatabaseURL string `env:"DATABASE_URL" env-default:"file:analytics.db"`
}

type ClickHouseConfig struct {
	Host       string `env:"CLICKHOUSE_HOST" env-default:"localhost"`
	NativePort int    `env:"CLICKHOUSE_NATIVE_PORT" env-default:"9000"`
	Database   string `env:"CLICKHOUSE_DB_NAME" env-default:"default"`
	Username   string `env:"CLICKHOUSE_USERNAME" env-default:"default"`
	Password   string `env:"CLICKHOUSE_PASSWORD"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" env-default:"0"`
	CacheTTL time.Duration `env:"DASHBOARD_CACHE_TTL" env-default:"30s"`
}

type AuthConfig struct {
	APIKeyHash string `env:"ADMIN_API_KEY_HASH"`
	JWTSecret  string `env:"JWT_SECRET_KEY"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("cannot read environment: %w", err)
	}
	return &cfg, nil
}

// UsesDefaultSalt reports whether address hashing falls back to DefaultIPHashSalt.
func (c *Config) UsesDefaultSalt() bool {
	return c.IPHashSalt == ""
}

// Salt returns the configured hashing salt or the weaker built-in default.
func (c *Config) Salt() string {
	if c.IPHashSalt == "" {
		return DefaultIPHashSalt
	}
	return c.IPHashSalt
}

// Location is the time zone used for day-bucketed aggregation.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) ClickHouseAddr() string {
	return fmt.Sprintf("%s:%d", c.ClickHouse.Host, c.ClickHouse.NativePort)
}
