package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Log      Log
	Store    Store
	Postgres Postgres
	Redis    Redis
	Parser   Parser
	External External
	HTTP     HTTP
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn error"`
	Pretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

type Store struct {
	Backend string `env:"STORE_BACKEND" envDefault:"memory" validate:"oneof=memory redis postgres"`
	// SeedDemoTasks inserts demo URLs into an empty store at worker start.
	SeedDemoTasks bool `env:"SEED_DEMO_TASKS" envDefault:"false"`
}

type Postgres struct {
	URL      string `env:"POSTGRES_URL" validate:"required_if=Backend postgres"`
	MaxConns int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10" validate:"gt=0"`
	Migrate  bool   `env:"POSTGRES_MIGRATE" envDefault:"true"`
	// Backend mirrors Store.Backend for the required_if rule.
	Backend string
}

type Redis struct {
	Addr      string `env:"REDIS_ADDRESS" envDefault:"localhost:6379" validate:"required"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB" envDefault:"0" validate:"gte=0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"priceparser" validate:"required"`
}

type Parser struct {
	PoolSize        int             `env:"PARSER_POOL_SIZE" envDefault:"4" validate:"gt=0"`
	SchedulerPeriod time.Duration   `env:"PARSER_SCHEDULER_PERIOD" envDefault:"10s" validate:"gt=0"`
	MaxTasksPerTick int             `env:"PARSER_MAX_TASKS_PER_TICK" envDefault:"10" validate:"gt=0"`
	CycleTimeout    time.Duration   `env:"PARSER_CYCLE_TIMEOUT" envDefault:"5s" validate:"gte=0"`
	ShutdownGrace   time.Duration   `env:"PARSER_SHUTDOWN_GRACE" envDefault:"30s" validate:"gte=0"`
	PriceMin        decimal.Decimal `env:"PARSER_PRICE_MIN" envDefault:"10"`
	PriceMax        decimal.Decimal `env:"PARSER_PRICE_MAX" envDefault:"99"`
}

type External struct {
	Enabled bool          `env:"EXTERNAL_SERVICE_ENABLED" envDefault:"false"`
	BaseURL string        `env:"EXTERNAL_SERVICE_BASE_URL" envDefault:"http://localhost:8081" validate:"required,url"`
	Timeout time.Duration `env:"EXTERNAL_SERVICE_TIMEOUT" envDefault:"1000ms" validate:"gt=0"`
}

type HTTP struct {
	Port           int    `env:"HTTP_PORT" envDefault:"8080" validate:"gt=0,lt=65536"`
	MetricsAddress string `env:"METRICS_ADDRESS" envDefault:":9090" validate:"required"`
}

// Load reads an optional .env file, then the environment. Values already
// present in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	c.Postgres.Backend = c.Store.Backend

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Parser.PriceMin.IsNegative() {
		return errors.New("config validation failed: PARSER_PRICE_MIN must not be negative")
	}
	for key, d := range map[string]decimal.Decimal{
		"PARSER_PRICE_MIN": c.Parser.PriceMin,
		"PARSER_PRICE_MAX": c.Parser.PriceMax,
	} {
		if !d.Equal(d.Round(2)) {
			return fmt.Errorf("config validation failed: %s %s has more than two fractional digits", key, d)
		}
	}
	if c.Parser.PriceMin.GreaterThan(c.Parser.PriceMax) {
		return fmt.Errorf("config validation failed: PARSER_PRICE_MIN %s exceeds PARSER_PRICE_MAX %s",
			c.Parser.PriceMin, c.Parser.PriceMax)
	}
	return nil
}
