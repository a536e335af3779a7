package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

// Match modes for the command adapter.
const (
	// ModeExplicit requires a match id on /bet and /reportwinner and allows
	// several open matches.
	ModeExplicit = "explicit"
	// ModeCurrent always targets the most recently opened match and keeps at
	// most one open.
	ModeCurrent = "current"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string        `env:"APP_NAME" envDefault:"Wagerbook"`
	AppEnv         string        `env:"APP_ENV" envDefault:"development"`
	Port           string        `env:"PORT" envDefault:"8080"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	RedisURL       string        `env:"REDIS_URL"`
	ShutdownPeriod time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	Store               string `env:"WAGER_STORE" envDefault:"file"`
	StateDir            string `env:"WAGER_STATE_DIR" envDefault:"."`
	StartingBalance     int64  `env:"WAGER_STARTING_BALANCE" envDefault:"1000"`
	MatchMode           string `env:"WAGER_MATCH_MODE" envDefault:"explicit"`
	RefundReplacedStake bool   `env:"WAGER_REFUND_REPLACED_STAKE" envDefault:"false"`
	CommandsPerMinute   int    `env:"WAGER_COMMANDS_PER_MINUTE" envDefault:"30"`

	KafkaBrokers string `env:"KAFKA_BROKERS"`
	KafkaTopic   string `env:"KAFKA_TOPIC" envDefault:"wagerbook.events"`
	NATSURL      string `env:"NATS_URL"`
	NATSSubject  string `env:"NATS_SUBJECT" envDefault:"wagerbook.events"`
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Store = strings.ToLower(cfg.Store)
	cfg.MatchMode = strings.ToLower(cfg.MatchMode)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set when WAGER_STORE=%s", c.Store)
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set when WAGER_STORE=%s", c.Store)
		}
	default:
		return fmt.Errorf("invalid WAGER_STORE %q", c.Store)
	}

	switch c.MatchMode {
	case ModeExplicit, ModeCurrent:
	default:
		return fmt.Errorf("invalid WAGER_MATCH_MODE %q", c.MatchMode)
	}

	if c.StartingBalance <= 0 {
		return fmt.Errorf("WAGER_STARTING_BALANCE must be positive")
	}
	return nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// SingleMatch reports whether the ledger should keep at most one open match.
func (c Config) SingleMatch() bool {
	return c.MatchMode == ModeCurrent
}

// KafkaBrokerList splits KAFKA_BROKERS on commas.
func (c Config) KafkaBrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
