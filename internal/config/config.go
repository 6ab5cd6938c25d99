package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/aleung/fsm/internal/logging"
	"github.com/aleung/fsm/pkg/domain"
)

var (
	ErrParsingConfig  = errors.New("failed to parse configuration")
	ErrInvalidSetting = errors.New("invalid configuration value")
)

// Config is the process configuration shared by the CLI commands.
type Config struct {
	LogLevel         string        `env:"FSM_LOG_LEVEL" envDefault:"info"`
	Addr             string        `env:"FSM_ADDR" envDefault:":8080"`
	Concurrency      string        `env:"FSM_CONCURRENCY" envDefault:"serialize"`
	JournalSize      int           `env:"FSM_JOURNAL_SIZE" envDefault:"1000"`
	LockTTL          time.Duration `env:"FSM_LOCK_TTL" envDefault:"30s"`
	Actions          string        `env:"FSM_ACTIONS_FILE"`
	MaxEventNameSize int           `env:"FSM_MAX_EVENT_NAME_SIZE" envDefault:"256"`
	Redis            RedisConfig
	Journal          JournalConfig
}

// JournalConfig protects event data written to the journal.
type JournalConfig struct {
	// Mask lists regular expressions; matching data keys are masked.
	Mask []string `env:"FSM_JOURNAL_MASK" envSeparator:","`
	// Key is a base64 AES-256 key; when set, event data is encrypted.
	Key string `env:"FSM_JOURNAL_KEY"`
}

// KeyBytes decodes Key. It returns nil when no key is configured.
func (j JournalConfig) KeyBytes() ([]byte, error) {
	if j.Key == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(j.Key)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// RedisConfig enables the Redis journal and locker when Addr is set.
type RedisConfig struct {
	Addr     string `env:"FSM_REDIS_ADDR"`
	Password string `env:"FSM_REDIS_PASSWORD"`
	DB       int    `env:"FSM_REDIS_DB" envDefault:"0"`
	Prefix   string `env:"FSM_REDIS_PREFIX" envDefault:"fsm:"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// Load reads the environment into a Config. Without files it seeds the
// environment from ./.env when present; named files must exist. Variables
// already set in the environment win over file values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		// Ignore errors - the .env file might not exist and that's ok
		_ = godotenv.Load()
	} else if err := godotenv.Load(files...); err != nil {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that env tags cannot express.
func (c Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("%w: FSM_LOG_LEVEL: %w", ErrInvalidSetting, err)
	}
	if _, err := c.ConcurrencyMode(); err != nil {
		return fmt.Errorf("%w: FSM_CONCURRENCY: %w", ErrInvalidSetting, err)
	}
	if c.JournalSize < 0 {
		return fmt.Errorf("%w: FSM_JOURNAL_SIZE must not be negative", ErrInvalidSetting)
	}
	if c.MaxEventNameSize <= 0 {
		return fmt.Errorf("%w: FSM_MAX_EVENT_NAME_SIZE must be positive", ErrInvalidSetting)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("%w: FSM_LOCK_TTL must be positive", ErrInvalidSetting)
	}
	if _, err := c.Journal.KeyBytes(); err != nil {
		return fmt.Errorf("%w: FSM_JOURNAL_KEY: %w", ErrInvalidSetting, err)
	}
	return nil
}

// Level returns the parsed log level.
func (c Config) Level() (slog.Level, error) {
	return logging.ParseLevel(c.LogLevel)
}

// ConcurrencyMode returns the parsed machine concurrency policy.
func (c Config) ConcurrencyMode() (domain.ConcurrencyMode, error) {
	return ParseConcurrency(c.Concurrency)
}

// ParseConcurrency maps "serialize" and "fail-fast" to a ConcurrencyMode.
func ParseConcurrency(s string) (domain.ConcurrencyMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", domain.ConcurrencySerialize.String():
		return domain.ConcurrencySerialize, nil
	case domain.ConcurrencyFailFast.String(), "failfast":
		return domain.ConcurrencyFailFast, nil
	default:
		return domain.ConcurrencySerialize, fmt.Errorf("unknown concurrency mode %q", s)
	}
}
