// Package config loads leasehold settings from defaults, an optional .env
// file, an optional YAML file and LEASEHOLD_* environment variables, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/roach88/leasehold/internal/ir"
	"github.com/roach88/leasehold/internal/ledger"
)

// EnvPrefix prefixes every environment override, e.g. LEASEHOLD_PERIOD_LENGTH.
const EnvPrefix = "leasehold"

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds every setting of the leasehold binary.
type Config struct {
	JournalPath    string `yaml:"journalPath"    split_words:"true"`
	ProjectionPath string `yaml:"projectionPath" split_words:"true"`

	PeriodLength         uint64 `yaml:"periodLength"         split_words:"true"`
	StartGrace           uint64 `yaml:"startGrace"           split_words:"true"`
	AllowSelfRental      bool   `yaml:"allowSelfRental"      split_words:"true"`
	DepositPolicy        string `yaml:"depositPolicy"        split_words:"true"`
	EscrowAccount        string `yaml:"escrowAccount"        split_words:"true"`
	MaxTitleLength       int    `yaml:"maxTitleLength"       split_words:"true"`
	MaxDescriptionLength int    `yaml:"maxDescriptionLength" split_words:"true"`

	LogFormat string `yaml:"logFormat" split_words:"true"`
	LogLevel  string `yaml:"logLevel"  split_words:"true"`

	// DeadlockDetection enables (>0) or disables (<0) the lock wait detector
	// on the ledger and bank mutexes; 0 keeps it enabled.
	DeadlockDetection int `yaml:"deadlockDetection" split_words:"true"`
	// DeadlockThreshold is the lock wait, in seconds, reported as a potential deadlock.
	DeadlockThreshold int `yaml:"deadlockThreshold" split_words:"true"`
}

// Default returns the built-in configuration.
func Default() *Config {
	p := ledger.DefaultPolicy()
	return &Config{
		JournalPath:          "leasehold.db",
		ProjectionPath:       "leasehold-view.db",
		PeriodLength:         uint64(p.PeriodLength),
		StartGrace:           uint64(p.StartGrace),
		AllowSelfRental:      p.AllowSelfRental,
		DepositPolicy:        p.DepositPolicy,
		EscrowAccount:        string(p.EscrowAccount),
		MaxTitleLength:       p.MaxTitleLength,
		MaxDescriptionLength: p.MaxDescriptionLength,
		LogFormat:            LogFormatText,
		LogLevel:             "info",
		DeadlockThreshold:    DefaultDeadlockThreshold,
	}
}

// Load builds a Config.
//
// A .env file in the working directory is loaded first if present; it never
// overrides variables already set. configFile may be empty, in which case
// only defaults and the environment apply.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	cfg := Default()

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("invalid ledger settings: %w", err)
	}
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("invalid logFormat: %q (must be 'text' or 'json')", c.LogFormat)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.DeadlockDetection >= 0 && c.DeadlockThreshold <= 0 {
		return fmt.Errorf("invalid deadlockThreshold: %d (must be positive while detection is enabled)", c.DeadlockThreshold)
	}
	return nil
}

// Policy converts the ledger settings into a ledger.Policy.
func (c *Config) Policy() ledger.Policy {
	return ledger.Policy{
		PeriodLength:         ir.Height(c.PeriodLength),
		StartGrace:           ir.Height(c.StartGrace),
		AllowSelfRental:      c.AllowSelfRental,
		MaxTitleLength:       c.MaxTitleLength,
		MaxDescriptionLength: c.MaxDescriptionLength,
		EscrowAccount:        ir.Principal(c.EscrowAccount),
		DepositPolicy:        c.DepositPolicy,
	}
}

// Logger builds the configured logger writing to w. verbose forces debug level.
func (c *Config) Logger(w io.Writer, verbose bool) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid logLevel: %q (must be debug, info, warn or error)", s)
	}
	return level, nil
}
