package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Configuration for the departures tool. Loaded once by the caller
// and passed into components explicitly; nothing in this package is
// global or mutable after Load.

// DefaultConfigPaths lists where config files are searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/departures/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "DEPARTURES_CONFIG"

const envPrefix = "DEPARTURES_"

type Config struct {
	Upstream UpstreamConfig `koanf:"upstream"`
	Database DatabaseConfig `koanf:"database"`
	Board    BoardConfig    `koanf:"board"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type UpstreamConfig struct {
	BaseURL        string        `koanf:"base_url" validate:"required,url"`
	Username       string        `koanf:"username" validate:"required"`
	Password       string        `koanf:"password" validate:"required"`
	Stop           string        `koanf:"stop" validate:"required"`
	HorizonMinutes int           `koanf:"horizon_minutes" validate:"gt=0"`
	FetchTTL       time.Duration `koanf:"fetch_ttl" validate:"gte=0"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver" validate:"oneof=sqlite postgres"`

	// Postgres connection string. Required for the postgres
	// driver.
	ConnStr string `koanf:"conn_str" validate:"required_if=Driver postgres"`

	// Directory for the on-disk sqlite database. Blank keeps the
	// database in memory.
	Directory string `koanf:"directory"`
}

type BoardConfig struct {
	Timezone      string `koanf:"timezone" validate:"required"`
	WindowMinutes int    `koanf:"window_minutes" validate:"gt=0"`
	GroupCap      int    `koanf:"group_cap" validate:"gt=0"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

func defaultConfig() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			BaseURL:        "https://pcsdata.njtransit.com",
			Stop:           "PABT",
			HorizonMinutes: 90,
			FetchTTL:       60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
		},
		Board: BoardConfig{
			Timezone:      "America/New_York",
			WindowMinutes: 15,
			GroupCap:      3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration from three layers: built-in defaults,
// an optional YAML config file, and DEPARTURES_* environment
// variables (highest priority). DEPARTURES_UPSTREAM_USERNAME maps to
// upstream.username, DEPARTURES_BOARD_WINDOW_MINUTES to
// board.window_minutes, and so on.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// Maps DEPARTURES_UPSTREAM_BASE_URL to upstream.base_url: strip the
// prefix, lowercase, and turn the first underscore into the section
// separator.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	return strings.Replace(key, "_", ".", 1)
}
