// Package config loads and validates the BFS run configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/wikibfs/pkg/extract"
)

// Config holds every tunable of a BFS run. The zero value is not
// usable; start from Default.
type Config struct {
	// Source is the article the search starts from. Stored in
	// normalized form so it compares equal to extracted vertex ids.
	Source string `yaml:"source" validate:"required"`

	// MaxRounds caps the number of Propagate+Merge rounds. The cap is
	// a safety bound against disconnected inputs, not a tuning knob.
	MaxRounds int `yaml:"max_rounds" validate:"gte=1,lte=10000"`

	// MapWidth and ReduceWidth are the task parallelism of the two
	// phases of each round.
	MapWidth    int `yaml:"map_width" validate:"gte=1,lte=100000"`
	ReduceWidth int `yaml:"reduce_width" validate:"gte=1,lte=100000"`

	// DataDir holds intermediate generation files.
	DataDir string `yaml:"data_dir" validate:"required"`

	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Source:      "paul erdős",
		MaxRounds:   60,
		MapWidth:    100,
		ReduceWidth: 30,
		DataDir:     "./data/wikibfs",
		LogLevel:    "info",
	}
}

// Load reads a YAML config file over the defaults and validates the
// result. The source id is normalized on load.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	cfg.Source = extract.Normalize(cfg.Source)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration against its constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SlogLevel maps the configured level onto slog's levels.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
