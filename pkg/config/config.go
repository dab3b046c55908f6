// Package config implements piske configuration loading.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/piske/pkg/evaluator"
	"github.com/thomasrohde/piske/pkg/stdlib"
)

// File names searched by Load.
const (
	ProjectFile = ".piske.yaml"
	UserDir     = ".piske"
	UserFile    = "config.yaml"
)

// Config holds the settings of the CLI and the host environment.
type Config struct {
	Image    ImageConfig  `yaml:"image"`
	Render   RenderConfig `yaml:"render"`
	Limits   LimitsConfig `yaml:"limits"`
	REPL     REPLConfig   `yaml:"repl"`
	LogLevel string       `yaml:"log_level"`
	Pretty   bool         `yaml:"pretty"`

	// Source is the file the configuration was read from, empty for defaults.
	Source string `yaml:"-"`
}

// ImageConfig sets the initial image dimensions.
type ImageConfig struct {
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
}

// RenderConfig sets the PNG rendering parameters.
type RenderConfig struct {
	Power     float64 `yaml:"power"`
	Magnifier float64 `yaml:"magnifier"`
}

// LimitsConfig bounds a single evaluation. Zero means no limit.
type LimitsConfig struct {
	TimeMs        int64 `yaml:"time_ms"`
	MaxIterations int64 `yaml:"max_iterations"`
	MaxCallDepth  int   `yaml:"max_call_depth"`
}

// REPLConfig configures the interactive shell.
type REPLConfig struct {
	HistoryFile string `yaml:"history_file"`
	Prompt      string `yaml:"prompt"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Image:    ImageConfig{Rows: stdlib.DefaultRows, Cols: stdlib.DefaultCols},
		Render:   RenderConfig{Power: stdlib.DefaultPower, Magnifier: stdlib.DefaultMagnifier},
		REPL:     REPLConfig{Prompt: ">> "},
		LogLevel: "warn",
	}
}

// Load loads configuration from project and user config files.
// Precedence: project (.piske.yaml) → user (~/.piske/config.yaml) → defaults.
// A missing file falls through to the next source; a malformed one is an error.
func Load(projectDir string) (*Config, error) {
	// Try project config
	projectPath := filepath.Join(projectDir, ProjectFile)
	cfg, err := loadFile(projectPath)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	// Try user config
	if homeDir, herr := os.UserHomeDir(); herr == nil {
		userPath := filepath.Join(homeDir, UserDir, UserFile)
		cfg, err := loadFile(userPath)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Default
	return Default(), nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Source = path
	return cfg, nil
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the environment cannot use.
func (c *Config) Validate() error {
	if c.Image.Rows <= 0 || c.Image.Cols <= 0 {
		return fmt.Errorf("image dimensions must be positive, got %dx%d", c.Image.Rows, c.Image.Cols)
	}
	if c.Limits.TimeMs < 0 || c.Limits.MaxIterations < 0 || c.Limits.MaxCallDepth < 0 {
		return errors.New("limits must not be negative")
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Environment creates a host environment from the image and render settings.
func (c *Config) Environment() *stdlib.Environment {
	return stdlib.NewEnvironment(
		stdlib.WithDims(c.Image.Rows, c.Image.Cols),
		stdlib.WithPower(c.Render.Power),
		stdlib.WithMagnifier(c.Render.Magnifier),
	)
}

// EvalLimits converts the limits section for the evaluator.
func (c *Config) EvalLimits() evaluator.Limits {
	return evaluator.Limits{
		TimeMs:        c.Limits.TimeMs,
		MaxIterations: c.Limits.MaxIterations,
		MaxCallDepth:  c.Limits.MaxCallDepth,
	}
}
