// Package config loads the kin command's settings from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/chazu/linkage/pkg/engine"
	"github.com/chazu/linkage/pkg/ik"
	"github.com/chazu/linkage/pkg/kernel/sdfx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config is the complete configuration for the kin command.
type Config struct {
	// Solver parameters for inverse kinematics.
	Solver ik.Config `yaml:"solver"`

	// Engine configures robot description evaluation.
	Engine EngineConfig `yaml:"engine"`

	// Mesh configures tessellation.
	Mesh MeshConfig `yaml:"mesh"`

	// Logging configures the zap logger.
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig configures the description engine.
type EngineConfig struct {
	Timeout string `yaml:"timeout"` // Go duration, e.g. "5s"
}

// MeshConfig configures tessellation.
type MeshConfig struct {
	Cells int `yaml:"cells"` // marching cubes cells along the longest axis
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Solver: ik.DefaultConfig(),
		Engine: EngineConfig{
			Timeout: engine.EvalTimeout.String(),
		},
		Mesh: MeshConfig{
			Cells: sdfx.DefaultMeshCells,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides. Unparsable
// numbers are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LINKAGE_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Solver.MaxIterations = n
		}
	}
	if v := os.Getenv("LINKAGE_MESH_CELLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Mesh.Cells = n
		}
	}
	if v := os.Getenv("LINKAGE_EVAL_TIMEOUT"); v != "" {
		c.Engine.Timeout = v
	}
	if v := os.Getenv("LINKAGE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	if _, err := time.ParseDuration(c.Engine.Timeout); err != nil {
		return fmt.Errorf("config: engine timeout %q: %w", c.Engine.Timeout, err)
	}
	if c.Mesh.Cells <= 0 {
		return fmt.Errorf("config: mesh cells %d must be positive", c.Mesh.Cells)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("config: logging level: %w", err)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: logging format %q must be json or console", c.Logging.Format)
	}
	return nil
}

// GetEvalTimeout returns the engine timeout as a duration.
func (c *Config) GetEvalTimeout() time.Duration {
	d, err := time.ParseDuration(c.Engine.Timeout)
	if err != nil || d <= 0 {
		return engine.EvalTimeout
	}
	return d
}

// BuildLogger builds a production zap logger from the logging section.
// verbose forces debug level.
func (c LoggingConfig) BuildLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Encoding = c.Format
	if zc.Encoding == "" {
		zc.Encoding = "json"
	}
	if zc.Encoding == "console" {
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	level := zapcore.InfoLevel
	if c.Level != "" {
		l, err := zapcore.ParseLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("failed to parse log level: %w", err)
		}
		level = l
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
