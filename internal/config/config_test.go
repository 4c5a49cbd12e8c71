package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chazu/linkage/pkg/engine"
	"github.com/chazu/linkage/pkg/ik"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LINKAGE_MAX_ITERATIONS", "LINKAGE_MESH_CELLS", "LINKAGE_EVAL_TIMEOUT", "LINKAGE_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ik.DefaultConfig(), cfg.Solver)
	assert.Equal(t, engine.EvalTimeout, cfg.GetEvalTimeout())
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "kin.yaml")

	cfg := DefaultConfig()
	cfg.Solver.MaxIterations = 250
	cfg.Solver.Damping = 0.01
	cfg.Mesh.Cells = 48
	cfg.Engine.Timeout = "750ms"
	cfg.Logging.Format = "console"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.Equal(t, 750*time.Millisecond, loaded.GetEvalTimeout())
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "kin.yaml")
	require.NoError(t, os.WriteFile(path, []byte("solver:\n  max_iterations: 7\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Solver.MaxIterations)
	assert.Equal(t, ik.DefaultConfig().JacobianStep, cfg.Solver.JacobianStep)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadRejectsBadFiles(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "solver: [unterminated"},
		{"negative step", "solver:\n  jacobian_step: -1\n"},
		{"zero cells", "mesh:\n  cells: 0\n"},
		{"bad timeout", "engine:\n  timeout: soon\n"},
		{"bad level", "logging:\n  level: loud\n"},
		{"bad format", "logging:\n  format: xml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "kin.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Run("numbers", func(t *testing.T) {
		t.Setenv("LINKAGE_MAX_ITERATIONS", "9")
		t.Setenv("LINKAGE_MESH_CELLS", "12")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, 9, cfg.Solver.MaxIterations)
		assert.Equal(t, 12, cfg.Mesh.Cells)
	})

	t.Run("unparsable numbers are ignored", func(t *testing.T) {
		t.Setenv("LINKAGE_MAX_ITERATIONS", "many")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, ik.DefaultConfig().MaxIterations, cfg.Solver.MaxIterations)
	})

	t.Run("strings", func(t *testing.T) {
		t.Setenv("LINKAGE_LOG_LEVEL", "debug")
		t.Setenv("LINKAGE_EVAL_TIMEOUT", "2s")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, 2*time.Second, cfg.GetEvalTimeout())
	})

	t.Run("env beats file", func(t *testing.T) {
		t.Setenv("LINKAGE_MAX_ITERATIONS", "3")
		path := filepath.Join(t.TempDir(), "kin.yaml")
		require.NoError(t, os.WriteFile(path, []byte("solver:\n  max_iterations: 50\n"), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Solver.MaxIterations)
	})
}

func TestBuildLogger(t *testing.T) {
	l, err := LoggingConfig{Level: "warn", Format: "console"}.BuildLogger(false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = LoggingConfig{Level: "warn"}.BuildLogger(true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel), "verbose forces debug")

	_, err = LoggingConfig{Level: "loud"}.BuildLogger(false)
	assert.Error(t, err)
}
