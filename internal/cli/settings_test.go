package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name      string
		vars      map[string]string
		wantDelay time.Duration
		wantSteps int
		wantErr   bool
	}{
		{"Defaults", nil, 800 * time.Millisecond, 1000, false},
		{"Milliseconds", map[string]string{EnvStepDelay: "250"}, 250 * time.Millisecond, 1000, false},
		{"Duration", map[string]string{EnvStepDelay: "2s", EnvMaxSteps: "10"}, 2 * time.Second, 10, false},
		{"Zero Delay", map[string]string{EnvStepDelay: "0"}, 0, 1000, false},
		{"Bad Delay", map[string]string{EnvStepDelay: "soon"}, 0, 0, true},
		{"Negative Delay", map[string]string{EnvStepDelay: "-1s"}, 0, 0, true},
		{"Bad Steps", map[string]string{EnvMaxSteps: "-3"}, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			err := s.ApplyEnv(env(tt.vars))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDelay, s.StepDelay)
			assert.Equal(t, tt.wantSteps, s.MaxSteps)
		})
	}
}

func TestLoadSettings_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autoflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
step_delay: 100ms
max_steps: 50
seed: 42
store:
  backend: sqlite
  path: flows.db
server:
  addr: ":9090"
`), 0644))
	t.Setenv(EnvMaxSteps, "7")

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, s.StepDelay)
	assert.Equal(t, 7, s.MaxSteps)
	assert.Equal(t, int64(42), s.Seed)
	assert.Equal(t, "sqlite", s.Store.Backend)
	assert.Equal(t, "flows.db", s.Store.Path)
	assert.Equal(t, ":9090", s.Server.Addr)
	assert.Equal(t, "info", s.LogLevel)
}

func TestLoadSettings_MissingExplicitFile(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadSettings_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autoflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_steps: [1"), 0644))
	_, err := LoadSettings(path)
	assert.Error(t, err)
}
