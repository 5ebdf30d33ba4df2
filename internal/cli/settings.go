// Package cli implements the commands of the autoflow binary.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aretw0/autoflow/internal/runtime"
	"github.com/aretw0/autoflow/pkg/runner"
	"gopkg.in/yaml.v3"
)

const (
	// SettingsFile is read from the working directory when no path is given.
	SettingsFile = "autoflow.yaml"

	EnvStepDelay = "AUTOFLOW_STEP_DELAY"
	EnvMaxSteps  = "AUTOFLOW_MAX_STEPS"
)

// Settings are the tunables shared by every command.
type Settings struct {
	StepDelay time.Duration `yaml:"step_delay"`
	MaxSteps  int           `yaml:"max_steps"`
	// Seed fixes the random condition outcomes. Zero picks a time based seed.
	Seed     int64          `yaml:"seed"`
	LogLevel string         `yaml:"log_level"`
	Store    StoreSettings  `yaml:"store"`
	Server   ServerSettings `yaml:"server"`
}

// StoreSettings select where the server keeps workflow documents.
type StoreSettings struct {
	// Backend is one of memory, file, redis or sqlite.
	Backend       string        `yaml:"backend"`
	Path          string        `yaml:"path"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
	// Redact lists patterns of config keys masked before saving.
	Redact        []string      `yaml:"redact"`
}

// ServerSettings configure the HTTP server.
type ServerSettings struct {
	Addr string `yaml:"addr"`
	// Library is a directory of workflow documents served read-only.
	Library string `yaml:"library"`
}

// DefaultSettings returns the built-in configuration.
func DefaultSettings() Settings {
	return Settings{
		StepDelay: runtime.DefaultDelay,
		MaxSteps:  runner.DefaultMaxSteps,
		LogLevel:  "info",
		Store: StoreSettings{
			Backend: "memory",
		},
		Server: ServerSettings{
			Addr: ":8080",
		},
	}
}

// LoadSettings reads the YAML settings at path over the defaults and then
// applies environment overrides. An empty path reads SettingsFile if present.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()

	explicit := path != ""
	if !explicit {
		path = SettingsFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("invalid settings file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return s, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := s.ApplyEnv(os.LookupEnv); err != nil {
		return s, err
	}
	return s, nil
}

// ApplyEnv overrides settings from the environment.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvStepDelay); ok && v != "" {
		d, err := parseDelay(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvStepDelay, err)
		}
		s.StepDelay = d
	}
	if v, ok := lookup(EnvMaxSteps); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("%s: invalid step count %q", EnvMaxSteps, v)
		}
		s.MaxSteps = n
	}
	return nil
}

// parseDelay accepts Go durations ("250ms") or bare milliseconds ("250").
func parseDelay(v string) (time.Duration, error) {
	if ms, err := strconv.Atoi(v); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("negative delay %q", v)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid delay %q", v)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative delay %q", v)
	}
	return d, nil
}
