// Package config holds the ambient, framework-level settings that apply
// across every scenario run: logging, where results and snapshots land on
// disk, the metrics bind address, and safety limits. Of the safety limits
// only MaxScenarioDuration is enforced; RequireConfirmation is stored but
// no command reads it or prompts for confirmation. Per-run tournament
// options (number_cores, contenders, timeout, ...) live in pkg/scenario
// instead.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the RTAC framework configuration.
type Config struct {
	Framework FrameworkConfig `yaml:"framework"`
	Reporting ReportingConfig `yaml:"reporting"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Emergency EmergencyConfig `yaml:"emergency"`
	Safety    SafetyConfig    `yaml:"safety"`
}

// FrameworkConfig contains general framework settings.
type FrameworkConfig struct {
	Version   string `yaml:"version"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// ReportingConfig contains log/snapshot directory settings.
type ReportingConfig struct {
	// LogFolder is the root under which {wrapper_name}_{ac_method}/ is
	// created, per spec.md §6's log directory layout. A scenario's own
	// log_folder option, when set, overrides this.
	LogFolder string `yaml:"log_folder"`
}

// MetricsConfig contains Prometheus instrumentation settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// EmergencyConfig contains emergency stop settings.
type EmergencyConfig struct {
	StopFile     string        `yaml:"stop_file"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// SafetyConfig contains safety limits independent of any one scenario.
type SafetyConfig struct {
	MaxScenarioDuration time.Duration `yaml:"max_scenario_duration"`
	RequireConfirmation bool          `yaml:"require_confirmation"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Framework: FrameworkConfig{
			Version:   "v1",
			LogLevel:  "info",
			LogFormat: "text",
		},
		Reporting: ReportingConfig{
			LogFolder: "./rtac-logs",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9101",
		},
		Emergency: EmergencyConfig{
			StopFile:     "/tmp/rtac-emergency-stop",
			PollInterval: 1 * time.Second,
		},
		Safety: SafetyConfig{
			MaxScenarioDuration: 0, // 0 = unbounded
			RequireConfirmation: true,
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults for
// any field the file omits. A missing path returns the defaults unmodified
// rather than an error, matching the teacher's "config is optional"
// behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	if err := yaml.Unmarshal(expandedData, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Reporting.LogFolder == "" {
		return fmt.Errorf("reporting.log_folder is required")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics.enabled is true")
	}
	return nil
}
