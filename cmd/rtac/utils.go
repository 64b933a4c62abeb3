package main

import (
	"fmt"
	"os"

	"github.com/jihwankim/rtac/pkg/config"
	"github.com/jihwankim/rtac/pkg/reporting"
)

// loadConfig loads the configuration from file, auto-generating if needed
func loadConfig() (*config.Config, error) {
	configPath := cfgFile
	if configPath == "" {
		configPath = "config.yaml"
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		fmt.Printf("Config file not found, created default configuration at: %s\n", configPath)
		return cfg, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// newLogger builds the run's structured logger from the framework config
// and the global --verbose flag.
func newLogger(cfg *config.Config) *reporting.Logger {
	logLevel := reporting.LogLevel(cfg.Framework.LogLevel)
	if verbose {
		logLevel = reporting.LogLevelDebug
	}
	return reporting.NewLogger(reporting.LoggerConfig{
		Level:  logLevel,
		Format: reporting.LogFormat(cfg.Framework.LogFormat),
		Output: os.Stdout,
	})
}
