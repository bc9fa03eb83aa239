package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file, applies defaults, then
// environment variable overrides, and validates the result. Environment
// variables follow the naming convention WARDEN_SECTION_FIELD
// (e.g. WARDEN_API_TOKEN) and always take precedence over the file.
//
// An empty path starts from the built-in defaults instead of a file, so
// warden runs with nothing but WARDEN_API_TOKEN set.
func Load(path string) (*Config, error) {
	// The file is decoded onto a fully defaulted configuration, so sections
	// it omits keep their defaults. This matters for booleans that default
	// to true, like history.enabled: only an explicit `enabled: false` in
	// the file can turn them off.
	cfg := NewDefault()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
		ApplyDefaults(cfg)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Malformed values are ignored; validation catches anything
// that matters.
func applyEnvOverrides(cfg *Config) {
	// API overrides
	if val := os.Getenv("WARDEN_API_URL"); val != "" {
		cfg.API.BaseURL = val
	}
	if val := os.Getenv("WARDEN_API_TOKEN"); val != "" {
		cfg.API.Token = val
	}
	if val := os.Getenv("WARDEN_API_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.API.Timeout = d
		}
	}

	// Rules overrides
	if val := os.Getenv("WARDEN_RULES_DIR"); val != "" {
		cfg.Rules.Dir = val
	}
	if val := os.Getenv("WARDEN_RULES_STRICT"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Rules.Strict = b
		}
	}

	// Deploy overrides
	if val := os.Getenv("WARDEN_DEPLOY_SEARCH_ENDPOINT"); val != "" {
		cfg.Deploy.SearchEndpoint = val
	}
	if val := os.Getenv("WARDEN_DEPLOY_UPDATE_ENDPOINT"); val != "" {
		cfg.Deploy.UpdateEndpoint = val
	}
	if val := os.Getenv("WARDEN_DEPLOY_SEARCH_PAGE_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Deploy.SearchPageSize = i
		}
	}

	// Export overrides
	if val := os.Getenv("WARDEN_EXPORT_OUTPUT_DIR"); val != "" {
		cfg.Export.OutputDir = val
	}

	// History overrides
	if val := os.Getenv("WARDEN_HISTORY_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.History.Enabled = b
		}
	}
	if val := os.Getenv("WARDEN_HISTORY_PATH"); val != "" {
		cfg.History.Path = val
	}
	if val := os.Getenv("WARDEN_HISTORY_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.History.RetentionDays = i
		}
	}

	// Watch overrides
	if val := os.Getenv("WARDEN_WATCH_DEBOUNCE"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Watch.Debounce = d
		}
	}
	if val := os.Getenv("WARDEN_WATCH_RESYNC_SCHEDULE"); val != "" {
		cfg.Watch.ResyncSchedule = val
	}

	// Telemetry overrides
	if val := os.Getenv("WARDEN_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("WARDEN_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("WARDEN_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("WARDEN_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
}
