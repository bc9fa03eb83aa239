package config

import "time"

// Default values for configuration fields.
const (
	// API defaults
	DefaultAPIBaseURL         = "https://api.logz.io/v2"
	DefaultAPITimeout         = 30 * time.Second
	DefaultAPIMaxIdleConns    = 10
	DefaultAPIIdleConnTimeout = 90 * time.Second

	// Rules defaults
	DefaultRulesDir = "./rules"

	// Deploy defaults
	DefaultSearchEndpoint = "/security/rules/search"
	DefaultUpdateEndpoint = "/security/rules"
	DefaultSearchPageSize = 1000

	// Export defaults
	DefaultExportOutputDir = "./exported_rules"
	DefaultExportPageSize  = 200

	// History defaults
	DefaultHistoryEnabled       = true
	DefaultHistoryPath          = "data/history.db"
	DefaultHistoryRetentionDays = 90
	DefaultHistoryPruneSchedule = "0 3 * * *"

	// Watch defaults
	DefaultWatchDebounce = 2 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "text"
	DefaultMetricsListenAddress = "127.0.0.1:9464"
	DefaultMetricsPath          = "/metrics"
)

// DefaultCreateEndpoints returns the candidate create targets in priority
// order. The service has exposed the rule CRUD surface under different paths
// across API generations; trying them in order keeps older accounts working.
func DefaultCreateEndpoints() []string {
	return []string{"/security/rules", "/siem/rules", "/correlation-rules"}
}

// ApplyDefaults fills in zero-valued fields with their defaults. Explicit
// values from the file or the environment are never overwritten.
func ApplyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = DefaultAPIBaseURL
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = DefaultAPITimeout
	}
	if cfg.API.MaxIdleConns == 0 {
		cfg.API.MaxIdleConns = DefaultAPIMaxIdleConns
	}
	if cfg.API.IdleConnTimeout == 0 {
		cfg.API.IdleConnTimeout = DefaultAPIIdleConnTimeout
	}

	if cfg.Rules.Dir == "" {
		cfg.Rules.Dir = DefaultRulesDir
	}

	if cfg.Deploy.SearchEndpoint == "" {
		cfg.Deploy.SearchEndpoint = DefaultSearchEndpoint
	}
	if cfg.Deploy.UpdateEndpoint == "" {
		cfg.Deploy.UpdateEndpoint = DefaultUpdateEndpoint
	}
	if len(cfg.Deploy.CreateEndpoints) == 0 {
		cfg.Deploy.CreateEndpoints = DefaultCreateEndpoints()
	}
	if cfg.Deploy.SearchPageSize == 0 {
		cfg.Deploy.SearchPageSize = DefaultSearchPageSize
	}

	if cfg.Export.OutputDir == "" {
		cfg.Export.OutputDir = DefaultExportOutputDir
	}
	if cfg.Export.PageSize == 0 {
		cfg.Export.PageSize = DefaultExportPageSize
	}

	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if cfg.History.RetentionDays == 0 {
		cfg.History.RetentionDays = DefaultHistoryRetentionDays
	}
	if cfg.History.PruneSchedule == "" {
		cfg.History.PruneSchedule = DefaultHistoryPruneSchedule
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}

// NewDefault returns a configuration with every default applied and history
// recording enabled. Load decodes configuration files onto this, so a file
// only changes what it mentions.
func NewDefault() *Config {
	cfg := &Config{}
	cfg.History.Enabled = DefaultHistoryEnabled
	ApplyDefaults(cfg)
	return cfg
}
