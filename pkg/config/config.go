package config

import "time"

// Config is the root configuration for warden. It is loaded from a YAML file,
// filled in with defaults, optionally overridden from the environment, and
// validated before use.
type Config struct {
	// API configures the connection to the remote rule service.
	API APIConfig `yaml:"api"`

	// Rules configures where rule documents are read from.
	Rules RulesConfig `yaml:"rules"`

	// Deploy configures the reconciliation endpoints and search behavior.
	Deploy DeployConfig `yaml:"deploy"`

	// Export configures rule exports from the remote account.
	Export ExportConfig `yaml:"export"`

	// History configures the local deployment history store.
	History HistoryConfig `yaml:"history"`

	// Watch configures continuous deployment of a rules directory.
	Watch WatchConfig `yaml:"watch"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// APIConfig describes the remote rule service connection.
type APIConfig struct {
	// BaseURL is the API root, e.g. "https://api.logz.io/v2".
	BaseURL string `yaml:"base_url"`

	// Token is the API token sent with every request. Prefer setting it
	// through WARDEN_API_TOKEN instead of the file.
	Token string `yaml:"token"`

	// Timeout is the per-request budget.
	Timeout time.Duration `yaml:"timeout"`

	// MaxIdleConns is the connection pool size.
	MaxIdleConns int `yaml:"max_idle_conns"`

	// IdleConnTimeout is how long idle connections are kept.
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// RulesConfig describes the local rule document source.
type RulesConfig struct {
	// Dir is the directory scanned for *.json and *.yaml rule documents.
	Dir string `yaml:"dir"`

	// Strict promotes validation warnings to errors.
	Strict bool `yaml:"strict"`
}

// DeployConfig describes reconciliation endpoints and search behavior.
type DeployConfig struct {
	// SearchEndpoint is the path used for the title existence probe.
	SearchEndpoint string `yaml:"search_endpoint"`

	// UpdateEndpoint is the path updates are sent to; the remote id is
	// appended as a path segment.
	UpdateEndpoint string `yaml:"update_endpoint"`

	// CreateEndpoints are the candidate create targets, in priority order.
	CreateEndpoints []string `yaml:"create_endpoints"`

	// SearchPageSize is the page size used by the existence probe.
	SearchPageSize int `yaml:"search_page_size"`

	// SkipValidation deploys documents without the local validation gate.
	SkipValidation bool `yaml:"skip_validation"`
}

// ExportConfig describes rule exports.
type ExportConfig struct {
	// OutputDir is where exported rule files are written.
	OutputDir string `yaml:"output_dir"`

	// PageSize is the search page size used while paginating the account.
	PageSize int `yaml:"page_size"`
}

// HistoryConfig describes the local deployment history store.
type HistoryConfig struct {
	// Enabled turns outcome recording on.
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file.
	Path string `yaml:"path"`

	// RetentionDays is how long deployment records are kept. Zero keeps
	// them forever.
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is the cron expression for retention pruning in watch
	// mode.
	PruneSchedule string `yaml:"prune_schedule"`
}

// WatchConfig describes continuous deployment.
type WatchConfig struct {
	// Debounce is how long the watcher waits after the last filesystem
	// event before deploying.
	Debounce time.Duration `yaml:"debounce"`

	// ResyncSchedule is the cron expression for periodic full redeploys,
	// catching remote drift between file changes. Empty disables resync.
	ResyncSchedule string `yaml:"resync_schedule"`
}

// TelemetryConfig describes logging and metrics.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig describes structured logging.
type LoggingConfig struct {
	// Level is one of: debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// MetricsConfig describes the Prometheus listener used in watch mode.
type MetricsConfig struct {
	// Enabled turns the metrics listener on.
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address the listener binds.
	ListenAddress string `yaml:"listen_address"`

	// Path is the scrape path.
	Path string `yaml:"path"`
}
