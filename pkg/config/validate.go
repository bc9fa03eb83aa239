package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g. "api.base_url").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any rules fail. All errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateAPI(&cfg.API)...)
	errs = append(errs, validateDeploy(&cfg.Deploy)...)
	errs = append(errs, validateExport(&cfg.Export)...)
	errs = append(errs, validateHistory(&cfg.History)...)
	errs = append(errs, validateWatch(&cfg.Watch)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateAPI(cfg *APIConfig) []FieldError {
	var errs []FieldError

	if cfg.BaseURL == "" {
		errs = append(errs, FieldError{
			Field:   "api.base_url",
			Message: "base URL is required",
		})
	} else if u, err := url.Parse(cfg.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("must be an absolute URL, got %q", cfg.BaseURL),
		})
	}

	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "api.timeout",
			Message: "timeout must be positive",
		})
	}
	if cfg.MaxIdleConns < 0 {
		errs = append(errs, FieldError{
			Field:   "api.max_idle_conns",
			Message: "max idle connections must be non-negative",
		})
	}

	return errs
}

func validateDeploy(cfg *DeployConfig) []FieldError {
	var errs []FieldError

	if cfg.SearchEndpoint != "" && !strings.HasPrefix(cfg.SearchEndpoint, "/") {
		errs = append(errs, FieldError{
			Field:   "deploy.search_endpoint",
			Message: "endpoint path must start with /",
		})
	}
	if cfg.UpdateEndpoint == "" {
		errs = append(errs, FieldError{
			Field:   "deploy.update_endpoint",
			Message: "update endpoint is required",
		})
	} else if !strings.HasPrefix(cfg.UpdateEndpoint, "/") {
		errs = append(errs, FieldError{
			Field:   "deploy.update_endpoint",
			Message: "endpoint path must start with /",
		})
	}

	if len(cfg.CreateEndpoints) == 0 {
		errs = append(errs, FieldError{
			Field:   "deploy.create_endpoints",
			Message: "at least one create endpoint is required",
		})
	}
	for i, endpoint := range cfg.CreateEndpoints {
		if !strings.HasPrefix(endpoint, "/") {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("deploy.create_endpoints[%d]", i),
				Message: "endpoint path must start with /",
			})
		}
	}

	if cfg.SearchPageSize < 0 {
		errs = append(errs, FieldError{
			Field:   "deploy.search_page_size",
			Message: "page size must be non-negative",
		})
	}

	return errs
}

func validateExport(cfg *ExportConfig) []FieldError {
	var errs []FieldError

	if cfg.PageSize < 0 {
		errs = append(errs, FieldError{
			Field:   "export.page_size",
			Message: "page size must be non-negative",
		})
	}

	return errs
}

func validateHistory(cfg *HistoryConfig) []FieldError {
	var errs []FieldError

	if cfg.Enabled && cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "history.path",
			Message: "database path is required when history is enabled",
		})
	}
	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{
			Field:   "history.retention_days",
			Message: "retention days must be non-negative",
		})
	}
	if cfg.PruneSchedule != "" {
		if err := validateCronExpr(cfg.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "history.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

func validateWatch(cfg *WatchConfig) []FieldError {
	var errs []FieldError

	if cfg.Debounce < 0 {
		errs = append(errs, FieldError{
			Field:   "watch.debounce",
			Message: "debounce must be non-negative",
		})
	}
	if cfg.ResyncSchedule != "" {
		if err := validateCronExpr(cfg.ResyncSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "watch.resync_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("must be one of debug, info, warn, error; got %q", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "", "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("must be json or text; got %q", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.listen_address",
			Message: "listen address is required when metrics are enabled",
		})
	}

	return errs
}

// validateCronExpr checks a standard 5-field cron expression.
func validateCronExpr(expr string) error {
	_, err := cron.ParseStandard(expr)
	return err
}
