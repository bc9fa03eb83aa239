package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"rulewarden/warden/pkg/cli"
	"rulewarden/warden/pkg/config"
	"rulewarden/warden/pkg/deploy"
	"rulewarden/warden/pkg/telemetry/logging"
	"rulewarden/warden/pkg/telemetry/metrics"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Warden - SIEM security rule validation and deployment",
	Long: `Warden validates, cleans, and deploys SIEM security rules.

Rule documents are JSON or YAML files; warden checks them against the rule
schema, strips server-owned fields, and reconciles them against a remote
account by title: existing rules are updated in place, new rules are created.

Set WARDEN_API_TOKEN to authenticate against the remote rule service.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command, mapping ExitError to its process exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the configuration and installs the logger it describes.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Telemetry.Logging.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{
		Level:  level,
		Format: cfg.Telemetry.Logging.Format,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// newClient builds the API client from configuration. collector may be nil.
func newClient(cfg *config.Config, logger *slog.Logger, collector *metrics.Deployment) (*deploy.Client, error) {
	if cfg.API.Token == "" {
		return nil, cli.NewConfigError("api.token", "API token is required; set WARDEN_API_TOKEN")
	}
	return deploy.NewClient(deploy.ClientConfig{
		BaseURL:         cfg.API.BaseURL,
		APIToken:        cfg.API.Token,
		Timeout:         cfg.API.Timeout,
		MaxIdleConns:    cfg.API.MaxIdleConns,
		IdleConnTimeout: cfg.API.IdleConnTimeout,
	}, logger, collector), nil
}
