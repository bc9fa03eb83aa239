package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rulewarden/warden/pkg/cli"
	"rulewarden/warden/pkg/config"
	"rulewarden/warden/pkg/deploy"
	"rulewarden/warden/pkg/history"
	"rulewarden/warden/pkg/rule"
)

var deployFlags struct {
	file           string
	dir            string
	dryRun         bool
	skipValidation bool
	format         string
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy rule documents to the remote account",
	Long: `Deploy rule documents to the remote account.

Each document is validated, stripped of server-owned fields, and reconciled
by exact title match: an existing enabled rule with the same title is updated
in place, anything else is created. Documents are processed one at a time; a
failed document never stops the rest of the batch.

Examples:
  # Deploy a rules directory
  warden deploy --dir rules/

  # Deploy one file
  warden deploy --file rules/failed-logins.json

  # Show what would happen without writing
  warden deploy --dir rules/ --dry-run

  # Skip the local validation gate
  warden deploy --dir rules/ --skip-validation`,
	RunE: runDeploy,
}

func init() {
	rootCmd.AddCommand(deployCmd)

	deployCmd.Flags().StringVarP(&deployFlags.file, "file", "f", "", "rule file to deploy")
	deployCmd.Flags().StringVarP(&deployFlags.dir, "dir", "d", "", "directory of rule files")
	deployCmd.Flags().BoolVar(&deployFlags.dryRun, "dry-run", false, "search but do not write")
	deployCmd.Flags().BoolVar(&deployFlags.skipValidation, "skip-validation", false, "deploy without validating first")
	deployCmd.Flags().StringVar(&deployFlags.format, "format", "text", "output format: text, json")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(deployFlags.format)
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	items, err := loadDeployItems(cfg)
	if err != nil {
		return err
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	client, err := newClient(cfg, logger, nil)
	if err != nil {
		return err
	}
	index := deploy.NewSearchIndex(client, cfg.Deploy.SearchEndpoint, cfg.Deploy.SearchPageSize, logger)
	engine := deploy.NewEngine(deploy.EngineConfig{
		UpdateEndpoint:  cfg.Deploy.UpdateEndpoint,
		CreateEndpoints: cfg.Deploy.CreateEndpoints,
	}, client, index, logger, nil)

	if deployFlags.dryRun {
		return runDryRun(ctx, engine, items, format)
	}

	var recorder deploy.Recorder
	if cfg.History.Enabled {
		store, err := history.Open(history.Config{
			Path:          cfg.History.Path,
			RetentionDays: cfg.History.RetentionDays,
		}, logger)
		if err != nil {
			// Deploy anyway; history is best-effort.
			logger.Warn("deployment history unavailable", "error", err)
		} else {
			defer store.Close()
			if _, err := store.BeginRun(ctx, "deploy"); err != nil {
				logger.Warn("failed to begin history run", "error", err)
			} else {
				recorder = store
			}
		}
	}

	deployer := deploy.NewDeployer(engine, recorder, logger)
	if format == cli.FormatJSON {
		// Structured output stays machine-readable.
		deployer.SetProgress(cli.NopProgress{})
	} else {
		deployer.SetProgress(cli.NewProgressReporter(os.Stderr))
	}
	summary := deployer.ApplyAll(ctx, items)

	if format == cli.FormatJSON {
		if err := cli.NewFormatter(format).FormatTo(os.Stdout, summary); err != nil {
			return err
		}
	} else {
		printSummary(summary)
	}

	if !summary.AllSucceeded() {
		return cli.NewExitError(1, "")
	}
	return nil
}

// loadDeployItems loads and validates the documents to deploy. Validation
// errors abort before anything touches the remote account.
func loadDeployItems(cfg *config.Config) ([]deploy.Item, error) {
	files, err := collectRuleFiles(deployFlags.file, deployFlags.dir)
	if err != nil {
		return nil, err
	}

	items := make([]deploy.Item, 0, len(files))
	invalid := 0
	for _, file := range files {
		doc, err := rule.Load(file)
		if err != nil {
			return nil, err
		}

		if !deployFlags.skipValidation {
			report := rule.Validate(doc)
			if !report.Valid() {
				invalid++
				fmt.Fprintf(os.Stderr, "%s: %s\n", file, report.Summary())
				for _, finding := range report.Errors {
					fmt.Fprintf(os.Stderr, "  ✗ %s\n", finding.String())
				}
				continue
			}
			if cfg.Rules.Strict && len(report.Warnings) > 0 {
				invalid++
				for _, finding := range report.Warnings {
					fmt.Fprintf(os.Stderr, "  ⚠ %s\n", finding.String())
				}
				continue
			}
		}

		items = append(items, deploy.Item{Source: file, Doc: doc})
	}

	if invalid > 0 {
		return nil, fmt.Errorf("%d document(s) failed validation; fix them or use --skip-validation", invalid)
	}
	return items, nil
}

// DryRunResult reports what a deploy would do for one document.
type DryRunResult struct {
	Source   string `json:"source"`
	Title    string `json:"title"`
	Action   string `json:"action"`
	RemoteID string `json:"remoteId,omitempty"`
}

func runDryRun(ctx context.Context, engine *deploy.Engine, items []deploy.Item, format cli.OutputFormat) error {
	results := make([]DryRunResult, 0, len(items))
	for _, item := range items {
		match, err := engine.Plan(ctx, item.Doc)
		if err != nil {
			return err
		}

		action := "create"
		if match.Exists {
			action = "update"
		}
		results = append(results, DryRunResult{
			Source:   item.Source,
			Title:    item.Doc.Title(),
			Action:   action,
			RemoteID: match.RemoteID,
		})
	}

	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(os.Stdout, results)
	}

	for _, result := range results {
		if result.Action == "update" {
			fmt.Printf("would update %q (ID: %s) from %s\n", result.Title, result.RemoteID, result.Source)
		} else {
			fmt.Printf("would create %q from %s\n", result.Title, result.Source)
		}
	}
	fmt.Printf("%d document(s), no changes made\n", len(results))
	return nil
}

func printSummary(summary deploy.Summary) {
	fmt.Printf("Deployed %d document(s): %d created, %d updated, %d failed\n",
		summary.Total, summary.Created, summary.Updated, summary.Failed)

	for _, detail := range summary.FailedDetails {
		fmt.Printf("✗ %s (%q): %s\n", detail.Source, detail.Title, detail.Message)
	}
}
