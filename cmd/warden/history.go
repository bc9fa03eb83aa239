package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rulewarden/warden/pkg/cli"
	"rulewarden/warden/pkg/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect local deployment history",
}

var historyListFlags struct {
	limit  int
	runID  string
	runs   bool
	format string
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded deployment outcomes",
	Long: `List recorded deployment outcomes, most recent first.

Examples:
  # The last 50 outcomes
  warden history list

  # One run's outcomes in order
  warden history list --run 2f3a...

  # The runs themselves, one line each
  warden history list --runs

  # JSON output
  warden history list --format json`,
	RunE: runHistoryList,
}

var historyPruneFlags struct {
	olderThan int
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete deployment records past the retention window",
	RunE:  runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyPruneCmd)

	historyListCmd.Flags().IntVarP(&historyListFlags.limit, "limit", "n", 50, "maximum records to list")
	historyListCmd.Flags().StringVar(&historyListFlags.runID, "run", "", "list one run's records")
	historyListCmd.Flags().BoolVar(&historyListFlags.runs, "runs", false, "list deployment runs instead of records")
	historyListCmd.Flags().StringVar(&historyListFlags.format, "format", "text", "output format: text, json")

	historyPruneCmd.Flags().IntVar(&historyPruneFlags.olderThan, "older-than", 0, "override retention window in days")
}

func openHistory() (*history.Store, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, fmt.Errorf("deployment history is disabled in configuration")
	}

	retention := cfg.History.RetentionDays
	if historyPruneFlags.olderThan > 0 {
		retention = historyPruneFlags.olderThan
	}

	return history.Open(history.Config{
		Path:          cfg.History.Path,
		RetentionDays: retention,
	}, logger)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(historyListFlags.format)
	if err != nil {
		return err
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	if historyListFlags.runs {
		return listRuns(ctx, store, format)
	}

	var records []history.Record
	if historyListFlags.runID != "" {
		records, err = store.ListRun(ctx, historyListFlags.runID)
	} else {
		records, err = store.ListRecent(ctx, historyListFlags.limit)
	}
	if err != nil {
		return err
	}

	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(os.Stdout, records)
	}

	if len(records) == 0 {
		fmt.Println("no deployment records")
		return nil
	}
	for _, record := range records {
		fmt.Printf("%s  %-7s  %-30q  %s", record.RecordedAt.Format("2006-01-02 15:04:05"), record.Status, record.Title, record.Source)
		if record.RemoteID != "" {
			fmt.Printf("  (ID: %s)", record.RemoteID)
		}
		fmt.Println()
		if record.Status == "FAILED" && record.Message != "" {
			fmt.Printf("    %s\n", record.Message)
		}
	}
	return nil
}

func listRuns(ctx context.Context, store *history.Store, format cli.OutputFormat) error {
	runs, err := store.ListRuns(ctx, historyListFlags.limit)
	if err != nil {
		return err
	}

	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(os.Stdout, runs)
	}

	if len(runs) == 0 {
		fmt.Println("no deployment runs")
		return nil
	}
	for _, run := range runs {
		fmt.Printf("%s  %-8s  %s\n", run.StartedAt.Format("2006-01-02 15:04:05"), run.Trigger, run.ID)
	}
	return nil
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	deleted, err := store.Prune(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d record(s) pruned\n", deleted)
	return nil
}
