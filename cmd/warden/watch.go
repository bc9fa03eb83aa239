package main

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"

	"rulewarden/warden/pkg/cli"
	"rulewarden/warden/pkg/deploy"
	"rulewarden/warden/pkg/history"
	"rulewarden/warden/pkg/rule"
	"rulewarden/warden/pkg/telemetry/metrics"
	"rulewarden/warden/pkg/watch"
)

var watchFlags struct {
	dir string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously deploy a rules directory",
	Long: `Continuously deploy a rules directory.

Watch deploys the directory once at startup, then redeploys after every
debounced burst of rule file changes. An optional cron schedule forces
periodic full resyncs to catch remote drift, and another prunes aged
deployment history. When metrics are enabled, a Prometheus endpoint exposes
deployment counters.

Runs until interrupted.

Examples:
  # Watch the configured rules directory
  warden watch

  # Watch a specific directory
  warden watch --dir rules/`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchFlags.dir, "dir", "d", "", "directory of rule files (default from config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	dir := cfg.Rules.Dir
	if watchFlags.dir != "" {
		dir = watchFlags.dir
	}

	collector := metrics.NewDeployment("warden", nil)
	client, err := newClient(cfg, logger, collector)
	if err != nil {
		return err
	}
	index := deploy.NewSearchIndex(client, cfg.Deploy.SearchEndpoint, cfg.Deploy.SearchPageSize, logger)
	engine := deploy.NewEngine(deploy.EngineConfig{
		UpdateEndpoint:  cfg.Deploy.UpdateEndpoint,
		CreateEndpoints: cfg.Deploy.CreateEndpoints,
	}, client, index, logger, collector)

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(history.Config{
			Path:          cfg.History.Path,
			RetentionDays: cfg.History.RetentionDays,
		}, logger)
		if err != nil {
			logger.Warn("deployment history unavailable", "error", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	if cfg.Telemetry.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
		server := &http.Server{Addr: cfg.Telemetry.Metrics.ListenAddress, Handler: mux}
		go func() {
			logger.Info("metrics listener started",
				"address", cfg.Telemetry.Metrics.ListenAddress,
				"path", cfg.Telemetry.Metrics.Path,
			)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics listener failed", "error", err)
			}
		}()
		defer server.Close()
	}

	syncFn := func(ctx context.Context, trigger string) error {
		files, err := rule.ListFiles(dir)
		if err != nil {
			return err
		}

		items := make([]deploy.Item, 0, len(files))
		for _, file := range files {
			doc, err := rule.Load(file)
			if err != nil {
				logger.Warn("skipping unreadable rule file", "path", file, "error", err)
				continue
			}
			report := rule.Validate(doc)
			collector.RecordFindings(len(report.Errors), len(report.Warnings))
			if !report.Valid() {
				logger.Warn("skipping invalid rule file", "path", file, "summary", report.Summary())
				continue
			}
			items = append(items, deploy.Item{Source: file, Doc: doc})
		}

		var recorder deploy.Recorder
		if store != nil {
			if _, err := store.BeginRun(ctx, trigger); err != nil {
				logger.Warn("failed to begin history run", "error", err)
			} else {
				recorder = store
			}
		}

		summary := deploy.NewDeployer(engine, recorder, logger).ApplyAll(ctx, items)
		logger.Info("sync complete",
			"trigger", trigger,
			"total", summary.Total,
			"created", summary.Created,
			"updated", summary.Updated,
			"failed", summary.Failed,
		)
		return nil
	}

	var pruneFn watch.PruneFunc
	if store != nil {
		pruneFn = func(ctx context.Context) error {
			_, err := store.Prune(ctx)
			return err
		}
	}

	runner := watch.NewRunner(watch.RunnerConfig{
		Dir:            dir,
		Debounce:       cfg.Watch.Debounce,
		ResyncSchedule: cfg.Watch.ResyncSchedule,
		PruneSchedule:  cfg.History.PruneSchedule,
	}, syncFn, pruneFn, logger)

	if err := runner.Run(ctx); err != nil {
		return cli.NewCommandError("watch", err)
	}
	return nil
}
