package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SyncFunc runs one full deployment of the rules directory. trigger names
// what caused it: "startup", "change", or "resync".
type SyncFunc func(ctx context.Context, trigger string) error

// PruneFunc prunes aged deployment history.
type PruneFunc func(ctx context.Context) error

// RunnerConfig contains configuration for the watch runner.
type RunnerConfig struct {
	// Dir is the rules directory.
	Dir string

	// Debounce is the quiet period after the last file event.
	Debounce time.Duration

	// ResyncSchedule is a cron expression for periodic full redeploys,
	// catching remote drift between file changes. Empty disables resync.
	ResyncSchedule string

	// PruneSchedule is a cron expression for history pruning. Empty
	// disables scheduled pruning.
	PruneSchedule string
}

// Runner ties the directory watcher and the cron schedules into one
// continuous deployment loop.
type Runner struct {
	config RunnerConfig
	sync   SyncFunc
	prune  PruneFunc
	logger *slog.Logger
}

// NewRunner creates a watch runner. prune may be nil when history is
// disabled.
func NewRunner(cfg RunnerConfig, sync SyncFunc, prune PruneFunc, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		config: cfg,
		sync:   sync,
		prune:  prune,
		logger: logger.With("component", "watch.runner"),
	}
}

// Run deploys once at startup, then blocks redeploying on file changes and
// on the resync schedule until the context is cancelled. Deploy failures are
// logged and the loop keeps running; only setup failures return an error.
func (r *Runner) Run(ctx context.Context) error {
	watcher, err := NewWatcher(r.config.Dir, r.config.Debounce, r.logger)
	if err != nil {
		return err
	}

	scheduler, err := r.schedule(ctx)
	if err != nil {
		watcher.Stop()
		return err
	}
	if scheduler != nil {
		scheduler.Start()
		defer scheduler.Stop()
	}

	r.runSync(ctx, "startup")

	err = watcher.Watch(ctx, func() {
		r.runSync(ctx, "change")
	})
	watcher.Stop()
	return err
}

// schedule builds the cron scheduler for resync and prune jobs, or nil when
// neither is configured.
func (r *Runner) schedule(ctx context.Context) (*cron.Cron, error) {
	if r.config.ResyncSchedule == "" && (r.config.PruneSchedule == "" || r.prune == nil) {
		return nil, nil
	}

	scheduler := cron.New()

	if r.config.ResyncSchedule != "" {
		_, err := scheduler.AddFunc(r.config.ResyncSchedule, func() {
			r.runSync(ctx, "resync")
		})
		if err != nil {
			return nil, fmt.Errorf("invalid resync schedule %q: %w", r.config.ResyncSchedule, err)
		}
		r.logger.Info("resync scheduled", "schedule", r.config.ResyncSchedule)
	}

	if r.config.PruneSchedule != "" && r.prune != nil {
		_, err := scheduler.AddFunc(r.config.PruneSchedule, func() {
			if err := r.prune(ctx); err != nil {
				r.logger.Error("history prune failed", "error", err)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("invalid prune schedule %q: %w", r.config.PruneSchedule, err)
		}
		r.logger.Info("history pruning scheduled", "schedule", r.config.PruneSchedule)
	}

	return scheduler, nil
}

func (r *Runner) runSync(ctx context.Context, trigger string) {
	if ctx.Err() != nil {
		return
	}
	r.logger.Info("deploying rules directory", "trigger", trigger)
	if err := r.sync(ctx, trigger); err != nil {
		r.logger.Error("deployment failed", "trigger", trigger, "error", err)
	}
}
