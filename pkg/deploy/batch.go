package deploy

import (
	"context"
	"log/slog"

	"rulewarden/warden/pkg/rule"
)

// Item is one document queued for deployment, tagged with the source it was
// loaded from so failures can name the file.
type Item struct {
	// Source is the file path (or other origin label) of the document.
	Source string

	// Doc is the loaded document.
	Doc rule.Document
}

// FailedDetail names one document that ended in FAILED.
type FailedDetail struct {
	Source  string `json:"source"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
}

// Summary aggregates the per-document outcomes of one batch run.
type Summary struct {
	Total         int            `json:"total"`
	Succeeded     int            `json:"succeeded"`
	Created       int            `json:"created"`
	Updated       int            `json:"updated"`
	Failed        int            `json:"failed"`
	FailedDetails []FailedDetail `json:"failedDetails,omitempty"`
}

// AllSucceeded reports whether every document in the batch reached the
// remote service. This drives the process exit disposition.
func (s Summary) AllSucceeded() bool {
	return s.Failed == 0
}

// Recorder persists per-document outcomes, e.g. into the deployment history
// store. A nil Recorder disables persistence.
type Recorder interface {
	RecordOutcome(ctx context.Context, source, title string, outcome Outcome) error
}

// Progress receives one event per processed document, for user-facing
// counters on long batches. Implementations must tolerate concurrent use
// with the logger writing to the same terminal.
type Progress interface {
	Start(total int)
	Step(label string)
	Finish()
}

// Deployer applies the reconciliation engine to a whole batch of documents.
type Deployer struct {
	engine   *Engine
	recorder Recorder
	progress Progress
	logger   *slog.Logger
}

// NewDeployer creates a batch deployer. recorder may be nil.
func NewDeployer(engine *Engine, recorder Recorder, logger *slog.Logger) *Deployer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deployer{
		engine:   engine,
		recorder: recorder,
		logger:   logger.With("component", "deploy.batch"),
	}
}

// SetProgress installs a per-document progress reporter. A nil progress
// keeps the deployer silent.
func (d *Deployer) SetProgress(p Progress) {
	d.progress = p
}

// ApplyAll reconciles every document in order. Documents are processed
// strictly sequentially and independently: one FAILED outcome never aborts
// the rest of the batch, and FailedDetails preserves input order.
func (d *Deployer) ApplyAll(ctx context.Context, items []Item) Summary {
	summary := Summary{Total: len(items)}

	if d.progress != nil {
		d.progress.Start(len(items))
		defer d.progress.Finish()
	}

	for _, item := range items {
		title := item.Doc.Title()
		outcome := d.engine.Apply(ctx, item.Doc)
		if d.progress != nil {
			d.progress.Step(item.Source)
		}

		switch outcome.Status {
		case StatusCreated:
			summary.Succeeded++
			summary.Created++
		case StatusUpdated:
			summary.Succeeded++
			summary.Updated++
		default:
			summary.Failed++
			summary.FailedDetails = append(summary.FailedDetails, FailedDetail{
				Source:  item.Source,
				Title:   title,
				Message: outcome.Message,
			})
		}

		d.logger.Info("document processed",
			"source", item.Source,
			"title", title,
			"status", outcome.Status,
			"remote_id", outcome.RemoteID,
		)

		if d.recorder != nil {
			if err := d.recorder.RecordOutcome(ctx, item.Source, title, outcome); err != nil {
				// History is best-effort; a recording failure must not
				// change the document's outcome.
				d.logger.Warn("failed to record outcome", "source", item.Source, "error", err)
			}
		}
	}

	return summary
}
