package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rulewarden/warden/pkg/rule"
	"rulewarden/warden/pkg/telemetry/metrics"
)

// Status is the terminal state of one document's reconciliation.
type Status string

const (
	// StatusCreated means a new remote rule was created for the document.
	StatusCreated Status = "CREATED"
	// StatusUpdated means an existing remote rule was updated in place.
	StatusUpdated Status = "UPDATED"
	// StatusFailed means no remote mutation succeeded for the document.
	StatusFailed Status = "FAILED"
)

// Outcome is the terminal result of applying one document.
type Outcome struct {
	// Status is the terminal state: CREATED, UPDATED, or FAILED.
	Status Status `json:"status"`

	// RemoteID is the remote rule id, when known.
	RemoteID string `json:"remoteId,omitempty"`

	// Endpoint is the endpoint that accepted the document (create only).
	Endpoint string `json:"endpoint,omitempty"`

	// Message is a human-readable description of the outcome.
	Message string `json:"message"`
}

// Succeeded reports whether the document reached the remote service.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusCreated || o.Status == StatusUpdated
}

// EngineConfig contains configuration for the reconciliation engine.
type EngineConfig struct {
	// UpdateEndpoint is the fixed update target; the remote id is appended
	// as a path segment.
	UpdateEndpoint string

	// CreateEndpoints are the candidate write targets, in declared
	// priority order. The first endpoint represents the primary rule
	// family; later entries are alternative families the same document
	// shape may belong to.
	CreateEndpoints []string
}

// Engine reconciles one document at a time against remote state:
// normalize, search by title, then exactly one write (update or create).
type Engine struct {
	config  EngineConfig
	client  *Client
	index   RemoteIndex
	logger  *slog.Logger
	metrics *metrics.Deployment
}

// NewEngine creates a reconciliation engine. The candidate endpoint order in
// cfg is preserved exactly; it is configuration, not a package constant, so
// callers and tests can substitute orderings.
func NewEngine(cfg EngineConfig, client *Client, index RemoteIndex, logger *slog.Logger, m *metrics.Deployment) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		config:  cfg,
		client:  client,
		index:   index,
		logger:  logger.With("component", "deploy.engine"),
		metrics: m,
	}
}

// Apply reconciles one document and returns its terminal outcome. At most
// one remote mutation is issued per call; the search probe is read-only.
func (e *Engine) Apply(ctx context.Context, doc rule.Document) Outcome {
	cleaned := rule.Normalize(doc)
	title := cleaned.Title()

	match, err := e.index.FindByTitle(ctx, title)
	if err != nil {
		return e.finish(Outcome{
			Status:  StatusFailed,
			Message: fmt.Sprintf("search for existing rule failed: %v", err),
		})
	}

	if match.Exists {
		return e.finish(e.update(ctx, match.RemoteID, cleaned))
	}
	return e.finish(e.create(ctx, cleaned))
}

// Plan reports what Apply would do without issuing any write. Used by
// dry-run deployments.
func (e *Engine) Plan(ctx context.Context, doc rule.Document) (Match, error) {
	cleaned := rule.Normalize(doc)
	return e.index.FindByTitle(ctx, cleaned.Title())
}

// update issues the single update call. The target is unambiguous once a
// remote id is known, so there is no retry and no fallback.
func (e *Engine) update(ctx context.Context, remoteID string, doc rule.Document) Outcome {
	e.logger.Info("updating existing rule", "title", doc.Title(), "remote_id", remoteID)

	_, err := e.client.Update(ctx, e.config.UpdateEndpoint, remoteID, doc)
	if err != nil {
		var rejection *RemoteRejectionError
		if errors.As(err, &rejection) {
			return Outcome{
				Status:   StatusFailed,
				RemoteID: remoteID,
				Message:  fmt.Sprintf("update failed: %s", rejection.Message),
			}
		}
		return Outcome{
			Status:   StatusFailed,
			RemoteID: remoteID,
			Message:  fmt.Sprintf("update failed: %v", err),
		}
	}

	return Outcome{
		Status:   StatusUpdated,
		RemoteID: remoteID,
		Message:  fmt.Sprintf("updated successfully (ID: %s)", remoteID),
	}
}

// create walks the candidate endpoints in declared priority order and stops
// at the first 2xx. A 404 means the endpoint does not exist in this
// deployment; any other rejection may just mean the document belongs to a
// different rule family. Either way the next candidate is tried. Individual
// endpoint failures are diagnostics, not the primary failure cause.
func (e *Engine) create(ctx context.Context, doc rule.Document) Outcome {
	e.logger.Info("creating new rule", "title", doc.Title())

	for _, endpoint := range e.config.CreateEndpoints {
		result, err := e.client.Create(ctx, endpoint, doc)
		if err == nil {
			return Outcome{
				Status:   StatusCreated,
				RemoteID: result.ID,
				Endpoint: endpoint,
				Message:  fmt.Sprintf("created successfully at %s (ID: %s)", endpoint, result.ID),
			}
		}

		if ctx.Err() != nil {
			break
		}

		var rejection *RemoteRejectionError
		switch {
		case errors.As(err, &rejection) && rejection.NotFound():
			e.logger.Debug("endpoint not available, trying next",
				"endpoint", endpoint,
			)
		case errors.As(err, &rejection):
			e.logger.Warn("endpoint rejected document, trying next",
				"endpoint", endpoint,
				"status", rejection.StatusCode,
				"detail", rejection.Message,
			)
		default:
			e.logger.Warn("request failed, trying next endpoint",
				"endpoint", endpoint,
				"error", err,
			)
		}
	}

	return Outcome{
		Status:  StatusFailed,
		Message: fmt.Sprintf("no endpoint accepted rule %q", doc.Title()),
	}
}

// finish records outcome metrics before handing the outcome back.
func (e *Engine) finish(outcome Outcome) Outcome {
	e.metrics.RecordDocument(string(outcome.Status))
	return outcome
}
