package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"rulewarden/warden/pkg/deploy"
)

// Config contains configuration for the history store.
type Config struct {
	// Path is the database file path. Parent directories are created.
	Path string

	// RetentionDays is how long records are kept by Prune. Zero disables
	// pruning.
	RetentionDays int

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// Store persists deployment runs and their per-document outcomes.
type Store struct {
	db     *sql.DB
	config Config
	logger *slog.Logger

	mu    sync.Mutex
	runID string
}

// Run is one batch deployment.
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	Trigger   string    `json:"trigger"`
}

// Record is one document outcome within a run.
type Record struct {
	ID         string    `json:"id"`
	RunID      string    `json:"runId"`
	RecordedAt time.Time `json:"recordedAt"`
	Source     string    `json:"source"`
	Title      string    `json:"title,omitempty"`
	Status     string    `json:"status"`
	RemoteID   string    `json:"remoteId,omitempty"`
	Endpoint   string    `json:"endpoint,omitempty"`
	Message    string    `json:"message,omitempty"`
}

// Open creates or opens the history database, initializing the schema.
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory %q: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %q: %w", cfg.Path, err)
	}

	s := &Store{
		db:     db,
		config: cfg,
		logger: logger.With("component", "history"),
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Debug("history store opened", "path", cfg.Path)
	return s, nil
}

// initialize sets up the schema and the connection pragmas.
func (s *Store) initialize() error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create history schema: %w", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version != SchemaVersion {
		return fmt.Errorf("history schema version mismatch: expected %d, got %d", SchemaVersion, version)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun opens a new deployment run and makes it the target of subsequent
// RecordOutcome calls. trigger names what started the run, e.g. "deploy",
// "watch", or "resync".
func (s *Store) BeginRun(ctx context.Context, trigger string) (string, error) {
	runID := uuid.NewString()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, trigger) VALUES (?, ?, ?)`,
		runID, time.Now().UTC(), trigger,
	)
	if err != nil {
		return "", fmt.Errorf("failed to begin run: %w", err)
	}

	s.mu.Lock()
	s.runID = runID
	s.mu.Unlock()

	return runID, nil
}

// RecordOutcome persists one document outcome under the current run. It
// implements deploy.Recorder.
func (s *Store) RecordOutcome(ctx context.Context, source, title string, outcome deploy.Outcome) error {
	s.mu.Lock()
	runID := s.runID
	s.mu.Unlock()

	if runID == "" {
		return fmt.Errorf("no active run; call BeginRun first")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (id, run_id, recorded_at, source, title, status, remote_id, endpoint, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), runID, time.Now().UTC(),
		source, title,
		string(outcome.Status), outcome.RemoteID, outcome.Endpoint, outcome.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

// ListRecent returns up to limit records, most recent first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, recorded_at, source, title, status, remote_id, endpoint, message
		 FROM records ORDER BY recorded_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListRun returns the records of one run in recording order.
func (s *Store) ListRun(ctx context.Context, runID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, recorded_at, source, title, status, remote_id, endpoint, message
		 FROM records WHERE run_id = ? ORDER BY recorded_at ASC, id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list run %q: %w", runID, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListRuns returns up to limit runs, most recent first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, trigger FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.Trigger); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Prune deletes records older than the retention window, along with runs
// that no longer have records. A zero retention keeps everything.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	if s.config.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -s.config.RetentionDays)

	result, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE recorded_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune records: %w", err)
	}
	deleted, _ := result.RowsAffected()

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT DISTINCT run_id FROM records)`); err != nil {
		return deleted, fmt.Errorf("failed to prune runs: %w", err)
	}

	if deleted > 0 {
		s.logger.Info("pruned deployment history", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.RunID, &r.RecordedAt, &r.Source, &r.Title,
			&r.Status, &r.RemoteID, &r.Endpoint, &r.Message); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
