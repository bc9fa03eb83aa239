package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"rulewarden/warden/pkg/deploy"
	"rulewarden/warden/pkg/rule"
)

// maxFilenameTitle caps the sanitized title portion of an export filename.
const maxFilenameTitle = 100

// Config contains configuration for the exporter.
type Config struct {
	// SearchEndpoints are the candidate search paths, in priority order.
	// The first endpoint that answers the initial page is used for the
	// whole export.
	SearchEndpoints []string

	// OutputDir is where rule files are written. It is created if absent.
	OutputDir string

	// PageSize is the search page size.
	// Default: 200
	PageSize int

	// Tags filters the export to rules carrying any of the given tags.
	// Empty exports every enabled rule.
	Tags []string
}

// Summary reports what one export run did.
type Summary struct {
	// Total is the number of rules the account reported.
	Total int `json:"total"`

	// Written is the number of files written.
	Written int `json:"written"`

	// Skipped counts rules that could not be written, e.g. documents
	// without an id.
	Skipped int `json:"skipped"`

	// Endpoint is the search endpoint that served the export.
	Endpoint string `json:"endpoint"`
}

// Exporter fetches rule documents page by page and saves each one as a JSON
// file named <id>_<sanitized-title>.json.
type Exporter struct {
	client   *deploy.Client
	config   Config
	progress deploy.Progress
	logger   *slog.Logger
}

// New creates an exporter.
func New(client *deploy.Client, cfg Config, logger *slog.Logger) *Exporter {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 200
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		client: client,
		config: cfg,
		logger: logger.With("component", "export"),
	}
}

// SetProgress installs a per-file progress reporter. A nil progress keeps
// the exporter silent.
func (e *Exporter) SetProgress(p deploy.Progress) {
	e.progress = p
}

// Run fetches every matching rule and writes it to the output directory.
// Unlike the deploy-time existence probe, the export paginates until the
// whole account has been read.
func (e *Exporter) Run(ctx context.Context) (Summary, error) {
	endpoint, first, err := e.firstPage(ctx)
	if err != nil {
		return Summary{}, err
	}

	if err := os.MkdirAll(e.config.OutputDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("failed to create output directory %q: %w", e.config.OutputDir, err)
	}

	summary := Summary{Total: first.Total, Endpoint: endpoint}
	if e.progress != nil {
		e.progress.Start(first.Total)
		defer e.progress.Finish()
	}
	e.writePage(first.Results, &summary)

	fetched := len(first.Results)
	for page := 2; fetched < first.Total; page++ {
		resp, err := e.client.Search(ctx, endpoint, e.searchRequest(page))
		if err != nil {
			return summary, fmt.Errorf("failed to fetch page %d: %w", page, err)
		}
		if len(resp.Results) == 0 {
			// The account shrank mid-export; stop rather than loop.
			break
		}
		e.writePage(resp.Results, &summary)
		fetched += len(resp.Results)
	}

	e.logger.Info("export finished",
		"endpoint", endpoint,
		"total", summary.Total,
		"written", summary.Written,
		"skipped", summary.Skipped,
	)
	return summary, nil
}

// firstPage walks the candidate endpoints until one answers.
func (e *Exporter) firstPage(ctx context.Context) (string, *deploy.SearchResponse, error) {
	var lastErr error
	for _, endpoint := range e.config.SearchEndpoints {
		resp, err := e.client.Search(ctx, endpoint, e.searchRequest(1))
		if err == nil {
			return endpoint, resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}

		var rejection *deploy.RemoteRejectionError
		if errors.As(err, &rejection) && rejection.NotFound() {
			e.logger.Debug("search endpoint not available, trying next", "endpoint", endpoint)
			continue
		}
		e.logger.Warn("search endpoint failed, trying next", "endpoint", endpoint, "error", err)
	}
	return "", nil, fmt.Errorf("no search endpoint answered: %w", lastErr)
}

func (e *Exporter) searchRequest(page int) deploy.SearchRequest {
	return deploy.SearchRequest{
		Filter: deploy.SearchFilter{
			EnabledState: []bool{true},
			Tags:         e.config.Tags,
		},
		Pagination: deploy.Pagination{PageNumber: page, PageSize: e.config.PageSize},
	}
}

func (e *Exporter) writePage(docs []rule.Document, summary *Summary) {
	for _, doc := range docs {
		name, ok := Filename(doc)
		if !ok {
			e.logger.Warn("skipping rule without usable id", "title", doc.Title())
			summary.Skipped++
			continue
		}

		path := filepath.Join(e.config.OutputDir, name)
		if err := rule.SaveJSON(path, doc); err != nil {
			e.logger.Warn("failed to write rule file", "path", path, "error", err)
			summary.Skipped++
			continue
		}
		summary.Written++
		if e.progress != nil {
			e.progress.Step(name)
		}
	}
}

// Filename builds the export filename <id>_<sanitized-title>.json for a rule
// document. It returns false when the document carries no id.
func Filename(doc rule.Document) (string, bool) {
	id := documentID(doc)
	if id == "" {
		return "", false
	}
	return id + "_" + SanitizeTitle(doc.Title()) + ".json", true
}

// SanitizeTitle turns a rule title into a safe filename fragment: characters
// outside letters, digits, '-', '_' and '.' become '-', runs of whitespace
// collapse to one '-', and the result is capped at 100 characters.
func SanitizeTitle(title string) string {
	var sb strings.Builder
	lastDash := false
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}

	out := strings.Trim(sb.String(), "-")
	if out == "" {
		out = "untitled"
	}
	if len(out) > maxFilenameTitle {
		out = out[:maxFilenameTitle]
	}
	return out
}

func documentID(doc rule.Document) string {
	switch id := doc["id"].(type) {
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	case int:
		return fmt.Sprintf("%d", id)
	}
	return ""
}
