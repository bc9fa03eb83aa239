package deploy

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
)

// Match is the result of probing the remote account for an existing rule.
type Match struct {
	// Exists reports whether a rule with the exact title was found.
	Exists bool

	// RemoteID is the id of the matched rule, empty when Exists is false.
	RemoteID string
}

// RemoteIndex looks up existing remote rules by title.
type RemoteIndex interface {
	// FindByTitle reports whether an enabled remote rule carries exactly
	// the given title. The first exact match by scan order wins.
	FindByTitle(ctx context.Context, title string) (Match, error)
}

// nearMatchScanLimit caps how many results are scanned for similar-title
// diagnostics when no exact match is found.
const nearMatchScanLimit = 50

// SearchIndex implements RemoteIndex over one page of the rule search API.
//
// The scan covers a single page of enabled rules. If the account holds more
// rules than one page, a rule past the page boundary yields a false negative
// and the engine will attempt a create instead of an update. That truncation
// is logged but accepted; fixing it would require paginating inside the
// existence check.
type SearchIndex struct {
	client   *Client
	endpoint string
	pageSize int
	logger   *slog.Logger
}

// NewSearchIndex creates a remote index over the given search endpoint path.
func NewSearchIndex(client *Client, endpoint string, pageSize int, logger *slog.Logger) *SearchIndex {
	if pageSize <= 0 {
		pageSize = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchIndex{
		client:   client,
		endpoint: endpoint,
		pageSize: pageSize,
		logger:   logger.With("component", "deploy.index"),
	}
}

// FindByTitle scans the first page of enabled remote rules for an exact
// title match. Search failures are treated as "not found": the caller will
// fall through to the create flow, matching how an absent search endpoint
// behaves. Context cancellation is the one failure that propagates.
func (idx *SearchIndex) FindByTitle(ctx context.Context, title string) (Match, error) {
	resp, err := idx.client.Search(ctx, idx.endpoint, SearchRequest{
		Filter:     SearchFilter{EnabledState: []bool{true}},
		Pagination: Pagination{PageNumber: 1, PageSize: idx.pageSize},
	})
	if err != nil {
		if ctx.Err() != nil {
			return Match{}, ctx.Err()
		}
		idx.logger.Warn("rule search failed, treating rule as absent",
			"title", title,
			"error", err,
		)
		return Match{}, nil
	}

	for i, remote := range resp.Results {
		if remote.Title() == title {
			id := remoteID(remote)
			idx.logger.Debug("found existing rule",
				"title", title,
				"remote_id", id,
				"position", i+1,
			)
			return Match{Exists: true, RemoteID: id}, nil
		}
	}

	// Diagnostics only: similar titles help operators spot renames, but
	// they never influence the result.
	idx.logNearMatches(title, resp)

	if resp.Total > len(resp.Results) {
		idx.logger.Warn("remote listing truncated, existence check may be incomplete",
			"scanned", len(resp.Results),
			"total_enabled", resp.Total,
		)
	}

	return Match{}, nil
}

// logNearMatches reports case-insensitive or substring title matches over a
// capped prefix of the scanned results.
func (idx *SearchIndex) logNearMatches(title string, resp *SearchResponse) {
	lower := strings.ToLower(title)

	limit := len(resp.Results)
	if limit > nearMatchScanLimit {
		limit = nearMatchScanLimit
	}

	for _, remote := range resp.Results[:limit] {
		remoteTitle := remote.Title()
		remoteLower := strings.ToLower(remoteTitle)
		if strings.Contains(remoteLower, lower) || strings.Contains(lower, remoteLower) {
			idx.logger.Info("similar remote rule title",
				"wanted", title,
				"found", remoteTitle,
				"remote_id", remoteID(remote),
			)
		}
	}
}

// remoteID reads a remote rule's id, tolerating numeric ids.
func remoteID(doc map[string]any) string {
	switch id := doc["id"].(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	}
	return ""
}
