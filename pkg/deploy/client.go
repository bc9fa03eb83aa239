package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rulewarden/warden/pkg/rule"
	"rulewarden/warden/pkg/telemetry/metrics"
)

// messageKeys is the ranked list of body keys consulted, in order, when
// extracting a human-readable message from an error response.
var messageKeys = []string{"message", "error", "errorMessage"}

// noMessage is returned when an error body carries none of the known keys.
const noMessage = "no error message provided"

// ClientConfig contains configuration for the API client.
type ClientConfig struct {
	// BaseURL is the API root, e.g. "https://api.example.io/v2".
	// A trailing slash is stripped.
	BaseURL string

	// APIToken is the opaque token sent in the X-API-TOKEN header.
	APIToken string

	// Timeout is the per-call budget. A call that exceeds it is treated
	// as a transport failure.
	// Default: 30s
	Timeout time.Duration

	// MaxIdleConns is the connection pool size.
	// Default: 10
	MaxIdleConns int

	// IdleConnTimeout is how long idle connections are kept.
	// Default: 90s
	IdleConnTimeout time.Duration
}

// Client is the HTTP client for the remote rule service. It carries the API
// token, enforces the per-call timeout, and translates responses into the
// package's typed errors.
type Client struct {
	config  ClientConfig
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Deployment
}

// NewClient creates an API client with connection pooling.
func NewClient(cfg ClientConfig, logger *slog.Logger, m *metrics.Deployment) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 10
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		config: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger:  logger.With("component", "deploy.client"),
		metrics: m,
	}
}

// SearchFilter narrows a remote rule search.
type SearchFilter struct {
	// EnabledState filters by rule enablement, e.g. []bool{true}.
	EnabledState []bool `json:"enabledState,omitempty"`

	// Tags filters by rule tags.
	Tags []string `json:"tags,omitempty"`
}

// Pagination selects one page of search results.
type Pagination struct {
	PageNumber int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
}

// SearchRequest is the body of a rule search call.
type SearchRequest struct {
	Filter     SearchFilter `json:"filter"`
	Pagination Pagination   `json:"pagination"`
}

// SearchResponse is one page of remote rules. Only title and id are read by
// the reconciliation flow; the exporter keeps the full documents.
type SearchResponse struct {
	Total   int             `json:"total"`
	Results []rule.Document `json:"results"`
}

// WriteResult reports a successful create or update.
type WriteResult struct {
	// StatusCode is the 2xx status the service answered with.
	StatusCode int

	// ID is the rule id the service assigned (create only). "unknown"
	// when the response body does not supply one.
	ID string
}

// Search posts a search request to the given endpoint path and decodes one
// page of results.
func (c *Client) Search(ctx context.Context, endpoint string, req SearchRequest) (*SearchResponse, error) {
	body, status, err := c.do(ctx, http.MethodPost, endpoint, req)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unexpected search response from %s (status %d): %w", endpoint, status, err)
	}
	return &resp, nil
}

// Create posts a document to one candidate endpoint. A non-2xx answer comes
// back as a RemoteRejectionError so the caller can decide whether the next
// candidate should be tried.
func (c *Client) Create(ctx context.Context, endpoint string, doc rule.Document) (*WriteResult, error) {
	body, status, err := c.do(ctx, http.MethodPost, endpoint, doc)
	if err != nil {
		return nil, err
	}
	return &WriteResult{StatusCode: status, ID: assignedID(body)}, nil
}

// Update puts a document to the fixed update target for the given remote id.
func (c *Client) Update(ctx context.Context, endpoint, remoteID string, doc rule.Document) (*WriteResult, error) {
	target := endpoint + "/" + remoteID
	body, status, err := c.do(ctx, http.MethodPut, target, doc)
	if err != nil {
		return nil, err
	}
	return &WriteResult{StatusCode: status, ID: assignedID(body)}, nil
}

// do issues one request and maps the response onto the error taxonomy:
// 2xx returns the body, 401/403 is an AuthError, any other status is a
// RemoteRejectionError, and network failures are TransportErrors.
func (c *Client) do(ctx context.Context, method, endpoint string, payload any) ([]byte, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode request body: %w", err)
	}

	url := c.config.BaseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-TOKEN", c.config.APIToken)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending request", "method", method, "endpoint", endpoint)

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.RecordAPIRequest(endpoint, "transport_error")
		return nil, 0, &TransportError{Endpoint: endpoint, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordAPIRequest(endpoint, "transport_error")
		return nil, 0, &TransportError{Endpoint: endpoint, Cause: err}
	}

	c.metrics.RecordAPIRequest(endpoint, strconv.Itoa(resp.StatusCode))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, resp.StatusCode, nil
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, resp.StatusCode, &AuthError{Endpoint: endpoint, Message: extractMessage(body)}
	}

	return nil, resp.StatusCode, &RemoteRejectionError{
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Message:    extractMessage(body),
	}
}

// extractMessage pulls a human-readable message out of an error body,
// consulting the ranked candidate keys in priority order.
func extractMessage(body []byte) string {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		if s := strings.TrimSpace(string(body)); s != "" {
			return s
		}
		return noMessage
	}

	for _, key := range messageKeys {
		if s, ok := fields[key].(string); ok && s != "" {
			return s
		}
	}
	return noMessage
}

// assignedID reads the rule id a create response carries, tolerating both
// string and numeric ids.
func assignedID(body []byte) string {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return "unknown"
	}
	switch id := fields["id"].(type) {
	case string:
		if id != "" {
			return id
		}
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	}
	return "unknown"
}
