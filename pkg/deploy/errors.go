package deploy

import "fmt"

// TransportError represents a network-level failure: connection refused,
// DNS failure, or a request that timed out before the service answered.
// The create flow treats it as recoverable and moves to the next candidate
// endpoint; the update flow treats it as fatal.
type TransportError struct {
	// Endpoint is the remote path the request was sent to.
	Endpoint string

	// Cause is the underlying transport error.
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.Endpoint, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// RemoteRejectionError represents a non-2xx response with a body. The
// human-readable message is extracted from the body's ranked candidate keys
// before the error is constructed.
type RemoteRejectionError struct {
	// Endpoint is the remote path that rejected the request.
	Endpoint string

	// StatusCode is the HTTP status code of the rejection.
	StatusCode int

	// Message is the extracted error message from the response body.
	Message string
}

// Error implements the error interface.
func (e *RemoteRejectionError) Error() string {
	return fmt.Sprintf("%s rejected request (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
}

// NotFound reports whether the endpoint itself does not exist in this
// deployment, which the create fallback treats as a topology difference
// rather than a document defect.
func (e *RemoteRejectionError) NotFound() bool {
	return e.StatusCode == 404
}

// AuthError represents a rejected API token (HTTP 401 or 403).
type AuthError struct {
	// Endpoint is the remote path that rejected the token.
	Endpoint string

	// Message is the error message from the service.
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("%s rejected API token: %s", e.Endpoint, e.Message)
}
