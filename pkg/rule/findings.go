package rule

import (
	"fmt"
	"strings"
)

// Severity classifies a validation finding.
type Severity string

const (
	// SeverityError marks a structural or type violation. A document with
	// any error finding is not schema-valid.
	SeverityError Severity = "error"
	// SeverityWarning marks a recommended-field omission or soft-format
	// issue. Warnings never affect validity.
	SeverityWarning Severity = "warning"
)

// Finding is a single validation result: the field it concerns, a
// human-readable message, and whether it is fatal to validity.
type Finding struct {
	Severity Severity `json:"severity"`
	Field    string   `json:"field,omitempty"`
	Message  string   `json:"message"`
}

// String formats the finding for console output.
func (f Finding) String() string {
	if f.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", f.Severity, f.Field, f.Message)
	}
	return fmt.Sprintf("[%s] %s", f.Severity, f.Message)
}

// Report is the outcome of validating one document. Errors and warnings are
// disjoint lists; validation never raises, it accumulates.
type Report struct {
	Errors   []Finding `json:"errors,omitempty"`
	Warnings []Finding `json:"warnings,omitempty"`
}

// Valid reports whether the document is schema-valid. Only errors count;
// warnings are advisory.
func (r *Report) Valid() bool {
	return len(r.Errors) == 0
}

// AddError records an error finding for the given field path.
func (r *Report) AddError(field, format string, args ...any) {
	r.Errors = append(r.Errors, Finding{
		Severity: SeverityError,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
	})
}

// AddWarning records a warning finding for the given field path.
func (r *Report) AddWarning(field, format string, args ...any) {
	r.Warnings = append(r.Warnings, Finding{
		Severity: SeverityWarning,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Summary returns a one-line count of findings, e.g. "2 error(s), 1 warning(s)".
func (r *Report) Summary() string {
	return fmt.Sprintf("%d error(s), %d warning(s)", len(r.Errors), len(r.Warnings))
}

// Merge appends all findings from other into r.
func (r *Report) Merge(other *Report) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// joinSet formats a closed value set for error messages.
func joinSet(values []string) string {
	return strings.Join(values, ", ")
}
