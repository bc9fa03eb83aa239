// Package metrics exposes Prometheus metrics for rule deployments.
//
// All metrics hang off a Deployment collector backed by its own registry so
// tests never collide on the default registry. Every recording method is
// nil-receiver safe: components accept an optional *Deployment and simply
// record into the void when metrics are disabled.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deployment collects metrics across validation and deployment runs.
//
// Metrics:
//   - warden_documents_total: documents processed, by terminal status
//   - warden_api_requests_total: remote API calls, by endpoint and result
//   - warden_validation_findings_total: validation findings, by severity
type Deployment struct {
	registry *prometheus.Registry

	documentsTotal   *prometheus.CounterVec
	apiRequestsTotal *prometheus.CounterVec
	findingsTotal    *prometheus.CounterVec
}

// NewDeployment creates and registers the deployment metrics. If registry is
// nil a fresh registry is used.
func NewDeployment(namespace string, registry *prometheus.Registry) *Deployment {
	if namespace == "" {
		namespace = "warden"
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	d := &Deployment{
		registry: registry,
		documentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_total",
				Help:      "Rule documents processed, by terminal status",
			},
			[]string{"status"},
		),
		apiRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Remote API requests, by endpoint and result code",
			},
			[]string{"endpoint", "code"},
		),
		findingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_findings_total",
				Help:      "Validation findings, by severity",
			},
			[]string{"severity"},
		),
	}

	registry.MustRegister(d.documentsTotal, d.apiRequestsTotal, d.findingsTotal)
	return d
}

// RecordDocument counts one document reaching a terminal status.
func (d *Deployment) RecordDocument(status string) {
	if d == nil {
		return
	}
	d.documentsTotal.WithLabelValues(status).Inc()
}

// RecordAPIRequest counts one remote API call. code is the HTTP status code
// as text, or "transport_error" when no response arrived.
func (d *Deployment) RecordAPIRequest(endpoint, code string) {
	if d == nil {
		return
	}
	d.apiRequestsTotal.WithLabelValues(endpoint, code).Inc()
}

// RecordFindings counts validation findings for one document.
func (d *Deployment) RecordFindings(errors, warnings int) {
	if d == nil {
		return
	}
	d.findingsTotal.WithLabelValues("error").Add(float64(errors))
	d.findingsTotal.WithLabelValues("warning").Add(float64(warnings))
}

// Handler returns an HTTP handler exposing the registry in Prometheus
// exposition format, typically mounted at /metrics in watch mode.
func (d *Deployment) Handler() http.Handler {
	return promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
