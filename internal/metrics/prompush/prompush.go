// Package prompush adapts the metrics.Backend interface to Prometheus,
// pushing collected metrics to a Pushgateway instead of exposing a scrape
// endpoint. Batch jobs like this pipeline terminate before a scraper would
// get to them, which is exactly the Pushgateway use case.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"heartetl/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	pusher *push.Pusher

	stageCounter  *prometheus.CounterVec
	stageDuration *prometheus.SummaryVec
	rowCounter    *prometheus.CounterVec
	batchCounter  *prometheus.CounterVec
}

// NewBackend registers the collectors and prepares a pusher for the given
// Pushgateway base URL and job grouping.
func NewBackend(job, gatewayURL string) (*Backend, error) {
	if job == "" {
		return nil, fmt.Errorf("prompush: job name must not be empty")
	}
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL must not be empty")
	}

	reg := prometheus.NewRegistry()

	b := &Backend{
		stageCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_stage_total",
			Help: "Pipeline stage executions by status.",
		}, []string{"job", "stage", "status"}),
		stageDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name: "etl_stage_duration_seconds",
			Help: "Pipeline stage duration in seconds.",
		}, []string{"job", "stage", "status"}),
		rowCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_rows_total",
			Help: "Rows handled by the pipeline, by kind.",
		}, []string{"job", "kind"}),
		batchCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_batches_total",
			Help: "Committed load batches.",
		}, []string{"job"}),
	}
	reg.MustRegister(b.stageCounter, b.stageDuration, b.rowCounter, b.batchCounter)

	b.pusher = push.New(gatewayURL, job).Gatherer(reg)
	return b, nil
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "etl_stage_total":
		b.stageCounter.With(prometheus.Labels(labels)).Add(delta)
	case "etl_rows_total":
		b.rowCounter.With(prometheus.Labels(labels)).Add(delta)
	case "etl_batches_total":
		b.batchCounter.With(prometheus.Labels(labels)).Add(delta)
	}
}

// ObserveDuration implements metrics.Backend.
func (b *Backend) ObserveDuration(name string, seconds float64, labels metrics.Labels) {
	if name == "etl_stage_duration_seconds" {
		b.stageDuration.With(prometheus.Labels(labels)).Observe(seconds)
	}
}

// Flush pushes all collected metrics to the Pushgateway.
func (b *Backend) Flush() error {
	if err := b.pusher.Push(); err != nil {
		return fmt.Errorf("prompush: push: %w", err)
	}
	return nil
}
