// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// The CLI is a short-lived process, so instead of exposing a scrape endpoint
// the collected series are pushed to a Pushgateway on Flush:
//
//   - pbsqlite_statements_total{op,status}       CounterVec
//   - pbsqlite_statement_duration_seconds{op,status} SummaryVec
//   - pbsqlite_rows_total{op}                    CounterVec
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/bitnick10/pbsqlite/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	statementCounter  *prometheus.CounterVec
	statementDuration *prometheus.SummaryVec
	rowCounter        *prometheus.CounterVec
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName: the Pushgateway "job" name; empty means "pbsqlite".
// gatewayURL: base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "pbsqlite"
	}

	reg := prometheus.NewRegistry()

	statementCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StatementsTotal,
			Help: "Total number of executed statements, partitioned by store operation and status.",
		},
		[]string{"op", "status"},
	)
	statementDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.StatementDuration,
			Help:       "Statement latency in seconds, partitioned by store operation and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"op", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Rows written or decoded, partitioned by store operation.",
		},
		[]string{"op"},
	)

	for name, c := range map[string]prometheus.Collector{
		"statement counter": statementCounter,
		"statement summary": statementDuration,
		"row counter":       rowCounter,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:        gatewayURL,
		jobName:           jobName,
		reg:               reg,
		statementCounter:  statementCounter,
		statementDuration: statementDuration,
		rowCounter:        rowCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StatementsTotal:
		if b.statementCounter == nil {
			return
		}
		b.statementCounter.WithLabelValues(labels["op"], labels["status"]).Add(delta)

	case metrics.RowsTotal:
		if b.rowCounter == nil {
			return
		}
		b.rowCounter.WithLabelValues(labels["op"]).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StatementDuration || b.statementDuration == nil {
		return
	}
	b.statementDuration.WithLabelValues(labels["op"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
