// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the store.
//
//   - It exposes a narrow interface (Backend) focused on counters and timing
//     data (histograms).
//   - It provides a global, pluggable backend that defaults to a no-op
//     implementation, so metrics are always safe to call even when no real
//     backend is configured.
//   - Concrete metric systems (Prometheus Pushgateway, Datadog) live in
//     subpackages and are installed with SetBackend.
package metrics

import (
	"sync"
	"time"
)

// Metric names emitted by this package.
const (
	StatementsTotal   = "pbsqlite_statements_total"
	StatementDuration = "pbsqlite_statement_duration_seconds"
	RowsTotal         = "pbsqlite_rows_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels) {}

func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}

func (nopBackend) Flush() error { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStatement counts one executed statement and its latency.
// op is the store operation ("create", "insert", "replace", "select").
func RecordStatement(op string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"op":     op,
		"status": status,
	}

	b := current()
	b.IncCounter(StatementsTotal, 1, lbls)
	b.ObserveHistogram(StatementDuration, d.Seconds(), lbls)
}

// RecordRows adds delta to the row counter for op: rows written by
// insert/replace, rows decoded by select.
func RecordRows(op string, delta int) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{"op": op})
}
