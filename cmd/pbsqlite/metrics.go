package main

import (
	"log"

	"github.com/bitnick10/pbsqlite/internal/config"
	"github.com/bitnick10/pbsqlite/internal/metrics"
	"github.com/bitnick10/pbsqlite/internal/metrics/datadog"
	"github.com/bitnick10/pbsqlite/internal/metrics/prompush"
)

// setupMetrics installs the configured metrics backend. The returned func
// flushes it and must be called once the command is done. A backend that
// fails to initialize leaves metrics disabled.
func setupMetrics(m config.Metrics, verbose bool) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch m.Backend {
	case "prometheus":
		jobName := m.Job
		if jobName == "" {
			jobName = "pbsqlite"
		}
		b, err = prompush.NewBackend(jobName, m.PushgatewayURL)
		if err == nil {
			log.Printf("metrics: url=%v, backend=%v, job_name=%v", m.PushgatewayURL, m.Backend, jobName)
		}

	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:             m.DatadogAddr,
			Namespace:        m.Options.String("namespace", ""),
			GlobalTags:       m.Options.StringSlice("tags"),
			DisableTelemetry: m.Options.Bool("disable_telemetry", false),
		})
		if err == nil {
			log.Printf("metrics: addr=%v, backend=%v", m.DatadogAddr, m.Backend)
		}

	case "", "none":
		// metrics disabled; nop backend remains
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", m.Backend)
		}
		return func() {}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", m.Backend)
		return func() {}
	}

	if err != nil {
		log.Printf("metrics: failed to init %s backend: %v; using nop", m.Backend, err)
		return func() {}
	}
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}
