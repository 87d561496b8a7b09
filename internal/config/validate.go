package config

import (
	"fmt"
	"strings"

	"github.com/bitnick10/pbsqlite/internal/ddl"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "tables[1].primary_key"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static validation of c. It does not mutate c and does
// not touch the database or the descriptor file.
func Validate(c Config) []Issue {
	var issues []Issue
	issues = append(issues, validateStorage(c.Storage)...)
	issues = append(issues, validateTables(c.Descriptors, c.Tables)...)
	issues = append(issues, validateStatements(c.Statements)...)
	issues = append(issues, validateLogLevel(c.LogLevel)...)
	issues = append(issues, validateMetrics(c.Metrics)...)
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
	} else {
		known := map[string]struct{}{
			"sqlite":   {},
			"postgres": {},
			"mysql":    {},
			"mssql":    {},
		}
		if _, ok := known[s.Kind]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "storage.kind",
				Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
			})
		}
	}

	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.dsn",
			Message:  "storage.dsn must not be empty (or set PBSQLITE_DSN)",
		})
	}
	if s.MaxOpenConns < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.max_open_conns",
			Message:  "max_open_conns must not be negative",
		})
	}
	return issues
}

func validateTables(descriptors string, ts []Table) []Issue {
	var issues []Issue

	if len(ts) > 0 && strings.TrimSpace(descriptors) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "descriptors",
			Message:  "tables are configured but no descriptor set path is given",
		})
	}

	seen := make(map[string]int, len(ts))
	for i, t := range ts {
		path := fmt.Sprintf("tables[%d]", i)
		if strings.TrimSpace(t.Message) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".message",
				Message:  "message must not be empty",
			})
		} else if j, dup := seen[t.Message]; dup {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path + ".message",
				Message:  fmt.Sprintf("message %q already configured at tables[%d]; the first entry wins", t.Message, j),
			})
		} else {
			seen[t.Message] = i
		}

		switch {
		case strings.TrimSpace(t.PrimaryKey) == "":
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".primary_key",
				Message:  "primary_key must not be empty",
			})
		case ddl.ValidIdent(t.PrimaryKey) != nil:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".primary_key",
				Message:  fmt.Sprintf("primary_key %q is not a valid SQL identifier", t.PrimaryKey),
			})
		}
	}
	return issues
}

func validateStatements(mode string) []Issue {
	switch mode {
	case "", StatementsBound:
		return nil
	case StatementsLiteral:
		return []Issue{{
			Severity: SeverityWarning,
			Path:     "statements",
			Message:  "literal statements embed values as SQL text; strings containing a single quote will be rejected",
		}}
	default:
		return []Issue{{
			Severity: SeverityError,
			Path:     "statements",
			Message:  fmt.Sprintf("statements must be %q or %q, got %q", StatementsBound, StatementsLiteral, mode),
		}}
	}
}

func validateLogLevel(level string) []Issue {
	switch strings.ToLower(level) {
	case "", "debug", "info", "warn", "error":
		return nil
	}
	return []Issue{{
		Severity: SeverityWarning,
		Path:     "log_level",
		Message:  fmt.Sprintf("unknown log level %q; using info", level),
	}}
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", "none":
	case "prometheus":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "prometheus backend requires pushgateway_url (or PUSHGATEWAY_URL)",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog backend requires datadog_addr (or DD_AGENT_HOST)",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; want none, prometheus or datadog", m.Backend),
		})
	}
	return issues
}
