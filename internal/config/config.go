// Package config defines the JSON configuration model for the pbsqlite CLI:
// which backend to open, which descriptor set to load, which message types map
// to which tables, and where to send metrics.
//
// Example:
//
//	{
//	  "storage":     { "kind": "sqlite", "dsn": "people.db" },
//	  "descriptors": "people.pb",
//	  "tables": [
//	    { "message": "aa.Person", "primary_key": "id", "auto_create": true }
//	  ],
//	  "statements":  "bound",
//	  "log_level":   "info",
//	  "metrics": {
//	    "backend": "prometheus",
//	    "job": "nightly-import",
//	    "pushgateway_url": "http://pushgateway:9091"
//	  }
//	}
//
// Decoding is performed by encoding/json; a few values fall back to
// environment variables when left empty (see ApplyEnv).
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os"
)

// Statement modes.
const (
	StatementsBound   = "bound"
	StatementsLiteral = "literal"
)

// Config is the top-level object decoded from a config file.
type Config struct {
	// Storage selects and configures the database backend.
	Storage Storage `json:"storage"`

	// Descriptors is the path of a serialized FileDescriptorSet (optionally
	// gzip-compressed) that defines the message types named in Tables.
	Descriptors string `json:"descriptors"`

	// Tables maps message types to tables.
	Tables []Table `json:"tables"`

	// Statements is "bound" (default) or "literal". Literal statements embed
	// values as SQL text and refuse strings containing a single quote.
	Statements string `json:"statements"`

	// LogLevel is one of debug, info, warn, error. Empty means info.
	LogLevel string `json:"log_level"`

	Metrics Metrics `json:"metrics"`
}

// Storage configures the relational backend.
type Storage struct {
	// Kind is a registered backend: sqlite, postgres, mysql, mssql.
	Kind string `json:"kind"`

	// DSN is the driver connection string. Falls back to $PBSQLITE_DSN.
	DSN string `json:"dsn"`

	// MaxOpenConns caps the connection pool; 0 keeps the backend default.
	MaxOpenConns int `json:"max_open_conns"`
}

// Table binds one message type to its table.
type Table struct {
	// Message is the fully qualified protobuf message name, e.g. "aa.Person".
	// The table is named after the message's short name.
	Message string `json:"message"`

	// PrimaryKey names the field used as the table's primary key.
	PrimaryKey string `json:"primary_key"`

	// AutoCreate creates the table (if missing) before the first write.
	AutoCreate bool `json:"auto_create"`
}

// Metrics selects a metrics backend.
type Metrics struct {
	// Backend is "none" (default), "prometheus" or "datadog".
	// Falls back to $METRICS_BACKEND.
	Backend string `json:"backend"`

	// Job is the Pushgateway job name; empty means "pbsqlite".
	Job string `json:"job"`

	// PushgatewayURL is required for the prometheus backend.
	// Falls back to $PUSHGATEWAY_URL.
	PushgatewayURL string `json:"pushgateway_url"`

	// DatadogAddr is the DogStatsD address, required for the datadog backend.
	// Falls back to $DD_AGENT_HOST (port 8125 is added when missing).
	DatadogAddr string `json:"datadog_addr"`

	// Options carries backend-specific settings, e.g. for datadog:
	//   namespace (string), tags ([]string), disable_telemetry (bool)
	Options Options `json:"options"`
}

// Table returns the table entry for a fully qualified message name.
func (c Config) Table(message string) (Table, bool) {
	for _, t := range c.Tables {
		if t.Message == message {
			return t, true
		}
	}
	return Table{}, false
}

// Literal reports whether statements embed values as literals.
func (c Config) Literal() bool {
	return c.Statements == StatementsLiteral
}

// Load reads and decodes the config file at path and applies environment
// fallbacks from the process environment.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	c, err := Parse(b)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	c.ApplyEnv(os.Getenv)
	return c, nil
}

// Parse decodes a JSON document. Unknown fields are rejected so that typos
// surface instead of silently falling back to defaults.
func Parse(b []byte) (Config, error) {
	var c Config
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	return c, nil
}

// ApplyEnv fills empty fields from environment variables read with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if c.Storage.DSN == "" {
		c.Storage.DSN = getenv("PBSQLITE_DSN")
	}
	if c.Metrics.Backend == "" {
		c.Metrics.Backend = getenv("METRICS_BACKEND")
	}
	if c.Metrics.PushgatewayURL == "" {
		c.Metrics.PushgatewayURL = getenv("PUSHGATEWAY_URL")
	}
	if c.Metrics.DatadogAddr == "" {
		if host := getenv("DD_AGENT_HOST"); host != "" {
			c.Metrics.DatadogAddr = withDefaultPort(host, "8125")
		}
	}
}

func withDefaultPort(host, port string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, port)
}

// Options is a small helper to fetch typed values from arbitrary JSON maps.
// It performs only minimal type coercion and returns provided defaults when a
// key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// StringSlice returns a []string for key when the value is an array of
// strings. Non-string elements are skipped. Returns nil when the key is
// missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler so that a missing or null
// "options" object decodes to a non-nil, empty Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
