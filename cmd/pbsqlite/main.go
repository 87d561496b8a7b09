// Command pbsqlite maps protobuf message types to relational tables.
//
// Message types come from a serialized FileDescriptorSet named in the config
// file; rows are read and written as protojson, one message per line.
//
//	pbsqlite -c people.json validate
//	pbsqlite -c people.json schema
//	pbsqlite -c people.json create
//	pbsqlite -c people.json put aa.Person people.jsonl --replace
//	pbsqlite -c people.json select aa.Person "WHERE id >= 0"
package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/bitnick10/pbsqlite/internal/config"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "github.com/bitnick10/pbsqlite/internal/storage/all"
)

// Globals are flags shared by every command.
type Globals struct {
	Config  string `short:"c" help:"Path to the JSON config file" type:"path" default:"pbsqlite.json"`
	Verbose bool   `short:"v" help:"Enable debug logs"`
	Kind    string `help:"Storage kind (overrides storage.kind)"`
	DSN     string `name:"dsn" help:"Storage DSN (overrides storage.dsn and PBSQLITE_DSN)"`

	ctx context.Context `kong:"-"`
	in  io.Reader       `kong:"-"`
	out io.Writer       `kong:"-"`
	log *slog.Logger    `kong:"-"`
}

// CLI defines the command-line interface for pbsqlite.
type CLI struct {
	Globals `embed:""`

	Validate ValidateCmd `cmd:"" help:"Validate the configuration and the configured message types"`
	Schema   SchemaCmd   `cmd:"" help:"Print CREATE TABLE statements for the configured tables"`
	Create   CreateCmd   `cmd:"" help:"Create the configured tables if they do not exist"`
	Put      PutCmd      `cmd:"" help:"Write protojson messages, one per line"`
	Select   SelectCmd   `cmd:"" help:"Print matching rows as protojson, one per line"`
	Kinds    KindsCmd    `cmd:"" help:"List registered storage backends"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("pbsqlite"),
		kong.Description("Store protobuf messages in relational tables"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli.ctx = ctx
	cli.in = os.Stdin
	cli.out = os.Stdout

	err := kctx.Run(&cli.Globals)
	kctx.FatalIfErrorf(err)
}

// load reads the config file, applies flag overrides and validates it.
// Issues are printed to stderr; any error-severity issue fails the load.
func (g *Globals) load() (config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return config.Config{}, err
	}
	if g.Kind != "" {
		cfg.Storage.Kind = g.Kind
	}
	if g.DSN != "" {
		cfg.Storage.DSN = g.DSN
	}

	g.log = newLogger(cfg.LogLevel, g.Verbose)

	issues := config.Validate(cfg)
	for _, iss := range issues {
		log.Printf("%s: %s: %s", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return config.Config{}, &invalidConfigError{path: g.Config, issues: issues}
	}
	return cfg, nil
}

type invalidConfigError struct {
	path   string
	issues []config.Issue
}

func (e *invalidConfigError) Error() string {
	var first string
	for _, iss := range e.issues {
		if iss.Severity == config.SeverityError {
			first = iss.Error()
			break
		}
	}
	return "configuration is invalid: " + e.path + ": " + first
}

func newLogger(level string, verbose bool) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	if verbose {
		l = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func (g *Globals) context() context.Context {
	if g.ctx == nil {
		return context.Background()
	}
	return g.ctx
}
