package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"
	"os"

	"google.golang.org/protobuf/encoding/protojson"

	"github.com/bitnick10/pbsqlite/internal/config"
	"github.com/bitnick10/pbsqlite/internal/ddl"
	"github.com/bitnick10/pbsqlite/internal/pbreflect"
	"github.com/bitnick10/pbsqlite/internal/storage"
	"github.com/bitnick10/pbsqlite/pkg/store"
)

// boundTable is a configured table with its resolved message type.
type boundTable struct {
	config.Table
	typ *pbreflect.Type
	def ddl.TableDef
}

// resolve loads the descriptor set and derives a table definition for the
// named messages, or for every configured table when none are named.
func resolve(cfg config.Config, messages ...string) ([]boundTable, error) {
	entries := cfg.Tables
	if len(messages) > 0 {
		entries = make([]config.Table, 0, len(messages))
		for _, m := range messages {
			t, ok := cfg.Table(m)
			if !ok {
				return nil, fmt.Errorf("message %q is not configured in tables", m)
			}
			entries = append(entries, t)
		}
	}
	if len(entries) == 0 {
		return nil, nil
	}
	files, err := pbreflect.LoadFiles(cfg.Descriptors)
	if err != nil {
		return nil, err
	}
	out := make([]boundTable, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, t := range entries {
		if seen[t.Message] {
			continue
		}
		seen[t.Message] = true

		typ, err := pbreflect.FindType(files, t.Message)
		if err != nil {
			return nil, err
		}
		def, err := ddl.FromType(typ, t.PrimaryKey)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Message, err)
		}
		out = append(out, boundTable{Table: t, typ: typ, def: def})
	}
	return out, nil
}

// openStore opens the configured backend. Every configured table's primary
// key is known to the Store so REPLACE works on every backend.
func (g *Globals) openStore(cfg config.Config, tables []boundTable) (*store.Store, error) {
	opts := []store.Option{store.WithLogger(g.log)}
	if cfg.Literal() {
		opts = append(opts, store.WithLiteralStatements())
	}
	for _, t := range tables {
		opts = append(opts, store.WithPrimaryKey(t.def.Name, t.def.PrimaryKey))
	}
	return store.Open(g.context(), storage.Config{
		Kind:         cfg.Storage.Kind,
		DSN:          cfg.Storage.DSN,
		MaxOpenConns: cfg.Storage.MaxOpenConns,
	}, opts...)
}

// ValidateCmd checks the config file and that every configured message type
// can be mapped to a table.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	if _, err := resolve(cfg); err != nil {
		return err
	}
	log.Printf("Configuration is valid: %v", g.Config)
	return nil
}

// SchemaCmd prints the canonical CREATE TABLE statement and schema
// fingerprint of every configured table.
type SchemaCmd struct{}

func (c *SchemaCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	tables, err := resolve(cfg)
	if err != nil {
		return err
	}
	for _, t := range tables {
		stmt, err := ddl.BuildCreateTableSQL(t.def)
		if err != nil {
			return err
		}
		fmt.Fprintf(g.out, "-- %s fingerprint=%016x\n%s\n", t.Message, ddl.Fingerprint(t.def), stmt)
	}
	return nil
}

// CreateCmd creates the configured tables, or only the named ones.
type CreateCmd struct {
	Messages []string `arg:"" optional:"" help:"Fully qualified message names (default: all configured tables)"`
}

func (c *CreateCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	tables, err := resolve(cfg, c.Messages...)
	if err != nil {
		return err
	}

	flush := setupMetrics(cfg.Metrics, g.Verbose)
	defer flush()

	s, err := g.openStore(cfg, tables)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, t := range tables {
		if err := s.CreateTableIfNotExists(g.context(), t.typ, t.PrimaryKey); err != nil {
			return err
		}
		if g.Verbose {
			log.Printf("create: %s ready (message=%s, primary_key=%s)", t.def.Name, t.Message, t.PrimaryKey)
		}
	}
	return nil
}

// PutCmd writes protojson messages read line by line from a file or stdin.
type PutCmd struct {
	Message string `arg:"" help:"Fully qualified message name"`
	File    string `arg:"" optional:"" default:"-" help:"Input file with one protojson message per line ('-' for stdin)"`
	Replace bool   `help:"Overwrite rows with the same primary key instead of failing"`
}

func (c *PutCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	tables, err := resolve(cfg, c.Message)
	if err != nil {
		return err
	}
	t := tables[0]

	in := g.in
	if c.File != "-" {
		f, err := os.Open(c.File)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	flush := setupMetrics(cfg.Metrics, g.Verbose)
	defer flush()

	s, err := g.openStore(cfg, tables)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := g.context()
	if t.AutoCreate {
		if err := s.CreateTableIfNotExists(ctx, t.typ, t.PrimaryKey); err != nil {
			return err
		}
	}

	n, err := c.put(g, s, t, in)
	if g.Verbose || err != nil {
		log.Printf("put: wrote %d %s messages", n, t.Message)
	}
	return err
}

func (c *PutCmd) put(g *Globals, s *store.Store, t boundTable, in io.Reader) (int, error) {
	write := s.Insert
	if c.Replace {
		write = s.Replace
	}

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	n, line := 0, 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		pm := t.typ.MessageType().New().Interface()
		if err := protojson.Unmarshal(b, pm); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		m, err := t.typ.Wrap(pm)
		if err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		if err := write(g.context(), m); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("read input: %w", err)
	}
	return n, nil
}

// SelectCmd prints the rows of a table as protojson.
type SelectCmd struct {
	Message   string `arg:"" help:"Fully qualified message name"`
	Condition string `arg:"" optional:"" help:"Text appended after SELECT * FROM <table>, e.g. \"WHERE id >= 0\""`
}

func (c *SelectCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	tables, err := resolve(cfg, c.Message)
	if err != nil {
		return err
	}
	t := tables[0]

	flush := setupMetrics(cfg.Metrics, g.Verbose)
	defer flush()

	s, err := g.openStore(cfg, tables)
	if err != nil {
		return err
	}
	defer s.Close()

	msgs, err := s.SelectType(g.context(), t.typ, c.Condition)
	if err != nil {
		return err
	}

	opts := protojson.MarshalOptions{UseProtoNames: true, EmitUnpopulated: true}
	w := bufio.NewWriter(g.out)
	for _, m := range msgs {
		b, err := opts.Marshal(m.(*pbreflect.Message).Interface())
		if err != nil {
			return err
		}
		w.Write(b)
		w.WriteByte('\n')
	}
	return w.Flush()
}

// KindsCmd lists the storage backends compiled into the binary.
type KindsCmd struct{}

func (c *KindsCmd) Run(g *Globals) error {
	for _, k := range storage.ListKinds() {
		fmt.Fprintln(g.out, k)
	}
	return nil
}
