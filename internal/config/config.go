// Package config loads ordset configuration from a CUE file.
//
// The file is unified with an embedded schema, so omitted fields take
// their defaults and unknown fields are rejected:
//
//	store: {
//		path:            "todo.db"
//		busy_timeout_ms: 2000
//		strict_ordering: true
//	}
//	ordering: compact_moves: false
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/ordset/internal/ordering"
	"github.com/roach88/ordset/internal/store"
)

//go:embed schema.cue
var schemaCUE string

// Config is the decoded configuration.
type Config struct {
	Store    StoreConfig    `json:"store"`
	Ordering OrderingConfig `json:"ordering"`
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	Path           string `json:"path"`
	BusyTimeoutMS  int64  `json:"busy_timeout_ms"`
	StrictOrdering bool   `json:"strict_ordering"`
}

// OrderingConfig configures index maintenance.
type OrderingConfig struct {
	CompactMoves bool `json:"compact_moves"`
}

// Error is a configuration error, positioned in the CUE source when
// possible.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Default returns the configuration of an empty file.
func Default() *Config {
	cfg, err := Parse(nil, "default.cue")
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return cfg
}

// Load reads and compiles the CUE file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse compiles CUE source against the schema. filename is used in error
// positions.
func Parse(data []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	file := ctx.CompileBytes(data, cue.Filename(filename))
	if err := file.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(file)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	return Compile(v)
}

// Compile decodes a unified, concrete configuration value.
func Compile(v cue.Value) (*Config, error) {
	var (
		cfg Config
		err error
	)
	if cfg.Store.Path, err = lookup(v, "store.path").String(); err != nil {
		return nil, fieldError("store.path", v, err)
	}
	if cfg.Store.BusyTimeoutMS, err = lookup(v, "store.busy_timeout_ms").Int64(); err != nil {
		return nil, fieldError("store.busy_timeout_ms", v, err)
	}
	if cfg.Store.StrictOrdering, err = lookup(v, "store.strict_ordering").Bool(); err != nil {
		return nil, fieldError("store.strict_ordering", v, err)
	}
	if cfg.Ordering.CompactMoves, err = lookup(v, "ordering.compact_moves").Bool(); err != nil {
		return nil, fieldError("ordering.compact_moves", v, err)
	}
	return &cfg, nil
}

// StoreOptions converts the store section to store.Options.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		StrictOrdering: c.Store.StrictOrdering,
		BusyTimeout:    time.Duration(c.Store.BusyTimeoutMS) * time.Millisecond,
	}
}

// OrderingOptions converts the ordering section to maintainer options.
func (c *Config) OrderingOptions() []ordering.Option {
	var opts []ordering.Option
	if c.Ordering.CompactMoves {
		opts = append(opts, ordering.WithCompactMoves())
	}
	return opts
}

// lookup resolves path, taking the default of a disjunction.
func lookup(v cue.Value, path string) cue.Value {
	f := v.LookupPath(cue.ParsePath(path))
	if d, ok := f.Default(); ok {
		return d
	}
	return f
}

func fieldError(field string, v cue.Value, err error) error {
	pos := v.LookupPath(cue.ParsePath(field)).Pos()
	return &Error{Field: field, Message: err.Error(), Pos: pos}
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	field := "cue"
	if path := first.Path(); len(path) > 0 {
		field = strings.Join(path, ".")
	}
	var pos token.Pos
	if positions := errors.Positions(first); len(positions) > 0 {
		pos = positions[0]
	}
	msg, args := first.Msg()
	return &Error{Field: field, Message: fmt.Sprintf(msg, args...), Pos: pos}
}
