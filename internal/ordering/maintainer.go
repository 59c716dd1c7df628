package ordering

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/roach88/ordset/internal/dberr"
	"github.com/roach88/ordset/internal/ir"
	"github.com/roach88/ordset/internal/queryir"
	"github.com/roach88/ordset/internal/txscope"
)

// Maintainer keeps the Index of T dense within each subset.
//
// Thread-safety: all methods are safe for concurrent use. Operations on the
// same subset are serialized; operations on different subsets proceed in
// parallel as far as the adapter allows.
type Maintainer[T Sorted] struct {
	adapter  Adapter[T]
	shifter  Shifter
	loader   Loader[T]
	conflict func(error) bool

	name    string
	compact bool
	logger  *slog.Logger

	locks *xsync.MapOf[string, *sync.Mutex]
}

// Option configures a Maintainer.
type Option func(*options)

type options struct {
	name    string
	compact bool
	logger  *slog.Logger
}

// WithName sets the table name mixed into subset lock keys.
// Maintainers sharing a table must agree on it.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithCompactMoves makes the two-statement interior move the default.
// Only use it with stores that check uniqueness at commit time, or have no
// uniqueness constraint on (subset, Index).
func WithCompactMoves() Option {
	return func(o *options) { o.compact = true }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates a Maintainer over adapter.
//
// New panics if adapter implements neither Shifter nor Loader[T].
func New[T Sorted](adapter Adapter[T], opts ...Option) *Maintainer[T] {
	o := options{name: fmt.Sprintf("%T", *new(T))}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	m := &Maintainer[T]{
		adapter:  adapter,
		name:     o.name,
		compact:  o.compact,
		logger:   o.logger.With("component", "ordering", "table", o.name),
		locks:    xsync.NewMapOf[string, *sync.Mutex](),
		conflict: func(error) bool { return false },
	}
	if s, ok := adapter.(Shifter); ok {
		m.shifter = s
	}
	if l, ok := adapter.(Loader[T]); ok {
		m.loader = l
	}
	if c, ok := adapter.(ConflictClassifier); ok {
		m.conflict = c.IsConflict
	}
	if m.shifter == nil && m.loader == nil {
		panic(fmt.Sprintf("ordering: adapter %T implements neither Shifter nor Loader", adapter))
	}
	return m
}

// Batched reports whether shifts run as set-based statements.
func (m *Maintainer[T]) Batched() bool {
	return m.shifter != nil
}

// wrap annotates a store failure with op and phase.
func (m *Maintainer[T]) wrap(op, phase string, err error) error {
	return dberr.Wrap(op, phase, err, m.conflict(err))
}

// lockKey is the canonical hash of a subset predicate.
func (m *Maintainer[T]) lockKey(subset queryir.Predicate) (string, error) {
	return ir.SubsetHash(m.name, queryir.Describe(subset))
}

// lock acquires the subset locks in key order and returns the release func.
func (m *Maintainer[T]) lock(subsets ...queryir.Predicate) (func(), error) {
	keys := make([]string, 0, len(subsets))
	for _, s := range subsets {
		key, err := m.lockKey(s)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]*sync.Mutex, 0, len(keys))
	for _, key := range keys {
		mu, _ := m.locks.LoadOrCompute(key, func() *sync.Mutex { return &sync.Mutex{} })
		mu.Lock()
		held = append(held, mu)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}, nil
}

// run executes fn in a transaction scope while holding the subset locks.
// fn returns the number of rows it shifted. On failure item's in-memory
// Index is restored to what it was on entry.
func (m *Maintainer[T]) run(ctx context.Context, op string, item T, subsets []queryir.Predicate, fn func(ctx context.Context) (int64, error)) (err error) {
	start := time.Now()
	before := item.GetIndex()
	defer func() {
		result := "ok"
		switch {
		case err == nil:
		case dberr.IsConflict(err):
			result = "conflict"
		default:
			result = "error"
		}
		OperationCount.WithLabelValues(op, result).Inc()
		OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err != nil {
			item.SetIndex(before)
			m.logger.Error("ordering operation failed", "op", op, "phase", dberr.PhaseOf(err), "error", err)
		}
	}()

	scope, ctx, err := txscope.Begin(ctx, m.adapter)
	if err != nil {
		return m.wrap(op, "begin", err)
	}
	defer scope.Close()

	unlock, err := m.lock(subsets...)
	if err != nil {
		return dberr.Programmer(op, "subset key: %v", err)
	}
	defer unlock()

	shifted, err := fn(ctx)
	if err != nil {
		return err
	}
	if err := scope.Commit(); err != nil {
		return m.wrap(op, "commit", err)
	}
	ShiftedRows.WithLabelValues(op).Observe(float64(shifted))
	m.logger.Debug("ordering operation done",
		"op", op, "from", before, "to", item.GetIndex(), "shifted", shifted, "scope", scope.Mode())
	return nil
}

// maxIndex reads the subset's highest active Index.
func (m *Maintainer[T]) maxIndex(ctx context.Context, op string, subset queryir.Predicate) (int, error) {
	top, err := m.adapter.MaxIndex(ctx, subset)
	if err != nil {
		return 0, m.wrap(op, "max", err)
	}
	return top, nil
}

// save persists item.
func (m *Maintainer[T]) save(ctx context.Context, op, phase string, item T) error {
	if err := m.adapter.Save(ctx, item); err != nil {
		return m.wrap(op, phase, err)
	}
	return nil
}

// shift adds delta to the Index of every subset row in span, through the
// adapter's batched statement or, lacking one, row by row.
func (m *Maintainer[T]) shift(ctx context.Context, op, phase string, subset queryir.Predicate, span Span, delta int) (int64, error) {
	if span.Empty() || delta == 0 {
		return 0, nil
	}
	m.logger.Debug("ordering phase", "op", op, "phase", phase, "from", span.From, "to", span.To, "delta", delta)

	if m.shifter != nil {
		n, err := m.shifter.ShiftIndex(ctx, subset, span, delta)
		if err != nil {
			return 0, m.wrap(op, phase, err)
		}
		return n, nil
	}

	rows, err := m.loader.Load(ctx, subset)
	if err != nil {
		return 0, m.wrap(op, "load", err)
	}
	var matched []T
	for _, row := range rows {
		if idx := row.GetIndex(); idx >= 0 && span.Contains(idx) {
			matched = append(matched, row)
		}
	}
	// Save in the order that never puts two rows on one Index: highest
	// first when moving up, lowest first when moving down.
	slices.SortFunc(matched, func(a, b T) int {
		if delta > 0 {
			return b.GetIndex() - a.GetIndex()
		}
		return a.GetIndex() - b.GetIndex()
	})
	for _, row := range matched {
		row.SetIndex(row.GetIndex() + delta)
		if err := m.adapter.Save(ctx, row); err != nil {
			return 0, m.wrap(op, phase, err)
		}
	}
	return int64(len(matched)), nil
}
