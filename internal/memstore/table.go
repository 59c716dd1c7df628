// Package memstore is an in-memory table of sorted rows.
//
// It implements the ordering adapter contract without set-based updates,
// so a Maintainer over a Table always takes the row-by-row path. It is used
// by tests and by the scenario harness as a second, independent backend.
//
// Transactions copy the table on begin and swap the copy in on commit.
// One transaction is open at a time; BeginTx waits for the previous one to
// end, like a single-writer database.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/ordset/internal/ir"
	"github.com/roach88/ordset/internal/ordering"
	"github.com/roach88/ordset/internal/queryir"
	"github.com/roach88/ordset/internal/txscope"
)

// ErrTxDone is returned when a transaction is used after it ended.
var ErrTxDone = errors.New("memstore: transaction has already been committed or rolled back")

// ErrNotFound is returned for a missing key.
var ErrNotFound = errors.New("memstore: row not found")

// Schema tells a Table how to handle T.
type Schema[T ordering.Sorted] struct {
	// Key returns the row's primary key.
	Key func(T) string

	// Fields renders the row's columns for predicate evaluation.
	Fields func(T) ir.IRObject

	// Clone returns an independent copy of the row.
	Clone func(T) T
}

// Table stores rows of T keyed by Schema.Key.
type Table[T ordering.Sorted] struct {
	schema Schema[T]

	mu   sync.RWMutex
	rows map[string]T

	// writer is a one-slot semaphore held by the open transaction.
	writer chan struct{}
}

// New creates an empty table.
func New[T ordering.Sorted](schema Schema[T]) *Table[T] {
	return &Table[T]{
		schema: schema,
		rows:   make(map[string]T),
		writer: make(chan struct{}, 1),
	}
}

type tx[T ordering.Sorted] struct {
	table *Table[T]
	rows  map[string]T
	done  bool
}

func (t *tx[T]) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.table.mu.Lock()
	t.table.rows = t.rows
	t.table.mu.Unlock()
	<-t.table.writer
	return nil
}

func (t *tx[T]) Rollback() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	<-t.table.writer
	return nil
}

// BeginTx waits for the writer slot and starts a transaction over a copy of
// the table.
func (t *Table[T]) BeginTx(ctx context.Context) (txscope.Tx, error) {
	select {
	case t.writer <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	t.mu.RLock()
	working := make(map[string]T, len(t.rows))
	for k, v := range t.rows {
		working[k] = t.schema.Clone(v)
	}
	t.mu.RUnlock()

	return &tx[T]{table: t, rows: working}, nil
}

// ambient returns the working copy of the transaction carried by ctx, or
// nil when ctx carries none.
func (t *Table[T]) ambient(ctx context.Context) (map[string]T, error) {
	amb, ok := txscope.FromContext(ctx, t)
	if !ok {
		return nil, nil
	}
	mt, ok := amb.(*tx[T])
	if !ok {
		return nil, fmt.Errorf("memstore: foreign transaction %T", amb)
	}
	if mt.done {
		return nil, ErrTxDone
	}
	return mt.rows, nil
}

// write applies fn to the working copy of the ambient transaction. Without
// one it runs as its own single-statement transaction.
func (t *Table[T]) write(ctx context.Context, fn func(rows map[string]T) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows, err := t.ambient(ctx)
	if err != nil {
		return err
	}
	if rows != nil {
		return fn(rows)
	}
	return txscope.Run(ctx, t, func(ctx context.Context) error {
		return t.write(ctx, fn)
	})
}

// read applies fn to the working copy of the ambient transaction, or to
// the committed rows under the read lock.
func (t *Table[T]) read(ctx context.Context, fn func(rows map[string]T) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows, err := t.ambient(ctx)
	if err != nil {
		return err
	}
	if rows != nil {
		return fn(rows)
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return fn(t.rows)
}

// Insert adds a row. The key must be new.
func (t *Table[T]) Insert(ctx context.Context, row T) error {
	key := t.schema.Key(row)
	return t.write(ctx, func(rows map[string]T) error {
		if _, exists := rows[key]; exists {
			return fmt.Errorf("memstore: duplicate key %q", key)
		}
		rows[key] = t.schema.Clone(row)
		return nil
	})
}

// Update replaces an existing row.
func (t *Table[T]) Update(ctx context.Context, row T) error {
	key := t.schema.Key(row)
	return t.write(ctx, func(rows map[string]T) error {
		if _, exists := rows[key]; !exists {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		rows[key] = t.schema.Clone(row)
		return nil
	})
}

// Delete removes row, matched by key.
func (t *Table[T]) Delete(ctx context.Context, row T) error {
	key := t.schema.Key(row)
	return t.write(ctx, func(rows map[string]T) error {
		if _, exists := rows[key]; !exists {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		delete(rows, key)
		return nil
	})
}

// Get returns a copy of the row with key.
func (t *Table[T]) Get(ctx context.Context, key string) (T, error) {
	var out T
	err := t.read(ctx, func(rows map[string]T) error {
		row, ok := rows[key]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		out = t.schema.Clone(row)
		return nil
	})
	return out, err
}

// Select returns copies of the rows matching filter, ordered by Index and
// then key.
func (t *Table[T]) Select(ctx context.Context, filter queryir.Predicate) ([]T, error) {
	var out []T
	err := t.read(ctx, func(rows map[string]T) error {
		for _, row := range rows {
			ok, err := queryir.Eval(filter, t.schema.Fields(row))
			if err != nil {
				return err
			}
			if ok {
				out = append(out, t.schema.Clone(row))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b T) int {
		if a.GetIndex() != b.GetIndex() {
			return a.GetIndex() - b.GetIndex()
		}
		return strings.Compare(t.schema.Key(a), t.schema.Key(b))
	})
	return out, nil
}

// Len returns the number of committed rows.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// MaxIndex implements ordering.Adapter.
func (t *Table[T]) MaxIndex(ctx context.Context, subset queryir.Predicate) (int, error) {
	rows, err := t.Select(ctx, subset)
	if err != nil {
		return 0, err
	}
	top := ordering.Detached
	for _, row := range rows {
		top = max(top, row.GetIndex())
	}
	return top, nil
}

// Save implements ordering.Adapter.
func (t *Table[T]) Save(ctx context.Context, row T) error {
	return t.Update(ctx, row)
}

// Load implements ordering.Loader.
func (t *Table[T]) Load(ctx context.Context, subset queryir.Predicate) ([]T, error) {
	return t.Select(ctx, subset)
}
