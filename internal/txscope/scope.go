// Package txscope composes transactions across nested callers.
//
// The outermost Begin for a given Beginner opens a real transaction and
// returns an Owned scope plus a context carrying it. Any Begin further down
// the call chain with that context borrows the ambient transaction instead
// of opening a second one. Only the owner commits or rolls back; a borrowed
// scope's Commit merely records intent.
//
// Typical use:
//
//	scope, ctx, err := txscope.Begin(ctx, db)
//	if err != nil {
//		return err
//	}
//	defer scope.Close()
//	// ... work with ctx ...
//	return scope.Commit()
package txscope

import (
	"context"
	"fmt"

	"github.com/roach88/ordset/internal/dberr"
)

// Tx is the transaction primitive. *sql.Tx satisfies it.
type Tx interface {
	Commit() error
	Rollback() error
}

// Beginner opens transactions. Implementations must be comparable (usually
// a pointer) because they key the ambient transaction in a context.
type Beginner interface {
	BeginTx(ctx context.Context) (Tx, error)
}

// Delegator is implemented by a Beginner that shares the transactions of
// another Beginner, such as an adapter layered over a store.
type Delegator interface {
	TxOwner() Beginner
}

// Mode records whether a scope owns its transaction.
type Mode int

const (
	// Owned scopes opened the transaction and are responsible for ending it.
	Owned Mode = iota
	// Borrowed scopes joined an ambient transaction and never end it.
	Borrowed
)

func (m Mode) String() string {
	if m == Borrowed {
		return "borrowed"
	}
	return "owned"
}

type ambientKey struct {
	b Beginner
}

func keyFor(b Beginner) ambientKey {
	for {
		d, ok := b.(Delegator)
		if !ok {
			return ambientKey{b: b}
		}
		owner := d.TxOwner()
		if owner == nil || owner == b {
			return ambientKey{b: b}
		}
		b = owner
	}
}

// WithTx returns a context carrying tx as the ambient transaction for b.
func WithTx(ctx context.Context, b Beginner, tx Tx) context.Context {
	return context.WithValue(ctx, keyFor(b), tx)
}

// FromContext returns the ambient transaction for b, if any.
func FromContext(ctx context.Context, b Beginner) (Tx, bool) {
	tx, ok := ctx.Value(keyFor(b)).(Tx)
	return tx, ok && tx != nil
}

// Scope is one participant's view of a transaction.
type Scope struct {
	tx         Tx
	mode       Mode
	committed  bool
	rolledBack bool
}

// Begin joins the ambient transaction for b carried by ctx, or opens a new
// one. The returned context carries the transaction for nested callers.
func Begin(ctx context.Context, b Beginner) (*Scope, context.Context, error) {
	if tx, ok := FromContext(ctx, b); ok {
		return &Scope{tx: tx, mode: Borrowed}, ctx, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, ctx, err
	}
	tx, err := b.BeginTx(ctx)
	if err != nil {
		return nil, ctx, fmt.Errorf("begin transaction: %w", err)
	}
	return &Scope{tx: tx, mode: Owned}, WithTx(ctx, b, tx), nil
}

// Tx returns the underlying transaction.
func (s *Scope) Tx() Tx { return s.tx }

// Mode returns whether the scope owns its transaction.
func (s *Scope) Mode() Mode { return s.mode }

// Committed reports whether Commit or ForceCommit succeeded.
func (s *Scope) Committed() bool { return s.committed }

// Commit commits an owned transaction. On a borrowed scope it only records
// that this participant finished successfully; the owner commits.
// Committing twice is a no-op.
func (s *Scope) Commit() error {
	if s.rolledBack {
		return dberr.Programmer("commit", "commit after rollback")
	}
	if s.committed {
		return nil
	}
	if s.mode == Owned {
		if err := s.tx.Commit(); err != nil {
			return err
		}
	}
	s.committed = true
	return nil
}

// ForceCommit commits the underlying transaction even when borrowed.
// The owner's later Commit then finds the transaction already done and
// must tolerate that; use only at well-known boundaries.
func (s *Scope) ForceCommit() error {
	if s.rolledBack {
		return dberr.Programmer("commit", "force commit after rollback")
	}
	if s.committed && s.mode == Owned {
		return nil
	}
	if err := s.tx.Commit(); err != nil {
		return err
	}
	s.committed = true
	return nil
}

// Rollback rolls back an owned transaction. It is a no-op on a borrowed
// scope: the owner decides, typically when the error propagates to it.
func (s *Scope) Rollback() error {
	if s.mode == Borrowed || s.committed || s.rolledBack {
		return nil
	}
	s.rolledBack = true
	return s.tx.Rollback()
}

// Close ends the scope. An owned scope that was not committed is rolled
// back; every other combination leaves the transaction alone. Close is safe
// to defer and to call more than once.
func (s *Scope) Close() error {
	if s == nil {
		return nil
	}
	return s.Rollback()
}

// Run executes fn inside a scope for b and commits on success. An error
// from fn rolls an owned transaction back and is returned unchanged.
func Run(ctx context.Context, b Beginner, fn func(ctx context.Context) error) (err error) {
	scope, ctx, err := Begin(ctx, b)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := scope.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := fn(ctx); err != nil {
		return err
	}
	return scope.Commit()
}
