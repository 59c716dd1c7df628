package ordering

import (
	"context"
	"math"

	"github.com/roach88/ordset/internal/queryir"
	"github.com/roach88/ordset/internal/txscope"
)

// Unbounded as Span.To means the span has no upper limit.
const Unbounded = math.MaxInt

// Span is an inclusive range of indices.
type Span struct {
	From int
	To   int
}

// Contains reports whether idx lies in the span.
func (s Span) Contains(idx int) bool {
	return idx >= s.From && (s.To == Unbounded || idx <= s.To)
}

// Empty reports whether the span contains no index.
func (s Span) Empty() bool {
	return s.To != Unbounded && s.To < s.From
}

// Adapter is the persistence contract the Maintainer needs.
//
// Every method must join the ambient transaction carried by ctx
// (see txscope.FromContext).
type Adapter[T Sorted] interface {
	txscope.Beginner

	// MaxIndex returns the highest Index among rows matching subset,
	// or -1 when the subset has no active rows.
	MaxIndex(ctx context.Context, subset queryir.Predicate) (int, error)

	// Save persists item, including its Index.
	Save(ctx context.Context, item T) error
}

// Shifter is implemented by adapters that can add delta to the Index of
// every subset row whose Index lies in span, as one atomic step.
// It returns the number of rows changed.
type Shifter interface {
	ShiftIndex(ctx context.Context, subset queryir.Predicate, span Span, delta int) (int64, error)
}

// Loader is implemented by adapters without set-based updates. Load returns
// every row matching subset.
type Loader[T Sorted] interface {
	Load(ctx context.Context, subset queryir.Predicate) ([]T, error)
}

// ConflictClassifier lets an adapter mark store errors as conflicts
// (uniqueness violations, lock contention).
type ConflictClassifier interface {
	IsConflict(err error) bool
}
