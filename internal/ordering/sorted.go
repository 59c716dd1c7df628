package ordering

import (
	"github.com/roach88/ordset/internal/ir"
	"github.com/roach88/ordset/internal/queryir"
)

// Detached is the Index of a row that is not part of its subset's ordering.
const Detached = -1

// Sorted is implemented by models that carry an ordering Index.
type Sorted interface {
	GetIndex() int
	SetIndex(int)
}

// Subset derives the subset predicate for an item from its current field
// values. A nil Subset puts every row of the table in one subset.
type Subset[T any] func(T) queryir.Predicate

// By builds a subset key over one column: rows are in the same subset when
// their column values are equal (nil values group together as IS NULL).
//
// By panics when get returns a type that cannot be a column value; that is
// a wiring mistake, not a data error.
func By[T, P any](column string, get func(T) P) Subset[T] {
	return func(item T) queryir.Predicate {
		return queryir.Equals{Field: column, Value: ir.MustValueOf(get(item))}
	}
}

// All combines subset keys by conjunction.
func All[T any](keys ...Subset[T]) Subset[T] {
	return func(item T) queryir.Predicate {
		preds := make([]queryir.Predicate, 0, len(keys))
		for _, key := range keys {
			if key != nil {
				preds = append(preds, key(item))
			}
		}
		return queryir.All(preds...)
	}
}

// Of evaluates s for item, treating a nil Subset as the whole table.
func (s Subset[T]) Of(item T) queryir.Predicate {
	if s == nil {
		return nil
	}
	return s(item)
}
