package store

import (
	"context"
	"fmt"

	"github.com/roach88/ordset/internal/ir"
	"github.com/roach88/ordset/internal/ordering"
	"github.com/roach88/ordset/internal/queryir"
	"github.com/roach88/ordset/internal/txscope"
)

// ItemSubset places items with equal list and category in one ordering.
var ItemSubset = ordering.All(
	ordering.By("list_id", func(i *Item) *string { return i.ListID }),
	ordering.By("category", func(i *Item) string { return i.Category }),
)

// SubsetOf returns the predicate selecting the given list and category.
// An empty list selects items in no list.
func SubsetOf(list, category string) queryir.Predicate {
	return ItemSubset(&Item{ListID: ListRef(list), Category: category})
}

// InList selects the items of list. An empty list selects items in no list.
func InList(list string) queryir.Predicate {
	return queryir.Equals{Field: "list_id", Value: ir.MustValueOf(ListRef(list))}
}

// InCategory selects the items of category.
func InCategory(category string) queryir.Predicate {
	return queryir.Equals{Field: "category", Value: ir.IRString(category)}
}

// Active selects items that take part in an ordering.
func Active() queryir.Predicate {
	return queryir.Compare{Field: "idx", Op: queryir.OpGreaterEqual, Value: 0}
}

// ItemOrdering adapts the store to ordering.Maintainer for *Item.
//
// It implements ordering.Adapter, ordering.Shifter, ordering.Loader and
// ordering.ConflictClassifier, and shares the store's transactions.
type ItemOrdering struct {
	store *Store
}

var (
	_ ordering.Adapter[*Item]     = (*ItemOrdering)(nil)
	_ ordering.Shifter            = (*ItemOrdering)(nil)
	_ ordering.Loader[*Item]      = (*ItemOrdering)(nil)
	_ ordering.ConflictClassifier = (*ItemOrdering)(nil)
	_ txscope.Delegator           = (*ItemOrdering)(nil)
)

// Ordering returns the store's ordering adapter.
func (s *Store) Ordering() *ItemOrdering {
	return &ItemOrdering{store: s}
}

// BeginTx starts a store transaction.
func (o *ItemOrdering) BeginTx(ctx context.Context) (txscope.Tx, error) {
	return o.store.BeginTx(ctx)
}

// TxOwner makes scopes opened through the adapter visible to Store methods.
func (o *ItemOrdering) TxOwner() txscope.Beginner {
	return o.store
}

// MaxIndex returns the highest idx in subset, or -1 when it is empty.
func (o *ItemOrdering) MaxIndex(ctx context.Context, subset queryir.Predicate) (int, error) {
	query, args, err := o.store.compiler.Compile(queryir.Max{
		From:   itemsTable,
		Field:  "idx",
		Filter: subset,
	})
	if err != nil {
		return 0, fmt.Errorf("max index: %w", err)
	}
	var top int
	if err := o.store.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&top); err != nil {
		return 0, fmt.Errorf("max index: %w", err)
	}
	return top, nil
}

// Save writes the whole item.
func (o *ItemOrdering) Save(ctx context.Context, item *Item) error {
	return o.store.UpdateItem(ctx, item)
}

// ShiftIndex adds delta to idx for every item of subset with idx in span.
// Archived items (idx -1) are never matched.
func (o *ItemOrdering) ShiftIndex(ctx context.Context, subset queryir.Predicate, span ordering.Span, delta int) (int64, error) {
	from := span.From
	if from < 0 {
		from = 0
	}
	preds := []queryir.Predicate{subset, queryir.Compare{Field: "idx", Op: queryir.OpGreaterEqual, Value: int64(from)}}
	if span.To != ordering.Unbounded {
		preds = append(preds, queryir.Compare{Field: "idx", Op: queryir.OpLessEqual, Value: int64(span.To)})
	}

	stmts, err := o.store.compiler.ScratchShift(queryir.Shift{
		Table:  itemsTable,
		Field:  "idx",
		Delta:  int64(delta),
		Filter: queryir.All(preds...),
	})
	if err != nil {
		return 0, fmt.Errorf("shift index: %w", err)
	}

	conn := o.store.conn(ctx)
	var shifted int64
	for i, stmt := range stmts {
		res, err := conn.ExecContext(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return 0, fmt.Errorf("shift index: %w", err)
		}
		if i == 0 {
			if shifted, err = res.RowsAffected(); err != nil {
				return 0, fmt.Errorf("shift index: %w", err)
			}
		}
	}
	return shifted, nil
}

// Load returns every item of subset, archived items included.
func (o *ItemOrdering) Load(ctx context.Context, subset queryir.Predicate) ([]*Item, error) {
	return o.store.ListItems(ctx, subset)
}

// IsConflict classifies SQLite uniqueness and lock errors as conflicts.
func (o *ItemOrdering) IsConflict(err error) bool {
	return IsConflict(err)
}

// Insert inserts item. It lets the adapter serve as a crud repository.
func (o *ItemOrdering) Insert(ctx context.Context, item *Item) error {
	return o.store.InsertItem(ctx, item)
}

// Delete deletes item by ID.
func (o *ItemOrdering) Delete(ctx context.Context, item *Item) error {
	return o.store.DeleteItem(ctx, item.ID)
}
