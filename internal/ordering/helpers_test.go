package ordering_test

import (
	"context"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/ordset/internal/memstore"
	"github.com/roach88/ordset/internal/ordering"
	"github.com/roach88/ordset/internal/queryir"
	"github.com/roach88/ordset/internal/store"
	"github.com/roach88/ordset/internal/testutil"
	"github.com/roach88/ordset/internal/txscope"
)

const category = "todo"

// backend is one persistence adapter plus the row operations a test needs
// around it.
type backend struct {
	adapter ordering.Adapter[*store.Item]
	insert  func(ctx context.Context, item *store.Item) error
	remove  func(ctx context.Context, id string) error
	get     func(ctx context.Context, id string) (*store.Item, error)
	list    func(ctx context.Context, filter queryir.Predicate) ([]*store.Item, error)
}

type backendFactory struct {
	name string
	new  func(t *testing.T) *backend
}

func sqliteBackend(strict bool) func(t *testing.T) *backend {
	return func(t *testing.T) *backend {
		t.Helper()
		s, err := store.Open(filepath.Join(t.TempDir(), "ordset.db"), store.Options{
			StrictOrdering: strict,
			IDs:            testutil.NewSequenceGenerator("item"),
			Now:            testutil.NewStepClock(time.Time{}, time.Second).Now,
		})
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return &backend{
			adapter: s.Ordering(),
			insert:  s.InsertItem,
			remove:  s.DeleteItem,
			get:     s.GetItem,
			list:    s.ListItems,
		}
	}
}

func memoryBackend(t *testing.T) *backend {
	t.Helper()
	tbl := memstore.NewItemTable()
	return &backend{
		adapter: tbl,
		insert:  tbl.Insert,
		remove: func(ctx context.Context, id string) error {
			return tbl.Delete(ctx, &store.Item{ID: id})
		},
		get:  tbl.Get,
		list: tbl.Select,
	}
}

// strictBackends check (subset, idx) uniqueness on every statement or not
// at all; both must keep the ordering dense with safe moves.
var strictBackends = []backendFactory{
	{"sqlite", sqliteBackend(true)},
	{"memory", memoryBackend},
}

// lenientBackends accept transient duplicate indices, so compact moves
// succeed on them.
var lenientBackends = []backendFactory{
	{"sqlite-lenient", sqliteBackend(false)},
	{"memory", memoryBackend},
}

func forEach(t *testing.T, factories []backendFactory, fn func(t *testing.T, b *backend)) {
	for _, f := range factories {
		t.Run(f.name, func(t *testing.T) {
			fn(t, f.new(t))
		})
	}
}

func (b *backend) maintainer(opts ...ordering.Option) *ordering.Maintainer[*store.Item] {
	return ordering.New[*store.Item](b.adapter, append([]ordering.Option{ordering.WithName("items")}, opts...)...)
}

// seed inserts one item per ID into list at indices 0..n-1.
func (b *backend) seed(t *testing.T, list string, ids ...string) []*store.Item {
	t.Helper()
	items := make([]*store.Item, len(ids))
	for i, id := range ids {
		items[i] = &store.Item{ID: id, ListID: store.ListRef(list), Category: category, Title: id, Index: i}
		require.NoError(t, b.insert(context.Background(), items[i]))
	}
	return items
}

// order returns the IDs of the active items of list by idx and fails the
// test unless their indices are dense.
func (b *backend) order(t *testing.T, list string) []string {
	t.Helper()
	rows, err := b.list(context.Background(), store.SubsetOf(list, category))
	require.NoError(t, err)

	var active []*store.Item
	for _, row := range rows {
		if row.Index >= 0 {
			active = append(active, row)
		}
	}
	slices.SortFunc(active, func(x, y *store.Item) int { return x.Index - y.Index })

	ids := make([]string, len(active))
	indices := make([]int, len(active))
	for i, row := range active {
		ids[i] = row.ID
		indices[i] = row.Index
	}
	testutil.AssertDense(t, indices, "list %s", list)
	return ids
}

func (b *backend) index(t *testing.T, id string) int {
	t.Helper()
	item, err := b.get(context.Background(), id)
	require.NoError(t, err)
	return item.Index
}

// fresh rereads item inside the ambient transaction of ctx.
func (b *backend) fresh(ctx context.Context, t *testing.T, id string) *store.Item {
	t.Helper()
	item, err := b.get(ctx, id)
	require.NoError(t, err)
	return item
}

// inTx runs fn in one transaction on the backend.
func (b *backend) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txscope.Run(ctx, b.adapter, fn)
}
