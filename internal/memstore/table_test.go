package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ordset/internal/ir"
	"github.com/roach88/ordset/internal/queryir"
	"github.com/roach88/ordset/internal/store"
	"github.com/roach88/ordset/internal/txscope"
)

func item(id, list string, idx int) *store.Item {
	return &store.Item{ID: id, ListID: store.ListRef(list), Category: "todo", Title: id, Index: idx}
}

func TestTable_CRUD(t *testing.T) {
	tbl := NewItemTable()
	ctx := context.Background()

	require.NoError(t, tbl.Insert(ctx, item("a", "l", 0)))
	assert.Error(t, tbl.Insert(ctx, item("a", "l", 1)))
	assert.Equal(t, 1, tbl.Len())

	got, err := tbl.Get(ctx, "a")
	require.NoError(t, err)
	got.Title = "changed"
	again, err := tbl.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", again.Title, "Get returns copies")

	require.NoError(t, tbl.Update(ctx, got))
	again, err = tbl.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "changed", again.Title)

	require.NoError(t, tbl.Delete(ctx, got))
	_, err = tbl.Get(ctx, "a")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.ErrorIs(t, tbl.Update(ctx, got), ErrNotFound)
	assert.ErrorIs(t, tbl.Delete(ctx, got), ErrNotFound)
}

func TestTable_SelectEvaluatesPredicates(t *testing.T) {
	tbl := NewItemTable()
	ctx := context.Background()

	for _, it := range []*store.Item{item("b", "l", 1), item("a", "l", 0), item("c", "", 0), item("d", "l", -1)} {
		require.NoError(t, tbl.Insert(ctx, it))
	}

	rows, err := tbl.Select(ctx, store.SubsetOf("l", "todo"))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"d", "a", "b"}, []string{rows[0].ID, rows[1].ID, rows[2].ID})

	rows, err = tbl.Select(ctx, store.SubsetOf("", "todo"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "c", rows[0].ID)

	top, err := tbl.MaxIndex(ctx, store.SubsetOf("l", "todo"))
	require.NoError(t, err)
	assert.Equal(t, 1, top)

	top, err = tbl.MaxIndex(ctx, store.SubsetOf("none", "todo"))
	require.NoError(t, err)
	assert.Equal(t, -1, top)

	_, err = tbl.Select(ctx, queryir.Compare{Field: "title", Op: queryir.OpGreater, Value: 1})
	assert.Error(t, err)
}

func TestTable_TransactionIsolationAndRollback(t *testing.T) {
	tbl := NewItemTable()
	require.NoError(t, tbl.Insert(context.Background(), item("a", "l", 0)))

	scope, ctx, err := txscope.Begin(context.Background(), tbl)
	require.NoError(t, err)

	require.NoError(t, tbl.Insert(ctx, item("b", "l", 1)))
	require.NoError(t, tbl.Delete(ctx, item("a", "l", 0)))

	// Inside the transaction the working copy is visible.
	rows, err := tbl.Select(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	// Outside it the committed rows are.
	assert.Equal(t, 1, tbl.Len())
	_, err = tbl.Get(context.Background(), "a")
	require.NoError(t, err)

	require.NoError(t, scope.Close())
	_, err = tbl.Get(context.Background(), "b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTable_Commit(t *testing.T) {
	tbl := NewItemTable()

	err := txscope.Run(context.Background(), tbl, func(ctx context.Context) error {
		return tbl.Insert(ctx, item("a", "l", 0))
	})
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
}

func TestTable_SingleWriter(t *testing.T) {
	tbl := NewItemTable()

	tx, err := tbl.BeginTx(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = tbl.BeginTx(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, tx.Rollback())
	assert.ErrorIs(t, tx.Commit(), ErrTxDone)

	tx, err = tbl.BeginTx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
}

func TestTable_EndedTransactionRejected(t *testing.T) {
	tbl := NewItemTable()

	scope, ctx, err := txscope.Begin(context.Background(), tbl)
	require.NoError(t, err)
	require.NoError(t, scope.Commit())

	assert.ErrorIs(t, tbl.Insert(ctx, item("a", "l", 0)), ErrTxDone)
}

func TestItemFields(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	it := item("a", "", 3)
	it.ArchivedAt = &at

	fields := itemFields(it)
	assert.Equal(t, ir.IRNull{}, fields["list_id"])
	assert.Equal(t, ir.IRInt(3), fields["idx"])
	assert.Equal(t, ir.IRString("2026-01-01T00:00:00Z"), fields["archived_at"])

	clone := cloneItem(it)
	*clone.ArchivedAt = at.Add(time.Hour)
	assert.Equal(t, at, *it.ArchivedAt)
}
