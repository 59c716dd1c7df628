package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ordset/internal/ir"
	"github.com/roach88/ordset/internal/queryir"
)

func titles(items []*Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Title
	}
	return out
}

func TestListItems_OrderedBySubsetThenIndex(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seedSubset(t, s, "work", "todo", "w0", "w1")
	seedSubset(t, s, "home", "todo", "h0", "h1", "h2")
	seedSubset(t, s, "", "todo", "n0")

	items, err := s.ListItems(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"n0", "h0", "h1", "h2", "w0", "w1"}, titles(items))

	items, err = s.ListItems(ctx, SubsetOf("home", "todo"))
	require.NoError(t, err)
	assert.Equal(t, []string{"h0", "h1", "h2"}, titles(items))

	items, err = s.ListItems(ctx, SubsetOf("", "todo"))
	require.NoError(t, err)
	assert.Equal(t, []string{"n0"}, titles(items))
}

func TestListItems_EmptyIsNotNil(t *testing.T) {
	s := createTestStore(t)

	items, err := s.ListItems(context.Background(), queryir.Equals{Field: "list_id", Value: ir.IRString("none")})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestListItems_RejectsUnsafeFilter(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ListItems(context.Background(), queryir.Equals{Field: "1=1; --", Value: ir.IRInt(1)})
	assert.Error(t, err)
}

func TestGetItem_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetItem(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
