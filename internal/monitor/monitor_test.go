package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ordset/internal/dberr"
	"github.com/roach88/ordset/internal/ir"
	"github.com/roach88/ordset/internal/queryir"
)

type row struct {
	ListID   *string
	Category string
	Labels   []string
}

func strPtr(s string) *string { return &s }

func listOf(r *row) *string    { return r.ListID }
func categoryOf(r *row) string { return r.Category }
func labelsOf(r *row) []string { return r.Labels }

func TestPropertyTracksChange(t *testing.T) {
	mon := NewProperty("list_id", listOf)
	r := &row{ListID: strPtr("l1")}

	mon.UpdateOld(r)
	r.ListID = strPtr("l2")
	require.NoError(t, mon.UpdateNew(r))

	assert.True(t, mon.Changed())

	old, err := mon.OldValue()
	require.NoError(t, err)
	assert.Equal(t, "l1", *old)

	pred, err := mon.HasOldValue()
	require.NoError(t, err)
	assert.Equal(t, queryir.Equals{Field: "list_id", Value: ir.IRString("l1")}, pred)

	pred, err = mon.HasNewValue()
	require.NoError(t, err)
	assert.Equal(t, queryir.Equals{Field: "list_id", Value: ir.IRString("l2")}, pred)
}

func TestPropertyNilRendersIsNull(t *testing.T) {
	mon := NewProperty("list_id", listOf)
	r := &row{}

	mon.UpdateOld(r)
	require.NoError(t, mon.UpdateNew(r))
	assert.False(t, mon.Changed())

	pred, err := mon.HasOldValue()
	require.NoError(t, err)
	assert.Equal(t, queryir.Equals{Field: "list_id", Value: ir.IRNull{}}, pred)
}

func TestPropertyUnchangedInt(t *testing.T) {
	type counter struct{ Count int }
	mon := NewProperty("count", func(c *counter) int { return c.Count })
	c := &counter{Count: 5}

	mon.UpdateOld(c)
	require.NoError(t, mon.UpdateNew(c))
	assert.False(t, mon.Changed())

	old, err := mon.OldValue()
	require.NoError(t, err)
	assert.Equal(t, 5, old)
	cur, err := mon.NewValue()
	require.NoError(t, err)
	assert.Equal(t, 5, cur)

	pred, err := mon.HasNewValue()
	require.NoError(t, err)
	assert.Equal(t, queryir.Equals{Field: "count", Value: ir.IRInt(5)}, pred)
}

func TestPropertySeesInPlaceWrite(t *testing.T) {
	mon := NewProperty("list_id", listOf)
	r := &row{ListID: strPtr("l1")}

	mon.UpdateOld(r)
	*r.ListID = "l2"
	require.NoError(t, mon.UpdateNew(r))

	assert.True(t, mon.Changed())
	old, err := mon.OldValue()
	require.NoError(t, err)
	assert.Equal(t, "l1", *old)

	pred, err := mon.HasOldValue()
	require.NoError(t, err)
	assert.Equal(t, queryir.Equals{Field: "list_id", Value: ir.IRString("l1")}, pred)
}

func TestPropertyProgrammerErrors(t *testing.T) {
	mon := NewProperty("category", categoryOf)
	r := &row{Category: "todo"}

	_, err := mon.OldValue()
	assert.True(t, dberr.IsProgrammer(err))

	_, err = mon.HasOldValue()
	assert.True(t, dberr.IsProgrammer(err))

	err = mon.UpdateNew(r)
	assert.True(t, dberr.IsProgrammer(err))

	mon.UpdateOld(r)
	_, err = mon.NewValue()
	assert.True(t, dberr.IsProgrammer(err))
	assert.False(t, mon.Changed(), "no new value yet")
}

func TestPropertyUpdateOldResetsCycle(t *testing.T) {
	mon := NewProperty("category", categoryOf)
	r := &row{Category: "todo"}

	mon.UpdateOld(r)
	r.Category = "done"
	require.NoError(t, mon.UpdateNew(r))
	assert.True(t, mon.Changed())

	mon.UpdateOld(r)
	assert.False(t, mon.Changed())
	_, err := mon.NewValue()
	assert.Error(t, err)
}

func TestListMonitor(t *testing.T) {
	mon := NewList("labels", labelsOf)
	r := &row{Labels: []string{"a", "b"}}

	mon.UpdateOld(r)
	r.Labels[1] = "c"
	require.NoError(t, mon.UpdateNew(r))
	assert.True(t, mon.Changed())

	old, err := mon.OldValue()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, old)

	r2 := &row{}
	mon.UpdateOld(r2)
	r2.Labels = []string{}
	require.NoError(t, mon.UpdateNew(r2))
	assert.False(t, mon.Changed(), "nil and empty are the same list")

	fresh := NewList("labels", labelsOf)
	assert.True(t, dberr.IsProgrammer(fresh.UpdateNew(r)))
	_, err = fresh.NewValue()
	assert.True(t, dberr.IsProgrammer(err))
}

func TestSet(t *testing.T) {
	set := Set[*row]{
		NewProperty("list_id", listOf),
		NewProperty("category", categoryOf),
		NewList("labels", labelsOf),
	}
	r := &row{ListID: strPtr("l1"), Category: "todo"}

	set.UpdateOld(r)
	r.Category = "done"
	require.NoError(t, set.UpdateNew(r))

	assert.True(t, set.AnyChanged())
	assert.Equal(t, []string{"category"}, set.ChangedNames())

	set.UpdateOld(r)
	require.NoError(t, set.UpdateNew(r))
	assert.False(t, set.AnyChanged())

	assert.True(t, dberr.IsProgrammer(Set[*row]{NewProperty("x", categoryOf)}.UpdateNew(r)))
}

func TestSetPredicates(t *testing.T) {
	set := Set[*row]{
		NewProperty("list_id", listOf),
		NewProperty("category", categoryOf),
		NewList("labels", labelsOf),
	}
	r := &row{ListID: strPtr("l1"), Category: "todo", Labels: []string{"x"}}

	_, err := set.OldPredicate()
	assert.True(t, dberr.IsProgrammer(err))

	set.UpdateOld(r)
	r.ListID = nil
	require.NoError(t, set.UpdateNew(r))

	old, err := set.OldPredicate()
	require.NoError(t, err)
	assert.Equal(t, queryir.And{Predicates: []queryir.Predicate{
		queryir.Equals{Field: "list_id", Value: ir.IRString("l1")},
		queryir.Equals{Field: "category", Value: ir.IRString("todo")},
	}}, old)

	next, err := set.NewPredicate()
	require.NoError(t, err)
	ok, err := queryir.Eval(next, ir.IRObject{"list_id": ir.IRNull{}, "category": ir.IRString("todo")})
	require.NoError(t, err)
	assert.True(t, ok)
}
