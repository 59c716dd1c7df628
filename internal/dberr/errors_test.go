package dberr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgrammer(t *testing.T) {
	err := Programmer("monitor", "OldValue read before %s", "UpdateOld")

	assert.True(t, IsProgrammer(err))
	assert.False(t, IsConflict(err))
	assert.False(t, IsStore(err))
	assert.Equal(t, "PROGRAMMER_ERROR: OldValue read before UpdateOld (op=monitor)", err.Error())
}

func TestWrapCategories(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed: items.list_id, items.category, items.idx")

	conflict := Wrap("move", "place", cause, true)
	assert.True(t, IsConflict(conflict))
	assert.Equal(t, "place", PhaseOf(conflict))
	assert.ErrorIs(t, conflict, cause)

	store := Wrap("remove", "shift-down", cause, false)
	assert.True(t, IsStore(store))
	assert.Contains(t, store.Error(), "op=remove/shift-down")

	assert.NoError(t, Wrap("move", "place", nil, false))
}

func TestWrapKeepsExistingCode(t *testing.T) {
	inner := Wrap("", "", errors.New("busy"), true)
	outer := Wrap("transfer", "append", fmt.Errorf("save item: %w", inner), false)

	assert.True(t, IsConflict(outer))
	assert.Equal(t, "append", PhaseOf(outer))
}

func TestContextCancellationStaysDetectable(t *testing.T) {
	err := Wrap("move", "shift-up", fmt.Errorf("exec: %w", context.Canceled), false)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, IsStore(err))
}

func TestWithEntity(t *testing.T) {
	err := WithEntity(Wrap("restore", "save", errors.New("disk I/O error"), false), "item-1")

	assert.Contains(t, err.Error(), "entity=item-1")
	assert.Equal(t, "plain", WithEntity(errors.New("plain"), "x").Error())
	assert.Equal(t, "", PhaseOf(errors.New("plain")))
}
