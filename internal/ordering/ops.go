package ordering

import (
	"context"

	"github.com/roach88/ordset/internal/queryir"
)

// MoveOption adjusts a single Move.
type MoveOption func(*moveConfig)

type moveConfig struct {
	compact bool
}

// Compact selects the two-statement interior move for one call.
func Compact() MoveOption {
	return func(c *moveConfig) { c.compact = true }
}

// Safe selects the three-phase interior move for one call.
func Safe() MoveOption {
	return func(c *moveConfig) { c.compact = false }
}

// AssignOnCreate sets item's Index to the tail of subset: one past the
// current maximum, or 0 for an empty subset. It does not persist item; the
// caller inserts the row, ideally in the same transaction.
func (m *Maintainer[T]) AssignOnCreate(ctx context.Context, item T, subset queryir.Predicate) error {
	top, err := m.maxIndex(ctx, "create", subset)
	if err != nil {
		return err
	}
	item.SetIndex(top + 1)
	OperationCount.WithLabelValues("create", "ok").Inc()
	return nil
}

// Remove takes item out of subset's ordering: it is saved as Detached and
// every member above its old Index moves down by one. A detached item is
// left alone.
func (m *Maintainer[T]) Remove(ctx context.Context, item T, subset queryir.Predicate) error {
	old := item.GetIndex()
	if old < 0 {
		return nil
	}
	return m.run(ctx, "remove", item, []queryir.Predicate{subset}, func(ctx context.Context) (int64, error) {
		return m.removeAt(ctx, "remove", item, old, subset)
	})
}

// RemoveForDelete closes the gap left by a deleted row. The row must
// already be gone from the store, within the same transaction; item is only
// marked Detached in memory.
func (m *Maintainer[T]) RemoveForDelete(ctx context.Context, item T, subset queryir.Predicate) error {
	old := item.GetIndex()
	if old < 0 {
		return nil
	}
	return m.run(ctx, "delete", item, []queryir.Predicate{subset}, func(ctx context.Context) (int64, error) {
		item.SetIndex(Detached)
		return m.shift(ctx, "delete", "shift-down", subset, Span{From: old + 1, To: Unbounded}, -1)
	})
}

// Restore appends a detached item at the tail of subset and saves it.
// An item that is already ordered is left alone.
func (m *Maintainer[T]) Restore(ctx context.Context, item T, subset queryir.Predicate) error {
	if item.GetIndex() >= 0 {
		return nil
	}
	return m.run(ctx, "restore", item, []queryir.Predicate{subset}, func(ctx context.Context) (int64, error) {
		top, err := m.maxIndex(ctx, "restore", subset)
		if err != nil {
			return 0, err
		}
		item.SetIndex(top + 1)
		return 0, m.save(ctx, "restore", "save", item)
	})
}

// Move relocates item within subset so that it lands before the element
// currently at target.
//
//   - target < 0 removes the item from the ordering, like Remove.
//   - target == Index and target == Index+1 leave the order unchanged. A
//     detached item has Index -1, so moving it to 0 does nothing.
//   - Otherwise a detached item is inserted at target.
//   - target beyond the tail is clamped to the tail.
//
// Moving to a higher position therefore leaves the item at target-1.
// Interior moves use the three-phase algorithm unless Compact (or
// WithCompactMoves) selects the two-statement one, which may transiently
// duplicate an Index and fail on stores that check uniqueness per
// statement.
func (m *Maintainer[T]) Move(ctx context.Context, item T, target int, subset queryir.Predicate, opts ...MoveOption) error {
	cfg := moveConfig{compact: m.compact}
	for _, opt := range opts {
		opt(&cfg)
	}

	old := item.GetIndex()
	if target < 0 {
		target = Detached
	}
	if old < 0 && target < 0 {
		return nil
	}
	if target == old || target == old+1 {
		return nil
	}

	return m.run(ctx, "move", item, []queryir.Predicate{subset}, func(ctx context.Context) (int64, error) {
		if target > 0 {
			top, err := m.maxIndex(ctx, "move", subset)
			if err != nil {
				return 0, err
			}
			if target > top+1 {
				target = top + 1
			}
			if target == old+1 {
				return 0, nil
			}
		}

		switch {
		case target == Detached:
			return m.removeAt(ctx, "move", item, old, subset)
		case old == Detached:
			return m.insertAt(ctx, "move", item, target, subset)
		case cfg.compact:
			return m.moveCompact(ctx, item, old, target, subset)
		default:
			return m.moveSafe(ctx, item, old, target, subset)
		}
	})
}

// CrossSubsetTransfer moves item from oldSubset to the tail of newSubset:
// the gap at its old Index is closed and the item is saved with its new
// Index. Call it after the item's subset-key fields were changed in memory;
// the save writes them too.
func (m *Maintainer[T]) CrossSubsetTransfer(ctx context.Context, item T, oldSubset, newSubset queryir.Predicate) error {
	old := item.GetIndex()
	return m.run(ctx, "transfer", item, []queryir.Predicate{oldSubset, newSubset}, func(ctx context.Context) (int64, error) {
		var shifted int64
		if old >= 0 {
			// Leave the old ordering first so the new key fields never
			// land on an occupied Index.
			item.SetIndex(Detached)
			if err := m.save(ctx, "transfer", "detach", item); err != nil {
				return 0, err
			}
			n, err := m.shift(ctx, "transfer", "shift-down", oldSubset, Span{From: old + 1, To: Unbounded}, -1)
			if err != nil {
				return 0, err
			}
			shifted = n
		}

		top, err := m.maxIndex(ctx, "transfer", newSubset)
		if err != nil {
			return 0, err
		}
		item.SetIndex(top + 1)
		return shifted, m.save(ctx, "transfer", "append", item)
	})
}

func (m *Maintainer[T]) removeAt(ctx context.Context, op string, item T, old int, subset queryir.Predicate) (int64, error) {
	item.SetIndex(Detached)
	if err := m.save(ctx, op, "detach", item); err != nil {
		return 0, err
	}
	return m.shift(ctx, op, "shift-down", subset, Span{From: old + 1, To: Unbounded}, -1)
}

func (m *Maintainer[T]) insertAt(ctx context.Context, op string, item T, target int, subset queryir.Predicate) (int64, error) {
	n, err := m.shift(ctx, op, "shift-up", subset, Span{From: target, To: Unbounded}, 1)
	if err != nil {
		return 0, err
	}
	item.SetIndex(target)
	return n, m.save(ctx, op, "place", item)
}

// moveCompact shifts only the rows between the two positions, then saves
// the item. Between the two writes the item and one neighbour share an
// Index.
func (m *Maintainer[T]) moveCompact(ctx context.Context, item T, old, target int, subset queryir.Predicate) (int64, error) {
	if target > old {
		n, err := m.shift(ctx, "move", "shift-down", subset, Span{From: old + 1, To: target - 1}, -1)
		if err != nil {
			return 0, err
		}
		item.SetIndex(target - 1)
		return n, m.save(ctx, "move", "place", item)
	}

	n, err := m.shift(ctx, "move", "shift-up", subset, Span{From: target, To: old - 1}, 1)
	if err != nil {
		return 0, err
	}
	item.SetIndex(target)
	return n, m.save(ctx, "move", "place", item)
}

// moveSafe opens a slot at target, saves the item there, then closes the
// gap above its old position. No two rows share an Index at any point.
//
// When moving down, phase one also shifts the item itself to old+1; that
// slot is empty again once the item is placed, so "Index > old" is still
// the right gap to close. When moving up, phase three shifts the item from
// target to target-1.
func (m *Maintainer[T]) moveSafe(ctx context.Context, item T, old, target int, subset queryir.Predicate) (int64, error) {
	up, err := m.shift(ctx, "move", "shift-up", subset, Span{From: target, To: Unbounded}, 1)
	if err != nil {
		return 0, err
	}
	item.SetIndex(target)
	if err := m.save(ctx, "move", "place", item); err != nil {
		return 0, err
	}
	down, err := m.shift(ctx, "move", "shift-down", subset, Span{From: old + 1, To: Unbounded}, -1)
	if err != nil {
		return 0, err
	}

	final := target
	if target > old {
		final = target - 1
		down-- // the item itself
	} else {
		up-- // the item itself
	}
	item.SetIndex(final)
	return up + down, nil
}
