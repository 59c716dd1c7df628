package crud

import (
	"context"
	"log/slog"
	"slices"

	"github.com/roach88/ordset/internal/dberr"
	"github.com/roach88/ordset/internal/ir"
	"github.com/roach88/ordset/internal/monitor"
	"github.com/roach88/ordset/internal/ordering"
	"github.com/roach88/ordset/internal/queryir"
	"github.com/roach88/ordset/internal/txscope"
)

// Repository is an ordering adapter that can also insert and delete rows.
type Repository[T ordering.Sorted] interface {
	ordering.Adapter[T]

	Insert(ctx context.Context, item T) error
	Delete(ctx context.Context, item T) error
}

// Monitors builds a fresh monitor set for one update.
type Monitors[T any] func() monitor.Set[T]

// Change describes the effect of an Update.
type Change struct {
	// Keys lists the subset-key columns that changed.
	Keys []string

	// Watched lists the other watched properties that changed.
	Watched []string

	// Transferred is true when the row moved to another subset's ordering.
	Transferred bool
}

// Service runs index-maintained operations against a Repository.
type Service[T ordering.Sorted] struct {
	repo      Repository[T]
	order     *ordering.Maintainer[T]
	subset    ordering.Subset[T]
	keys      Monitors[T]
	watched   Monitors[T]
	logger    *slog.Logger
	orderOpts []ordering.Option
}

// Option configures a Service.
type Option[T ordering.Sorted] func(*Service[T])

// WithWatched adds monitors whose changes are reported in Change.Watched.
func WithWatched[T ordering.Sorted](watched Monitors[T]) Option[T] {
	return func(s *Service[T]) { s.watched = watched }
}

// WithOrdering passes options to the underlying Maintainer.
func WithOrdering[T ordering.Sorted](opts ...ordering.Option) Option[T] {
	return func(s *Service[T]) { s.orderOpts = append(s.orderOpts, opts...) }
}

// WithLogger sets the logger for the Service and its Maintainer.
func WithLogger[T ordering.Sorted](logger *slog.Logger) Option[T] {
	return func(s *Service[T]) { s.logger = logger }
}

// New creates a Service. subset derives a row's ordering from its fields;
// keys monitors the same columns and detects when an update changes them.
func New[T ordering.Sorted](repo Repository[T], subset ordering.Subset[T], keys Monitors[T], opts ...Option[T]) *Service[T] {
	s := &Service[T]{
		repo:   repo,
		subset: subset,
		keys:   keys,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.order = ordering.New[T](repo, append([]ordering.Option{ordering.WithLogger(s.logger)}, s.orderOpts...)...)
	return s
}

// Ordering returns the Service's Maintainer.
func (s *Service[T]) Ordering() *ordering.Maintainer[T] {
	return s.order
}

// Create appends item to the tail of its subset and inserts it.
func (s *Service[T]) Create(ctx context.Context, item T) error {
	return txscope.Run(ctx, s.repo, func(ctx context.Context) error {
		if err := s.order.AssignOnCreate(ctx, item, s.subset.Of(item)); err != nil {
			return err
		}
		return s.wrap("create", "insert", s.repo.Insert(ctx, item))
	})
}

// Archive applies mark to item (setting its archived state) and takes it
// out of its subset's ordering. The row is saved with Index -1.
func (s *Service[T]) Archive(ctx context.Context, item T, mark func(T)) error {
	return txscope.Run(ctx, s.repo, func(ctx context.Context) error {
		if mark != nil {
			mark(item)
		}
		if item.GetIndex() < 0 {
			return s.save(ctx, "archive", item)
		}
		return s.order.Remove(ctx, item, s.subset.Of(item))
	})
}

// Restore applies unmark to item and appends it to the tail of its subset.
func (s *Service[T]) Restore(ctx context.Context, item T, unmark func(T)) error {
	return txscope.Run(ctx, s.repo, func(ctx context.Context) error {
		if unmark != nil {
			unmark(item)
		}
		if item.GetIndex() >= 0 {
			return s.save(ctx, "restore", item)
		}
		return s.order.Restore(ctx, item, s.subset.Of(item))
	})
}

// Delete deletes item and closes the gap it leaves.
func (s *Service[T]) Delete(ctx context.Context, item T) error {
	return txscope.Run(ctx, s.repo, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, item); err != nil {
			return s.wrap("delete", "delete", err)
		}
		return s.order.RemoveForDelete(ctx, item, s.subset.Of(item))
	})
}

// Move moves item within its subset so it lands before the row now at
// target. See ordering.Maintainer.Move.
func (s *Service[T]) Move(ctx context.Context, item T, target int, opts ...ordering.MoveOption) error {
	return s.order.Move(ctx, item, target, s.subset.Of(item), opts...)
}

// Update applies mutate to item and saves it. When mutate changed a
// subset-key column of an ordered row, the row is transferred to the tail
// of its new subset instead.
func (s *Service[T]) Update(ctx context.Context, item T, mutate func(T) error) (Change, error) {
	var change Change
	err := txscope.Run(ctx, s.repo, func(ctx context.Context) error {
		var err error
		change, _, err = s.update(ctx, item, mutate)
		return err
	})
	if err != nil {
		return Change{}, err
	}
	return change, nil
}

// UpdateMany applies mutate to every item in one transaction. willSave
// false requests a deferred save, which index maintenance cannot honour.
//
// Items are processed from the highest Index down, so closing the gap
// left by one transferred item never shifts an item still to come. Items
// already handled that sit above such a gap have their in-memory Index
// lowered to match the store. The returned changes follow the order of
// items.
func (s *Service[T]) UpdateMany(ctx context.Context, items []T, mutate func(T) error, willSave bool) ([]Change, error) {
	if err := ordering.RequireSave(true, willSave); err != nil {
		return nil, err
	}

	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return items[b].GetIndex() - items[a].GetIndex()
	})

	changes := make([]Change, len(items))
	err := txscope.Run(ctx, s.repo, func(ctx context.Context) error {
		for n, i := range order {
			change, closed, err := s.update(ctx, items[i], mutate)
			if err != nil {
				return err
			}
			changes[i] = change
			if closed != nil {
				if err := s.closeGap(items, order[:n], *closed); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// gap is an Index freed in a subset by a transfer.
type gap struct {
	subset queryir.Predicate
	index  int
}

// closeGap lowers the in-memory Index of the done items that the store
// shifted down when g was closed.
func (s *Service[T]) closeGap(items []T, done []int, g gap) error {
	key, err := subsetKey(g.subset)
	if err != nil {
		return err
	}
	for _, i := range done {
		item := items[i]
		if item.GetIndex() <= g.index {
			continue
		}
		k, err := subsetKey(s.subset.Of(item))
		if err != nil {
			return err
		}
		if k == key {
			item.SetIndex(item.GetIndex() - 1)
		}
	}
	return nil
}

func subsetKey(p queryir.Predicate) (string, error) {
	return ir.SubsetHash("", queryir.Describe(p))
}

// update applies mutate and saves or transfers item. After a transfer it
// also returns the gap left in the old subset.
func (s *Service[T]) update(ctx context.Context, item T, mutate func(T) error) (Change, *gap, error) {
	keys := s.monitorSet(s.keys)
	watched := s.monitorSet(s.watched)

	keys.UpdateOld(item)
	watched.UpdateOld(item)
	if err := mutate(item); err != nil {
		return Change{}, nil, err
	}
	if err := keys.UpdateNew(item); err != nil {
		return Change{}, nil, err
	}
	if err := watched.UpdateNew(item); err != nil {
		return Change{}, nil, err
	}

	change := Change{Keys: keys.ChangedNames(), Watched: watched.ChangedNames()}
	old := item.GetIndex()
	if !keys.AnyChanged() || old < 0 {
		return change, nil, s.save(ctx, "update", item)
	}

	from, err := keys.OldPredicate()
	if err != nil {
		return Change{}, nil, err
	}
	s.logger.Debug("subset key changed", "keys", change.Keys, "from", queryir.Describe(from))
	if err := s.order.CrossSubsetTransfer(ctx, item, from, s.subset.Of(item)); err != nil {
		return Change{}, nil, err
	}
	change.Transferred = true
	return change, &gap{subset: from, index: old}, nil
}

func (s *Service[T]) monitorSet(build Monitors[T]) monitor.Set[T] {
	if build == nil {
		return nil
	}
	return build()
}

func (s *Service[T]) save(ctx context.Context, op string, item T) error {
	return s.wrap(op, "save", s.repo.Save(ctx, item))
}

func (s *Service[T]) wrap(op, phase string, err error) error {
	if err == nil {
		return nil
	}
	c, ok := s.repo.(ordering.ConflictClassifier)
	return dberr.Wrap(op, phase, err, ok && c.IsConflict(err))
}
