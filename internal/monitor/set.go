package monitor

import "github.com/roach88/ordset/internal/queryir"

// Keyed is implemented by monitors over subset-key columns.
type Keyed interface {
	HasOldValue() (queryir.Predicate, error)
	HasNewValue() (queryir.Predicate, error)
}

// Set is an ordered group of monitors over the same model.
type Set[M any] []Monitor[M]

// UpdateOld captures pre-update values on every monitor.
func (s Set[M]) UpdateOld(m M) {
	for _, mon := range s {
		mon.UpdateOld(m)
	}
}

// UpdateNew captures post-update values on every monitor, stopping at the
// first error.
func (s Set[M]) UpdateNew(m M) error {
	for _, mon := range s {
		if err := mon.UpdateNew(m); err != nil {
			return err
		}
	}
	return nil
}

// AnyChanged reports whether at least one monitor changed.
func (s Set[M]) AnyChanged() bool {
	for _, mon := range s {
		if mon.Changed() {
			return true
		}
	}
	return false
}

// ChangedNames lists the monitors that changed, in set order.
func (s Set[M]) ChangedNames() []string {
	var names []string
	for _, mon := range s {
		if mon.Changed() {
			names = append(names, mon.Name())
		}
	}
	return names
}

// OldPredicate conjoins HasOldValue of every Keyed monitor in the set.
// Other monitors are skipped.
func (s Set[M]) OldPredicate() (queryir.Predicate, error) {
	return s.predicate(Keyed.HasOldValue)
}

// NewPredicate conjoins HasNewValue of every Keyed monitor in the set.
func (s Set[M]) NewPredicate() (queryir.Predicate, error) {
	return s.predicate(Keyed.HasNewValue)
}

func (s Set[M]) predicate(get func(Keyed) (queryir.Predicate, error)) (queryir.Predicate, error) {
	var preds []queryir.Predicate
	for _, mon := range s {
		k, ok := mon.(Keyed)
		if !ok {
			continue
		}
		p, err := get(k)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return queryir.All(preds...), nil
}
