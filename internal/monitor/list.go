package monitor

import (
	"github.com/roach88/ordset/internal/dberr"
	"github.com/roach88/ordset/internal/snapshot"
)

// List monitors a list-valued property of model M, comparing element by
// element.
type List[M, E any] struct {
	name string
	get  func(M) []E

	old snapshot.Snapshot[[]E]
	new snapshot.Snapshot[[]E]
}

// NewList creates a monitor over the list returned by get.
func NewList[M, E any](name string, get func(M) []E) *List[M, E] {
	return &List[M, E]{name: name, get: get}
}

func (l *List[M, E]) Name() string { return l.name }

func (l *List[M, E]) UpdateOld(m M) {
	l.old = snapshot.OfList(l.get(m))
	l.new = nil
}

func (l *List[M, E]) UpdateNew(m M) error {
	if l.old == nil {
		return dberr.Programmer("monitor", "%s: UpdateNew called before UpdateOld", l.name)
	}
	l.new = snapshot.OfList(l.get(m))
	return nil
}

func (l *List[M, E]) Changed() bool {
	if l.old == nil || l.new == nil {
		return false
	}
	return !l.old.Compare(l.new)
}

func (l *List[M, E]) OldValue() ([]E, error) {
	if l.old == nil {
		return nil, dberr.Programmer("monitor", "%s: old value read before capture", l.name)
	}
	return l.old.Value(), nil
}

func (l *List[M, E]) NewValue() ([]E, error) {
	if l.new == nil {
		return nil, dberr.Programmer("monitor", "%s: new value read before capture", l.name)
	}
	return l.new.Value(), nil
}
