// Package monitor tracks selected properties of a model across an update.
//
// A monitor captures the property before the update (UpdateOld) and after
// it (UpdateNew), then reports whether the value changed. Monitors over
// subset-key columns also render the captured values as predicates, which
// is how an update learns the subset a row is leaving.
//
// Reading a value before it was captured is a programmer error.
package monitor

import (
	"github.com/roach88/ordset/internal/dberr"
	"github.com/roach88/ordset/internal/ir"
	"github.com/roach88/ordset/internal/queryir"
	"github.com/roach88/ordset/internal/snapshot"
)

// Monitor is the type-erased view of a monitor used by Set.
type Monitor[M any] interface {
	Name() string
	UpdateOld(m M)
	UpdateNew(m M) error
	Changed() bool
}

// Property monitors a single property P of model M.
type Property[M, P any] struct {
	column string
	get    func(M) P

	old snapshot.Snapshot[P]
	new snapshot.Snapshot[P]
}

// NewProperty creates a monitor over the property returned by get. column
// names the store column backing the property and is used by HasOldValue
// and HasNewValue.
func NewProperty[M, P any](column string, get func(M) P) *Property[M, P] {
	return &Property[M, P]{column: column, get: get}
}

// Name returns the monitored column.
func (p *Property[M, P]) Name() string { return p.column }

// UpdateOld captures the pre-update value. Calling it again starts a new
// cycle and discards any captured new value.
func (p *Property[M, P]) UpdateOld(m M) {
	p.old = snapshot.Of(p.get(m))
	p.new = nil
}

// UpdateNew captures the post-update value.
func (p *Property[M, P]) UpdateNew(m M) error {
	if p.old == nil {
		return dberr.Programmer("monitor", "%s: UpdateNew called before UpdateOld", p.column)
	}
	p.new = snapshot.Of(p.get(m))
	return nil
}

// Changed reports whether both values were captured and differ.
func (p *Property[M, P]) Changed() bool {
	if p.old == nil || p.new == nil {
		return false
	}
	return !p.old.Compare(p.new)
}

// OldValue returns the captured pre-update value.
func (p *Property[M, P]) OldValue() (P, error) {
	if p.old == nil {
		var zero P
		return zero, dberr.Programmer("monitor", "%s: old value read before capture", p.column)
	}
	return p.old.Value(), nil
}

// NewValue returns the captured post-update value.
func (p *Property[M, P]) NewValue() (P, error) {
	if p.new == nil {
		var zero P
		return zero, dberr.Programmer("monitor", "%s: new value read before capture", p.column)
	}
	return p.new.Value(), nil
}

// HasOldValue returns the predicate "column = old value" (IS NULL for a
// nil value). It selects the subset the row was in before the update.
func (p *Property[M, P]) HasOldValue() (queryir.Predicate, error) {
	v, err := p.OldValue()
	if err != nil {
		return nil, err
	}
	return p.equals(v)
}

// HasNewValue returns the predicate "column = new value".
func (p *Property[M, P]) HasNewValue() (queryir.Predicate, error) {
	v, err := p.NewValue()
	if err != nil {
		return nil, err
	}
	return p.equals(v)
}

func (p *Property[M, P]) equals(v P) (queryir.Predicate, error) {
	val, err := ir.ValueOf(v)
	if err != nil {
		return nil, dberr.Programmer("monitor", "%s: value is not a column value: %v", p.column, err)
	}
	return queryir.Equals{Field: p.column, Value: val}, nil
}
