package snapshot

// OfList captures one snapshot per element of xs.
// A nil list and an empty list compare equal.
func OfList[E any](xs []E) Snapshot[[]E] {
	items := make([]Snapshot[E], len(xs))
	for i, x := range xs {
		items[i] = Of(x)
	}
	return listSnapshot[E]{items: items}
}

type listSnapshot[E any] struct {
	items []Snapshot[E]
}

// Value returns a fresh slice of the captured element values.
func (s listSnapshot[E]) Value() []E {
	out := make([]E, len(s.items))
	for i, item := range s.items {
		out[i] = item.Value()
	}
	return out
}

func (s listSnapshot[E]) Compare(other Snapshot[[]E]) bool {
	if other == nil {
		return false
	}
	o, ok := other.(listSnapshot[E])
	if !ok {
		o = OfList(other.Value()).(listSnapshot[E])
	}
	if len(s.items) != len(o.items) {
		return false
	}
	for i := range s.items {
		if !s.items[i].Compare(o.items[i]) {
			return false
		}
	}
	return true
}

// Len returns the number of captured elements.
func Len[E any](s Snapshot[[]E]) int {
	if l, ok := s.(listSnapshot[E]); ok {
		return len(l.items)
	}
	return len(s.Value())
}
