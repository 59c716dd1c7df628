package queryir

import "github.com/roach88/ordset/internal/ir"

// Query represents a statement in the QueryIR.
//
// Query types:
//   - Select: rows of a table matching a filter, ordered by fields
//   - Max: the maximum value of a field over matching rows
//   - Shift: add a delta to an integer field of matching rows
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition in the QueryIR.
//
// Predicate types:
//   - Equals: field = literal (IS NULL for ir.IRNull)
//   - Compare: field <op> integer literal
//   - And: all predicates must be true (empty = always true)
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Op is a comparison operator for Compare.
type Op string

const (
	OpGreater      Op = ">"
	OpGreaterEqual Op = ">="
	OpLess         Op = "<"
	OpLessEqual    Op = "<="
	OpNotEqual     Op = "<>"
)

// Equals matches rows whose Field equals Value.
type Equals struct {
	Field string
	Value ir.IRValue
}

func (Equals) predicateNode() {}

// Compare matches rows whose integer Field compares to Value with Op.
type Compare struct {
	Field string
	Op    Op
	Value int64
}

func (Compare) predicateNode() {}

// And represents a conjunction of predicates.
// Nil entries are ignored, so optional subset filters can be passed through.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// All builds a conjunction, flattening nested Ands and dropping nils.
// Returns nil when nothing remains, meaning "no filter".
func All(preds ...Predicate) Predicate {
	var flat []Predicate
	for _, p := range preds {
		switch v := p.(type) {
		case nil:
			continue
		case And:
			if inner := All(v.Predicates...); inner != nil {
				flat = append(flat, flatten(inner)...)
			}
		case *And:
			if v == nil {
				continue
			}
			if inner := All(v.Predicates...); inner != nil {
				flat = append(flat, flatten(inner)...)
			}
		default:
			flat = append(flat, p)
		}
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	default:
		return And{Predicates: flat}
	}
}

func flatten(p Predicate) []Predicate {
	if and, ok := p.(And); ok {
		return and.Predicates
	}
	return []Predicate{p}
}

// Order is one ORDER BY term.
type Order struct {
	Field string
	Desc  bool
}

// Select reads rows of From matching Filter.
type Select struct {
	From    string
	Columns []string // empty = all columns
	Filter  Predicate
	OrderBy []Order
}

func (Select) queryNode() {}

// Max reads MAX(Field) over rows of From matching Filter.
type Max struct {
	From   string
	Field  string
	Filter Predicate
}

func (Max) queryNode() {}

// Shift adds Delta to Field on every row of Table matching Filter.
type Shift struct {
	Table  string
	Field  string
	Delta  int64
	Filter Predicate
}

func (Shift) queryNode() {}
