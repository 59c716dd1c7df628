package queryir

import (
	"errors"
	"fmt"
	"regexp"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether name is safe to interpolate as a SQL identifier.
func IsIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// Validate checks a query or predicate for problems a backend cannot
// compile safely. All problems are reported together.
//
// Validate is a pure function with no side effects.
func Validate(node any) error {
	v := &validator{}
	switch n := node.(type) {
	case Query:
		v.validateQuery(n)
	case Predicate:
		v.validatePredicate(n)
	case nil:
	default:
		v.addProblem("unsupported node type %T", node)
	}
	return errors.Join(v.problems...)
}

type validator struct {
	problems []error
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Errorf(format, args...))
}

func (v *validator) identifier(kind, name string) {
	if !IsIdentifier(name) {
		v.addProblem("invalid %s name %q", kind, name)
	}
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case Select:
		v.identifier("table", query.From)
		for _, c := range query.Columns {
			v.identifier("column", c)
		}
		for _, o := range query.OrderBy {
			v.identifier("order", o.Field)
		}
		v.validatePredicate(query.Filter)
	case *Select:
		v.validateQuery(*query)
	case Max:
		v.identifier("table", query.From)
		v.identifier("field", query.Field)
		v.validatePredicate(query.Filter)
	case *Max:
		v.validateQuery(*query)
	case Shift:
		v.identifier("table", query.Table)
		v.identifier("field", query.Field)
		if query.Delta == 0 {
			v.addProblem("shift of %s by zero", query.Field)
		}
		v.validatePredicate(query.Filter)
	case *Shift:
		v.validateQuery(*query)
	default:
		v.addProblem("unsupported query type %T", q)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.identifier("field", pred.Field)
	case *Equals:
		v.validatePredicate(*pred)
	case Compare:
		v.identifier("field", pred.Field)
		switch pred.Op {
		case OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpNotEqual:
		default:
			v.addProblem("unknown operator %q on %s", pred.Op, pred.Field)
		}
	case *Compare:
		v.validatePredicate(*pred)
	case And:
		for _, inner := range pred.Predicates {
			v.validatePredicate(inner)
		}
	case *And:
		v.validatePredicate(*pred)
	default:
		v.addProblem("unsupported predicate type %T", p)
	}
}
