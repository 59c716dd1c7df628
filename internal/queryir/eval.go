package queryir

import (
	"fmt"

	"github.com/roach88/ordset/internal/ir"
)

// Eval evaluates a predicate against a row described as an IRObject.
//
// A nil predicate matches every row. A field missing from the row is treated
// as NULL. Compare against a non-integer field is an error rather than a
// silent mismatch.
func Eval(p Predicate, row ir.IRObject) (bool, error) {
	switch pred := p.(type) {
	case nil:
		return true, nil
	case Equals:
		return ir.Equal(row[pred.Field], pred.Value), nil
	case *Equals:
		return ir.Equal(row[pred.Field], pred.Value), nil
	case Compare:
		return evalCompare(pred, row)
	case *Compare:
		return evalCompare(*pred, row)
	case And:
		return evalAnd(pred, row)
	case *And:
		return evalAnd(*pred, row)
	default:
		return false, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func evalCompare(c Compare, row ir.IRObject) (bool, error) {
	v, ok := row[c.Field].(ir.IRInt)
	if !ok {
		if ir.IsNull(row[c.Field]) {
			return false, nil
		}
		return false, fmt.Errorf("compare %s: field is %T, not an integer", c.Field, row[c.Field])
	}
	n := int64(v)
	switch c.Op {
	case OpGreater:
		return n > c.Value, nil
	case OpGreaterEqual:
		return n >= c.Value, nil
	case OpLess:
		return n < c.Value, nil
	case OpLessEqual:
		return n <= c.Value, nil
	case OpNotEqual:
		return n != c.Value, nil
	default:
		return false, fmt.Errorf("compare %s: unknown operator %q", c.Field, c.Op)
	}
}

func evalAnd(and And, row ir.IRObject) (bool, error) {
	for _, p := range and.Predicates {
		ok, err := Eval(p, row)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Describe renders a predicate as an IRValue, suitable for canonical hashing
// and for log output. Conjunctions are order-insensitive: And terms are keyed
// by field so {a, b} and {b, a} describe the same subset.
func Describe(p Predicate) ir.IRValue {
	switch pred := p.(type) {
	case nil:
		return ir.IRObject{}
	case Equals:
		return ir.IRObject{pred.Field: valueOrNull(pred.Value)}
	case *Equals:
		return Describe(*pred)
	case Compare:
		return ir.IRObject{pred.Field: ir.IRObject{string(pred.Op): ir.IRInt(pred.Value)}}
	case *Compare:
		return Describe(*pred)
	case And:
		out := ir.IRObject{}
		for _, inner := range pred.Predicates {
			d, ok := Describe(inner).(ir.IRObject)
			if !ok {
				continue
			}
			for k, v := range d {
				if prev, exists := out[k]; exists && !ir.Equal(prev, v) {
					out[k] = ir.IRArray{prev, v}
					continue
				}
				out[k] = v
			}
		}
		return out
	case *And:
		return Describe(*pred)
	default:
		return ir.IRString(fmt.Sprintf("%T", p))
	}
}

func valueOrNull(v ir.IRValue) ir.IRValue {
	if v == nil {
		return ir.IRNull{}
	}
	return v
}
