package snapshot

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
	"github.com/puzpuzpuz/xsync/v3"
)

// fieldPlans caches, per struct type, the indices of fields that hold the
// entity's own data.
var fieldPlans = xsync.NewMapOf[reflect.Type, []int]()

// OfEntity captures a copy of a struct (or pointer to struct).
//
// Only exported data fields take part in Compare. A field is excluded when
// it is tagged `snapshot:"-"` or holds a reference: a pointer to a struct
// other than time.Time, a slice of structs or pointers, a map, an
// interface, a func or a chan. Data fields are copied deeply: pointers to
// scalars and slices of scalars get their own storage, so writes through
// the source are not observed.
//
// OfEntity panics if T is not a struct or pointer to struct.
func OfEntity[T any](v T) Snapshot[T] {
	rv := reflect.ValueOf(&v).Elem()
	t := rv.Type()

	if t.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return entitySnapshot[T]{v: v, isNil: true}
		}
		copied := reflect.New(t.Elem())
		copied.Elem().Set(rv.Elem())
		captureFields(copied.Elem(), planFor(t.Elem()))
		return entitySnapshot[T]{v: copied.Interface().(T), plan: planFor(t.Elem())}
	}
	if t.Kind() != reflect.Struct {
		panic("snapshot: OfEntity requires a struct or pointer to struct, got " + t.String())
	}

	var copied T
	cv := reflect.ValueOf(&copied).Elem()
	cv.Set(rv)
	captureFields(cv, planFor(t))
	return entitySnapshot[T]{v: copied, plan: planFor(t)}
}

type entitySnapshot[T any] struct {
	v     T
	plan  []int
	isNil bool
}

// Value returns the captured copy. Callers must not mutate it.
func (s entitySnapshot[T]) Value() T { return s.v }

func (s entitySnapshot[T]) Compare(other Snapshot[T]) bool {
	if other == nil {
		return false
	}
	a := structValue(s.v)
	b := structValue(other.Value())
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	plan := s.plan
	if plan == nil {
		plan = planFor(a.Type())
	}
	for _, i := range plan {
		if !cmp.Equal(a.Field(i).Interface(), b.Field(i).Interface(), equalOpts...) {
			return false
		}
	}
	return true
}

// structValue dereferences v down to its struct value; the zero Value
// stands for a nil pointer.
func structValue(v any) reflect.Value {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func planFor(t reflect.Type) []int {
	plan, _ := fieldPlans.LoadOrCompute(t, func() []int {
		var idx []int
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() || f.Tag.Get("snapshot") == "-" {
				continue
			}
			if isDataType(f.Type) {
				idx = append(idx, i)
			}
		}
		return idx
	})
	return plan
}

func isDataType(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Map, reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return false
	case reflect.Pointer:
		elem := t.Elem()
		if elem.Kind() == reflect.Struct {
			return elem == timeType
		}
		return isDataType(elem)
	case reflect.Slice:
		elem := t.Elem()
		switch elem.Kind() {
		case reflect.Struct:
			return elem == timeType
		case reflect.Pointer:
			return false
		}
		return isDataType(elem)
	default:
		return true
	}
}

func captureFields(v reflect.Value, plan []int) {
	for _, i := range plan {
		f := v.Field(i)
		f.Set(capture(f))
	}
}
