package snapshot

import (
	"reflect"
	"time"

	"github.com/google/go-cmp/cmp"
)

// Snapshot is an immutable capture of a value of type T.
type Snapshot[T any] interface {
	// Value returns the captured value.
	Value() T

	// Compare reports whether other captured an equal value.
	Compare(other Snapshot[T]) bool
}

var timeType = reflect.TypeFor[time.Time]()

// equalOpts lets cmp look into unexported fields of plain value structs
// instead of panicking. Types with an Equal method (time.Time) still use it.
var equalOpts = []cmp.Option{
	cmp.Exporter(func(reflect.Type) bool { return true }),
}

// Of captures v as an entity snapshot when T is a struct or pointer to a
// struct, and as a value snapshot otherwise.
func Of[T any](v T) Snapshot[T] {
	if isEntityType(reflect.TypeFor[T]()) {
		return OfEntity(v)
	}
	return OfValue(v)
}

// OfValue captures v for plain equality comparison. Pointers to scalars and
// slices of scalars are copied, so writes through the source are not
// observed.
func OfValue[T any](v T) Snapshot[T] {
	copied, _ := capture(reflect.ValueOf(&v).Elem()).Interface().(T)
	return valueSnapshot[T]{v: copied}
}

type valueSnapshot[T any] struct {
	v T
}

func (s valueSnapshot[T]) Value() T { return s.v }

func (s valueSnapshot[T]) Compare(other Snapshot[T]) bool {
	if other == nil {
		return false
	}
	return cmp.Equal(s.v, other.Value(), equalOpts...)
}

func isEntityType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && t != timeType
}

// capture returns a copy of v that shares no scalar storage with it. Struct
// pointers other than *time.Time, maps, interfaces and funcs are references
// and are returned as they are.
func capture(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() || !isDataType(v.Type()) {
			return v
		}
		p := reflect.New(v.Type().Elem())
		p.Elem().Set(capture(v.Elem()))
		return p.Convert(v.Type())
	case reflect.Slice:
		if v.IsNil() || !isDataType(v.Type()) {
			return v
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(capture(v.Index(i)))
		}
		return clone
	default:
		return v
	}
}
