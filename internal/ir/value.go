package ir

import (
	"fmt"
	"reflect"
	"slices"
	"time"
	"unicode/utf16"
)

// IRValue is a sealed interface representing constrained value types.
// Only IRNull, IRString, IRInt, IRBool, IRArray, and IRObject implement this.
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRNull represents SQL NULL / JSON null.
type IRNull struct{}

func (IRNull) irValue() {}

// IRString represents a string value.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integer value. Always int64, never float64.
type IRInt int64

func (IRInt) irValue() {}

// IRBool represents a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRArray represents an array of IRValue elements.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject represents a map of string keys to IRValue elements.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 byte order, which differs for astral characters.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

func compareKeysRFC8785(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

var timeType = reflect.TypeOf(time.Time{})

// ValueOf converts a Go value into an IRValue.
//
// Nil and nil pointers become IRNull. Named types are converted by kind, so
// `type Category string` becomes IRString. fmt.Stringer values that are not
// otherwise convertible (uuid.UUID) become IRString. time.Time is encoded as
// RFC 3339 with nanoseconds in UTC. Floats, maps with non-string keys, funcs
// and channels are rejected.
func ValueOf(v any) (IRValue, error) {
	if v == nil {
		return IRNull{}, nil
	}
	if iv, ok := v.(IRValue); ok {
		return iv, nil
	}
	return valueOf(reflect.ValueOf(v))
}

// MustValueOf is like ValueOf but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustValueOf(v any) IRValue {
	iv, err := ValueOf(v)
	if err != nil {
		panic(err)
	}
	return iv
}

func valueOf(rv reflect.Value) (IRValue, error) {
	if !rv.IsValid() {
		return IRNull{}, nil
	}
	if rv.Type() == timeType {
		return IRString(rv.Interface().(time.Time).UTC().Format(time.RFC3339Nano)), nil
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return IRNull{}, nil
		}
		return valueOf(rv.Elem())
	case reflect.String:
		return IRString(rv.String()), nil
	case reflect.Bool:
		return IRBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return IRInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > 1<<63-1 {
			return nil, fmt.Errorf("unsigned value %d overflows int64", u)
		}
		return IRInt(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return nil, fmt.Errorf("floats are forbidden as key values: %v", rv.Interface())
	}

	if rv.CanInterface() {
		if s, ok := rv.Interface().(fmt.Stringer); ok {
			return IRString(s.String()), nil
		}
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return IRNull{}, nil
		}
		arr := make(IRArray, rv.Len())
		for i := range arr {
			elem, err := valueOf(rv.Index(i))
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = elem
		}
		return arr, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map keys must be strings, got %s", rv.Type().Key())
		}
		obj := make(IRObject, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			elem, err := valueOf(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", iter.Key().String(), err)
			}
			obj[iter.Key().String()] = elem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", rv.Type())
	}
}

// Native converts a scalar IRValue into the Go type database/sql expects
// as a statement parameter.
func Native(v IRValue) (any, error) {
	switch val := v.(type) {
	case nil, IRNull:
		return nil, nil
	case IRString:
		return string(val), nil
	case IRInt:
		return int64(val), nil
	case IRBool:
		return bool(val), nil
	default:
		return nil, fmt.Errorf("%T cannot be used as a scalar parameter", v)
	}
}

// IsNull reports whether v is IRNull (or a nil interface).
func IsNull(v IRValue) bool {
	switch v.(type) {
	case nil, IRNull:
		return true
	}
	return false
}

// Equal reports whether two IRValues are structurally equal.
// IRNull equals only IRNull, matching IS NULL rather than SQL's "= NULL".
func Equal(a, b IRValue) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	switch av := a.(type) {
	case IRString:
		bv, ok := b.(IRString)
		return ok && av == bv
	case IRInt:
		bv, ok := b.(IRInt)
		return ok && av == bv
	case IRBool:
		bv, ok := b.(IRBool)
		return ok && av == bv
	case IRArray:
		bv, ok := b.(IRArray)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case IRObject:
		bv, ok := b.(IRObject)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, ok := bv[k]
			if !ok || !Equal(v, other) {
				return false
			}
		}
		return true
	}
	return false
}
