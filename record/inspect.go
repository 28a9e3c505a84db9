package record

import (
	"reflect"

	"github.com/zclconf/go-cty/cty"
)

// IsNil reports whether v is absent: a nil interface, a nil pointer, map,
// slice, func or chan, a null or unknown cty.Value, or a Scalar wrapping
// one of those.
func IsNil(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case cty.Value:
		return t.IsNull() || !t.IsKnown()
	case Cty:
		return IsNil(t.v)
	case Scalar:
		return IsNil(t.v)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// IsComposite reports whether v is array-like or object-like: something a
// template can read keys from, or a sequence of such things. Strings and
// byte slices are scalars.
func IsComposite(v any) bool {
	if IsNil(v) {
		return false
	}
	switch t := v.(type) {
	case Scalar:
		return false
	case Item, Getter:
		return true
	case cty.Value:
		ty := t.Type()
		return ty.IsObjectType() || ty.IsMapType() || ty.IsListType() || ty.IsTupleType() || ty.IsSetType()
	case []byte:
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Struct, reflect.Slice, reflect.Array:
		return true
	case reflect.Pointer:
		return rv.Elem().Kind() == reflect.Struct
	}
	return false
}
