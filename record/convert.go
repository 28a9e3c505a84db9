package record

import (
	"fmt"
	"reflect"
	"time"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Native converts a cty.Value into plain Go values: string, int64 for
// whole numbers, float64 otherwise, bool, []any and map[string]any. Null
// and unknown values become nil.
func Native(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		var i int64
		if err := gocty.FromCtyValue(v, &i); err == nil {
			return i, nil
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert cty.Number to float64: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			nv, err := Native(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, nv)
		}
		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			key, elem := it.Element()
			nv, err := Native(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute '%s': %w", key.AsString(), err)
			}
			out[key.AsString()] = nv
		}
		return out, nil
	}

	return nil, fmt.Errorf("unsupported cty type for native conversion: %s", ty.FriendlyName())
}

// ToCty converts a native Go value into a cty.Value. Maps and structs
// become objects, slices become tuples, so heterogeneous data survives the
// trip. nil becomes a dynamic null.
func ToCty(v any) (cty.Value, error) {
	switch t := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case cty.Value:
		return t, nil
	case Cty:
		return t.v, nil
	case Scalar:
		return ToCty(t.v)
	case Getter:
		return keyedToCty(t.Keys(), t.Get)
	case Item:
		return ToCty(t.Raw())
	case time.Time:
		return cty.StringVal(t.Format(time.RFC3339Nano)), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return cty.NullVal(cty.DynamicPseudoType), nil
		}
		return ToCty(rv.Elem().Interface())

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return cty.NilVal, fmt.Errorf("cannot convert map with %s keys to cty", rv.Type().Key())
		}
		if rv.IsNil() {
			return cty.NullVal(cty.DynamicPseudoType), nil
		}
		m := Map{v: rv}
		return keyedToCty(m.Keys(), m.Get)

	case reflect.Struct:
		s := Struct{v: rv}
		return keyedToCty(s.Keys(), func(k string) (any, bool) {
			f, ok := s.field(k)
			if !ok {
				return nil, false
			}
			return f.Interface(), true
		})

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return cty.EmptyTupleVal, nil
		}
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return cty.StringVal(string(rv.Bytes())), nil
		}
		if rv.Len() == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, rv.Len())
		for i := range elems {
			ev, err := ToCty(rv.Index(i).Interface())
			if err != nil {
				return cty.NilVal, fmt.Errorf("in element %d: %w", i, err)
			}
			elems[i] = ev
		}
		return cty.TupleVal(elems), nil
	}

	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}

func keyedToCty(keys []string, get func(string) (any, bool)) (cty.Value, error) {
	if len(keys) == 0 {
		return cty.EmptyObjectVal, nil
	}
	attrs := make(map[string]cty.Value, len(keys))
	for _, k := range keys {
		raw, _ := get(k)
		av, err := ToCty(raw)
		if err != nil {
			return cty.NilVal, fmt.Errorf("in attribute '%s': %w", k, err)
		}
		attrs[k] = av
	}
	return cty.ObjectVal(attrs), nil
}
