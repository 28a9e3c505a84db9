package record

import (
	"fmt"
	"reflect"
	"strings"
)

// TagName is the struct tag consulted before field names.
const TagName = "refinery"

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Struct adapts a struct value or a pointer to one.
type Struct struct {
	v reflect.Value
}

// FromStruct adapts v. It panics if v is not a struct or a non-nil pointer to one.
func FromStruct(v any) Struct {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Kind() == reflect.Struct {
		return Struct{v: rv}
	}
	if rv.Kind() == reflect.Struct {
		return Struct{v: rv}
	}
	panic(fmt.Sprintf("record: FromStruct called with %T", v))
}

func (s Struct) Raw() any { return s.v.Interface() }

func (s Struct) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Get reads a field or, failing that, calls a zero-argument method. Method
// errors are treated as a miss; use Query to observe them.
func (s Struct) Get(key string) (any, bool) {
	if f, ok := s.field(key); ok {
		return f.Interface(), true
	}
	v, ok, err := s.call(key)
	if err != nil {
		return nil, false
	}
	return v, ok
}

// Query prefers a method named key and falls back to the field.
func (s Struct) Query(name string) (any, bool, error) {
	v, ok, err := s.call(name)
	if err != nil || ok {
		return v, ok, err
	}
	if f, ok := s.field(name); ok {
		return f.Interface(), true, nil
	}
	return nil, false, nil
}

// Keys lists the exported field keys in declaration order.
func (s Struct) Keys() []string {
	elem := s.elem()
	var keys []string
	for _, sf := range reflect.VisibleFields(elem.Type()) {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		name := tagName(sf)
		if name == "-" {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		keys = append(keys, name)
	}
	return keys
}

func (s Struct) elem() reflect.Value {
	if s.v.Kind() == reflect.Pointer {
		return s.v.Elem()
	}
	return s.v
}

func (s Struct) field(key string) (reflect.Value, bool) {
	elem := s.elem()
	fields := reflect.VisibleFields(elem.Type())

	for _, sf := range fields {
		if sf.IsExported() && tagName(sf) == key {
			return elem.FieldByIndex(sf.Index), true
		}
	}
	for _, sf := range fields {
		if !sf.IsExported() || sf.Anonymous || tagName(sf) == "-" {
			continue
		}
		if strings.EqualFold(sf.Name, key) {
			return elem.FieldByIndex(sf.Index), true
		}
	}
	return reflect.Value{}, false
}

// call invokes the zero-argument method matching name. Methods must return
// one value, or a value and an error.
func (s Struct) call(name string) (any, bool, error) {
	recv := s.v
	t := recv.Type()
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !strings.EqualFold(m.Name, name) {
			continue
		}
		mt := m.Type
		// mt includes the receiver.
		if mt.NumIn() != 1 {
			continue
		}
		switch {
		case mt.NumOut() == 1:
			out := recv.Method(i).Call(nil)
			return out[0].Interface(), true, nil
		case mt.NumOut() == 2 && mt.Out(1).Implements(errorType):
			out := recv.Method(i).Call(nil)
			if errv := out[1]; !errv.IsNil() {
				return nil, true, fmt.Errorf("calling %s: %w", m.Name, errv.Interface().(error))
			}
			return out[0].Interface(), true, nil
		}
	}
	return nil, false, nil
}

func tagName(sf reflect.StructField) string {
	return strings.Split(sf.Tag.Get(TagName), ",")[0]
}
