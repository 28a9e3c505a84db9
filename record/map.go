package record

import (
	"reflect"
	"sort"
)

// Map adapts a Go map with string keys.
type Map struct {
	v reflect.Value
}

// FromMap adapts m without going through the type switch in From.
func FromMap[V any](m map[string]V) Map {
	return Map{v: reflect.ValueOf(m)}
}

func (m Map) Get(key string) (any, bool) {
	if !m.v.IsValid() || m.v.IsNil() {
		return nil, false
	}
	k := reflect.ValueOf(key).Convert(m.v.Type().Key())
	val := m.v.MapIndex(k)
	if !val.IsValid() {
		return nil, false
	}
	return val.Interface(), true
}

func (m Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

func (m Map) Raw() any {
	if !m.v.IsValid() {
		return nil
	}
	return m.v.Interface()
}

// Keys returns the map keys in sorted order.
func (m Map) Keys() []string {
	if !m.v.IsValid() || m.v.IsNil() {
		return nil
	}
	keys := make([]string, 0, m.v.Len())
	iter := m.v.MapRange()
	for iter.Next() {
		keys = append(keys, iter.Key().String())
	}
	sort.Strings(keys)
	return keys
}
