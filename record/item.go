package record

import (
	"reflect"

	"github.com/zclconf/go-cty/cty"
)

// Item is the capability set the refine engine needs from a raw record.
type Item interface {
	// Get returns the value stored under key and whether it was present.
	Get(key string) (any, bool)
	// Has reports whether key can be read from the item.
	Has(key string) bool
	// Raw returns the underlying value the item adapts.
	Raw() any
}

// Querier is implemented by object-like items that expose query-producing
// methods. Query calls the method named name; ok is false when no such
// method exists.
type Querier interface {
	Query(name string) (v any, ok bool, err error)
}

// Keyed is implemented by items whose keys can be listed in a stable order.
type Keyed interface {
	Keys() []string
}

// Getter is the read side of an ordered mapping such as a refined output.
// Values implementing it are adapted without reflection.
type Getter interface {
	Get(key string) (any, bool)
	Keys() []string
}

// From wraps v in the Item adapter matching its shape. It never fails:
// values with no keyed shape become a Scalar item.
func From(v any) Item {
	switch t := v.(type) {
	case Item:
		return t
	case cty.Value:
		return Cty{v: t}
	case map[string]any:
		return FromMap(t)
	case Getter:
		return getterItem{g: t}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String && !rv.IsNil() {
			return Map{v: rv}
		}
	case reflect.Struct:
		return Struct{v: rv}
	case reflect.Pointer:
		if !rv.IsNil() && rv.Elem().Kind() == reflect.Struct {
			return Struct{v: rv}
		}
	}
	return Scalar{v: v}
}

// Scalar adapts a value that has no keys. Every read misses.
type Scalar struct {
	v any
}

func (s Scalar) Get(string) (any, bool) { return nil, false }
func (s Scalar) Has(string) bool        { return false }
func (s Scalar) Raw() any               { return s.v }

type getterItem struct {
	g Getter
}

func (i getterItem) Get(key string) (any, bool) { return i.g.Get(key) }

func (i getterItem) Has(key string) bool {
	_, ok := i.g.Get(key)
	return ok
}

func (i getterItem) Raw() any        { return i.g }
func (i getterItem) Keys() []string { return i.g.Keys() }
