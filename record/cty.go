package record

import (
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// Cty adapts a cty.Value. Object attributes and map elements are readable;
// values of any other type behave like a Scalar. Reads return cty.Value so
// nested refiners keep working on cty data.
type Cty struct {
	v cty.Value
}

// FromCty adapts v.
func FromCty(v cty.Value) Cty {
	return Cty{v: v}
}

// Value returns the wrapped cty.Value.
func (c Cty) Value() cty.Value { return c.v }

func (c Cty) Raw() any { return c.v }

func (c Cty) Get(key string) (any, bool) {
	if !c.readable() {
		return nil, false
	}
	ty := c.v.Type()
	switch {
	case ty.IsObjectType():
		if !ty.HasAttribute(key) {
			return nil, false
		}
		return c.v.GetAttr(key), true
	case ty.IsMapType():
		k := cty.StringVal(key)
		if c.v.HasIndex(k).False() {
			return nil, false
		}
		return c.v.Index(k), true
	}
	return nil, false
}

func (c Cty) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Keys returns attribute or element keys in cty's lexical order.
func (c Cty) Keys() []string {
	if !c.readable() {
		return nil
	}
	ty := c.v.Type()
	var keys []string
	switch {
	case ty.IsObjectType():
		for name := range ty.AttributeTypes() {
			keys = append(keys, name)
		}
		sort.Strings(keys)
	case ty.IsMapType():
		it := c.v.ElementIterator()
		for it.Next() {
			k, _ := it.Element()
			keys = append(keys, k.AsString())
		}
	}
	return keys
}

func (c Cty) readable() bool {
	return !c.v.IsNull() && c.v.IsKnown()
}
