package refinery

import (
	"fmt"
	"maps"
	"reflect"
	"sort"

	"github.com/vk/refinery/record"
)

// Setter is implemented by object-like refined values that accept new keys
// in place.
type Setter interface {
	Set(key string, value any)
}

// Merge folds additions into base. Entries from additions win on key
// collisions.
//
// A *Map base produces a new *Map that keeps base's key order and appends
// new keys in the order additions lists them. A map[string]any base
// produces an updated copy. Any other Setter is updated in place and
// returned. Empty additions return base unchanged.
func Merge(base, additions any) (any, error) {
	pairs, err := entriesOf(additions)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return base, nil
	}

	switch b := base.(type) {
	case *Map:
		if b == nil {
			return nil, fmt.Errorf("%w: base is a nil *Map", ErrUnmergeable)
		}
		out := b.Clone()
		for _, p := range pairs {
			out.Set(p.key, p.value)
		}
		return out, nil
	case map[string]any:
		out := maps.Clone(b)
		if out == nil {
			out = make(map[string]any, len(pairs))
		}
		for _, p := range pairs {
			out[p.key] = p.value
		}
		return out, nil
	case Setter:
		if record.IsNil(b) {
			return nil, fmt.Errorf("%w: base is a nil %T", ErrUnmergeable, base)
		}
		for _, p := range pairs {
			b.Set(p.key, p.value)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: base of type %T is not a container", ErrUnmergeable, base)
}

// entriesOf lists the entries of a mapping-like value in its own order.
func entriesOf(v any) ([]entry, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *Map:
		var out []entry
		t.Range(func(k string, val any) bool {
			out = append(out, entry{key: k, value: val})
			return true
		})
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]entry, len(keys))
		for i, k := range keys {
			out[i] = entry{key: k, value: t[k]}
		}
		return out, nil
	}

	item := record.From(v)
	keyed, ok := item.(record.Keyed)
	if !ok || reflect.ValueOf(v).Kind() == reflect.Slice {
		return nil, fmt.Errorf("%w: additions of type %T have no keys", ErrUnmergeable, v)
	}
	var out []entry
	for _, k := range keyed.Keys() {
		val, _ := item.Get(k)
		out = append(out, entry{key: k, value: val})
	}
	return out, nil
}
