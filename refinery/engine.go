package refinery

import (
	"cmp"
	"context"
	"fmt"
	"reflect"
	"slices"
	"strconv"

	"github.com/vk/refinery/internal/ctxlog"
	"github.com/vk/refinery/record"
	"github.com/zclconf/go-cty/cty"
	"golang.org/x/sync/errgroup"
)

// RefineOption tunes a single Refine call. Options apply to the value
// passed to that call only; nested attachment refining always uses the
// defaults.
type RefineOption func(*refineOptions)

type refineOptions struct {
	retainKeys bool
	workers    int
}

// RetainKeys makes a collection refine return a *Map keyed by the original
// keys instead of a re-indexed []any. Slice indexes become decimal strings.
func RetainKeys() RefineOption {
	return func(o *refineOptions) { o.retainKeys = true }
}

// Concurrency refines collection elements with up to n goroutines. Output
// order still follows input order. Templates and attachment functions must
// be safe for concurrent use when n > 1.
func Concurrency(n int) RefineOption {
	return func(o *refineOptions) { o.workers = n }
}

// Refine refines raw. A collection (a sequence, or an associative value
// whose every element is composite) yields one result per element; any
// other value is refined as a single item.
func (r *Refiner) Refine(ctx context.Context, raw any, opts ...RefineOption) (any, error) {
	if r.def.template == nil {
		return nil, fmt.Errorf("refiner '%s': %w", r.def.name, ErrTemplateNotConfigured)
	}
	if err := r.checkDepth(); err != nil {
		return nil, err
	}

	var o refineOptions
	for _, opt := range opts {
		opt(&o)
	}

	if entries, ok := collection(raw); ok {
		return r.refineCollection(ctx, entries, o)
	}
	return r.RefineItem(ctx, raw)
}

// RefineItem refines raw as a single item, skipping collection detection.
func (r *Refiner) RefineItem(ctx context.Context, raw any) (any, error) {
	if r.def.template == nil {
		return nil, fmt.Errorf("refiner '%s': %w", r.def.name, ErrTemplateNotConfigured)
	}

	item := record.From(raw)
	refined, err := r.def.template(r, item)
	if err != nil {
		return nil, fmt.Errorf("template '%s': %w", r.def.name, err)
	}

	if len(r.attachments) == 0 {
		return refined, nil
	}

	additions, err := r.resolveAttachments(ctx, item)
	if err != nil {
		return nil, err
	}
	merged, err := Merge(refined, additions)
	if err != nil {
		return nil, fmt.Errorf("refiner '%s': %w", r.def.name, err)
	}
	return merged, nil
}

// RefineCollection refines raw as a collection. It fails if raw has no
// sequence or associative shape.
func (r *Refiner) RefineCollection(ctx context.Context, raw any, opts ...RefineOption) (any, error) {
	if r.def.template == nil {
		return nil, fmt.Errorf("refiner '%s': %w", r.def.name, ErrTemplateNotConfigured)
	}
	entries, ok := elements(raw)
	if !ok {
		return nil, fmt.Errorf("refiner '%s': %T is not a collection", r.def.name, raw)
	}
	var o refineOptions
	for _, opt := range opts {
		opt(&o)
	}
	return r.refineCollection(ctx, entries, o)
}

func (r *Refiner) refineCollection(ctx context.Context, entries []entry, o refineOptions) (any, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Refining collection.", "refiner", r.def.name, "count", len(entries), "depth", r.depth, "retain_keys", o.retainKeys)

	results := make([]any, len(entries))
	if o.workers > 1 && len(entries) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.workers)
		for i, e := range entries {
			g.Go(func() error {
				v, err := r.RefineItem(gctx, e.value)
				if err != nil {
					return fmt.Errorf("element '%s': %w", e.key, err)
				}
				results[i] = v
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, e := range entries {
			v, err := r.RefineItem(ctx, e.value)
			if err != nil {
				return nil, fmt.Errorf("element '%s': %w", e.key, err)
			}
			results[i] = v
		}
	}

	if !o.retainKeys {
		return results, nil
	}
	out := NewMap()
	for i, e := range entries {
		out.Set(e.key, results[i])
	}
	return out, nil
}

func (r *Refiner) checkDepth() error {
	if limit := r.def.depthLimit(); r.depth > limit {
		return fmt.Errorf("refiner '%s' at depth %d: %w (limit %d)", r.def.name, r.depth, ErrDepthExceeded, limit)
	}
	return nil
}

type entry struct {
	key   string
	value any
}

// collection classifies raw. Sequences are always collections. Associative
// values are collections only when every element is composite; an empty
// one counts as an empty collection. Items already adapted by the caller
// are single items.
func collection(raw any) ([]entry, bool) {
	if _, ok := raw.(record.Item); ok {
		return nil, false
	}
	entries, ok := elements(raw)
	if !ok {
		return nil, false
	}
	if !isAssociative(raw) {
		return entries, true
	}
	for _, e := range entries {
		if !record.IsComposite(e.value) {
			return nil, false
		}
	}
	return entries, true
}

func isAssociative(raw any) bool {
	switch t := raw.(type) {
	case cty.Value:
		return t.Type().IsObjectType() || t.Type().IsMapType()
	case record.Getter:
		return true
	}
	return reflect.ValueOf(raw).Kind() == reflect.Map
}

// elements lists the entries of a sequence or associative value in
// iteration order: index order for sequences, insertion order for a *Map
// and sorted key order for Go maps and cty values.
func elements(raw any) ([]entry, bool) {
	if record.IsNil(raw) {
		return nil, false
	}

	switch t := raw.(type) {
	case cty.Value:
		ty := t.Type()
		if !(ty.IsListType() || ty.IsTupleType() || ty.IsSetType() || ty.IsObjectType() || ty.IsMapType()) {
			return nil, false
		}
		if !t.IsWhollyKnown() {
			return nil, false
		}
		seq := ty.IsListType() || ty.IsTupleType() || ty.IsSetType()
		var entries []entry
		it := t.ElementIterator()
		for i := 0; it.Next(); i++ {
			k, v := it.Element()
			key := strconv.Itoa(i)
			if !seq {
				key = k.AsString()
			}
			entries = append(entries, entry{key: key, value: v})
		}
		return entries, true
	case record.Getter:
		keys := t.Keys()
		entries := make([]entry, len(keys))
		for i, k := range keys {
			v, _ := t.Get(k)
			entries[i] = entry{key: k, value: v}
		}
		return entries, true
	case []byte, string:
		return nil, false
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		entries := make([]entry, rv.Len())
		for i := range entries {
			entries[i] = entry{key: strconv.Itoa(i), value: rv.Index(i).Interface()}
		}
		return entries, true
	case reflect.Map:
		keys := rv.MapKeys()
		slices.SortFunc(keys, compareKeys)
		entries := make([]entry, len(keys))
		for i, k := range keys {
			entries[i] = entry{key: fmt.Sprint(k.Interface()), value: rv.MapIndex(k).Interface()}
		}
		return entries, true
	}
	return nil, false
}

// compareKeys orders Go map keys: numbers by value, anything else by its
// printed form.
func compareKeys(a, b reflect.Value) int {
	if a.Kind() == reflect.Interface {
		a = a.Elem()
	}
	if b.Kind() == reflect.Interface {
		b = b.Elem()
	}
	switch {
	case a.CanInt() && b.CanInt():
		return cmp.Compare(a.Int(), b.Int())
	case a.CanUint() && b.CanUint():
		return cmp.Compare(a.Uint(), b.Uint())
	case a.CanFloat() && b.CanFloat():
		return cmp.Compare(a.Float(), b.Float())
	}
	return cmp.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
}
