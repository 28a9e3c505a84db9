package refinery

import (
	"context"
	"fmt"

	"github.com/vk/refinery/internal/ctxlog"
	"github.com/vk/refinery/record"
)

// resolveAttachments computes every brought attachment for item, in
// registration order.
func (r *Refiner) resolveAttachments(ctx context.Context, item record.Item) (*Map, error) {
	out := NewMap()
	for _, b := range r.attachments {
		v, err := r.resolve(ctx, item, b)
		if err != nil {
			return nil, fmt.Errorf("attachment '%s' on '%s': %w", b.name, r.def.name, err)
		}
		out.Set(b.name, v)
	}
	return out, nil
}

func (r *Refiner) resolve(ctx context.Context, item record.Item, b binding) (any, error) {
	logger := ctxlog.FromContext(ctx).With("refiner", r.def.name, "attachment", b.name, "depth", r.depth)

	if b.attachment.IsRaw() {
		logger.Debug("Resolving raw attachment.")
		return b.attachment.raw(item)
	}

	nested, err := r.spawn(b)
	if err != nil {
		return nil, err
	}

	source, err := r.source(item, b, nested)
	if err != nil {
		return nil, err
	}
	if record.IsNil(source) {
		logger.Debug("Attachment source is absent, resolving to nil.")
		return nil, nil
	}

	logger.Debug("Refining attachment with nested refiner.", "target", nested.def.name)
	return nested.Refine(ctx, source)
}

// spawn builds the fresh nested refiner for one resolution.
func (r *Refiner) spawn(b binding) (*Refiner, error) {
	nested := b.attachment.target.New()
	nested.depth = r.depth + 1
	nested.With(r.attributes)
	if b.relation.Filter != nil {
		nested.SetFilter(b.relation.Filter)
	}
	if len(b.relation.Nested) > 0 {
		if err := nested.Bring(b.relation.Nested...); err != nil {
			return nil, err
		}
	}
	return nested, nil
}

// source extracts the data the nested refiner will see. Without a callback
// the attachment name is read from the item, or called as a query when the
// nested refiner filters and the item can answer queries. The nested
// filter, if any, always runs last.
func (r *Refiner) source(item record.Item, b binding, nested *Refiner) (any, error) {
	var (
		source any
		err    error
	)
	switch {
	case b.attachment.callback != nil:
		source, err = b.attachment.callback(item)
		if err != nil {
			return nil, fmt.Errorf("callback: %w", err)
		}
	case nested.HasFilter():
		if q, ok := item.(record.Querier); ok {
			source, _, err = q.Query(b.name)
			if err != nil {
				return nil, fmt.Errorf("query: %w", err)
			}
		} else {
			source, _ = item.Get(b.name)
		}
	default:
		source, _ = item.Get(b.name)
	}

	if nested.HasFilter() {
		source, err = nested.filter(source)
		if err != nil {
			return nil, fmt.Errorf("filter: %w", err)
		}
	}
	return source, nil
}
