// This file contains the logic for translating HCL schema structs into
// compiled refiner definitions and views of the config package.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/refinery/internal/config"
	"github.com/vk/refinery/internal/ctxlog"
	"github.com/vk/refinery/record"
	"github.com/vk/refinery/refinery"
	"github.com/zclconf/go-cty/cty"
)

// translateRefiner compiles a refiner block into a definition. Attachment
// targets are left as names; they are resolved through the registry when
// a relation is brought.
func (l *Loader) translateRefiner(ctx context.Context, b *RefinerBlock) (*refinery.Definition, error) {
	logger := ctxlog.FromContext(ctx).With("refiner", b.Name)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Translating HCL refiner to definition.")

	tmpl, err := compileTemplate(ctx, b.Name, b.Template)
	if err != nil {
		return nil, err
	}

	def := refinery.Define(b.Name, tmpl)
	if b.MaxDepth != nil {
		if *b.MaxDepth < 1 {
			return nil, fmt.Errorf("%w: refiner '%s' max_depth must be at least 1, got %d", ErrInvalidManifest, b.Name, *b.MaxDepth)
		}
		def.SetMaxDepth(*b.MaxDepth)
	}

	for _, att := range b.Attachments {
		if def.Handles(att.Name) {
			return nil, fmt.Errorf("%w: refiner '%s' declares attachment '%s' more than once", ErrInvalidManifest, b.Name, att.Name)
		}
		h, err := l.translateAttachment(ctx, b.Name, att)
		if err != nil {
			return nil, err
		}
		def.Handle(att.Name, h)
	}
	return def, nil
}

// translateAttachment builds the handler for one attachment block.
func (l *Loader) translateAttachment(ctx context.Context, refiner string, a *AttachmentBlock) (refinery.Handler, error) {
	logger := ctxlog.FromContext(ctx).With("attachment", a.Name)

	hasValue := isExprDefined(ctx, a.Value, "value")
	hasSource := isExprDefined(ctx, a.Source, "source")

	switch {
	case a.Refiner != nil && hasValue:
		return nil, fmt.Errorf("%w: attachment '%s' on '%s' sets both refiner and value", ErrInvalidManifest, a.Name, refiner)
	case a.Refiner == nil && !hasValue:
		return nil, fmt.Errorf("%w: attachment '%s' on '%s' needs a refiner or a value", ErrInvalidManifest, a.Name, refiner)
	case hasValue && hasSource:
		return nil, fmt.Errorf("%w: attachment '%s' on '%s' cannot combine source with value", ErrInvalidManifest, a.Name, refiner)
	}

	if hasValue {
		logger.Debug("Attachment computes a raw value.")
		expr := a.Value
		return func(r *refinery.Refiner) (refinery.Attachment, error) {
			return r.Attach(refinery.RawFunc(func(item record.Item) (any, error) {
				val, err := evalItemExpr(expr, item, r.Attributes())
				if err != nil {
					return nil, err
				}
				return record.Native(val)
			}))
		}, nil
	}

	target := *a.Refiner
	if !hasSource {
		logger.Debug("Attachment reads its source by name.", "target", target)
		return func(r *refinery.Refiner) (refinery.Attachment, error) {
			return r.Attach(target)
		}, nil
	}

	logger.Debug("Attachment reads its source from an expression.", "target", target)
	expr := a.Source
	return func(r *refinery.Refiner) (refinery.Attachment, error) {
		return r.Attach(target, func(item record.Item) (any, error) {
			val, err := evalItemExpr(expr, item, r.Attributes())
			if err != nil {
				return nil, err
			}
			return val, nil
		})
	}, nil
}

// evalItemExpr evaluates an attachment expression against one item. Source
// expressions hand the cty.Value straight to the nested refiner so it sees
// the shapes the expression produced.
func evalItemExpr(expr hcl.Expression, item record.Item, attrs map[string]any) (cty.Value, error) {
	iv, err := itemValue(item)
	if err != nil {
		return cty.NilVal, err
	}
	av, err := attrValue(attrs)
	if err != nil {
		return cty.NilVal, err
	}
	val, diags := expr.Value(evalContext(map[string]cty.Value{"item": iv, "attr": av}))
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	return val, nil
}

// translateView converts a view block into the agnostic model.
func (l *Loader) translateView(ctx context.Context, b *ViewBlock) (*config.View, error) {
	logger := ctxlog.FromContext(ctx).With("view", b.Name)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Translating HCL view.", "refiner", b.Refiner)

	v := &config.View{
		Name:        b.Name,
		Description: b.Description,
		Refiner:     b.Refiner,
	}

	if isExprDefined(ctx, b.Attributes, "attributes") {
		raw, err := evalNative(b.Attributes, evalContext(nil))
		if err != nil {
			return nil, fmt.Errorf("view '%s' attributes: %w", b.Name, err)
		}
		attrs, ok := raw.(map[string]any)
		if !ok && raw != nil {
			return nil, fmt.Errorf("%w: view '%s' attributes must be an object, got %T", ErrInvalidManifest, b.Name, raw)
		}
		v.Attributes = attrs
	}

	rels, err := l.translateBring(ctx, b.Bring)
	if err != nil {
		return nil, fmt.Errorf("view '%s': %w", b.Name, err)
	}
	v.Relations = rels
	return v, nil
}

// translateBring converts nested bring blocks into relations, compiling
// each filter expression into a refinery.Filter.
func (l *Loader) translateBring(ctx context.Context, blocks []*BringBlock) ([]refinery.Relation, error) {
	if len(blocks) == 0 {
		return nil, nil
	}
	rels := make([]refinery.Relation, 0, len(blocks))
	for _, b := range blocks {
		rel := refinery.Rel(b.Name)
		if isExprDefined(ctx, b.Filter, "filter") {
			rel.Filter = compileFilter(b.Filter)
		}
		nested, err := l.translateBring(ctx, b.Bring)
		if err != nil {
			return nil, fmt.Errorf("in bring '%s': %w", b.Name, err)
		}
		rel.Nested = nested
		rels = append(rels, rel)
	}
	return rels, nil
}

// compileFilter evaluates expr with the attachment source bound to `source`.
func compileFilter(expr hcl.Expression) refinery.Filter {
	return func(source any) (any, error) {
		sv, err := record.ToCty(source)
		if err != nil {
			return nil, fmt.Errorf("converting filter source: %w", err)
		}
		val, diags := expr.Value(evalContext(map[string]cty.Value{"source": sv}))
		if diags.HasErrors() {
			return nil, diags
		}
		return val, nil
	}
}
