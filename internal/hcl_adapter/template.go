package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/refinery/internal/ctxlog"
	"github.com/vk/refinery/record"
	"github.com/vk/refinery/refinery"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// templateField is one `key = value` pair of an object template. key is
// empty when the key has to be computed per item.
type templateField struct {
	key     string
	keyExpr hcl.Expression
	value   hcl.Expression
}

// compileTemplate turns a template expression into a refinery.Template. An
// object constructor keeps its keys in manifest order; any other
// expression is evaluated whole. A nil template means none was written.
func compileTemplate(ctx context.Context, refiner string, expr hcl.Expression) (refinery.Template, error) {
	logger := ctxlog.FromContext(ctx).With("refiner", refiner)

	if !isExprDefined(ctx, expr, "template") {
		logger.Debug("Refiner has no template.")
		return nil, nil
	}

	obj, ok := expr.(*hclsyntax.ObjectConsExpr)
	if !ok {
		logger.Debug("Compiling whole-expression template.", "expr_type", fmt.Sprintf("%T", expr))
		return func(r *refinery.Refiner, item record.Item) (any, error) {
			evalCtx, err := templateContext(r, item)
			if err != nil {
				return nil, err
			}
			return evalNative(expr, evalCtx)
		}, nil
	}

	fields := make([]templateField, 0, len(obj.Items))
	static := make(map[string]struct{}, len(obj.Items))
	for _, it := range obj.Items {
		key := staticKey(it.KeyExpr)
		if key != "" {
			if _, dup := static[key]; dup {
				return nil, fmt.Errorf("%w: refiner '%s' template has key '%s' more than once", ErrInvalidManifest, refiner, key)
			}
			static[key] = struct{}{}
		}
		fields = append(fields, templateField{key: key, keyExpr: it.KeyExpr, value: it.ValueExpr})
	}
	logger.Debug("Compiled object template.", "fields", len(fields))

	return func(r *refinery.Refiner, item record.Item) (any, error) {
		evalCtx, err := templateContext(r, item)
		if err != nil {
			return nil, err
		}
		out := refinery.NewMap()
		for _, f := range fields {
			key := f.key
			if key == "" {
				key, err = dynamicKey(f.keyExpr, evalCtx)
				if err != nil {
					return nil, err
				}
			}
			v, err := evalNative(f.value, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("template key '%s': %w", key, err)
			}
			out.Set(key, v)
		}
		return out, nil
	}, nil
}

func templateContext(r *refinery.Refiner, item record.Item) (*hcl.EvalContext, error) {
	iv, err := itemValue(item)
	if err != nil {
		return nil, err
	}
	av, err := attrValue(r.Attributes())
	if err != nil {
		return nil, err
	}
	return evalContext(map[string]cty.Value{"item": iv, "attr": av}), nil
}

// staticKey returns the literal key of an object item: a bare identifier or
// a plain quoted string. Anything else returns "".
func staticKey(expr hclsyntax.Expression) string {
	keyExpr, ok := expr.(*hclsyntax.ObjectConsKeyExpr)
	if !ok || keyExpr.ForceNonLiteral {
		return ""
	}
	switch kexpr := keyExpr.Wrapped.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		if len(kexpr.Traversal) == 1 {
			return kexpr.Traversal.RootName()
		}
	case *hclsyntax.TemplateExpr:
		if len(kexpr.Parts) == 1 {
			if lit, isLit := kexpr.Parts[0].(*hclsyntax.LiteralValueExpr); isLit && lit.Val.Type().Equals(cty.String) {
				return lit.Val.AsString()
			}
		}
	}
	return ""
}

func dynamicKey(expr hcl.Expression, evalCtx *hcl.EvalContext) (string, error) {
	kv, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return "", fmt.Errorf("template key: %w", diags)
	}
	if kv.IsNull() || !kv.IsKnown() {
		return "", fmt.Errorf("template key at %s is null", expr.Range())
	}
	kv, err := convert.Convert(kv, cty.String)
	if err != nil {
		return "", fmt.Errorf("template key at %s: %w", expr.Range(), err)
	}
	return kv.AsString(), nil
}
