package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/refinery/internal/ctxlog"
	"github.com/vk/refinery/record"
	"github.com/zclconf/go-cty/cty"
)

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder populates omitted optional expression fields with
// zero-width placeholders, so a nil check alone is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	logger := ctxlog.FromContext(ctx)

	if expr == nil {
		logger.Debug("Expression is nil, considering it undefined.", "attribute", attrName)
		return false
	}

	// A real attribute occupies bytes in the file; a placeholder has a
	// zero-width range.
	exprRange := expr.Range()
	isDefined := exprRange.End.Byte > exprRange.Start.Byte

	logger.Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", exprRange.String(),
		"is_defined", isDefined,
	)

	return isDefined
}

// itemValue exposes a raw item to expressions as cty.
func itemValue(item record.Item) (cty.Value, error) {
	v, err := record.ToCty(item.Raw())
	if err != nil {
		return cty.NilVal, fmt.Errorf("converting item for evaluation: %w", err)
	}
	return v, nil
}

// attrValue exposes shared attributes. It is always an object, never null.
func attrValue(attrs map[string]any) (cty.Value, error) {
	if len(attrs) == 0 {
		return cty.EmptyObjectVal, nil
	}
	v, err := record.ToCty(attrs)
	if err != nil {
		return cty.NilVal, fmt.Errorf("converting attributes for evaluation: %w", err)
	}
	return v, nil
}

// evalNative evaluates expr and converts the result to plain Go values.
func evalNative(expr hcl.Expression, evalCtx *hcl.EvalContext) (any, error) {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	return record.Native(val)
}
