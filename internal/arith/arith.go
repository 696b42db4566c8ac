// Package arith evaluates `!arith` tagged scalars. The expression grammar
// is HCL's native expression syntax restricted to literals, arithmetic and
// a small numeric function table, so documents can compute derived
// hyperparameters such as `!arith "$(dataset.task.num_classes) * 4"` once
// markers have been substituted into the expression text.
package arith

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// functions is the table available inside !arith expressions.
var functions = map[string]function.Function{
	"abs":    stdlib.AbsoluteFunc,
	"ceil":   stdlib.CeilFunc,
	"floor":  stdlib.FloorFunc,
	"int":    stdlib.IntFunc,
	"log":    stdlib.LogFunc,
	"max":    stdlib.MaxFunc,
	"min":    stdlib.MinFunc,
	"pow":    stdlib.PowFunc,
	"signum": stdlib.SignumFunc,
}

// Eval parses and evaluates an arithmetic expression, returning its numeric
// value. Expressions have no variables in scope; all document references
// must already have been substituted into the text.
func Eval(expr string) (cty.Value, error) {
	parsed, diags := hclsyntax.ParseExpression([]byte(expr), "arith", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("invalid arithmetic expression %q: %s", expr, diags.Error())
	}

	val, diags := parsed.Value(&hcl.EvalContext{Functions: functions})
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("failed to evaluate %q: %s", expr, diags.Error())
	}
	if val.IsNull() || !val.Type().Equals(cty.Number) {
		return cty.NilVal, fmt.Errorf("arithmetic expression %q did not produce a number", expr)
	}
	return val, nil
}
