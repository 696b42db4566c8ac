package arith

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestEval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
		want cty.Value
	}{
		{"addition", "1 + 2", cty.NumberIntVal(3)},
		{"precedence", "2 * (3 + 4)", cty.NumberIntVal(14)},
		{"division", "1 / 2", cty.NumberFloatVal(0.5)},
		{"negation", "-5 + 3", cty.NumberIntVal(-2)},
		{"modulo", "7 % 3", cty.NumberIntVal(1)},
		{"pow", "pow(2, 8)", cty.NumberIntVal(256)},
		{"min", "min(3, 5, 1)", cty.NumberIntVal(1)},
		{"max", "max(3, 5, 1)", cty.NumberIntVal(5)},
		{"floor of division", "floor(7 / 2)", cty.NumberIntVal(3)},
		{"ceil", "ceil(2.1)", cty.NumberIntVal(3)},
		{"abs", "abs(0 - 4)", cty.NumberIntVal(4)},
		{"signum", "signum(-9)", cty.NumberIntVal(-1)},
		{"nested calls", "max(pow(2, 3), min(100, 7))", cty.NumberIntVal(8)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Eval(tt.expr)
			require.NoError(t, err)
			assert.True(t, got.RawEquals(tt.want), "got %#v, want %#v", got, tt.want)
		})
	}
}

func TestEval_Errors(t *testing.T) {
	t.Parallel()

	t.Run("syntax error", func(t *testing.T) {
		t.Parallel()
		_, err := Eval("1 +")
		assert.ErrorContains(t, err, "invalid arithmetic expression")
	})

	t.Run("unknown function", func(t *testing.T) {
		t.Parallel()
		_, err := Eval("cbrt(27)")
		assert.ErrorContains(t, err, "failed to evaluate")
	})

	t.Run("unknown variable", func(t *testing.T) {
		t.Parallel()
		_, err := Eval("x + 1")
		assert.ErrorContains(t, err, "failed to evaluate")
	})

	t.Run("non-numeric result", func(t *testing.T) {
		t.Parallel()
		_, err := Eval(`"text"`)
		assert.ErrorContains(t, err, "did not produce a number")
	})
}
