package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"haiku":  {Input: 0.80, Output: 4.00},
			"sonnet": {Input: 3.00, Output: 15.00},
		},
	}
}

func TestClaude(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name   string
		model  string
		input  int64
		output int64
		want   float64
	}{
		{name: "haiku", model: "haiku", input: 1000000, output: 100000, want: 0.80 + 0.40},
		{name: "sonnet", model: "sonnet", input: 2000, output: 500, want: 0.006 + 0.0075},
		{name: "zero tokens", model: "sonnet", want: 0},
		{name: "unknown model", model: "gpt", input: 1000000, output: 1000000, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, calc.Claude(tt.model, tt.input, tt.output), 1e-9)
		})
	}
}

func TestClaude_NilCalculator(t *testing.T) {
	t.Parallel()
	var calc *Calculator
	assert.Zero(t, calc.Claude("sonnet", 1000, 1000))
}

func TestDefaultRates_CoverConfiguredModel(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(DefaultRates())
	assert.Positive(t, calc.Claude("claude-sonnet-4-5-20250929", 1000, 1000))
}
