// Package decumulate turns year-to-date income statement series into
// single-quarter series.
package decumulate

import (
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/finmetrics/internal/model"
)

// Thresholds for the cumulative heuristic.
const (
	MonotonicThreshold = 0.75
	SumTolerance       = 0.15
)

// Bias settles the decision when the series is monotonic but its last value
// is not close to the sum of the year's values.
type Bias int

const (
	// AssumeCumulative treats such series as year-to-date totals.
	AssumeCumulative Bias = iota
	// AssumeDiscrete leaves such series untouched.
	AssumeDiscrete
)

func (b Bias) String() string {
	if b == AssumeDiscrete {
		return "discrete"
	}
	return "cumulative"
}

// ParseBias accepts "cumulative" or "discrete". Empty means cumulative.
func ParseBias(s string) (Bias, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cumulative":
		return AssumeCumulative, nil
	case "discrete":
		return AssumeDiscrete, nil
	}
	return AssumeCumulative, eris.Errorf("decumulate: unknown bias %q", s)
}

// Decision is the outcome of Classify.
type Decision int

const (
	NotCumulative Decision = iota
	Cumulative
)

func (d Decision) String() string {
	if d == Cumulative {
		return "cumulative"
	}
	return "not_cumulative"
}

// Classification is a Decision together with the signals that produced it.
type Classification struct {
	Decision          Decision
	MonotonicFraction float64
	NonDecreasing     bool
	Monotonic         bool
	SumRelDiff        float64
	SumClose          bool
	Bias              Bias
}

// Classify decides whether values, ordered by quarter within one fiscal
// year, look like year-to-date totals.
func Classify(values []float64, bias Bias) Classification {
	c := Classification{Bias: bias, MonotonicFraction: 1, NonDecreasing: true, SumRelDiff: math.Inf(1)}
	if len(values) == 0 {
		return c
	}

	if len(values) > 1 {
		nonNeg := 0
		for i := 1; i < len(values); i++ {
			if values[i]-values[i-1] >= 0 {
				nonNeg++
			} else {
				c.NonDecreasing = false
			}
		}
		c.MonotonicFraction = float64(nonNeg) / float64(len(values)-1)
	}
	c.Monotonic = c.MonotonicFraction > MonotonicThreshold || c.NonDecreasing

	var sum float64
	for _, v := range values {
		sum += v
	}
	if sum != 0 {
		c.SumRelDiff = math.Abs(values[len(values)-1]-sum) / math.Abs(sum)
		c.SumClose = c.SumRelDiff < SumTolerance
	}

	if c.Monotonic && (c.SumClose || bias == AssumeCumulative) {
		c.Decision = Cumulative
	}
	return c
}

// Difference converts year-to-date totals into single-period amounts. The
// first value is kept as is.
func Difference(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if i == 0 {
			out[i] = v
			continue
		}
		out[i] = v - values[i-1]
	}
	return out
}

// Observation is one value of a company's series.
type Observation struct {
	Period model.Period
	Value  model.Value
}

// Series de-cumulates one company's series year by year and returns values
// in the order of obs. Missing values and observations without a known
// period pass through unchanged and are ignored by the classifier.
func Series(obs []Observation, bias Bias) ([]model.Value, map[int]Classification) {
	out := make([]model.Value, len(obs))
	byYear := make(map[int][]int)
	for i, o := range obs {
		out[i] = o.Value
		if !o.Value.Valid || !o.Period.Known() {
			continue
		}
		byYear[o.Period.Year] = append(byYear[o.Period.Year], i)
	}

	decisions := make(map[int]Classification, len(byYear))
	for year, idx := range byYear {
		sort.SliceStable(idx, func(a, b int) bool {
			return obs[idx[a]].Period.Quarter < obs[idx[b]].Period.Quarter
		})
		values := make([]float64, len(idx))
		for j, i := range idx {
			values[j] = obs[i].Value.Float
		}

		c := Classify(values, bias)
		decisions[year] = c
		if c.Decision != Cumulative {
			continue
		}
		for j, v := range Difference(values) {
			out[idx[j]] = model.Some(v)
		}
	}
	return out, decisions
}

// Options carries the default bias and per-field overrides.
type Options struct {
	Default   Bias
	FieldBias map[string]Bias
}

// For returns the bias for a field.
func (o Options) For(field string) Bias {
	if b, ok := o.FieldBias[field]; ok {
		return b
	}
	return o.Default
}
