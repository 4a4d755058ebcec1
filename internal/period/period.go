// Package period builds the upstream period identifiers tried for a fiscal
// quarter and expands a query into the periods it covers.
package period

import (
	"fmt"

	"github.com/sells-group/finmetrics/internal/model"
)

var (
	quarterEnd  = [5]string{"", "0331", "0630", "0930", "1231"}
	quarterCode = [5]string{"", "10", "20", "30", "40"}
)

const annualEnd = "1231"

// Candidates returns the period identifiers to try for p, in order: the
// quarter-end date, the two-digit quarter code, then the annual end date.
// Quarters outside 1..4 are treated as annual.
func Candidates(p model.Period) []string {
	q := p.Quarter
	if q < 1 || q > 4 {
		q = 4
	}
	return []string{
		fmt.Sprintf("%04d%s", p.Year, quarterEnd[q]),
		fmt.Sprintf("%04d%s", p.Year, quarterCode[q]),
		fmt.Sprintf("%04d%s", p.Year, annualEnd),
	}
}

// Range expands a query into the periods it requests. Annual mode yields one
// quarter-4 period per year. Quarter mode starts the first year at the start
// quarter and stops the last year at the end quarter.
func Range(q model.Query) []model.Period {
	if q.EndYear < q.StartYear {
		return nil
	}
	var out []model.Period
	if q.Mode != model.ModeQuarter {
		for y := q.StartYear; y <= q.EndYear; y++ {
			out = append(out, model.Annual(y))
		}
		return out
	}

	startQ, endQ := clamp(q.StartQuarter, 1), clamp(q.EndQuarter, 4)
	for y := q.StartYear; y <= q.EndYear; y++ {
		lo, hi := 1, 4
		if y == q.StartYear {
			lo = startQ
		}
		if y == q.EndYear {
			hi = endQ
		}
		for qt := lo; qt <= hi; qt++ {
			out = append(out, model.Period{Year: y, Quarter: qt})
		}
	}
	return out
}

func clamp(q, fallback int) int {
	if q < 1 || q > 4 {
		return fallback
	}
	return q
}
