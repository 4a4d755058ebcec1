// Package dataset assembles per-company metric rows into the output table.
package dataset

import (
	"math"
	"sort"

	"github.com/sells-group/finmetrics/internal/model"
)

// Precision is the number of decimals kept on numeric columns.
const Precision = 4

// Assemble concatenates the groups in order, stable-sorts by company, year
// and quarter with unknown periods last, rounds numeric columns and returns
// a table with the fixed display columns. Zero rows still yield the columns.
func Assemble(groups ...[]model.MetricRow) model.Table {
	rows := make([]model.MetricRow, 0)
	for _, g := range groups {
		rows = append(rows, g...)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return less(rows[i], rows[j])
	})

	for i := range rows {
		for _, v := range rows[i].Numeric() {
			*v = Round(*v)
		}
	}

	cols := make([]model.Column, len(model.DisplayColumns))
	copy(cols, model.DisplayColumns)
	return model.Table{Columns: cols, Rows: rows}
}

func less(a, b model.MetricRow) bool {
	if a.Company != b.Company {
		return a.Company < b.Company
	}
	if c := compareKnown(a.Year, b.Year); c != 0 {
		return c < 0
	}
	return compareKnown(a.Quarter, b.Quarter) < 0
}

// compareKnown orders positive values ascending with zero (unknown) last.
func compareKnown(a, b int) int {
	switch {
	case a == b:
		return 0
	case a <= 0:
		return 1
	case b <= 0:
		return -1
	case a < b:
		return -1
	}
	return 1
}

// Round rounds a present value to Precision decimals.
func Round(v model.Value) model.Value {
	if !v.Valid {
		return v
	}
	p := math.Pow10(Precision)
	return model.Some(math.Round(v.Float*p) / p)
}
