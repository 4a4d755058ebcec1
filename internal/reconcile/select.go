// Package reconcile picks authoritative upstream records and merges the
// three report tables into one row per company and period.
package reconcile

import "github.com/sells-group/finmetrics/internal/model"

type dedupKey struct {
	company  string
	periodID string
}

// SelectLatest reduces recs to one record per (company, period identifier).
// When any record carries the consolidated report type, all others are
// dropped first. Within a key the latest announcement date wins; without
// announcement dates the last record wins. Keys keep first-seen order.
func SelectLatest(recs []model.RawRecord) []model.RawRecord {
	if len(recs) == 0 {
		return nil
	}

	pool := recs
	if standard := filterStandard(recs); len(standard) > 0 {
		pool = standard
	}

	var order []dedupKey
	best := make(map[dedupKey]model.RawRecord)
	for _, r := range pool {
		k := dedupKey{r.Company, r.PeriodID}
		cur, ok := best[k]
		if !ok {
			order = append(order, k)
			best[k] = r
			continue
		}
		if supersedes(r, cur) {
			best[k] = r
		}
	}

	out := make([]model.RawRecord, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out
}

func filterStandard(recs []model.RawRecord) []model.RawRecord {
	var out []model.RawRecord
	for _, r := range recs {
		if r.ReportType == model.StandardReportType {
			out = append(out, r)
		}
	}
	return out
}

// supersedes reports whether next replaces cur. Dates are YYYYMMDD so they
// compare lexically; an undated record never beats a dated one.
func supersedes(next, cur model.RawRecord) bool {
	switch {
	case next.AnnDate == "" && cur.AnnDate == "":
		return true
	case next.AnnDate == "":
		return false
	case cur.AnnDate == "":
		return true
	}
	return next.AnnDate >= cur.AnnDate
}
