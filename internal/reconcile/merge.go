package reconcile

import "github.com/sells-group/finmetrics/internal/model"

// PayloadFields are the fields that make a merged record worth keeping.
var PayloadFields = []string{
	"revenue", "total_revenue", "cost",
	"total_assets", "total_liab", "total_cur_assets", "total_cur_liab", "inventories",
	"netprofit", "n_income_attr_p", "n_income",
	"roe", "roa",
}

// HasPayload reports whether any payload field is present.
func HasPayload(fields map[string]float64) bool {
	for _, f := range PayloadFields {
		if _, ok := fields[f]; ok {
			return true
		}
	}
	return false
}

// Merge combines the indicator, income and balance-sheet rows for one
// company and candidate period identifier. The indicator row is the left
// side of both joins; when it is absent a skeleton keyed by company and
// periodID takes its place. Fields already present on the left are kept.
func Merge(company, periodID string, indicator, income, balance []model.RawRecord) model.MergedRecord {
	key := dedupKey{company, periodID}
	fields := make(map[string]float64)

	if ind := SelectLatest(indicator); len(ind) > 0 {
		key = dedupKey{ind[0].Company, ind[0].PeriodID}
		copyFields(fields, ind[0].Fields)
	}

	for _, table := range [][]model.RawRecord{income, balance} {
		if r, ok := lookup(SelectLatest(table), key); ok {
			copyFields(fields, r.Fields)
		}
	}

	if _, ok := fields["cost"]; !ok {
		if oc, ok := fields["oper_cost"]; ok {
			fields["cost"] = oc
		}
	}

	if !HasPayload(fields) {
		return model.NewSkeleton(key.company, key.periodID)
	}
	return model.MergedRecord{
		Kind:     model.Populated,
		Company:  key.company,
		PeriodID: key.periodID,
		Fields:   fields,
	}
}

func lookup(recs []model.RawRecord, k dedupKey) (model.RawRecord, bool) {
	for _, r := range recs {
		if r.Company == k.company && r.PeriodID == k.periodID {
			return r, true
		}
	}
	return model.RawRecord{}, false
}

func copyFields(dst, src map[string]float64) {
	for k, v := range src {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
}
