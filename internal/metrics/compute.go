// Package metrics derives the display metrics for one company's merged
// records.
package metrics

import (
	"go.uber.org/zap"

	"github.com/sells-group/finmetrics/internal/decumulate"
	"github.com/sells-group/finmetrics/internal/model"
)

// Field preference orders.
var (
	NetProfitKeys = []string{"n_income_attr_p", "netprofit", "n_income"}
	RevenueKeys   = []string{"revenue", "total_revenue"}
	CostKeys      = []string{"cost", "oper_cost"}
)

// Compute turns one company's merged records into metric rows, one per
// record, in the same order. Net profit, revenue and cost are de-cumulated
// per fiscal year before any ratio is taken.
func Compute(company string, recs []model.MergedRecord, opts decumulate.Options) []model.MetricRow {
	if len(recs) == 0 {
		return nil
	}
	log := zap.L().With(zap.String("company", company))

	periods := make([]model.Period, len(recs))
	for i, r := range recs {
		periods[i] = r.Period
	}

	flow := func(name string, keys []string) Column {
		raw, key := FirstPresent(recs, keys...)
		if key == "" {
			return raw
		}
		obs := make([]decumulate.Observation, len(raw))
		for i, v := range raw {
			obs[i] = decumulate.Observation{Period: periods[i], Value: v}
		}
		out, decisions := decumulate.Series(obs, opts.For(name))
		for year, c := range decisions {
			log.Debug("metrics: classified series",
				zap.String("field", key),
				zap.Int("year", year),
				zap.Stringer("decision", c.Decision),
				zap.Float64("monotonic_fraction", c.MonotonicFraction),
				zap.Bool("sum_close", c.SumClose),
			)
		}
		return out
	}

	netProfit := flow(model.ColNetProfit, NetProfitKeys)
	revenue := flow(model.ColRevenue, RevenueKeys)
	cost := flow(model.ColCost, CostKeys)

	totalAssets := Field(recs, "total_assets")
	totalLiab := Field(recs, "total_liab")
	curAssets := Field(recs, "total_cur_assets")
	curLiab := Field(recs, "total_cur_liab")
	inventories := FillMissing(Field(recs, "inventories"), 0)

	gross := Scale(Div(Sub(revenue, cost), revenue), 100)
	net := Scale(Div(netProfit, revenue), 100)
	debt := Div(totalLiab, totalAssets)
	current := Div(curAssets, curLiab)
	quick := Div(Sub(curAssets, inventories), curLiab)
	roe := Field(recs, "roe")
	roa := Field(recs, "roa")

	rows := make([]model.MetricRow, len(recs))
	for i, r := range recs {
		code := r.Company
		if code == "" {
			code = company
		}
		rows[i] = model.MetricRow{
			Company:          code,
			Year:             r.Period.Year,
			Quarter:          r.Period.Quarter,
			NetProfit:        netProfit[i],
			Revenue:          revenue[i],
			Cost:             cost[i],
			TotalAssets:      totalAssets[i],
			TotalLiabilities: totalLiab[i],
			GrossMargin:      gross[i],
			NetMargin:        net[i],
			DebtRatio:        debt[i],
			CurrentRatio:     current[i],
			QuickRatio:       quick[i],
			ROE:              roe[i],
			ROA:              roa[i],
		}
	}
	return rows
}
