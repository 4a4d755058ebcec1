package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/finmetrics/internal/decumulate"
	"github.com/sells-group/finmetrics/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func populated(year, quarter int, fields map[string]float64) model.MergedRecord {
	return model.MergedRecord{
		Kind:    model.Populated,
		Company: "600000.SH",
		Period:  model.Period{Year: year, Quarter: quarter},
		Fields:  fields,
	}
}

func TestDiv_Safety(t *testing.T) {
	got := Div(
		Column{model.Some(1), model.Some(1), model.Missing(), model.Some(6)},
		Column{model.Some(0), model.Missing(), model.Some(2), model.Some(3)},
	)
	assert.False(t, got[0].Valid)
	assert.False(t, got[1].Valid)
	assert.False(t, got[2].Valid)
	assert.Equal(t, model.Some(2), got[3])
}

func TestCompute_Ratios(t *testing.T) {
	rows := Compute("600000.SH", []model.MergedRecord{
		populated(2023, 4, map[string]float64{
			"revenue": 1000, "cost": 600, "n_income_attr_p": 100,
			"total_assets": 5000, "total_liab": 2000,
			"total_cur_assets": 900, "total_cur_liab": 300, "inventories": 300,
			"roe": 12.5, "roa": 3.1,
		}),
	}, decumulate.Options{})

	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, "600000.SH", r.Company)
	assert.Equal(t, 2023, r.Year)
	assert.Equal(t, 4, r.Quarter)
	assert.InDelta(t, 40.0, r.GrossMargin.Float, 1e-9)
	assert.InDelta(t, 10.0, r.NetMargin.Float, 1e-9)
	assert.InDelta(t, 0.4, r.DebtRatio.Float, 1e-9)
	assert.InDelta(t, 3.0, r.CurrentRatio.Float, 1e-9)
	assert.InDelta(t, 2.0, r.QuickRatio.Float, 1e-9)
	assert.Equal(t, model.Some(12.5), r.ROE)
	assert.Equal(t, model.Some(3.1), r.ROA)
}

func TestCompute_ZeroRevenue(t *testing.T) {
	rows := Compute("X", []model.MergedRecord{
		populated(2023, 4, map[string]float64{"revenue": 0, "cost": 50}),
	}, decumulate.Options{})

	assert.False(t, rows[0].GrossMargin.Valid)
	assert.False(t, rows[0].NetMargin.Valid)
}

func TestCompute_MissingCurrentLiabilities(t *testing.T) {
	rows := Compute("X", []model.MergedRecord{
		populated(2023, 4, map[string]float64{"total_cur_assets": 100, "inventories": 10}),
	}, decumulate.Options{})

	assert.False(t, rows[0].CurrentRatio.Valid)
	assert.False(t, rows[0].QuickRatio.Valid)
}

func TestCompute_QuickRatioDefaultsInventories(t *testing.T) {
	rows := Compute("X", []model.MergedRecord{
		populated(2023, 4, map[string]float64{"total_cur_assets": 100, "total_cur_liab": 50}),
	}, decumulate.Options{})

	assert.InDelta(t, 2.0, rows[0].QuickRatio.Float, 1e-9)
}

func TestCompute_FieldFallbacks(t *testing.T) {
	rows := Compute("X", []model.MergedRecord{
		populated(2023, 4, map[string]float64{"total_revenue": 200, "oper_cost": 150, "n_income": 20}),
	}, decumulate.Options{})

	assert.Equal(t, model.Some(200), rows[0].Revenue)
	assert.Equal(t, model.Some(150), rows[0].Cost)
	assert.Equal(t, model.Some(20), rows[0].NetProfit)
	assert.InDelta(t, 25.0, rows[0].GrossMargin.Float, 1e-9)
}

func TestCompute_PrefersParentProfit(t *testing.T) {
	rows := Compute("X", []model.MergedRecord{
		populated(2023, 4, map[string]float64{"netprofit": 90, "n_income_attr_p": 80, "n_income": 100}),
	}, decumulate.Options{})

	assert.Equal(t, model.Some(80), rows[0].NetProfit)
}

func TestCompute_DecumulatesFlows(t *testing.T) {
	recs := []model.MergedRecord{
		populated(2023, 1, map[string]float64{"revenue": 100, "cost": 60, "total_assets": 1000}),
		populated(2023, 2, map[string]float64{"revenue": 220, "cost": 130, "total_assets": 1100}),
		populated(2023, 3, map[string]float64{"revenue": 350, "cost": 200, "total_assets": 1200}),
		populated(2023, 4, map[string]float64{"revenue": 500, "cost": 290, "total_assets": 1300}),
	}

	rows := Compute("600000.SH", recs, decumulate.Options{})

	require.Len(t, rows, 4)
	assert.Equal(t, model.Some(120), rows[1].Revenue)
	assert.Equal(t, model.Some(70), rows[1].Cost)
	assert.Equal(t, model.Some(1100), rows[1].TotalAssets, "balance sheet stays point-in-time")
	assert.InDelta(t, (150.0-90.0)/150.0*100, rows[3].GrossMargin.Float, 1e-9)
}

func TestCompute_FieldBiasOverride(t *testing.T) {
	recs := []model.MergedRecord{
		populated(2023, 1, map[string]float64{"revenue": 100, "cost": 60}),
		populated(2023, 2, map[string]float64{"revenue": 220, "cost": 130}),
	}
	opts := decumulate.Options{FieldBias: map[string]decumulate.Bias{model.ColCost: decumulate.AssumeDiscrete}}

	rows := Compute("X", recs, opts)

	assert.Equal(t, model.Some(120), rows[1].Revenue)
	assert.Equal(t, model.Some(130), rows[1].Cost)
}

func TestCompute_SkeletonRow(t *testing.T) {
	sk := model.NewSkeleton("X", "20231231")
	sk.Period = model.Period{Year: 2023, Quarter: 4}

	rows := Compute("X", []model.MergedRecord{sk}, decumulate.Options{})

	require.Len(t, rows, 1)
	assert.Equal(t, "X", rows[0].Company)
	assert.Equal(t, 2023, rows[0].Year)
	for _, v := range rows[0].Numeric() {
		assert.False(t, v.Valid)
	}
}

func TestCompute_Empty(t *testing.T) {
	assert.Nil(t, Compute("X", nil, decumulate.Options{}))
}
