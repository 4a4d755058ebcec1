package model

// Column is one display column of the metrics table.
type Column struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

// Display column keys.
const (
	ColCompany          = "company"
	ColYear             = "year"
	ColQuarter          = "quarter"
	ColNetProfit        = "net_profit"
	ColRevenue          = "revenue"
	ColCost             = "cost"
	ColTotalAssets      = "total_assets"
	ColTotalLiabilities = "total_liabilities"
	ColGrossMargin      = "gross_margin_pct"
	ColNetMargin        = "net_margin_pct"
	ColDebtRatio        = "debt_ratio"
	ColCurrentRatio     = "current_ratio"
	ColQuickRatio       = "quick_ratio"
	ColROE              = "roe_pct"
	ColROA              = "roa_pct"
)

// DisplayColumns is the fixed output schema.
var DisplayColumns = []Column{
	{ColCompany, "Company"},
	{ColYear, "Year"},
	{ColQuarter, "Quarter"},
	{ColNetProfit, "Net profit"},
	{ColRevenue, "Revenue"},
	{ColCost, "Cost"},
	{ColTotalAssets, "Total assets"},
	{ColTotalLiabilities, "Total liabilities"},
	{ColGrossMargin, "Gross margin %"},
	{ColNetMargin, "Net margin %"},
	{ColDebtRatio, "Debt ratio"},
	{ColCurrentRatio, "Current ratio"},
	{ColQuickRatio, "Quick ratio"},
	{ColROE, "ROE %"},
	{ColROA, "ROA %"},
}

// MetricRow is one row of the final table.
type MetricRow struct {
	Company          string `json:"company" yaml:"company"`
	Year             int    `json:"year" yaml:"year"`
	Quarter          int    `json:"quarter" yaml:"quarter"`
	NetProfit        Value  `json:"net_profit" yaml:"net_profit"`
	Revenue          Value  `json:"revenue" yaml:"revenue"`
	Cost             Value  `json:"cost" yaml:"cost"`
	TotalAssets      Value  `json:"total_assets" yaml:"total_assets"`
	TotalLiabilities Value  `json:"total_liabilities" yaml:"total_liabilities"`
	GrossMargin      Value  `json:"gross_margin_pct" yaml:"gross_margin_pct"`
	NetMargin        Value  `json:"net_margin_pct" yaml:"net_margin_pct"`
	DebtRatio        Value  `json:"debt_ratio" yaml:"debt_ratio"`
	CurrentRatio     Value  `json:"current_ratio" yaml:"current_ratio"`
	QuickRatio       Value  `json:"quick_ratio" yaml:"quick_ratio"`
	ROE              Value  `json:"roe_pct" yaml:"roe_pct"`
	ROA              Value  `json:"roa_pct" yaml:"roa_pct"`
}

// Period returns the row's year and quarter.
func (r MetricRow) Period() Period {
	return Period{Year: r.Year, Quarter: r.Quarter}
}

// Numeric returns pointers to every numeric column in display order.
func (r *MetricRow) Numeric() []*Value {
	return []*Value{
		&r.NetProfit, &r.Revenue, &r.Cost, &r.TotalAssets, &r.TotalLiabilities,
		&r.GrossMargin, &r.NetMargin, &r.DebtRatio, &r.CurrentRatio, &r.QuickRatio,
		&r.ROE, &r.ROA,
	}
}

// Cell returns the numeric column for a display key. Unknown or identifying
// keys return a missing Value.
func (r MetricRow) Cell(key string) Value {
	switch key {
	case ColNetProfit:
		return r.NetProfit
	case ColRevenue:
		return r.Revenue
	case ColCost:
		return r.Cost
	case ColTotalAssets:
		return r.TotalAssets
	case ColTotalLiabilities:
		return r.TotalLiabilities
	case ColGrossMargin:
		return r.GrossMargin
	case ColNetMargin:
		return r.NetMargin
	case ColDebtRatio:
		return r.DebtRatio
	case ColCurrentRatio:
		return r.CurrentRatio
	case ColQuickRatio:
		return r.QuickRatio
	case ColROE:
		return r.ROE
	case ColROA:
		return r.ROA
	}
	return Value{}
}

// Table is the assembled output.
type Table struct {
	Columns []Column    `json:"columns" yaml:"columns"`
	Rows    []MetricRow `json:"rows" yaml:"rows"`
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Companies returns the distinct company codes in row order.
func (t Table) Companies() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.Rows {
		if !seen[r.Company] {
			seen[r.Company] = true
			out = append(out, r.Company)
		}
	}
	return out
}
