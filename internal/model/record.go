package model

// ReportTable names one of the upstream report tables.
type ReportTable string

const (
	TableIndicator    ReportTable = "fina_indicator"
	TableIncome       ReportTable = "income"
	TableBalanceSheet ReportTable = "balancesheet"
)

// ReportTables lists the tables fetched per candidate period, in merge order.
var ReportTables = []ReportTable{TableIndicator, TableIncome, TableBalanceSheet}

// StandardReportType is the report-type code of the consolidated filing.
const StandardReportType = "1"

// RawRecord is one row from one report table for one company and period
// identifier. A field absent from Fields is missing.
type RawRecord struct {
	Company    string             `json:"ts_code"`
	PeriodID   string             `json:"end_date"`
	AnnDate    string             `json:"ann_date,omitempty"`
	ReportType string             `json:"report_type,omitempty"`
	Fields     map[string]float64 `json:"fields"`
}

// RecordKind tags a MergedRecord as carrying data or not.
type RecordKind int

const (
	// Populated records carry at least one payload field.
	Populated RecordKind = iota
	// Skeleton records carry only identifying fields.
	Skeleton
)

func (k RecordKind) String() string {
	if k == Skeleton {
		return "skeleton"
	}
	return "populated"
}

// MergedRecord is the reconciled row for one company and Period.
type MergedRecord struct {
	Kind     RecordKind
	Company  string
	PeriodID string
	Period   Period
	Fields   map[string]float64
}

// NewSkeleton builds a Skeleton record.
func NewSkeleton(company, periodID string) MergedRecord {
	return MergedRecord{Kind: Skeleton, Company: company, PeriodID: periodID}
}

// Value returns the named field, missing for skeletons.
func (m MergedRecord) Value(key string) Value {
	if m.Kind == Skeleton {
		return Value{}
	}
	return Lookup(m.Fields, key)
}

// Has reports whether the named field is present.
func (m MergedRecord) Has(key string) bool {
	if m.Kind == Skeleton {
		return false
	}
	_, ok := m.Fields[key]
	return ok
}
