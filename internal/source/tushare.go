// Package source adapts the Tushare Pro client to the collector's Source.
package source

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finmetrics/internal/model"
	"github.com/sells-group/finmetrics/internal/resilience"
	"github.com/sells-group/finmetrics/pkg/tushare"
)

// Identifying columns; everything else is numeric.
const (
	fieldCode       = "ts_code"
	fieldAnnDate    = "ann_date"
	fieldEndDate    = "end_date"
	fieldReportType = "report_type"
)

// TableFields lists the columns requested from each report table.
var TableFields = map[model.ReportTable][]string{
	model.TableIndicator: {
		fieldCode, fieldAnnDate, fieldEndDate,
		"netprofit", "roe", "roa",
	},
	model.TableIncome: {
		fieldCode, fieldAnnDate, fieldEndDate, fieldReportType,
		"revenue", "total_revenue", "oper_cost", "n_income_attr_p", "n_income",
	},
	model.TableBalanceSheet: {
		fieldCode, fieldAnnDate, fieldEndDate, fieldReportType,
		"total_assets", "total_liab", "total_cur_assets", "total_cur_liab", "inventories",
	},
}

// Cache stores raw response bodies.
type Cache interface {
	GetCachedResponse(ctx context.Context, key string) ([]byte, error)
	SetCachedResponse(ctx context.Context, key string, body []byte, ttl time.Duration) error
}

// Tushare fetches report tables from Tushare Pro.
type Tushare struct {
	client tushare.Client
	cache  Cache
	ttl    time.Duration
	retry  resilience.Policy
}

// Option configures a Tushare source.
type Option func(*Tushare)

// WithCache serves repeated lookups from c for ttl.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(t *Tushare) {
		t.cache = c
		t.ttl = ttl
	}
}

// WithRetry sets the retry policy for upstream calls.
func WithRetry(p resilience.Policy) Option {
	return func(t *Tushare) {
		t.retry = p
	}
}

// NewTushare wraps client.
func NewTushare(client tushare.Client, opts ...Option) *Tushare {
	t := &Tushare{client: client, retry: resilience.DefaultPolicy()}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Fetch returns the rows of table for company and periodID.
func (t *Tushare) Fetch(ctx context.Context, table model.ReportTable, company, periodID string) ([]model.RawRecord, error) {
	fields, ok := TableFields[table]
	if !ok {
		return nil, eris.Errorf("source: unknown report table %q", table)
	}
	key := cacheKey(table, company, periodID, fields)

	if resp := t.cached(ctx, key); resp != nil {
		return toRecords(resp, company, periodID), nil
	}

	req := tushare.Request{
		APIName: string(table),
		Params:  map[string]string{"ts_code": company, "period": periodID},
		Fields:  fields,
	}
	policy := t.retry
	policy.OnRetry = resilience.LogRetry("tushare."+string(table),
		zap.String("company", company), zap.String("period", periodID))

	resp, err := resilience.Do(ctx, policy, func(ctx context.Context) (*tushare.Response, error) {
		return t.client.Query(ctx, req)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "source: fetch %s %s %s", table, company, periodID)
	}

	if t.cache != nil {
		if err := t.cache.SetCachedResponse(ctx, key, resp.Bytes(), t.ttl); err != nil {
			zap.L().Warn("source: cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return toRecords(resp, company, periodID), nil
}

func (t *Tushare) cached(ctx context.Context, key string) *tushare.Response {
	if t.cache == nil {
		return nil
	}
	body, err := t.cache.GetCachedResponse(ctx, key)
	if err != nil {
		zap.L().Warn("source: cache read failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if body == nil {
		return nil
	}
	resp, err := tushare.Parse(body)
	if err != nil {
		return nil
	}
	return resp
}

func cacheKey(table model.ReportTable, company, periodID string, fields []string) string {
	return strings.Join([]string{string(table), company, periodID, strings.Join(fields, ",")}, "|")
}

func toRecords(resp *tushare.Response, company, periodID string) []model.RawRecord {
	out := make([]model.RawRecord, 0, resp.Len())
	for _, row := range resp.Rows {
		rec := model.RawRecord{
			Company:    row.String(fieldCode),
			PeriodID:   row.String(fieldEndDate),
			AnnDate:    row.String(fieldAnnDate),
			ReportType: row.String(fieldReportType),
			Fields:     make(map[string]float64),
		}
		if rec.Company == "" {
			rec.Company = company
		}
		if rec.PeriodID == "" {
			rec.PeriodID = periodID
		}
		for _, f := range resp.Fields {
			switch f {
			case fieldCode, fieldAnnDate, fieldEndDate, fieldReportType:
				continue
			}
			if v, ok := row.Float(f); ok {
				rec.Fields[f] = v
			}
		}
		out = append(out, rec)
	}
	return out
}
