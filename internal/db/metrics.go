package db

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finmetrics/internal/model"
)

// MetricRowsTable is the upsert target for SaveTable.
const MetricRowsTable = Schema + ".metric_rows"

var metricKeys = []string{model.ColCompany, model.ColYear, model.ColQuarter}

// metricColumns are the table columns in row order: the key, every numeric
// display column, then updated_at.
func metricColumns() []string {
	cols := append([]string(nil), metricKeys...)
	for _, c := range model.DisplayColumns {
		switch c.Key {
		case model.ColCompany, model.ColYear, model.ColQuarter:
			continue
		}
		cols = append(cols, c.Key)
	}
	return append(cols, "updated_at")
}

// SaveTable upserts every row of t keyed by (company, year, quarter).
// Missing values are stored as NULL.
func SaveTable(ctx context.Context, pool Pool, t model.Table) (int64, error) {
	cols := metricColumns()
	now := time.Now().UTC()

	rows := make([][]any, 0, t.Len())
	for _, r := range t.Rows {
		row := make([]any, 0, len(cols))
		row = append(row, r.Company, r.Year, r.Quarter)
		for _, c := range cols[len(metricKeys) : len(cols)-1] {
			row = append(row, r.Cell(c).Ptr())
		}
		rows = append(rows, append(row, now))
	}

	n, err := BulkUpsert(ctx, pool, UpsertConfig{
		Table:        MetricRowsTable,
		Columns:      cols,
		ConflictKeys: metricKeys,
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "db: save table")
	}
	zap.L().Info("db: metric rows saved", zap.Int64("rows", n), zap.Strings("companies", t.Companies()))
	return n, nil
}
