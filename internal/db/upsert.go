package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig describes a bulk upsert target.
type UpsertConfig struct {
	Table        string   // schema-qualified, e.g. "finmetrics.metric_rows"
	Columns      []string // columns supplied by each row, in order
	ConflictKeys []string // unique key columns
	UpdateCols   []string // nil updates every non-key column
}

// BulkUpsert stages rows in a temp table with COPY, then merges them into
// the target with INSERT ... ON CONFLICT DO UPDATE, all in one transaction.
// It returns the number of rows inserted or updated.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return 0, eris.New("db: upsert: no conflict keys specified")
	}

	temp := tempTableName(cfg.Table)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	create := fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{temp}.Sanitize(), sanitizeTable(cfg.Table))
	if _, err := tx.Exec(ctx, create); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create temp table for %s", cfg.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{temp}, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: copy into temp table for %s", cfg.Table)
	}

	tag, err := tx.Exec(ctx, mergeSQL(cfg, temp))
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: merge into %s", cfg.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

func tempTableName(table string) string {
	return "_tmp_upsert_" + strings.ReplaceAll(table, ".", "_")
}

func mergeSQL(cfg UpsertConfig, temp string) string {
	cols := quoteAndJoin(cfg.Columns)

	var sets []string
	for _, c := range updateColumns(cfg) {
		id := pgx.Identifier{c}.Sanitize()
		sets = append(sets, id+" = EXCLUDED."+id)
	}
	action := "DO NOTHING"
	if len(sets) > 0 {
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}

	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		sanitizeTable(cfg.Table), cols, cols, pgx.Identifier{temp}.Sanitize(),
		quoteAndJoin(cfg.ConflictKeys), action)
}

func updateColumns(cfg UpsertConfig) []string {
	if cfg.UpdateCols != nil {
		return cfg.UpdateCols
	}
	keys := make(map[string]bool, len(cfg.ConflictKeys))
	for _, k := range cfg.ConflictKeys {
		keys[k] = true
	}
	var out []string
	for _, c := range cfg.Columns {
		if !keys[c] {
			out = append(out, c)
		}
	}
	return out
}

// sanitizeTable quotes an optionally schema-qualified table name.
func sanitizeTable(table string) string {
	return pgx.Identifier(strings.SplitN(table, ".", 2)).Sanitize()
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
