package db

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "finmetrics.test",
		Columns:      []string{"id", "name"},
		ConflictKeys: []string{"id"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "finmetrics.test",
		ConflictKeys: []string{"id"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:   "finmetrics.test",
		Columns: []string{"id", "name"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_StagesAndMerges(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := UpsertConfig{
		Table:        "finmetrics.test",
		Columns:      []string{"id", "name"},
		ConflictKeys: []string{"id"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TEMP TABLE "_tmp_upsert_finmetrics_test" (LIKE "finmetrics"."test" INCLUDING DEFAULTS) ON COMMIT DROP`)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_finmetrics_test"}, []string{"id", "name"}).
		WillReturnResult(2)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "finmetrics"."test"`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, cfg, [][]any{{1, "a"}, {2, "b"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyFailureRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_finmetrics_test"}, []string{"id"}).
		WillReturnError(errors.New("copy failed"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "finmetrics.test",
		Columns:      []string{"id"},
		ConflictKeys: []string{"id"},
	}, [][]any{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy into temp table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeSQL(t *testing.T) {
	tests := []struct {
		name string
		cfg  UpsertConfig
		want string
	}{
		{
			name: "updates non-key columns",
			cfg:  UpsertConfig{Table: "s.t", Columns: []string{"id", "a", "b"}, ConflictKeys: []string{"id"}},
			want: `INSERT INTO "s"."t" ("id", "a", "b") SELECT "id", "a", "b" FROM "tmp" ON CONFLICT ("id") DO UPDATE SET "a" = EXCLUDED."a", "b" = EXCLUDED."b"`,
		},
		{
			name: "explicit update columns",
			cfg:  UpsertConfig{Table: "t", Columns: []string{"id", "a", "b"}, ConflictKeys: []string{"id"}, UpdateCols: []string{"b"}},
			want: `INSERT INTO "t" ("id", "a", "b") SELECT "id", "a", "b" FROM "tmp" ON CONFLICT ("id") DO UPDATE SET "b" = EXCLUDED."b"`,
		},
		{
			name: "key only",
			cfg:  UpsertConfig{Table: "t", Columns: []string{"id"}, ConflictKeys: []string{"id"}},
			want: `INSERT INTO "t" ("id") SELECT "id" FROM "tmp" ON CONFLICT ("id") DO NOTHING`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mergeSQL(tt.cfg, "tmp"))
		})
	}
}

func TestSanitizeTable(t *testing.T) {
	assert.Equal(t, `"simple"`, sanitizeTable("simple"))
	assert.Equal(t, `"finmetrics"."metric_rows"`, sanitizeTable("finmetrics.metric_rows"))
}
