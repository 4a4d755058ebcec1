package export

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/finmetrics/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// readSheet returns every row of the details sheet as strings.
func readSheet(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet[SheetName]
	require.True(t, ok, "sheet %q not found", SheetName)

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "report", want: "report"},
		{name: "trims spaces", in: "  q3 ", want: "q3"},
		{name: "drops extension", in: "10.15.XLSX", want: "10.15"},
		{name: "path separators", in: "../etc/passwd", want: ".._etc_passwd"},
		{name: "backslash", in: `a\b`, want: "a_b"},
		{name: "unsafe characters", in: "银行 2023!", want: "___2023_"},
		{name: "empty", in: "", want: DefaultName},
		{name: "only extension", in: ".xlsx", want: DefaultName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func sampleTable() model.Table {
	return model.Table{
		Columns: model.DisplayColumns,
		Rows: []model.MetricRow{
			{
				Company: "600000.SH", Year: 2023, Quarter: 4,
				Revenue: model.Some(1000), Cost: model.Some(600), GrossMargin: model.Some(40),
			},
		},
	}
}

func TestWriter_WriteAndRead(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "exports"))

	name, err := w.Write(sampleTable(), "bank q4.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "bank_q4.xlsx", name)

	path, err := w.Path(name)
	require.NoError(t, err)
	rows := readSheet(t, path)
	require.Len(t, rows, 2)

	assert.Equal(t, "Company", rows[0][0])
	assert.Equal(t, "Gross margin %", rows[0][8])
	assert.Equal(t, "600000.SH", rows[1][0])
	assert.Equal(t, "2023", rows[1][1])
	assert.Equal(t, "4", rows[1][2])
	assert.Equal(t, "", rows[1][3]) // net profit missing

	revenue, err := strconv.ParseFloat(rows[1][4], 64)
	require.NoError(t, err)
	assert.InDelta(t, 1000, revenue, 1e-9)
	margin, err := strconv.ParseFloat(rows[1][8], 64)
	require.NoError(t, err)
	assert.InDelta(t, 40, margin, 1e-9)
}

func TestWriter_DeduplicatesNames(t *testing.T) {
	w := NewWriter(t.TempDir())

	var names []string
	for i := 0; i < 3; i++ {
		name, err := w.Write(sampleTable(), "10.15")
		require.NoError(t, err)
		names = append(names, name)
	}
	assert.Equal(t, []string{"10.15.xlsx", "10.15-1.xlsx", "10.15-2.xlsx"}, names)

	entries, err := os.ReadDir(w.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 3, "temp files are renamed, not left behind")
}

func TestWriter_EmptyTable(t *testing.T) {
	w := NewWriter(t.TempDir())

	name, err := w.Write(model.Table{}, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultName+".xlsx", name)

	path, err := w.Path(name)
	require.NoError(t, err)
	rows := readSheet(t, path)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], len(model.DisplayColumns))
}

func TestWriter_PathRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(filepath.Join(dir, "exports"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.xlsx"), []byte("x"), 0o644))

	for _, name := range []string{"", ".", "..", "../secret.xlsx", `..\secret.xlsx`, "sub/a.xlsx", "notes.txt"} {
		_, err := w.Path(name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestWriter_PathMissingFile(t *testing.T) {
	w := NewWriter(t.TempDir())
	_, err := w.Path("missing.xlsx")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
