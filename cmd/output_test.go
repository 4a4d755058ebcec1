package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/finmetrics/internal/model"
	"github.com/sells-group/finmetrics/internal/pipeline"
)

func sampleResult() *pipeline.Result {
	return &pipeline.Result{
		RunID: "run-1",
		Query: model.Query{Companies: []string{"600000.SH"}, Mode: model.ModeYear, StartYear: 2022, EndYear: 2022},
		Table: model.Table{
			Columns: model.DisplayColumns,
			Rows: []model.MetricRow{{
				Company:     "600000.SH",
				Year:        2022,
				Quarter:     4,
				Revenue:     model.Some(1234567.891),
				Cost:        model.Some(600),
				GrossMargin: model.Some(40),
			}},
		},
		Skeletons:  1,
		ExportFile: "bank.xlsx",
		Summary:    "- revenue grew",
	}
}

func TestWriteResult_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, sampleResult(), formatTable))

	out := buf.String()
	assert.Contains(t, out, "Gross margin %")
	assert.Contains(t, out, "600000.SH")
	assert.Contains(t, out, "Q4")
	assert.Contains(t, out, "1,234,567.89")
	assert.Contains(t, out, "40.00")
	assert.Contains(t, out, "-")
	assert.Contains(t, out, "bank.xlsx")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "- revenue grew")
}

func TestWriteResult_EmptyTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, &pipeline.Result{}, ""))
	assert.Contains(t, buf.String(), "No rows.")
}

func TestWriteResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, sampleResult(), formatJSON))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "bank.xlsx", got["export_file"])

	table := got["table"].(map[string]any)
	row := table["rows"].([]any)[0].(map[string]any)
	assert.EqualValues(t, 40, row["gross_margin_pct"])
	assert.Nil(t, row["net_profit"])
}

func TestWriteResult_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, sampleResult(), formatYAML))

	out := buf.String()
	assert.Contains(t, out, "export_file: bank.xlsx")
	assert.Contains(t, out, "gross_margin_pct: 40")
	assert.Contains(t, out, "net_profit: null")
	assert.Contains(t, out, "- 600000.SH")
}

func TestWriteResult_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := writeResult(&buf, sampleResult(), "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestFormatValue(t *testing.T) {
	p := message.NewPrinter(language.English)
	tests := []struct {
		name string
		v    model.Value
		want string
	}{
		{"missing", model.Missing(), "-"},
		{"small", model.Some(0.8), "0.80"},
		{"grouped", model.Some(1000), "1,000.00"},
		{"negative", model.Some(-2500.5), "-2,500.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(p, tt.v))
		})
	}
}
