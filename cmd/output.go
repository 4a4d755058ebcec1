package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/finmetrics/internal/model"
	"github.com/sells-group/finmetrics/internal/pipeline"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	textStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = textStyle.Align(lipgloss.Right)
	labelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
)

// writeResult renders res to out in the requested format.
func writeResult(out io.Writer, res *pipeline.Result, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(res), "encode json")
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	case formatTable, "":
		writeTable(out, res)
		return nil
	default:
		return eris.Errorf("unsupported format %q (want table, json or yaml)", format)
	}
}

func writeTable(out io.Writer, res *pipeline.Result) {
	p := message.NewPrinter(language.English)

	if res.Table.Len() == 0 {
		_, _ = fmt.Fprintln(out, "No rows.")
	} else {
		_, _ = fmt.Fprintln(out, renderTable(p, res.Table))
	}

	if res.Skeletons > 0 {
		_, _ = p.Fprintf(out, "%s %d period(s) had no data\n", labelStyle.Render("Skeletons:"), res.Skeletons)
	}
	if res.ExportFile != "" {
		_, _ = fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Workbook:"), res.ExportFile)
	}
	if res.RunID != "" {
		_, _ = fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Run:"), res.RunID)
	}
	if res.Summary != "" {
		_, _ = fmt.Fprintf(out, "\n%s\n%s\n", labelStyle.Render("Summary"), res.Summary)
	}
}

// renderTable lays out t with grouped numbers and "-" for missing cells.
func renderTable(p *message.Printer, t model.Table) string {
	cols := t.Columns
	if len(cols) == 0 {
		cols = model.DisplayColumns
	}

	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Title
	}

	rows := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = formatCell(p, r, c.Key)
		}
		rows = append(rows, cells)
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col < 3:
				return textStyle
			default:
				return numberStyle
			}
		}).
		String()
}

func formatCell(p *message.Printer, r model.MetricRow, key string) string {
	switch key {
	case model.ColCompany:
		return r.Company
	case model.ColYear:
		return strconv.Itoa(r.Year)
	case model.ColQuarter:
		return "Q" + strconv.Itoa(r.Quarter)
	}
	return formatValue(p, r.Cell(key))
}

func formatValue(p *message.Printer, v model.Value) string {
	if !v.Valid {
		return "-"
	}
	return p.Sprintf("%.2f", v.Float)
}
