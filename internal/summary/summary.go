// Package summary asks a language model for a short narrative over a
// metrics table.
package summary

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/finmetrics/internal/cost"
	"github.com/sells-group/finmetrics/internal/model"
	"github.com/sells-group/finmetrics/pkg/anthropic"
)

// Limits on what is sent to and asked of the model.
const (
	MaxRows    = 12
	MaxBullets = 8
)

// Fixed replies that stand in for a model response.
const (
	DisabledText = "summary disabled: no model key configured"
	EmptyText    = "(the model returned no content)"
)

const systemPrompt = "You are a strict, neutral and concise equity research assistant."

const temperature = 0.2

// Summarizer produces narrative summaries.
type Summarizer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	costs     *cost.Calculator
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithCostCalculator prices each call. Without one, costs are zero.
func WithCostCalculator(c *cost.Calculator) Option {
	return func(s *Summarizer) { s.costs = c }
}

// New returns a Summarizer. A nil client yields DisabledText.
func New(client anthropic.Client, modelName string, maxTokens int64, opts ...Option) *Summarizer {
	s := &Summarizer{client: client, model: modelName, maxTokens: maxTokens}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Result is one summary with its usage.
type Result struct {
	Text    string
	Usage   anthropic.TokenUsage
	CostUSD float64
}

// Run never fails: model errors are returned as the summary text, with
// token usage and cost attached when the model answered.
func (s *Summarizer) Run(ctx context.Context, q model.Query, t model.Table) Result {
	if s == nil || s.client == nil {
		return Result{Text: DisabledText}
	}
	log := zap.L().With(zap.String("component", "summary"), zap.Strings("companies", q.Companies))

	temp := temperature
	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		System:      systemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: Prompt(q, t)}},
		Temperature: &temp,
	})
	if err != nil {
		log.Warn("summary: model call failed", zap.Error(err))
		return Result{Text: "summary failed: " + err.Error()}
	}
	resp.Usage.Log(s.model, "summary")

	res := Result{
		Text:    strings.TrimSpace(resp.Text()),
		Usage:   resp.Usage,
		CostUSD: s.costs.Claude(s.model, resp.Usage.InputTokens, resp.Usage.OutputTokens),
	}
	if res.Text == "" {
		res.Text = EmptyText
	}
	return res
}

// Prompt builds the user message for q and t.
func Prompt(q model.Query, t model.Table) string {
	companies := strings.Join(q.Companies, ", ")
	if companies == "" {
		companies = "-"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the table below in at most %d bullet points. Do not give investment advice.\n\n", MaxBullets)
	b.WriteString("Query:\n")
	fmt.Fprintf(&b, "- Companies: %s\n", companies)
	fmt.Fprintf(&b, "- Period type: %s\n", q.Mode)
	fmt.Fprintf(&b, "- Range: %dQ%d to %dQ%d\n\n", q.StartYear, q.StartQuarter, q.EndYear, q.EndQuarter)
	fmt.Fprintf(&b, "Data (at most %d rows):\n", MaxRows)
	b.WriteString(Markdown(t, MaxRows))
	b.WriteString("\n\nRequirements:\n")
	b.WriteString("- Cover changes in revenue, cost, gross margin, net profit, net margin, debt ratio, current and quick ratios, ROE and ROA.\n")
	b.WriteString("- If a period lacks data, say which data is missing for that period.\n")
	b.WriteString("- End with a one-sentence overall conclusion.\n")
	return b.String()
}

// Markdown renders the last maxRows rows of t, ordered by year and quarter,
// as a markdown table. An empty table renders as "(no data)".
func Markdown(t model.Table, maxRows int) string {
	if t.Len() == 0 {
		return "(no data)"
	}
	cols := t.Columns
	if len(cols) == 0 {
		cols = model.DisplayColumns
	}

	rows := make([]model.MetricRow, len(t.Rows))
	copy(rows, t.Rows)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Year != rows[j].Year {
			return rows[i].Year < rows[j].Year
		}
		return rows[i].Quarter < rows[j].Quarter
	})
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[len(rows)-maxRows:]
	}

	var b strings.Builder
	titles := make([]string, len(cols))
	rules := make([]string, len(cols))
	for i, c := range cols {
		titles[i] = c.Title
		rules[i] = "---"
	}
	writeLine(&b, titles)
	writeLine(&b, rules)
	for _, r := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = cell(r, c.Key)
		}
		writeLine(&b, cells)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeLine(b *strings.Builder, cells []string) {
	b.WriteString("| ")
	b.WriteString(strings.Join(cells, " | "))
	b.WriteString(" |\n")
}

func cell(r model.MetricRow, key string) string {
	switch key {
	case model.ColCompany:
		return r.Company
	case model.ColYear:
		return fmt.Sprint(r.Year)
	case model.ColQuarter:
		return fmt.Sprint(r.Quarter)
	}
	v := r.Cell(key)
	if !v.Valid {
		return "-"
	}
	return v.String()
}
