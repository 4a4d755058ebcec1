// Package pipeline runs a financial-metrics query end to end: collect,
// compute, persist, export and summarize.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finmetrics/internal/collector"
	"github.com/sells-group/finmetrics/internal/dataset"
	"github.com/sells-group/finmetrics/internal/db"
	"github.com/sells-group/finmetrics/internal/decumulate"
	"github.com/sells-group/finmetrics/internal/export"
	"github.com/sells-group/finmetrics/internal/metrics"
	"github.com/sells-group/finmetrics/internal/model"
	"github.com/sells-group/finmetrics/internal/period"
	"github.com/sells-group/finmetrics/internal/store"
	"github.com/sells-group/finmetrics/internal/summary"
)

// Phase names recorded for each run.
const (
	PhaseCollect = "collect"
	PhaseCompute = "compute"
	PhasePersist = "persist"
	PhaseExport  = "export"
	PhaseSummary = "summary"
)

// Pipeline wires a Source to the optional persistence, export and summary
// stages. A zero-valued optional dependency skips its phase.
type Pipeline struct {
	src         collector.Source
	concurrency int
	decumulate  decumulate.Options
	store       store.Store
	pool        db.Pool
	exporter    *export.Writer
	summarizer  *summary.Summarizer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConcurrency bounds in-flight (company, period) fetches.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) { p.concurrency = n }
}

// WithDecumulate sets the cumulative-series biases.
func WithDecumulate(opts decumulate.Options) Option {
	return func(p *Pipeline) { p.decumulate = opts }
}

// WithStore records runs and phases in st.
func WithStore(st store.Store) Option {
	return func(p *Pipeline) { p.store = st }
}

// WithPool upserts the final table into Postgres.
func WithPool(pool db.Pool) Option {
	return func(p *Pipeline) { p.pool = pool }
}

// WithExporter writes the final table to a workbook.
func WithExporter(w *export.Writer) Option {
	return func(p *Pipeline) { p.exporter = w }
}

// WithSummarizer attaches a narrative summary to each result.
func WithSummarizer(s *summary.Summarizer) Option {
	return func(p *Pipeline) { p.summarizer = s }
}

// New creates a Pipeline reading from src.
func New(src collector.Source, opts ...Option) *Pipeline {
	p := &Pipeline{src: src, concurrency: collector.DefaultConcurrency}
	for _, o := range opts {
		o(p)
	}
	return p
}

// WithSource returns a copy of p reading from src. It lets a caller run one
// query against its own upstream credentials.
func (p *Pipeline) WithSource(src collector.Source) *Pipeline {
	cp := *p
	cp.src = src
	return &cp
}

// Result is the outcome of one query.
type Result struct {
	RunID      string              `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Query      model.Query         `json:"query" yaml:"query"`
	Table      model.Table         `json:"table" yaml:"table"`
	Skeletons  int                 `json:"skeletons" yaml:"skeletons"`
	ExportFile string              `json:"export_file,omitempty" yaml:"export_file,omitempty"`
	Summary    string              `json:"summary,omitempty" yaml:"summary,omitempty"`
	Phases     []model.PhaseResult `json:"phases" yaml:"phases"`
}

// Run validates q and executes every configured phase. Validation failures
// return a *model.ValidationError and companies without any data return a
// *model.NotFoundError.
func (p *Pipeline) Run(ctx context.Context, q model.Query) (*Result, error) {
	q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("component", "pipeline"), zap.Strings("companies", q.Companies))
	log.Info("pipeline: starting run",
		zap.String("mode", string(q.Mode)),
		zap.Int("start_year", q.StartYear),
		zap.Int("end_year", q.EndYear),
	)

	result := &Result{Query: q}
	rt := &runTracker{store: p.store, log: log, result: result}
	rt.start(ctx, q)

	// Collect
	rt.setStatus(ctx, model.RunStatusCollecting)
	var collected *collector.Result
	err := rt.phase(ctx, PhaseCollect, func() (map[string]any, error) {
		periods := period.Range(q)
		res, err := collector.New(p.src, collector.WithConcurrency(p.concurrency)).
			Collect(ctx, q.Companies, periods)
		if err != nil {
			return nil, err
		}
		collected = res
		return map[string]any{"periods": len(periods), "skeletons": res.Skeletons}, nil
	})
	if err != nil {
		rt.finish(ctx, err)
		return nil, err
	}
	result.Skeletons = collected.Skeletons

	// Compute
	rt.setStatus(ctx, model.RunStatusComputing)
	_ = rt.phase(ctx, PhaseCompute, func() (map[string]any, error) {
		groups := make([][]model.MetricRow, 0, len(collected.Companies))
		for _, co := range collected.Companies {
			groups = append(groups, metrics.Compute(co, collected.Records[co], p.decumulate))
		}
		result.Table = dataset.Assemble(groups...)
		return map[string]any{"rows": result.Table.Len()}, nil
	})

	if p.pool != nil {
		err := rt.phase(ctx, PhasePersist, func() (map[string]any, error) {
			n, err := db.SaveTable(ctx, p.pool, result.Table)
			return map[string]any{"rows": n}, err
		})
		if err != nil {
			err = eris.Wrap(err, "pipeline: persist")
			rt.finish(ctx, err)
			return nil, err
		}
	}

	if p.exporter != nil {
		rt.setStatus(ctx, model.RunStatusExporting)
		err := rt.phase(ctx, PhaseExport, func() (map[string]any, error) {
			name, err := p.exporter.Write(result.Table, q.Filename)
			result.ExportFile = name
			return map[string]any{"file": name}, err
		})
		if err != nil {
			err = eris.Wrap(err, "pipeline: export")
			rt.finish(ctx, err)
			return nil, err
		}
	}

	if p.summarizer != nil {
		_ = rt.phase(ctx, PhaseSummary, func() (map[string]any, error) {
			res := p.summarizer.Run(ctx, q, result.Table)
			result.Summary = res.Text
			return map[string]any{
				"input_tokens":  res.Usage.InputTokens,
				"output_tokens": res.Usage.OutputTokens,
				"cost_usd":      res.CostUSD,
			}, nil
		})
	}

	rt.finish(ctx, nil)
	log.Info("pipeline: run complete",
		zap.Int("rows", result.Table.Len()),
		zap.Int("skeletons", result.Skeletons),
	)
	return result, nil
}

// runTracker mirrors a run's progress into the store when one is configured.
type runTracker struct {
	store  store.Store
	log    *zap.Logger
	result *Result
	runID  string
}

func (rt *runTracker) start(ctx context.Context, q model.Query) {
	if rt.store == nil {
		return
	}
	run, err := rt.store.CreateRun(ctx, q)
	if err != nil {
		rt.log.Warn("pipeline: failed to create run", zap.Error(err))
		return
	}
	rt.runID = run.ID
	rt.result.RunID = run.ID
	rt.log = rt.log.With(zap.String("run_id", run.ID))
}

func (rt *runTracker) setStatus(ctx context.Context, status model.RunStatus) {
	if rt.runID == "" {
		return
	}
	if err := rt.store.UpdateRunStatus(ctx, rt.runID, status); err != nil {
		rt.log.Warn("pipeline: failed to update status", zap.Error(err))
	}
}

func (rt *runTracker) phase(ctx context.Context, name string, fn func() (map[string]any, error)) error {
	var phase *model.RunPhase
	if rt.runID != "" {
		var err error
		if phase, err = rt.store.CreatePhase(ctx, rt.runID, name); err != nil {
			rt.log.Warn("pipeline: failed to create phase", zap.String("phase", name), zap.Error(err))
		}
	}

	start := time.Now()
	meta, fnErr := fn()
	pr := model.PhaseResult{
		Name:     name,
		Status:   model.PhaseStatusComplete,
		Duration: time.Since(start).Milliseconds(),
		Metadata: meta,
	}
	if fnErr != nil {
		pr.Status = model.PhaseStatusFailed
		pr.Error = fnErr.Error()
		rt.log.Error("pipeline: phase failed",
			zap.String("phase", name), zap.Int64("duration_ms", pr.Duration), zap.Error(fnErr))
	} else {
		rt.log.Info("pipeline: phase complete",
			zap.String("phase", name), zap.Int64("duration_ms", pr.Duration))
	}

	if phase != nil {
		if err := rt.store.CompletePhase(ctx, phase.ID, &pr); err != nil {
			rt.log.Warn("pipeline: failed to complete phase", zap.String("phase", name), zap.Error(err))
		}
	}
	rt.result.Phases = append(rt.result.Phases, pr)
	return fnErr
}

// finish stores the run outcome, including after ctx is cancelled.
func (rt *runTracker) finish(ctx context.Context, runErr error) {
	if rt.runID == "" {
		return
	}
	rr := &model.RunResult{
		Rows:       rt.result.Table.Len(),
		Skeletons:  rt.result.Skeletons,
		ExportFile: rt.result.ExportFile,
		Phases:     rt.result.Phases,
	}
	if runErr != nil {
		rr.Error = runErr.Error()
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := rt.store.UpdateRunResult(saveCtx, rt.runID, rr); err != nil {
		rt.log.Warn("pipeline: failed to save run result", zap.Error(err))
	}
}
