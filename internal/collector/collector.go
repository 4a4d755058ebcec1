// Package collector fetches and reconciles the report tables for every
// requested company and period.
package collector

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/finmetrics/internal/model"
	"github.com/sells-group/finmetrics/internal/period"
	"github.com/sells-group/finmetrics/internal/reconcile"
)

// Source returns the raw rows of one report table for a company and period
// identifier.
type Source interface {
	Fetch(ctx context.Context, table model.ReportTable, company, periodID string) ([]model.RawRecord, error)
}

// DefaultConcurrency bounds in-flight (company, period) tasks.
const DefaultConcurrency = 4

// Collector resolves merged records through a Source it is handed.
type Collector struct {
	src         Source
	concurrency int
}

// Option configures a Collector.
type Option func(*Collector)

// WithConcurrency sets the worker pool size.
func WithConcurrency(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// New creates a Collector reading from src.
func New(src Source, opts ...Option) *Collector {
	c := &Collector{src: src, concurrency: DefaultConcurrency}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Result holds merged records grouped by company.
type Result struct {
	// Companies lists company codes in request order.
	Companies []string
	// Records holds one record per requested period, in period order.
	Records map[string][]model.MergedRecord
	// Skeletons counts periods for which no candidate carried data.
	Skeletons int
}

type task struct {
	company string
	period  model.Period
}

// Collect resolves every (company, period) pair. Table fetch failures count
// as empty tables. Companies without a single populated period are reported
// together in a *model.NotFoundError.
func (c *Collector) Collect(ctx context.Context, companies []string, periods []model.Period) (*Result, error) {
	tasks := make([]task, 0, len(companies)*len(periods))
	for _, co := range companies {
		for _, p := range periods {
			tasks = append(tasks, task{company: co, period: p})
		}
	}

	slots := make([]model.MergedRecord, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, t := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = c.Resolve(gctx, t.company, t.period)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "collector: collect")
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "collector: collect")
	}

	res := &Result{
		Companies: companies,
		Records:   make(map[string][]model.MergedRecord, len(companies)),
	}
	for i, t := range tasks {
		res.Records[t.company] = append(res.Records[t.company], slots[i])
		if slots[i].Kind == model.Skeleton {
			res.Skeletons++
		}
	}

	var missing []string
	for _, co := range companies {
		if !anyPopulated(res.Records[co]) {
			missing = append(missing, co)
		}
	}
	if len(missing) > 0 {
		return nil, &model.NotFoundError{Companies: missing}
	}
	return res, nil
}

// Resolve tries each candidate identifier for p and returns the first
// populated merge, or the skeleton of the last candidate tried.
func (c *Collector) Resolve(ctx context.Context, company string, p model.Period) model.MergedRecord {
	log := zap.L().With(zap.String("company", company), zap.Stringer("period", p))

	var last model.MergedRecord
	tried := make(map[string]bool, 3)
	for _, cand := range period.Candidates(p) {
		if tried[cand] {
			continue
		}
		tried[cand] = true

		bundle := make(map[model.ReportTable][]model.RawRecord, len(model.ReportTables))
		for _, table := range model.ReportTables {
			bundle[table] = c.fetch(ctx, log, table, company, cand)
		}

		last = reconcile.Merge(company, cand,
			bundle[model.TableIndicator],
			bundle[model.TableIncome],
			bundle[model.TableBalanceSheet],
		)
		if last.Kind == model.Populated {
			log.Debug("collector: resolved period", zap.String("candidate", cand))
			break
		}
	}

	if last.Kind == model.Skeleton {
		log.Info("collector: no data for period, keeping skeleton row")
	}
	last.Company = company
	last.Period = p
	return last
}

func (c *Collector) fetch(ctx context.Context, log *zap.Logger, table model.ReportTable, company, cand string) []model.RawRecord {
	start := time.Now()
	recs, err := c.src.Fetch(ctx, table, company, cand)
	if err != nil {
		log.Warn("collector: table fetch failed",
			zap.String("table", string(table)),
			zap.String("candidate", cand),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil
	}
	return recs
}

func anyPopulated(recs []model.MergedRecord) bool {
	for _, r := range recs {
		if r.Kind == model.Populated {
			return true
		}
	}
	return false
}
