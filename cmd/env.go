package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finmetrics/internal/collector"
	"github.com/sells-group/finmetrics/internal/config"
	"github.com/sells-group/finmetrics/internal/cost"
	"github.com/sells-group/finmetrics/internal/db"
	"github.com/sells-group/finmetrics/internal/export"
	"github.com/sells-group/finmetrics/internal/pipeline"
	"github.com/sells-group/finmetrics/internal/source"
	"github.com/sells-group/finmetrics/internal/store"
	"github.com/sells-group/finmetrics/internal/summary"
	"github.com/sells-group/finmetrics/pkg/anthropic"
	"github.com/sells-group/finmetrics/pkg/tushare"
)

// envOptions selects the optional pipeline stages a command needs.
type envOptions struct {
	exportDir string // empty disables export
	summary   bool
	persist   bool
}

// pipelineEnv holds the store, pool and pipeline built for one command.
type pipelineEnv struct {
	Store    store.Store // may be nil when caching is disabled
	Pool     *pgxpool.Pool
	Exports  *export.Writer
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Pool != nil {
		pe.Pool.Close()
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens the SQLite run log and response cache.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Cache.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// sourceFactory returns a constructor for Tushare sources sharing the
// configured transport settings and cache.
func sourceFactory(c *config.Config, cache source.Cache) func(token string) collector.Source {
	return func(token string) collector.Source {
		client := tushare.NewClient(token,
			tushare.WithBaseURL(c.Tushare.BaseURL),
			tushare.WithTimeout(c.Tushare.Timeout()),
			tushare.WithRateLimit(c.Tushare.RatePerMinute),
		)
		opts := []source.Option{source.WithRetry(c.Tushare.RetryPolicy())}
		if cache != nil {
			opts = append(opts, source.WithCache(cache, c.Cache.TTL()))
		}
		return source.NewTushare(client, opts...)
	}
}

// newSummarizer returns a Summarizer without a client when no model key is
// configured, so summaries report that they are disabled.
func newSummarizer(c config.AnthropicConfig) *summary.Summarizer {
	if c.Key == "" {
		zap.L().Debug("FINMETRICS_ANTHROPIC_KEY not set, summaries disabled")
		return summary.New(nil, c.Model, c.MaxTokens)
	}
	return summary.New(anthropic.NewClient(c.Key), c.Model, c.MaxTokens,
		summary.WithCostCalculator(cost.NewCalculator(cost.DefaultRates())))
}

// initPipeline builds the store, optional Postgres pool and the Pipeline.
// Callers should defer env.Close().
func initPipeline(ctx context.Context, o envOptions) (*pipelineEnv, error) {
	env := &pipelineEnv{}

	if cfg.Cache.Enabled {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		env.Store = st
	}

	decOpts, err := cfg.Decumulate.Options()
	if err != nil {
		env.Close()
		return nil, err
	}

	var cache source.Cache
	opts := []pipeline.Option{
		pipeline.WithConcurrency(cfg.Fetch.MaxConcurrency),
		pipeline.WithDecumulate(decOpts),
	}
	if env.Store != nil {
		cache = env.Store
		opts = append(opts, pipeline.WithStore(env.Store))
	}

	if o.persist {
		if cfg.Store.DatabaseURL == "" {
			env.Close()
			return nil, eris.New("persist requires store.database_url (FINMETRICS_STORE_DATABASE_URL)")
		}
		pool, err := db.Connect(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.Pool = pool
		if err := db.Migrate(ctx, pool); err != nil {
			env.Close()
			return nil, eris.Wrap(err, "migrate postgres")
		}
		opts = append(opts, pipeline.WithPool(pool))
	}

	if o.exportDir != "" {
		env.Exports = export.NewWriter(o.exportDir)
		opts = append(opts, pipeline.WithExporter(env.Exports))
	}

	if o.summary {
		opts = append(opts, pipeline.WithSummarizer(newSummarizer(cfg.Anthropic)))
	}

	src := sourceFactory(cfg, cache)(cfg.Tushare.Token)
	env.Pipeline = pipeline.New(src, opts...)
	return env, nil
}
