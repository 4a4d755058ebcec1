package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/finmetrics/internal/config"
)

const (
	defaultCheckInterval = 5 * time.Minute
	minCheckInterval     = 30 * time.Second
)

// Checker re-evaluates run health on a timer while the server runs. It
// checks more often while runs are in flight or the last check alerted.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	lookback  int
	idle      time.Duration
}

// NewChecker returns a Checker reading cfg's interval and lookback window.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	idle := time.Duration(cfg.CheckIntervalSecs) * time.Second
	if idle <= 0 {
		idle = defaultCheckInterval
	}
	return &Checker{
		collector: collector,
		alerter:   alerter,
		lookback:  cfg.LookbackWindowHours,
		idle:      idle,
	}
}

// Run blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("monitoring: checker started",
		zap.Duration("interval", c.idle),
		zap.Int("lookback_hours", c.lookback),
	)

	timer := time.NewTimer(c.idle)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("monitoring: checker stopped")
			return
		case <-timer.C:
			snap, alerts := c.check(ctx)
			next := c.nextInterval(snap, len(alerts))
			log.Debug("monitoring: next check scheduled", zap.Duration("in", next))
			timer.Reset(next)
		}
	}
}

// Check evaluates one snapshot, sends the alerts it raises and returns them.
func (c *Checker) Check(ctx context.Context) []Alert {
	_, alerts := c.check(ctx)
	return alerts
}

func (c *Checker) check(ctx context.Context) (*Snapshot, []Alert) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))

	snap, err := c.collector.Collect(ctx, c.lookback)
	if err != nil {
		log.Error("monitoring: collect snapshot failed", zap.Error(err))
		return nil, nil
	}
	log.Debug("monitoring: snapshot",
		zap.Int("runs", snap.RunsTotal),
		zap.Int("in_flight", snap.RunsInFlight),
		zap.Float64("fail_rate", snap.FailRate),
		zap.Float64("skeleton_rate", snap.SkeletonRate),
	)

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		return snap, nil
	}
	for _, a := range alerts {
		log.Warn("monitoring: "+a.Message,
			zap.String("alert", string(a.Type)),
			zap.String("severity", a.Severity),
			zap.Int("finished_runs", snap.Finished()),
		)
	}

	log.Info("monitoring: alert check complete",
		zap.Int("raised", len(alerts)),
		zap.Int("sent", c.alerter.SendAlerts(ctx, alerts)),
	)
	return snap, alerts
}

// nextInterval returns the delay before the next check. Runs in flight or
// a check that alerted shorten it to a quarter of the idle interval, never
// below minCheckInterval.
func (c *Checker) nextInterval(snap *Snapshot, alerts int) time.Duration {
	if snap == nil || (snap.RunsInFlight == 0 && alerts == 0) {
		return c.idle
	}
	busy := c.idle / 4
	if busy < minCheckInterval {
		busy = minCheckInterval
	}
	if busy > c.idle {
		return c.idle
	}
	return busy
}
