package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finmetrics/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFailureRate  AlertType = "run_failure_rate"
	AlertSkeletonRate AlertType = "skeleton_rate"
)

// minFinishedRuns is the sample size below which no rate alert fires.
const minFinishedRuns = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against configured thresholds and posts
// breaches to a webhook.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *resty.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: resty.New().SetTimeout(10 * time.Second),
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts. A
// zero threshold disables its check.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()
	finished := snap.Finished()
	if finished < minFinishedRuns {
		return nil
	}

	if a.cfg.FailureRateThreshold > 0 && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Run failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.RunsFailed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.FailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.RunsFailed,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	if a.cfg.SkeletonRateThreshold > 0 && snap.SkeletonRate > a.cfg.SkeletonRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertSkeletonRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%.1f%% of rows had no upstream data (%d of %d in last %dh)",
				snap.SkeletonRate*100, snap.Skeletons, snap.Rows, snap.LookbackHours,
			),
			Details: map[string]any{
				"skeleton_rate": snap.SkeletonRate,
				"threshold":     a.cfg.SkeletonRateThreshold,
				"skeletons":     snap.Skeletons,
				"rows":          snap.Rows,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL and returns the
// number delivered.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(alert).
		Post(a.cfg.WebhookURL)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	if resp.IsError() {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode())
	}
	return nil
}
