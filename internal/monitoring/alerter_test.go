package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/finmetrics/internal/config"
)

func defaultThresholds() config.MonitoringConfig {
	return config.MonitoringConfig{FailureRateThreshold: 0.10, SkeletonRateThreshold: 0.5}
}

func TestAlerter_Evaluate(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MonitoringConfig
		snap Snapshot
		want []AlertType
	}{
		{
			name: "healthy",
			cfg:  defaultThresholds(),
			snap: Snapshot{RunsComplete: 95, RunsFailed: 5, FailRate: 0.05, Rows: 100, Skeletons: 10, SkeletonRate: 0.1},
		},
		{
			name: "failure rate",
			cfg:  defaultThresholds(),
			snap: Snapshot{RunsComplete: 12, RunsFailed: 8, FailRate: 0.4},
			want: []AlertType{AlertFailureRate},
		},
		{
			name: "skeleton rate",
			cfg:  defaultThresholds(),
			snap: Snapshot{RunsComplete: 10, Rows: 40, Skeletons: 30, SkeletonRate: 0.75},
			want: []AlertType{AlertSkeletonRate},
		},
		{
			name: "both",
			cfg:  defaultThresholds(),
			snap: Snapshot{RunsComplete: 5, RunsFailed: 5, FailRate: 0.5, Rows: 10, Skeletons: 8, SkeletonRate: 0.8},
			want: []AlertType{AlertFailureRate, AlertSkeletonRate},
		},
		{
			name: "too few runs",
			cfg:  defaultThresholds(),
			snap: Snapshot{RunsComplete: 1, RunsFailed: 2, FailRate: 0.666},
		},
		{
			name: "zero thresholds disable checks",
			cfg:  config.MonitoringConfig{},
			snap: Snapshot{RunsComplete: 5, RunsFailed: 5, FailRate: 0.5, SkeletonRate: 0.9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := tt.snap
			snap.LookbackHours = 24
			alerts := NewAlerter(tt.cfg).Evaluate(&snap)

			var got []AlertType
			for _, a := range alerts {
				got = append(got, a.Type)
				assert.NotEmpty(t, a.Message)
				assert.False(t, a.Timestamp.IsZero())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAlerter_Evaluate_Message(t *testing.T) {
	snap := &Snapshot{RunsComplete: 12, RunsFailed: 8, FailRate: 0.4, LookbackHours: 24}
	alerts := NewAlerter(defaultThresholds()).Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "40.0%")
	assert.Contains(t, alerts[0].Message, "8 failed / 20 finished")
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertFailureRate, Severity: "high", Message: "test alert 1"},
		{Type: AlertSkeletonRate, Severity: "medium", Message: "test alert 2"},
	})
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_Skipped(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		alerts []Alert
	}{
		{name: "empty url", url: "", alerts: []Alert{{Type: AlertFailureRate}}},
		{name: "no alerts", url: "http://example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAlerter(config.MonitoringConfig{WebhookURL: tt.url})
			assert.Equal(t, 0, a.SendAlerts(context.Background(), tt.alerts))
		})
	}
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertFailureRate, Message: "test"}})
	assert.Equal(t, 0, sent)
}
