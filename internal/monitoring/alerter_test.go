package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/config"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/qualify"
)

func runSnapshot(run *RunSummary) *MetricsSnapshot {
	return &MetricsSnapshot{LastRun: run.Snapshot(), CollectedAt: time.Now().UTC()}
}

func outcome(evaluated, failed int) qualify.Outcome {
	return qualify.Outcome{Evaluated: evaluated, Failed: failed}
}

func TestAlerter_Evaluate_NoRun(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	alerts := a.Evaluate(&MetricsSnapshot{})
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.10,
		MinEvaluated:         5,
	})

	run := NewRunSummary()
	run.AddScraped(model.SourceReddit, 40)
	run.SetOutcome(outcome(19, 1))

	alerts := a.Evaluate(runSnapshot(run))
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_QualifyFailureRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.10,
		MinEvaluated:         5,
	})

	run := NewRunSummary()
	run.AddScraped(model.SourceReddit, 40)
	run.SetOutcome(outcome(20, 8))

	alerts := a.Evaluate(runSnapshot(run))
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertQualifyFailureRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "40.0%")
}

func TestAlerter_Evaluate_AllEvaluationsFailed(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.5,
		MinEvaluated:         5,
	})

	// Evaluated counts failed attempts too, so a total-failure run is
	// 6 evaluated / 6 failed, a 100% rate.
	run := NewRunSummary()
	run.AddScraped(model.SourceReddit, 6)
	run.SetOutcome(outcome(6, 6))

	alerts := a.Evaluate(runSnapshot(run))
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertQualifyFailureRate, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "100.0%")
}

func TestAlerter_Evaluate_MinimumEvaluatedRequired(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.10,
		MinEvaluated:         5,
	})

	// 2 of 3 failed, but below the minimum sample size.
	run := NewRunSummary()
	run.AddScraped(model.SourceReddit, 3)
	run.SetOutcome(outcome(3, 2))

	alerts := a.Evaluate(runSnapshot(run))
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_ScrapeFailure(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.5})

	run := NewRunSummary()
	run.AddScraped(model.SourceReddit, 10)
	run.AddFailure(model.SourceDiscord, assert.AnError)

	alerts := a.Evaluate(runSnapshot(run))
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertScrapeFailure, alerts[0].Type)
	assert.Contains(t, alerts[0].Details, "discord")
}

func TestAlerter_Evaluate_NoLeadsScraped(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.5})

	run := NewRunSummary()

	alerts := a.Evaluate(runSnapshot(run))
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertNoLeadsScraped, alerts[0].Type)
}

func TestAlerter_Evaluate_MultipleAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.10,
		MinEvaluated:         5,
	})

	run := NewRunSummary()
	run.AddScraped(model.SourceReddit, 40)
	run.AddFailure(model.SourceSlack, assert.AnError)
	run.SetOutcome(outcome(10, 10))

	alerts := a.Evaluate(runSnapshot(run))
	require.Len(t, alerts, 2)
	assert.Equal(t, AlertQualifyFailureRate, alerts[0].Type)
	assert.Equal(t, AlertScrapeFailure, alerts[1].Type)
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var alert Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.Equal(t, AlertScrapeFailure, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertScrapeFailure, Severity: "medium", Message: "reddit down"},
	})

	assert.Equal(t, 1, sent)
	assert.Equal(t, int32(1), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertNoLeadsScraped},
	})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertScrapeFailure},
	})
	assert.Equal(t, 0, sent)
}
