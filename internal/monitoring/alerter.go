package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertQualifyFailureRate AlertType = "qualify_failure_rate"
	AlertScrapeFailure      AlertType = "scrape_failure"
	AlertNoLeadsScraped     AlertType = "no_leads_scraped"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a run summary against configured thresholds and sends
// alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	run := snap.LastRun
	if run == nil {
		return nil
	}

	var alerts []Alert
	now := time.Now().UTC()

	// Check qualification failure rate. Evaluated counts every evaluation
	// attempt, failed ones included, so it is the rate denominator.
	minEvaluated := a.cfg.MinEvaluated
	if minEvaluated <= 0 {
		minEvaluated = 5
	}
	if run.Evaluated >= minEvaluated {
		failRate := float64(run.EvalFailed) / float64(run.Evaluated)
		if failRate > a.cfg.FailureRateThreshold {
			alerts = append(alerts, Alert{
				Type:     AlertQualifyFailureRate,
				Severity: "high",
				Message: fmt.Sprintf(
					"Qualification failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d evaluated)",
					failRate*100, a.cfg.FailureRateThreshold*100,
					run.EvalFailed, run.Evaluated,
				),
				Details: map[string]any{
					"failure_rate": failRate,
					"threshold":    a.cfg.FailureRateThreshold,
					"failed":       run.EvalFailed,
					"evaluated":    run.Evaluated,
				},
				Timestamp: now,
			})
		}
	}

	// Check scrape failures.
	if len(run.Failures) > 0 {
		details := make(map[string]any, len(run.Failures))
		for src, msg := range run.Failures {
			details[string(src)] = msg
		}
		alerts = append(alerts, Alert{
			Type:     AlertScrapeFailure,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%d source(s) failed during the last scrape run", len(run.Failures),
			),
			Details:   details,
			Timestamp: now,
		})
	}

	// Check for an empty run across all sources.
	total := 0
	for _, n := range run.Scraped {
		total += n
	}
	if total == 0 && len(run.Failures) == 0 {
		alerts = append(alerts, Alert{
			Type:      AlertNoLeadsScraped,
			Severity:  "medium",
			Message:   "Last scrape run produced zero leads from every source",
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
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

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
