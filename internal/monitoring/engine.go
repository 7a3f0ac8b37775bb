package monitoring

import (
	"errors"
	"fmt"
	"log"
	"time"

	"brightquest/internal/models"
)

// Action selects how much of a monitoring pass to run. The zero value runs
// the alert and insight scan only.
type Action string

const (
	ActionScan         Action = ""
	ActionDailySummary Action = "daily_summary"
	ActionFullAnalysis Action = "full_analysis"
)

// ParseAction validates a request-supplied action string.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionScan, ActionDailySummary, ActionFullAnalysis:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Report is the outcome of one analysis pass. The generated counts reflect
// what the detectors produced; deduplication may persist fewer rows.
type Report struct {
	AlertsGenerated   int    `json:"alertsGenerated"`
	InsightsGenerated int    `json:"insightsGenerated"`
	Message           string `json:"message"`
	WriteFailures     int    `json:"-"`
}

// Engine runs monitoring analysis passes. It reads one snapshot per pass,
// evaluates the detector set against it, and writes the surviving alerts,
// insights and (when asked) the daily summary.
type Engine struct {
	reader     SnapshotReader
	alerts     AlertStore
	insights   InsightStore
	summaries  SummaryStore
	thresholds Thresholds

	now func() time.Time
}

// NewEngine creates a monitoring engine over the given stores.
func NewEngine(reader SnapshotReader, alerts AlertStore, insights InsightStore, summaries SummaryStore, thresholds Thresholds) *Engine {
	return &Engine{
		reader:     reader,
		alerts:     alerts,
		insights:   insights,
		summaries:  summaries,
		thresholds: thresholds,
		now:        time.Now,
	}
}

// Analyze runs one monitoring pass for a child. A snapshot read failure
// aborts the pass; individual write failures are logged, counted and
// skipped so one bad row cannot starve the rest.
func (e *Engine) Analyze(childID int64, action Action) (*Report, error) {
	snap, err := e.reader.ReadSnapshot(childID)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot for child %d: %w", childID, err)
	}
	now := e.now()

	alerts := e.collectAlerts(snap, now)
	insights := synthesizeInsights(snap)

	report := &Report{
		AlertsGenerated:   len(alerts),
		InsightsGenerated: len(insights),
	}

	e.saveAlerts(alerts, now, report)

	for _, insight := range insights {
		if err := e.insights.UpsertInsight(insight); err != nil {
			log.Printf("monitoring: failed to save %s insight for child %d: %v", insight.Kind, childID, err)
			report.WriteFailures++
		}
	}

	if action == ActionDailySummary || action == ActionFullAnalysis {
		if err := e.writeDailySummary(snap, now); err != nil {
			log.Printf("monitoring: failed to save daily summary for child %d: %v", childID, err)
			report.WriteFailures++
		}
	}

	report.Message = fmt.Sprintf("Analysis complete. Generated %d alerts and %d insights.",
		report.AlertsGenerated, report.InsightsGenerated)
	return report, nil
}

func (e *Engine) collectAlerts(snap *Snapshot, now time.Time) []*models.Alert {
	var alerts []*models.Alert
	for _, detect := range alertDetectors {
		alert := runDetector(detect, snap, e.thresholds, now)
		if alert == nil {
			continue
		}

		// A streak is celebrated once per trailing week, not once per day
		// like every other alert kind.
		if alert.Kind == models.AlertCelebration {
			exists, err := e.alerts.AlertExistsSince(snap.Child.ID, models.AlertCelebration, now.Add(-e.thresholds.CelebrationWindow))
			if err != nil {
				log.Printf("monitoring: celebration lookup failed for child %d: %v", snap.Child.ID, err)
				continue
			}
			if exists {
				continue
			}
		}

		alerts = append(alerts, alert)
	}
	return alerts
}

// saveAlerts persists candidates that survive the trailing-window dedup
// check. The storage unique index backstops the check against concurrent
// passes; a violation counts as suppression, not failure.
func (e *Engine) saveAlerts(alerts []*models.Alert, now time.Time, report *Report) {
	for _, alert := range alerts {
		exists, err := e.alerts.AlertExistsSince(alert.ChildID, alert.Kind, now.Add(-e.thresholds.DedupWindow))
		if err != nil {
			log.Printf("monitoring: dedup lookup failed for child %d alert %s: %v", alert.ChildID, alert.Kind, err)
			report.WriteFailures++
			continue
		}
		if exists {
			continue
		}

		alert.CreatedAt = now
		if err := e.alerts.InsertAlert(alert); err != nil {
			if errors.Is(err, ErrDuplicateAlert) {
				continue
			}
			log.Printf("monitoring: failed to save %s alert for child %d: %v", alert.Kind, alert.ChildID, err)
			report.WriteFailures++
		}
	}
}

func (e *Engine) writeDailySummary(snap *Snapshot, now time.Time) error {
	dayProgress, err := e.reader.ReadDayProgress(snap.Child.ID, now)
	if err != nil {
		return fmt.Errorf("failed to read today's progress: %w", err)
	}

	summary := buildDailySummary(snap, dayProgress, e.thresholds, now)
	return e.summaries.UpsertDailySummary(summary)
}
