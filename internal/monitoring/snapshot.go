package monitoring

import (
	"errors"
	"time"

	"brightquest/internal/models"
)

// ErrChildNotFound is returned by SnapshotReader implementations when the
// child does not exist.
var ErrChildNotFound = errors.New("child not found")

// ErrDuplicateAlert is returned by AlertStore.InsertAlert when an alert of
// the same kind already exists for the child in the same dedup bucket. The
// engine treats it as suppression, not failure.
var ErrDuplicateAlert = errors.New("duplicate alert for child, kind and time bucket")

// Snapshot is the point-in-time input to one analysis pass. It is read once
// at the start of the pass; detectors never touch storage.
type Snapshot struct {
	Child models.Child

	// Profile is nil when the learning-analytics pipeline has not produced
	// one yet. Detectors that need it abstain.
	Profile *models.LearningProfile

	// RecentProgress holds the child's latest lesson completions, newest
	// first, at most twenty.
	RecentProgress []models.LessonProgress

	// TestResults holds the latest weekly test results, newest first, at
	// most five.
	TestResults []models.WeeklyTestResult
}

// SnapshotReader loads analysis input for a child.
type SnapshotReader interface {
	ReadSnapshot(childID int64) (*Snapshot, error)

	// ReadDayProgress returns the lesson completions for the calendar day
	// (UTC) containing the given time.
	ReadDayProgress(childID int64, day time.Time) ([]models.LessonProgress, error)
}

// AlertStore persists alerts and answers dedup queries.
type AlertStore interface {
	AlertExistsSince(childID int64, kind models.AlertKind, cutoff time.Time) (bool, error)
	InsertAlert(alert *models.Alert) error
}

// InsightStore persists the latest-value insight per (child, kind).
type InsightStore interface {
	UpsertInsight(insight *models.Insight) error
}

// SummaryStore persists the per-day summary row for a child.
type SummaryStore interface {
	UpsertDailySummary(summary *models.DailySummary) error
}
