package models

import (
	"encoding/json"
	"time"
)

// AlertKind identifies the condition a monitoring alert reports
type AlertKind string

const (
	AlertInactive        AlertKind = "inactive"
	AlertLowAccuracy     AlertKind = "low_accuracy"
	AlertFrustration     AlertKind = "frustration_detected"
	AlertSubjectWeakness AlertKind = "subject_weakness"
	AlertCelebration     AlertKind = "celebration"
	AlertStreakBroken    AlertKind = "streak_broken"
	AlertImprovement     AlertKind = "improvement"
)

// Severity indicates how urgently a parent should act on an alert
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityUrgent  Severity = "urgent"
)

// Alert represents one persisted monitoring alert for a child.
// Alerts are created by the monitoring engine and later marked read or
// dismissed from the parent dashboard; the engine never mutates them.
type Alert struct {
	ID          int64
	ChildID     int64
	FamilyID    int64
	Kind        AlertKind
	Severity    Severity
	Title       string
	Message     string
	SubjectCode string
	Data        json.RawMessage
	IsRead      bool
	IsDismissed bool
	CreatedAt   time.Time
}

// AlertData is the supporting payload attached to an alert. Each alert
// kind carries its own statically shaped payload type.
type AlertData interface {
	alertData()
}

// InactivityData supports AlertInactive
type InactivityData struct {
	DaysSinceActivity int `json:"daysSinceActivity"`
}

// LowAccuracyData supports AlertLowAccuracy
type LowAccuracyData struct {
	Accuracy          float64 `json:"accuracy"`
	QuestionsAnswered int     `json:"questionsAnswered"`
}

// FrustrationData supports AlertFrustration
type FrustrationData struct {
	ConsecutiveWrong int `json:"consecutiveWrong"`
}

// SubjectWeaknessData supports AlertSubjectWeakness
type SubjectWeaknessData struct {
	Subjects []string `json:"subjects"`
	AvgScore float64  `json:"avgScore"`
}

// CelebrationData supports AlertCelebration
type CelebrationData struct {
	Streak int `json:"streak"`
}

// StreakBrokenData supports AlertStreakBroken
type StreakBrokenData struct{}

// ImprovementData supports AlertImprovement
type ImprovementData struct {
	Improvement float64 `json:"improvement"`
	RecentAvg   float64 `json:"recentAvg"`
	OlderAvg    float64 `json:"olderAvg"`
}

func (InactivityData) alertData()      {}
func (LowAccuracyData) alertData()     {}
func (FrustrationData) alertData()     {}
func (SubjectWeaknessData) alertData() {}
func (CelebrationData) alertData()     {}
func (StreakBrokenData) alertData()    {}
func (ImprovementData) alertData()     {}

// InsightKind identifies the observation an insight captures
type InsightKind string

const (
	InsightBestTime        InsightKind = "best_time"
	InsightLearningPattern InsightKind = "learning_pattern"
	InsightPace            InsightKind = "pace_recommendation"
	InsightSubjectStrength InsightKind = "subject_strength"
)

// Insight represents the latest synthesized observation of one kind for a
// child. Exactly one row exists per (child, kind); re-synthesis overwrites
// it in place. Insights are a latest-value cache, not an event log.
type Insight struct {
	ID               int64
	ChildID          int64
	Kind             InsightKind
	Title            string
	Description      string
	Recommendation   string
	Confidence       float64 // [0,1]
	BasedOnQuestions int
	Data             json.RawMessage
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SubjectStrengthData supports InsightSubjectStrength
type SubjectStrengthData struct {
	Subjects []string `json:"subjects"`
}

// Mood labels for the daily summary. Coarser than the frustration alert:
// three wrong in a row already reads as frustrated here.
const (
	MoodEngaged    = "engaged"
	MoodFrustrated = "frustrated"
)

// SubjectStats is the per-subject slice of a daily summary
type SubjectStats struct {
	Completed int     `json:"completed"`
	AvgScore  float64 `json:"avgScore"`
}

// DailySummary is the rolling per-day activity record for a child.
// One row exists per (child, calendar day); a full analysis recomputes
// and overwrites the whole row.
type DailySummary struct {
	ID                int64
	ChildID           int64
	SummaryDate       string // YYYY-MM-DD
	QuestionsAnswered int
	QuestionsCorrect  int
	Accuracy          float64
	LessonsCompleted  int
	CoinsEarned       int
	SubjectBreakdown  map[string]SubjectStats
	StreakMaintained  bool
	MoodDetected      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
