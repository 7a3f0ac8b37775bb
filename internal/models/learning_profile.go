package models

import "time"

// Learning profile enumeration values. The profile is written by the
// learning-analytics pipeline; this application only reads it.
const (
	PaceSlow     = "slow"
	PaceModerate = "moderate"
	PaceFast     = "fast"

	StyleVisual      = "visual"
	StyleAuditory    = "auditory"
	StyleReading     = "reading"
	StyleKinesthetic = "kinesthetic"
)

// LearningProfile holds the current-best understanding of how a child learns
type LearningProfile struct {
	ID                      int64
	ChildID                 int64
	OverallAccuracy         float64 // [0,1]
	TotalQuestionsAnswered  int
	TotalQuestionsCorrect   int
	WeakestSubjects         []string
	StrongestSubjects       []string
	PreferredPace           string
	BestTimeOfDay           string
	PrimaryLearningStyle    string
	LearningStyleConfidence float64 // [0,1]
	CreatedAt               time.Time
	UpdatedAt               time.Time
}
