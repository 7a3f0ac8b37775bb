package monitoring

import "time"

// Thresholds holds the tunable boundaries the analysis detectors evaluate
// against. They are injected into the Engine so tests and future config can
// vary them; production uses DefaultThresholds.
type Thresholds struct {
	// LowAccuracy is the overall accuracy below which a child is flagged
	// as needing help, once MinQuestionsForAccuracy questions are on record.
	LowAccuracy             float64
	MinQuestionsForAccuracy int

	// ConsecutiveWrong is the wrong-in-a-row count that reads as frustration.
	ConsecutiveWrong int

	// InactiveDays triggers an inactivity alert; at UrgentInactiveDays the
	// alert escalates to urgent.
	InactiveDays       int
	UrgentInactiveDays int

	// StrugglingScore is the average score (0-100) below which recent work
	// in a known-weak subject raises a weakness alert.
	StrugglingScore float64

	// CelebrationStreak is the practice-streak length worth celebrating.
	CelebrationStreak int

	// ImprovementRatio is the recent-vs-older score gain (as a fraction of
	// 100 points) worth an improvement alert.
	ImprovementRatio float64

	// MinSessionsForStreakBreak keeps broken-streak alerts away from brand
	// new accounts that never built a habit to break.
	MinSessionsForStreakBreak int

	// FrustratedMoodWrong is the coarser wrong-in-a-row bar the daily
	// summary uses to label mood.
	FrustratedMoodWrong int

	// DedupWindow suppresses a repeat alert of the same kind for a child;
	// celebrations use the longer CelebrationWindow.
	DedupWindow       time.Duration
	CelebrationWindow time.Duration
}

// DefaultThresholds returns the production thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowAccuracy:               0.5,
		MinQuestionsForAccuracy:   20,
		ConsecutiveWrong:          5,
		InactiveDays:              3,
		UrgentInactiveDays:        7,
		StrugglingScore:           60,
		CelebrationStreak:         7,
		ImprovementRatio:          0.15,
		MinSessionsForStreakBreak: 5,
		FrustratedMoodWrong:       3,
		DedupWindow:               24 * time.Hour,
		CelebrationWindow:         7 * 24 * time.Hour,
	}
}
