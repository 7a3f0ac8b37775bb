package models

import "time"

// Lesson represents a curriculum lesson a child can complete
type Lesson struct {
	ID            int64
	SubjectCode   string
	GradeLevel    int
	Title         string
	QuestionCount int
	CoinReward    int
	CreatedAt     time.Time
}

// LessonProgress represents one completed lesson for a child
type LessonProgress struct {
	ID          int64
	ChildID     int64
	LessonID    int64
	SubjectCode string
	Score       int // 0-100
	CoinsEarned int
	CompletedAt time.Time
}

// WeeklyTestResult represents one completed periodic assessment
type WeeklyTestResult struct {
	ID          int64
	ChildID     int64
	SubjectCode string
	Score       int // 0-100
	Passed      bool
	TakenAt     time.Time
}
