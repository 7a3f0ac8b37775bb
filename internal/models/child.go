package models

import "time"

// Child represents a child profile in the system
type Child struct {
	ID                      int64
	FamilyID                int64
	Name                    string
	Username                string
	Password                string
	GradeLevel              int
	Theme                   string
	Coins                   int
	XP                      int
	Level                   int
	CurrentStreak           int
	LongestStreak           int
	TotalSessions           int
	ConsecutiveWrongAnswers int
	LastActivityAt          *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// DaysSinceActivity returns whole days elapsed since the child's last
// recorded activity, or -1 if the child has never been active.
func (c *Child) DaysSinceActivity(now time.Time) int {
	if c.LastActivityAt == nil {
		return -1
	}
	return int(now.Sub(*c.LastActivityAt).Hours() / 24)
}

// ChildWithProfile combines a child with their learning profile
type ChildWithProfile struct {
	Child   Child
	Profile *LearningProfile
}
