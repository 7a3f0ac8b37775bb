package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"brightquest/internal/models"
	"brightquest/internal/repository"
)

var ErrLessonNotFound = errors.New("lesson not found")

const (
	passingScore = 60
	xpPerLevel   = 500
)

// LessonResult is what a child earned from one completed lesson
type LessonResult struct {
	Progress    *models.LessonProgress
	CoinsEarned int
	XPEarned    int
	NewStreak   int
	NewLevel    int
}

// ProgressService handles lesson completion and the gameplay bookkeeping
// around it: scores, coins, streaks and the learning-profile counters the
// monitoring engine reads.
type ProgressService struct {
	childRepo    *repository.ChildRepository
	progressRepo *repository.ProgressRepository
	profileRepo  *repository.LearningProfileRepository
}

// NewProgressService creates a new progress service
func NewProgressService(childRepo *repository.ChildRepository, progressRepo *repository.ProgressRepository, profileRepo *repository.LearningProfileRepository) *ProgressService {
	return &ProgressService{
		childRepo:    childRepo,
		progressRepo: progressRepo,
		profileRepo:  profileRepo,
	}
}

// GetLessonsForChild lists the lessons at the child's grade level
func (s *ProgressService) GetLessonsForChild(child *models.Child) ([]models.Lesson, error) {
	lessons, err := s.progressRepo.GetLessonsForGrade(child.GradeLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to get lessons: %w", err)
	}
	return lessons, nil
}

// CompleteLesson records one finished lesson. answers holds the per-question
// outcomes in order; everything else is derived from them.
func (s *ProgressService) CompleteLesson(child *models.Child, lessonID int64, answers []bool) (*LessonResult, error) {
	if len(answers) == 0 {
		return nil, errors.New("a completed lesson needs at least one answer")
	}

	lesson, err := s.progressRepo.GetLessonByID(lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	if lesson == nil {
		return nil, ErrLessonNotFound
	}

	correct := 0
	for _, ok := range answers {
		if ok {
			correct++
		}
	}
	score := correct * 100 / len(answers)

	coins := lesson.CoinReward
	if score < passingScore {
		coins = lesson.CoinReward / 2
	}

	now := time.Now()
	xp := score
	newLevel := (child.XP+xp)/xpPerLevel + 1
	newStreak := nextStreak(child.CurrentStreak, child.LastActivityAt, now)
	longest := child.LongestStreak
	if newStreak > longest {
		longest = newStreak
	}

	progress, err := s.progressRepo.RecordCompletion(child.ID, lesson.ID, lesson.SubjectCode, score, coins, now)
	if err != nil {
		return nil, fmt.Errorf("failed to record lesson completion: %w", err)
	}

	wrongRun := trailingWrongRun(answers, child.ConsecutiveWrongAnswers)
	if err := s.childRepo.RecordActivity(child.ID, coins, xp, newLevel, newStreak, longest, wrongRun, now); err != nil {
		return nil, fmt.Errorf("failed to record activity: %w", err)
	}

	if err := s.profileRepo.AddQuestionResults(child.ID, len(answers), correct); err != nil {
		return nil, fmt.Errorf("failed to update learning profile: %w", err)
	}

	return &LessonResult{
		Progress:    progress,
		CoinsEarned: coins,
		XPEarned:    xp,
		NewStreak:   newStreak,
		NewLevel:    newLevel,
	}, nil
}

// RecordWeeklyTest records one weekly assessment result
func (s *ProgressService) RecordWeeklyTest(childID int64, subjectCode string, score int) (*models.WeeklyTestResult, error) {
	if score < 0 || score > 100 {
		return nil, errors.New("score must be between 0 and 100")
	}

	result, err := s.progressRepo.RecordTestResult(childID, subjectCode, score, score >= passingScore, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to record test result: %w", err)
	}
	return result, nil
}

// GetRecentProgress lists a child's latest lesson completions, newest first
func (s *ProgressService) GetRecentProgress(childID int64, limit int) ([]models.LessonProgress, error) {
	progress, err := s.progressRepo.GetRecentProgress(childID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent progress: %w", err)
	}
	return progress, nil
}

// ResetInactiveStreaks zeroes the streak of any child whose last activity
// was before yesterday, so a lapsed streak reads as broken instead of
// staying frozen at its last value. Run daily from the cleanup loop.
func (s *ProgressService) ResetInactiveStreaks() error {
	children, err := s.childRepo.GetChildrenWithActiveStreaks()
	if err != nil {
		return fmt.Errorf("failed to list children with streaks: %w", err)
	}

	cutoff := time.Now().Add(-48 * time.Hour)
	for _, child := range children {
		if child.LastActivityAt == nil || !child.LastActivityAt.Before(cutoff) {
			continue
		}
		if err := s.childRepo.ResetStreak(child.ID); err != nil {
			log.Printf("warning: failed to reset streak for child %d: %v", child.ID, err)
		}
	}
	return nil
}

// nextStreak advances the daily practice streak: same UTC day keeps it,
// the next day extends it, any longer gap starts over at one.
func nextStreak(current int, lastActivity *time.Time, now time.Time) int {
	if lastActivity == nil {
		return 1
	}

	lastDay := lastActivity.UTC().Truncate(24 * time.Hour)
	today := now.UTC().Truncate(24 * time.Hour)
	switch int(today.Sub(lastDay).Hours() / 24) {
	case 0:
		if current < 1 {
			return 1
		}
		return current
	case 1:
		return current + 1
	default:
		return 1
	}
}

// trailingWrongRun is the child's wrong-in-a-row count after the lesson: the
// run of wrong answers at the end, extended by the previous run when the
// whole lesson was wrong.
func trailingWrongRun(answers []bool, previousRun int) int {
	run := 0
	for i := len(answers) - 1; i >= 0; i-- {
		if answers[i] {
			return run
		}
		run++
	}
	return previousRun + run
}
