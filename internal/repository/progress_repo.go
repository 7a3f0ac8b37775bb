package repository

import (
	"database/sql"
	"fmt"
	"time"

	"brightquest/internal/database"
	"brightquest/internal/models"
)

// ProgressRepository handles database operations for lessons, lesson
// completions and weekly test results
type ProgressRepository struct {
	db *database.DB
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db *database.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// GetLessonByID retrieves a lesson by ID
func (r *ProgressRepository) GetLessonByID(lessonID int64) (*models.Lesson, error) {
	query := `
		SELECT id, subject_code, grade_level, title, question_count, coin_reward, created_at
		FROM lessons
		WHERE id = ?
	`
	lesson := &models.Lesson{}
	err := r.db.QueryRow(query, lessonID).Scan(
		&lesson.ID,
		&lesson.SubjectCode,
		&lesson.GradeLevel,
		&lesson.Title,
		&lesson.QuestionCount,
		&lesson.CoinReward,
		&lesson.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	return lesson, nil
}

// GetLessonsForGrade retrieves all lessons for a grade level
func (r *ProgressRepository) GetLessonsForGrade(gradeLevel int) ([]models.Lesson, error) {
	query := `
		SELECT id, subject_code, grade_level, title, question_count, coin_reward, created_at
		FROM lessons
		WHERE grade_level = ?
		ORDER BY subject_code ASC, id ASC
	`
	rows, err := r.db.Query(query, gradeLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	var lessons []models.Lesson
	for rows.Next() {
		var lesson models.Lesson
		if err := rows.Scan(
			&lesson.ID,
			&lesson.SubjectCode,
			&lesson.GradeLevel,
			&lesson.Title,
			&lesson.QuestionCount,
			&lesson.CoinReward,
			&lesson.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		lessons = append(lessons, lesson)
	}

	return lessons, rows.Err()
}

// RecordCompletion inserts a completed lesson for a child
func (r *ProgressRepository) RecordCompletion(childID, lessonID int64, subjectCode string, score, coinsEarned int, completedAt time.Time) (*models.LessonProgress, error) {
	query := `
		INSERT INTO lesson_progress (child_id, lesson_id, subject_code, score, coins_earned, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, childID, lessonID, subjectCode, score, coinsEarned, completedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record lesson completion: %w", err)
	}

	return &models.LessonProgress{
		ID:          id,
		ChildID:     childID,
		LessonID:    lessonID,
		SubjectCode: subjectCode,
		Score:       score,
		CoinsEarned: coinsEarned,
		CompletedAt: completedAt,
	}, nil
}

// GetRecentProgress retrieves the most recent completed lessons for a child,
// newest first
func (r *ProgressRepository) GetRecentProgress(childID int64, limit int) ([]models.LessonProgress, error) {
	query := `
		SELECT id, child_id, lesson_id, subject_code, score, coins_earned, completed_at
		FROM lesson_progress
		WHERE child_id = ?
		ORDER BY completed_at DESC
		LIMIT ?
	`
	return r.queryProgress(query, childID, limit)
}

// GetProgressBetween retrieves completed lessons for a child within
// [start, end], newest first
func (r *ProgressRepository) GetProgressBetween(childID int64, start, end time.Time) ([]models.LessonProgress, error) {
	query := `
		SELECT id, child_id, lesson_id, subject_code, score, coins_earned, completed_at
		FROM lesson_progress
		WHERE child_id = ? AND completed_at >= ? AND completed_at <= ?
		ORDER BY completed_at DESC
	`
	return r.queryProgress(query, childID, start, end)
}

func (r *ProgressRepository) queryProgress(query string, args ...interface{}) ([]models.LessonProgress, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lesson progress: %w", err)
	}
	defer rows.Close()

	var records []models.LessonProgress
	for rows.Next() {
		var record models.LessonProgress
		if err := rows.Scan(
			&record.ID,
			&record.ChildID,
			&record.LessonID,
			&record.SubjectCode,
			&record.Score,
			&record.CoinsEarned,
			&record.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lesson progress: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// RecordTestResult inserts a completed weekly test for a child
func (r *ProgressRepository) RecordTestResult(childID int64, subjectCode string, score int, passed bool, takenAt time.Time) (*models.WeeklyTestResult, error) {
	query := `
		INSERT INTO weekly_test_results (child_id, subject_code, score, passed, taken_at)
		VALUES (?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, childID, subjectCode, score, passed, takenAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record test result: %w", err)
	}

	return &models.WeeklyTestResult{
		ID:          id,
		ChildID:     childID,
		SubjectCode: subjectCode,
		Score:       score,
		Passed:      passed,
		TakenAt:     takenAt,
	}, nil
}

// GetRecentTestResults retrieves the most recent weekly test results for a
// child, newest first
func (r *ProgressRepository) GetRecentTestResults(childID int64, limit int) ([]models.WeeklyTestResult, error) {
	query := `
		SELECT id, child_id, subject_code, score, passed, taken_at
		FROM weekly_test_results
		WHERE child_id = ?
		ORDER BY taken_at DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, childID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query test results: %w", err)
	}
	defer rows.Close()

	var results []models.WeeklyTestResult
	for rows.Next() {
		var result models.WeeklyTestResult
		if err := rows.Scan(
			&result.ID,
			&result.ChildID,
			&result.SubjectCode,
			&result.Score,
			&result.Passed,
			&result.TakenAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan test result: %w", err)
		}
		results = append(results, result)
	}

	return results, rows.Err()
}
