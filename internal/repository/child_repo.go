package repository

import (
	"database/sql"
	"fmt"
	"time"

	"brightquest/internal/database"
	"brightquest/internal/models"
)

const childColumns = `id, family_id, name, username, password, grade_level, theme,
	coins, xp, level, current_streak, longest_streak, total_sessions,
	consecutive_wrong_answers, last_activity_at, created_at, updated_at`

// ChildRepository handles database operations for children
type ChildRepository struct {
	db *database.DB
}

// NewChildRepository creates a new child repository
func NewChildRepository(db *database.DB) *ChildRepository {
	return &ChildRepository{db: db}
}

// CreateChild creates a new child profile
func (r *ChildRepository) CreateChild(familyID int64, name, username, password string, gradeLevel int, theme string) (*models.Child, error) {
	query := `INSERT INTO children (family_id, name, username, password, grade_level, theme)
		VALUES (?, ?, ?, ?, ?, ?)`
	childID, err := r.db.ExecReturningID(query, familyID, name, username, password, gradeLevel, theme)
	if err != nil {
		return nil, fmt.Errorf("failed to create child: %w", err)
	}

	return r.GetChildByID(childID)
}

// GetChildByID retrieves a child by ID
func (r *ChildRepository) GetChildByID(childID int64) (*models.Child, error) {
	query := "SELECT " + childColumns + " FROM children WHERE id = ?"
	return r.scanChild(r.db.QueryRow(query, childID))
}

// GetChildByUsername retrieves a child by login username
func (r *ChildRepository) GetChildByUsername(username string) (*models.Child, error) {
	query := "SELECT " + childColumns + " FROM children WHERE username = ?"
	return r.scanChild(r.db.QueryRow(query, username))
}

// GetFamilyChildren retrieves all children in a family
func (r *ChildRepository) GetFamilyChildren(familyID int64) ([]models.Child, error) {
	query := "SELECT " + childColumns + " FROM children WHERE family_id = ? ORDER BY created_at ASC"
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var children []models.Child
	for rows.Next() {
		child, err := r.scanChildRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, *child)
	}

	return children, rows.Err()
}

// UpdateChild updates a child's editable profile fields
func (r *ChildRepository) UpdateChild(childID int64, name string, gradeLevel int, theme string) error {
	query := `UPDATE children SET name = ?, grade_level = ?, theme = ?,
		updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err := r.db.Exec(query, name, gradeLevel, theme, childID)
	if err != nil {
		return fmt.Errorf("failed to update child: %w", err)
	}
	return nil
}

// UpdateChildPassword replaces a child's login password
func (r *ChildRepository) UpdateChildPassword(childID int64, password string) error {
	query := "UPDATE children SET password = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	_, err := r.db.Exec(query, password, childID)
	if err != nil {
		return fmt.Errorf("failed to update child password: %w", err)
	}
	return nil
}

// RecordActivity updates gameplay bookkeeping after a completed lesson:
// coins, xp, streak counters, session count, wrong-answer run and the
// last-activity timestamp
func (r *ChildRepository) RecordActivity(childID int64, coinsDelta, xpDelta, level, currentStreak, longestStreak, consecutiveWrong int, activityAt time.Time) error {
	query := `UPDATE children SET
		coins = coins + ?,
		xp = xp + ?,
		level = ?,
		current_streak = ?,
		longest_streak = ?,
		total_sessions = total_sessions + 1,
		consecutive_wrong_answers = ?,
		last_activity_at = ?,
		updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	_, err := r.db.Exec(query, coinsDelta, xpDelta, level, currentStreak, longestStreak, consecutiveWrong, activityAt, childID)
	if err != nil {
		return fmt.Errorf("failed to record child activity: %w", err)
	}
	return nil
}

// GetChildrenWithActiveStreaks lists every child currently holding a
// nonzero streak, across all families
func (r *ChildRepository) GetChildrenWithActiveStreaks() ([]models.Child, error) {
	query := "SELECT " + childColumns + " FROM children WHERE current_streak > 0"
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query children with streaks: %w", err)
	}
	defer rows.Close()

	var children []models.Child
	for rows.Next() {
		child, err := r.scanChildRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, *child)
	}

	return children, rows.Err()
}

// ResetStreak zeroes a child's current streak
func (r *ChildRepository) ResetStreak(childID int64) error {
	query := "UPDATE children SET current_streak = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	_, err := r.db.Exec(query, childID)
	if err != nil {
		return fmt.Errorf("failed to reset streak: %w", err)
	}
	return nil
}

// DeleteChild deletes a child profile
func (r *ChildRepository) DeleteChild(childID int64) error {
	query := "DELETE FROM children WHERE id = ?"
	_, err := r.db.Exec(query, childID)
	if err != nil {
		return fmt.Errorf("failed to delete child: %w", err)
	}
	return nil
}

// CreateChildSession stores a new login session for a child
func (r *ChildRepository) CreateChildSession(sessionID string, childID int64, expiresAt time.Time) error {
	query := "INSERT INTO child_sessions (id, child_id, expires_at) VALUES (?, ?, ?)"
	_, err := r.db.Exec(query, sessionID, childID, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to create child session: %w", err)
	}
	return nil
}

// GetChildSession returns the child ID behind an unexpired session, or 0
// when the session is missing or expired
func (r *ChildRepository) GetChildSession(sessionID string) (int64, error) {
	var childID int64
	var expiresAt time.Time
	query := "SELECT child_id, expires_at FROM child_sessions WHERE id = ?"
	err := r.db.QueryRow(query, sessionID).Scan(&childID, &expiresAt)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get child session: %w", err)
	}
	if time.Now().After(expiresAt) {
		_, _ = r.db.Exec("DELETE FROM child_sessions WHERE id = ?", sessionID)
		return 0, nil
	}
	return childID, nil
}

// DeleteChildSession removes a child session
func (r *ChildRepository) DeleteChildSession(sessionID string) error {
	_, err := r.db.Exec("DELETE FROM child_sessions WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete child session: %w", err)
	}
	return nil
}

// DeleteExpiredChildSessions removes child sessions past their expiry
func (r *ChildRepository) DeleteExpiredChildSessions() error {
	_, err := r.db.Exec("DELETE FROM child_sessions WHERE expires_at < ?", time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete expired child sessions: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *ChildRepository) scanChild(row *sql.Row) (*models.Child, error) {
	child, err := r.scanChildRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	return child, nil
}

func (r *ChildRepository) scanChildRow(row rowScanner) (*models.Child, error) {
	child := &models.Child{}
	var lastActivity sql.NullTime
	err := row.Scan(
		&child.ID,
		&child.FamilyID,
		&child.Name,
		&child.Username,
		&child.Password,
		&child.GradeLevel,
		&child.Theme,
		&child.Coins,
		&child.XP,
		&child.Level,
		&child.CurrentStreak,
		&child.LongestStreak,
		&child.TotalSessions,
		&child.ConsecutiveWrongAnswers,
		&lastActivity,
		&child.CreatedAt,
		&child.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastActivity.Valid {
		child.LastActivityAt = &lastActivity.Time
	}
	return child, nil
}
