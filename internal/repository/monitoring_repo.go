package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"brightquest/internal/database"
	"brightquest/internal/models"
	"brightquest/internal/monitoring"
)

// MonitoringRepository handles database operations for monitoring alerts,
// insights and daily summaries
type MonitoringRepository struct {
	db *database.DB
}

// NewMonitoringRepository creates a new monitoring repository
func NewMonitoringRepository(db *database.DB) *MonitoringRepository {
	return &MonitoringRepository{db: db}
}

// AlertExistsSince reports whether an alert of the given kind exists for the
// child created at or after the cutoff
func (r *MonitoringRepository) AlertExistsSince(childID int64, kind models.AlertKind, cutoff time.Time) (bool, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM monitoring_alerts
		WHERE child_id = ? AND alert_type = ? AND created_at >= ?
	`
	err := r.db.QueryRow(query, childID, string(kind), cutoff).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check existing alerts: %w", err)
	}
	return count > 0, nil
}

// InsertAlert persists a new alert. The unique index on
// (child_id, alert_type, dedup_bucket) is the hard backstop against
// concurrent passes double-inserting; a violation is reported as
// monitoring.ErrDuplicateAlert so callers can treat it as suppression.
func (r *MonitoringRepository) InsertAlert(alert *models.Alert) error {
	data := alert.Data
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}

	query := `
		INSERT INTO monitoring_alerts
			(child_id, family_id, alert_type, severity, title, message, subject_code, data, dedup_bucket, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		alert.ChildID,
		alert.FamilyID,
		string(alert.Kind),
		string(alert.Severity),
		alert.Title,
		alert.Message,
		alert.SubjectCode,
		string(data),
		dedupBucket(alert.Kind, alert.CreatedAt),
		alert.CreatedAt,
	)
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return monitoring.ErrDuplicateAlert
		}
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	alert.ID = id
	return nil
}

// dedupBucket returns the time-bucket component of the alert dedup index.
// Celebration alerts are limited to one per trailing seven days, so they
// bucket by ISO week; everything else buckets by calendar day.
func dedupBucket(kind models.AlertKind, t time.Time) string {
	if kind == models.AlertCelebration {
		year, week := t.UTC().ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	}
	return t.UTC().Format("2006-01-02")
}

// GetChildAlerts retrieves recent alerts for a child, newest first
func (r *MonitoringRepository) GetChildAlerts(childID int64, limit int) ([]models.Alert, error) {
	query := `
		SELECT id, child_id, family_id, alert_type, severity, title, message,
			subject_code, data, is_read, is_dismissed, created_at
		FROM monitoring_alerts
		WHERE child_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	return r.queryAlerts(query, childID, limit)
}

// GetFamilyAlerts retrieves recent alerts across a family, newest first
func (r *MonitoringRepository) GetFamilyAlerts(familyID int64, limit int) ([]models.Alert, error) {
	query := `
		SELECT id, child_id, family_id, alert_type, severity, title, message,
			subject_code, data, is_read, is_dismissed, created_at
		FROM monitoring_alerts
		WHERE family_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	return r.queryAlerts(query, familyID, limit)
}

func (r *MonitoringRepository) queryAlerts(query string, args ...interface{}) ([]models.Alert, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var alert models.Alert
		var kind, severity, data string
		if err := rows.Scan(
			&alert.ID,
			&alert.ChildID,
			&alert.FamilyID,
			&kind,
			&severity,
			&alert.Title,
			&alert.Message,
			&alert.SubjectCode,
			&data,
			&alert.IsRead,
			&alert.IsDismissed,
			&alert.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alert.Kind = models.AlertKind(kind)
		alert.Severity = models.Severity(severity)
		alert.Data = json.RawMessage(data)
		alerts = append(alerts, alert)
	}

	return alerts, rows.Err()
}

// CountUnreadFamilyAlerts counts unread, undismissed alerts for a family
func (r *MonitoringRepository) CountUnreadFamilyAlerts(familyID int64) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM monitoring_alerts
		WHERE family_id = ? AND is_read = ? AND is_dismissed = ?
	`
	err := r.db.QueryRow(query, familyID, false, false).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread alerts: %w", err)
	}
	return count, nil
}

// MarkAlertRead marks an alert as read, scoped to the owning family
func (r *MonitoringRepository) MarkAlertRead(alertID, familyID int64) error {
	query := "UPDATE monitoring_alerts SET is_read = ? WHERE id = ? AND family_id = ?"
	_, err := r.db.Exec(query, true, alertID, familyID)
	if err != nil {
		return fmt.Errorf("failed to mark alert read: %w", err)
	}
	return nil
}

// DismissAlert marks an alert as dismissed, scoped to the owning family
func (r *MonitoringRepository) DismissAlert(alertID, familyID int64) error {
	query := "UPDATE monitoring_alerts SET is_dismissed = ? WHERE id = ? AND family_id = ?"
	_, err := r.db.Exec(query, true, alertID, familyID)
	if err != nil {
		return fmt.Errorf("failed to dismiss alert: %w", err)
	}
	return nil
}

// UpsertInsight writes the latest value of an insight for (child, kind):
// overwrite every field if a row exists, insert otherwise
func (r *MonitoringRepository) UpsertInsight(insight *models.Insight) error {
	data := insight.Data
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}

	var existingID int64
	lookup := "SELECT id FROM monitoring_insights WHERE child_id = ? AND insight_type = ?"
	err := r.db.QueryRow(lookup, insight.ChildID, string(insight.Kind)).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to look up insight: %w", err)
	}

	if err == nil {
		update := `
			UPDATE monitoring_insights SET
				title = ?, description = ?, recommendation = ?, confidence = ?,
				based_on_questions = ?, data = ?, is_active = ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`
		if _, err := r.db.Exec(update,
			insight.Title,
			insight.Description,
			insight.Recommendation,
			insight.Confidence,
			insight.BasedOnQuestions,
			string(data),
			true,
			existingID,
		); err != nil {
			return fmt.Errorf("failed to update insight: %w", err)
		}
		insight.ID = existingID
		return nil
	}

	insert := `
		INSERT INTO monitoring_insights
			(child_id, insight_type, title, description, recommendation, confidence, based_on_questions, data, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(insert,
		insight.ChildID,
		string(insight.Kind),
		insight.Title,
		insight.Description,
		insight.Recommendation,
		insight.Confidence,
		insight.BasedOnQuestions,
		string(data),
		true,
	)
	if err != nil {
		return fmt.Errorf("failed to insert insight: %w", err)
	}

	insight.ID = id
	return nil
}

// GetActiveInsights retrieves active insights for a child, highest
// confidence first
func (r *MonitoringRepository) GetActiveInsights(childID int64, limit int) ([]models.Insight, error) {
	query := `
		SELECT id, child_id, insight_type, title, description, recommendation,
			confidence, based_on_questions, data, is_active, created_at, updated_at
		FROM monitoring_insights
		WHERE child_id = ? AND is_active = ?
		ORDER BY confidence DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, childID, true, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query insights: %w", err)
	}
	defer rows.Close()

	var insights []models.Insight
	for rows.Next() {
		var insight models.Insight
		var kind, data string
		if err := rows.Scan(
			&insight.ID,
			&insight.ChildID,
			&kind,
			&insight.Title,
			&insight.Description,
			&insight.Recommendation,
			&insight.Confidence,
			&insight.BasedOnQuestions,
			&data,
			&insight.IsActive,
			&insight.CreatedAt,
			&insight.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		insight.Kind = models.InsightKind(kind)
		insight.Data = json.RawMessage(data)
		insights = append(insights, insight)
	}

	return insights, rows.Err()
}

// UpsertDailySummary fully replaces the summary row for (child, date)
func (r *MonitoringRepository) UpsertDailySummary(summary *models.DailySummary) error {
	breakdown, err := json.Marshal(summary.SubjectBreakdown)
	if err != nil {
		return fmt.Errorf("failed to encode subject breakdown: %w", err)
	}

	var existingID int64
	lookup := "SELECT id FROM daily_summaries WHERE child_id = ? AND summary_date = ?"
	err = r.db.QueryRow(lookup, summary.ChildID, summary.SummaryDate).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to look up daily summary: %w", err)
	}

	if err == nil {
		update := `
			UPDATE daily_summaries SET
				questions_answered = ?, questions_correct = ?, accuracy = ?,
				lessons_completed = ?, coins_earned = ?, subject_breakdown = ?,
				streak_maintained = ?, mood_detected = ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`
		if _, err := r.db.Exec(update,
			summary.QuestionsAnswered,
			summary.QuestionsCorrect,
			summary.Accuracy,
			summary.LessonsCompleted,
			summary.CoinsEarned,
			string(breakdown),
			summary.StreakMaintained,
			summary.MoodDetected,
			existingID,
		); err != nil {
			return fmt.Errorf("failed to update daily summary: %w", err)
		}
		summary.ID = existingID
		return nil
	}

	insert := `
		INSERT INTO daily_summaries
			(child_id, summary_date, questions_answered, questions_correct, accuracy,
			lessons_completed, coins_earned, subject_breakdown, streak_maintained, mood_detected)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(insert,
		summary.ChildID,
		summary.SummaryDate,
		summary.QuestionsAnswered,
		summary.QuestionsCorrect,
		summary.Accuracy,
		summary.LessonsCompleted,
		summary.CoinsEarned,
		string(breakdown),
		summary.StreakMaintained,
		summary.MoodDetected,
	)
	if err != nil {
		return fmt.Errorf("failed to insert daily summary: %w", err)
	}

	summary.ID = id
	return nil
}

// GetRecentSummaries retrieves the most recent daily summaries for a child,
// newest first
func (r *MonitoringRepository) GetRecentSummaries(childID int64, limit int) ([]models.DailySummary, error) {
	query := `
		SELECT id, child_id, summary_date, questions_answered, questions_correct,
			accuracy, lessons_completed, coins_earned, subject_breakdown,
			streak_maintained, mood_detected, created_at, updated_at
		FROM daily_summaries
		WHERE child_id = ?
		ORDER BY summary_date DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, childID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily summaries: %w", err)
	}
	defer rows.Close()

	var summaries []models.DailySummary
	for rows.Next() {
		var summary models.DailySummary
		var breakdown string
		if err := rows.Scan(
			&summary.ID,
			&summary.ChildID,
			&summary.SummaryDate,
			&summary.QuestionsAnswered,
			&summary.QuestionsCorrect,
			&summary.Accuracy,
			&summary.LessonsCompleted,
			&summary.CoinsEarned,
			&breakdown,
			&summary.StreakMaintained,
			&summary.MoodDetected,
			&summary.CreatedAt,
			&summary.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan daily summary: %w", err)
		}
		if err := json.Unmarshal([]byte(breakdown), &summary.SubjectBreakdown); err != nil {
			return nil, fmt.Errorf("failed to decode subject breakdown: %w", err)
		}
		summaries = append(summaries, summary)
	}

	return summaries, rows.Err()
}
