package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"brightquest/internal/database"
	"brightquest/internal/models"
)

// LearningProfileRepository handles database operations for learning profiles.
// Profiles are produced by the learning-analytics pipeline; the application
// reads them and only touches the running question totals.
type LearningProfileRepository struct {
	db *database.DB
}

// NewLearningProfileRepository creates a new learning profile repository
func NewLearningProfileRepository(db *database.DB) *LearningProfileRepository {
	return &LearningProfileRepository{db: db}
}

// GetByChildID retrieves the learning profile for a child, or nil if the
// analytics pipeline has not produced one yet
func (r *LearningProfileRepository) GetByChildID(childID int64) (*models.LearningProfile, error) {
	query := `
		SELECT id, child_id, overall_accuracy, total_questions_answered,
			total_questions_correct, weakest_subjects, strongest_subjects,
			preferred_pace, best_time_of_day, primary_learning_style,
			learning_style_confidence, created_at, updated_at
		FROM learning_profiles
		WHERE child_id = ?
	`
	profile := &models.LearningProfile{}
	var weakest, strongest string
	err := r.db.QueryRow(query, childID).Scan(
		&profile.ID,
		&profile.ChildID,
		&profile.OverallAccuracy,
		&profile.TotalQuestionsAnswered,
		&profile.TotalQuestionsCorrect,
		&weakest,
		&strongest,
		&profile.PreferredPace,
		&profile.BestTimeOfDay,
		&profile.PrimaryLearningStyle,
		&profile.LearningStyleConfidence,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get learning profile: %w", err)
	}

	if err := json.Unmarshal([]byte(weakest), &profile.WeakestSubjects); err != nil {
		return nil, fmt.Errorf("failed to decode weakest subjects: %w", err)
	}
	if err := json.Unmarshal([]byte(strongest), &profile.StrongestSubjects); err != nil {
		return nil, fmt.Errorf("failed to decode strongest subjects: %w", err)
	}

	return profile, nil
}

// EnsureProfile creates an empty profile row for a child if none exists
func (r *LearningProfileRepository) EnsureProfile(childID int64) error {
	existing, err := r.GetByChildID(childID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	query := "INSERT INTO learning_profiles (child_id) VALUES (?)"
	if _, err := r.db.Exec(query, childID); err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("failed to create learning profile: %w", err)
	}
	return nil
}

// AddQuestionResults folds a completed lesson's question results into the
// profile's running totals and recomputes the overall accuracy
func (r *LearningProfileRepository) AddQuestionResults(childID int64, answered, correct int) error {
	var totalAnswered, totalCorrect int
	query := "SELECT total_questions_answered, total_questions_correct FROM learning_profiles WHERE child_id = ?"
	if err := r.db.QueryRow(query, childID).Scan(&totalAnswered, &totalCorrect); err != nil {
		return fmt.Errorf("failed to read question totals: %w", err)
	}

	totalAnswered += answered
	totalCorrect += correct
	accuracy := 0.0
	if totalAnswered > 0 {
		accuracy = float64(totalCorrect) / float64(totalAnswered)
	}

	update := `
		UPDATE learning_profiles SET
			total_questions_answered = ?,
			total_questions_correct = ?,
			overall_accuracy = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE child_id = ?
	`
	if _, err := r.db.Exec(update, totalAnswered, totalCorrect, accuracy, childID); err != nil {
		return fmt.Errorf("failed to update question totals: %w", err)
	}
	return nil
}
