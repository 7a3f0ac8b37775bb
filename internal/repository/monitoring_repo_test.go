package repository

import (
	"path/filepath"
	"testing"

	"brightquest/internal/database"
	"brightquest/internal/models"
)

func newMonitoringRepoTest(t *testing.T) (*MonitoringRepository, int64) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dbPath := filepath.Join(t.TempDir(), "monitoring_repo_test.db")
	db, err := database.Initialize(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	user, err := NewUserRepository(db).CreateUser("parent@example.com", "hash", "Pat")
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	family, err := NewFamilyRepository(db).CreateFamily("Test Family", user.ID)
	if err != nil {
		t.Fatalf("Failed to create family: %v", err)
	}
	child, err := NewChildRepository(db).CreateChild(family.ID, "Mia", "brave-fox", "1234", 3, "space")
	if err != nil {
		t.Fatalf("Failed to create child: %v", err)
	}

	return NewMonitoringRepository(db), child.ID
}

func TestUpsertInsightOverwritesInPlace(t *testing.T) {
	repo, childID := newMonitoringRepoTest(t)

	first := &models.Insight{
		ChildID:          childID,
		Kind:             models.InsightBestTime,
		Title:            "Best learning time: morning",
		Description:      "Mia performs best during morning hours.",
		Recommendation:   "Try to schedule practice sessions during morning hours for best results.",
		Confidence:       0.6,
		BasedOnQuestions: 40,
	}
	if err := repo.UpsertInsight(first); err != nil {
		t.Fatalf("UpsertInsight() error = %v", err)
	}

	second := &models.Insight{
		ChildID:          childID,
		Kind:             models.InsightBestTime,
		Title:            "Best learning time: evening",
		Description:      "Mia performs best during evening hours.",
		Recommendation:   "Try to schedule practice sessions during evening hours for best results.",
		Confidence:       0.85,
		BasedOnQuestions: 120,
	}
	if err := repo.UpsertInsight(second); err != nil {
		t.Fatalf("UpsertInsight() error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("expected re-synthesis to reuse row %d, got %d", first.ID, second.ID)
	}

	insights, err := repo.GetActiveInsights(childID, 20)
	if err != nil {
		t.Fatalf("GetActiveInsights() error = %v", err)
	}
	if len(insights) != 1 {
		t.Fatalf("expected exactly one row after re-upserting the same kind, got %d", len(insights))
	}

	got := insights[0]
	if got.Title != second.Title {
		t.Errorf("expected title %q, got %q", second.Title, got.Title)
	}
	if got.Confidence != 0.85 {
		t.Errorf("expected confidence 0.85, got %v", got.Confidence)
	}
	if got.BasedOnQuestions != 120 {
		t.Errorf("expected basedOnQuestions 120, got %d", got.BasedOnQuestions)
	}

	// A different kind for the same child gets its own row.
	pace := &models.Insight{
		ChildID:          childID,
		Kind:             models.InsightPace,
		Title:            "Learning pace: steady",
		Confidence:       0.7,
		BasedOnQuestions: 120,
	}
	if err := repo.UpsertInsight(pace); err != nil {
		t.Fatalf("UpsertInsight() error = %v", err)
	}
	insights, err = repo.GetActiveInsights(childID, 20)
	if err != nil {
		t.Fatalf("GetActiveInsights() error = %v", err)
	}
	if len(insights) != 2 {
		t.Errorf("expected one row per kind, got %d rows", len(insights))
	}
}

func TestUpsertDailySummaryReplacesRow(t *testing.T) {
	repo, childID := newMonitoringRepoTest(t)

	first := &models.DailySummary{
		ChildID:           childID,
		SummaryDate:       "2025-06-15",
		QuestionsAnswered: 40,
		QuestionsCorrect:  28,
		Accuracy:          0.7,
		LessonsCompleted:  2,
		CoinsEarned:       20,
		SubjectBreakdown: map[string]models.SubjectStats{
			"MATH": {Completed: 2, AvgScore: 75},
		},
		StreakMaintained: false,
		MoodDetected:     models.MoodFrustrated,
	}
	if err := repo.UpsertDailySummary(first); err != nil {
		t.Fatalf("UpsertDailySummary() error = %v", err)
	}

	// A later recompute of the same day replaces every field.
	second := &models.DailySummary{
		ChildID:           childID,
		SummaryDate:       "2025-06-15",
		QuestionsAnswered: 55,
		QuestionsCorrect:  47,
		Accuracy:          0.85,
		LessonsCompleted:  4,
		CoinsEarned:       45,
		SubjectBreakdown: map[string]models.SubjectStats{
			"READING": {Completed: 4, AvgScore: 88},
		},
		StreakMaintained: true,
		MoodDetected:     models.MoodEngaged,
	}
	if err := repo.UpsertDailySummary(second); err != nil {
		t.Fatalf("UpsertDailySummary() error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("expected recompute to reuse row %d, got %d", first.ID, second.ID)
	}

	summaries, err := repo.GetRecentSummaries(childID, 7)
	if err != nil {
		t.Fatalf("GetRecentSummaries() error = %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected exactly one row after recomputing the same day, got %d", len(summaries))
	}

	got := summaries[0]
	if got.QuestionsAnswered != 55 || got.QuestionsCorrect != 47 {
		t.Errorf("expected counters 55/47, got %d/%d", got.QuestionsAnswered, got.QuestionsCorrect)
	}
	if got.Accuracy != 0.85 {
		t.Errorf("expected accuracy 0.85, got %v", got.Accuracy)
	}
	if !got.StreakMaintained {
		t.Error("expected streak maintained after recompute")
	}
	if got.MoodDetected != models.MoodEngaged {
		t.Errorf("expected mood %q, got %q", models.MoodEngaged, got.MoodDetected)
	}
	if _, stale := got.SubjectBreakdown["MATH"]; stale {
		t.Error("expected the old subject breakdown to be replaced, not merged")
	}
	want := models.SubjectStats{Completed: 4, AvgScore: 88}
	if got.SubjectBreakdown["READING"] != want {
		t.Errorf("expected READING stats %+v, got %+v", want, got.SubjectBreakdown["READING"])
	}

	// Distinct days keep their own rows.
	other := &models.DailySummary{
		ChildID:          childID,
		SummaryDate:      "2025-06-16",
		SubjectBreakdown: map[string]models.SubjectStats{},
		MoodDetected:     models.MoodEngaged,
	}
	if err := repo.UpsertDailySummary(other); err != nil {
		t.Fatalf("UpsertDailySummary() error = %v", err)
	}
	summaries, err = repo.GetRecentSummaries(childID, 7)
	if err != nil {
		t.Fatalf("GetRecentSummaries() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Errorf("expected one row per day, got %d rows", len(summaries))
	}
}
