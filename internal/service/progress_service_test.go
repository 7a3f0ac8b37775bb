package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"brightquest/internal/database"
	"brightquest/internal/models"
	"brightquest/internal/monitoring"
	"brightquest/internal/repository"
)

func TestNextStreak(t *testing.T) {
	now := time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	earlierToday := now.Add(-3 * time.Hour)
	lastWeek := now.Add(-7 * 24 * time.Hour)

	tests := []struct {
		name         string
		current      int
		lastActivity *time.Time
		want         int
	}{
		{
			name:         "first ever activity starts a streak",
			current:      0,
			lastActivity: nil,
			want:         1,
		},
		{
			name:         "same day keeps the streak",
			current:      4,
			lastActivity: &earlierToday,
			want:         4,
		},
		{
			name:         "same day never reports zero",
			current:      0,
			lastActivity: &earlierToday,
			want:         1,
		},
		{
			name:         "next day increments",
			current:      4,
			lastActivity: &yesterday,
			want:         5,
		},
		{
			name:         "gap resets to one",
			current:      12,
			lastActivity: &lastWeek,
			want:         1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextStreak(tt.current, tt.lastActivity, now)
			if got != tt.want {
				t.Errorf("nextStreak(%d, %v) = %d, want %d", tt.current, tt.lastActivity, got, tt.want)
			}
		})
	}
}

func TestTrailingWrongRun(t *testing.T) {
	tests := []struct {
		name        string
		answers     []bool
		previousRun int
		want        int
	}{
		{
			name:        "correct ending clears the run",
			answers:     []bool{false, false, true},
			previousRun: 4,
			want:        0,
		},
		{
			name:        "trailing wrongs counted",
			answers:     []bool{true, false, false},
			previousRun: 0,
			want:        2,
		},
		{
			name:        "all wrong extends the previous run",
			answers:     []bool{false, false, false},
			previousRun: 2,
			want:        5,
		},
		{
			name:        "all correct",
			answers:     []bool{true, true},
			previousRun: 3,
			want:        0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := trailingWrongRun(tt.answers, tt.previousRun)
			if got != tt.want {
				t.Errorf("trailingWrongRun(%v, %d) = %d, want %d", tt.answers, tt.previousRun, got, tt.want)
			}
		})
	}
}

func newProgressTestService(t *testing.T) (*ProgressService, *FamilyService, *database.DB) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dbPath := filepath.Join(t.TempDir(), "progress_test.db")
	db, err := database.Initialize(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	familyRepo := repository.NewFamilyRepository(db)
	childRepo := repository.NewChildRepository(db)
	profileRepo := repository.NewLearningProfileRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)

	familyService := NewFamilyService(familyRepo, childRepo, invitationRepo, profileRepo)
	progressService := NewProgressService(childRepo, progressRepo, profileRepo)

	return progressService, familyService, db
}

func TestCompleteLesson(t *testing.T) {
	progressService, familyService, db := newProgressTestService(t)

	userRepo := repository.NewUserRepository(db)
	user, err := userRepo.CreateUser("parent@example.com", "hash", "Pat")
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	family, err := familyService.CreateFamily("Test Family", user.ID)
	if err != nil {
		t.Fatalf("Failed to create family: %v", err)
	}
	child, err := familyService.CreateChild(family.ID, user.ID, "Mia", 3, "space")
	if err != nil {
		t.Fatalf("Failed to create child: %v", err)
	}

	lessonID, err := db.ExecReturningID(
		"INSERT INTO lessons (subject_code, grade_level, title, question_count, coin_reward) VALUES (?, ?, ?, ?, ?)",
		"MATH", 3, "Fractions", 10, 10,
	)
	if err != nil {
		t.Fatalf("Failed to insert lesson: %v", err)
	}

	// 8/10 correct: passing, full coin reward
	answers := []bool{true, true, true, true, true, true, true, true, false, false}
	result, err := progressService.CompleteLesson(child, lessonID, answers)
	if err != nil {
		t.Fatalf("CompleteLesson() error = %v", err)
	}

	if result.Progress.Score != 80 {
		t.Errorf("expected score 80, got %d", result.Progress.Score)
	}
	if result.CoinsEarned != 10 {
		t.Errorf("expected full coin reward 10, got %d", result.CoinsEarned)
	}
	if result.XPEarned != 80 {
		t.Errorf("expected 80 XP, got %d", result.XPEarned)
	}
	if result.NewStreak != 1 {
		t.Errorf("expected streak 1 after first activity, got %d", result.NewStreak)
	}

	updated, err := familyService.GetChild(child.ID)
	if err != nil {
		t.Fatalf("Failed to reload child: %v", err)
	}
	if updated.Coins != 10 {
		t.Errorf("expected child to have 10 coins, got %d", updated.Coins)
	}
	if updated.ConsecutiveWrongAnswers != 2 {
		t.Errorf("expected consecutive wrong run of 2, got %d", updated.ConsecutiveWrongAnswers)
	}
	if updated.LastActivityAt == nil {
		t.Error("expected last activity to be recorded")
	}
}

func TestCompleteLessonFailingScoreHalvesCoins(t *testing.T) {
	progressService, familyService, db := newProgressTestService(t)

	userRepo := repository.NewUserRepository(db)
	user, _ := userRepo.CreateUser("parent@example.com", "hash", "Pat")
	family, _ := familyService.CreateFamily("Test Family", user.ID)
	child, err := familyService.CreateChild(family.ID, user.ID, "Leo", 2, "ocean")
	if err != nil {
		t.Fatalf("Failed to create child: %v", err)
	}

	lessonID, err := db.ExecReturningID(
		"INSERT INTO lessons (subject_code, grade_level, title, question_count, coin_reward) VALUES (?, ?, ?, ?, ?)",
		"READING", 2, "Sight Words", 5, 10,
	)
	if err != nil {
		t.Fatalf("Failed to insert lesson: %v", err)
	}

	// 2/5 correct: below passing, half coins
	result, err := progressService.CompleteLesson(child, lessonID, []bool{true, true, false, false, false})
	if err != nil {
		t.Fatalf("CompleteLesson() error = %v", err)
	}

	if result.Progress.Score != 40 {
		t.Errorf("expected score 40, got %d", result.Progress.Score)
	}
	if result.CoinsEarned != 5 {
		t.Errorf("expected halved coin reward 5, got %d", result.CoinsEarned)
	}
}

func TestCompleteLessonUnknownLesson(t *testing.T) {
	progressService, familyService, db := newProgressTestService(t)

	userRepo := repository.NewUserRepository(db)
	user, _ := userRepo.CreateUser("parent@example.com", "hash", "Pat")
	family, _ := familyService.CreateFamily("Test Family", user.ID)
	child, err := familyService.CreateChild(family.ID, user.ID, "Zoe", 1, "space")
	if err != nil {
		t.Fatalf("Failed to create child: %v", err)
	}

	_, err = progressService.CompleteLesson(child, 99999, []bool{true})
	if err != ErrLessonNotFound {
		t.Errorf("expected ErrLessonNotFound, got %v", err)
	}
}

func TestResetInactiveStreaks(t *testing.T) {
	progressService, familyService, db := newProgressTestService(t)

	userRepo := repository.NewUserRepository(db)
	user, _ := userRepo.CreateUser("parent@example.com", "hash", "Pat")
	family, _ := familyService.CreateFamily("Test Family", user.ID)
	lapsed, err := familyService.CreateChild(family.ID, user.ID, "Ava", 4, "jungle")
	if err != nil {
		t.Fatalf("Failed to create child: %v", err)
	}
	active, err := familyService.CreateChild(family.ID, user.ID, "Ben", 2, "ocean")
	if err != nil {
		t.Fatalf("Failed to create child: %v", err)
	}

	threeDaysAgo := time.Now().Add(-72 * time.Hour)
	if _, err := db.Exec(
		"UPDATE children SET current_streak = 6, longest_streak = 6, total_sessions = 8, last_activity_at = ? WHERE id = ?",
		threeDaysAgo, lapsed.ID,
	); err != nil {
		t.Fatalf("Failed to prepare lapsed child: %v", err)
	}
	if _, err := db.Exec(
		"UPDATE children SET current_streak = 2, total_sessions = 8, last_activity_at = ? WHERE id = ?",
		time.Now().Add(-2*time.Hour), active.ID,
	); err != nil {
		t.Fatalf("Failed to prepare active child: %v", err)
	}

	if err := progressService.ResetInactiveStreaks(); err != nil {
		t.Fatalf("ResetInactiveStreaks() error = %v", err)
	}

	reloaded, err := familyService.GetChild(lapsed.ID)
	if err != nil {
		t.Fatalf("Failed to reload child: %v", err)
	}
	if reloaded.CurrentStreak != 0 {
		t.Errorf("expected lapsed streak reset to 0, got %d", reloaded.CurrentStreak)
	}

	stillActive, err := familyService.GetChild(active.ID)
	if err != nil {
		t.Fatalf("Failed to reload child: %v", err)
	}
	if stillActive.CurrentStreak != 2 {
		t.Errorf("expected active streak untouched at 2, got %d", stillActive.CurrentStreak)
	}
}

func TestResetInactiveStreaksUnlocksStreakBrokenAlert(t *testing.T) {
	progressService, familyService, db := newProgressTestService(t)

	userRepo := repository.NewUserRepository(db)
	user, _ := userRepo.CreateUser("parent@example.com", "hash", "Pat")
	family, _ := familyService.CreateFamily("Test Family", user.ID)
	child, err := familyService.CreateChild(family.ID, user.ID, "Ava", 4, "jungle")
	if err != nil {
		t.Fatalf("Failed to create child: %v", err)
	}

	// An established child who stopped practicing three days ago. The streak
	// column still holds its last value until the maintenance pass runs.
	threeDaysAgo := time.Now().Add(-72 * time.Hour)
	if _, err := db.Exec(
		"UPDATE children SET current_streak = 6, longest_streak = 6, total_sessions = 8, last_activity_at = ? WHERE id = ?",
		threeDaysAgo, child.ID,
	); err != nil {
		t.Fatalf("Failed to prepare child: %v", err)
	}

	if err := progressService.ResetInactiveStreaks(); err != nil {
		t.Fatalf("ResetInactiveStreaks() error = %v", err)
	}

	childRepo := repository.NewChildRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	profileRepo := repository.NewLearningProfileRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	monitoringRepo := repository.NewMonitoringRepository(db)
	emailService, err := NewEmailService("us-east-1", "", "BrightQuest", "http://localhost:8080", false)
	if err != nil {
		t.Fatalf("Failed to create email service: %v", err)
	}
	monitoringService := NewMonitoringService(childRepo, profileRepo, progressRepo, monitoringRepo, familyRepo, userRepo, emailService)

	report, err := monitoringService.RunAnalysis(context.Background(), child.ID, monitoring.ActionScan)
	if err != nil {
		t.Fatalf("RunAnalysis() error = %v", err)
	}
	if report.AlertsGenerated == 0 {
		t.Fatal("expected the analysis pass to generate alerts for a lapsed child")
	}

	alerts, err := monitoringRepo.GetChildAlerts(child.ID, 50)
	if err != nil {
		t.Fatalf("Failed to load alerts: %v", err)
	}
	found := false
	for _, alert := range alerts {
		if alert.Kind == models.AlertStreakBroken {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a streak_broken alert after the reset, got %d alerts", len(alerts))
	}
}

func TestRecordWeeklyTestValidatesScore(t *testing.T) {
	progressService, _, _ := newProgressTestService(t)

	if _, err := progressService.RecordWeeklyTest(1, "MATH", 101); err == nil {
		t.Error("expected error for score above 100")
	}
	if _, err := progressService.RecordWeeklyTest(1, "MATH", -1); err == nil {
		t.Error("expected error for negative score")
	}
}
