package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"brightquest/internal/database"
	"brightquest/internal/models"
	"brightquest/internal/repository"
)

// flakyFamilyDirectory fails member lookups for one family and delegates
// the rest to the real repository.
type flakyFamilyDirectory struct {
	inner  familyDirectory
	failID int64
}

func (d *flakyFamilyDirectory) GetFamilyMembers(familyID int64) ([]models.FamilyMember, []models.User, error) {
	if familyID == d.failID {
		return nil, nil, errors.New("member lookup unavailable")
	}
	return d.inner.GetFamilyMembers(familyID)
}

type recordingMailer struct {
	sentTo []string
}

func (m *recordingMailer) IsEnabled() bool { return true }

func (m *recordingMailer) SendUrgentAlertEmail(_ context.Context, toEmail, _, _, _ string) error {
	m.sentTo = append(m.sentTo, toEmail)
	return nil
}

func TestNotifyUrgentAlertsContinuesPastLookupFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dbPath := filepath.Join(t.TempDir(), "monitoring_notify_test.db")
	db, err := database.Initialize(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	childRepo := repository.NewChildRepository(db)
	profileRepo := repository.NewLearningProfileRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	monitoringRepo := repository.NewMonitoringRepository(db)

	familyService := NewFamilyService(familyRepo, childRepo, invitationRepo, profileRepo)

	parent, err := userRepo.CreateUser("parent@example.com", "hash", "Pat")
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	family, err := familyService.CreateFamily("Test Family", parent.ID)
	if err != nil {
		t.Fatalf("Failed to create family: %v", err)
	}
	child, err := familyService.CreateChild(family.ID, parent.ID, "Mia", 3, "space")
	if err != nil {
		t.Fatalf("Failed to create child: %v", err)
	}

	other, err := userRepo.CreateUser("other@example.com", "hash", "Sam")
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	brokenFamily, err := familyService.CreateFamily("Other Family", other.ID)
	if err != nil {
		t.Fatalf("Failed to create family: %v", err)
	}

	emailService, err := NewEmailService("us-east-1", "", "BrightQuest", "http://localhost:8080", false)
	if err != nil {
		t.Fatalf("Failed to create email service: %v", err)
	}
	svc := NewMonitoringService(childRepo, profileRepo, progressRepo, monitoringRepo, familyRepo, userRepo, emailService)

	// Newest alert first: its member lookup fails, and the older alert for
	// the child's own family must still be delivered.
	now := time.Now()
	failing := &models.Alert{
		ChildID:   child.ID,
		FamilyID:  brokenFamily.ID,
		Kind:      models.AlertFrustration,
		Severity:  models.SeverityUrgent,
		Title:     "Mia might be frustrated",
		Message:   "Mia has gotten 6 answers wrong in a row. Consider taking a break or switching subjects.",
		CreatedAt: now,
	}
	if err := monitoringRepo.InsertAlert(failing); err != nil {
		t.Fatalf("InsertAlert() error = %v", err)
	}
	deliverable := &models.Alert{
		ChildID:   child.ID,
		FamilyID:  family.ID,
		Kind:      models.AlertInactive,
		Severity:  models.SeverityUrgent,
		Title:     "Mia hasn't practiced in 8 days",
		Message:   "It's been 8 days since Mia last practiced. Regular practice helps maintain skills!",
		CreatedAt: now.Add(-10 * time.Second),
	}
	if err := monitoringRepo.InsertAlert(deliverable); err != nil {
		t.Fatalf("InsertAlert() error = %v", err)
	}

	svc.familyRepo = &flakyFamilyDirectory{inner: familyRepo, failID: brokenFamily.ID}
	mailer := &recordingMailer{}
	svc.emailService = mailer

	svc.notifyUrgentAlerts(context.Background(), child.ID)

	if len(mailer.sentTo) != 1 {
		t.Fatalf("expected one notification despite the failed lookup, got %d", len(mailer.sentTo))
	}
	if mailer.sentTo[0] != parent.Email {
		t.Errorf("expected notification to %s, got %s", parent.Email, mailer.sentTo[0])
	}
}
