package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"brightquest/internal/models"
	"brightquest/internal/monitoring"
	"brightquest/internal/repository"
)

const (
	alertFetchLimit   = 50
	insightFetchLimit = 20
	summaryFetchLimit = 7
	snapshotProgress  = 20
	snapshotTests     = 5
)

// familyDirectory is the member lookup the urgent-alert notifier needs
type familyDirectory interface {
	GetFamilyMembers(familyID int64) ([]models.FamilyMember, []models.User, error)
}

// alertMailer is the slice of EmailService the urgent-alert notifier needs
type alertMailer interface {
	IsEnabled() bool
	SendUrgentAlertEmail(ctx context.Context, toEmail, toName, alertTitle, alertMessage string) error
}

// MonitoringService runs analysis passes and serves monitoring data to the
// dashboard. It is the storage adapter between the analysis engine and the
// repositories.
type MonitoringService struct {
	childRepo      *repository.ChildRepository
	profileRepo    *repository.LearningProfileRepository
	progressRepo   *repository.ProgressRepository
	monitoringRepo *repository.MonitoringRepository
	familyRepo     familyDirectory
	userRepo       *repository.UserRepository
	emailService   alertMailer

	engine *monitoring.Engine
}

// NewMonitoringService creates a monitoring service and its engine
func NewMonitoringService(
	childRepo *repository.ChildRepository,
	profileRepo *repository.LearningProfileRepository,
	progressRepo *repository.ProgressRepository,
	monitoringRepo *repository.MonitoringRepository,
	familyRepo *repository.FamilyRepository,
	userRepo *repository.UserRepository,
	emailService *EmailService,
) *MonitoringService {
	s := &MonitoringService{
		childRepo:      childRepo,
		profileRepo:    profileRepo,
		progressRepo:   progressRepo,
		monitoringRepo: monitoringRepo,
		familyRepo:     familyRepo,
		userRepo:       userRepo,
		emailService:   emailService,
	}
	s.engine = monitoring.NewEngine(s, monitoringRepo, monitoringRepo, monitoringRepo, monitoring.DefaultThresholds())
	return s
}

// ReadSnapshot loads the analysis input for a child
func (s *MonitoringService) ReadSnapshot(childID int64) (*monitoring.Snapshot, error) {
	child, err := s.childRepo.GetChildByID(childID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil {
		return nil, monitoring.ErrChildNotFound
	}

	profile, err := s.profileRepo.GetByChildID(childID)
	if err != nil {
		return nil, fmt.Errorf("failed to get learning profile: %w", err)
	}

	progress, err := s.progressRepo.GetRecentProgress(childID, snapshotProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent progress: %w", err)
	}

	tests, err := s.progressRepo.GetRecentTestResults(childID, snapshotTests)
	if err != nil {
		return nil, fmt.Errorf("failed to get test results: %w", err)
	}

	return &monitoring.Snapshot{
		Child:          *child,
		Profile:        profile,
		RecentProgress: progress,
		TestResults:    tests,
	}, nil
}

// ReadDayProgress returns lesson completions for the UTC calendar day
// containing the given time
func (s *MonitoringService) ReadDayProgress(childID int64, day time.Time) ([]models.LessonProgress, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)
	return s.progressRepo.GetProgressBetween(childID, start, end)
}

// RunAnalysis runs one monitoring pass for a child and notifies family
// admins by email about newly urgent conditions.
func (s *MonitoringService) RunAnalysis(ctx context.Context, childID int64, action monitoring.Action) (*monitoring.Report, error) {
	report, err := s.engine.Analyze(childID, action)
	if err != nil {
		return nil, err
	}

	s.notifyUrgentAlerts(ctx, childID)
	return report, nil
}

// notifyUrgentAlerts emails parents about unread urgent alerts created in
// the last pass. Email problems never fail the analysis.
func (s *MonitoringService) notifyUrgentAlerts(ctx context.Context, childID int64) {
	if s.emailService == nil || !s.emailService.IsEnabled() {
		return
	}

	alerts, err := s.monitoringRepo.GetChildAlerts(childID, alertFetchLimit)
	if err != nil {
		log.Printf("monitoring: failed to load alerts for notification: %v", err)
		return
	}

	cutoff := time.Now().Add(-time.Minute)
	for _, alert := range alerts {
		if alert.Severity != models.SeverityUrgent || alert.IsRead || alert.CreatedAt.Before(cutoff) {
			continue
		}

		members, users, err := s.familyRepo.GetFamilyMembers(alert.FamilyID)
		if err != nil {
			log.Printf("monitoring: failed to load family members for alert %d: %v", alert.ID, err)
			continue
		}
		for i, member := range members {
			if member.Role != "admin" {
				continue
			}
			user := users[i]
			if err := s.emailService.SendUrgentAlertEmail(ctx, user.Email, user.Name, alert.Title, alert.Message); err != nil {
				log.Printf("monitoring: failed to email urgent alert %d to %s: %v", alert.ID, user.Email, err)
			}
		}
	}
}

// ChildAlerts lists recent alerts for a child, newest first
func (s *MonitoringService) ChildAlerts(childID int64) ([]models.Alert, error) {
	return s.monitoringRepo.GetChildAlerts(childID, alertFetchLimit)
}

// FamilyAlerts lists recent alerts across a family, newest first
func (s *MonitoringService) FamilyAlerts(familyID int64) ([]models.Alert, error) {
	return s.monitoringRepo.GetFamilyAlerts(familyID, alertFetchLimit)
}

// UnreadAlertCount counts a family's unread, undismissed alerts
func (s *MonitoringService) UnreadAlertCount(familyID int64) (int, error) {
	return s.monitoringRepo.CountUnreadFamilyAlerts(familyID)
}

// MarkAlertRead marks an alert read on behalf of a family member
func (s *MonitoringService) MarkAlertRead(alertID, familyID int64) error {
	return s.monitoringRepo.MarkAlertRead(alertID, familyID)
}

// DismissAlert dismisses an alert on behalf of a family member
func (s *MonitoringService) DismissAlert(alertID, familyID int64) error {
	return s.monitoringRepo.DismissAlert(alertID, familyID)
}

// ActiveInsights lists a child's active insights, highest confidence first
func (s *MonitoringService) ActiveInsights(childID int64) ([]models.Insight, error) {
	return s.monitoringRepo.GetActiveInsights(childID, insightFetchLimit)
}

// RecentSummaries lists the last week of daily summaries for a child
func (s *MonitoringService) RecentSummaries(childID int64) ([]models.DailySummary, error) {
	return s.monitoringRepo.GetRecentSummaries(childID, summaryFetchLimit)
}

// ChildOverview returns the dashboard overview for one child
func (s *MonitoringService) ChildOverview(childID int64) (*models.ChildWithProfile, error) {
	child, err := s.childRepo.GetChildByID(childID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil {
		return nil, ErrChildNotFound
	}

	profile, err := s.profileRepo.GetByChildID(childID)
	if err != nil {
		return nil, fmt.Errorf("failed to get learning profile: %w", err)
	}

	return &models.ChildWithProfile{Child: *child, Profile: profile}, nil
}
