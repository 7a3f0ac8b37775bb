package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"brightquest/internal/database"
	"brightquest/internal/models"
	"brightquest/internal/repository"
	"brightquest/internal/service"
)

type monitoringTestEnv struct {
	handler        *MonitoringHandler
	monitoringRepo *repository.MonitoringRepository
	user           *models.User
	family         *models.Family
	child          *models.Child
}

func newMonitoringTestEnv(t *testing.T) *monitoringTestEnv {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dbPath := filepath.Join(t.TempDir(), "monitoring_test.db")
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
	monitoringRepo := repository.NewMonitoringRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)

	// Empty from-address keeps email delivery disabled in tests
	emailService, err := service.NewEmailService("us-east-1", "", "BrightQuest", "http://localhost:8080", false)
	if err != nil {
		t.Fatalf("Failed to create email service: %v", err)
	}

	familyService := service.NewFamilyService(familyRepo, childRepo, invitationRepo, profileRepo)
	monitoringService := service.NewMonitoringService(childRepo, profileRepo, progressRepo, monitoringRepo, familyRepo, userRepo, emailService)

	user, err := userRepo.CreateUser("parent@example.com", "not-a-real-hash", "Pat")
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

	return &monitoringTestEnv{
		handler:        NewMonitoringHandler(monitoringService, familyService),
		monitoringRepo: monitoringRepo,
		user:           user,
		family:         family,
		child:          child,
	}
}

func (env *monitoringTestEnv) request(t *testing.T, method, target, body string) *http.Request {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := context.WithValue(req.Context(), UserContextKey, env.user)
	return req.WithContext(ctx)
}

func TestRunAnalysisRequiresChildID(t *testing.T) {
	env := newMonitoringTestEnv(t)

	recorder := httptest.NewRecorder()
	env.handler.RunAnalysis(recorder, env.request(t, "POST", "/api/monitoring", `{}`))

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", recorder.Code)
	}
}

func TestRunAnalysisRejectsUnknownAction(t *testing.T) {
	env := newMonitoringTestEnv(t)

	body := `{"childId": ` + strconv.FormatInt(env.child.ID, 10) + `, "action": "bogus"}`
	recorder := httptest.NewRecorder()
	env.handler.RunAnalysis(recorder, env.request(t, "POST", "/api/monitoring", body))

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", recorder.Code)
	}
}

func TestRunAnalysisUnknownChild(t *testing.T) {
	env := newMonitoringTestEnv(t)

	recorder := httptest.NewRecorder()
	env.handler.RunAnalysis(recorder, env.request(t, "POST", "/api/monitoring", `{"childId": 99999}`))

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", recorder.Code)
	}
}

func TestRunAnalysisReportsResults(t *testing.T) {
	env := newMonitoringTestEnv(t)

	body := `{"childId": ` + strconv.FormatInt(env.child.ID, 10) + `}`
	recorder := httptest.NewRecorder()
	env.handler.RunAnalysis(recorder, env.request(t, "POST", "/api/monitoring", body))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var resp runAnalysisResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if !resp.Success {
		t.Error("expected success to be true")
	}
	if !strings.HasPrefix(resp.Message, "Analysis complete.") {
		t.Errorf("unexpected message: %q", resp.Message)
	}
	// A brand-new child has no history, so nothing should fire
	if resp.AlertsGenerated != 0 || resp.InsightsGenerated != 0 {
		t.Errorf("expected no alerts or insights for a new child, got %d/%d", resp.AlertsGenerated, resp.InsightsGenerated)
	}
}

func TestGetDataReturnsAlertsWithUnreadCount(t *testing.T) {
	env := newMonitoringTestEnv(t)

	alert := &models.Alert{
		ChildID:   env.child.ID,
		FamilyID:  env.family.ID,
		Kind:      models.AlertInactive,
		Severity:  models.SeverityWarning,
		Title:     "Mia hasn't practiced in 4 days",
		Message:   "It's been 4 days since Mia last practiced. Regular practice helps maintain skills!",
		CreatedAt: time.Now().UTC(),
	}
	if err := env.monitoringRepo.InsertAlert(alert); err != nil {
		t.Fatalf("Failed to insert alert: %v", err)
	}

	target := "/api/monitoring?childId=" + strconv.FormatInt(env.child.ID, 10) + "&type=alerts"
	recorder := httptest.NewRecorder()
	env.handler.GetData(recorder, env.request(t, "GET", target, ""))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var resp struct {
		Alerts []struct {
			Title string
		} `json:"alerts"`
		UnreadCount *int `json:"unreadCount"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if len(resp.Alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(resp.Alerts))
	}
	if resp.UnreadCount == nil || *resp.UnreadCount != 1 {
		t.Errorf("expected unreadCount 1, got %v", resp.UnreadCount)
	}
}

func TestGetDataScopesToParent(t *testing.T) {
	env := newMonitoringTestEnv(t)

	// A second parent in a different family must not see the child
	outsider := &models.User{ID: env.user.ID + 100, Email: "other@example.com", Name: "Other"}

	target := "/api/monitoring?childId=" + strconv.FormatInt(env.child.ID, 10)
	req := httptest.NewRequest("GET", target, nil)
	ctx := context.WithValue(req.Context(), UserContextKey, outsider)

	recorder := httptest.NewRecorder()
	env.handler.GetData(recorder, req.WithContext(ctx))

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", recorder.Code)
	}
}

func TestMarkAlertReadClearsUnreadCount(t *testing.T) {
	env := newMonitoringTestEnv(t)

	alert := &models.Alert{
		ChildID:   env.child.ID,
		FamilyID:  env.family.ID,
		Kind:      models.AlertLowAccuracy,
		Severity:  models.SeverityWarning,
		Title:     "Mia may need extra help",
		Message:   "Mia's overall accuracy is 40%. Consider reviewing lessons together or trying easier material.",
		CreatedAt: time.Now().UTC(),
	}
	if err := env.monitoringRepo.InsertAlert(alert); err != nil {
		t.Fatalf("Failed to insert alert: %v", err)
	}

	target := "/api/monitoring/alerts/" + strconv.FormatInt(alert.ID, 10) + "/read?familyId=" + strconv.FormatInt(env.family.ID, 10)
	req := env.request(t, "POST", target, "")
	req.SetPathValue("id", strconv.FormatInt(alert.ID, 10))

	recorder := httptest.NewRecorder()
	env.handler.MarkAlertRead(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	count, err := env.monitoringRepo.CountUnreadFamilyAlerts(env.family.ID)
	if err != nil {
		t.Fatalf("Failed to count unread alerts: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 unread alerts after marking read, got %d", count)
	}
}
