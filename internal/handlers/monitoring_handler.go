package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"brightquest/internal/models"
	"brightquest/internal/monitoring"
	"brightquest/internal/service"
)

// MonitoringHandler serves the monitoring JSON API used by the parent
// dashboard
type MonitoringHandler struct {
	monitoringService *service.MonitoringService
	familyService     *service.FamilyService
}

// NewMonitoringHandler creates a new monitoring handler
func NewMonitoringHandler(monitoringService *service.MonitoringService, familyService *service.FamilyService) *MonitoringHandler {
	return &MonitoringHandler{
		monitoringService: monitoringService,
		familyService:     familyService,
	}
}

type runAnalysisRequest struct {
	ChildID int64  `json:"childId"`
	Action  string `json:"action"`
}

type runAnalysisResponse struct {
	Success           bool   `json:"success"`
	AlertsGenerated   int    `json:"alertsGenerated"`
	InsightsGenerated int    `json:"insightsGenerated"`
	Message           string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// RunAnalysis handles POST /api/monitoring: runs the analysis engine for
// one child and reports what it produced
func (h *MonitoringHandler) RunAnalysis(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
		return
	}

	var req runAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	if req.ChildID == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "childId is required"})
		return
	}

	action, err := monitoring.ParseAction(req.Action)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown action: " + req.Action})
		return
	}

	if _, err := h.familyService.GetChildForParent(req.ChildID, user.ID); err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Child not found"})
		return
	}

	report, err := h.monitoringService.RunAnalysis(r.Context(), req.ChildID, action)
	if err != nil {
		if errors.Is(err, monitoring.ErrChildNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "Child not found"})
			return
		}
		log.Printf("Monitoring analysis failed for child %d: %v", req.ChildID, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Analysis failed"})
		return
	}

	writeJSON(w, http.StatusOK, runAnalysisResponse{
		Success:           true,
		AlertsGenerated:   report.AlertsGenerated,
		InsightsGenerated: report.InsightsGenerated,
		Message:           report.Message,
	})
}

// monitoringData is the GET response; only the sections matching the
// requested type are populated
type monitoringData struct {
	Alerts      []models.Alert           `json:"alerts,omitempty"`
	UnreadCount *int                     `json:"unreadCount,omitempty"`
	Insights    []models.Insight         `json:"insights,omitempty"`
	Summaries   []models.DailySummary    `json:"summaries,omitempty"`
	Overview    *models.ChildWithProfile `json:"overview,omitempty"`
}

// GetData handles GET /api/monitoring?childId=&type=: alerts, insights,
// daily summaries, or the child overview for the dashboard
func (h *MonitoringHandler) GetData(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
		return
	}

	childID, err := strconv.ParseInt(r.URL.Query().Get("childId"), 10, 64)
	if err != nil || childID == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "childId is required"})
		return
	}

	child, err := h.familyService.GetChildForParent(childID, user.ID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Child not found"})
		return
	}

	dataType := r.URL.Query().Get("type")
	if dataType == "" {
		dataType = "all"
	}

	var data monitoringData

	if dataType == "alerts" || dataType == "all" {
		alerts, err := h.monitoringService.ChildAlerts(childID)
		if err != nil {
			log.Printf("Error getting alerts for child %d: %v", childID, err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to load alerts"})
			return
		}
		data.Alerts = alerts

		count, err := h.monitoringService.UnreadAlertCount(child.FamilyID)
		if err != nil {
			log.Printf("Error counting unread alerts for family %d: %v", child.FamilyID, err)
		} else {
			data.UnreadCount = &count
		}
	}

	if dataType == "insights" || dataType == "all" {
		insights, err := h.monitoringService.ActiveInsights(childID)
		if err != nil {
			log.Printf("Error getting insights for child %d: %v", childID, err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to load insights"})
			return
		}
		data.Insights = insights
	}

	if dataType == "summary" || dataType == "all" {
		summaries, err := h.monitoringService.RecentSummaries(childID)
		if err != nil {
			log.Printf("Error getting summaries for child %d: %v", childID, err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to load summaries"})
			return
		}
		data.Summaries = summaries
	}

	if dataType == "overview" || dataType == "all" {
		overview, err := h.monitoringService.ChildOverview(childID)
		if err != nil {
			log.Printf("Error getting overview for child %d: %v", childID, err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to load overview"})
			return
		}
		data.Overview = overview
	}

	writeJSON(w, http.StatusOK, data)
}

// MarkAlertRead handles POST /api/monitoring/alerts/{id}/read
func (h *MonitoringHandler) MarkAlertRead(w http.ResponseWriter, r *http.Request) {
	h.updateAlert(w, r, h.monitoringService.MarkAlertRead)
}

// DismissAlert handles POST /api/monitoring/alerts/{id}/dismiss
func (h *MonitoringHandler) DismissAlert(w http.ResponseWriter, r *http.Request) {
	h.updateAlert(w, r, h.monitoringService.DismissAlert)
}

func (h *MonitoringHandler) updateAlert(w http.ResponseWriter, r *http.Request, update func(alertID, familyID int64) error) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
		return
	}

	alertID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid alert ID"})
		return
	}

	// Alert updates are scoped to a family the caller belongs to
	familyID, err := strconv.ParseInt(r.URL.Query().Get("familyId"), 10, 64)
	if err != nil || familyID == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "familyId is required"})
		return
	}
	if err := h.familyService.VerifyFamilyAccess(user.ID, familyID); err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Family not found"})
		return
	}

	if err := update(alertID, familyID); err != nil {
		log.Printf("Error updating alert %d: %v", alertID, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to update alert"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}
