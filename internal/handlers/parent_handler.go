package handlers

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"

	"brightquest/internal/models"
	"brightquest/internal/service"
)

// ParentHandler handles parent-facing HTTP requests
type ParentHandler struct {
	familyService     *service.FamilyService
	monitoringService *service.MonitoringService
	emailService      *service.EmailService
	middleware        *Middleware
	templates         *template.Template
}

// NewParentHandler creates a new parent handler
func NewParentHandler(familyService *service.FamilyService, monitoringService *service.MonitoringService, emailService *service.EmailService, middleware *Middleware, templates *template.Template) *ParentHandler {
	return &ParentHandler{
		familyService:     familyService,
		monitoringService: monitoringService,
		emailService:      emailService,
		middleware:        middleware,
		templates:         templates,
	}
}

// Dashboard renders the parent dashboard: children across all of the
// parent's families, plus the monitoring feed for the first family
func (h *ParentHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	families, err := h.familyService.GetUserFamilies(user.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error getting user families", err)
		return
	}

	var children []models.Child
	var alerts []models.Alert
	unreadCount := 0
	for _, family := range families {
		familyChildren, err := h.familyService.GetFamilyChildren(family.ID, user.ID)
		if err != nil {
			log.Printf("Error getting children for family %d: %v", family.ID, err)
			continue
		}
		children = append(children, familyChildren...)

		familyAlerts, err := h.monitoringService.FamilyAlerts(family.ID)
		if err != nil {
			log.Printf("Error getting alerts for family %d: %v", family.ID, err)
			continue
		}
		alerts = append(alerts, familyAlerts...)

		count, err := h.monitoringService.UnreadAlertCount(family.ID)
		if err == nil {
			unreadCount += count
		}
	}

	data := ParentDashboardViewData{
		Title:       "Dashboard - BrightQuest",
		User:        user,
		Families:    families,
		Children:    children,
		Alerts:      alerts,
		UnreadCount: unreadCount,
		CSRFToken:   h.getCSRFToken(r),
	}

	h.render(w, "dashboard.tmpl", data)
}

// ShowFamily displays the family management page
func (h *ParentHandler) ShowFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	families, err := h.familyService.GetUserFamilies(user.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error getting user families", err)
		return
	}

	var invitations []models.Invitation
	for _, family := range families {
		familyInvitations, err := h.familyService.GetFamilyInvitations(family.ID, user.ID)
		if err != nil {
			log.Printf("Error getting invitations for family %d: %v", family.ID, err)
			continue
		}
		invitations = append(invitations, familyInvitations...)
	}

	data := ParentFamilyViewData{
		Title:       "Manage Family - BrightQuest",
		User:        user,
		Families:    families,
		Invitations: invitations,
		CSRFToken:   h.getCSRFToken(r),
	}

	h.render(w, "family.tmpl", data)
}

// CreateFamily handles family creation
func (h *ParentHandler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, ErrUnauthorized, http.StatusUnauthorized)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	name := r.FormValue("name")

	if _, err := h.familyService.CreateFamily(name, user.ID); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "Error creating family", err)
		return
	}

	http.Redirect(w, r, "/parent/family", http.StatusSeeOther)
}

// JoinFamily handles joining an existing family by its share code
func (h *ParentHandler) JoinFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, ErrUnauthorized, http.StatusUnauthorized)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	familyCode := r.FormValue("family_code")

	if err := h.familyService.JoinFamilyByCode(user.ID, familyCode); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "Error joining family", err)
		return
	}

	http.Redirect(w, r, "/parent/family", http.StatusSeeOther)
}

// LeaveFamily handles leaving a family
func (h *ParentHandler) LeaveFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, ErrUnauthorized, http.StatusUnauthorized)
		return
	}

	familyID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid family ID", http.StatusBadRequest)
		return
	}

	if err := h.familyService.LeaveFamily(user.ID, familyID); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "Error leaving family", err)
		return
	}

	http.Redirect(w, r, "/parent/family", http.StatusSeeOther)
}

// InviteMember sends an email invitation to join a family
func (h *ParentHandler) InviteMember(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, ErrUnauthorized, http.StatusUnauthorized)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	familyID, err := strconv.ParseInt(r.FormValue("family_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid family ID", http.StatusBadRequest)
		return
	}
	email := r.FormValue("email")

	if _, err := h.familyService.InviteToFamily(r.Context(), h.emailService, familyID, user.ID, user.Name, email); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "Error inviting family member", err)
		return
	}

	http.Redirect(w, r, "/parent/family", http.StatusSeeOther)
}

// ShowInvite renders the invitation acceptance page for an emailed link
func (h *ParentHandler) ShowInvite(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	invitation, err := h.familyService.GetInvitationByCode(code)
	if err != nil || !invitation.IsValid() {
		h.render(w, "invite.tmpl", InviteViewData{
			Title: "Invitation - BrightQuest",
			Error: "This invitation is invalid or has expired.",
		})
		return
	}

	data := InviteViewData{
		Title:      "Invitation - BrightQuest",
		Invitation: invitation,
		CSRFToken:  h.getCSRFToken(r),
	}
	h.render(w, "invite.tmpl", data)
}

// AcceptInvite accepts an emailed family invitation
func (h *ParentHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, ErrUnauthorized, http.StatusUnauthorized)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	code := r.FormValue("code")
	if _, err := h.familyService.AcceptInvitation(user.ID, code); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "Error accepting invitation", err)
		return
	}

	http.Redirect(w, r, "/parent/family", http.StatusSeeOther)
}

// ShowChildren displays the children management page
func (h *ParentHandler) ShowChildren(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	families, err := h.familyService.GetUserFamilies(user.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error getting user families", err)
		return
	}

	var children []models.Child
	for _, family := range families {
		familyChildren, err := h.familyService.GetFamilyChildren(family.ID, user.ID)
		if err != nil {
			log.Printf("Error getting children for family %d: %v", family.ID, err)
			continue
		}
		children = append(children, familyChildren...)
	}

	data := ParentChildrenViewData{
		Title:     "Manage Children - BrightQuest",
		User:      user,
		Families:  families,
		Children:  children,
		CSRFToken: h.getCSRFToken(r),
	}

	h.render(w, "children.tmpl", data)
}

// CreateChild handles child creation
func (h *ParentHandler) CreateChild(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, ErrUnauthorized, http.StatusUnauthorized)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	name := r.FormValue("name")
	theme := r.FormValue("theme")

	familyID, err := strconv.ParseInt(r.FormValue("family_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid family ID", http.StatusBadRequest)
		return
	}

	gradeLevel, err := strconv.Atoi(r.FormValue("grade_level"))
	if err != nil {
		http.Error(w, "Invalid grade level", http.StatusBadRequest)
		return
	}

	child, err := h.familyService.CreateChild(familyID, user.ID, name, gradeLevel, theme)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "Error creating child", err)
		return
	}

	// HTMX requests get the generated credentials inline so the parent can
	// write them down before the page refreshes
	if r.Header.Get("HX-Request") == "true" {
		html := fmt.Sprintf(`<div class="credentials-display">
			<h3>Child Created Successfully!</h3>
			<div class="credentials-box">
				<p><strong>Name:</strong> %s</p>
				<p><strong>Username:</strong> <code>%s</code></p>
				<p><strong>Password:</strong> <code>%s</code></p>
				<p class="text-muted">Please save these credentials! Your child will need them to log in.</p>
			</div>
			<script>
				setTimeout(function() {
					window.location.reload();
				}, 3000);
			</script>
		</div>`, template.HTMLEscapeString(child.Name), template.HTMLEscapeString(child.Username), template.HTMLEscapeString(child.Password))
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(html))
		return
	}

	http.Redirect(w, r, "/parent/children", http.StatusSeeOther)
}

// UpdateChild handles child updates
func (h *ParentHandler) UpdateChild(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, ErrUnauthorized, http.StatusUnauthorized)
		return
	}

	childID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid child ID", http.StatusBadRequest)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	name := r.FormValue("name")
	theme := r.FormValue("theme")
	gradeLevel, err := strconv.Atoi(r.FormValue("grade_level"))
	if err != nil {
		http.Error(w, "Invalid grade level", http.StatusBadRequest)
		return
	}

	if err := h.familyService.UpdateChild(childID, user.ID, name, gradeLevel, theme); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "Error updating child", err)
		return
	}

	http.Redirect(w, r, "/parent/children", http.StatusSeeOther)
}

// RegenerateChildPassword generates a new random password for a child
func (h *ParentHandler) RegenerateChildPassword(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, ErrUnauthorized, http.StatusUnauthorized)
		return
	}

	childID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid child ID", http.StatusBadRequest)
		return
	}

	newPassword, err := h.familyService.RegenerateChildPassword(childID, user.ID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "Error regenerating child password", err)
		return
	}

	// Plain text so HTMX can swap it straight into the UI
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(newPassword))
}

// DeleteChild handles child deletion
func (h *ParentHandler) DeleteChild(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, ErrUnauthorized, http.StatusUnauthorized)
		return
	}

	childID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid child ID", http.StatusBadRequest)
		return
	}

	if err := h.familyService.DeleteChild(childID, user.ID); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "Error deleting child", err)
		return
	}

	http.Redirect(w, r, "/parent/children", http.StatusSeeOther)
}

// ShowChildDetail renders a child's learning overview: profile, alerts,
// insights, and recent daily summaries
func (h *ParentHandler) ShowChildDetail(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	childID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid child ID", http.StatusBadRequest)
		return
	}

	// Access check before any monitoring data is exposed
	if _, err := h.familyService.GetChildForParent(childID, user.ID); err != nil {
		respondWithError(w, http.StatusNotFound, "Child not found", "Error verifying child access", err)
		return
	}

	overview, err := h.monitoringService.ChildOverview(childID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error getting child overview", err)
		return
	}

	alerts, err := h.monitoringService.ChildAlerts(childID)
	if err != nil {
		log.Printf("Error getting alerts for child %d: %v", childID, err)
	}

	insights, err := h.monitoringService.ActiveInsights(childID)
	if err != nil {
		log.Printf("Error getting insights for child %d: %v", childID, err)
	}

	summaries, err := h.monitoringService.RecentSummaries(childID)
	if err != nil {
		log.Printf("Error getting summaries for child %d: %v", childID, err)
	}

	data := ChildDetailViewData{
		Title:     overview.Child.Name + " - BrightQuest",
		User:      user,
		Child:     overview,
		Alerts:    alerts,
		Insights:  insights,
		Summaries: summaries,
		CSRFToken: h.getCSRFToken(r),
	}

	h.render(w, "child_detail.tmpl", data)
}

// getCSRFToken is a helper to get the CSRF token for the current session
func (h *ParentHandler) getCSRFToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	token, _ := h.middleware.GetCSRFToken(cookie.Value)
	return token
}

func (h *ParentHandler) render(w http.ResponseWriter, name string, data interface{}) {
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("Error rendering %s: %v", name, err)
		http.Error(w, ErrInternalServerError, http.StatusInternalServerError)
	}
}
