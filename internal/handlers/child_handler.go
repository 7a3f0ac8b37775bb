package handlers

import (
	"html/template"
	"log"
	"net/http"

	"brightquest/internal/security"
	"brightquest/internal/service"
)

// ChildHandler handles child-facing HTTP requests
type ChildHandler struct {
	familyService   *service.FamilyService
	progressService *service.ProgressService
	templates       *template.Template
}

// NewChildHandler creates a new child handler
func NewChildHandler(familyService *service.FamilyService, progressService *service.ProgressService, templates *template.Template) *ChildHandler {
	return &ChildHandler{
		familyService:   familyService,
		progressService: progressService,
		templates:       templates,
	}
}

// ShowLogin displays the child login page
func (h *ChildHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(ChildSessionCookieName); err == nil && cookie.Value != "" {
		if _, err := h.familyService.ValidateChildSession(cookie.Value); err == nil {
			http.Redirect(w, r, "/play/dashboard", http.StatusSeeOther)
			return
		}
	}

	h.render(w, "child_login.tmpl", ChildLoginViewData{Title: "Let's Play - BrightQuest"})
}

// Login handles the child username/password form
func (h *ChildHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	_, sessionID, expiresAt, err := h.familyService.ChildLogin(username, password)
	if err != nil {
		h.render(w, "child_login.tmpl", ChildLoginViewData{
			Title: "Let's Play - BrightQuest",
			Error: "Hmm, that username or password doesn't look right. Try again!",
		})
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, ChildSessionCookieName, sessionID, expiresAt))
	http.Redirect(w, r, "/play/dashboard", http.StatusSeeOther)
}

// Dashboard displays the child dashboard with lessons and recent results
func (h *ChildHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	child := GetChildFromContext(r.Context())
	if child == nil {
		http.Redirect(w, r, "/play/login", http.StatusSeeOther)
		return
	}

	lessons, err := h.progressService.GetLessonsForChild(child)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error getting lessons", err)
		return
	}

	recentProgress, err := h.progressService.GetRecentProgress(child.ID, 10)
	if err != nil {
		log.Printf("Error getting recent progress for child %d: %v", child.ID, err)
	}

	data := ChildDashboardViewData{
		Title:          "My Dashboard - BrightQuest",
		Child:          child,
		Lessons:        lessons,
		RecentProgress: recentProgress,
	}

	h.render(w, "child_dashboard.tmpl", data)
}

// Logout handles child logout
func (h *ChildHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(ChildSessionCookieName); err == nil {
		_ = h.familyService.ChildLogout(cookie.Value)
	}

	http.SetCookie(w, security.CreateDeleteCookie(r, ChildSessionCookieName))
	http.Redirect(w, r, "/play/login", http.StatusSeeOther)
}

func (h *ChildHandler) render(w http.ResponseWriter, name string, data interface{}) {
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("Error rendering %s: %v", name, err)
		http.Error(w, ErrInternalServerError, http.StatusInternalServerError)
	}
}
