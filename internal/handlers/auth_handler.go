package handlers

import (
	"html/template"
	"log"
	"net/http"

	"brightquest/internal/security"
	"brightquest/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService          *service.AuthService
	emailService         *service.EmailService
	templates            *template.Template
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, emailService *service.EmailService, templates *template.Template, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL string) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		emailService:         emailService,
		templates:            templates,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
	}
}

// Home renders the landing page, or the dashboard for a signed-in parent
func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if _, err := h.authService.ValidateSession(cookie.Value); err == nil {
			http.Redirect(w, r, "/parent/dashboard", http.StatusSeeOther)
			return
		}
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// ShowLogin renders the login page
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if _, err := h.authService.ValidateSession(cookie.Value); err == nil {
			http.Redirect(w, r, "/parent/dashboard", http.StatusSeeOther)
			return
		}
	}

	h.renderLogin(w, r, LoginViewData{Title: "Login - BrightQuest"})
}

// Login handles login form submission
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")

	session, _, err := h.authService.Login(email, password)
	if err != nil {
		h.renderLogin(w, r, LoginViewData{
			Title: "Login - BrightQuest",
			Error: "Invalid email or password",
			Email: email,
		})
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, session.ID, session.ExpiresAt))
	http.Redirect(w, r, "/parent/dashboard", http.StatusSeeOther)
}

// ShowRegister renders the registration page
func (h *AuthHandler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if _, err := h.authService.ValidateSession(cookie.Value); err == nil {
			http.Redirect(w, r, "/parent/dashboard", http.StatusSeeOther)
			return
		}
	}

	data := RegisterViewData{
		Title:          "Register - BrightQuest",
		FamilyCode:     r.URL.Query().Get("family_code"),
		OAuthProviders: h.oauthProviderViews(r),
	}
	h.render(w, "register.tmpl", data)
}

// Register handles registration form submission
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")
	name := r.FormValue("name")
	familyCode := r.FormValue("family_code")

	user, err := h.authService.Register(email, password, name, familyCode)
	if err != nil {
		data := RegisterViewData{
			Title:          "Register - BrightQuest",
			Error:          err.Error(),
			Email:          email,
			Name:           name,
			FamilyCode:     familyCode,
			OAuthProviders: h.oauthProviderViews(r),
		}
		h.render(w, "register.tmpl", data)
		return
	}

	// Welcome email failures never block registration
	if h.emailService.IsEnabled() {
		if err := h.emailService.SendWelcomeEmail(r.Context(), user.Email, user.Name); err != nil {
			log.Printf("Failed to send welcome email to %s: %v", user.Email, err)
		}
	}

	// Auto-login after registration
	session, _, err := h.authService.Login(email, password)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, session.ID, session.ExpiresAt))
	http.Redirect(w, r, "/parent/dashboard", http.StatusSeeOther)
}

// Logout handles logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		_ = h.authService.Logout(cookie.Value)
	}

	http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ShowForgotPassword renders the password reset request page
func (h *AuthHandler) ShowForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.render(w, "forgot_password.tmpl", ForgotPasswordViewData{Title: "Forgot Password - BrightQuest"})
}

// ForgotPassword handles the password reset request form
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	email := r.FormValue("email")
	if err := h.authService.RequestPasswordReset(r.Context(), h.emailService, email); err != nil {
		log.Printf("Password reset request failed: %v", err)
	}

	// Always report success so the form can't be used to probe for accounts
	h.render(w, "forgot_password.tmpl", ForgotPasswordViewData{
		Title:   "Forgot Password - BrightQuest",
		Success: "If an account exists for that email, a reset link has been sent.",
	})
}

// ShowResetPassword renders the password reset page for a token link
func (h *AuthHandler) ShowResetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	valid, err := h.authService.ValidatePasswordResetToken(token)
	if err != nil || !valid {
		h.renderLogin(w, r, LoginViewData{
			Title: "Login - BrightQuest",
			Error: "This password reset link is invalid or has expired.",
		})
		return
	}

	h.render(w, "reset_password.tmpl", ResetPasswordViewData{
		Title: "Reset Password - BrightQuest",
		Token: token,
	})
}

// ResetPassword handles the password reset form submission
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	token := r.FormValue("token")
	password := r.FormValue("password")

	if err := h.authService.ResetPassword(token, password); err != nil {
		h.render(w, "reset_password.tmpl", ResetPasswordViewData{
			Title: "Reset Password - BrightQuest",
			Token: token,
			Error: err.Error(),
		})
		return
	}

	h.renderLogin(w, r, LoginViewData{
		Title:   "Login - BrightQuest",
		Success: "Your password has been reset. Please sign in.",
	})
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, data LoginViewData) {
	data.OAuthProviders = h.oauthProviderViews(r)
	h.render(w, "login.tmpl", data)
}

func (h *AuthHandler) render(w http.ResponseWriter, name string, data interface{}) {
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("Error rendering %s: %v", name, err)
		http.Error(w, ErrInternalServerError, http.StatusInternalServerError)
	}
}
