package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"brightquest/internal/models"
	"brightquest/internal/security"
	"brightquest/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey  ContextKey = "user"
	ChildContextKey ContextKey = "child"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService   *service.AuthService
	familyService *service.FamilyService
	csrf          *security.CSRFGenerator
	loginLimiter  *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService, familyService *service.FamilyService, csrfSecret string) *Middleware {
	return &Middleware{
		authService:   authService,
		familyService: familyService,
		csrf:          security.NewCSRFGenerator(csrfSecret),
		loginLimiter:  security.NewRateLimiter(10, time.Minute),
	}
}

// RequireAuth is middleware that requires a valid parent session
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		user, err := m.authService.ValidateSession(cookie.Value)
		if err != nil {
			http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

// RequireChildAuth is middleware that requires a valid child session
func (m *Middleware) RequireChildAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(ChildSessionCookieName)
		if err != nil {
			http.Redirect(w, r, "/play/login", http.StatusSeeOther)
			return
		}

		child, err := m.familyService.ValidateChildSession(cookie.Value)
		if err != nil {
			http.SetCookie(w, security.CreateDeleteCookie(r, ChildSessionCookieName))
			http.Redirect(w, r, "/play/login", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), ChildContextKey, child)
		next(w, r.WithContext(ctx))
	}
}

// CSRFProtect validates the CSRF token on state-changing form submissions.
// The token is derived from the parent session, so it only applies behind
// RequireAuth.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			http.Error(w, ErrUnauthorized, http.StatusUnauthorized)
			return
		}

		token := r.Header.Get("X-CSRF-Token")
		if token == "" {
			if err := r.ParseForm(); err != nil {
				http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
				return
			}
			token = r.FormValue("csrf_token")
		}

		if !m.csrf.ValidateToken(cookie.Value, token) {
			http.Error(w, "Invalid CSRF token", http.StatusForbidden)
			return
		}

		next(w, r)
	}
}

// RateLimit throttles credential-guessing on the auth endpoints
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := security.GetClientIP(r)
		if !m.loginLimiter.Allow(ip) {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// GetCSRFToken returns the CSRF token for a session
func (m *Middleware) GetCSRFToken(sessionID string) (string, error) {
	return m.csrf.GenerateToken(sessionID)
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetChildFromContext retrieves the child from the request context
func GetChildFromContext(ctx context.Context) *models.Child {
	child, ok := ctx.Value(ChildContextKey).(*models.Child)
	if !ok {
		return nil
	}
	return child
}
