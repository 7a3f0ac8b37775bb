package main

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"brightquest/internal/config"
	"brightquest/internal/database"
	"brightquest/internal/handlers"
	"brightquest/internal/repository"
	"brightquest/internal/service"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
)

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cfg := config.Load()

	// Initialize database (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	templates, err := loadTemplates(cfg.TemplatesPath)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	log.Println("Templates loaded successfully")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	childRepo := repository.NewChildRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	profileRepo := repository.NewLearningProfileRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	monitoringRepo := repository.NewMonitoringRepository(db)

	// Initialize services
	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.EmailFrom, cfg.EmailFromName, cfg.AppBaseURL, cfg.EmailDebug)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}
	if !emailService.IsEnabled() {
		log.Println("Email delivery disabled (EMAIL_FROM not set)")
	}

	authService := service.NewAuthService(userRepo, familyRepo, cfg.SessionDuration)
	familyService := service.NewFamilyService(familyRepo, childRepo, invitationRepo, profileRepo)
	progressService := service.NewProgressService(childRepo, progressRepo, profileRepo)
	monitoringService := service.NewMonitoringService(childRepo, profileRepo, progressRepo, monitoringRepo, familyRepo, userRepo, emailService)

	oauthProviders := map[string]handlers.OAuthProvider{
		"google": {
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
		"facebook": {
			Name:  "facebook",
			Label: "Facebook",
			Config: &oauth2.Config{
				ClientID:     cfg.FacebookClientID,
				ClientSecret: cfg.FacebookClientSecret,
				Endpoint:     facebook.Endpoint,
				Scopes:       []string{"email", "public_profile"},
			},
			UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
		},
		"apple": {
			Name:  "apple",
			Label: "Apple",
			Config: &oauth2.Config{
				ClientID:     cfg.AppleClientID,
				ClientSecret: cfg.AppleClientSecret,
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://appleid.apple.com/auth/authorize",
					TokenURL: "https://appleid.apple.com/auth/token",
				},
				Scopes: []string{"name", "email"},
			},
			AuthParams: map[string]string{
				"response_mode": "query",
			},
		},
	}

	// Initialize handlers
	middleware := handlers.NewMiddleware(authService, familyService, cfg.CSRFSecret)
	authHandler := handlers.NewAuthHandler(authService, emailService, templates, oauthProviders, cfg.OAuthRedirectBaseURL)
	parentHandler := handlers.NewParentHandler(familyService, monitoringService, emailService, middleware, templates)
	childHandler := handlers.NewChildHandler(familyService, progressService, templates)
	lessonHandler := handlers.NewLessonHandler(progressService, templates)
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService, familyService)

	// Setup routes
	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticFilesPath))))

	// Public routes
	mux.HandleFunc("GET /", authHandler.Home)
	mux.HandleFunc("GET /login", authHandler.ShowLogin)
	mux.HandleFunc("POST /login", middleware.RateLimit(authHandler.Login))
	mux.HandleFunc("GET /register", authHandler.ShowRegister)
	mux.HandleFunc("POST /register", middleware.RateLimit(authHandler.Register))
	mux.HandleFunc("POST /logout", authHandler.Logout)
	mux.HandleFunc("GET /forgot-password", authHandler.ShowForgotPassword)
	mux.HandleFunc("POST /forgot-password", middleware.RateLimit(authHandler.ForgotPassword))
	mux.HandleFunc("GET /auth/reset-password", authHandler.ShowResetPassword)
	mux.HandleFunc("POST /reset-password", middleware.RateLimit(authHandler.ResetPassword))
	mux.HandleFunc("GET /auth/{provider}/start", authHandler.StartOAuth)
	mux.HandleFunc("GET /auth/{provider}/callback", authHandler.OAuthCallback)

	// Protected parent routes
	mux.HandleFunc("GET /parent/dashboard", middleware.RequireAuth(parentHandler.Dashboard))
	mux.HandleFunc("GET /parent/family", middleware.RequireAuth(parentHandler.ShowFamily))
	mux.HandleFunc("POST /parent/family/create", middleware.RequireAuth(middleware.CSRFProtect(parentHandler.CreateFamily)))
	mux.HandleFunc("POST /parent/family/join", middleware.RequireAuth(middleware.CSRFProtect(parentHandler.JoinFamily)))
	mux.HandleFunc("POST /parent/family/{id}/leave", middleware.RequireAuth(middleware.CSRFProtect(parentHandler.LeaveFamily)))
	mux.HandleFunc("POST /parent/family/invite", middleware.RequireAuth(middleware.CSRFProtect(parentHandler.InviteMember)))
	mux.HandleFunc("GET /invite", middleware.RequireAuth(parentHandler.ShowInvite))
	mux.HandleFunc("POST /parent/invite/accept", middleware.RequireAuth(middleware.CSRFProtect(parentHandler.AcceptInvite)))
	mux.HandleFunc("GET /parent/children", middleware.RequireAuth(parentHandler.ShowChildren))
	mux.HandleFunc("POST /parent/children/create", middleware.RequireAuth(middleware.CSRFProtect(parentHandler.CreateChild)))
	mux.HandleFunc("GET /parent/children/{id}", middleware.RequireAuth(parentHandler.ShowChildDetail))
	mux.HandleFunc("POST /parent/children/{id}/update", middleware.RequireAuth(middleware.CSRFProtect(parentHandler.UpdateChild)))
	mux.HandleFunc("POST /parent/children/{id}/regenerate-password", middleware.RequireAuth(middleware.CSRFProtect(parentHandler.RegenerateChildPassword)))
	mux.HandleFunc("POST /parent/children/{id}/delete", middleware.RequireAuth(middleware.CSRFProtect(parentHandler.DeleteChild)))

	// Monitoring API
	mux.HandleFunc("POST /api/monitoring", middleware.RequireAuth(middleware.CSRFProtect(monitoringHandler.RunAnalysis)))
	mux.HandleFunc("GET /api/monitoring", middleware.RequireAuth(monitoringHandler.GetData))
	mux.HandleFunc("POST /api/monitoring/alerts/{id}/read", middleware.RequireAuth(middleware.CSRFProtect(monitoringHandler.MarkAlertRead)))
	mux.HandleFunc("POST /api/monitoring/alerts/{id}/dismiss", middleware.RequireAuth(middleware.CSRFProtect(monitoringHandler.DismissAlert)))

	// Child routes
	mux.HandleFunc("GET /play/login", childHandler.ShowLogin)
	mux.HandleFunc("POST /play/login", middleware.RateLimit(childHandler.Login))
	mux.HandleFunc("GET /play/dashboard", middleware.RequireChildAuth(childHandler.Dashboard))
	mux.HandleFunc("POST /play/logout", childHandler.Logout)
	mux.HandleFunc("GET /play/lessons/{id}", middleware.RequireChildAuth(lessonHandler.ShowLesson))
	mux.HandleFunc("POST /play/lessons/{id}/complete", middleware.RequireChildAuth(lessonHandler.CompleteLesson))
	mux.HandleFunc("POST /play/tests", middleware.RequireChildAuth(lessonHandler.SubmitWeeklyTest))

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Background maintenance: expired sessions, stale reset tokens and
	// lapsed streaks
	go runMaintenance(authService, familyService, progressService)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// loadTemplates loads all template files
func loadTemplates(templatesPath string) (*template.Template, error) {
	patterns := []string{
		filepath.Join(templatesPath, "auth/*.tmpl"),
		filepath.Join(templatesPath, "parent/*.tmpl"),
		filepath.Join(templatesPath, "child/*.tmpl"),
	}

	files := []string{filepath.Join(templatesPath, "base.tmpl")}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to glob pattern %s: %w", pattern, err)
		}
		files = append(files, matches...)
	}

	funcMap := template.FuncMap{
		"mult": func(a, b float64) float64 {
			return a * b
		},
		"formatDate": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},
		"add": func(a, b int) int {
			return a + b
		},
		"until": func(count int) []int {
			result := make([]int, count)
			for i := 0; i < count; i++ {
				result[i] = i
			}
			return result
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return tmpl, nil
}

// runMaintenance periodically cleans up expired state
func runMaintenance(authService *service.AuthService, familyService *service.FamilyService, progressService *service.ProgressService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if err := authService.CleanupExpiredSessions(); err != nil {
			log.Printf("Error cleaning up expired sessions: %v", err)
		}
		if err := authService.CleanupExpiredPasswordResetTokens(); err != nil {
			log.Printf("Error cleaning up expired reset tokens: %v", err)
		}
		if err := familyService.CleanupExpiredChildSessions(); err != nil {
			log.Printf("Error cleaning up expired child sessions: %v", err)
		}
		if err := progressService.ResetInactiveStreaks(); err != nil {
			log.Printf("Error resetting lapsed streaks: %v", err)
		}
		log.Println("Expired sessions cleaned up")
	}
}
