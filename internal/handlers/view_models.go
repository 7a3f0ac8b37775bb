package handlers

import (
	"brightquest/internal/models"
	"brightquest/internal/service"
)

type LoginViewData struct {
	Title          string
	OAuthProviders []OAuthProviderView
	Error          string
	Email          string
	Success        string
}

type RegisterViewData struct {
	Title          string
	FamilyCode     string
	OAuthProviders []OAuthProviderView
	Error          string
	Email          string
	Name           string
}

type ForgotPasswordViewData struct {
	Title   string
	Success string
	Error   string
}

type ResetPasswordViewData struct {
	Title string
	Token string
	Error string
}

type ParentDashboardViewData struct {
	Title       string
	User        *models.User
	Families    []models.Family
	Children    []models.Child
	Alerts      []models.Alert
	UnreadCount int
	CSRFToken   string
}

type ParentFamilyViewData struct {
	Title       string
	User        *models.User
	Families    []models.Family
	Invitations []models.Invitation
	Error       string
	CSRFToken   string
}

type ParentChildrenViewData struct {
	Title     string
	User      *models.User
	Families  []models.Family
	Children  []models.Child
	CSRFToken string
}

type ChildDetailViewData struct {
	Title     string
	User      *models.User
	Child     *models.ChildWithProfile
	Alerts    []models.Alert
	Insights  []models.Insight
	Summaries []models.DailySummary
	CSRFToken string
}

type InviteViewData struct {
	Title      string
	Invitation *models.Invitation
	Error      string
	CSRFToken  string
}

type ChildLoginViewData struct {
	Title string
	Error string
}

type ChildDashboardViewData struct {
	Title          string
	Child          *models.Child
	Lessons        []models.Lesson
	RecentProgress []models.LessonProgress
}

type LessonViewData struct {
	Title  string
	Child  *models.Child
	Lesson *models.Lesson
}

type LessonResultViewData struct {
	Title  string
	Child  *models.Child
	Result *service.LessonResult
}
