package models

import (
	"testing"
	"time"
)

func TestChildDaysSinceActivity(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		lastActivity *time.Time
		want         int
	}{
		{
			name:         "never active",
			lastActivity: nil,
			want:         -1,
		},
		{
			name:         "active today",
			lastActivity: timePtr(now.Add(-2 * time.Hour)),
			want:         0,
		},
		{
			name:         "four days ago",
			lastActivity: timePtr(now.AddDate(0, 0, -4)),
			want:         4,
		},
		{
			name:         "just under a day",
			lastActivity: timePtr(now.Add(-23 * time.Hour)),
			want:         0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			child := Child{LastActivityAt: tt.lastActivity}
			if got := child.DaysSinceActivity(now); got != tt.want {
				t.Errorf("DaysSinceActivity() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSessionIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "future session",
			expiresAt: time.Now().Add(time.Hour),
			want:      false,
		},
		{
			name:      "expired session",
			expiresAt: time.Now().Add(-time.Hour),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Session{ExpiresAt: tt.expiresAt}
			if got := s.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInvitationIsValid(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		invitation Invitation
		want       bool
	}{
		{
			name:       "unused and unexpired",
			invitation: Invitation{ExpiresAt: now.Add(24 * time.Hour)},
			want:       true,
		},
		{
			name:       "expired",
			invitation: Invitation{ExpiresAt: now.Add(-time.Hour)},
			want:       false,
		},
		{
			name: "already used",
			invitation: Invitation{
				ExpiresAt: now.Add(24 * time.Hour),
				UsedAt:    &now,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.invitation.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
