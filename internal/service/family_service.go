package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"brightquest/internal/credentials"
	"brightquest/internal/models"
	"brightquest/internal/repository"
	"brightquest/internal/security"
)

var (
	ErrFamilyNotFound    = errors.New("family not found")
	ErrNotFamilyMember   = errors.New("user is not a member of this family")
	ErrChildNotFound     = errors.New("child not found")
	ErrInvalidInvitation = errors.New("invalid or expired invitation")
)

const (
	minGradeLevel = 1
	maxGradeLevel = 8

	childSessionDuration = 24 * time.Hour
	invitationDuration   = 7 * 24 * time.Hour
)

// FamilyService handles family and child-profile business logic
type FamilyService struct {
	familyRepo     *repository.FamilyRepository
	childRepo      *repository.ChildRepository
	invitationRepo *repository.InvitationRepository
	profileRepo    *repository.LearningProfileRepository
}

// NewFamilyService creates a new family service
func NewFamilyService(familyRepo *repository.FamilyRepository, childRepo *repository.ChildRepository, invitationRepo *repository.InvitationRepository, profileRepo *repository.LearningProfileRepository) *FamilyService {
	return &FamilyService{
		familyRepo:     familyRepo,
		childRepo:      childRepo,
		invitationRepo: invitationRepo,
		profileRepo:    profileRepo,
	}
}

// CreateFamily creates a new family with the user as admin
func (s *FamilyService) CreateFamily(name string, creatorUserID int64) (*models.Family, error) {
	if name == "" {
		return nil, errors.New("family name is required")
	}

	family, err := s.familyRepo.CreateFamily(name, creatorUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	return family, nil
}

// GetUserFamilies retrieves all families a user belongs to
func (s *FamilyService) GetUserFamilies(userID int64) ([]models.Family, error) {
	families, err := s.familyRepo.GetUserFamilies(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user families: %w", err)
	}
	return families, nil
}

// GetFamily retrieves a family by ID
func (s *FamilyService) GetFamily(familyID int64) (*models.Family, error) {
	family, err := s.familyRepo.GetFamilyByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	return family, nil
}

// VerifyFamilyAccess checks if a user has access to a family
func (s *FamilyService) VerifyFamilyAccess(userID, familyID int64) error {
	isMember, err := s.familyRepo.IsFamilyMember(userID, familyID)
	if err != nil {
		return fmt.Errorf("failed to verify family access: %w", err)
	}
	if !isMember {
		return ErrNotFamilyMember
	}
	return nil
}

// GetFamilyMembers retrieves all members of a family
func (s *FamilyService) GetFamilyMembers(familyID int64) ([]models.FamilyMember, []models.User, error) {
	members, users, err := s.familyRepo.GetFamilyMembers(familyID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get family members: %w", err)
	}
	return members, users, nil
}

// CreateChild creates a child profile with generated login credentials and
// an empty learning profile. Returns the child with the plaintext password
// still set so the parent can write it down once.
func (s *FamilyService) CreateChild(familyID, creatorUserID int64, name string, gradeLevel int, theme string) (*models.Child, error) {
	if err := s.VerifyFamilyAccess(creatorUserID, familyID); err != nil {
		return nil, err
	}

	if name == "" {
		return nil, errors.New("child name is required")
	}
	if gradeLevel < minGradeLevel || gradeLevel > maxGradeLevel {
		return nil, fmt.Errorf("grade level must be between %d and %d", minGradeLevel, maxGradeLevel)
	}
	if theme == "" {
		theme = "space"
	}

	username, err := s.uniqueUsername()
	if err != nil {
		return nil, err
	}

	password, err := credentials.GenerateChildPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to generate password: %w", err)
	}

	child, err := s.childRepo.CreateChild(familyID, name, username, password, gradeLevel, theme)
	if err != nil {
		return nil, fmt.Errorf("failed to create child: %w", err)
	}

	if err := s.profileRepo.EnsureProfile(child.ID); err != nil {
		return nil, fmt.Errorf("failed to create learning profile: %w", err)
	}

	return child, nil
}

func (s *FamilyService) uniqueUsername() (string, error) {
	const maxRetries = 10
	for i := 0; i < maxRetries; i++ {
		username, err := credentials.GenerateChildUsername()
		if err != nil {
			return "", fmt.Errorf("failed to generate username: %w", err)
		}
		existing, err := s.childRepo.GetChildByUsername(username)
		if err != nil {
			return "", fmt.Errorf("failed to check username uniqueness: %w", err)
		}
		if existing == nil {
			return username, nil
		}
	}
	return "", errors.New("could not find a free username")
}

// GetFamilyChildren retrieves all children in a family
func (s *FamilyService) GetFamilyChildren(familyID, userID int64) ([]models.Child, error) {
	if err := s.VerifyFamilyAccess(userID, familyID); err != nil {
		return nil, err
	}

	children, err := s.childRepo.GetFamilyChildren(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family children: %w", err)
	}

	return children, nil
}

// GetChild retrieves a child by ID
func (s *FamilyService) GetChild(childID int64) (*models.Child, error) {
	child, err := s.childRepo.GetChildByID(childID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil {
		return nil, ErrChildNotFound
	}
	return child, nil
}

// GetChildForParent retrieves a child, verifying the parent's family access
func (s *FamilyService) GetChildForParent(childID, userID int64) (*models.Child, error) {
	child, err := s.GetChild(childID)
	if err != nil {
		return nil, err
	}
	if err := s.VerifyFamilyAccess(userID, child.FamilyID); err != nil {
		return nil, err
	}
	return child, nil
}

// UpdateChild updates a child's profile fields
func (s *FamilyService) UpdateChild(childID, userID int64, name string, gradeLevel int, theme string) error {
	child, err := s.GetChildForParent(childID, userID)
	if err != nil {
		return err
	}

	if name == "" {
		return errors.New("child name is required")
	}
	if gradeLevel < minGradeLevel || gradeLevel > maxGradeLevel {
		return fmt.Errorf("grade level must be between %d and %d", minGradeLevel, maxGradeLevel)
	}
	if theme == "" {
		theme = child.Theme
	}

	if err := s.childRepo.UpdateChild(childID, name, gradeLevel, theme); err != nil {
		return fmt.Errorf("failed to update child: %w", err)
	}

	return nil
}

// RegenerateChildPassword generates a new random password for a child
func (s *FamilyService) RegenerateChildPassword(childID, userID int64) (string, error) {
	if _, err := s.GetChildForParent(childID, userID); err != nil {
		return "", err
	}

	newPassword, err := credentials.GenerateChildPassword()
	if err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}

	if err := s.childRepo.UpdateChildPassword(childID, newPassword); err != nil {
		return "", fmt.Errorf("failed to update child password: %w", err)
	}

	return newPassword, nil
}

// DeleteChild deletes a child profile
func (s *FamilyService) DeleteChild(childID, userID int64) error {
	if _, err := s.GetChildForParent(childID, userID); err != nil {
		return err
	}

	if err := s.childRepo.DeleteChild(childID); err != nil {
		return fmt.Errorf("failed to delete child: %w", err)
	}

	return nil
}

// ChildLogin authenticates a child by username and password and creates a
// session. Child passwords are short generated codes stored as-is, so the
// comparison is plain.
func (s *FamilyService) ChildLogin(username, password string) (*models.Child, string, time.Time, error) {
	child, err := s.childRepo.GetChildByUsername(username)
	if err != nil {
		return nil, "", time.Time{}, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil || child.Password != password {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	sessionID := security.GenerateSessionID()
	expiresAt := time.Now().Add(childSessionDuration)
	if err := s.childRepo.CreateChildSession(sessionID, child.ID, expiresAt); err != nil {
		return nil, "", time.Time{}, fmt.Errorf("failed to create child session: %w", err)
	}

	return child, sessionID, expiresAt, nil
}

// ValidateChildSession validates a child session and returns the child
func (s *FamilyService) ValidateChildSession(sessionID string) (*models.Child, error) {
	childID, err := s.childRepo.GetChildSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child session: %w", err)
	}
	if childID == 0 {
		return nil, ErrSessionNotFound
	}
	return s.GetChild(childID)
}

// ChildLogout removes a child session
func (s *FamilyService) ChildLogout(sessionID string) error {
	if err := s.childRepo.DeleteChildSession(sessionID); err != nil {
		return fmt.Errorf("failed to logout child: %w", err)
	}
	return nil
}

// CleanupExpiredChildSessions removes expired child sessions
func (s *FamilyService) CleanupExpiredChildSessions() error {
	if err := s.childRepo.DeleteExpiredChildSessions(); err != nil {
		return fmt.Errorf("failed to cleanup child sessions: %w", err)
	}
	return nil
}

// JoinFamilyByCode allows a user to join a family using its code
func (s *FamilyService) JoinFamilyByCode(userID int64, familyCode string) error {
	if familyCode == "" {
		return errors.New("family code is required")
	}

	family, err := s.familyRepo.GetFamilyByCode(familyCode)
	if err != nil {
		return fmt.Errorf("failed to find family: %w", err)
	}
	if family == nil {
		return ErrInvalidFamilyCode
	}

	isMember, err := s.familyRepo.IsFamilyMember(userID, family.ID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if isMember {
		return errors.New("you are already a member of this family")
	}

	if err := s.familyRepo.AddFamilyMember(family.ID, userID, "parent"); err != nil {
		return fmt.Errorf("failed to join family: %w", err)
	}

	return nil
}

// LeaveFamily allows a user to leave a family
func (s *FamilyService) LeaveFamily(userID, familyID int64) error {
	isMember, err := s.familyRepo.IsFamilyMember(userID, familyID)
	if err != nil {
		return fmt.Errorf("failed to verify membership: %w", err)
	}
	if !isMember {
		return ErrNotFamilyMember
	}

	if err := s.familyRepo.RemoveFamilyMember(familyID, userID); err != nil {
		return fmt.Errorf("failed to leave family: %w", err)
	}

	return nil
}

// InviteToFamily creates an invitation and emails it to the recipient
func (s *FamilyService) InviteToFamily(ctx context.Context, emailService *EmailService, familyID, inviterUserID int64, inviterName, email string) (*models.Invitation, error) {
	if err := s.VerifyFamilyAccess(inviterUserID, familyID); err != nil {
		return nil, err
	}

	family, err := s.GetFamily(familyID)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(invitationDuration)
	invitation, err := s.invitationRepo.CreateInvitation(email, familyID, inviterUserID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	if emailService != nil && emailService.IsEnabled() {
		if err := emailService.SendInvitationEmail(ctx, email, inviterName, family.Name, invitation.Code); err != nil {
			return nil, fmt.Errorf("failed to send invitation email: %w", err)
		}
	}

	return invitation, nil
}

// GetInvitationByCode looks up an invitation for the acceptance page
func (s *FamilyService) GetInvitationByCode(code string) (*models.Invitation, error) {
	invitation, err := s.invitationRepo.GetInvitationByCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	if invitation == nil {
		return nil, ErrInvalidInvitation
	}
	return invitation, nil
}

// AcceptInvitation adds a user to the inviting family and consumes the code
func (s *FamilyService) AcceptInvitation(userID int64, code string) (*models.Family, error) {
	invitation, err := s.invitationRepo.GetInvitationByCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	if invitation == nil || !invitation.IsValid() {
		return nil, ErrInvalidInvitation
	}

	family, err := s.GetFamily(invitation.FamilyID)
	if err != nil {
		return nil, err
	}

	isMember, err := s.familyRepo.IsFamilyMember(userID, family.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !isMember {
		if err := s.familyRepo.AddFamilyMember(family.ID, userID, "parent"); err != nil {
			return nil, fmt.Errorf("failed to join family: %w", err)
		}
	}

	if err := s.invitationRepo.MarkInvitationUsed(code, userID); err != nil {
		return nil, fmt.Errorf("failed to mark invitation used: %w", err)
	}

	return family, nil
}

// GetFamilyInvitations lists a family's invitations for the dashboard
func (s *FamilyService) GetFamilyInvitations(familyID, userID int64) ([]models.Invitation, error) {
	if err := s.VerifyFamilyAccess(userID, familyID); err != nil {
		return nil, err
	}

	invitations, err := s.invitationRepo.GetFamilyInvitations(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invitations: %w", err)
	}
	return invitations, nil
}
