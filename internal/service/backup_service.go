package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"brightquest/internal/database"
)

// BackupData represents the complete database backup structure
type BackupData struct {
	Version     string             `json:"version"`
	ExportedAt  time.Time          `json:"exported_at"`
	Users       []UserBackup       `json:"users"`
	Families    []FamilyBackup     `json:"families"`
	Children    []ChildBackup      `json:"children"`
	Profiles    []ProfileBackup    `json:"learning_profiles"`
	Lessons     []LessonBackup     `json:"lessons"`
	Progress    []ProgressBackup   `json:"lesson_progress"`
	TestResults []TestResultBackup `json:"weekly_test_results"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"password_hash"`
	Name          string    `json:"name"`
	OAuthProvider string    `json:"oauth_provider"`
	OAuthSubject  string    `json:"oauth_subject"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FamilyBackup represents a family record with its memberships
type FamilyBackup struct {
	ID         int64                `json:"id"`
	Name       string               `json:"name"`
	FamilyCode string               `json:"family_code"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
	Members    []FamilyMemberBackup `json:"members"`
}

// FamilyMemberBackup represents a family member record
type FamilyMemberBackup struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

// ChildBackup represents a child record for backup
type ChildBackup struct {
	ID                      int64      `json:"id"`
	FamilyID                int64      `json:"family_id"`
	Name                    string     `json:"name"`
	Username                string     `json:"username"`
	Password                string     `json:"password"`
	GradeLevel              int        `json:"grade_level"`
	Theme                   string     `json:"theme"`
	Coins                   int        `json:"coins"`
	XP                      int        `json:"xp"`
	Level                   int        `json:"level"`
	CurrentStreak           int        `json:"current_streak"`
	LongestStreak           int        `json:"longest_streak"`
	TotalSessions           int        `json:"total_sessions"`
	ConsecutiveWrongAnswers int        `json:"consecutive_wrong_answers"`
	LastActivityAt          *time.Time `json:"last_activity_at"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// ProfileBackup represents a learning profile record for backup
type ProfileBackup struct {
	ChildID                 int64   `json:"child_id"`
	OverallAccuracy         float64 `json:"overall_accuracy"`
	TotalQuestionsAnswered  int     `json:"total_questions_answered"`
	TotalQuestionsCorrect   int     `json:"total_questions_correct"`
	WeakestSubjects         string  `json:"weakest_subjects"`
	StrongestSubjects       string  `json:"strongest_subjects"`
	PreferredPace           string  `json:"preferred_pace"`
	BestTimeOfDay           string  `json:"best_time_of_day"`
	PrimaryLearningStyle    string  `json:"primary_learning_style"`
	LearningStyleConfidence float64 `json:"learning_style_confidence"`
}

// LessonBackup represents a lesson record for backup
type LessonBackup struct {
	ID            int64     `json:"id"`
	SubjectCode   string    `json:"subject_code"`
	GradeLevel    int       `json:"grade_level"`
	Title         string    `json:"title"`
	QuestionCount int       `json:"question_count"`
	CoinReward    int       `json:"coin_reward"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProgressBackup represents a lesson completion for backup
type ProgressBackup struct {
	ID          int64     `json:"id"`
	ChildID     int64     `json:"child_id"`
	LessonID    int64     `json:"lesson_id"`
	SubjectCode string    `json:"subject_code"`
	Score       int       `json:"score"`
	CoinsEarned int       `json:"coins_earned"`
	CompletedAt time.Time `json:"completed_at"`
}

// TestResultBackup represents a weekly test result for backup
type TestResultBackup struct {
	ID          int64     `json:"id"`
	ChildID     int64     `json:"child_id"`
	SubjectCode string    `json:"subject_code"`
	Score       int       `json:"score"`
	Passed      bool      `json:"passed"`
	TakenAt     time.Time `json:"taken_at"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	log.Println("Starting database export...")

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(file); err != nil {
		return err
	}

	log.Printf("Database exported successfully to %s", outputPath)
	return nil
}

// ExportToWriter exports the database to an io.Writer
func (s *BackupService) ExportToWriter(w io.Writer) error {
	backup := &BackupData{
		Version:    "1.0",
		ExportedAt: time.Now(),
	}

	if err := s.exportUsers(backup); err != nil {
		return fmt.Errorf("failed to export users: %w", err)
	}
	if err := s.exportFamilies(backup); err != nil {
		return fmt.Errorf("failed to export families: %w", err)
	}
	if err := s.exportChildren(backup); err != nil {
		return fmt.Errorf("failed to export children: %w", err)
	}
	if err := s.exportProfiles(backup); err != nil {
		return fmt.Errorf("failed to export learning profiles: %w", err)
	}
	if err := s.exportLessons(backup); err != nil {
		return fmt.Errorf("failed to export lessons: %w", err)
	}
	if err := s.exportProgress(backup); err != nil {
		return fmt.Errorf("failed to export lesson progress: %w", err)
	}
	if err := s.exportTestResults(backup); err != nil {
		return fmt.Errorf("failed to export test results: %w", err)
	}

	log.Printf("Exported: %d users, %d families, %d children, %d profiles, %d lessons, %d progress rows, %d test results",
		len(backup.Users), len(backup.Families), len(backup.Children),
		len(backup.Profiles), len(backup.Lessons), len(backup.Progress), len(backup.TestResults))

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(backup)
}

// Import restores a database from a backup file
func (s *BackupService) Import(inputPath string) error {
	log.Printf("Starting database import from %s...", inputPath)

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a database from a backup reader
func (s *BackupService) ImportFromReader(reader io.Reader) error {
	var backup BackupData
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	// Import in dependency order.
	if err := s.importUsers(backup.Users); err != nil {
		return fmt.Errorf("failed to import users: %w", err)
	}
	if err := s.importFamilies(backup.Families); err != nil {
		return fmt.Errorf("failed to import families: %w", err)
	}
	if err := s.importChildren(backup.Children); err != nil {
		return fmt.Errorf("failed to import children: %w", err)
	}
	if err := s.importProfiles(backup.Profiles); err != nil {
		return fmt.Errorf("failed to import learning profiles: %w", err)
	}
	if err := s.importLessons(backup.Lessons); err != nil {
		return fmt.Errorf("failed to import lessons: %w", err)
	}
	if err := s.importProgress(backup.Progress); err != nil {
		return fmt.Errorf("failed to import lesson progress: %w", err)
	}
	if err := s.importTestResults(backup.TestResults); err != nil {
		return fmt.Errorf("failed to import test results: %w", err)
	}

	log.Println("Database import completed successfully")
	return nil
}

func (s *BackupService) exportUsers(backup *BackupData) error {
	query := "SELECT id, email, password_hash, name, oauth_provider, oauth_subject, created_at, updated_at FROM users ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserBackup
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.OAuthProvider, &u.OAuthSubject, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return err
		}
		backup.Users = append(backup.Users, u)
	}
	return rows.Err()
}

func (s *BackupService) exportFamilies(backup *BackupData) error {
	query := "SELECT id, name, family_code, created_at, updated_at FROM families ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	var families []FamilyBackup
	for rows.Next() {
		var f FamilyBackup
		if err := rows.Scan(&f.ID, &f.Name, &f.FamilyCode, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return err
		}
		families = append(families, f)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range families {
		memberQuery := "SELECT user_id, role FROM family_members WHERE family_id = ? ORDER BY user_id"
		memberRows, err := s.db.Query(memberQuery, families[i].ID)
		if err != nil {
			return err
		}
		for memberRows.Next() {
			var m FamilyMemberBackup
			if err := memberRows.Scan(&m.UserID, &m.Role); err != nil {
				memberRows.Close()
				return err
			}
			families[i].Members = append(families[i].Members, m)
		}
		if err := memberRows.Err(); err != nil {
			memberRows.Close()
			return err
		}
		memberRows.Close()
	}

	backup.Families = families
	return nil
}

func (s *BackupService) exportChildren(backup *BackupData) error {
	query := `SELECT id, family_id, name, username, password, grade_level, theme,
		coins, xp, level, current_streak, longest_streak, total_sessions,
		consecutive_wrong_answers, last_activity_at, created_at, updated_at
		FROM children ORDER BY id`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c ChildBackup
		var lastActivity sql.NullTime
		if err := rows.Scan(&c.ID, &c.FamilyID, &c.Name, &c.Username, &c.Password,
			&c.GradeLevel, &c.Theme, &c.Coins, &c.XP, &c.Level, &c.CurrentStreak,
			&c.LongestStreak, &c.TotalSessions, &c.ConsecutiveWrongAnswers,
			&lastActivity, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return err
		}
		if lastActivity.Valid {
			c.LastActivityAt = &lastActivity.Time
		}
		backup.Children = append(backup.Children, c)
	}
	return rows.Err()
}

func (s *BackupService) exportProfiles(backup *BackupData) error {
	query := `SELECT child_id, overall_accuracy, total_questions_answered,
		total_questions_correct, weakest_subjects, strongest_subjects,
		preferred_pace, best_time_of_day, primary_learning_style,
		learning_style_confidence
		FROM learning_profiles ORDER BY child_id`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p ProfileBackup
		if err := rows.Scan(&p.ChildID, &p.OverallAccuracy, &p.TotalQuestionsAnswered,
			&p.TotalQuestionsCorrect, &p.WeakestSubjects, &p.StrongestSubjects,
			&p.PreferredPace, &p.BestTimeOfDay, &p.PrimaryLearningStyle,
			&p.LearningStyleConfidence); err != nil {
			return err
		}
		backup.Profiles = append(backup.Profiles, p)
	}
	return rows.Err()
}

func (s *BackupService) exportLessons(backup *BackupData) error {
	query := "SELECT id, subject_code, grade_level, title, question_count, coin_reward, created_at FROM lessons ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var l LessonBackup
		if err := rows.Scan(&l.ID, &l.SubjectCode, &l.GradeLevel, &l.Title, &l.QuestionCount, &l.CoinReward, &l.CreatedAt); err != nil {
			return err
		}
		backup.Lessons = append(backup.Lessons, l)
	}
	return rows.Err()
}

func (s *BackupService) exportProgress(backup *BackupData) error {
	query := "SELECT id, child_id, lesson_id, subject_code, score, coins_earned, completed_at FROM lesson_progress ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p ProgressBackup
		if err := rows.Scan(&p.ID, &p.ChildID, &p.LessonID, &p.SubjectCode, &p.Score, &p.CoinsEarned, &p.CompletedAt); err != nil {
			return err
		}
		backup.Progress = append(backup.Progress, p)
	}
	return rows.Err()
}

func (s *BackupService) exportTestResults(backup *BackupData) error {
	query := "SELECT id, child_id, subject_code, score, passed, taken_at FROM weekly_test_results ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var t TestResultBackup
		if err := rows.Scan(&t.ID, &t.ChildID, &t.SubjectCode, &t.Score, &t.Passed, &t.TakenAt); err != nil {
			return err
		}
		backup.TestResults = append(backup.TestResults, t)
	}
	return rows.Err()
}

func (s *BackupService) importUsers(users []UserBackup) error {
	log.Printf("Importing %d users...", len(users))
	for _, u := range users {
		query := "INSERT INTO users (id, email, password_hash, name, oauth_provider, oauth_subject, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, u.ID, u.Email, u.PasswordHash, u.Name, u.OAuthProvider, u.OAuthSubject, u.CreatedAt, u.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import user %d: %w", u.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importFamilies(families []FamilyBackup) error {
	log.Printf("Importing %d families...", len(families))
	for _, f := range families {
		query := "INSERT INTO families (id, name, family_code, created_at, updated_at) VALUES (?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, f.ID, f.Name, f.FamilyCode, f.CreatedAt, f.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import family %d: %w", f.ID, err)
		}

		for _, m := range f.Members {
			memberQuery := "INSERT INTO family_members (family_id, user_id, role) VALUES (?, ?, ?)"
			if _, err := s.db.Exec(memberQuery, f.ID, m.UserID, m.Role); err != nil {
				return fmt.Errorf("failed to import family member %d for family %d: %w", m.UserID, f.ID, err)
			}
		}
	}
	return nil
}

func (s *BackupService) importChildren(children []ChildBackup) error {
	log.Printf("Importing %d children...", len(children))
	for _, c := range children {
		query := `INSERT INTO children (id, family_id, name, username, password,
			grade_level, theme, coins, xp, level, current_streak, longest_streak,
			total_sessions, consecutive_wrong_answers, last_activity_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		var lastActivity interface{}
		if c.LastActivityAt != nil {
			lastActivity = *c.LastActivityAt
		}
		if _, err := s.db.Exec(query, c.ID, c.FamilyID, c.Name, c.Username, c.Password,
			c.GradeLevel, c.Theme, c.Coins, c.XP, c.Level, c.CurrentStreak,
			c.LongestStreak, c.TotalSessions, c.ConsecutiveWrongAnswers,
			lastActivity, c.CreatedAt, c.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import child %d: %w", c.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importProfiles(profiles []ProfileBackup) error {
	log.Printf("Importing %d learning profiles...", len(profiles))
	for _, p := range profiles {
		query := `INSERT INTO learning_profiles (child_id, overall_accuracy,
			total_questions_answered, total_questions_correct, weakest_subjects,
			strongest_subjects, preferred_pace, best_time_of_day,
			primary_learning_style, learning_style_confidence)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := s.db.Exec(query, p.ChildID, p.OverallAccuracy,
			p.TotalQuestionsAnswered, p.TotalQuestionsCorrect, p.WeakestSubjects,
			p.StrongestSubjects, p.PreferredPace, p.BestTimeOfDay,
			p.PrimaryLearningStyle, p.LearningStyleConfidence); err != nil {
			return fmt.Errorf("failed to import profile for child %d: %w", p.ChildID, err)
		}
	}
	return nil
}

func (s *BackupService) importLessons(lessons []LessonBackup) error {
	log.Printf("Importing %d lessons...", len(lessons))
	for _, l := range lessons {
		query := "INSERT INTO lessons (id, subject_code, grade_level, title, question_count, coin_reward, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, l.ID, l.SubjectCode, l.GradeLevel, l.Title, l.QuestionCount, l.CoinReward, l.CreatedAt); err != nil {
			return fmt.Errorf("failed to import lesson %d: %w", l.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importProgress(progress []ProgressBackup) error {
	log.Printf("Importing %d lesson progress rows...", len(progress))
	for _, p := range progress {
		query := "INSERT INTO lesson_progress (id, child_id, lesson_id, subject_code, score, coins_earned, completed_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, p.ID, p.ChildID, p.LessonID, p.SubjectCode, p.Score, p.CoinsEarned, p.CompletedAt); err != nil {
			return fmt.Errorf("failed to import progress %d: %w", p.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importTestResults(results []TestResultBackup) error {
	log.Printf("Importing %d test results...", len(results))
	for _, t := range results {
		query := "INSERT INTO weekly_test_results (id, child_id, subject_code, score, passed, taken_at) VALUES (?, ?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, t.ID, t.ChildID, t.SubjectCode, t.Score, t.Passed, t.TakenAt); err != nil {
			return fmt.Errorf("failed to import test result %d: %w", t.ID, err)
		}
	}
	return nil
}
