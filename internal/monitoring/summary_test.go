package monitoring

import (
	"testing"
	"time"

	"brightquest/internal/models"
)

func TestAnalyzeFullAnalysisWritesSummary(t *testing.T) {
	reader := &fakeReader{
		snap: &Snapshot{
			Child: models.Child{ID: 1, FamilyID: 2, Name: "Mia", CurrentStreak: 3},
			Profile: &models.LearningProfile{
				TotalQuestionsAnswered: 200,
				TotalQuestionsCorrect:  150,
			},
		},
		dayProgress: []models.LessonProgress{
			{SubjectCode: "MATH", Score: 80, CoinsEarned: 10},
			{SubjectCode: "MATH", Score: 90, CoinsEarned: 10},
			{SubjectCode: "MATH", Score: 100, CoinsEarned: 15},
		},
	}
	summaries := &fakeSummaryStore{}

	report, err := newTestEngine(reader, &fakeAlertStore{}, &fakeInsightStore{}, summaries).Analyze(1, ActionFullAnalysis)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.WriteFailures != 0 {
		t.Fatalf("WriteFailures = %d", report.WriteFailures)
	}
	if len(summaries.summaries) != 1 {
		t.Fatalf("wrote %d summaries, want 1", len(summaries.summaries))
	}

	s := summaries.summaries[0]
	if s.SummaryDate != "2025-06-15" {
		t.Errorf("SummaryDate = %q, want 2025-06-15", s.SummaryDate)
	}
	if s.LessonsCompleted != 3 {
		t.Errorf("LessonsCompleted = %d, want 3", s.LessonsCompleted)
	}
	if s.CoinsEarned != 35 {
		t.Errorf("CoinsEarned = %d, want 35", s.CoinsEarned)
	}
	math := s.SubjectBreakdown["MATH"]
	if math.Completed != 3 {
		t.Errorf("MATH.Completed = %d, want 3", math.Completed)
	}
	if math.AvgScore != 90 {
		t.Errorf("MATH.AvgScore = %v, want 90", math.AvgScore)
	}
	if s.QuestionsAnswered != 200 || s.QuestionsCorrect != 150 {
		t.Errorf("question totals = %d/%d, want lifetime 200/150", s.QuestionsAnswered, s.QuestionsCorrect)
	}
	if s.Accuracy != 0.75 {
		t.Errorf("Accuracy = %v, want 0.75", s.Accuracy)
	}
	if !s.StreakMaintained {
		t.Error("StreakMaintained = false, want true")
	}
	if s.MoodDetected != models.MoodEngaged {
		t.Errorf("MoodDetected = %q, want engaged", s.MoodDetected)
	}
}

func TestBuildDailySummaryMood(t *testing.T) {
	tests := []struct {
		name  string
		wrong int
		want  string
	}{
		{name: "two wrong still engaged", wrong: 2, want: models.MoodEngaged},
		{name: "three wrong reads frustrated", wrong: 3, want: models.MoodFrustrated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := testSnapshot()
			snap.Child.ConsecutiveWrongAnswers = tt.wrong

			s := buildDailySummary(snap, nil, DefaultThresholds(), testNow)
			if s.MoodDetected != tt.want {
				t.Errorf("MoodDetected = %q, want %q", s.MoodDetected, tt.want)
			}
		})
	}
}

func TestBuildDailySummaryQuietDay(t *testing.T) {
	snap := testSnapshot()

	s := buildDailySummary(snap, nil, DefaultThresholds(), testNow)
	if s.LessonsCompleted != 0 || s.CoinsEarned != 0 {
		t.Errorf("quiet day totals = %d lessons, %d coins", s.LessonsCompleted, s.CoinsEarned)
	}
	if s.Accuracy != 0 {
		t.Errorf("Accuracy = %v, want 0 with no questions on record", s.Accuracy)
	}
	if s.StreakMaintained {
		t.Error("StreakMaintained = true for a child with no streak")
	}
	if len(s.SubjectBreakdown) != 0 {
		t.Errorf("SubjectBreakdown has %d entries, want 0", len(s.SubjectBreakdown))
	}
}

func TestDailySummaryDateUsesUTC(t *testing.T) {
	// Late evening in a western timezone is already the next day in UTC.
	loc := time.FixedZone("UTC-8", -8*60*60)
	evening := time.Date(2025, 6, 14, 22, 0, 0, 0, loc)

	s := buildDailySummary(testSnapshot(), nil, DefaultThresholds(), evening)
	if s.SummaryDate != "2025-06-15" {
		t.Errorf("SummaryDate = %q, want 2025-06-15", s.SummaryDate)
	}
}
