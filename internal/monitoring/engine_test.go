package monitoring

import (
	"errors"
	"testing"
	"time"

	"brightquest/internal/models"
)

type fakeReader struct {
	snap        *Snapshot
	dayProgress []models.LessonProgress
	err         error
}

func (f *fakeReader) ReadSnapshot(childID int64) (*Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func (f *fakeReader) ReadDayProgress(childID int64, day time.Time) ([]models.LessonProgress, error) {
	return f.dayProgress, nil
}

type fakeAlertStore struct {
	inserted  []*models.Alert
	insertErr error
	existsErr error
}

func (f *fakeAlertStore) AlertExistsSince(childID int64, kind models.AlertKind, cutoff time.Time) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, a := range f.inserted {
		if a.ChildID == childID && a.Kind == kind && !a.CreatedAt.Before(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAlertStore) InsertAlert(alert *models.Alert) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, alert)
	return nil
}

func (f *fakeAlertStore) kinds() map[models.AlertKind]bool {
	out := make(map[models.AlertKind]bool)
	for _, a := range f.inserted {
		out[a.Kind] = true
	}
	return out
}

type fakeInsightStore struct {
	upserts []*models.Insight
	err     error
}

func (f *fakeInsightStore) UpsertInsight(insight *models.Insight) error {
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, insight)
	return nil
}

type fakeSummaryStore struct {
	summaries []*models.DailySummary
	err       error
}

func (f *fakeSummaryStore) UpsertDailySummary(summary *models.DailySummary) error {
	if f.err != nil {
		return f.err
	}
	f.summaries = append(f.summaries, summary)
	return nil
}

func newTestEngine(reader *fakeReader, alerts *fakeAlertStore, insights *fakeInsightStore, summaries *fakeSummaryStore) *Engine {
	e := NewEngine(reader, alerts, insights, summaries, DefaultThresholds())
	e.now = func() time.Time { return testNow }
	return e
}

func TestAnalyzeStrugglingChild(t *testing.T) {
	// Accuracy 0.4 over 25 questions, quiet for 4 days: exactly the
	// inactivity and low-accuracy alerts should fire.
	fourDaysAgo := testNow.Add(-4 * 24 * time.Hour)
	reader := &fakeReader{snap: &Snapshot{
		Child: models.Child{
			ID:             1,
			FamilyID:       2,
			Name:           "Mia",
			LastActivityAt: &fourDaysAgo,
		},
		Profile: &models.LearningProfile{
			OverallAccuracy:        0.4,
			TotalQuestionsAnswered: 25,
		},
	}}
	alerts := &fakeAlertStore{}
	insights := &fakeInsightStore{}
	summaries := &fakeSummaryStore{}

	report, err := newTestEngine(reader, alerts, insights, summaries).Analyze(1, ActionScan)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if report.AlertsGenerated != 2 {
		t.Errorf("AlertsGenerated = %d, want 2", report.AlertsGenerated)
	}
	kinds := alerts.kinds()
	if !kinds[models.AlertInactive] || !kinds[models.AlertLowAccuracy] {
		t.Errorf("saved kinds = %v, want inactive and low_accuracy", kinds)
	}
	if len(alerts.inserted) != 2 {
		t.Errorf("inserted %d alerts, want 2", len(alerts.inserted))
	}
	if report.Message != "Analysis complete. Generated 2 alerts and 0 insights." {
		t.Errorf("unexpected message %q", report.Message)
	}
	if len(summaries.summaries) != 0 {
		t.Errorf("scan-only pass wrote %d summaries", len(summaries.summaries))
	}
}

func TestAnalyzeDeduplicatesRepeatPasses(t *testing.T) {
	reader := &fakeReader{snap: &Snapshot{
		Child: models.Child{ID: 1, FamilyID: 2, Name: "Mia", ConsecutiveWrongAnswers: 6},
	}}
	alerts := &fakeAlertStore{}
	engine := newTestEngine(reader, alerts, &fakeInsightStore{}, &fakeSummaryStore{})

	if _, err := engine.Analyze(1, ActionScan); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	report, err := engine.Analyze(1, ActionScan)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}

	if len(alerts.inserted) != 1 {
		t.Errorf("inserted %d alerts across two passes, want 1", len(alerts.inserted))
	}
	// The detector still fired; only the write was suppressed.
	if report.AlertsGenerated != 1 {
		t.Errorf("AlertsGenerated = %d, want 1", report.AlertsGenerated)
	}
}

func TestAnalyzeCelebrationOncePerWeek(t *testing.T) {
	reader := &fakeReader{snap: &Snapshot{
		Child: models.Child{ID: 1, FamilyID: 2, Name: "Mia", CurrentStreak: 7},
	}}
	alerts := &fakeAlertStore{
		inserted: []*models.Alert{{
			ChildID:   1,
			Kind:      models.AlertCelebration,
			CreatedAt: testNow.Add(-3 * 24 * time.Hour),
		}},
	}

	report, err := newTestEngine(reader, alerts, &fakeInsightStore{}, &fakeSummaryStore{}).Analyze(1, ActionScan)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if report.AlertsGenerated != 0 {
		t.Errorf("AlertsGenerated = %d, want 0: streak already celebrated this week", report.AlertsGenerated)
	}
	if len(alerts.inserted) != 1 {
		t.Errorf("inserted %d alerts, want the pre-existing 1", len(alerts.inserted))
	}
}

func TestAnalyzeTreatsDuplicateInsertAsSuppression(t *testing.T) {
	reader := &fakeReader{snap: &Snapshot{
		Child: models.Child{ID: 1, FamilyID: 2, Name: "Mia", ConsecutiveWrongAnswers: 6},
	}}
	alerts := &fakeAlertStore{insertErr: ErrDuplicateAlert}

	report, err := newTestEngine(reader, alerts, &fakeInsightStore{}, &fakeSummaryStore{}).Analyze(1, ActionScan)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.WriteFailures != 0 {
		t.Errorf("WriteFailures = %d, want 0: a duplicate is suppression, not failure", report.WriteFailures)
	}
}

func TestAnalyzeCountsWriteFailuresAndContinues(t *testing.T) {
	fourDaysAgo := testNow.Add(-4 * 24 * time.Hour)
	reader := &fakeReader{snap: &Snapshot{
		Child: models.Child{
			ID:             1,
			FamilyID:       2,
			Name:           "Mia",
			LastActivityAt: &fourDaysAgo,
		},
		Profile: &models.LearningProfile{PreferredPace: models.PaceFast},
	}}
	alerts := &fakeAlertStore{insertErr: errors.New("disk full")}
	insights := &fakeInsightStore{}

	report, err := newTestEngine(reader, alerts, insights, &fakeSummaryStore{}).Analyze(1, ActionScan)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if report.WriteFailures != 1 {
		t.Errorf("WriteFailures = %d, want 1", report.WriteFailures)
	}
	// The failed alert write must not stop the insight from landing.
	if len(insights.upserts) != 1 {
		t.Errorf("upserted %d insights, want 1", len(insights.upserts))
	}
}

func TestAnalyzeAbortsOnSnapshotError(t *testing.T) {
	reader := &fakeReader{err: ErrChildNotFound}

	_, err := newTestEngine(reader, &fakeAlertStore{}, &fakeInsightStore{}, &fakeSummaryStore{}).Analyze(1, ActionScan)
	if !errors.Is(err, ErrChildNotFound) {
		t.Fatalf("err = %v, want ErrChildNotFound", err)
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in      string
		want    Action
		wantErr bool
	}{
		{in: "", want: ActionScan},
		{in: "daily_summary", want: ActionDailySummary},
		{in: "full_analysis", want: ActionFullAnalysis},
		{in: "weekly_report", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseAction(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAction(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseAction(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
