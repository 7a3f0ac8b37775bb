package monitoring

import (
	"time"

	"brightquest/internal/models"
)

// buildDailySummary aggregates one calendar day of activity for a child.
// The question counters deliberately carry the lifetime totals from the
// learning profile rather than a per-day count; the dashboard charts them
// as a running total.
func buildDailySummary(snap *Snapshot, dayProgress []models.LessonProgress, th Thresholds, now time.Time) *models.DailySummary {
	var questionsAnswered, questionsCorrect int
	if snap.Profile != nil {
		questionsAnswered = snap.Profile.TotalQuestionsAnswered
		questionsCorrect = snap.Profile.TotalQuestionsCorrect
	}

	accuracy := 0.0
	if questionsAnswered > 0 {
		accuracy = float64(questionsCorrect) / float64(questionsAnswered)
	}

	breakdown := make(map[string]models.SubjectStats)
	var coins int
	for _, p := range dayProgress {
		stats := breakdown[p.SubjectCode]
		stats.Completed++
		stats.AvgScore += float64(p.Score)
		breakdown[p.SubjectCode] = stats
		coins += p.CoinsEarned
	}
	for subject, stats := range breakdown {
		stats.AvgScore /= float64(stats.Completed)
		breakdown[subject] = stats
	}

	mood := models.MoodEngaged
	if snap.Child.ConsecutiveWrongAnswers >= th.FrustratedMoodWrong {
		mood = models.MoodFrustrated
	}

	return &models.DailySummary{
		ChildID:           snap.Child.ID,
		SummaryDate:       now.UTC().Format("2006-01-02"),
		QuestionsAnswered: questionsAnswered,
		QuestionsCorrect:  questionsCorrect,
		Accuracy:          accuracy,
		LessonsCompleted:  len(dayProgress),
		CoinsEarned:       coins,
		SubjectBreakdown:  breakdown,
		StreakMaintained:  snap.Child.CurrentStreak > 0,
		MoodDetected:      mood,
	}
}
