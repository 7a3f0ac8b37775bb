package monitoring

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"brightquest/internal/models"
)

// An alertDetector inspects a snapshot and returns one candidate alert, or
// nil to abstain. Detectors are pure: no storage access, no clock reads
// beyond the now they are handed.
type alertDetector func(snap *Snapshot, th Thresholds, now time.Time) *models.Alert

var alertDetectors = []alertDetector{
	detectInactivity,
	detectLowAccuracy,
	detectFrustration,
	detectSubjectWeakness,
	detectCelebration,
	detectStreakBroken,
	detectImprovement,
}

// runDetector evaluates one detector, converting a panic into abstention so
// a single faulty rule cannot take down the whole pass.
func runDetector(d alertDetector, snap *Snapshot, th Thresholds, now time.Time) (alert *models.Alert) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("monitoring: detector panicked for child %d: %v", snap.Child.ID, r)
			alert = nil
		}
	}()
	return d(snap, th, now)
}

func newAlert(snap *Snapshot, kind models.AlertKind, severity models.Severity, title, message string, data models.AlertData) *models.Alert {
	return &models.Alert{
		ChildID:  snap.Child.ID,
		FamilyID: snap.Child.FamilyID,
		Kind:     kind,
		Severity: severity,
		Title:    title,
		Message:  message,
		Data:     encodePayload(data),
	}
}

// encodePayload marshals a statically shaped payload; the types involved
// cannot fail to encode, so a failure degrades to an empty object.
func encodePayload(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}

func detectInactivity(snap *Snapshot, th Thresholds, now time.Time) *models.Alert {
	if snap.Child.LastActivityAt == nil {
		return nil
	}
	days := snap.Child.DaysSinceActivity(now)
	if days < th.InactiveDays {
		return nil
	}

	severity := models.SeverityWarning
	if days >= th.UrgentInactiveDays {
		severity = models.SeverityUrgent
	}
	return newAlert(snap, models.AlertInactive, severity,
		fmt.Sprintf("%s hasn't practiced in %d days", snap.Child.Name, days),
		fmt.Sprintf("It's been %d days since %s last practiced. Regular practice helps maintain skills!", days, snap.Child.Name),
		models.InactivityData{DaysSinceActivity: days},
	)
}

func detectLowAccuracy(snap *Snapshot, th Thresholds, _ time.Time) *models.Alert {
	p := snap.Profile
	if p == nil || p.OverallAccuracy >= th.LowAccuracy || p.TotalQuestionsAnswered < th.MinQuestionsForAccuracy {
		return nil
	}

	return newAlert(snap, models.AlertLowAccuracy, models.SeverityWarning,
		fmt.Sprintf("%s may need extra help", snap.Child.Name),
		fmt.Sprintf("%s's overall accuracy is %d%%. Consider reviewing lessons together or trying easier material.",
			snap.Child.Name, int(math.Round(p.OverallAccuracy*100))),
		models.LowAccuracyData{Accuracy: p.OverallAccuracy, QuestionsAnswered: p.TotalQuestionsAnswered},
	)
}

func detectFrustration(snap *Snapshot, th Thresholds, _ time.Time) *models.Alert {
	wrong := snap.Child.ConsecutiveWrongAnswers
	if wrong < th.ConsecutiveWrong {
		return nil
	}

	return newAlert(snap, models.AlertFrustration, models.SeverityUrgent,
		fmt.Sprintf("%s might be frustrated", snap.Child.Name),
		fmt.Sprintf("%s has gotten %d answers wrong in a row. Consider taking a break or switching subjects.", snap.Child.Name, wrong),
		models.FrustrationData{ConsecutiveWrong: wrong},
	)
}

func detectSubjectWeakness(snap *Snapshot, th Thresholds, _ time.Time) *models.Alert {
	p := snap.Profile
	if p == nil || len(p.WeakestSubjects) == 0 {
		return nil
	}

	weak := make(map[string]bool, len(p.WeakestSubjects))
	for _, s := range p.WeakestSubjects {
		weak[s] = true
	}

	var sum float64
	var count int
	for _, progress := range snap.RecentProgress {
		if weak[progress.SubjectCode] {
			sum += float64(progress.Score)
			count++
		}
	}
	if count == 0 {
		// No recent work in the weak subjects to judge.
		return nil
	}

	avg := sum / float64(count)
	if avg >= th.StrugglingScore {
		return nil
	}

	subjects := strings.Join(p.WeakestSubjects, ", ")
	alert := newAlert(snap, models.AlertSubjectWeakness, models.SeverityWarning,
		fmt.Sprintf("%s is struggling with %s", snap.Child.Name, subjects),
		fmt.Sprintf("Average score of %d%% in %s. Extra practice in these areas would help!", int(math.Round(avg)), subjects),
		models.SubjectWeaknessData{Subjects: p.WeakestSubjects, AvgScore: avg},
	)
	alert.SubjectCode = p.WeakestSubjects[0]
	return alert
}

func detectCelebration(snap *Snapshot, th Thresholds, _ time.Time) *models.Alert {
	streak := snap.Child.CurrentStreak
	if streak < th.CelebrationStreak {
		return nil
	}

	return newAlert(snap, models.AlertCelebration, models.SeverityInfo,
		fmt.Sprintf("\U0001F389 %s has a %d-day streak!", snap.Child.Name, streak),
		fmt.Sprintf("Amazing dedication! %s has practiced for %d days in a row. Keep it up!", snap.Child.Name, streak),
		models.CelebrationData{Streak: streak},
	)
}

func detectStreakBroken(snap *Snapshot, th Thresholds, now time.Time) *models.Alert {
	c := snap.Child
	if c.CurrentStreak != 0 || c.TotalSessions <= th.MinSessionsForStreakBreak {
		return nil
	}
	if c.LastActivityAt == nil || !c.LastActivityAt.Before(now.Add(-24*time.Hour)) {
		return nil
	}

	return newAlert(snap, models.AlertStreakBroken, models.SeverityInfo,
		fmt.Sprintf("%s's streak was reset", c.Name),
		fmt.Sprintf("%s's practice streak was reset. Start a new streak today!", c.Name),
		models.StreakBrokenData{},
	)
}

func detectImprovement(snap *Snapshot, th Thresholds, _ time.Time) *models.Alert {
	progress := snap.RecentProgress
	if len(progress) < 5 {
		return nil
	}

	recent := progress[:5]
	older := progress[5:min(len(progress), 10)]
	if len(older) < 3 {
		return nil
	}

	recentAvg := meanScore(recent)
	olderAvg := meanScore(older)
	improvement := (recentAvg - olderAvg) / 100
	if improvement < th.ImprovementRatio {
		return nil
	}

	return newAlert(snap, models.AlertImprovement, models.SeverityInfo,
		fmt.Sprintf("\U0001F4C8 %s is improving!", snap.Child.Name),
		fmt.Sprintf("%s's recent scores are %d%% higher than before. Great progress!",
			snap.Child.Name, int(math.Round(improvement*100))),
		models.ImprovementData{Improvement: improvement, RecentAvg: recentAvg, OlderAvg: olderAvg},
	)
}

func meanScore(progress []models.LessonProgress) float64 {
	var sum float64
	for _, p := range progress {
		sum += float64(p.Score)
	}
	return sum / float64(len(progress))
}
