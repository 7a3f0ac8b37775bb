package monitoring

import (
	"fmt"
	"log"
	"strings"

	"brightquest/internal/models"
)

// styleDescriptions phrases each learning style for parent-facing text.
var styleDescriptions = map[string]string{
	models.StyleVisual:      "pictures, diagrams, and videos",
	models.StyleAuditory:    "listening and verbal explanations",
	models.StyleReading:     "reading and writing",
	models.StyleKinesthetic: "hands-on activities and movement",
}

// An insightGenerator synthesizes one observation from the snapshot, or
// returns nil when the profile lacks the signal.
type insightGenerator func(snap *Snapshot) *models.Insight

var insightGenerators = []insightGenerator{
	generateBestTimeInsight,
	generateLearningStyleInsight,
	generatePaceInsight,
	generateSubjectStrengthInsight,
}

// synthesizeInsights runs every generator; a panicking generator abstains.
// All generators need a learning profile, so a profileless child yields none.
func synthesizeInsights(snap *Snapshot) []*models.Insight {
	if snap.Profile == nil {
		return nil
	}

	var insights []*models.Insight
	for _, g := range insightGenerators {
		if insight := runGenerator(g, snap); insight != nil {
			insights = append(insights, insight)
		}
	}
	return insights
}

func runGenerator(g insightGenerator, snap *Snapshot) (insight *models.Insight) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("monitoring: insight generator panicked for child %d: %v", snap.Child.ID, r)
			insight = nil
		}
	}()
	return g(snap)
}

// styleConfidence falls back to 0.5 when the analytics pipeline has not
// scored the profile yet.
func styleConfidence(p *models.LearningProfile) float64 {
	if p.LearningStyleConfidence == 0 {
		return 0.5
	}
	return p.LearningStyleConfidence
}

func generateBestTimeInsight(snap *Snapshot) *models.Insight {
	p := snap.Profile
	if p.BestTimeOfDay == "" {
		return nil
	}

	return &models.Insight{
		ChildID:          snap.Child.ID,
		Kind:             models.InsightBestTime,
		Title:            "Optimal Learning Time",
		Description:      fmt.Sprintf("%s learns best in the %s.", snap.Child.Name, p.BestTimeOfDay),
		Recommendation:   fmt.Sprintf("Try to schedule practice sessions during %s hours for best results.", p.BestTimeOfDay),
		Confidence:       styleConfidence(p),
		BasedOnQuestions: p.TotalQuestionsAnswered,
	}
}

func generateLearningStyleInsight(snap *Snapshot) *models.Insight {
	p := snap.Profile
	if p.PrimaryLearningStyle == "" {
		return nil
	}

	desc, ok := styleDescriptions[p.PrimaryLearningStyle]
	if !ok {
		// Unrecognized style values read as the most neutral one.
		desc = styleDescriptions[models.StyleReading]
	}

	return &models.Insight{
		ChildID:          snap.Child.ID,
		Kind:             models.InsightLearningPattern,
		Title:            "Learning Style",
		Description:      fmt.Sprintf("%s is a %s learner who responds best to %s.", snap.Child.Name, p.PrimaryLearningStyle, desc),
		Recommendation:   fmt.Sprintf("Use %s when explaining new concepts.", desc),
		Confidence:       styleConfidence(p),
		BasedOnQuestions: p.TotalQuestionsAnswered,
	}
}

func generatePaceInsight(snap *Snapshot) *models.Insight {
	p := snap.Profile
	if p.PreferredPace == "" {
		return nil
	}

	var recommendation string
	switch p.PreferredPace {
	case models.PaceSlow:
		recommendation = "Take time with each concept. Don't rush through material."
	case models.PaceFast:
		recommendation = "Keep things moving! Quick transitions between topics work well."
	default:
		recommendation = "A balanced pace with regular breaks works well."
	}

	return &models.Insight{
		ChildID:        snap.Child.ID,
		Kind:           models.InsightPace,
		Title:          "Learning Pace",
		Description:    fmt.Sprintf("%s prefers a %s learning pace.", snap.Child.Name, p.PreferredPace),
		Recommendation: recommendation,
		Confidence:     0.7,
	}
}

func generateSubjectStrengthInsight(snap *Snapshot) *models.Insight {
	p := snap.Profile
	if len(p.StrongestSubjects) == 0 {
		return nil
	}

	return &models.Insight{
		ChildID:        snap.Child.ID,
		Kind:           models.InsightSubjectStrength,
		Title:          "Strong Subjects",
		Description:    fmt.Sprintf("%s excels in %s.", snap.Child.Name, strings.Join(p.StrongestSubjects, ", ")),
		Recommendation: "Build confidence by tackling more advanced topics in these areas.",
		Confidence:     0.8,
		Data:           encodePayload(models.SubjectStrengthData{Subjects: p.StrongestSubjects}),
	}
}
