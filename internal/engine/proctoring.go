package engine

import (
	"math"
	"sort"

	"github.com/stemsi/exstem-adaptive/internal/model"
)

// RecentEventsLimit is how many of the latest events a report carries.
const RecentEventsLimit = 10

var severityWeights = map[model.ProctoringEventType]float64{
	model.EventTabSwitch:       5,
	model.EventFaceNotDetected: 3,
	model.EventMultipleFaces:   10,
	model.EventCopyPaste:       4,
	model.EventRightClick:      1,
}

// SeverityWeight returns the penalty weight of an event type.
func SeverityWeight(t model.ProctoringEventType) float64 {
	return severityWeights[t]
}

type recommendationRule struct {
	eventType model.ProctoringEventType
	minCount  int
	message   string
}

var recommendationRules = []recommendationRule{
	{model.EventMultipleFaces, 1, "Ensure only the test-taker is visible on camera."},
	{model.EventTabSwitch, 3, "Minimize tab switching during the exam."},
	{model.EventCopyPaste, 1, "Avoid copying or pasting content during the exam."},
	{model.EventFaceNotDetected, 3, "Stay within the camera frame for the whole exam."},
	{model.EventRightClick, 5, "Avoid using the context menu during the exam."},
}

const (
	recommendManualReview = "Manual review recommended."
	recommendNoConcerns   = "No significant integrity concerns detected."
)

// RiskFor maps an integrity score onto a risk level.
func RiskFor(integrity float64) model.RiskLevel {
	switch {
	case integrity >= 80:
		return model.RiskLow
	case integrity >= 50:
		return model.RiskMedium
	default:
		return model.RiskHigh
	}
}

// Aggregate folds a session's whole event log into a report. Events may arrive
// in any order; they are sorted by timestamp first. Malformed events are skipped.
func Aggregate(events []model.ProctoringEvent) model.ProctoringReport {
	valid := make([]model.ProctoringEvent, 0, len(events))
	for i := range events {
		if events[i].Validate() == nil {
			valid = append(valid, events[i])
		}
	}
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Timestamp.Equal(valid[j].Timestamp) {
			return valid[i].ReceivedAt.Before(valid[j].ReceivedAt)
		}
		return valid[i].Timestamp.Before(valid[j].Timestamp)
	})

	counts := make(map[model.ProctoringEventType]int, len(model.ProctoringEventTypes))
	for _, t := range model.ProctoringEventTypes {
		counts[t] = 0
	}

	var penalty float64
	for _, ev := range valid {
		counts[ev.Type]++
		penalty += SeverityWeight(ev.Type) * ev.Confidence
	}

	// Risk follows the published score, which is rounded to two decimals.
	integrity := math.Round(clamp(100-penalty, 0, 100)*100) / 100
	risk := RiskFor(integrity)

	report := model.ProctoringReport{
		IntegrityScore:  integrity,
		RiskLevel:       risk,
		EventCounts:     counts,
		TotalEvents:     len(valid),
		Recommendations: recommend(counts, risk),
		RecentEvents:    []model.ProctoringEvent{},
	}

	if n := len(valid); n > 0 {
		first, last := valid[0].Timestamp, valid[n-1].Timestamp
		report.FirstEventAt, report.LastEventAt = &first, &last
		report.RecentEvents = append(report.RecentEvents, valid[max(0, n-RecentEventsLimit):]...)
	}
	return report
}

// recommend applies the rule table. A rule fires when its count threshold is
// met; the dominant event type by count always fires. Output is ordered by
// severity weight, descending, with at most one entry per rule.
func recommend(counts map[model.ProctoringEventType]int, risk model.RiskLevel) []string {
	dominant := dominantType(counts)

	fired := make([]recommendationRule, 0, len(recommendationRules))
	for _, rule := range recommendationRules {
		n := counts[rule.eventType]
		if n >= rule.minCount || (rule.eventType == dominant && n > 0) {
			fired = append(fired, rule)
		}
	}
	sort.SliceStable(fired, func(i, j int) bool {
		return SeverityWeight(fired[i].eventType) > SeverityWeight(fired[j].eventType)
	})

	out := make([]string, 0, len(fired)+1)
	if risk == model.RiskHigh {
		out = append(out, recommendManualReview)
	}
	for _, rule := range fired {
		out = append(out, rule.message)
	}
	if len(out) == 0 {
		out = append(out, recommendNoConcerns)
	}
	return out
}

// dominantType returns the most frequent event type; ties go to the more
// severe type. Returns "" when there are no events.
func dominantType(counts map[model.ProctoringEventType]int) model.ProctoringEventType {
	var best model.ProctoringEventType
	bestCount := 0
	for _, t := range model.ProctoringEventTypes {
		n := counts[t]
		if n == 0 {
			continue
		}
		if n > bestCount || (n == bestCount && SeverityWeight(t) > SeverityWeight(best)) {
			best, bestCount = t, n
		}
	}
	return best
}
