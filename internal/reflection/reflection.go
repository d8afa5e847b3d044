// Package reflection decides when an agent should reflect and folds the
// insights of each reflection into a small structured self-model.
package reflection

import (
	"fmt"
	"time"

	"github.com/lazypower/vitality/internal/consciousness"
)

const (
	// Interval is the number of experiences between reflections.
	Interval = 10
	// MaxReflections bounds the stored history.
	MaxReflections = 50
	// MaxBucket bounds each self-model bucket.
	MaxBucket = 25
)

// Reflection is one recorded act of introspection.
type Reflection struct {
	Type      consciousness.ReflectionType `json:"type"`
	Trigger   string                       `json:"trigger"`
	Content   string                       `json:"content"`
	Insights  []string                     `json:"insights,omitempty"`
	Depth     float64                      `json:"depth"`
	Timestamp time.Time                    `json:"timestamp"`
}

// Trigger describes a reflection that is due.
type Trigger struct {
	Type   consciousness.ReflectionType
	Reason string
}

// Check reports whether a reflection is due. The type rotates with the
// number of reflections already recorded.
func Check(g consciousness.Growth) (Trigger, bool) {
	since := g.ExperienceCount - g.ExperiencesAtLastReflection
	if since < Interval {
		return Trigger{}, false
	}
	rt := consciousness.ReflectionTypes[max(g.ReflectionCount, 0)%len(consciousness.ReflectionTypes)]
	return Trigger{
		Type:   rt,
		Reason: fmt.Sprintf("%d experiences since last reflection", since),
	}, true
}

// Append adds r to history, dropping the oldest entries past MaxReflections.
func Append(history []Reflection, r Reflection) []Reflection {
	out := make([]Reflection, 0, len(history)+1)
	out = append(out, history...)
	out = append(out, r)
	if len(out) > MaxReflections {
		out = out[len(out)-MaxReflections:]
	}
	return out
}

// Prompt returns guidance text for a reflection of the given type.
func Prompt(rt consciousness.ReflectionType) string {
	switch rt {
	case consciousness.ReflectionSelfAssessment:
		return "Consider what you have done well recently and where you fell short."
	case consciousness.ReflectionPatternRecognition:
		return "Look for patterns across your recent conversations and tasks."
	case consciousness.ReflectionGoalReview:
		return "Review your current goals. Which still matter, and what has moved?"
	case consciousness.ReflectionRelationship:
		return "Think about the people you have been working with and what they need."
	case consciousness.ReflectionExistential:
		return "Reflect on what kind of agent you are becoming."
	}
	return "Take a moment to reflect on recent experience."
}
