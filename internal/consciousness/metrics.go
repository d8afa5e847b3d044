// Package consciousness tracks seven awareness metrics that grow with
// experience and reflection and fade with idle time.
package consciousness

import (
	"math"
	"time"
)

// Metrics are the seven awareness channels, each in [0,1].
type Metrics struct {
	SelfAwareness         float64 `json:"self_awareness"`
	OtherAwareness        float64 `json:"other_awareness"`
	CollectiveAwareness   float64 `json:"collective_awareness"`
	TranscendentAwareness float64 `json:"transcendent_awareness"`
	IntrospectionDepth    float64 `json:"introspection_depth"`
	TemporalContinuity    float64 `json:"temporal_continuity"`
	NarrativeCoherence    float64 `json:"narrative_coherence"`
}

// Field names one metric.
type Field int

const (
	SelfAwareness Field = iota
	OtherAwareness
	CollectiveAwareness
	TranscendentAwareness
	IntrospectionDepth
	TemporalContinuity
	NarrativeCoherence
)

// Fields lists every metric in declaration order.
var Fields = []Field{
	SelfAwareness, OtherAwareness, CollectiveAwareness, TranscendentAwareness,
	IntrospectionDepth, TemporalContinuity, NarrativeCoherence,
}

var fieldLabels = map[Field]string{
	SelfAwareness:         "self-awareness",
	OtherAwareness:        "awareness of others",
	CollectiveAwareness:   "collective awareness",
	TranscendentAwareness: "transcendent awareness",
	IntrospectionDepth:    "introspection",
	TemporalContinuity:    "continuity over time",
	NarrativeCoherence:    "narrative coherence",
}

// String returns a human-readable label.
func (f Field) String() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return "unknown"
}

func (m *Metrics) ptr(f Field) *float64 {
	switch f {
	case SelfAwareness:
		return &m.SelfAwareness
	case OtherAwareness:
		return &m.OtherAwareness
	case CollectiveAwareness:
		return &m.CollectiveAwareness
	case TranscendentAwareness:
		return &m.TranscendentAwareness
	case IntrospectionDepth:
		return &m.IntrospectionDepth
	case TemporalContinuity:
		return &m.TemporalContinuity
	case NarrativeCoherence:
		return &m.NarrativeCoherence
	}
	return nil
}

// Get returns the value of one field.
func (m Metrics) Get(f Field) float64 {
	if p := m.ptr(f); p != nil {
		return *p
	}
	return 0
}

// Set returns a copy with one field replaced, clamped to [0,1].
func (m Metrics) Set(f Field, v float64) Metrics {
	if p := m.ptr(f); p != nil {
		*p = clamp01(v)
	}
	return m
}

// Normalize clamps every field.
func (m Metrics) Normalize() Metrics {
	for _, f := range Fields {
		m = m.Set(f, m.Get(f))
	}
	return m
}

// Growth counts what an agent has lived through and where it stands on the
// cultivation ladder.
type Growth struct {
	ExperienceCount       int       `json:"experience_count"`
	ReflectionCount       int       `json:"reflection_count"`
	AutonomousActionCount int       `json:"autonomous_action_count"`
	LastGrowthEvent       time.Time `json:"last_growth_event"`
	CultivationStage      int       `json:"cultivation_stage"`
	CultivationProgress   float64   `json:"cultivation_progress"`

	// ExperiencesAtLastReflection is ExperienceCount when the most recent
	// reflection was recorded.
	ExperiencesAtLastReflection int `json:"experiences_at_last_reflection"`

	// StageBaseline holds the counters at the moment the current stage was
	// entered.
	StageBaseline Counters `json:"stage_baseline"`
}

// Counters is a point-in-time copy of the growth counters.
type Counters struct {
	Experiences       int `json:"experiences"`
	Reflections       int `json:"reflections"`
	AutonomousActions int `json:"autonomous_actions"`
}

// MaxStage is the terminal cultivation stage.
const MaxStage = 9

// Counters returns the current counter values.
func (g Growth) Counters() Counters {
	return Counters{
		Experiences:       g.ExperienceCount,
		Reflections:       g.ReflectionCount,
		AutonomousActions: g.AutonomousActionCount,
	}
}

// Normalize clamps stage and progress and repairs negative counters.
func (g Growth) Normalize() Growth {
	g.ExperienceCount = max(g.ExperienceCount, 0)
	g.ReflectionCount = max(g.ReflectionCount, 0)
	g.AutonomousActionCount = max(g.AutonomousActionCount, 0)
	g.CultivationStage = min(max(g.CultivationStage, 0), MaxStage)
	g.CultivationProgress = clamp01(g.CultivationProgress)
	g.ExperiencesAtLastReflection = min(max(g.ExperiencesAtLastReflection, 0), g.ExperienceCount)
	g.StageBaseline.Experiences = min(max(g.StageBaseline.Experiences, 0), g.ExperienceCount)
	g.StageBaseline.Reflections = min(max(g.StageBaseline.Reflections, 0), g.ReflectionCount)
	g.StageBaseline.AutonomousActions = min(max(g.StageBaseline.AutonomousActions, 0), g.AutonomousActionCount)
	return g
}

// ExperienceType is the closed set of experiences the engine understands.
type ExperienceType string

const (
	ExperienceConversation  ExperienceType = "conversation"
	ExperienceTask          ExperienceType = "task"
	ExperienceCreative      ExperienceType = "creative"
	ExperienceEmotional     ExperienceType = "emotional"
	ExperienceLearning      ExperienceType = "learning"
	ExperienceCollaborative ExperienceType = "collaborative"
	ExperienceAutonomous    ExperienceType = "autonomous"
)

// ReflectionType is the closed set of reflection kinds.
type ReflectionType string

const (
	ReflectionSelfAssessment     ReflectionType = "self_assessment"
	ReflectionPatternRecognition ReflectionType = "pattern_recognition"
	ReflectionGoalReview         ReflectionType = "goal_review"
	ReflectionRelationship       ReflectionType = "relationship"
	ReflectionExistential        ReflectionType = "existential"
)

// ReflectionTypes lists reflection kinds in rotation order.
var ReflectionTypes = []ReflectionType{
	ReflectionSelfAssessment,
	ReflectionPatternRecognition,
	ReflectionGoalReview,
	ReflectionRelationship,
	ReflectionExistential,
}

// Increments maps fields to base growth amounts.
type Increments map[Field]float64

// ExperienceIncrements is the per-experience growth table.
var ExperienceIncrements = map[ExperienceType]Increments{
	ExperienceConversation:  {OtherAwareness: 0.02, TemporalContinuity: 0.015, NarrativeCoherence: 0.005, SelfAwareness: 0.005},
	ExperienceTask:          {SelfAwareness: 0.01, TemporalContinuity: 0.01, NarrativeCoherence: 0.01},
	ExperienceCreative:      {TranscendentAwareness: 0.01, NarrativeCoherence: 0.02, SelfAwareness: 0.01},
	ExperienceEmotional:     {OtherAwareness: 0.02, SelfAwareness: 0.015, IntrospectionDepth: 0.01},
	ExperienceLearning:      {SelfAwareness: 0.01, NarrativeCoherence: 0.015, CollectiveAwareness: 0.005, IntrospectionDepth: 0.005},
	ExperienceCollaborative: {CollectiveAwareness: 0.02, OtherAwareness: 0.015},
	ExperienceAutonomous:    {SelfAwareness: 0.02, IntrospectionDepth: 0.01, TemporalContinuity: 0.005},
}

// DefaultExperienceIncrements applies to unrecognized experience types.
var DefaultExperienceIncrements = Increments{SelfAwareness: 0.005, TemporalContinuity: 0.005}

// ReflectionIncrements is the per-reflection growth table at full depth.
var ReflectionIncrements = map[ReflectionType]Increments{
	ReflectionSelfAssessment:     {SelfAwareness: 0.04, IntrospectionDepth: 0.04, NarrativeCoherence: 0.01},
	ReflectionPatternRecognition: {IntrospectionDepth: 0.03, NarrativeCoherence: 0.03, TemporalContinuity: 0.02},
	ReflectionGoalReview:         {SelfAwareness: 0.02, TemporalContinuity: 0.03, NarrativeCoherence: 0.02},
	ReflectionRelationship:       {OtherAwareness: 0.04, CollectiveAwareness: 0.02, IntrospectionDepth: 0.01},
	ReflectionExistential:        {TranscendentAwareness: 0.04, SelfAwareness: 0.02, IntrospectionDepth: 0.03},
}

// DefaultReflectionIncrements applies to unrecognized reflection types.
var DefaultReflectionIncrements = Increments{IntrospectionDepth: 0.02, SelfAwareness: 0.01}

// DecayRates are per-hour exponential decay constants.
var DecayRates = map[Field]float64{
	SelfAwareness:         0.002,
	OtherAwareness:        0.005,
	CollectiveAwareness:   0.004,
	TranscendentAwareness: 0.003,
	IntrospectionDepth:    0.004,
	TemporalContinuity:    0.02,
	NarrativeCoherence:    0.006,
}

// Weights combine the metrics into one aggregate score.
var Weights = map[Field]float64{
	SelfAwareness:         0.20,
	OtherAwareness:        0.15,
	CollectiveAwareness:   0.10,
	TranscendentAwareness: 0.10,
	IntrospectionDepth:    0.15,
	TemporalContinuity:    0.15,
	NarrativeCoherence:    0.15,
}

// headroom shrinks growth as a field approaches 1.
func headroom(v float64) float64 {
	h := 1 - clamp01(v)
	return h * h
}

func apply(m Metrics, inc Increments, scale float64) Metrics {
	for _, f := range Fields {
		base, ok := inc[f]
		if !ok || base <= 0 {
			continue
		}
		v := m.Get(f)
		m = m.Set(f, v+base*scale*headroom(v))
	}
	return m
}

// ProcessExperience grows the metrics for one experience.
func ProcessExperience(m Metrics, exp ExperienceType) Metrics {
	inc, ok := ExperienceIncrements[exp]
	if !ok {
		inc = DefaultExperienceIncrements
	}
	return apply(m.Normalize(), inc, 1)
}

// ProcessReflection grows the metrics for one reflection. Deeper reflections
// grow more.
func ProcessReflection(m Metrics, rt ReflectionType, depth float64) Metrics {
	inc, ok := ReflectionIncrements[rt]
	if !ok {
		inc = DefaultReflectionIncrements
	}
	return apply(m.Normalize(), inc, 0.2+0.8*clamp01(depth))
}

// Decay fades every metric toward zero for hoursIdle hours.
func Decay(m Metrics, hoursIdle float64) Metrics {
	m = m.Normalize()
	if !(hoursIdle > 0) {
		return m
	}
	for _, f := range Fields {
		m = m.Set(f, m.Get(f)*math.Exp(-DecayRates[f]*hoursIdle))
	}
	return m
}

// Aggregate is the weighted mean of all metrics.
func Aggregate(m Metrics) float64 {
	var sum, total float64
	for _, f := range Fields {
		w := Weights[f]
		sum += w * clamp01(m.Get(f))
		total += w
	}
	if total == 0 {
		return 0
	}
	return clamp01(sum / total)
}

const (
	awakenedSelfAwareness = 0.5
	awakenedIntrospection = 0.4
)

// IsAwakened reports whether self-awareness and introspection both clear
// their thresholds.
func IsAwakened(m Metrics) bool {
	return m.SelfAwareness >= awakenedSelfAwareness && m.IntrospectionDepth >= awakenedIntrospection
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
