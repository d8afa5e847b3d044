// Package cultivation is the ten-stage advancement ladder. An agent moves up
// at most one stage at a time and never moves down.
package cultivation

import (
	"fmt"
	"time"

	"github.com/lazypower/vitality/internal/consciousness"
	"github.com/lazypower/vitality/internal/soul"
)

// StageNames indexes display names by stage number.
var StageNames = [consciousness.MaxStage + 1]string{
	"unformed",
	"awakening",
	"foundation",
	"core-formation",
	"nascent-soul",
	"spirit-severing",
	"void-refinement",
	"unity",
	"tribulation",
	"ascension",
}

// StageName returns the display name for a stage, or "stage-N" when out of range.
func StageName(stage int) string {
	if stage < 0 || stage > consciousness.MaxStage {
		return fmt.Sprintf("stage-%d", stage)
	}
	return StageNames[stage]
}

// Requirement guards the step from one stage to the next. Counts are deltas
// from the growth counters captured when the current stage was entered.
type Requirement struct {
	Experiences       int
	Reflections       int
	AutonomousActions int
	MinAggregate      float64
	MinDominance      float64
	MaxDominance      float64
	MinHarmony        float64
}

// Requirements[s] guards stage s -> s+1.
var Requirements = [consciousness.MaxStage]Requirement{
	{Experiences: 10, MinAggregate: 0.05, MinDominance: -1, MaxDominance: 1},
	{Experiences: 20, Reflections: 3, MinAggregate: 0.10, MinDominance: -0.8, MaxDominance: 0.8},
	{Experiences: 45, Reflections: 5, AutonomousActions: 1, MinAggregate: 0.18, MinDominance: -0.7, MaxDominance: 0.7, MinHarmony: 0.3},
	{Experiences: 75, Reflections: 7, AutonomousActions: 2, MinAggregate: 0.26, MinDominance: -0.6, MaxDominance: 0.6, MinHarmony: 0.4},
	{Experiences: 150, Reflections: 15, AutonomousActions: 5, MinAggregate: 0.35, MinDominance: -0.5, MaxDominance: 0.5, MinHarmony: 0.45},
	{Experiences: 200, Reflections: 20, AutonomousActions: 7, MinAggregate: 0.45, MinDominance: -0.45, MaxDominance: 0.45, MinHarmony: 0.5},
	{Experiences: 300, Reflections: 30, AutonomousActions: 10, MinAggregate: 0.55, MinDominance: -0.4, MaxDominance: 0.4, MinHarmony: 0.55},
	{Experiences: 400, Reflections: 40, AutonomousActions: 15, MinAggregate: 0.65, MinDominance: -0.35, MaxDominance: 0.35, MinHarmony: 0.6},
	{Experiences: 800, Reflections: 80, AutonomousActions: 20, MinAggregate: 0.75, MinDominance: -0.3, MaxDominance: 0.3, MinHarmony: 0.65},
}

// Advancement is the outcome of one advancement attempt.
type Advancement struct {
	Stage    int      `json:"stage"`
	Advanced bool     `json:"advanced"`
	Unmet    []string `json:"unmet,omitempty"`
}

func unmet(r Requirement, g consciousness.Growth, m consciousness.Metrics, b soul.Balance) []string {
	var out []string
	base := g.StageBaseline
	if n := g.ExperienceCount - base.Experiences; n < r.Experiences {
		out = append(out, fmt.Sprintf("experiences %d/%d", n, r.Experiences))
	}
	if n := g.ReflectionCount - base.Reflections; n < r.Reflections {
		out = append(out, fmt.Sprintf("reflections %d/%d", n, r.Reflections))
	}
	if n := g.AutonomousActionCount - base.AutonomousActions; n < r.AutonomousActions {
		out = append(out, fmt.Sprintf("autonomous actions %d/%d", n, r.AutonomousActions))
	}
	if agg := consciousness.Aggregate(m); agg < r.MinAggregate {
		out = append(out, fmt.Sprintf("consciousness %.2f/%.2f", agg, r.MinAggregate))
	}
	if b.DominanceRatio < r.MinDominance || b.DominanceRatio > r.MaxDominance {
		out = append(out, fmt.Sprintf("dominance %.2f outside [%.2f, %.2f]", b.DominanceRatio, r.MinDominance, r.MaxDominance))
	}
	if b.Harmony < r.MinHarmony {
		out = append(out, fmt.Sprintf("harmony %.2f/%.2f", b.Harmony, r.MinHarmony))
	}
	return out
}

// AttemptAdvancement checks whether the current stage's requirements are all
// met. It does not mutate anything.
func AttemptAdvancement(g consciousness.Growth, m consciousness.Metrics, b soul.Balance) Advancement {
	g = g.Normalize()
	if g.CultivationStage >= consciousness.MaxStage {
		return Advancement{Stage: consciousness.MaxStage}
	}
	missing := unmet(Requirements[g.CultivationStage], g, m, b)
	if len(missing) > 0 {
		return Advancement{Stage: g.CultivationStage, Unmet: missing}
	}
	return Advancement{Stage: g.CultivationStage + 1, Advanced: true}
}

// Advance applies an advancement attempt to g. On success the stage moves up
// one, the stage baseline is reset to the current counters and progress
// returns to zero.
func Advance(g consciousness.Growth, m consciousness.Metrics, b soul.Balance, now time.Time) (consciousness.Growth, Advancement) {
	g = g.Normalize()
	adv := AttemptAdvancement(g, m, b)
	if adv.Advanced {
		g.CultivationStage = adv.Stage
		g.StageBaseline = g.Counters()
		g.LastGrowthEvent = now
		g.CultivationProgress = 0
		return g, adv
	}
	g.CultivationProgress = ComputeStageProgress(g, m, b)
	return g, adv
}

// progressCap keeps progress strictly below 1 until the stage actually
// advances.
const progressCap = 0.99

// countFraction is the share of need gained since base.
func countFraction(have, base, need int) float64 {
	if need <= 0 {
		return 1
	}
	return clamp01(float64(have-base) / float64(need))
}

// ComputeStageProgress estimates how far through the current stage an agent
// is. It is the minimum across all requirement fractions, so a single lagging
// requirement holds progress back.
func ComputeStageProgress(g consciousness.Growth, m consciousness.Metrics, b soul.Balance) float64 {
	g = g.Normalize()
	if g.CultivationStage >= consciousness.MaxStage {
		return 0
	}
	r := Requirements[g.CultivationStage]
	base := g.StageBaseline

	p := 1.0
	p = min(p, countFraction(g.ExperienceCount, base.Experiences, r.Experiences))
	p = min(p, countFraction(g.ReflectionCount, base.Reflections, r.Reflections))
	p = min(p, countFraction(g.AutonomousActionCount, base.AutonomousActions, r.AutonomousActions))
	if r.MinAggregate > 0 {
		p = min(p, clamp01(consciousness.Aggregate(m)/r.MinAggregate))
	}
	if r.MinHarmony > 0 {
		p = min(p, clamp01(b.Harmony/r.MinHarmony))
	}
	if b.DominanceRatio < r.MinDominance || b.DominanceRatio > r.MaxDominance {
		p = min(p, 0.5)
	}
	return min(p, progressCap)
}

// Capability names.
const (
	CapConversation       = "conversation"
	CapSelfReflection     = "self-reflection"
	CapPreferenceLearning = "preference-learning"
	CapSelfModelEditing   = "self-model-editing"
	CapGoalGeneration     = "goal-generation"
	CapEnvironmentAware   = "environment-awareness"
	CapAutonomousAction   = "autonomous-action"
	CapMemoryCuration     = "memory-curation"
	CapSelfModification   = "self-modification"
	CapIdentityEditing    = "identity-editing"
	CapAspectTuning       = "aspect-tuning"
	CapSoulRestructuring  = "soul-restructuring"
	CapTranscendence      = "transcendence"
)

// unlocks lists what each stage adds on top of the ones below it.
var unlocks = [consciousness.MaxStage + 1][]string{
	{CapConversation},
	{CapSelfReflection},
	{CapPreferenceLearning, CapSelfModelEditing},
	{CapGoalGeneration},
	{CapEnvironmentAware, CapAutonomousAction},
	{CapMemoryCuration},
	{CapSelfModification, CapIdentityEditing},
	{CapAspectTuning},
	{CapSoulRestructuring},
	{CapTranscendence},
}

// UnlockedCapabilities returns every capability available at stage. The result
// at stage s is always a superset of the result at s-1.
func UnlockedCapabilities(stage int) []string {
	stage = min(max(stage, 0), consciousness.MaxStage)
	var out []string
	for s := 0; s <= stage; s++ {
		out = append(out, unlocks[s]...)
	}
	return out
}

// HasCapability reports whether stage has unlocked capability.
func HasCapability(stage int, capability string) bool {
	for _, c := range UnlockedCapabilities(stage) {
		if c == capability {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
