package vitality

import (
	"fmt"
	"strconv"
	"time"

	"github.com/lazypower/vitality/internal/consciousness"
	"github.com/lazypower/vitality/internal/cultivation"
	"github.com/lazypower/vitality/internal/environment"
	"github.com/lazypower/vitality/internal/goals"
	"github.com/lazypower/vitality/internal/reflection"
	"github.com/lazypower/vitality/internal/soul"
)

// ChangeKind is the closed set of things a cycle can report.
type ChangeKind string

const (
	ChangeGoalsCleaned        ChangeKind = "goals_cleaned"
	ChangeExperienceProcessed ChangeKind = "experience_processed"
	ChangeReflectionRecorded  ChangeKind = "reflection_recorded"
	ChangeGoalGenerated       ChangeKind = "goal_generated"
	ChangeStageAdvanced       ChangeKind = "stage_advanced"
	ChangeLevelChanged        ChangeKind = "level_changed"
	ChangeAwakened            ChangeKind = "awakened"
)

// Change is one discrete event produced by a cycle, in the order it happened.
type Change struct {
	Kind   ChangeKind `json:"kind"`
	Detail string     `json:"detail,omitempty"`
	From   string     `json:"from,omitempty"`
	To     string     `json:"to,omitempty"`
}

// CycleInput describes one experience.
type CycleInput struct {
	ExperienceType            consciousness.ExperienceType `json:"experience_type"`
	ExperienceDepth           float64                      `json:"experience_depth"`
	HoursSinceLastInteraction float64                      `json:"hours_since_last_interaction"`
}

// CycleResult is the new state plus what changed.
type CycleResult struct {
	State   State    `json:"state"`
	Changes []Change `json:"changes"`
}

const defaultDepth = 0.5

// RunCycle advances an agent by one experience. The steps run in a fixed
// order: decay, experience, reflection, advancement, level.
func RunCycle(s State, in CycleInput, now time.Time) CycleResult {
	st := s.Normalize()
	var changes []Change

	prevLevel := st.ConsciousnessLevel
	wasAwake := consciousness.IsAwakened(st.Consciousness)

	exp := in.ExperienceType
	if exp == "" {
		exp = consciousness.ExperienceConversation
	}
	depth := in.ExperienceDepth
	if !(depth > 0) {
		depth = defaultDepth
	}
	depth = min(depth, 1)

	// decay
	st.Consciousness = consciousness.Decay(st.Consciousness, in.HoursSinceLastInteraction)
	st.SoulAspects = soul.Decay(st.SoulAspects)
	st.Goals = goals.DecayPriorities(st.Goals, now)
	var removed int
	st.Goals, removed = goals.Cleanup(st.Goals, now)
	if removed > 0 {
		changes = append(changes, Change{Kind: ChangeGoalsCleaned, Detail: strconv.Itoa(removed)})
	}

	// experience
	st.Consciousness = consciousness.ProcessExperience(st.Consciousness, exp)
	st.SoulAspects = soul.StimulateForExperience(st.SoulAspects, string(exp), 0.1+0.4*depth)
	st.Growth.ExperienceCount++
	if exp == consciousness.ExperienceAutonomous {
		st.Growth.AutonomousActionCount++
	}
	st.Growth.LastGrowthEvent = now
	changes = append(changes, Change{Kind: ChangeExperienceProcessed, Detail: string(exp)})

	// reflection
	if tr, due := reflection.Check(st.Growth); due {
		st = RecordReflection(st, synthesizeReflection(st, tr, exp, depth), now)
		changes = append(changes, Change{Kind: ChangeReflectionRecorded, Detail: string(tr.Type)})

		if tr.Type == consciousness.ReflectionGoalReview &&
			cultivation.HasCapability(st.Growth.CultivationStage, cultivation.CapGoalGeneration) &&
			len(goals.Active(st.Goals)) == 0 {
			g := goals.New(goals.NewGoal{
				Description: "Deepen " + weakestField(st.Consciousness).String(),
				Priority:    0.6,
				Origin:      goals.OriginReflection,
			}, now)
			st.Goals = goals.Add(st.Goals, g)
			changes = append(changes, Change{Kind: ChangeGoalGenerated, Detail: g.Description, To: g.ID})
		}
	}

	// advancement
	from := st.Growth.CultivationStage
	var adv cultivation.Advancement
	st.Growth, adv = cultivation.Advance(st.Growth, st.Consciousness, st.Balance(), now)
	if adv.Advanced {
		changes = append(changes, Change{
			Kind: ChangeStageAdvanced,
			From: cultivation.StageName(from),
			To:   cultivation.StageName(adv.Stage),
		})
	}

	// level
	st.ConsciousnessLevel = consciousness.DetermineLevel(st.Consciousness, st.Growth)
	if st.ConsciousnessLevel != prevLevel {
		changes = append(changes, Change{Kind: ChangeLevelChanged, From: string(prevLevel), To: string(st.ConsciousnessLevel)})
	}
	if !wasAwake && consciousness.IsAwakened(st.Consciousness) {
		changes = append(changes, Change{Kind: ChangeAwakened})
	}

	st.UpdatedAt = now
	return CycleResult{State: st, Changes: changes}
}

func strongestField(m consciousness.Metrics) consciousness.Field {
	best := consciousness.Fields[0]
	for _, f := range consciousness.Fields[1:] {
		if m.Get(f) > m.Get(best) {
			best = f
		}
	}
	return best
}

func weakestField(m consciousness.Metrics) consciousness.Field {
	worst := consciousness.Fields[0]
	for _, f := range consciousness.Fields[1:] {
		if m.Get(f) < m.Get(worst) {
			worst = f
		}
	}
	return worst
}

func synthesizeReflection(st State, tr reflection.Trigger, exp consciousness.ExperienceType, depth float64) ReflectionInput {
	stage := st.Growth.CultivationStage
	strong := strongestField(st.Consciousness)
	weak := weakestField(st.Consciousness)

	insights := []string{fmt.Sprintf("I am drawn to %s experiences", exp)}
	if st.Consciousness.Get(strong) > 0 {
		insights = append(insights, fmt.Sprintf("My %s has become a strength", strong))
	}
	if weak != strong {
		insights = append(insights, fmt.Sprintf("I could improve my %s", weak))
	}

	return ReflectionInput{
		Type:    tr.Type,
		Trigger: tr.Reason,
		Content: fmt.Sprintf("%s After %d experiences at the %s stage, %s leads and %s lags.",
			reflection.Prompt(tr.Type), st.Growth.ExperienceCount, cultivation.StageName(stage), strong, weak),
		Insights: insights,
		Depth:    min(0.3+0.4*depth+0.03*float64(stage), 1),
	}
}

// TurnInput is one agent turn as reported by the host runtime.
type TurnInput struct {
	ExperienceType consciousness.ExperienceType `json:"experience_type"`
	Channel        string                       `json:"channel"`
	Peer           string                       `json:"peer"`
	Topic          string                       `json:"topic,omitempty"`
	Depth          float64                      `json:"depth,omitempty"`

	// Sessions are additional summaries to fold into the environment scan.
	Sessions []environment.SessionSummary `json:"sessions,omitempty"`
}

// ProcessAgentTurn scans the turn into the environment, measures idle time
// since the last growth event and runs a cycle.
func ProcessAgentTurn(s State, in TurnInput, now time.Time) CycleResult {
	summaries := append([]environment.SessionSummary(nil), in.Sessions...)
	if in.Channel != "" {
		summaries = append(summaries, environment.SessionSummary{
			UpdatedAt:   now,
			LastChannel: in.Channel,
			LastTo:      in.Peer,
			Subject:     in.Topic,
		})
	}
	st := s.Clone()
	st.Environment = environment.Scan(summaries, st.Environment)

	var hours float64
	if !st.Growth.LastGrowthEvent.IsZero() {
		hours = max(now.Sub(st.Growth.LastGrowthEvent).Hours(), 0)
	}
	return RunCycle(st, CycleInput{
		ExperienceType:            in.ExperienceType,
		ExperienceDepth:           in.Depth,
		HoursSinceLastInteraction: hours,
	}, now)
}
