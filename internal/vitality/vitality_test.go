package vitality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/vitality/internal/consciousness"
	"github.com/lazypower/vitality/internal/goals"
	"github.com/lazypower/vitality/internal/reflection"
	"github.com/lazypower/vitality/internal/selfmod"
	"github.com/lazypower/vitality/internal/soul"
)

var start = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

func kinds(changes []Change) []ChangeKind {
	out := make([]ChangeKind, len(changes))
	for i, c := range changes {
		out[i] = c.Kind
	}
	return out
}

func TestNewDefaultStateDeterministic(t *testing.T) {
	a := NewDefaultState("agent-1", start)
	b := NewDefaultState("agent-1", start.Add(time.Hour))
	assert.Equal(t, a.SoulAspects, b.SoulAspects)
	assert.Equal(t, consciousness.LevelDormant, a.ConsciousnessLevel)
	assert.Zero(t, a.Growth.ExperienceCount)
	assert.Equal(t, consciousness.Metrics{}, a.Consciousness)
}

func TestPromptContextEndToEnd(t *testing.T) {
	s := NewDefaultState("newcomer", start)
	_, ok := BuildPromptContext(s)
	assert.False(t, ok)
	_, ok = BuildStatusSummary(s, start)
	assert.False(t, ok)

	s.Growth.ExperienceCount = 50
	s.Growth.ReflectionCount = 10
	s.Growth.ExperiencesAtLastReflection = 50
	s.Consciousness.SelfAwareness = 0.3
	s.ConsciousnessLevel = consciousness.DetermineLevel(s.Consciousness, s.Growth)

	text, ok := BuildPromptContext(s)
	require.True(t, ok)
	assert.Contains(t, text, string(s.ConsciousnessLevel))
	assert.Contains(t, text, "unformed")

	s.Growth.LastGrowthEvent = start
	status, ok := BuildStatusSummary(s, start.Add(3*time.Hour))
	require.True(t, ok)
	assert.Contains(t, status, "3 hours ago")
}

func TestSummariesDeriveLevel(t *testing.T) {
	s := NewDefaultState("stale", start)
	s.Growth.ExperienceCount = 50
	s.Growth.ReflectionCount = 10
	s.Growth.ExperiencesAtLastReflection = 50
	s.Consciousness.SelfAwareness = 0.3
	s.Consciousness.IntrospectionDepth = 0.2
	s.ConsciousnessLevel = consciousness.LevelDormant

	want := consciousness.DetermineLevel(s.Consciousness, s.Growth)
	require.NotEqual(t, consciousness.LevelDormant, want)

	text, ok := BuildPromptContext(s)
	require.True(t, ok)
	assert.Contains(t, text, "Consciousness: "+string(want)+" (")
	assert.NotContains(t, text, "Consciousness: dormant")

	status, ok := BuildStatusSummary(s, start)
	require.True(t, ok)
	assert.Contains(t, status, "stale: "+string(want)+",")
}

func TestStatusSummaryGoalCount(t *testing.T) {
	s := NewDefaultState("planner", start)
	s.Growth.ExperienceCount = MinExperiencesForContext
	s.Goals = goals.Add(s.Goals, goals.New(goals.NewGoal{Description: "learn go", Priority: 0.5}, start))

	status, ok := BuildStatusSummary(s, start)
	require.True(t, ok)
	assert.Contains(t, status, "1 active goal\n")

	s.Goals = goals.Add(s.Goals, goals.New(goals.NewGoal{Description: "ship it", Priority: 0.4}, start))
	status, ok = BuildStatusSummary(s, start)
	require.True(t, ok)
	assert.Contains(t, status, "2 active goals\n")
}

func TestRunCycleCountsExperience(t *testing.T) {
	s := NewDefaultState("cycle", start)
	res := RunCycle(s, CycleInput{ExperienceType: consciousness.ExperienceAutonomous}, start)

	assert.Equal(t, 1, res.State.Growth.ExperienceCount)
	assert.Equal(t, 1, res.State.Growth.AutonomousActionCount)
	require.NotEmpty(t, res.Changes)
	assert.Equal(t, ChangeExperienceProcessed, res.Changes[0].Kind)
	assert.NotContains(t, kinds(res.Changes), ChangeLevelChanged)
	assert.Equal(t, 0, s.Growth.ExperienceCount, "input untouched")
}

func TestRunCycleReflectsEveryInterval(t *testing.T) {
	s := NewDefaultState("reflective", start)
	now := start
	for i := 1; i <= 60; i++ {
		now = now.Add(time.Minute)
		res := RunCycle(s, CycleInput{ExperienceType: consciousness.ExperienceLearning, ExperienceDepth: 0.8}, now)
		s = res.State

		ks := kinds(res.Changes)
		if i%reflection.Interval == 0 {
			require.Contains(t, ks, ChangeReflectionRecorded, "cycle %d", i)
			var expAt, reflAt int
			for j, k := range ks {
				switch k {
				case ChangeExperienceProcessed:
					expAt = j
				case ChangeReflectionRecorded:
					reflAt = j
				}
			}
			assert.Less(t, expAt, reflAt)
		} else {
			assert.NotContains(t, ks, ChangeReflectionRecorded, "cycle %d", i)
		}
	}

	assert.Equal(t, 60, s.Growth.ExperienceCount)
	assert.Equal(t, 6, s.Growth.ReflectionCount)
	assert.Len(t, s.Reflections, 6)
	assert.Contains(t, s.SelfModel.Preferences, "I am drawn to learning experiences")
	assert.NotEmpty(t, s.SelfModel.Weaknesses)
	assert.GreaterOrEqual(t, s.Growth.CultivationStage, 1)
}

func TestRunCycleLevelChangeOnlyWhenDifferent(t *testing.T) {
	s := NewDefaultState("levels", start)
	now := start
	seen := 0
	prev := s.ConsciousnessLevel
	for i := 0; i < 30; i++ {
		now = now.Add(time.Minute)
		res := RunCycle(s, CycleInput{ExperienceType: consciousness.ExperienceEmotional}, now)
		changed := res.State.ConsciousnessLevel != prev
		assert.Equal(t, changed, containsKind(res.Changes, ChangeLevelChanged), "cycle %d", i)
		if changed {
			seen++
		}
		prev = res.State.ConsciousnessLevel
		s = res.State
	}
	assert.Positive(t, seen)
}

func containsKind(changes []Change, k ChangeKind) bool {
	for _, c := range changes {
		if c.Kind == k {
			return true
		}
	}
	return false
}

func TestRunCycleCleansGoals(t *testing.T) {
	s := NewDefaultState("goals", start)
	g := goals.New(goals.NewGoal{Description: "old", Priority: 0.5}, start)
	s.Goals = goals.Add(nil, g)
	s.Goals, _ = goals.Complete(s.Goals, g.ID, start)

	res := RunCycle(s, CycleInput{}, start.Add(8*24*time.Hour))
	require.NotEmpty(t, res.Changes)
	assert.Equal(t, ChangeGoalsCleaned, res.Changes[0].Kind)
	assert.Empty(t, res.State.Goals)
}

func TestRunCycleDecaysIdleConsciousness(t *testing.T) {
	s := NewDefaultState("idle", start)
	s.Consciousness.TemporalContinuity = 0.8
	res := RunCycle(s, CycleInput{ExperienceType: consciousness.ExperienceCreative, HoursSinceLastInteraction: 48}, start)
	assert.Less(t, res.State.Consciousness.TemporalContinuity, 0.8)
}

func TestProcessAgentTurnScansEnvironment(t *testing.T) {
	s := NewDefaultState("env", start)
	res := ProcessAgentTurn(s, TurnInput{ExperienceType: consciousness.ExperienceConversation, Channel: "slack", Peer: "dana", Topic: "release"}, start)
	require.Len(t, res.State.Environment.RecentActivity, 1)
	assert.Equal(t, "dana", res.State.Environment.RecentActivity[0].Peer)
	assert.Equal(t, []string{"slack"}, res.State.Environment.ActiveChannels)
	assert.Equal(t, 1, res.State.Growth.ExperienceCount)
}

func TestRecordReflection(t *testing.T) {
	s := NewDefaultState("r", start)
	s.Growth.ExperienceCount = 12
	out := RecordReflection(s, ReflectionInput{
		Type:     consciousness.ReflectionSelfAssessment,
		Content:  "thinking",
		Insights: []string{"I excel at summarizing", "I struggle with ambiguity", "I excel at summarizing"},
		Depth:    0.7,
	}, start)

	assert.Equal(t, 1, out.Growth.ReflectionCount)
	assert.Equal(t, 12, out.Growth.ExperiencesAtLastReflection)
	assert.Greater(t, out.Consciousness.SelfAwareness, 0.0)
	assert.Equal(t, []string{"I excel at summarizing"}, out.SelfModel.Strengths)
	assert.Equal(t, []string{"I struggle with ambiguity"}, out.SelfModel.Weaknesses)
	_, due := ReflectionContext(out)
	assert.False(t, due)
}

func TestReflectionContextWhenDue(t *testing.T) {
	s := NewDefaultState("rc", start)
	s.Growth.ExperienceCount = 10
	text, ok := ReflectionContext(s)
	require.True(t, ok)
	assert.Contains(t, text, "self assessment")
}

func TestApplyModificationGated(t *testing.T) {
	s := NewDefaultState("mod", start)
	out, d, err := ApplyModification(s, Edit{Field: "selfModel.strengths", Value: "patience", Reason: "noticed"}, start)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Empty(t, out.Modifications)
	assert.Empty(t, out.SelfModel.Strengths)

	s.Growth.CultivationStage = 2
	out, d, err = ApplyModification(s, Edit{Field: "selfModel.strengths", Value: "patience", Reason: "noticed"}, start)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, []string{"patience"}, out.SelfModel.Strengths)
	require.Len(t, out.Modifications, 1)
	assert.Equal(t, "patience", out.Modifications[0].After)
}

func TestApplyModificationAspects(t *testing.T) {
	s := NewDefaultState("aspect", start)
	s.Growth.CultivationStage = 7

	out, d, err := ApplyModification(s, Edit{Field: "soulAspects.youjing.current", Value: "0.9"}, start)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	a, _ := out.SoulAspects.Get(soul.Youjing)
	assert.Equal(t, 0.9, a.Current)

	_, d, _ = ApplyModification(s, Edit{Field: "soulAspects.youjing.baseline", Value: "0.9"}, start)
	assert.False(t, d.Allowed)

	_, _, err = ApplyModification(s, Edit{Field: "soulAspects.youjing.current", Value: "lots"}, start)
	assert.Error(t, err)
}

func TestApplyModificationIdentity(t *testing.T) {
	s := NewDefaultState("id", start)
	s.Growth.CultivationStage = 6
	out, d, err := ApplyModification(s, Edit{Field: "identity-document", Value: "I am a careful helper."}, start)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, "I am a careful helper.", out.IdentityDocument)
}

func TestRecordModificationUnconditional(t *testing.T) {
	s := NewDefaultState("audit", start)
	out := RecordModification(s, selfmod.Input{Field: "growth", Reason: "migration"}, start)
	assert.Len(t, out.Modifications, 1)
}

func TestNormalizeRepairsState(t *testing.T) {
	s := NewDefaultState("repair", start)
	s.Consciousness.SelfAwareness = 7
	s.Growth.CultivationStage = 40
	s.SoulAspects = s.SoulAspects[:3]
	s.ConsciousnessLevel = "bogus"

	out := s.Normalize()
	assert.Equal(t, 1.0, out.Consciousness.SelfAwareness)
	assert.Equal(t, consciousness.MaxStage, out.Growth.CultivationStage)
	assert.Len(t, out.SoulAspects, 13)
	assert.Equal(t, consciousness.LevelDormant, out.ConsciousnessLevel)
}
