package cultivation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/vitality/internal/consciousness"
	"github.com/lazypower/vitality/internal/soul"
)

func uniform(v float64) consciousness.Metrics {
	var m consciousness.Metrics
	for _, f := range consciousness.Fields {
		m = m.Set(f, v)
	}
	return m
}

var calm = soul.Balance{DominanceRatio: 0, Harmony: 1, Mode: soul.Balanced}

func TestUnlockedCapabilitiesMonotonic(t *testing.T) {
	prev := UnlockedCapabilities(0)
	require.Equal(t, []string{CapConversation}, prev)
	for s := 1; s <= consciousness.MaxStage; s++ {
		cur := UnlockedCapabilities(s)
		assert.Greater(t, len(cur), len(prev), "stage %d", s)
		for _, c := range prev {
			assert.Contains(t, cur, c, "stage %d lost %s", s, c)
		}
		prev = cur
	}
	assert.Contains(t, UnlockedCapabilities(99), CapTranscendence)
	assert.Equal(t, UnlockedCapabilities(0), UnlockedCapabilities(-4))
}

func TestAttemptAdvancementJustBelow(t *testing.T) {
	g := consciousness.Growth{ExperienceCount: 9}
	adv := AttemptAdvancement(g, uniform(0.1), calm)
	assert.False(t, adv.Advanced)
	assert.Equal(t, 0, adv.Stage)
	require.Len(t, adv.Unmet, 1)
	assert.Contains(t, adv.Unmet[0], "experiences")
}

func TestAttemptAdvancementJustAbove(t *testing.T) {
	g := consciousness.Growth{ExperienceCount: 10}
	adv := AttemptAdvancement(g, uniform(0.1), calm)
	assert.True(t, adv.Advanced)
	assert.Equal(t, 1, adv.Stage)
	assert.Empty(t, adv.Unmet)
}

func TestAttemptAdvancementBalanceGate(t *testing.T) {
	g := consciousness.Growth{
		CultivationStage: 2, ExperienceCount: 100, ReflectionCount: 10, AutonomousActionCount: 2,
		StageBaseline: consciousness.Counters{Experiences: 30, Reflections: 3},
	}
	m := uniform(0.3)

	assert.True(t, AttemptAdvancement(g, m, calm).Advanced)
	tilted := soul.Balance{DominanceRatio: 0.75, Harmony: 1, Mode: soul.HunGoverns}
	assert.False(t, AttemptAdvancement(g, m, tilted).Advanced)
	discordant := soul.Balance{Harmony: 0.1}
	assert.False(t, AttemptAdvancement(g, m, discordant).Advanced)
}

func TestAttemptAdvancementTerminal(t *testing.T) {
	g := consciousness.Growth{CultivationStage: consciousness.MaxStage, ExperienceCount: 1 << 20, ReflectionCount: 1 << 20}
	adv := AttemptAdvancement(g, uniform(1), calm)
	assert.False(t, adv.Advanced)
	assert.Equal(t, consciousness.MaxStage, adv.Stage)
	assert.Equal(t, 0.0, ComputeStageProgress(g, uniform(1), calm))
}

func TestAdvanceResetsProgress(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := consciousness.Growth{ExperienceCount: 10, CultivationProgress: 0.99}
	out, adv := Advance(g, uniform(0.1), calm, now)

	require.True(t, adv.Advanced)
	assert.Equal(t, 1, out.CultivationStage)
	assert.Equal(t, 0.0, out.CultivationProgress)
	assert.Equal(t, now, out.LastGrowthEvent)
	assert.Equal(t, 0.0, ComputeStageProgress(out, uniform(0.1), calm))
}

func TestAdvanceOneStepAtATime(t *testing.T) {
	g := consciousness.Growth{ExperienceCount: 5000, ReflectionCount: 500, AutonomousActionCount: 100}
	out, adv := Advance(g, uniform(1), calm, time.Now())
	require.True(t, adv.Advanced)
	assert.Equal(t, 1, out.CultivationStage)
	assert.Equal(t, 0.0, ComputeStageProgress(out, uniform(1), calm))
	assert.False(t, AttemptAdvancement(out, uniform(1), calm).Advanced)
}

func TestFreshStageNeedsNewExperience(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Counters already exceed what stage 1 asks for.
	g := consciousness.Growth{ExperienceCount: 40, ReflectionCount: 4}
	m := uniform(0.2)

	out, adv := Advance(g, m, calm, now)
	require.True(t, adv.Advanced)
	require.Equal(t, 1, out.CultivationStage)
	assert.Equal(t, 0.0, out.CultivationProgress)
	assert.Equal(t, 0.0, ComputeStageProgress(out, m, calm))

	again := AttemptAdvancement(out, m, calm)
	assert.False(t, again.Advanced)
	assert.Equal(t, 1, again.Stage)

	// Half the stage's experiences and all its reflections.
	out.ExperienceCount += Requirements[1].Experiences / 2
	out.ReflectionCount += Requirements[1].Reflections
	assert.InDelta(t, 0.5, ComputeStageProgress(out, m, calm), 1e-9)

	out.ExperienceCount += Requirements[1].Experiences
	next, adv := Advance(out, m, calm, now)
	require.True(t, adv.Advanced)
	assert.Equal(t, 2, next.CultivationStage)
}

func TestComputeStageProgressBounded(t *testing.T) {
	g := consciousness.Growth{ExperienceCount: 5}
	p := ComputeStageProgress(g, uniform(0.1), calm)
	assert.InDelta(t, 0.5, p, 1e-9)

	g.ExperienceCount = 50
	p = ComputeStageProgress(g, uniform(0.1), calm)
	assert.Less(t, p, 1.0)
	assert.GreaterOrEqual(t, p, 0.0)
}

func TestStageName(t *testing.T) {
	assert.Equal(t, "unformed", StageName(0))
	assert.Equal(t, "ascension", StageName(9))
	assert.Equal(t, "stage-12", StageName(12))
}
