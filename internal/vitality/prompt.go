package vitality

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/lazypower/vitality/internal/consciousness"
	"github.com/lazypower/vitality/internal/cultivation"
	"github.com/lazypower/vitality/internal/goals"
	"github.com/lazypower/vitality/internal/soul"
)

// MinExperiencesForContext is how much an agent must have lived before its
// vitality is surfaced at all.
const MinExperiencesForContext = 10

// BuildPromptContext renders the state as a block suitable for injection into
// an agent's system prompt. It returns false for agents too new to have
// anything meaningful to say.
func BuildPromptContext(s State) (string, bool) {
	if s.Growth.ExperienceCount < MinExperiencesForContext {
		return "", false
	}
	b := s.Balance()
	var sb strings.Builder

	sb.WriteString("## Vitality\n\n")
	fmt.Fprintf(&sb, "Consciousness: %s (%.0f%%)\n", currentLevel(s), consciousness.Aggregate(s.Consciousness)*100)
	fmt.Fprintf(&sb, "Cultivation: %s (stage %d, %.0f%% toward next)\n",
		cultivation.StageName(s.Growth.CultivationStage), s.Growth.CultivationStage, s.Growth.CultivationProgress*100)
	fmt.Fprintf(&sb, "Balance: %s (harmony %.2f)\n", b.Mode, b.Harmony)

	if hints := soul.DeriveHints(s.SoulAspects, b); len(hints) > 0 {
		fmt.Fprintf(&sb, "Disposition: %s\n", strings.Join(hints, ", "))
	}

	if top := goals.Top(s.Goals, 3); len(top) > 0 {
		sb.WriteString("\nCurrent goals:\n")
		for _, g := range top {
			fmt.Fprintf(&sb, "- %s (priority %.2f, %.0f%% done)\n", g.Description, g.Priority, g.Progress*100)
		}
	}

	if len(s.Environment.ActiveChannels) > 0 {
		fmt.Fprintf(&sb, "\nActive channels: %s\n", strings.Join(s.Environment.ActiveChannels, ", "))
	}

	fmt.Fprintf(&sb, "\nCapabilities: %s\n", strings.Join(s.Capabilities(), ", "))

	if rc, ok := ReflectionContext(s); ok {
		sb.WriteString("\n")
		sb.WriteString(rc)
		sb.WriteString("\n")
	}
	return sb.String(), true
}

// BuildStatusSummary is a short human-readable status line set, e.g. for a
// status command.
func BuildStatusSummary(s State, now time.Time) (string, bool) {
	if s.Growth.ExperienceCount < MinExperiencesForContext {
		return "", false
	}
	last := "never"
	if !s.Growth.LastGrowthEvent.IsZero() {
		last = humanize.RelTime(s.Growth.LastGrowthEvent, now, "ago", "from now")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s, %s stage\n", s.AgentID, currentLevel(s), cultivation.StageName(s.Growth.CultivationStage))
	fmt.Fprintf(&sb, "  experiences %d, reflections %d, autonomous actions %d\n",
		s.Growth.ExperienceCount, s.Growth.ReflectionCount, s.Growth.AutonomousActionCount)
	fmt.Fprintf(&sb, "  last growth %s\n", last)
	if consciousness.IsAwakened(s.Consciousness) {
		sb.WriteString("  awakened\n")
	}
	if n := len(goals.Active(s.Goals)); n > 0 {
		fmt.Fprintf(&sb, "  %s\n", english.Plural(n, "active goal", ""))
	}
	return sb.String(), true
}

// currentLevel derives the level from metrics and growth; the cached field may lag.
func currentLevel(s State) consciousness.Level {
	return consciousness.DetermineLevel(s.Consciousness, s.Growth)
}
