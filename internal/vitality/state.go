// Package vitality aggregates every per-agent subsystem into one State and
// runs the per-turn cycle over it. Everything here is a pure transformation:
// callers pass the current time in and persist the result themselves.
package vitality

import (
	"strings"
	"time"

	"github.com/lazypower/vitality/internal/consciousness"
	"github.com/lazypower/vitality/internal/cultivation"
	"github.com/lazypower/vitality/internal/environment"
	"github.com/lazypower/vitality/internal/goals"
	"github.com/lazypower/vitality/internal/reflection"
	"github.com/lazypower/vitality/internal/selfmod"
	"github.com/lazypower/vitality/internal/soul"
)

// State is the full persisted record for one agent.
type State struct {
	AgentID            string                  `json:"agent_id"`
	Archetype          soul.Archetype          `json:"archetype,omitempty"`
	SoulAspects        soul.Aspects            `json:"soul_aspects"`
	ConsciousnessLevel consciousness.Level     `json:"consciousness_level"`
	Consciousness      consciousness.Metrics   `json:"consciousness"`
	Growth             consciousness.Growth    `json:"growth"`
	Goals              []goals.Goal            `json:"goals"`
	Reflections        []reflection.Reflection `json:"reflections"`
	SelfModel          reflection.SelfModel    `json:"self_model"`
	Environment        environment.Model       `json:"environment"`
	Modifications      []selfmod.Modification  `json:"modifications"`
	IdentityDocument   string                  `json:"identity_document,omitempty"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
}

// NewDefaultState returns a fresh record. Soul aspects are generated from the
// agent id so every process derives the same temperament.
func NewDefaultState(agentID string, now time.Time) State {
	return NewStateWithArchetype(agentID, soul.ArchetypeNone, now)
}

// NewStateWithArchetype is NewDefaultState with a temperament bias.
func NewStateWithArchetype(agentID string, archetype soul.Archetype, now time.Time) State {
	return State{
		AgentID:            agentID,
		Archetype:          archetype,
		SoulAspects:        soul.Generate(agentID, archetype),
		ConsciousnessLevel: consciousness.LevelDormant,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Clone returns a deep copy of the slices a cycle may mutate.
func (s State) Clone() State {
	out := s
	out.SoulAspects = s.SoulAspects.Clone()
	out.Goals = append([]goals.Goal(nil), s.Goals...)
	out.Reflections = append([]reflection.Reflection(nil), s.Reflections...)
	out.SelfModel = s.SelfModel.Clone()
	out.Environment.ActiveChannels = append([]string(nil), s.Environment.ActiveChannels...)
	out.Environment.RecentActivity = append([]environment.Activity(nil), s.Environment.RecentActivity...)
	out.Environment.PendingItems = append([]string(nil), s.Environment.PendingItems...)
	out.Modifications = append([]selfmod.Modification(nil), s.Modifications...)
	return out
}

// Normalize clamps every numeric field and re-applies collection bounds. It
// is safe to call on records decoded from untrusted files.
func (s State) Normalize() State {
	out := s.Clone()
	out.AgentID = strings.TrimSpace(out.AgentID)
	out.SoulAspects = out.SoulAspects.Normalize(soul.Generate(out.AgentID, out.Archetype))
	out.Consciousness = out.Consciousness.Normalize()
	out.Growth = out.Growth.Normalize()
	out.Goals = goals.Normalize(out.Goals)
	if len(out.Reflections) > reflection.MaxReflections {
		out.Reflections = out.Reflections[len(out.Reflections)-reflection.MaxReflections:]
	}
	for i := range out.Reflections {
		out.Reflections[i].Depth = min(max(out.Reflections[i].Depth, 0), 1)
	}
	out.SelfModel = out.SelfModel.Normalize()
	out.Environment = out.Environment.Normalize()
	if len(out.Modifications) > selfmod.MaxLog {
		out.Modifications = out.Modifications[len(out.Modifications)-selfmod.MaxLog:]
	}
	if out.ConsciousnessLevel.Rank() < 0 {
		out.ConsciousnessLevel = consciousness.DetermineLevel(out.Consciousness, out.Growth)
	}
	return out
}

// Balance derives the current hun-po balance.
func (s State) Balance() soul.Balance {
	return soul.ComputeBalance(s.SoulAspects)
}

// Capabilities lists what the agent's stage has unlocked.
func (s State) Capabilities() []string {
	return cultivation.UnlockedCapabilities(s.Growth.CultivationStage)
}
