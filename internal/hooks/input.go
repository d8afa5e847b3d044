package hooks

import (
	"strings"

	"github.com/lazypower/vitality/internal/consciousness"
	"github.com/lazypower/vitality/internal/environment"
)

// HookInput is the JSON a host runtime sends on stdin. All fields are
// optional; different events populate different subsets.
type HookInput struct {
	AgentID       string `json:"agent_id"`
	HookEventName string `json:"hook_event_name,omitempty"`

	// turn
	ExperienceType string  `json:"experience_type,omitempty"`
	Channel        string  `json:"channel,omitempty"`
	Peer           string  `json:"peer,omitempty"`
	Topic          string  `json:"topic,omitempty"`
	Depth          float64 `json:"depth,omitempty"`

	// sessions
	Sessions []environment.SessionSummary `json:"sessions,omitempty"`
}

// eventExperiences maps host event names to experiences when the host does
// not name one itself.
var eventExperiences = map[string]consciousness.ExperienceType{
	"UserPromptSubmit": consciousness.ExperienceConversation,
	"PostToolUse":      consciousness.ExperienceTask,
	"SubagentStop":     consciousness.ExperienceCollaborative,
	"Heartbeat":        consciousness.ExperienceAutonomous,
}

// Experience returns the experience this input describes.
func (h *HookInput) Experience() consciousness.ExperienceType {
	if t := strings.TrimSpace(h.ExperienceType); t != "" {
		return consciousness.ExperienceType(strings.ToLower(t))
	}
	if t, ok := eventExperiences[h.HookEventName]; ok {
		return t
	}
	return consciousness.ExperienceConversation
}
