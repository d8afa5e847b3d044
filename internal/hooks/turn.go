package hooks

import (
	"encoding/json"
	"io"
	"net/url"
	"time"

	"github.com/lazypower/vitality/internal/vitality"
)

func agentPath(agentID, tail string) string {
	return "/api/agents/" + url.PathEscape(agentID) + tail
}

// handleTurn records one turn and prints the refreshed prompt context.
func handleTurn(client *Client, input *HookInput, stdout io.Writer) {
	body, err := json.Marshal(vitality.TurnInput{
		ExperienceType: input.Experience(),
		Channel:        input.Channel,
		Peer:           input.Peer,
		Topic:          input.Topic,
		Depth:          input.Depth,
		Sessions:       input.Sessions,
	})
	if err != nil {
		reportError(err)
		WriteOutput(stdout, Output{AgentID: input.AgentID})
		return
	}

	out := Output{AgentID: input.AgentID}
	data, err := client.Post(agentPath(input.AgentID, "/turns"), body)
	if err != nil {
		reportError(err)
	} else {
		var resp struct {
			Saved bool `json:"saved"`
		}
		if json.Unmarshal(data, &resp) == nil {
			out.Saved = resp.Saved
		}
	}

	out.Context = fetchContext(client, input.AgentID)
	WriteOutput(stdout, out)
}

// handleContext prints the prompt context without recording a turn.
func handleContext(client *Client, input *HookInput, stdout io.Writer) {
	WriteOutput(stdout, Output{
		AgentID: input.AgentID,
		Context: fetchContext(client, input.AgentID),
		Saved:   true,
	})
}

func fetchContext(client *Client, agentID string) string {
	data, err := client.Get(agentPath(agentID, "/context"))
	if err != nil {
		reportError(err)
		return ""
	}
	var resp struct {
		Context   string `json:"context"`
		Available bool   `json:"available"`
	}
	if err := json.Unmarshal(data, &resp); err != nil || !resp.Available {
		return ""
	}
	return resp.Context
}

func handleSessions(client *Client, input *HookInput) {
	if len(input.Sessions) == 0 {
		return
	}
	body, err := json.Marshal(map[string]any{
		"agent_id": input.AgentID,
		"sessions": input.Sessions,
	})
	if err != nil {
		reportError(err)
		return
	}
	if _, err := client.Post("/api/sessions", body); err != nil {
		reportError(err)
	}
}

func secondsToDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
