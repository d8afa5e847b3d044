package hooks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Handle reads HookInput from stdin, dispatches on event and writes output to
// stdout using a client built from baseURL.
func Handle(event string, stdin io.Reader, baseURL string, timeoutSec int) {
	client := NewClient(baseURL, secondsToDuration(timeoutSec))
	HandleWith(client, event, stdin, os.Stdout)
}

// HandleWith is Handle with an explicit client and output writer.
func HandleWith(client *Client, event string, stdin io.Reader, stdout io.Writer) {
	var input HookInput
	if err := json.NewDecoder(stdin).Decode(&input); err != nil {
		reportError(fmt.Errorf("decode stdin: %w", err))
		if event != "sessions" {
			WriteOutput(stdout, Output{})
		}
		return
	}
	input.AgentID = strings.TrimSpace(input.AgentID)
	if input.AgentID == "" {
		reportError(fmt.Errorf("%s: agent_id required", event))
		if event != "sessions" {
			WriteOutput(stdout, Output{})
		}
		return
	}

	// Degrade gracefully if the server is down.
	if !client.Healthy() {
		if event != "sessions" {
			WriteOutput(stdout, Output{AgentID: input.AgentID})
		}
		return
	}

	switch event {
	case "turn":
		handleTurn(client, &input, stdout)
	case "context":
		handleContext(client, &input, stdout)
	case "sessions":
		handleSessions(client, &input)
	default:
		reportError(fmt.Errorf("unknown hook event: %s", event))
	}
}
