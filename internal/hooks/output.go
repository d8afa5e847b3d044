package hooks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Output is what hooks write to stdout for the host to inject.
type Output struct {
	AgentID string `json:"agent_id"`
	Context string `json:"context"`
	Saved   bool   `json:"saved"`
}

// WriteOutput writes a hook response. An empty context is still written so
// the host always gets valid JSON.
func WriteOutput(w io.Writer, out Output) error {
	return json.NewEncoder(w).Encode(out)
}

// reportError logs to stderr. Hooks never fail the host, so nothing exits
// non-zero.
func reportError(err error) {
	fmt.Fprintf(os.Stderr, "vitality hook: %v\n", err)
}
