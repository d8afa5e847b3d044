package store

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
)

const stateExt = ".json"

func validNameChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
}

// sanitizeAgentID normalizes an agent id to [a-z0-9_-]. Separators collapse
// to a single hyphen and anything else is dropped.
func sanitizeAgentID(id string) string {
	var b strings.Builder
	prevHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(id)) {
		if validNameChar(r) {
			b.WriteRune(r)
			prevHyphen = r == '-'
		} else if r == ' ' || r == '.' || r == '/' || r == ':' {
			if !prevHyphen && b.Len() > 0 {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-_")
}

// stateFileName maps an agent id to its file name. Ids that survive
// sanitization unchanged map to themselves; others get a hash suffix so two
// ids that sanitize alike never share a file.
func stateFileName(agentID string) string {
	clean := sanitizeAgentID(agentID)
	if clean != "" && clean == agentID {
		return clean + stateExt
	}
	sum := blake3.Sum256([]byte(agentID))
	suffix := hex.EncodeToString(sum[:6])
	if clean == "" {
		return "agent-" + suffix + stateExt
	}
	return clean + "-" + suffix + stateExt
}
