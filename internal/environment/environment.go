// Package environment turns the host's session summaries into a compact view
// of where an agent has recently been active.
package environment

import (
	"sort"
	"strings"
	"time"
)

// MaxActivity bounds RecentActivity.
const MaxActivity = 20

// SessionSummary is what the host runtime reports about one session.
type SessionSummary struct {
	SessionKey  string    `json:"session_key"`
	UpdatedAt   time.Time `json:"updated_at"`
	LastChannel string    `json:"last_channel"`
	LastTo      string    `json:"last_to"`
	Subject     string    `json:"subject,omitempty"`
	Origin      string    `json:"origin,omitempty"`
}

// Activity is one recent (channel, peer) interaction.
type Activity struct {
	Channel   string    `json:"channel"`
	Peer      string    `json:"peer"`
	Timestamp time.Time `json:"timestamp"`
	Topic     string    `json:"topic,omitempty"`
}

// Model is the agent's view of its surroundings.
type Model struct {
	ActiveChannels []string   `json:"active_channels"`
	RecentActivity []Activity `json:"recent_activity"`
	PendingItems   []string   `json:"pending_items"`
}

type key struct{ channel, peer string }

// Scan merges summaries into prev. Summaries without a channel are ignored.
// Activity is deduplicated by (channel, peer) keeping the newest, ordered
// newest first and truncated to MaxActivity.
func Scan(summaries []SessionSummary, prev Model) Model {
	latest := map[key]Activity{}
	consider := func(a Activity) {
		k := key{a.Channel, a.Peer}
		if cur, ok := latest[k]; !ok || a.Timestamp.After(cur.Timestamp) ||
			(a.Timestamp.Equal(cur.Timestamp) && cur.Topic == "" && a.Topic != "") {
			latest[k] = a
		}
	}

	for _, a := range prev.RecentActivity {
		if strings.TrimSpace(a.Channel) != "" {
			consider(a)
		}
	}
	for _, s := range summaries {
		ch := strings.TrimSpace(s.LastChannel)
		if ch == "" {
			continue
		}
		consider(Activity{
			Channel:   ch,
			Peer:      strings.TrimSpace(s.LastTo),
			Timestamp: s.UpdatedAt,
			Topic:     strings.TrimSpace(s.Subject),
		})
	}

	activity := make([]Activity, 0, len(latest))
	for _, a := range latest {
		activity = append(activity, a)
	}
	sort.Slice(activity, func(i, j int) bool {
		a, b := activity[i], activity[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		if a.Channel != b.Channel {
			return a.Channel < b.Channel
		}
		return a.Peer < b.Peer
	})
	if len(activity) > MaxActivity {
		activity = activity[:MaxActivity]
	}

	seen := map[string]bool{}
	var channels []string
	for _, a := range activity {
		if !seen[a.Channel] {
			seen[a.Channel] = true
			channels = append(channels, a.Channel)
		}
	}
	sort.Strings(channels)

	var pending []string
	if len(prev.PendingItems) > 0 {
		pending = append(pending, prev.PendingItems...)
	}
	return Model{ActiveChannels: channels, RecentActivity: activity, PendingItems: pending}
}

// Normalize re-applies Scan's invariants to a decoded model.
func (m Model) Normalize() Model {
	return Scan(nil, m)
}
