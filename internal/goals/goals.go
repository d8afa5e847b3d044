// Package goals keeps an agent's short, bounded list of prioritized goals.
// All operations return new slices and leave their input untouched.
package goals

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Origin records who proposed a goal.
type Origin string

const (
	OriginSelf       Origin = "self"
	OriginUser       Origin = "user"
	OriginSystem     Origin = "system"
	OriginReflection Origin = "reflection"
)

const (
	// MaxGoals bounds the list; adding past it evicts the weakest goal.
	MaxGoals = 10
	// DecayRate is the per-hour exponential decay of priority.
	DecayRate = 0.005
	// Retention is how long a completed goal stays before Cleanup drops it.
	Retention = 7 * 24 * time.Hour
)

// Goal is one thing the agent is working toward.
type Goal struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Priority    float64    `json:"priority"`
	Progress    float64    `json:"progress"`
	Origin      Origin     `json:"origin"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Completed reports whether the goal has been finished.
func (g Goal) Completed() bool { return g.CompletedAt != nil }

// NewGoal carries the caller-supplied fields of a goal.
type NewGoal struct {
	Description string  `json:"description"`
	Priority    float64 `json:"priority"`
	Origin      Origin  `json:"origin"`
}

// New builds a goal with a fresh id and zero progress.
func New(in NewGoal, now time.Time) Goal {
	origin := in.Origin
	if origin == "" {
		origin = OriginSelf
	}
	return Goal{
		ID:          uuid.NewString(),
		Description: strings.TrimSpace(in.Description),
		Priority:    clamp01(in.Priority),
		Origin:      origin,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func clone(goals []Goal) []Goal {
	out := make([]Goal, len(goals))
	copy(out, goals)
	return out
}

// Add appends g. When the list is full the goal with the lowest priority is
// evicted; ties go to the oldest. The new goal itself may be the one evicted.
func Add(goals []Goal, g Goal) []Goal {
	out := append(clone(goals), g)
	for len(out) > MaxGoals {
		weakest := 0
		for i := 1; i < len(out); i++ {
			w := out[weakest]
			if out[i].Priority < w.Priority ||
				(out[i].Priority == w.Priority && out[i].CreatedAt.Before(w.CreatedAt)) {
				weakest = i
			}
		}
		out = append(out[:weakest], out[weakest+1:]...)
	}
	return out
}

// Remove drops the goal with id. Unknown ids are a no-op.
func Remove(goals []Goal, id string) []Goal {
	out := make([]Goal, 0, len(goals))
	for _, g := range goals {
		if g.ID != id {
			out = append(out, g)
		}
	}
	return out
}

// Complete marks the goal with id finished. Already-completed goals keep their
// original completion time.
func Complete(goals []Goal, id string, now time.Time) ([]Goal, bool) {
	out := clone(goals)
	for i := range out {
		if out[i].ID != id {
			continue
		}
		if out[i].CompletedAt == nil {
			t := now
			out[i].CompletedAt = &t
			out[i].Progress = 1
			out[i].UpdatedAt = now
		}
		return out, true
	}
	return out, false
}

// SetProgress records progress on a goal. Progress of 1 completes it.
func SetProgress(goals []Goal, id string, progress float64, now time.Time) ([]Goal, bool) {
	progress = clamp01(progress)
	if progress >= 1 {
		return Complete(goals, id, now)
	}
	out := clone(goals)
	for i := range out {
		if out[i].ID == id {
			out[i].Progress = progress
			out[i].UpdatedAt = now
			return out, true
		}
	}
	return out, false
}

// DecayPriorities fades the priority of every active goal by the hours since
// it was last touched.
func DecayPriorities(goals []Goal, now time.Time) []Goal {
	out := clone(goals)
	for i := range out {
		if out[i].Completed() {
			continue
		}
		hours := now.Sub(out[i].UpdatedAt).Hours()
		if hours <= 0 {
			continue
		}
		out[i].Priority = clamp01(out[i].Priority * math.Exp(-DecayRate*hours))
		out[i].UpdatedAt = now
	}
	return out
}

// Active returns the non-completed goals ordered by descending priority.
func Active(goals []Goal) []Goal {
	var out []Goal
	for _, g := range goals {
		if !g.Completed() {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// Top returns at most n active goals by priority.
func Top(goals []Goal, n int) []Goal {
	a := Active(goals)
	if n >= 0 && len(a) > n {
		a = a[:n]
	}
	return a
}

// Cleanup drops goals that were completed more than Retention ago. It
// returns the remaining goals and how many were removed.
func Cleanup(goals []Goal, now time.Time) ([]Goal, int) {
	out := make([]Goal, 0, len(goals))
	removed := 0
	for _, g := range goals {
		if g.CompletedAt != nil && now.Sub(*g.CompletedAt) > Retention {
			removed++
			continue
		}
		out = append(out, g)
	}
	return out, removed
}

// Normalize clamps priorities and progress and drops goals without an id.
func Normalize(goals []Goal) []Goal {
	out := make([]Goal, 0, len(goals))
	for _, g := range goals {
		if g.ID == "" {
			continue
		}
		g.Priority = clamp01(g.Priority)
		g.Progress = clamp01(g.Progress)
		out = append(out, g)
	}
	for len(out) > MaxGoals {
		out = Add(out[:len(out)-1], out[len(out)-1])
	}
	return out
}

func clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
