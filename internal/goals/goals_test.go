package goals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

func TestNewAssignsID(t *testing.T) {
	a := New(NewGoal{Description: "  learn go  ", Priority: 1.7}, t0)
	b := New(NewGoal{Description: "learn go"}, t0)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "learn go", a.Description)
	assert.Equal(t, 1.0, a.Priority)
	assert.Equal(t, OriginSelf, a.Origin)
	assert.Equal(t, 0.0, a.Progress)
}

func TestDecayPriorities(t *testing.T) {
	g := New(NewGoal{Description: "ship", Priority: 0.8}, t0)
	out := DecayPriorities([]Goal{g}, t0.Add(100*time.Hour))
	require.Len(t, out, 1)
	assert.Less(t, out[0].Priority, 0.8)
	assert.GreaterOrEqual(t, out[0].Priority, 0.0)
	assert.InDelta(t, 0.8*0.6065306597, out[0].Priority, 1e-6)
	assert.Equal(t, 0.8, g.Priority, "input untouched")
}

func TestDecayPrioritiesSkipsCompleted(t *testing.T) {
	g := New(NewGoal{Description: "done", Priority: 0.5}, t0)
	list, ok := Complete([]Goal{g}, g.ID, t0)
	require.True(t, ok)
	out := DecayPriorities(list, t0.Add(48*time.Hour))
	assert.Equal(t, 0.5, out[0].Priority)
}

func TestAddEvictsLowestPriority(t *testing.T) {
	var list []Goal
	for i := 0; i < MaxGoals; i++ {
		list = Add(list, New(NewGoal{Description: "g", Priority: 0.5 + float64(i)*0.01}, t0.Add(time.Duration(i)*time.Minute)))
	}
	weakest := list[0]
	list = Add(list, New(NewGoal{Description: "urgent", Priority: 0.9}, t0.Add(time.Hour)))

	require.Len(t, list, MaxGoals)
	for _, g := range list {
		assert.NotEqual(t, weakest.ID, g.ID)
	}
}

func TestAddEvictsOldestOnTie(t *testing.T) {
	var list []Goal
	for i := 0; i < MaxGoals; i++ {
		list = Add(list, New(NewGoal{Description: "g", Priority: 0.5}, t0.Add(time.Duration(i)*time.Minute)))
	}
	oldest := list[0]
	list = Add(list, New(NewGoal{Description: "new", Priority: 0.5}, t0.Add(time.Hour)))
	require.Len(t, list, MaxGoals)
	for _, g := range list {
		assert.NotEqual(t, oldest.ID, g.ID)
	}
}

func TestRemove(t *testing.T) {
	a := New(NewGoal{Description: "a"}, t0)
	b := New(NewGoal{Description: "b"}, t0)
	out := Remove([]Goal{a, b}, a.ID)
	require.Len(t, out, 1)
	assert.Equal(t, b.ID, out[0].ID)
	assert.Len(t, Remove(out, "missing"), 1)
}

func TestSetProgressCompletes(t *testing.T) {
	g := New(NewGoal{Description: "a", Priority: 0.4}, t0)
	list, ok := SetProgress([]Goal{g}, g.ID, 0.5, t0)
	require.True(t, ok)
	assert.Equal(t, 0.5, list[0].Progress)
	assert.False(t, list[0].Completed())

	list, ok = SetProgress(list, g.ID, 1, t0.Add(time.Hour))
	require.True(t, ok)
	assert.True(t, list[0].Completed())
	assert.Empty(t, Active(list))
}

func TestTopOrdersByPriority(t *testing.T) {
	low := New(NewGoal{Description: "low", Priority: 0.2}, t0)
	high := New(NewGoal{Description: "high", Priority: 0.9}, t0)
	mid := New(NewGoal{Description: "mid", Priority: 0.5}, t0)
	top := Top([]Goal{low, high, mid}, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "high", top[0].Description)
	assert.Equal(t, "mid", top[1].Description)
}

func TestCleanup(t *testing.T) {
	old := New(NewGoal{Description: "old"}, t0)
	recent := New(NewGoal{Description: "recent"}, t0)
	open := New(NewGoal{Description: "open"}, t0)

	list := []Goal{old, recent, open}
	list, _ = Complete(list, old.ID, t0)
	list, _ = Complete(list, recent.ID, t0.Add(6*24*time.Hour))

	out, removed := Cleanup(list, t0.Add(8*24*time.Hour))
	assert.Equal(t, 1, removed)
	require.Len(t, out, 2)
	assert.Equal(t, "recent", out[0].Description)
	assert.Equal(t, "open", out[1].Description)
}
