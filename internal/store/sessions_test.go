package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/vitality/internal/environment"
)

func TestUpsertSessionSummaries(t *testing.T) {
	db := testDB(t)

	err := db.UpsertSessionSummaries("agent", []environment.SessionSummary{
		{SessionKey: "s1", LastChannel: "slack", LastTo: "ann", UpdatedAt: t0},
		{SessionKey: "s2", LastChannel: "email", LastTo: "bo", UpdatedAt: t0.Add(time.Minute)},
		{SessionKey: "", LastChannel: "ignored", UpdatedAt: t0},
	})
	require.NoError(t, err)

	// a stale update must not win
	err = db.UpsertSessionSummaries("agent", []environment.SessionSummary{
		{SessionKey: "s1", LastChannel: "discord", UpdatedAt: t0.Add(-time.Hour)},
		{SessionKey: "s2", LastChannel: "email", LastTo: "cy", UpdatedAt: t0.Add(2 * time.Minute)},
	})
	require.NoError(t, err)

	got, err := db.RecentSessionSummaries("agent", t0.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "s2", got[0].SessionKey)
	assert.Equal(t, "cy", got[0].LastTo)
	assert.Equal(t, "slack", got[1].LastChannel)

	other, err := db.RecentSessionSummaries("someone-else", t0.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestPruneSessionSummaries(t *testing.T) {
	db := testDB(t)
	err := db.UpsertSessionSummaries("agent", []environment.SessionSummary{
		{SessionKey: "old", LastChannel: "slack", UpdatedAt: t0.Add(-48 * time.Hour)},
		{SessionKey: "new", LastChannel: "slack", UpdatedAt: t0},
	})
	require.NoError(t, err)

	n, err := db.PruneSessionSummaries(t0.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
