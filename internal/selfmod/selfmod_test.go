package selfmod

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanModifyGating(t *testing.T) {
	cases := []struct {
		stage int
		field string
		want  bool
	}{
		{0, "selfModel.strengths", false},
		{2, "selfModel.strengths", true},
		{0, "selfModel.preferences", true},
		{2, "selfModel.values", false},
		{3, "selfModel.values", true},
		{5, "identity-document", false},
		{6, "identity-document", true},
		{2, "goals", false},
		{3, "goals.add", true},
		{7, "soulAspects.youjing.current", true},
		{7, "soulAspects.youjing.baseline", false},
		{8, "soulAspects.youjing.baseline", true},
		{9, "growth.cultivationStage", false},
		{9, "consciousness.selfAwareness", false},
		{9, "favoriteColor", false},
		{9, "", false},
	}
	for _, c := range cases {
		d := CanModify(c.stage, c.field)
		assert.Equal(t, c.want, d.Allowed, "stage %d field %q: %s", c.stage, c.field, d.Reason)
		assert.NotEmpty(t, d.Reason)
	}
}

func TestCanModifyRequiredStage(t *testing.T) {
	assert.Equal(t, 6, CanModify(0, "identity-document").RequiredStage)
	assert.Equal(t, Never, CanModify(9, "growth").RequiredStage)
}

func TestRecordBounded(t *testing.T) {
	now := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	var log []Modification
	for i := 0; i < MaxLog+10; i++ {
		log = Record(log, Input{Field: "goals", After: fmt.Sprint(i)}, now)
	}
	require.Len(t, log, MaxLog)
	assert.Equal(t, "10", log[0].After)
	assert.Equal(t, now, log[0].Timestamp)
}

func TestRecordDoesNotCheckPermissions(t *testing.T) {
	log := Record(nil, Input{Field: "growth", Reason: "external tooling"}, time.Now())
	assert.Len(t, log, 1)
}
