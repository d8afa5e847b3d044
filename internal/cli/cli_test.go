package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func localEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("VITALITY_CONFIG", "")
	t.Setenv("VITALITY_STATE_DIR", filepath.Join(dir, "agents"))
	t.Setenv("VITALITY_DB", filepath.Join(dir, "history.db"))
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "vitality "), "output = %q", out)
}

func TestTurnThenStatus(t *testing.T) {
	localEnv(t)

	for i := 0; i < 10; i++ {
		_, err := run(t, "turn", "ada", "--type", "learning", "--channel", "cli")
		require.NoError(t, err, "turn %d", i)
	}

	out, err := run(t, "status", "ada")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ada: "), "status output = %q", out)
	assert.Contains(t, out, "experiences 10")

	out, err = run(t, "history", "ada", "-n", "2")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "#"), "history output:\n%s", out)

	out, err = run(t, "agents")
	require.NoError(t, err)
	assert.Equal(t, "ada", strings.TrimSpace(out))
}

func TestModifyDeniedIsError(t *testing.T) {
	localEnv(t)

	_, err := run(t, "modify", "bea", "identity-document", "I am new", "--reason", "test")
	assert.Error(t, err, "identity edit at stage 0 should fail")

	out, err := run(t, "can-modify", "bea", "selfModel.preferences")
	require.NoError(t, err)
	assert.Contains(t, out, "allowed")
}

func TestCapabilities(t *testing.T) {
	localEnv(t)
	out, err := run(t, "capabilities", "cy")
	require.NoError(t, err)
	assert.Contains(t, out, "unformed")
	assert.Contains(t, out, "conversation")
}
