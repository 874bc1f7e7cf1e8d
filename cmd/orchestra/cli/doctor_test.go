package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/mod/semver"

	"github.com/orchestraio/cli/cmd/orchestra/cli/paths"
)

func TestVersionTokenPattern(t *testing.T) {
	tests := []struct {
		output string
		want   string
	}{
		{"codex-cli 0.21.3", "0.21.3"},
		{"gemini version v0.5.1 (build abcdef)", "0.5.1"},
		{"no version here", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, versionTokenPattern.FindString(tt.output), tt.output)
	}
}

func TestMinimumVersionsAreValidSemver(t *testing.T) {
	assert.True(t, semver.IsValid(minCodexVersion))
	assert.True(t, semver.IsValid(minGeminiVersion))
}

func TestCheckHookWiring(t *testing.T) {
	root := t.TempDir()
	layout := paths.NewLayout(root)

	ok, detail := checkHookWiring(layout)
	assert.False(t, ok)
	assert.Contains(t, detail, "not found")

	claudeDir := filepath.Join(root, ".claude")
	require.NoError(t, os.MkdirAll(claudeDir, 0o750))
	settingsPath := filepath.Join(claudeDir, "settings.json")

	require.NoError(t, os.WriteFile(settingsPath, []byte("{broken"), 0o600))
	ok, detail = checkHookWiring(layout)
	assert.False(t, ok)
	assert.Contains(t, detail, "invalid JSON")

	require.NoError(t, os.WriteFile(settingsPath, []byte(`{"hooks":{}}`), 0o600))
	ok, detail = checkHookWiring(layout)
	assert.False(t, ok)
	assert.Contains(t, detail, "no orchestra hook commands")

	wired := `{"hooks":{"UserPromptSubmit":[{"hooks":[{"type":"command","command":"orchestra hooks route"}]}]}}`
	require.NoError(t, os.WriteFile(settingsPath, []byte(wired), 0o600))
	ok, _ = checkHookWiring(layout)
	assert.True(t, ok)
}

func TestCheckOrchestraSettings(t *testing.T) {
	root := t.TempDir()
	layout := paths.NewLayout(root)

	ok, _ := checkOrchestraSettings(layout)
	assert.True(t, ok, "missing settings are fine, defaults apply")

	settingsPath := filepath.Join(root, ".orchestra", "settings.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(settingsPath), 0o750))
	require.NoError(t, os.WriteFile(settingsPath, []byte("{broken"), 0o600))

	ok, detail := checkOrchestraSettings(layout)
	assert.False(t, ok)
	assert.NotEmpty(t, detail)
}
