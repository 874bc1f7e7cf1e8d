package clilog

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestraio/cli/cmd/orchestra/cli/hookio"
	"github.com/orchestraio/cli/redact"
)

func TestDetectTool(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    string
		found   bool
	}{
		{"codex leading", `codex exec --full-auto "do it"`, ToolCodex, true},
		{"gemini leading", `gemini -p "look up"`, ToolGemini, true},
		{"uppercase", `CODEX exec "x"`, ToolCodex, true},
		{"after semicolon", `echo hi; gemini -p "q"`, ToolGemini, true},
		{"after and-and", `make build && codex exec "check"`, ToolCodex, true},
		{"after pipe", `cat notes.md | gemini -p "summarize"`, ToolGemini, true},
		{"codex priority over gemini", `gemini -p "a"; codex exec "b"`, ToolCodex, true},
		{"not a segment leader", `echo codex is nice`, "", false},
		{"plain echo", `echo hello`, "", false},
		{"substring of another word", `codexify --run`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := DetectTool(tt.command)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractCodexPrompt(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    string
		found   bool
	}{
		{
			"full-auto double quoted",
			`codex exec --skip-git-repo-check --sandbox read-only --full-auto "test question"`,
			"test question", true,
		},
		{
			"full-auto single quoted",
			`codex exec --full-auto 'design the cache layer'`,
			"design the cache layer", true,
		},
		{
			"ansi-c quoted",
			`codex exec --full-auto $'multi\nline prompt'`,
			`multi\nline prompt`, true,
		},
		{
			"loose fallback",
			`codex exec --json "quick check"`,
			"quick check", true,
		},
		{
			"trailing redirect tolerated",
			`codex exec --full-auto "with redirect" 2>> err.log`,
			"with redirect", true,
		},
		{"no quoted prompt", `codex exec --full-auto`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ExtractCodexPrompt(tt.command)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractGeminiPrompt(t *testing.T) {
	got, found := ExtractGeminiPrompt(`gemini --yolo -p "research Go generics"`)
	require.True(t, found)
	assert.Equal(t, "research Go generics", got)

	_, found = ExtractGeminiPrompt(`gemini --help`)
	assert.False(t, found)
}

func TestExtractModel(t *testing.T) {
	model, found := ExtractModel(`codex exec --model o4-mini --full-auto "x"`)
	require.True(t, found)
	assert.Equal(t, "o4-mini", model)

	_, found = ExtractModel(`codex exec --full-auto "x"`)
	assert.False(t, found)
}

func TestSanitize_RedactsSecrets(t *testing.T) {
	out := Sanitize("my key is sk-abcdef1234567890 thanks")
	assert.NotContains(t, out, "sk-abcdef1234567890")
	assert.Contains(t, out, redact.Marker)
}

func TestSanitize_TruncatesAfterRedaction(t *testing.T) {
	long := strings.Repeat("あ", MaxFieldLen+50)
	out := Sanitize(long)
	assert.Contains(t, out, "[truncated, 2050 total chars]")
	assert.Equal(t, MaxFieldLen, len([]rune(strings.SplitN(out, "...", 2)[0])))
}

func TestBuildEntry_CodexScenario(t *testing.T) {
	entry, ok := BuildEntry(
		`codex exec --skip-git-repo-check --sandbox read-only --full-auto "test question"`,
		hookio.CommandResult{Stdout: "codex says hello", Stderr: "some warning", ExitCode: 0},
		time.Date(2026, 1, 26, 12, 0, 0, 0, time.UTC),
	)
	require.True(t, ok)
	assert.Equal(t, "codex", entry.Tool)
	assert.True(t, entry.Success)
	assert.Contains(t, entry.Stdout, "codex says hello")
	assert.Contains(t, entry.Stderr, "some warning")
	assert.Equal(t, "codex says hello", entry.Response)
	assert.True(t, entry.HasOutput)
	assert.Equal(t, 0, entry.ExitCode)
	require.NotNil(t, entry.Prompt)
	assert.Equal(t, "test question", *entry.Prompt)
	assert.Equal(t, DefaultCodexModel, entry.Model)
	assert.Equal(t, "2026-01-26T12:00:00Z", entry.Timestamp)
}

func TestBuildEntry_NonToolCommand(t *testing.T) {
	_, ok := BuildEntry("echo hello", hookio.CommandResult{ExitCode: 0}, time.Now())
	assert.False(t, ok)
}

func TestBuildEntry_GeminiDefaults(t *testing.T) {
	entry, ok := BuildEntry(
		`gemini --model custom -p "look into this"`,
		hookio.CommandResult{Stderr: "boom", ExitCode: 2},
		time.Now(),
	)
	require.True(t, ok)
	assert.Equal(t, "gemini", entry.Tool)
	// gemini always records the fixed default model, no extraction.
	assert.Equal(t, DefaultGeminiModel, entry.Model)
	assert.False(t, entry.Success)
	assert.Equal(t, 2, entry.ExitCode)
	assert.Equal(t, "boom", entry.Response)
	assert.Empty(t, entry.Stdout)
}

func TestBuildEntry_NoOutputFieldsStillPresent(t *testing.T) {
	entry, ok := BuildEntry(`codex exec --full-auto "q"`, hookio.CommandResult{}, time.Now())
	require.True(t, ok)
	assert.False(t, entry.HasOutput)
	assert.Empty(t, entry.Stdout)
	assert.Empty(t, entry.Stderr)
	assert.Empty(t, entry.Response)
	assert.True(t, entry.Success)
}
