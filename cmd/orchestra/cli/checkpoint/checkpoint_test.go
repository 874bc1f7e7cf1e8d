package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestraio/cli/cmd/orchestra/cli/clilog"
	"github.com/orchestraio/cli/cmd/orchestra/cli/paths"
)

func testGenerator(t *testing.T) *Generator {
	t.Helper()
	g := NewGenerator(paths.NewLayout(t.TempDir()))
	g.Now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	}
	return g
}

func makeEntry(ts, tool, prompt string, success bool) clilog.Entry {
	return clilog.Entry{
		Timestamp: ts,
		Tool:      tool,
		Model:     "test-model",
		Prompt:    &prompt,
		Success:   success,
	}
}

func writeLog(t *testing.T, g *Generator, entries []clilog.Entry, extraLines ...string) {
	t.Helper()
	path := g.Layout.CLIToolsLog()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))

	var b strings.Builder
	for _, e := range entries {
		data, err := json.Marshal(e)
		require.NoError(t, err)
		b.Write(data)
		b.WriteString("\n")
	}
	for _, line := range extraLines {
		b.WriteString(line + "\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
}

func TestParseLogsSkipsUnparseableLines(t *testing.T) {
	g := testGenerator(t)
	writeLog(t, g,
		[]clilog.Entry{
			makeEntry("2026-03-13T10:00:00Z", clilog.ToolCodex, "first", true),
			makeEntry("2026-03-14T08:00:00Z", clilog.ToolGemini, "second", false),
		},
		"{not json",
		"",
	)

	entries := g.ParseLogs("")
	require.Len(t, entries, 2)
	assert.Equal(t, clilog.ToolCodex, entries[0].Tool)
	assert.Equal(t, clilog.ToolGemini, entries[1].Tool)
}

func TestParseLogsSinceFilter(t *testing.T) {
	g := testGenerator(t)
	writeLog(t, g, []clilog.Entry{
		makeEntry("2026-03-10T10:00:00Z", clilog.ToolCodex, "old", true),
		makeEntry("2026-03-14T08:00:00Z", clilog.ToolCodex, "new", true),
	})

	entries := g.ParseLogs("2026-03-12")
	require.Len(t, entries, 1)
	assert.Equal(t, "new", *entries[0].Prompt)
}

func TestParseLogsMissingFile(t *testing.T) {
	g := testGenerator(t)
	assert.Empty(t, g.ParseLogs(""))
}

func TestSummarizeRecentOrderAndTruncation(t *testing.T) {
	long := strings.Repeat("x", 120)
	entries := []clilog.Entry{
		makeEntry("2026-03-14T08:00:00Z", clilog.ToolCodex, "older", true),
		makeEntry("2026-03-14T09:00:00Z", clilog.ToolGemini, long, true),
	}

	yes := true
	summaries := summarizeRecent(entries, &yes, 5)
	require.Len(t, summaries, 2)
	assert.Equal(t, fmt.Sprintf("[gemini] %s...", strings.Repeat("x", 87)), summaries[0])
	assert.Equal(t, "[codex] older", summaries[1])
}

func TestSummarizeRecentFiltersAndCaps(t *testing.T) {
	var entries []clilog.Entry
	for i := 0; i < 8; i++ {
		entries = append(entries, makeEntry(
			fmt.Sprintf("2026-03-14T0%d:00:00Z", i), clilog.ToolCodex, fmt.Sprintf("p%d", i), i%2 == 0))
	}

	no := false
	summaries := summarizeRecent(entries, &no, 3)
	require.Len(t, summaries, 3)
	assert.Equal(t, "[codex] p7", summaries[0])
	assert.Equal(t, "[codex] p5", summaries[1])
	assert.Equal(t, "[codex] p3", summaries[2])
}

func TestSummarizeRecentEmptyPrompt(t *testing.T) {
	entries := []clilog.Entry{makeEntry("2026-03-14T08:00:00Z", clilog.ToolCodex, "", true)}
	summaries := summarizeRecent(entries, nil, 5)
	require.Len(t, summaries, 1)
	assert.Equal(t, "[codex] (no prompt captured)", summaries[0])
}

func TestFullCheckpointContent(t *testing.T) {
	g := testGenerator(t)

	var entries []clilog.Entry
	for i := 0; i < 12; i++ {
		entries = append(entries, makeEntry(
			fmt.Sprintf("2026-03-14T08:%02d:00Z", i), clilog.ToolCodex, fmt.Sprintf("codex prompt %d", i), true))
	}
	entries = append(entries, makeEntry("2026-03-14T09:00:00Z", clilog.ToolGemini, "research something", false))
	writeLog(t, g, entries)

	path, err := g.FullCheckpoint("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(g.Layout.Checkpoints(), "2026-03-14-092653.md"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(raw)

	assert.Contains(t, content, "# Checkpoint: 2026-03-14 09:26:53 UTC")
	assert.Contains(t, content, "- **Commits**: 0")
	assert.Contains(t, content, "- **Codex consultations**: 12")
	assert.Contains(t, content, "- **Gemini researches**: 1")
	assert.Contains(t, content, "No file changes detected.")
	assert.Contains(t, content, "### Codex (12 consultations)")
	assert.Contains(t, content, "- ... and 2 more consultations")
	assert.Contains(t, content, "### Gemini (1 researches)")
	assert.Contains(t, content, "- ✗ research something...")
	assert.Contains(t, content, "*Generated by orchestra checkpoint at 2026-03-14-092653*")
}

func TestFullCheckpointSinceLine(t *testing.T) {
	g := testGenerator(t)

	path, err := g.FullCheckpoint("2026-03-01")
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "- **Since**: 2026-03-01")
	assert.Contains(t, string(raw), "No CLI tool consultations recorded.")
}

func TestWriteAnalysisPrompt(t *testing.T) {
	g := testGenerator(t)
	writeLog(t, g, []clilog.Entry{
		makeEntry("2026-03-14T08:00:00Z", clilog.ToolCodex, "design the cache layer", true),
	})

	checkpointPath, err := g.FullCheckpoint("")
	require.NoError(t, err)

	promptPath, err := WriteAnalysisPrompt(checkpointPath)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSuffix(checkpointPath, ".md")+".analyze-prompt.md", promptPath)

	raw, err := os.ReadFile(promptPath)
	require.NoError(t, err)
	content := string(raw)
	assert.Contains(t, content, "## Checkpoint Content")
	assert.Contains(t, content, "design the cache layer")
	assert.Contains(t, content, "## Analysis Instructions")
}

func TestWriteAnalysisPromptMissingCheckpoint(t *testing.T) {
	_, err := WriteAnalysisPrompt(filepath.Join(t.TempDir(), "absent.md"))
	require.Error(t, err)
}
