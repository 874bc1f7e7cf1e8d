package checkpoint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestraio/cli/cmd/orchestra/cli/clilog"
)

func TestRenderSessionHistoryEmpty(t *testing.T) {
	assert.Empty(t, renderSessionHistory(nil))
}

func TestRenderSessionHistoryGroupsAndOrders(t *testing.T) {
	byDate := groupByDate([]clilog.Entry{
		makeEntry("2026-03-13T10:00:00Z", clilog.ToolCodex, "implement parser", true),
		makeEntry("2026-03-14T09:00:00Z", clilog.ToolGemini, "research tokenizers", false),
		makeEntry("2026-03-14T10:00:00Z", clilog.ToolCodex, "fix parser bug", true),
	})

	history := renderSessionHistory(byDate)

	idx14 := strings.Index(history, "### 2026-03-14")
	idx13 := strings.Index(history, "### 2026-03-13")
	require.GreaterOrEqual(t, idx14, 0)
	require.GreaterOrEqual(t, idx13, 0)
	assert.Less(t, idx14, idx13, "newest date should come first")

	assert.True(t, strings.HasPrefix(history, SessionHistoryHeader))
	assert.Contains(t, history, "**Codex相談:**")
	assert.Contains(t, history, "**Gemini調査:**")
	assert.Contains(t, history, "- ✓ fix parser bug...")
	assert.Contains(t, history, "- ✗ research tokenizers...")
}

func TestRenderSessionHistoryPerDayCap(t *testing.T) {
	var entries []clilog.Entry
	for i := 0; i < 8; i++ {
		entries = append(entries, makeEntry("2026-03-14T08:00:00Z", clilog.ToolCodex, "p", true))
	}

	history := renderSessionHistory(groupByDate(entries))
	assert.Equal(t, maxPerDayShown, strings.Count(history, "- ✓ p..."))
}

func TestGroupByDateDropsUnknownTools(t *testing.T) {
	byDate := groupByDate([]clilog.Entry{
		makeEntry("2026-03-14T08:00:00Z", "mystery", "p", true),
	})
	require.Contains(t, byDate, "2026-03-14")
	assert.Empty(t, byDate["2026-03-14"][clilog.ToolCodex])
	assert.Empty(t, byDate["2026-03-14"][clilog.ToolGemini])
}

func TestUpdateSessionHistoryReplacesSection(t *testing.T) {
	g := testGenerator(t)
	writeLog(t, g, []clilog.Entry{
		makeEntry("2026-03-14T08:00:00Z", clilog.ToolCodex, "implement parser", true),
	})

	claudePath := filepath.Join(g.Layout.Root, "CLAUDE.md")
	original := "# Project Notes\n\nKeep this part.\n\n## Session History\n\n### 2026-01-01\n\nstale\n"
	require.NoError(t, os.WriteFile(claudePath, []byte(original), 0o600))

	result, hadEntries, err := g.UpdateSessionHistory("")
	require.NoError(t, err)
	assert.True(t, hadEntries)
	require.Equal(t, []string{claudePath}, result.Updated, "only the existing context file is touched")
	assert.Equal(t, []string{
		filepath.Join(g.Layout.Root, ".codex", "AGENTS.md"),
		filepath.Join(g.Layout.Root, ".gemini", "GEMINI.md"),
	}, result.Skipped, "missing context files are reported in a stable order")

	raw, err := os.ReadFile(claudePath)
	require.NoError(t, err)
	content := string(raw)

	assert.Contains(t, content, "Keep this part.")
	assert.Contains(t, content, "- ✓ implement parser...")
	assert.NotContains(t, content, "stale")
	assert.Equal(t, 1, strings.Count(content, SessionHistoryHeader))
}

func TestUpdateSessionHistoryIdempotent(t *testing.T) {
	g := testGenerator(t)
	writeLog(t, g, []clilog.Entry{
		makeEntry("2026-03-14T08:00:00Z", clilog.ToolGemini, "research libs", true),
	})

	claudePath := filepath.Join(g.Layout.Root, "CLAUDE.md")
	require.NoError(t, os.WriteFile(claudePath, []byte("# Notes\n"), 0o600))

	_, _, err := g.UpdateSessionHistory("")
	require.NoError(t, err)
	first, err := os.ReadFile(claudePath)
	require.NoError(t, err)

	_, _, err = g.UpdateSessionHistory("")
	require.NoError(t, err)
	second, err := os.ReadFile(claudePath)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestUpdateSessionHistoryNoEntries(t *testing.T) {
	g := testGenerator(t)

	result, hadEntries, err := g.UpdateSessionHistory("")
	require.NoError(t, err)
	assert.False(t, hadEntries)
	assert.Empty(t, result.Updated)
	assert.Empty(t, result.Skipped)
}

func TestUpdateContextFileMissing(t *testing.T) {
	ok, err := updateContextFile(filepath.Join(t.TempDir(), "absent.md"), "## Session History\n")
	require.NoError(t, err)
	assert.False(t, ok)
}
