package checkpoint

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/orchestraio/cli/cmd/orchestra/cli/clilog"
)

// SessionHistoryHeader starts the generated section in context files.
// Everything from this header to end of file is owned by the generator
// and replaced wholesale on every run.
const SessionHistoryHeader = "## Session History"

var sessionHistoryPattern = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(SessionHistoryHeader) + `.*`)

// historyPromptLen bounds prompt previews in session history lines.
const historyPromptLen = 100

// entrySummary is one consultation condensed for the history section.
type entrySummary struct {
	Prompt  string
	Success bool
}

// groupByDate buckets entries by calendar date and tool. Entries for
// unknown tools are dropped.
func groupByDate(entries []clilog.Entry) map[string]map[string][]entrySummary {
	byDate := make(map[string]map[string][]entrySummary)
	for _, e := range entries {
		date := "unknown"
		if len(e.Timestamp) >= 10 {
			date = e.Timestamp[:10]
		}
		if byDate[date] == nil {
			byDate[date] = map[string][]entrySummary{
				clilog.ToolCodex:  nil,
				clilog.ToolGemini: nil,
			}
		}
		if _, known := byDate[date][e.Tool]; !known {
			continue
		}
		prompt := ""
		if e.Prompt != nil {
			prompt = *e.Prompt
		}
		byDate[date][e.Tool] = append(byDate[date][e.Tool], entrySummary{
			Prompt:  prompt,
			Success: e.Success,
		})
	}
	return byDate
}

// renderSessionHistory produces the markdown section, newest date first.
func renderSessionHistory(byDate map[string]map[string][]entrySummary) string {
	if len(byDate) == 0 {
		return ""
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	var b strings.Builder
	b.WriteString(SessionHistoryHeader + "\n\n")

	for _, date := range dates {
		fmt.Fprintf(&b, "### %s\n\n", date)
		renderDayBlock(&b, "**Codex相談:**", byDate[date][clilog.ToolCodex])
		renderDayBlock(&b, "**Gemini調査:**", byDate[date][clilog.ToolGemini])
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderDayBlock(b *strings.Builder, heading string, items []entrySummary) {
	if len(items) == 0 {
		return
	}
	b.WriteString(heading + "\n")
	for i, item := range items {
		if i >= maxPerDayShown {
			break
		}
		prompt := item.Prompt
		runes := []rune(prompt)
		if len(runes) > historyPromptLen {
			prompt = string(runes[:historyPromptLen])
		}
		prompt = strings.ReplaceAll(prompt, "\n", " ")
		fmt.Fprintf(b, "- %s %s...\n", statusMark(item.Success), prompt)
	}
	b.WriteString("\n")
}

// updateContextFile replaces the session history section in one context
// file. Missing files are skipped and reported as not updated.
func updateContextFile(path, history string) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	content := sessionHistoryPattern.ReplaceAllString(string(raw), "")
	content = strings.TrimRight(content, " \t\n") + "\n\n" + history

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return false, err
	}
	return true, nil
}

// HistoryUpdate lists which context files were rewritten and which were
// skipped because they do not exist.
type HistoryUpdate struct {
	Updated []string
	Skipped []string
}

// UpdateSessionHistory rewrites the session history section in every
// known context file. Missing files are non-fatal and reported as
// skipped. A false second return means the selected log range held no
// renderable entries.
func (g *Generator) UpdateSessionHistory(since string) (HistoryUpdate, bool, error) {
	entries := g.ParseLogs(since)
	history := renderSessionHistory(groupByDate(entries))
	if history == "" {
		return HistoryUpdate{}, false, nil
	}

	var result HistoryUpdate
	for _, path := range g.Layout.ContextFilePaths() {
		ok, err := updateContextFile(path, history)
		if err != nil {
			return result, true, fmt.Errorf("update %s: %w", path, err)
		}
		if ok {
			result.Updated = append(result.Updated, path)
		} else {
			result.Skipped = append(result.Skipped, path)
		}
	}
	return result, true, nil
}
