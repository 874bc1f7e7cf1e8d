// Package checkpoint turns the CLI invocation log and git metadata into
// markdown reports: incremental session history injected into context
// files, standalone full checkpoints, and handoff packages for resuming
// work in a later session.
package checkpoint

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/orchestraio/cli/cmd/orchestra/cli/clilog"
	"github.com/orchestraio/cli/cmd/orchestra/cli/gitinfo"
	"github.com/orchestraio/cli/cmd/orchestra/cli/paths"
)

// List caps per rendered section.
const (
	maxCommitsShown       = 20
	maxFilesShown         = 15
	maxConsultationsShown = 10
	maxRecentSummaries    = 5
	maxNextActions        = 4
	maxWorkingTreeShown   = 20
	maxPerDayShown        = 5
)

// promptSummaryLen bounds one-line prompt summaries in reports.
const promptSummaryLen = 90

// fileTimestampFormat names generated checkpoint and handoff documents.
const fileTimestampFormat = "2006-01-02-150405"

// Generator produces reports from one repository's log and git state.
type Generator struct {
	Layout paths.Layout
	Git    *gitinfo.Collector

	// Now is the clock, replaceable in tests.
	Now func() time.Time
}

// NewGenerator returns a Generator for the layout, collecting git metadata
// from the layout root.
func NewGenerator(layout paths.Layout) *Generator {
	return &Generator{
		Layout: layout,
		Git:    gitinfo.New(layout.Root),
		Now:    time.Now,
	}
}

// ParseLogs reads every line of the JSONL log as one entry, skipping
// unparseable lines. When since is a non-empty ISO date, only entries with
// timestamp at or after that date (UTC midnight) are kept; entries are
// filtered individually, not assumed pre-sorted.
func (g *Generator) ParseLogs(since string) []clilog.Entry {
	f, err := os.Open(g.Layout.CLIToolsLog())
	if err != nil {
		return nil
	}
	defer f.Close() //nolint:errcheck // read-only file

	var sinceTime time.Time
	var haveSince bool
	if since != "" {
		if t, parseErr := time.ParseInLocation("2006-01-02", since, time.UTC); parseErr == nil {
			sinceTime = t
			haveSince = true
		}
	}

	var entries []clilog.Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry clilog.Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if haveSince {
			ts, tsErr := time.Parse(time.RFC3339, entry.Timestamp)
			if tsErr != nil || ts.Before(sinceTime) {
				continue
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// toolCounts holds total and successful entry counts for one tool.
type toolCounts struct {
	Total   int
	Success int
}

// countByTool groups entries by tool identifier.
func countByTool(entries []clilog.Entry) map[string]toolCounts {
	counts := make(map[string]toolCounts)
	for _, e := range entries {
		c := counts[e.Tool]
		c.Total++
		if e.Success {
			c.Success++
		}
		counts[e.Tool] = c
	}
	return counts
}

// filterByTool returns the entries recorded for one tool.
func filterByTool(entries []clilog.Entry, tool string) []clilog.Entry {
	var out []clilog.Entry
	for _, e := range entries {
		if e.Tool == tool {
			out = append(out, e)
		}
	}
	return out
}

// promptSummary flattens an entry's prompt into one bounded line.
func promptSummary(e clilog.Entry, limit int) string {
	prompt := ""
	if e.Prompt != nil {
		prompt = *e.Prompt
	}
	summary := strings.TrimSpace(strings.ReplaceAll(prompt, "\n", " "))
	runes := []rune(summary)
	if len(runes) > limit {
		summary = string(runes[:limit-3]) + "..."
	}
	if summary == "" {
		summary = "(no prompt captured)"
	}
	return summary
}

// summarizeRecent returns the most recent entries matching the success
// predicate, newest first, each as "[tool] truncated-prompt". A nil
// predicate keeps everything.
func summarizeRecent(entries []clilog.Entry, success *bool, limit int) []string {
	var filtered []clilog.Entry
	for _, e := range entries {
		if success != nil && e.Success != *success {
			continue
		}
		filtered = append(filtered, e)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp > filtered[j].Timestamp
	})

	var summaries []string
	for i, e := range filtered {
		if i >= limit {
			break
		}
		summaries = append(summaries, fmt.Sprintf("[%s] %s", e.Tool, promptSummary(e, promptSummaryLen)))
	}
	return summaries
}
