package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/orchestraio/cli/cmd/orchestra/cli/clilog"
	"github.com/orchestraio/cli/cmd/orchestra/cli/paths"
)

// HandoffResult names the two documents a handoff run produces.
type HandoffResult struct {
	HandoffPath string
	PromptPath  string
}

// Handoff writes a session handoff summary plus a resume prompt for the
// next session and returns both paths.
func (g *Generator) Handoff(since, goal string) (HandoffResult, error) {
	now := g.Now().UTC()
	timestamp := now.Format(fileTimestampFormat)

	if err := os.MkdirAll(g.Layout.Handoffs(), 0o750); err != nil {
		return HandoffResult{}, fmt.Errorf("create handoffs dir: %w", err)
	}

	result := HandoffResult{
		HandoffPath: filepath.Join(g.Layout.Handoffs(), timestamp+".md"),
		PromptPath:  filepath.Join(g.Layout.Handoffs(), timestamp+".prompt.md"),
	}

	entries := g.ParseLogs(since)
	commits := g.Git.Commits(since)
	changes := g.Git.FileChanges(since)
	workingTree := g.Git.WorkingTreeChanges()
	branch := g.Git.Branch()
	if branch == "" {
		branch = "unknown"
	}

	codexEntries := filterByTool(entries, clilog.ToolCodex)
	geminiEntries := filterByTool(entries, clilog.ToolGemini)
	codexSuccess := countSuccesses(codexEntries)
	geminiSuccess := countSuccesses(geminiEntries)

	successTrue, successFalse := true, false
	recentSuccesses := summarizeRecent(entries, &successTrue, maxRecentSummaries)
	recentFailures := summarizeRecent(entries, &successFalse, maxRecentSummaries)

	actions := nextActions(goal, len(workingTree), len(recentFailures) > 0)

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("# Handoff: %s UTC", now.Format("2006-01-02 15:04:05"))
	line("")
	line("## Goal")
	line("")
	line("- %s", goalOrPlaceholder(goal))
	line("")

	line("## Snapshot")
	line("")
	line("- **Branch**: `%s`", branch)
	line("- **Commits captured**: %d", len(commits))
	line("- **Files changed (git history window)**: %d (%d modified, %d created, %d deleted)",
		changes.Total(), len(changes.Modified), len(changes.Created), len(changes.Deleted))
	line("- **Working tree changes**: %d", len(workingTree))
	line("- **Codex consultations**: %d (%d success, %d failed)",
		len(codexEntries), codexSuccess, len(codexEntries)-codexSuccess)
	line("- **Gemini researches**: %d (%d success, %d failed)",
		len(geminiEntries), geminiSuccess, len(geminiEntries)-geminiSuccess)
	if since != "" {
		line("- **Since**: %s", since)
	}
	line("")

	line("## Completed Signals")
	line("")
	if len(recentSuccesses) > 0 {
		for _, item := range recentSuccesses {
			line("- %s", item)
		}
	} else {
		line("- No successful CLI consultations recorded in the selected range.")
	}
	line("")

	line("## Open Work")
	line("")
	line("### Working Tree Changes")
	line("")
	if len(workingTree) > 0 {
		for i, wt := range workingTree {
			if i >= maxWorkingTreeShown {
				break
			}
			line("- `%s`", wt)
		}
		if len(workingTree) > maxWorkingTreeShown {
			line("- ... and %d more", len(workingTree)-maxWorkingTreeShown)
		}
	} else {
		line("- Working tree is clean.")
	}
	line("")

	line("### Recent Failed CLI Calls")
	line("")
	if len(recentFailures) > 0 {
		for _, item := range recentFailures {
			line("- %s", item)
		}
	} else {
		line("- No failed CLI calls recorded in the selected range.")
	}
	line("")

	line("## Suggested Next Actions")
	line("")
	for i, action := range actions {
		line("%d. %s", i+1, action)
	}
	line("")

	line("## Verification Checklist")
	line("")
	line("- `git status --short`")
	line("- Project lint command for touched packages")
	line("- Focused test command for touched packages")
	line("")

	line("## Resume Prompt")
	line("")
	line("Use `%s` in the next session.", filepath.Base(result.PromptPath))
	line("")
	line("---")
	fmt.Fprintf(&b, "*Generated by orchestra checkpoint at %s*", timestamp)

	if err := os.WriteFile(result.HandoffPath, []byte(b.String()), 0o600); err != nil {
		return HandoffResult{}, fmt.Errorf("write handoff: %w", err)
	}

	promptDoc := renderResumePrompt(filepath.Base(result.HandoffPath), goal)
	if err := os.WriteFile(result.PromptPath, []byte(promptDoc), 0o600); err != nil {
		return HandoffResult{}, fmt.Errorf("write resume prompt: %w", err)
	}
	return result, nil
}

func countSuccesses(entries []clilog.Entry) int {
	n := 0
	for _, e := range entries {
		if e.Success {
			n++
		}
	}
	return n
}

func goalOrPlaceholder(goal string) string {
	if goal == "" {
		return "(No explicit goal provided)"
	}
	return goal
}

// nextActions synthesizes the suggested actions list: situational items
// first, then two generic ones, deduplicated and capped.
func nextActions(goal string, workingTreeCount int, hasFailures bool) []string {
	var actions []string
	if goal != "" {
		actions = append(actions, "Break the goal into the next smallest deliverable: "+goal)
	}
	if workingTreeCount > 0 {
		actions = append(actions, fmt.Sprintf(
			"Review %d working tree change(s) and choose the first file to continue.", workingTreeCount))
	}
	if hasFailures {
		actions = append(actions, "Retry the latest failed CLI task with a narrower prompt and explicit output format.")
	}
	actions = append(actions,
		"Run focused verification for touched files before additional edits.",
		"Create a fresh `/handoff` snapshot before ending the next session.",
	)

	seen := make(map[string]struct{}, len(actions))
	var deduped []string
	for _, a := range actions {
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		deduped = append(deduped, a)
		if len(deduped) == maxNextActions {
			break
		}
	}
	return deduped
}

func renderResumePrompt(handoffName, goal string) string {
	var b strings.Builder
	b.WriteString("# Resume Prompt\n\n")
	b.WriteString("Copy the following block into the first message of your next session:\n\n")
	b.WriteString("```text\n")
	b.WriteString("このプロジェクトの作業を再開します。まず handoff を読んで状況整理してください。\n")
	fmt.Fprintf(&b, "- Handoff file: `%s/%s`\n", paths.HandoffsDir, handoffName)
	fmt.Fprintf(&b, "- Goal: %s\n", goalOrPlaceholder(goal))
	b.WriteString("\n")
	b.WriteString("進め方:\n")
	b.WriteString("1. Snapshot / Open Work / Suggested Next Actions を要約\n")
	b.WriteString("2. 最初の1手を提案し、承認後に実行\n")
	b.WriteString("3. 変更後に Verification Checklist のコマンドを実行\n")
	b.WriteString("4. 終了前に `/handoff` を更新\n")
	b.WriteString("```")
	return b.String()
}
