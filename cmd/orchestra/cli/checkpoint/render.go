package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/orchestraio/cli/cmd/orchestra/cli/clilog"
	"github.com/orchestraio/cli/cmd/orchestra/cli/gitinfo"
)

// consultationPromptLen bounds prompt previews in checkpoint sections.
const consultationPromptLen = 80

// FullCheckpoint gathers logs and git state into a timestamp-named
// checkpoint document and returns its path.
func (g *Generator) FullCheckpoint(since string) (string, error) {
	now := g.Now().UTC()
	timestamp := now.Format(fileTimestampFormat)

	if err := os.MkdirAll(g.Layout.Checkpoints(), 0o750); err != nil {
		return "", fmt.Errorf("create checkpoints dir: %w", err)
	}

	entries := g.ParseLogs(since)
	commits := g.Git.Commits(since)
	changes := g.Git.FileChanges(since)
	stats := g.Git.FileStats(since)

	content := renderFullCheckpoint(now, timestamp, since, entries, commits, changes, stats)

	path := filepath.Join(g.Layout.Checkpoints(), timestamp+".md")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("write checkpoint: %w", err)
	}
	return path, nil
}

func renderFullCheckpoint(
	now time.Time,
	timestamp, since string,
	entries []clilog.Entry,
	commits []gitinfo.Commit,
	changes gitinfo.FileChanges,
	stats map[string]gitinfo.FileStat,
) string {
	codexEntries := filterByTool(entries, clilog.ToolCodex)
	geminiEntries := filterByTool(entries, clilog.ToolGemini)

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("# Checkpoint: %s UTC", now.Format("2006-01-02 15:04:05"))
	line("")

	line("## Summary")
	line("")
	line("- **Commits**: %d", len(commits))
	line("- **Files changed**: %d (%d modified, %d created, %d deleted)",
		changes.Total(), len(changes.Modified), len(changes.Created), len(changes.Deleted))
	line("- **Codex consultations**: %d", len(codexEntries))
	line("- **Gemini researches**: %d", len(geminiEntries))
	if since != "" {
		line("- **Since**: %s", since)
	}
	line("")

	line("## Git History")
	line("")
	if len(commits) > 0 {
		line("### Commits")
		line("")
		for i, c := range commits {
			if i >= maxCommitsShown {
				break
			}
			line("- `%s` %s", c.Hash, c.Subject)
		}
		if len(commits) > maxCommitsShown {
			line("- ... and %d more commits", len(commits)-maxCommitsShown)
		}
		line("")
	}

	line("### File Changes")
	line("")
	renderFileList(&b, "Created", changes.Created, func(f string) string {
		return fmt.Sprintf("- `%s` (+%d)", f, stats[f].Added)
	})
	renderFileList(&b, "Modified", changes.Modified, func(f string) string {
		return fmt.Sprintf("- `%s` (+%d, -%d)", f, stats[f].Added, stats[f].Deleted)
	})
	renderFileList(&b, "Deleted", changes.Deleted, func(f string) string {
		return fmt.Sprintf("- `%s`", f)
	})
	if changes.Total() == 0 {
		line("No file changes detected.")
		line("")
	}

	line("## CLI Tool Consultations")
	line("")
	renderConsultations(&b, "Codex", "consultations", codexEntries)
	renderConsultations(&b, "Gemini", "researches", geminiEntries)
	if len(entries) == 0 {
		line("No CLI tool consultations recorded.")
		line("")
	}

	line("---")
	fmt.Fprintf(&b, "*Generated by orchestra checkpoint at %s*", timestamp)
	return b.String()
}

func renderFileList(b *strings.Builder, heading string, files []string, format func(string) string) {
	if len(files) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s:**\n", heading)
	for i, f := range files {
		if i >= maxFilesShown {
			break
		}
		fmt.Fprintf(b, "%s\n", format(f))
	}
	if len(files) > maxFilesShown {
		fmt.Fprintf(b, "- ... and %d more files\n", len(files)-maxFilesShown)
	}
	fmt.Fprintf(b, "\n")
}

func renderConsultations(b *strings.Builder, heading, noun string, entries []clilog.Entry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s (%d %s)\n\n", heading, len(entries), noun)
	for i, e := range entries {
		if i >= maxConsultationsShown {
			break
		}
		fmt.Fprintf(b, "- %s %s...\n", statusMark(e.Success), promptPreview(e, consultationPromptLen))
	}
	if len(entries) > maxConsultationsShown {
		fmt.Fprintf(b, "- ... and %d more %s\n", len(entries)-maxConsultationsShown, noun)
	}
	fmt.Fprintf(b, "\n")
}

func statusMark(success bool) string {
	if success {
		return "✓"
	}
	return "✗"
}

// promptPreview is a hard rune-prefix of the prompt with newlines
// flattened, unlike promptSummary it carries no ellipsis of its own.
func promptPreview(e clilog.Entry, limit int) string {
	prompt := ""
	if e.Prompt != nil {
		prompt = *e.Prompt
	}
	runes := []rune(prompt)
	if len(runes) > limit {
		prompt = string(runes[:limit])
	}
	return strings.ReplaceAll(prompt, "\n", " ")
}
