// Package paths resolves where Orchestra stores its artifacts.
//
// All file locations flow from a single Layout value derived from the
// repository root. Commands and hooks receive a Layout instead of reading
// global path constants, so tests can point everything at a temp directory.
package paths

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// Directory and file names under the repository root.
const (
	OrchestraDir   = ".orchestra"
	LogsDir        = ".orchestra/logs"
	CheckpointsDir = ".orchestra/checkpoints"
	HandoffsDir    = ".orchestra/handoffs"

	CLIToolsLogName   = "cli-tools.jsonl"
	CLIToolsLogBackup = "cli-tools.jsonl.1"
	DiagnosticLogName = "cli.log"
)

// Context file names, relative to the repository root. The checkpoint
// session-history mode rewrites the trailing section of each of these.
var ContextFiles = map[string]string{
	"claude": "CLAUDE.md",
	"codex":  filepath.Join(".codex", "AGENTS.md"),
	"gemini": filepath.Join(".gemini", "GEMINI.md"),
}

// ContextFileNames fixes the iteration order for ContextFiles so output
// that lists the files is stable across runs.
var ContextFileNames = []string{"claude", "codex", "gemini"}

// Layout holds the resolved locations of every Orchestra artifact.
type Layout struct {
	// Root is the repository root all other paths are derived from.
	Root string
}

// NewLayout returns a Layout rooted at the given directory.
func NewLayout(root string) Layout {
	return Layout{Root: root}
}

// DefaultLayout resolves the layout from the enclosing git repository,
// falling back to the current directory when not inside a repository.
func DefaultLayout() Layout {
	return Layout{Root: RepoRootOr(".")}
}

// CLIToolsLog is the append-only JSONL log of external CLI invocations.
func (l Layout) CLIToolsLog() string {
	return filepath.Join(l.Root, LogsDir, CLIToolsLogName)
}

// CLIToolsLogRotated is the single-generation backup of the CLI log.
func (l Layout) CLIToolsLogRotated() string {
	return filepath.Join(l.Root, LogsDir, CLIToolsLogBackup)
}

// DiagnosticLog is the slog JSON file for internal hook diagnostics.
func (l Layout) DiagnosticLog() string {
	return filepath.Join(l.Root, LogsDir, DiagnosticLogName)
}

// Checkpoints is the directory holding full checkpoint documents.
func (l Layout) Checkpoints() string {
	return filepath.Join(l.Root, CheckpointsDir)
}

// Handoffs is the directory holding handoff packages and resume prompts.
func (l Layout) Handoffs() string {
	return filepath.Join(l.Root, HandoffsDir)
}

// PlanFile is the local plan document the stop reminder checks for.
func (l Layout) PlanFile() string {
	return filepath.Join(l.Root, "PLAN.md")
}

// ContextFile returns the absolute path of a named context document.
// Returns "" for unknown names.
func (l Layout) ContextFile(name string) string {
	rel, ok := ContextFiles[name]
	if !ok {
		return ""
	}
	return filepath.Join(l.Root, rel)
}

// ContextFilePaths returns all context document paths in ContextFileNames
// order.
func (l Layout) ContextFilePaths() []string {
	out := make([]string, 0, len(ContextFileNames))
	for _, name := range ContextFileNames {
		out = append(out, l.ContextFile(name))
	}
	return out
}

// repoRootCache caches the repository root to avoid repeated git commands.
// Keyed by working directory to survive directory changes in tests.
var (
	repoRootMu       sync.RWMutex
	repoRootCache    string
	repoRootCacheDir string
)

// RepoRoot returns the git repository root directory using
// 'git rev-parse --show-toplevel', cached per working directory.
func RepoRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}

	repoRootMu.RLock()
	if repoRootCache != "" && repoRootCacheDir == cwd {
		cached := repoRootCache
		repoRootMu.RUnlock()
		return cached, nil
	}
	repoRootMu.RUnlock()

	cmd := exec.CommandContext(context.Background(), "git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get git repository root: %w", err)
	}

	root := strings.TrimSpace(string(output))

	repoRootMu.Lock()
	repoRootCache = root
	repoRootCacheDir = cwd
	repoRootMu.Unlock()

	return root, nil
}

// ClearRepoRootCache clears the cached repository root. Primarily for tests
// that change directories.
func ClearRepoRootCache() {
	repoRootMu.Lock()
	repoRootCache = ""
	repoRootCacheDir = ""
	repoRootMu.Unlock()
}

// RepoRootOr returns the repository root, or the fallback when not inside
// a git repository.
func RepoRootOr(fallback string) string {
	root, err := RepoRoot()
	if err != nil {
		return fallback
	}
	return root
}
