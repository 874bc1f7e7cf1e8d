// Package gitinfo collects git metadata for checkpoint and handoff reports.
//
// Every collection degrades to an empty result when git is missing, the
// command fails, or the timeout expires: a report missing its git section
// is better than no report.
package gitinfo

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
)

// DefaultTimeout bounds each git subprocess call.
const DefaultTimeout = 5 * time.Second

// fallbackWindow is the commit range inspected when no since-date is given.
const fallbackWindow = "HEAD~10"

// Commit is one entry from the git log.
type Commit struct {
	Hash    string
	Date    string
	Subject string
}

// FileChanges groups changed paths by status, deduplicated by path with
// first-seen status winning.
type FileChanges struct {
	Created  []string
	Modified []string
	Deleted  []string
}

// Total returns the number of changed paths across all statuses.
func (fc FileChanges) Total() int {
	return len(fc.Created) + len(fc.Modified) + len(fc.Deleted)
}

// FileStat is the aggregated added/deleted line count for one path.
type FileStat struct {
	Added   int
	Deleted int
}

// Collector runs git against one repository directory.
type Collector struct {
	Dir     string
	Timeout time.Duration
}

// New returns a Collector for the repository at dir.
func New(dir string) *Collector {
	return &Collector{Dir: dir, Timeout: DefaultTimeout}
}

// run executes a git command and returns its trimmed stdout.
// Returns ("", false) on any failure, including timeout.
func (c *Collector) run(args ...string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.Dir
	output, err := cmd.Output()
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(output)), true
}

// Commits returns up to 100 recent commits, optionally restricted to those
// since the given ISO date.
func (c *Collector) Commits(since string) []Commit {
	args := []string{"log", "--pretty=format:%H|%ai|%s", "-n", "100"}
	if since != "" {
		args = append(args, "--since", since)
	}

	output, ok := c.run(args...)
	if !ok || output == "" {
		return nil
	}

	var commits []Commit
	for line := range strings.Lines(output) {
		line = strings.TrimRight(line, "\n")
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		if len(parts) != 3 {
			continue
		}
		hash := parts[0]
		if len(hash) > 7 {
			hash = hash[:7]
		}
		commits = append(commits, Commit{Hash: hash, Date: parts[1], Subject: parts[2]})
	}
	return commits
}

// FileChanges returns created/modified/deleted paths, either since a date
// or over the last 10 commits.
func (c *Collector) FileChanges(since string) FileChanges {
	var args []string
	if since != "" {
		args = []string{"log", "--since", since, "--name-status", "--pretty=format:"}
	} else {
		args = []string{"diff", "--name-status", fallbackWindow, "HEAD"}
	}

	var changes FileChanges
	output, ok := c.run(args...)
	if !ok || output == "" {
		return changes
	}

	seen := make(map[string]bool)
	for line := range strings.Lines(output) {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, "\t") {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		status, path := parts[0], parts[1]
		if seen[path] {
			continue
		}
		seen[path] = true

		switch {
		case strings.HasPrefix(status, "A"):
			changes.Created = append(changes.Created, path)
		case strings.HasPrefix(status, "M"):
			changes.Modified = append(changes.Modified, path)
		case strings.HasPrefix(status, "D"):
			changes.Deleted = append(changes.Deleted, path)
		}
	}
	return changes
}

// FileStats returns per-path added/deleted line counts aggregated across
// the matching commits.
func (c *Collector) FileStats(since string) map[string]FileStat {
	var args []string
	if since != "" {
		args = []string{"log", "--since", since, "--numstat", "--pretty=format:"}
	} else {
		args = []string{"diff", "--numstat", fallbackWindow, "HEAD"}
	}

	output, ok := c.run(args...)
	if !ok || output == "" {
		return nil
	}

	stats := make(map[string]FileStat)
	for line := range strings.Lines(output) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 3 {
			continue
		}
		// Binary files report "-" counts; treat as zero.
		added := parseCount(parts[0])
		deleted := parseCount(parts[1])
		prev := stats[parts[2]]
		stats[parts[2]] = FileStat{Added: prev.Added + added, Deleted: prev.Deleted + deleted}
	}
	return stats
}

func parseCount(s string) int {
	if s == "-" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// WorkingTreeChanges returns the current uncommitted changes in short form,
// one line per path.
func (c *Collector) WorkingTreeChanges() []string {
	output, ok := c.run("status", "--short")
	if !ok || output == "" {
		return nil
	}

	var lines []string
	for line := range strings.Lines(output) {
		line = strings.TrimRight(line, "\n")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Branch returns the current branch name, or "" when it cannot be
// determined. go-git is consulted first; detached HEAD and open failures
// fall back to the git command.
func (c *Collector) Branch() string {
	repo, err := git.PlainOpenWithOptions(c.Dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err == nil {
		head, headErr := repo.Head()
		if headErr == nil && head.Name().IsBranch() {
			return head.Name().Short()
		}
	}

	branch, ok := c.run("rev-parse", "--abbrev-ref", "HEAD")
	if !ok {
		return ""
	}
	return branch
}
