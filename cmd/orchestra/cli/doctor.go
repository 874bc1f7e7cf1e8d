package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"
	"golang.org/x/term"

	"github.com/orchestraio/cli/cmd/orchestra/cli/paths"
	"github.com/orchestraio/cli/cmd/orchestra/cli/settings"
)

// Minimum supported CLI versions. Older releases lack the flags the
// router suggestions rely on (--skip-git-repo-check, -p).
const (
	minCodexVersion  = "v0.20.0"
	minGeminiVersion = "v0.4.0"
)

// versionProbeTimeout bounds each `<tool> --version` call.
const versionProbeTimeout = 5 * time.Second

func newDoctorCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment for problems",
		Long: `Scan the environment for problems and offer to fix what can be fixed.

Checks performed:
  - git, codex and gemini binaries are on PATH
  - codex and gemini meet the minimum supported versions
  - the .orchestra directory tree exists
  - .orchestra/settings.json parses (when present)
  - the assistant's .claude/settings.json wires the orchestra hooks

Missing directories can be created interactively when running on a
terminal.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.Context(), cmd.OutOrStdout(), verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show details for each check")

	return cmd
}

func runDoctor(ctx context.Context, out io.Writer, verbose bool) error {
	layout := paths.DefaultLayout()
	allOK := true

	fmt.Fprintln(out, "=== Tool Availability ===")
	for _, tool := range []string{"git", "codex", "gemini"} {
		path, err := exec.LookPath(tool)
		ok := err == nil
		fmt.Fprintf(out, "  %s %s\n", statusMark(ok), tool)
		if ok && verbose {
			fmt.Fprintf(out, "    found: %s\n", path)
		}
		if !ok {
			allOK = false
		}
	}

	fmt.Fprintln(out, "\n=== CLI Versions ===")
	for _, check := range []struct {
		tool string
		min  string
	}{
		{"codex", minCodexVersion},
		{"gemini", minGeminiVersion},
	} {
		version, ok := probeVersion(ctx, check.tool)
		switch {
		case !ok:
			fmt.Fprintf(out, "  - %s: not available\n", check.tool)
		case semver.Compare(version, check.min) < 0:
			fmt.Fprintf(out, "  ✗ %s %s (minimum %s)\n", check.tool, version, check.min)
			allOK = false
		default:
			fmt.Fprintf(out, "  ✓ %s %s\n", check.tool, version)
		}
	}

	fmt.Fprintln(out, "\n=== Directory Structure ===")
	var missingDirs []string
	for _, rel := range []string{
		paths.OrchestraDir,
		paths.LogsDir,
		paths.CheckpointsDir,
		paths.HandoffsDir,
	} {
		dir := filepath.Join(layout.Root, rel)
		info, err := os.Stat(dir)
		ok := err == nil && info.IsDir()
		fmt.Fprintf(out, "  %s %s/\n", statusMark(ok), rel)
		if !ok {
			missingDirs = append(missingDirs, dir)
			allOK = false
		}
	}

	fmt.Fprintln(out, "\n=== Context Files ===")
	for _, name := range paths.ContextFileNames {
		_, err := os.Stat(layout.ContextFile(name))
		ok := err == nil
		fmt.Fprintf(out, "  %s %s (%s)\n", statusMark(ok), paths.ContextFiles[name], name)
		if !ok && verbose {
			fmt.Fprintln(out, "    session history updates will skip this file")
		}
	}

	fmt.Fprintln(out, "\n=== Settings ===")
	if ok, detail := checkOrchestraSettings(layout); ok {
		fmt.Fprintf(out, "  ✓ %s\n", settings.SettingsFile)
	} else {
		fmt.Fprintf(out, "  ✗ %s: %s\n", settings.SettingsFile, detail)
		allOK = false
	}

	if ok, detail := checkHookWiring(layout); ok {
		fmt.Fprintln(out, "  ✓ .claude/settings.json hook wiring")
	} else {
		fmt.Fprintf(out, "  ✗ .claude/settings.json: %s\n", detail)
		allOK = false
	}

	if len(missingDirs) > 0 && isInteractive() {
		confirmed := false
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Create %d missing director(ies)?", len(missingDirs))).
					Value(&confirmed),
			),
		)
		if err := form.Run(); err != nil {
			if !errors.Is(err, huh.ErrUserAborted) {
				return fmt.Errorf("prompt failed: %w", err)
			}
		} else if confirmed {
			for _, dir := range missingDirs {
				if err := os.MkdirAll(dir, 0o750); err != nil {
					return fmt.Errorf("creating %s: %w", dir, err)
				}
				fmt.Fprintf(out, "Created: %s\n", dir)
			}
		}
	}

	if !allOK {
		fmt.Fprintln(out, "\nSome checks failed.")
		return NewSilentError(errors.New("doctor found problems"))
	}
	fmt.Fprintln(out, "\nAll checks passed.")
	return nil
}

func statusMark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

var versionTokenPattern = regexp.MustCompile(`\d+\.\d+\.\d+`)

// probeVersion runs `<tool> --version` and extracts a semver token.
func probeVersion(ctx context.Context, tool string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, tool, "--version").Output()
	if err != nil {
		return "", false
	}
	token := versionTokenPattern.FindString(string(output))
	if token == "" {
		return "", false
	}
	version := "v" + token
	if !semver.IsValid(version) {
		return "", false
	}
	return version, true
}

// checkOrchestraSettings reports whether .orchestra/settings.json loads.
// A missing file is fine; defaults apply.
func checkOrchestraSettings(layout paths.Layout) (bool, string) {
	if _, err := settings.Load(layout); err != nil {
		return false, err.Error()
	}
	return true, ""
}

// checkHookWiring verifies the assistant's settings file mentions the
// orchestra hook commands. A missing file counts as unwired.
func checkHookWiring(layout paths.Layout) (bool, string) {
	path := filepath.Join(layout.Root, ".claude", "settings.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, "not found - run the install steps in the README"
		}
		return false, err.Error()
	}

	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}

	if !strings.Contains(string(raw), "orchestra hooks") {
		return false, "no orchestra hook commands configured"
	}
	return true, ""
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
