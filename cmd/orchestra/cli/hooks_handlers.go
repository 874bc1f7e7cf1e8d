// hooks_handlers.go contains the hook handler implementations. Each takes
// its input and output streams explicitly so tests can drive them with
// buffers; the cobra wiring in hooks_cmd.go supplies stdin/stdout.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/orchestraio/cli/cmd/orchestra/cli/clilog"
	"github.com/orchestraio/cli/cmd/orchestra/cli/gitinfo"
	"github.com/orchestraio/cli/cmd/orchestra/cli/hookio"
	"github.com/orchestraio/cli/cmd/orchestra/cli/logging"
	"github.com/orchestraio/cli/cmd/orchestra/cli/paths"
	"github.com/orchestraio/cli/cmd/orchestra/cli/router"
	"github.com/orchestraio/cli/cmd/orchestra/cli/settings"
)

// NotifyEnvVar forces a log-cli notification on every logged call, not
// just failures.
const NotifyEnvVar = "ORCHESTRA_LOG_NOTIFY"

// sessionEndGitTimeout bounds the working-tree scan at session end.
const sessionEndGitTimeout = 3 * time.Second

// routeHook classifies the submitted prompt and, on a trigger match,
// injects the routing suggestion as additional context. No match means
// no output at all.
func routeHook(ctx context.Context, in io.Reader, out io.Writer) error {
	payload, err := hookio.Decode(in)
	if err != nil {
		return err
	}
	if payload.Prompt == "" {
		return nil
	}

	r, err := router.New()
	if err != nil {
		return err
	}

	category, trigger, ok := r.Detect(payload.Prompt)
	if !ok {
		logging.Debug(ctx, "no routing trigger matched")
		return nil
	}

	logging.Info(ctx, "routing trigger matched",
		"category", string(category),
		"trigger", trigger,
	)
	return hookio.EmitContext(out, hookio.EventUserPromptSubmit, router.Suggestion(category, trigger))
}

// logCLIHook records completed codex/gemini shell invocations. Commands
// that ran neither tool, and tools other than Bash, pass through silently.
func logCLIHook(ctx context.Context, layout paths.Layout, in io.Reader, out io.Writer) error {
	payload, err := hookio.Decode(in)
	if err != nil {
		return err
	}
	if payload.ToolName != "Bash" || payload.ToolInput.Command == "" {
		return nil
	}

	entry, ok := clilog.BuildEntry(payload.ToolInput.Command, payload.Result(), time.Now())
	if !ok {
		return nil
	}

	if err := clilog.NewLog(layout).Append(entry); err != nil {
		// The invocation record is lost but the notification below still
		// tells the user what happened to their command.
		logging.Error(ctx, "failed to append CLI log entry", "error", err)
	} else {
		logging.Info(ctx, "CLI call logged",
			"tool", entry.Tool,
			"exit_code", entry.ExitCode,
		)
	}

	return maybeNotify(layout, out, entry.Tool, entry.ExitCode)
}

// maybeNotify emits the continue notification. Silent on success unless
// the env var or notify_always setting asks for confirmation every time.
func maybeNotify(layout paths.Layout, out io.Writer, tool string, exitCode int) error {
	notifyAll := strings.TrimSpace(os.Getenv(NotifyEnvVar)) == "1"
	if !notifyAll {
		if s, err := settings.Load(layout); err == nil && s.NotifyAlways {
			notifyAll = true
		}
	}
	if !notifyAll && exitCode == 0 {
		return nil
	}

	var message string
	if exitCode == 0 {
		message = fmt.Sprintf("[LOG] %s call logged to %s/%s",
			capitalize(tool), paths.LogsDir, paths.CLIToolsLogName)
	} else {
		message = fmt.Sprintf("[LOG] %s call failed (exit_code=%d) - logged to %s/%s",
			capitalize(tool), exitCode, paths.LogsDir, paths.CLIToolsLogName)
	}
	return hookio.EmitNotification(out, message)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// sessionStartHook surfaces the newest handoff resume prompt, when one
// exists, so a fresh session starts with the previous session's state.
func sessionStartHook(ctx context.Context, layout paths.Layout, in io.Reader, out io.Writer) error {
	// Payload content is irrelevant here; drain it so the host never sees
	// a broken pipe.
	_, _ = io.Copy(io.Discard, in)

	latest, ok := latestResumePrompt(layout)
	if !ok {
		return nil
	}

	logging.Info(ctx, "unread handoff found", "prompt", latest)
	message := fmt.Sprintf(
		"[Handoff] 前セッションのハンドオフがあります: `%s/%s`\n"+
			"読み込むには `/handoff --resume` を実行してください。\n"+
			"一覧を見るには `/handoff --list` を実行してください。",
		paths.HandoffsDir, latest)
	return hookio.EmitContext(out, hookio.EventSessionStart, message)
}

// latestResumePrompt returns the newest *.prompt.md file name in the
// handoffs directory. Timestamp-named files sort chronologically.
func latestResumePrompt(layout paths.Layout) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(layout.Handoffs(), "*.prompt.md"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	return filepath.Base(matches[0]), true
}

// Signal substrings scanned over the serialized session payload. Matched
// against lowercased text, so ASCII entries stay lowercase here.
var (
	planSignals = []string{
		"/plan",
		"implementation plan",
		"実装計画",
		"計画",
		"タスクリスト",
	}
	handoffSignals = []string{
		"/handoff",
		"handoff",
		"引き継ぎ",
		"引継ぎ",
		"再開",
		"resume",
		"checkpoint",
		"実装",
		"テスト",
		"修正",
	}
)

func matchesAnySignal(text string, signals []string) bool {
	for _, s := range signals {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

// stopHook reminds the user to copy a finalized plan into PLAN.md when
// the stopping session looks plan-related.
func stopHook(ctx context.Context, layout paths.Layout, in io.Reader, out io.Writer) error {
	raw, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	if !matchesAnySignal(strings.ToLower(string(raw)), planSignals) {
		return nil
	}

	logging.Debug(ctx, "plan signal detected at stop")
	return hookio.EmitContext(out, hookio.EventStop, planReminder(layout))
}

func planReminder(layout paths.Layout) string {
	status := "未作成"
	if _, err := os.Stat(layout.PlanFile()); err == nil {
		status = "更新済み"
	}
	return "[PLAN.md Reminder] このセッションは plan 関連の内容を含んでいます。" +
		"終了前に、確定した実装計画をローカルの PLAN.md にコピーしてください。" +
		fmt.Sprintf("(現在: PLAN.md は %s)", status)
}

// sessionEndHook combines the plan reminder with a handoff reminder when
// the ending session touched plan or handoff work, or left a dirty tree.
func sessionEndHook(ctx context.Context, layout paths.Layout, in io.Reader, out io.Writer) error {
	raw, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	text := strings.ToLower(string(raw))

	planRelated := matchesAnySignal(text, planSignals)
	handoffRelated := matchesAnySignal(text, handoffSignals)

	collector := gitinfo.New(layout.Root)
	collector.Timeout = sessionEndGitTimeout
	changeCount := len(collector.WorkingTreeChanges())

	if !planRelated && !handoffRelated && changeCount == 0 {
		return nil
	}

	var parts []string
	if planRelated {
		parts = append(parts, planReminder(layout))
	}
	parts = append(parts, handoffReminder(layout, changeCount))

	logging.Info(ctx, "session-end reminder emitted",
		"plan_related", planRelated,
		"handoff_related", handoffRelated,
		"working_tree_changes", changeCount,
	)
	return hookio.EmitContext(out, hookio.EventSessionEnd, strings.Join(parts, " "))
}

func handoffReminder(layout paths.Layout, changeCount int) string {
	status := "未作成"
	if name, ok := latestHandoffFile(layout); ok {
		status = name
	}

	reminder := "[Handoff Reminder] セッション終了前に `/handoff --goal \"次セッションの最優先目標\"` " +
		"を実行して引き継ぎパックを作成してください。" +
		"もし既に終了している場合は、新しいセッションの最初に同じコマンドを実行してください（/resume は不要）。" +
		fmt.Sprintf("(最新 handoff: %s)", status)
	if changeCount > 0 {
		reminder += fmt.Sprintf(" 作業ツリー変更: %d件。", changeCount)
	}
	return reminder
}

// latestHandoffFile returns the newest handoff document name, excluding
// the .prompt.md companions.
func latestHandoffFile(layout paths.Layout) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(layout.Handoffs(), "*.md"))
	if err != nil {
		return "", false
	}
	var candidates []string
	for _, m := range matches {
		if strings.HasSuffix(m, ".prompt.md") {
			continue
		}
		candidates = append(candidates, m)
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Sort(sort.Reverse(sort.StringSlice(candidates)))
	return filepath.Base(candidates[0]), true
}

// powershellPatterns are the PowerShell constructs blocked on Windows,
// where the host assistant requires Git Bash.
var powershellPatterns = []string{
	// Redirection
	"2>$null",
	">$null",
	// Cmdlets
	"Remove-Item",
	"Copy-Item",
	"Move-Item",
	"New-Item",
	"Get-Item",
	"Set-Item",
	"Get-Content",
	"Set-Content",
	"Get-ChildItem",
	"Get-Location",
	"Set-Location",
	"Test-Path",
	"Invoke-",
	"Write-Host",
	"Write-Output",
	// Common PowerShell parameters
	"-Recurse",
	"-Force",
	"-ErrorAction",
	"-Path",
	"-ItemType",
}

// detectPowerShellSyntax returns the first blocked pattern found.
func detectPowerShellSyntax(command string) (string, bool) {
	for _, p := range powershellPatterns {
		if strings.Contains(command, p) {
			return p, true
		}
	}
	return "", false
}

// bashSyntaxHook blocks Bash commands written in PowerShell syntax. Only
// wired up on Windows; see hooks_cmd.go.
func bashSyntaxHook(ctx context.Context, in io.Reader, out io.Writer) error {
	payload, err := hookio.Decode(in)
	if err != nil {
		return err
	}
	command := payload.ToolInput.Command
	if command == "" {
		return nil
	}

	pattern, found := detectPowerShellSyntax(command)
	if !found {
		return nil
	}

	logging.Info(ctx, "powershell syntax blocked", "pattern", pattern)
	reason := fmt.Sprintf(
		"PowerShell syntax detected: `%s`. "+
			"The assistant on Windows requires Git Bash (POSIX syntax). "+
			"Use: `2>/dev/null` not `2>$null`, "+
			"`cp -r` not `Copy-Item`, "+
			"`rm -rf` not `Remove-Item`, "+
			"`/` path separators not `\\`.",
		pattern)
	return hookio.EmitBlock(out, reason)
}
