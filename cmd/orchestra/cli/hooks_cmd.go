package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/orchestraio/cli/cmd/orchestra/cli/logging"
	"github.com/orchestraio/cli/cmd/orchestra/cli/paths"
	"github.com/orchestraio/cli/cmd/orchestra/cli/router"
	"github.com/orchestraio/cli/cmd/orchestra/cli/settings"
)

func newHooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "hooks",
		Short:  "Hook handlers",
		Long:   "Commands called by assistant hooks. These are internal and not for direct user use.",
		Hidden: true, // Internal command, not for direct user use
	}

	cmd.AddCommand(newRouteHookCmd())
	cmd.AddCommand(newLogCLIHookCmd())
	cmd.AddCommand(newSessionStartHookCmd())
	cmd.AddCommand(newStopHookCmd())
	cmd.AddCommand(newSessionEndHookCmd())
	cmd.AddCommand(newBashSyntaxHookCmd())

	return cmd
}

// runHook is the top-level error boundary for hook entry points. The host
// assistant treats a non-zero exit as a hook failure and surfaces it to the
// user, so internal errors go to the diagnostic log and the hook exits 0.
func runHook(cmd *cobra.Command, hook string, fn func(ctx context.Context, layout paths.Layout) error) error {
	layout := paths.DefaultLayout()
	if !settings.IsEnabled(layout) {
		return nil
	}

	// ORCHESTRA_LOG_LEVEL wins; the settings value is the fallback.
	logging.SetLogLevelGetter(func() string {
		s, err := settings.Load(layout)
		if err != nil {
			return ""
		}
		return s.LogLevel
	})
	if err := logging.Init(layout); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	defer logging.Close()

	ctx := logging.WithHook(logging.WithComponent(cmd.Context(), "hooks"), hook)
	if err := fn(ctx, layout); err != nil {
		logging.Error(ctx, "hook failed", "error", err)
	}
	return nil
}

func newRouteHookCmd() *cobra.Command {
	var selfTest bool

	cmd := &cobra.Command{
		Use:   "route",
		Short: "UserPromptSubmit: suggest codex/gemini for matching prompts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if selfTest {
				// The one hook path allowed to exit non-zero: CI runs it to
				// guard the trigger tables.
				r, err := router.New()
				if err != nil {
					return err
				}
				return r.SelfTest()
			}
			return runHook(cmd, "route", func(ctx context.Context, _ paths.Layout) error {
				return routeHook(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().BoolVar(&selfTest, "self-test", false, "Validate trigger tables and routing canaries")

	return cmd
}

func newLogCLIHookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log-cli",
		Short: "PostToolUse: record codex/gemini invocations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHook(cmd, "log-cli", func(ctx context.Context, layout paths.Layout) error {
				return logCLIHook(ctx, layout, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}

func newSessionStartHookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session-start",
		Short: "SessionStart: surface unread handoff packages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHook(cmd, "session-start", func(ctx context.Context, layout paths.Layout) error {
				return sessionStartHook(ctx, layout, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}

func newStopHookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop: remind to copy finalized plans into PLAN.md",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHook(cmd, "stop", func(ctx context.Context, layout paths.Layout) error {
				return stopHook(ctx, layout, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}

func newSessionEndHookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session-end",
		Short: "SessionEnd: plan and handoff reminders",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHook(cmd, "session-end", func(ctx context.Context, layout paths.Layout) error {
				return sessionEndHook(ctx, layout, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}

func newBashSyntaxHookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bash-syntax",
		Short: "PreToolUse: block PowerShell syntax on Windows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The host on Windows requires Git Bash; elsewhere nothing to check.
			if runtime.GOOS != "windows" {
				// Drain stdin so the host never sees a broken pipe.
				_, _ = io.Copy(io.Discard, cmd.InOrStdin())
				return nil
			}
			return runHook(cmd, "bash-syntax", func(ctx context.Context, _ paths.Layout) error {
				return bashSyntaxHook(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}
