// Package cli implements the orchestra command tree.
package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/orchestraio/cli/cmd/orchestra/cli/paths"
	"github.com/orchestraio/cli/cmd/orchestra/cli/settings"
	"github.com/orchestraio/cli/cmd/orchestra/cli/telemetry"
)

const gettingStarted = `

Getting Started:
  Orchestra wires the codex and gemini CLIs into your coding assistant:
  prompts are routed to the best tool, every CLI call is logged, and
  'orchestra checkpoint' turns the log into session reports. Run
  'orchestra doctor' to verify your environment.

`

// Version information (can be set at build time)
var (
	Version = "dev"
	Commit  = "unknown"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orchestra",
		Short: "Orchestra CLI",
		Long:  "Multi-agent session tooling for AI coding assistants" + gettingStarted,
		// Let main.go handle error printing to avoid duplication
		SilenceErrors: true,
		// Hide completion command from help but keep it functional
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			// Load telemetry preference from settings (ignore errors - nil defaults to disabled)
			var telemetryEnabled *bool
			hooksEnabled := true
			if s, err := settings.Load(paths.DefaultLayout()); err == nil {
				telemetryEnabled = s.Telemetry
				hooksEnabled = s.Enabled
			}

			telemetryClient := telemetry.NewClient(Version, telemetryEnabled)
			defer telemetryClient.Close()
			telemetryClient.TrackCommand(cmd, hooksEnabled)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newHooksCmd())
	cmd.AddCommand(newCheckpointCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("Orchestra CLI %s (%s)\n", Version, Commit)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
