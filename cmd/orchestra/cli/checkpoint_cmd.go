package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orchestraio/cli/cmd/orchestra/cli/checkpoint"
	"github.com/orchestraio/cli/cmd/orchestra/cli/paths"
)

func newCheckpointCmd() *cobra.Command {
	var (
		since       string
		fullFlag    bool
		analyzeFlag bool
		handoffFlag bool
		goal        string
	)

	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Turn CLI logs and git history into session reports",
		Long: `Aggregate the CLI invocation log and git metadata into reports.

Default mode rewrites the Session History section of the agent context
files (CLAUDE.md, .codex/AGENTS.md, .gemini/GEMINI.md).

With --full, a standalone checkpoint document is written to
.orchestra/checkpoints/; add --analyze to also emit a skill-analysis
prompt next to it.

With --handoff, a handoff package and resume prompt are written to
.orchestra/handoffs/ for picking the work up in a later session.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if handoffFlag && (fullFlag || analyzeFlag) {
				return errors.New("--handoff cannot be combined with --full or --analyze")
			}
			if analyzeFlag && !fullFlag {
				return errors.New("--analyze requires --full")
			}

			gen := checkpoint.NewGenerator(paths.DefaultLayout())
			out := cmd.OutOrStdout()

			if handoffFlag {
				result, err := gen.Handoff(since, goal)
				if err != nil {
					return fmt.Errorf("creating handoff package: %w", err)
				}
				fmt.Fprintf(out, "Handoff created: %s\n", result.HandoffPath)
				fmt.Fprintf(out, "Resume prompt created: %s\n", result.PromptPath)
				fmt.Fprintln(out, "Use the resume prompt in the first message of your next session.")
				return nil
			}

			if fullFlag {
				checkpointPath, err := gen.FullCheckpoint(since)
				if err != nil {
					return fmt.Errorf("creating checkpoint: %w", err)
				}
				fmt.Fprintf(out, "Checkpoint created: %s\n", checkpointPath)

				if analyzeFlag {
					promptPath, err := checkpoint.WriteAnalysisPrompt(checkpointPath)
					if err != nil {
						return fmt.Errorf("writing analysis prompt: %w", err)
					}
					fmt.Fprintf(out, "Analysis prompt saved to: %s\n", promptPath)
					fmt.Fprintln(out, "Pass the prompt file to a subagent to extract reusable skill patterns.")
				}
				return nil
			}

			result, hadEntries, err := gen.UpdateSessionHistory(since)
			if err != nil {
				return fmt.Errorf("updating session history: %w", err)
			}
			if !hadEntries {
				fmt.Fprintln(out, "No log entries found.")
				fmt.Fprintf(out, "Log file: %s\n", gen.Layout.CLIToolsLog())
				return nil
			}
			for _, path := range result.Updated {
				fmt.Fprintf(out, "Updated: %s\n", path)
			}
			for _, path := range result.Skipped {
				fmt.Fprintf(out, "Skipped: %s (not found)\n", path)
			}
			if len(result.Updated) == 0 {
				fmt.Fprintln(out, "No context files found to update.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Only include data since this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&fullFlag, "full", false, "Create a full checkpoint file with git history and file changes")
	cmd.Flags().BoolVar(&analyzeFlag, "analyze", false, "Also write a skill-analysis prompt (requires --full)")
	cmd.Flags().BoolVar(&handoffFlag, "handoff", false, "Create a handoff summary and resume prompt for the next session")
	cmd.Flags().StringVar(&goal, "goal", "", "Goal statement for handoff mode")

	return cmd
}
