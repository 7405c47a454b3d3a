// Package orchestratorcli is the cobra-based operator CLI layered over the
// same internal packages as orchestratord: inspecting a build's
// implementation plan, replaying a merge for one tracked file, and pruning
// stale worktrees, without going through the webhook/daemon path.
package orchestratorcli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

// SetVersion records the build-time version string for the version command.
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "orchestratorctl",
	Short: "orchestratorctl — operator CLI for the swe-orchestrator daemon",
	Long: `orchestratorctl inspects and manipulates the same on-disk state
(.auto-claude-status, the evolution store, managed worktrees) that
orchestratord's build loop and review pipeline maintain, for operators
debugging a stuck build or a merge conflict without re-running an agent.`,
}

// Execute runs the CLI's root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(specCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(worktreeCmd)
}
