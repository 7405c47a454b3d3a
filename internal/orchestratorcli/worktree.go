package orchestratorcli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgepilot/swe-orchestrator/internal/gitadapter"
	"github.com/forgepilot/swe-orchestrator/internal/worktree"
)

var (
	worktreeRepoDir string
	worktreeRoot    string
	worktreeForce   bool
)

var worktreeCmd = &cobra.Command{
	Use:   "worktree",
	Short: "Inspect and prune managed worktrees",
}

var worktreePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Run the orphan/age/count reclamation pass over --root",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := worktree.New(gitadapter.New(), worktreeRepoDir, worktreeRoot)
		stats, err := mgr.Cleanup(cmd.Context(), worktreeForce)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "orphaned: %d\nexpired:  %d\nexcess:   %d\ntotal:    %d\n",
			stats.Orphaned, stats.Expired, stats.Excess, stats.Total())
		return nil
	},
}

func init() {
	worktreeCmd.PersistentFlags().StringVar(&worktreeRepoDir, "repo-dir", ".", "git project directory worktrees are registered under")
	worktreeCmd.PersistentFlags().StringVar(&worktreeRoot, "root", ".auto-claude/worktrees", "directory containing managed worktrees")
	worktreePruneCmd.Flags().BoolVar(&worktreeForce, "force", false, "skip the age-based reclamation phase, going straight to orphan + excess-count cleanup")
	worktreeCmd.AddCommand(worktreePruneCmd)
}
