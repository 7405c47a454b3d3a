package orchestratorcli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forgepilot/swe-orchestrator/internal/evolution"
	"github.com/forgepilot/swe-orchestrator/internal/merge"
)

var (
	mergeProjectDir string
	mergeStorageDir string
	mergeWrite      bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge <file>",
	Short: "Replay the Merge Engine's decision for one tracked file",
	Long: `Loads the File-Evolution Store for --storage-dir (default
.auto-claude) and re-derives the merge outcome for file from its recorded
baseline and task snapshots, without invoking an agent for the AI-merge
escalation path — a strategy of ai_merge with no --write prints the
conflict notes instead of fabricating merged content.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		relPath := args[0]

		store, err := evolution.Open(mergeProjectDir, mergeStorageDir, nil)
		if err != nil {
			return err
		}
		if err := store.LoadEvolutions(); err != nil {
			return err
		}

		fe, ok := store.Get(relPath)
		if !ok {
			return fmt.Errorf("no evolution record for %s under %s", relPath, mergeStorageDir)
		}

		baseline, err := store.ReadBaselineContent(fe.BaselineSnapshotPath)
		if err != nil {
			return err
		}

		outcome, err := merge.Merge(context.Background(), baseline, fe.TaskSnapshots, relPath, nil)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "strategy: %s\n", outcome.Strategy)
		if outcome.NeedsReview {
			fmt.Fprintln(w, "needs review:")
			for _, note := range outcome.ConflictNotes {
				fmt.Fprintf(w, "  - %s\n", note)
			}
		}
		if len(outcome.Unapplied) > 0 {
			fmt.Fprintln(w, "unapplied changes (anchor not found in content):")
			for _, c := range outcome.Unapplied {
				fmt.Fprintf(w, "  - %s: %q\n", c.Type, c.ContentBefore)
			}
		}

		if mergeWrite {
			if err := os.WriteFile(relPath, []byte(outcome.Content), 0o644); err != nil {
				return fmt.Errorf("write merged content: %w", err)
			}
			fmt.Fprintf(w, "wrote merged content to %s\n", relPath)
			return nil
		}

		fmt.Fprintln(w, "---")
		fmt.Fprint(w, outcome.Content)
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringVar(&mergeProjectDir, "project-dir", ".", "git project directory the evolution store is rooted under")
	mergeCmd.Flags().StringVar(&mergeStorageDir, "storage-dir", ".auto-claude", "evolution store state directory")
	mergeCmd.Flags().BoolVar(&mergeWrite, "write", false, "write the merged content to the file instead of printing it")
}
