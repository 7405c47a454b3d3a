package orchestratorcli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forgepilot/swe-orchestrator/internal/session"
)

var specCmd = &cobra.Command{
	Use:   "spec [path]",
	Short: "Inspect an implementation_plan.json build plan",
	Long: `Reads a worktree's implementation_plan.json, validates it against the
same rules session.Validate enforces during a build, and prints phase/subtask
status. path defaults to the current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}

		raw, err := os.ReadFile(filepath.Join(dir, "implementation_plan.json"))
		if err != nil {
			return fmt.Errorf("read implementation_plan.json: %w", err)
		}
		plan, err := session.ParsePlan(raw)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "feature: %s\nworkflow: %s\n\n", plan.Feature, plan.WorkflowType)

		for _, errs := range session.Validate(plan) {
			fmt.Fprintf(cmd.ErrOrStderr(), "validation: %s\n", errs.String())
		}

		for _, phase := range plan.Phases {
			fmt.Fprintf(w, "phase %s: %s\n", phase.ID, phase.Name)
			for _, st := range phase.Subtasks {
				fmt.Fprintf(w, "  [%s] %s — %s\n", st.Status, st.ID, st.Description)
			}
		}

		if phase, subtask, ok := session.NextSubtask(plan); ok {
			fmt.Fprintf(w, "\nnext: %s / %s\n", phase.Name, subtask.Description)
		} else {
			fmt.Fprintln(w, "\nno pending subtasks")
		}
		return nil
	},
}
