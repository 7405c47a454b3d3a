package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/forgepilot/swe-orchestrator/internal/evolution"
	"github.com/forgepilot/swe-orchestrator/internal/session"
	"github.com/forgepilot/swe-orchestrator/internal/statusfile"
	"github.com/forgepilot/swe-orchestrator/internal/worktree"
)

// BuildResult summarizes one completed (or stopped) build loop for the
// caller that queued it — currently the webhook/dispatcher glue in
// Coordinator.Execute.
type BuildResult struct {
	Outcome     session.Outcome
	WorktreeDir string
	SpecDir     string
}

// runBuild drives a Session Orchestrator to completion (or STUCK/PAUSED)
// for one feature request, per spec.md §4.H. It provisions an isolated
// worktree via internal/worktree, tracks file baselines across subtasks
// via internal/evolution, and mirrors progress into .auto-claude-status
// via internal/statusfile as each iteration lands.
func (c *Coordinator) runBuild(ctx context.Context, taskID, feature, repo, baseSHA string, issueNumber int) (BuildResult, error) {
	wt := worktree.New(c.git, c.cfg.ProjectDir, c.cfg.WorktreeRoot)
	if c.appAuth != nil {
		if botID, convErr := strconv.Atoi(c.appAuth.AppID); convErr == nil {
			wt.BotID = botID
		}
	}
	wtDir, err := wt.Create(ctx, "build", taskID, baseSHA, time.Now().UnixMilli())
	if err != nil {
		return BuildResult{}, fmt.Errorf("orchestrator: provision build worktree: %w", err)
	}

	specDir := filepath.Join(wtDir, ".auto-claude", taskID)
	if err := os.MkdirAll(specDir, 0o755); err != nil {
		return BuildResult{}, fmt.Errorf("orchestrator: create spec dir: %w", err)
	}

	evoStore, err := evolution.Open(wtDir, filepath.Join(specDir, "memory"), c.git)
	if err != nil {
		return BuildResult{}, fmt.Errorf("orchestrator: open evolution store: %w", err)
	}
	if err := evoStore.LoadEvolutions(); err != nil {
		return BuildResult{}, fmt.Errorf("orchestrator: load evolutions: %w", err)
	}

	statusWriter := statusfile.NewWriter(filepath.Join(wtDir, ".auto-claude-status"), statusfile.DefaultDebounce)
	defer statusWriter.Close()

	runner := c.newBilledRunner(wtDir, repo, issueNumber)
	promptBuilder := c.buildPromptBuilder(feature, repo)

	orch, err := session.New(session.Config{
		SpecDir:               specDir,
		WorktreeDir:           wtDir,
		MaxPlanningRetries:    3,
		StuckThreshold:        session.DefaultStuckThreshold,
		IterationDelay:        c.cfg.IterationDelay,
		DefaultModel:          c.cfg.DefaultModel,
		DefaultThinkingBudget: c.cfg.DefaultThinkingBudget,
	}, c.git, runner, promptBuilder)
	if err != nil {
		return BuildResult{}, fmt.Errorf("orchestrator: construct session orchestrator: %w", err)
	}

	var outcome session.Outcome
	for {
		headBefore, _ := c.git.HeadSHA(ctx, wtDir)
		plan, hasPlan := loadPlanQuietly(specDir)
		c.captureSubtaskBaselines(ctx, evoStore, taskID, plan, wtDir)

		outcome, err = orch.RunIteration(ctx)
		if err != nil {
			statusWriter.Update(buildStatus(taskID, statusfile.StateError, plan, hasPlan))
			return BuildResult{Outcome: session.OutcomeError, WorktreeDir: wtDir, SpecDir: specDir}, err
		}

		plan, hasPlan = loadPlanQuietly(specDir)
		c.recordSubtaskProgress(ctx, evoStore, taskID, plan, wtDir, headBefore)
		statusWriter.Update(buildStatus(taskID, outcomeToState(outcome, hasPlan), plan, hasPlan))

		if outcome != session.OutcomeContinue {
			break
		}
		select {
		case <-ctx.Done():
			return BuildResult{Outcome: session.OutcomePaused, WorktreeDir: wtDir, SpecDir: specDir}, ctx.Err()
		case <-time.After(c.cfg.IterationDelay):
		}
	}

	_ = evoStore.SaveEvolutions()

	if outcome == session.OutcomeComplete {
		if err := c.finalizeBuild(ctx, wtDir, repo, issueNumber, feature); err != nil {
			return BuildResult{Outcome: outcome, WorktreeDir: wtDir, SpecDir: specDir}, fmt.Errorf("orchestrator: finalize build: %w", err)
		}
	}

	return BuildResult{Outcome: outcome, WorktreeDir: wtDir, SpecDir: specDir}, nil
}

func loadPlanQuietly(specDir string) (*session.ImplementationPlan, bool) {
	data, err := os.ReadFile(filepath.Join(specDir, "implementation_plan.json"))
	if err != nil {
		return nil, false
	}
	plan, err := session.ParsePlan(data)
	if err != nil {
		return nil, false
	}
	return plan, true
}

// captureSubtaskBaselines snapshots every changed file's current blob as
// the baseline for the subtask about to run, per spec.md §4.C step 1: a
// later merge needs to know what each task started from, not just what it
// ended with.
func (c *Coordinator) captureSubtaskBaselines(ctx context.Context, store *evolution.Store, taskID string, plan *session.ImplementationPlan, wtDir string) {
	if plan == nil {
		return
	}
	_, subtask, ok := session.NextSubtask(plan)
	if !ok {
		return
	}
	headSHA, _ := c.git.HeadSHA(ctx, wtDir)
	_ = store.CaptureBaselines(taskID+":"+subtask.ID, nil, subtask.Description, headSHA)
}

// recordSubtaskProgress records the semantic diff for files the subtask
// touched, by comparing headBefore..HEAD, per spec.md §4.C step 2.
func (c *Coordinator) recordSubtaskProgress(ctx context.Context, store *evolution.Store, taskID string, plan *session.ImplementationPlan, wtDir, headBefore string) {
	if plan == nil || headBefore == "" {
		return
	}
	headAfter, _ := c.git.HeadSHA(ctx, wtDir)
	if headAfter == "" || headAfter == headBefore {
		return
	}
	if err := store.RefreshFromGit(ctx, taskID, wtDir, headBefore); err != nil {
		return
	}
}

func outcomeToState(outcome session.Outcome, hasPlan bool) statusfile.State {
	switch outcome {
	case session.OutcomeComplete:
		return statusfile.StateComplete
	case session.OutcomeStuck:
		return statusfile.StateError
	case session.OutcomePaused:
		return statusfile.StatePaused
	case session.OutcomeError:
		return statusfile.StateError
	default:
		if hasPlan {
			return statusfile.StateBuilding
		}
		return statusfile.StatePlanning
	}
}

func buildStatus(taskID string, state statusfile.State, plan *session.ImplementationPlan, hasPlan bool) statusfile.Status {
	s := statusfile.Status{
		Active:     state != statusfile.StateComplete && state != statusfile.StateError,
		Spec:       taskID,
		State:      state,
		LastUpdate: time.Now(),
	}
	if !hasPlan || plan == nil {
		return s
	}
	for _, phase := range plan.Phases {
		for _, st := range phase.Subtasks {
			s.Subtasks.Total++
			switch st.Status {
			case session.StatusCompleted:
				s.Subtasks.Completed++
			case session.StatusInProgress:
				s.Subtasks.InProgress++
			case session.StatusStuck:
				s.Subtasks.Failed++
			}
		}
	}
	return s
}
