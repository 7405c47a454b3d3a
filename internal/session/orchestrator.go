package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunState is the Session Orchestrator's state machine phase for one
// iteration, per spec.md §4.H.
type RunState string

const (
	StatePlanning    RunState = "planning"
	StateCoding      RunState = "coding"
	StatePostSession RunState = "post_session"
	StateStuck       RunState = "stuck"
	StateComplete    RunState = "complete"
)

// Outcome is what the caller's loop should do after one RunIteration call.
type Outcome string

const (
	OutcomeContinue Outcome = "continue" // more work remains, call RunIteration again
	OutcomeComplete Outcome = "complete" // no pending subtasks, none stuck
	OutcomeStuck    Outcome = "stuck"    // no pending subtasks remain, but at least one is stuck
	OutcomePaused   Outcome = "paused"   // PAUSE sentinel present
	OutcomeError    Outcome = "error"    // fatal-internal; caller should stop
)

// AgentRequest is what the orchestrator asks an AgentRunner to execute.
// Decoupled from internal/agentclient's concrete types per spec.md §9's
// "resolve structurally ... by interface" note, so this package never
// imports the Agent Client directly.
type AgentRequest struct {
	Phase          RunState
	Prompt         string
	Model          string
	ThinkingBudget int
	OutputSchema   []byte
}

// AgentResponse is the distilled result of one agent session: enough for
// the orchestrator to decide continuation without consuming the raw
// message stream itself.
type AgentResponse struct {
	Text             string
	StructuredOutput json.RawMessage
	Errored          bool
	ErrorDetail      string
}

// AgentRunner opens and fully drives one bounded agent session.
type AgentRunner interface {
	RunSession(ctx context.Context, req AgentRequest) (AgentResponse, error)
}

// GitState is the subset of the Git Adapter the orchestrator needs to
// detect whether a CODING session produced a new commit.
type GitState interface {
	CommitCount(ctx context.Context, cwd, ref string) (int, error)
}

// PromptBuilder renders the phase-specific template plus retrieved
// context. validationErrs is only non-empty on a PLANNING retry.
type PromptBuilder func(phase RunState, plan *ImplementationPlan, subtask *Subtask, validationErrs []ValidationError) string

// TaskMetadata holds optional per-phase model/thinking-budget overrides
// read from task_metadata.json.
type TaskMetadata struct {
	PhaseModels          map[string]string `json:"phase_models"`
	PhaseThinkingBudgets map[string]int    `json:"phase_thinking_budgets"`
}

// Config parameterizes one Orchestrator. Zero values for the retry/
// threshold fields fall back to spec.md defaults.
type Config struct {
	SpecDir       string // <spec_dir> from spec.md §6
	SourceSpecDir string // optional: canonical spec dir to sync back to when SpecDir is a worktree copy
	WorktreeDir   string // cwd for git operations

	MaxIterations      int // 0 = unlimited
	MaxPlanningRetries int // default 3
	StuckThreshold     int // default DefaultStuckThreshold (3)
	IterationDelay     time.Duration

	DefaultModel          string
	DefaultThinkingBudget int
}

func (c Config) normalized() Config {
	if c.MaxPlanningRetries <= 0 {
		c.MaxPlanningRetries = 3
	}
	if c.StuckThreshold <= 0 {
		c.StuckThreshold = DefaultStuckThreshold
	}
	if c.IterationDelay <= 0 {
		c.IterationDelay = 2 * time.Second
	}
	return c
}

// Orchestrator drives one spec's build loop. One Orchestrator instance
// owns exactly one spec; concurrent specs use independent instances with
// disjoint worktrees.
type Orchestrator struct {
	cfg    Config
	git    GitState
	agent  AgentRunner
	prompt PromptBuilder

	history          *AttemptHistory
	iterations       int
	planningFailures int
}

// New constructs an Orchestrator, loading (or creating) the spec's
// attempt history.
func New(cfg Config, git GitState, agent AgentRunner, prompt PromptBuilder) (*Orchestrator, error) {
	cfg = cfg.normalized()
	history, err := LoadAttemptHistory(filepath.Join(cfg.SpecDir, "memory", "attempt_history.json"))
	if err != nil {
		return nil, err
	}
	return &Orchestrator{cfg: cfg, git: git, agent: agent, prompt: prompt, history: history}, nil
}

func (o *Orchestrator) planPath() string {
	return filepath.Join(o.cfg.SpecDir, "implementation_plan.json")
}

func (o *Orchestrator) pausePath() string {
	return filepath.Join(o.cfg.SpecDir, "PAUSE")
}

func (o *Orchestrator) metadataPath() string {
	return filepath.Join(o.cfg.SpecDir, "task_metadata.json")
}

func (o *Orchestrator) loadMetadata() TaskMetadata {
	data, err := os.ReadFile(o.metadataPath())
	if err != nil {
		return TaskMetadata{}
	}
	var meta TaskMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return TaskMetadata{}
	}
	return meta
}

func (o *Orchestrator) modelFor(meta TaskMetadata, phase RunState) (string, int) {
	model := o.cfg.DefaultModel
	budget := o.cfg.DefaultThinkingBudget
	if m, ok := meta.PhaseModels[string(phase)]; ok && m != "" {
		model = m
	}
	if b, ok := meta.PhaseThinkingBudgets[string(phase)]; ok && b > 0 {
		budget = b
	}
	return model, budget
}

func (o *Orchestrator) loadPlan() (*ImplementationPlan, error, bool) {
	data, err := os.ReadFile(o.planPath())
	if os.IsNotExist(err) {
		return nil, nil, false
	}
	if err != nil {
		return nil, fmt.Errorf("session: read plan: %w", err), false
	}
	plan, err := ParsePlan(data)
	if err != nil {
		return nil, nil, false // malformed JSON is treated as "no valid plan yet", re-enter PLANNING
	}
	return plan, nil, true
}

func (o *Orchestrator) savePlan(plan *ImplementationPlan) error {
	data, err := plan.Encode()
	if err != nil {
		return fmt.Errorf("session: encode plan: %w", err)
	}
	if err := os.MkdirAll(o.cfg.SpecDir, 0o755); err != nil {
		return fmt.Errorf("session: create spec dir: %w", err)
	}
	tmp, err := os.CreateTemp(o.cfg.SpecDir, ".implementation_plan-*.tmp")
	if err != nil {
		return fmt.Errorf("session: create plan temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("session: write plan: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, o.planPath()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("session: rename plan: %w", err)
	}
	return nil
}

// syncToSource mirrors the spec dir back to SourceSpecDir when the build
// is running in a worktree copy, per spec.md §4.H step 9.
func (o *Orchestrator) syncToSource() error {
	if o.cfg.SourceSpecDir == "" || o.cfg.SourceSpecDir == o.cfg.SpecDir {
		return nil
	}
	data, err := os.ReadFile(o.planPath())
	if err != nil {
		return nil // nothing to sync yet
	}
	if err := os.MkdirAll(o.cfg.SourceSpecDir, 0o755); err != nil {
		return fmt.Errorf("session: create source spec dir: %w", err)
	}
	return os.WriteFile(filepath.Join(o.cfg.SourceSpecDir, "implementation_plan.json"), data, 0o644)
}

// RunIteration executes exactly one session: one PLANNING or one CODING
// pass, its post-session bookkeeping, and returns the resulting Outcome.
func (o *Orchestrator) RunIteration(ctx context.Context) (Outcome, error) {
	if _, err := os.Stat(o.pausePath()); err == nil {
		return OutcomePaused, nil
	}

	if o.cfg.MaxIterations > 0 && o.iterations >= o.cfg.MaxIterations {
		return OutcomeComplete, nil
	}
	o.iterations++

	plan, err, valid := o.loadPlan()
	if err != nil {
		return OutcomeError, err
	}

	if !valid {
		return o.runPlanning(ctx, plan)
	}

	if errs := Validate(plan); len(errs) > 0 {
		return o.runPlanning(ctx, plan)
	}

	return o.runCoding(ctx, plan)
}

func (o *Orchestrator) runPlanning(ctx context.Context, previous *ImplementationPlan) (Outcome, error) {
	if o.planningFailures >= o.cfg.MaxPlanningRetries {
		return OutcomeError, fmt.Errorf("session: plan validation failed after %d attempts", o.cfg.MaxPlanningRetries)
	}

	var validationErrs []ValidationError
	if previous != nil {
		validationErrs = Validate(previous)
	}

	meta := o.loadMetadata()
	model, budget := o.modelFor(meta, StatePlanning)
	prompt := o.prompt(StatePlanning, previous, nil, validationErrs)

	resp, err := o.agent.RunSession(ctx, AgentRequest{
		Phase:          StatePlanning,
		Prompt:         prompt,
		Model:          model,
		ThinkingBudget: budget,
	})
	if err != nil || resp.Errored {
		o.planningFailures++
		return OutcomeContinue, nil
	}

	if len(resp.StructuredOutput) == 0 {
		o.planningFailures++
		return OutcomeContinue, nil
	}

	plan, parseErr := ParsePlan(resp.StructuredOutput)
	if parseErr != nil {
		o.planningFailures++
		return OutcomeContinue, nil
	}

	notes := AutoFix(plan)
	_ = notes // surfaced to build-progress.txt by the caller if desired

	if errs := Validate(plan); len(errs) > 0 {
		o.planningFailures++
		return OutcomeContinue, nil
	}

	if err := o.savePlan(plan); err != nil {
		return OutcomeError, err
	}
	o.planningFailures = 0

	if !HasPendingSubtasks(plan) {
		return OutcomeComplete, nil
	}
	return OutcomeContinue, nil
}

func (o *Orchestrator) runCoding(ctx context.Context, plan *ImplementationPlan) (Outcome, error) {
	phase, subtask, ok := NextSubtask(plan)
	if !ok {
		return o.finalOutcome(), nil
	}

	commitBefore, _ := o.git.CommitCount(ctx, o.cfg.WorktreeDir, "HEAD")

	meta := o.loadMetadata()
	model, budget := o.modelFor(meta, StateCoding)
	prompt := o.prompt(StateCoding, plan, subtask, nil)

	subtask.Status = StatusInProgress
	if err := o.savePlan(plan); err != nil {
		return OutcomeError, err
	}

	resp, runErr := o.agent.RunSession(ctx, AgentRequest{
		Phase:          StateCoding,
		Prompt:         prompt,
		Model:          model,
		ThinkingBudget: budget,
	})

	commitAfter, _ := o.git.CommitCount(ctx, o.cfg.WorktreeDir, "HEAD")
	producedCommit := commitAfter > commitBefore

	if runErr != nil || resp.Errored {
		subtask.Status = StatusPending // session errored: retry with a fresh session next iteration
		if err := o.savePlan(plan); err != nil {
			return OutcomeError, err
		}
		return OutcomeContinue, nil
	}

	return o.postSession(plan, phase, subtask, producedCommit)
}

func (o *Orchestrator) postSession(plan *ImplementationPlan, _ *Phase, subtask *Subtask, producedCommit bool) (Outcome, error) {
	if producedCommit {
		subtask.Status = StatusCompleted
		o.history.RecordAttempt(subtask.ID, true, "")
		if err := o.history.Save(); err != nil {
			return OutcomeError, err
		}
		if err := o.savePlan(plan); err != nil {
			return OutcomeError, err
		}
		if err := o.syncToSource(); err != nil {
			return OutcomeError, err
		}
		if !HasPendingSubtasks(plan) {
			return o.finalOutcome(), nil
		}
		return OutcomeContinue, nil
	}

	attempts := o.history.RecordAttempt(subtask.ID, false, "no new commit produced")
	if err := o.history.Save(); err != nil {
		return OutcomeError, err
	}

	if attempts >= o.cfg.StuckThreshold {
		subtask.Status = StatusStuck
		o.history.MarkStuck(subtask.ID, fmt.Sprintf("%d attempts with no commit", attempts))
		if err := o.history.Save(); err != nil {
			return OutcomeError, err
		}
	} else {
		subtask.Status = StatusPending
	}

	if err := o.savePlan(plan); err != nil {
		return OutcomeError, err
	}

	if !HasPendingSubtasks(plan) {
		return o.finalOutcome(), nil
	}
	return OutcomeContinue, nil
}

// finalOutcome determines COMPLETE vs STUCK once no pending subtasks
// remain, per spec.md §7's terminal-UI-state rule.
func (o *Orchestrator) finalOutcome() Outcome {
	if len(o.history.StuckSubtasks) > 0 {
		return OutcomeStuck
	}
	return OutcomeComplete
}

// Run repeatedly calls RunIteration, sleeping cfg.IterationDelay between
// OutcomeContinue iterations, until a terminal outcome or ctx is done.
func (o *Orchestrator) Run(ctx context.Context) (Outcome, error) {
	for {
		select {
		case <-ctx.Done():
			return OutcomePaused, ctx.Err()
		default:
		}

		outcome, err := o.RunIteration(ctx)
		if err != nil {
			return OutcomeError, err
		}
		if outcome != OutcomeContinue {
			return outcome, nil
		}

		select {
		case <-ctx.Done():
			return OutcomePaused, ctx.Err()
		case <-time.After(o.cfg.IterationDelay):
		}
	}
}
