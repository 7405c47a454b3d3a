// Package session implements the Session Orchestrator: the per-spec
// PLANNING/CODING/POST-SESSION/STUCK/COMPLETE state machine, generalizing
// the teacher's internal/executor task loop and internal/dispatcher retry
// bookkeeping from a single webhook-triggered task into a restartable,
// file-and-git-persisted build loop.
package session

import (
	"encoding/json"
	"fmt"
)

// WorkflowType is the closed set of build shapes a plan may declare.
type WorkflowType string

const (
	WorkflowFeature       WorkflowType = "feature"
	WorkflowRefactor      WorkflowType = "refactor"
	WorkflowInvestigation WorkflowType = "investigation"
	WorkflowMigration     WorkflowType = "migration"
	WorkflowSimple        WorkflowType = "simple"
)

func validWorkflowTypes() map[WorkflowType]bool {
	return map[WorkflowType]bool{
		WorkflowFeature:       true,
		WorkflowRefactor:      true,
		WorkflowInvestigation: true,
		WorkflowMigration:     true,
		WorkflowSimple:        true,
	}
}

// SubtaskStatus is the closed set of subtask lifecycle states.
type SubtaskStatus string

const (
	StatusPending    SubtaskStatus = "pending"
	StatusInProgress SubtaskStatus = "in_progress"
	StatusCompleted  SubtaskStatus = "completed"
	StatusStuck      SubtaskStatus = "stuck"
	StatusSkipped    SubtaskStatus = "skipped"
)

func validStatuses() map[SubtaskStatus]bool {
	return map[SubtaskStatus]bool{
		StatusPending:    true,
		StatusInProgress: true,
		StatusCompleted:  true,
		StatusStuck:      true,
		StatusSkipped:    true,
	}
}

// Subtask is one unit of CODING work within a Phase.
type Subtask struct {
	ID          string        `json:"id"`
	Description string        `json:"description"`
	Status      SubtaskStatus `json:"status"`
}

// Phase is an ordered group of subtasks.
type Phase struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Subtasks []*Subtask `json:"subtasks"`
}

// ImplementationPlan is the persisted build plan for a spec.
type ImplementationPlan struct {
	Feature      string       `json:"feature"`
	WorkflowType WorkflowType `json:"workflow_type"`
	Phases       []*Phase     `json:"phases"`
}

// ParsePlan decodes raw JSON into an ImplementationPlan without validating
// it — callers must run Validate before trusting the result.
func ParsePlan(raw []byte) (*ImplementationPlan, error) {
	var plan ImplementationPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("session: parse plan: %w", err)
	}
	return &plan, nil
}

// Encode serializes the plan back to indented JSON.
func (p *ImplementationPlan) Encode() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// ValidationError describes one schema violation found by Validate.
type ValidationError struct {
	Path   string
	Reason string
}

func (e ValidationError) String() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// Validate enforces the plan schema from spec.md §3/§4.H step 10: a
// top-level feature, a valid workflow_type, phases each with an id/name and
// subtasks, and subtasks each with an id, description, and valid status.
// It reports every violation rather than stopping at the first.
func Validate(plan *ImplementationPlan) []ValidationError {
	var errs []ValidationError

	if plan == nil {
		return []ValidationError{{Path: "$", Reason: "plan is nil"}}
	}
	if plan.Feature == "" {
		errs = append(errs, ValidationError{Path: "$.feature", Reason: "missing"})
	}
	if !validWorkflowTypes()[plan.WorkflowType] {
		errs = append(errs, ValidationError{Path: "$.workflow_type", Reason: fmt.Sprintf("invalid value %q", plan.WorkflowType)})
	}
	if len(plan.Phases) == 0 {
		errs = append(errs, ValidationError{Path: "$.phases", Reason: "must contain at least one phase"})
	}

	seenSubtaskIDs := make(map[string]bool)
	for pi, phase := range plan.Phases {
		path := fmt.Sprintf("$.phases[%d]", pi)
		if phase.ID == "" {
			errs = append(errs, ValidationError{Path: path + ".id", Reason: "missing"})
		}
		if phase.Name == "" {
			errs = append(errs, ValidationError{Path: path + ".name", Reason: "missing"})
		}
		for si, sub := range phase.Subtasks {
			subPath := fmt.Sprintf("%s.subtasks[%d]", path, si)
			if sub.ID == "" {
				errs = append(errs, ValidationError{Path: subPath + ".id", Reason: "missing"})
			} else if seenSubtaskIDs[sub.ID] {
				errs = append(errs, ValidationError{Path: subPath + ".id", Reason: fmt.Sprintf("duplicate id %q", sub.ID)})
			}
			seenSubtaskIDs[sub.ID] = true

			if sub.Description == "" {
				errs = append(errs, ValidationError{Path: subPath + ".description", Reason: "missing"})
			}
			if !validStatuses()[sub.Status] {
				errs = append(errs, ValidationError{Path: subPath + ".status", Reason: fmt.Sprintf("invalid value %q", sub.Status)})
			}
		}
	}

	return errs
}

// AutoFix applies the minimal, conservative repair decided for spec.md
// §9's open question: renumber duplicate subtask ids by suffixing -2, -3,
// …, and clamp any subtask carrying an invalid (or missing) status back to
// pending. It never discards a phase or subtask. Returns the human-readable
// notes of every fix applied, in order.
func AutoFix(plan *ImplementationPlan) []string {
	if plan == nil {
		return nil
	}

	var notes []string
	seenIDs := make(map[string]int)

	for pi, phase := range plan.Phases {
		if phase.ID == "" {
			phase.ID = fmt.Sprintf("phase-%d", pi+1)
			notes = append(notes, fmt.Sprintf("phases[%d]: filled missing id with %q", pi, phase.ID))
		}
		if phase.Name == "" {
			phase.Name = phase.ID
			notes = append(notes, fmt.Sprintf("phases[%d]: filled missing name with %q", pi, phase.Name))
		}

		for si, sub := range phase.Subtasks {
			if sub.ID == "" {
				sub.ID = fmt.Sprintf("%s-subtask-%d", phase.ID, si+1)
				notes = append(notes, fmt.Sprintf("phases[%d].subtasks[%d]: filled missing id with %q", pi, si, sub.ID))
			}

			if n := seenIDs[sub.ID]; n > 0 {
				original := sub.ID
				sub.ID = fmt.Sprintf("%s-%d", original, n+1)
				notes = append(notes, fmt.Sprintf("phases[%d].subtasks[%d]: renumbered duplicate id %q to %q", pi, si, original, sub.ID))
			}
			seenIDs[sub.ID]++

			if sub.Description == "" {
				sub.Description = sub.ID
				notes = append(notes, fmt.Sprintf("phases[%d].subtasks[%d]: filled missing description", pi, si))
			}

			if !validStatuses()[sub.Status] {
				original := sub.Status
				sub.Status = StatusPending
				notes = append(notes, fmt.Sprintf("phases[%d].subtasks[%d]: clamped invalid status %q to pending", pi, si, original))
			}
		}
	}

	if plan.WorkflowType == "" {
		plan.WorkflowType = WorkflowFeature
		notes = append(notes, "workflow_type: filled missing value with \"feature\"")
	}

	return notes
}

// NextSubtask returns the first subtask with status pending, scanning
// phases then subtasks in order, per spec.md §4.H step 4.
func NextSubtask(plan *ImplementationPlan) (*Phase, *Subtask, bool) {
	if plan == nil {
		return nil, nil, false
	}
	for _, phase := range plan.Phases {
		for _, sub := range phase.Subtasks {
			if sub.Status == StatusPending {
				return phase, sub, true
			}
		}
	}
	return nil, nil, false
}

// HasPendingSubtasks reports whether any subtask still has status pending.
func HasPendingSubtasks(plan *ImplementationPlan) bool {
	_, _, ok := NextSubtask(plan)
	return ok
}
