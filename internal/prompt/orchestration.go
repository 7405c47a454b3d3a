package prompt

import (
	"fmt"
	"strings"
)

// BuildPlanningPrompt assembles the PLANNING-phase system prompt for the
// Session Orchestrator (spec.md §4.H), reusing the same context-section
// machinery as BuildDefaultSystemPrompt so a build session sees the same
// repository/trigger context an issue-driven session would. previousPlanJSON
// is empty on the first planning attempt; validationErrors is non-empty on a
// retry, per spec.md §4.H step 10's "re-prompt with specific validation
// errors" requirement.
func (m Manager) BuildPlanningPrompt(feature string, files []string, context map[string]string, previousPlanJSON string, validationErrors []string) string {
	data := buildPromptTemplateData(files, context)

	var b strings.Builder
	b.WriteString("You are an AI assistant responsible for decomposing a feature request into an implementation plan. Think carefully about the repository context below before proposing a plan.\n\n")
	appendContextSections(&b, data)
	appendEventMetadata(&b, data)

	b.WriteString(fmt.Sprintf("\nFeature to plan: %s\n\n", strings.TrimSpace(feature)))

	if previousPlanJSON != "" {
		b.WriteString("A previous plan was rejected. Revise it rather than starting over.\n\n")
		b.WriteString("Previous plan:\n")
		b.WriteString(previousPlanJSON)
		b.WriteString("\n\n")
	}
	if len(validationErrors) > 0 {
		b.WriteString("Validation errors to fix:\n")
		for _, e := range validationErrors {
			b.WriteString("- " + e + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Produce an implementation plan with this exact shape: a top-level feature name, a workflow_type (one of feature, refactor, investigation, migration, simple), and an ordered list of phases, each with an id, a name, and an ordered list of subtasks. Each subtask needs a unique id, a concrete description, and a status of \"pending\". Emit the plan as your structured output; do not also restate it in prose.\n")
	return b.String()
}

// BuildCodingPrompt assembles the CODING-phase system prompt for one
// subtask. It mirrors BuildCommitPrompt's "one focused unit of work, then
// report clearly" structure but targets a single subtask rather than an
// entire issue.
func (m Manager) BuildCodingPrompt(feature string, phaseName string, subtaskDescription string, files []string, context map[string]string) string {
	data := buildPromptTemplateData(files, context)

	var b strings.Builder
	b.WriteString("You are an AI assistant implementing one subtask of a larger build plan. Make the smallest correct change that satisfies the subtask, then commit it.\n\n")
	appendContextSections(&b, data)
	appendEventMetadata(&b, data)

	b.WriteString(fmt.Sprintf("\nFeature: %s\nPhase: %s\nSubtask: %s\n\n", strings.TrimSpace(feature), strings.TrimSpace(phaseName), strings.TrimSpace(subtaskDescription)))
	b.WriteString("Implement only this subtask. When the change is complete and verified, create a git commit describing it. Do not attempt later subtasks in this session.\n")
	return b.String()
}
