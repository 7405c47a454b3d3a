// Package prompt renders the repository/trigger context block shared by the
// Session Orchestrator's planning and coding prompts (see orchestration.go).
// It is deliberately narrow: authoring the full set of agent-facing prompt
// templates (system prompt variants, commit message scaffolding, workflow
// selection) is out of scope here — internal/orchestrator's buildPromptBuilder
// is the only caller, and it needs nothing beyond a formatted context block
// plus the issue/PR metadata wrapper tags around it.
package prompt

import (
	"fmt"
	"html"
	"sort"
	"strings"
)

// Manager renders the context/metadata sections shared by every build-session
// prompt. It holds no state; NewManager exists so callers can depend on an
// interface-shaped value rather than bare functions, matching how
// internal/orchestrator wires its other collaborators.
type Manager struct{}

// NewManager constructs a prompt manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// promptTemplateData is the sanitized, defaulted view of a build session's
// context map that appendContextSections/appendEventMetadata render from.
type promptTemplateData struct {
	FormattedContext   string
	IssueBody          string
	Comments           string
	ReviewComments     string
	ChangedFiles       string
	ImagesInfo         string
	Repository         string
	EventType          string
	TriggerContext     string
	PRNumber           string
	IssueNumber        string
	ClaudeCommentID    string
	TriggerUsername    string
	TriggerDisplayName string
	TriggerPhrase      string
	IsPR               bool
}

func buildPromptTemplateData(files []string, context map[string]string) promptTemplateData {
	data := promptTemplateData{
		FormattedContext:   formatRepositoryContext(files, context),
		IssueBody:          strings.TrimSpace(context["issue_body"]),
		Comments:           strings.TrimSpace(context["comments"]),
		ReviewComments:     strings.TrimSpace(context["review_comments"]),
		ChangedFiles:       strings.TrimSpace(context["changed_files"]),
		ImagesInfo:         strings.TrimSpace(context["images_info"]),
		Repository:         valueOrDefault(context, "repository", "local repository"),
		EventType:          valueOrDefault(context, "event_type", "build_session"),
		TriggerContext:     valueOrDefault(context, "trigger_context", "Automated build session"),
		PRNumber:           strings.TrimSpace(context["pr_number"]),
		IssueNumber:        strings.TrimSpace(context["issue_number"]),
		ClaudeCommentID:    valueOrDefault(context, "claude_comment_id", "N/A"),
		TriggerUsername:    valueOrDefault(context, "trigger_username", "Unknown"),
		TriggerDisplayName: valueOrDefault(context, "trigger_display_name", valueOrDefault(context, "trigger_username", "Unknown")),
		TriggerPhrase:      valueOrDefault(context, "trigger_phrase", "@assistant"),
		IsPR:               strings.EqualFold(strings.TrimSpace(context["is_pr"]), "true"),
	}

	if data.IssueBody == "" {
		data.IssueBody = "No description provided"
	} else {
		data.IssueBody = sanitize(data.IssueBody)
	}
	if data.TriggerContext != "" {
		data.TriggerContext = sanitize(data.TriggerContext)
	}
	if data.TriggerPhrase != "" {
		data.TriggerPhrase = sanitize(data.TriggerPhrase)
	}
	if data.Comments == "" {
		data.Comments = "No comments"
	} else {
		data.Comments = sanitize(data.Comments)
	}
	if data.ReviewComments == "" {
		data.ReviewComments = "No review comments"
	} else {
		data.ReviewComments = sanitize(data.ReviewComments)
	}
	if data.ChangedFiles == "" {
		data.ChangedFiles = "No files changed"
	} else {
		data.ChangedFiles = sanitize(data.ChangedFiles)
	}

	return data
}

func appendContextSections(builder *strings.Builder, data promptTemplateData) {
	builder.WriteString("<formatted_context>\n")
	builder.WriteString(data.FormattedContext)
	builder.WriteString("\n</formatted_context>\n\n")

	builder.WriteString("<feature_or_issue_body>\n")
	builder.WriteString(data.IssueBody)
	builder.WriteString("\n</feature_or_issue_body>\n\n")

	builder.WriteString("<comments>\n")
	builder.WriteString(data.Comments)
	builder.WriteString("\n</comments>\n\n")

	if data.IsPR {
		builder.WriteString("<review_comments>\n")
		builder.WriteString(data.ReviewComments)
		builder.WriteString("\n</review_comments>\n\n")

		builder.WriteString("<changed_files>\n")
		builder.WriteString(data.ChangedFiles)
		builder.WriteString("\n</changed_files>\n")
	}

	if data.ImagesInfo != "" {
		builder.WriteString("\n")
		builder.WriteString(data.ImagesInfo)
		builder.WriteString("\n")
	}
}

func appendEventMetadata(builder *strings.Builder, data promptTemplateData) {
	builder.WriteString("\n<event_type>")
	builder.WriteString(data.EventType)
	builder.WriteString("</event_type>\n")

	builder.WriteString("<is_pr>")
	if data.IsPR {
		builder.WriteString("true")
	} else {
		builder.WriteString("false")
	}
	builder.WriteString("</is_pr>\n")

	builder.WriteString("<trigger_context>")
	builder.WriteString(data.TriggerContext)
	builder.WriteString("</trigger_context>\n")

	builder.WriteString("<repository>")
	builder.WriteString(data.Repository)
	builder.WriteString("</repository>\n")

	if data.IsPR && data.PRNumber != "" {
		builder.WriteString("<pr_number>")
		builder.WriteString(data.PRNumber)
		builder.WriteString("</pr_number>\n")
	}

	if !data.IsPR && data.IssueNumber != "" {
		builder.WriteString("<issue_number>")
		builder.WriteString(data.IssueNumber)
		builder.WriteString("</issue_number>\n")
	}

	builder.WriteString("<trigger_username>")
	builder.WriteString(data.TriggerUsername)
	builder.WriteString("</trigger_username>\n")

	builder.WriteString("<trigger_display_name>")
	builder.WriteString(data.TriggerDisplayName)
	builder.WriteString("</trigger_display_name>\n")

	builder.WriteString("<trigger_phrase>")
	builder.WriteString(data.TriggerPhrase)
	builder.WriteString("</trigger_phrase>\n")
}

func formatRepositoryContext(files []string, context map[string]string) string {
	var builder strings.Builder

	builder.WriteString("Repository structure:\n")
	if len(files) == 0 {
		builder.WriteString("- No tracked files detected\n")
	} else {
		for _, file := range files {
			builder.WriteString("- ")
			builder.WriteString(file)
			builder.WriteByte('\n')
		}
	}

	excluded := map[string]struct{}{
		"issue_body":           {},
		"repository":           {},
		"event_type":           {},
		"trigger_context":      {},
		"pr_number":            {},
		"issue_number":         {},
		"claude_comment_id":    {},
		"trigger_username":     {},
		"trigger_display_name": {},
		"trigger_phrase":       {},
		"is_pr":                {},
		"comments":             {},
		"review_comments":      {},
		"changed_files":        {},
		"images_info":          {},
	}

	var additional []string
	for key, value := range context {
		if _, skip := excluded[key]; skip {
			continue
		}
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		additional = append(additional, fmt.Sprintf("- %s: %s", key, trimmed))
	}

	if len(additional) > 0 {
		sort.Strings(additional)
		builder.WriteByte('\n')
		builder.WriteString("Additional context:\n")
		for _, line := range additional {
			builder.WriteString(line)
			builder.WriteByte('\n')
		}
	}

	return strings.TrimRight(builder.String(), "\n")
}

func valueOrDefault(context map[string]string, key, fallback string) string {
	if val, ok := context[key]; ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func sanitize(s string) string {
	return html.EscapeString(s)
}
