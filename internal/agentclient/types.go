// Package agentclient implements the Agent Client: a bounded per-session
// context over the external LLM agent CLI, streaming a typed message feed
// and gating Bash tool use through the Policy Gate.
//
// Grounded on internal/provider/claude/claude.go from the teacher: the same
// CLI invocation shape (claude -p --output-format ..., --allowedTools,
// --disallowedTools, --mcp-config), generalized from a single blocking call
// into the streaming session spec.md §4.C requires.
package agentclient

import "encoding/json"

// MessageKind enumerates the streamed event shapes from spec.md §4.C.
type MessageKind string

const (
	KindAssistantText    MessageKind = "assistant_text"
	KindThinking         MessageKind = "thinking"
	KindToolUse          MessageKind = "tool_use"
	KindToolResult       MessageKind = "tool_result"
	KindStructuredOutput MessageKind = "structured_output"
	KindResult           MessageKind = "result"
)

// Message is one event from the agent's streaming output. Only the fields
// relevant to Kind are populated.
type Message struct {
	Kind MessageKind

	Text string // AssistantText, Thinking

	ToolUseID   string // ToolUse, ToolResult
	ToolName    string // ToolUse
	ToolInput   json.RawMessage
	ToolIsError bool // ToolResult
	ToolContent string

	StructuredOutput json.RawMessage // StructuredOutput

	ResultSubtype string // Result
	ResultIsError bool
	ResultCostUSD float64
	ResultText    string
}
