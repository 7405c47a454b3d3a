package agentclient

import (
	"encoding/json"
	"fmt"
)

// streamEnvelope mirrors the Claude CLI's --output-format stream-json line
// shape: a discriminated union keyed by "type", generalizing the single
// CLIResult{Result,IsError,CostUSD} shape in provider/claude/claude.go into
// the per-event envelope a streaming session emits one line at a time.
type streamEnvelope struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`

	Message *struct {
		Content []contentBlock `json:"content"`
	} `json:"message"`

	// result-type fields
	Result  string  `json:"result"`
	IsError bool    `json:"is_error"`
	CostUSD float64 `json:"cost_usd"`
}

type contentBlock struct {
	Type string `json:"type"`

	Text string `json:"text"` // text, thinking

	ID    string          `json:"id"`    // tool_use
	Name  string          `json:"name"`  // tool_use
	Input json.RawMessage `json:"input"` // tool_use

	ToolUseID string          `json:"tool_use_id"` // tool_result
	Content   json.RawMessage `json:"content"`      // tool_result, may be string or []block
	IsError   bool            `json:"is_error"`      // tool_result
}

// parseLine decodes one NDJSON stream line into zero or more Messages. A
// single "assistant" envelope can carry several content blocks (e.g. a
// thinking block followed by a tool_use block), so it may expand to more
// than one Message.
func parseLine(line []byte) ([]Message, error) {
	var env streamEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, fmt.Errorf("agentclient: decode stream line: %w", err)
	}

	switch env.Type {
	case "assistant":
		if env.Message == nil {
			return nil, nil
		}
		return messagesFromBlocks(env.Message.Content), nil

	case "result":
		return []Message{{
			Kind:          KindResult,
			ResultSubtype: env.Subtype,
			ResultIsError: env.IsError,
			ResultCostUSD: env.CostUSD,
			ResultText:    env.Result,
		}}, nil

	default:
		// system/user/init envelopes and anything else carry no
		// caller-visible content; silently ignored.
		return nil, nil
	}
}

func messagesFromBlocks(blocks []contentBlock) []Message {
	var out []Message
	for _, b := range blocks {
		switch b.Type {
		case "text":
			out = append(out, Message{Kind: KindAssistantText, Text: b.Text})
		case "thinking":
			out = append(out, Message{Kind: KindThinking, Text: b.Text})
		case "tool_use":
			if isStructuredOutputTool(b.Name) {
				out = append(out, Message{Kind: KindStructuredOutput, StructuredOutput: b.Input})
				continue
			}
			out = append(out, Message{
				Kind:      KindToolUse,
				ToolUseID: b.ID,
				ToolName:  b.Name,
				ToolInput: b.Input,
			})
		case "tool_result":
			out = append(out, Message{
				Kind:        KindToolResult,
				ToolUseID:   b.ToolUseID,
				ToolIsError: b.IsError,
				ToolContent: string(b.Content),
			})
		}
	}
	return out
}

// isStructuredOutputTool recognizes the convention used to request a final
// structured payload: a tool named "structured_output" (configured via
// Config.OutputSchema when opening the session).
func isStructuredOutputTool(toolName string) bool {
	return toolName == "structured_output" || toolName == "emit_structured_output"
}
