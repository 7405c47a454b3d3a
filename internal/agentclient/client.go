package agentclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/forgepilot/swe-orchestrator/internal/policy"
	"github.com/forgepilot/swe-orchestrator/internal/toolconfig"
)

// execCommandContext is a test seam, mirroring the teacher's package-level
// var pattern in internal/executor/task.go (cloneRepo, runCmd).
var execCommandContext = exec.CommandContext

// claudeBinary is the CLI invoked for a session; overridable in tests.
var claudeBinary = "claude"

// Config parameterizes one bounded agent session. AllowedTools/
// DisallowedTools default to toolconfig.BuildAllowedTools/
// BuildDisallowedTools(ToolOptions) when left nil, so most callers only
// need to set ToolOptions.
type Config struct {
	Model           string
	ProjectRoot     string
	AllowedTools    []string
	DisallowedTools []string
	ToolOptions     toolconfig.Options
	MCPConfigJSON   string // pre-built MCP server configuration, see provider/claude buildMCPConfig
	OutputSchema    []byte // optional JSON schema; presence requests structured output
	Policy          *policy.Profile
}

// Client opens bounded sessions sharing a Config. It is single-task: each
// session has its own subprocess and stream.
type Client struct {
	cfg Config
}

// New returns a Client for cfg, filling in the tool surface from
// cfg.ToolOptions when AllowedTools/DisallowedTools are unset.
func New(cfg Config) *Client {
	if cfg.AllowedTools == nil {
		cfg.AllowedTools = toolconfig.BuildAllowedTools(cfg.ToolOptions)
	}
	if cfg.DisallowedTools == nil {
		cfg.DisallowedTools = toolconfig.BuildDisallowedTools(cfg.ToolOptions)
	}
	return &Client{cfg: cfg}
}

// Session is one open streaming conversation with the agent CLI.
type Session struct {
	cfg Config

	cmd    *exec.Cmd
	stdout io.ReadCloser
	cancel context.CancelFunc

	messages chan Message
	errOnce  sync.Once
	err      error

	structuredSeen bool
	policyDenied   *policy.Decision
}

// Open starts a new session for prompt, launching the CLI with a streaming
// JSON output format and returning immediately; consume Session.Stream()
// for events.
func (c *Client) Open(ctx context.Context, prompt string) (*Session, error) {
	sessionCtx, cancel := context.WithCancel(ctx)

	args := []string{"-p", "--output-format", "stream-json", "--verbose"}
	if c.cfg.Model != "" {
		args = append(args, "--model", c.cfg.Model)
	}
	if len(c.cfg.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(c.cfg.AllowedTools, ","))
	}
	if len(c.cfg.DisallowedTools) > 0 {
		args = append(args, "--disallowedTools", strings.Join(c.cfg.DisallowedTools, ","))
	}
	if c.cfg.MCPConfigJSON != "" {
		args = append(args, "--mcp-config", c.cfg.MCPConfigJSON)
	}

	cmd := execCommandContext(sessionCtx, claudeBinary, args...)
	cmd.Dir = c.cfg.ProjectRoot
	cmd.Stdin = strings.NewReader(prompt)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("agentclient: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("agentclient: start: %w", err)
	}

	s := &Session{
		cfg:      c.cfg,
		cmd:      cmd,
		stdout:   stdout,
		cancel:   cancel,
		messages: make(chan Message, 16),
	}
	go s.pump()
	return s, nil
}

// Stream returns the channel of parsed messages, closed once the session
// ends (normally or via Cancel).
func (s *Session) Stream() <-chan Message {
	return s.messages
}

// Cancel aborts the session. Any partially accumulated text is discarded;
// files the agent already wrote to disk are left in place for the caller
// to clean up.
func (s *Session) Cancel() {
	s.cancel()
}

// Wait blocks until the subprocess exits and returns any error observed
// either from the process or from stream parsing.
func (s *Session) Wait() error {
	waitErr := s.cmd.Wait()
	if s.err != nil {
		return s.err
	}
	return waitErr
}

// PolicyDenial reports the first Bash-tool denial observed in the stream,
// if any. The Agent Client cannot veto a tool call the subprocess CLI has
// already issued (it is not an in-process tool dispatcher); it audits every
// observed Bash ToolUse against the Policy Gate and surfaces the first
// violation here so the caller can abort the session.
func (s *Session) PolicyDenial() *policy.Decision {
	return s.policyDenied
}

func (s *Session) setErr(err error) {
	s.errOnce.Do(func() { s.err = err })
}

func (s *Session) pump() {
	defer close(s.messages)

	scanner := bufio.NewScanner(s.stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		msgs, err := parseLine([]byte(line))
		if err != nil {
			log.Printf("agentclient: skipping unparseable stream line: %v", err)
			continue
		}

		for _, m := range msgs {
			if m.Kind == KindToolUse && m.ToolName == "Bash" && s.cfg.Policy != nil {
				if cmd, ok := extractBashCommand(m.ToolInput); ok {
					if d := policy.Evaluate(cmd, s.cfg.Policy); !d.Allowed && s.policyDenied == nil {
						denied := d
						s.policyDenied = &denied
					}
				}
			}
			if m.Kind == KindStructuredOutput {
				if s.structuredSeen {
					continue // de-duplicated: only the first structured payload is delivered
				}
				s.structuredSeen = true
			}
			s.messages <- m
		}
	}

	if err := scanner.Err(); err != nil {
		s.setErr(fmt.Errorf("agentclient: reading stream: %w", err))
	}
}

func extractBashCommand(input json.RawMessage) (string, bool) {
	var payload struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(input, &payload); err != nil || payload.Command == "" {
		return "", false
	}
	return payload.Command, true
}
