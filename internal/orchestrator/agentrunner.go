package orchestrator

import (
	"context"
	"fmt"

	"github.com/forgepilot/swe-orchestrator/internal/agentclient"
	"github.com/forgepilot/swe-orchestrator/internal/ratelimit"
	"github.com/forgepilot/swe-orchestrator/internal/session"
)

// sessionRunner adapts one internal/agentclient.Client into the
// session.AgentRunner interface the Session Orchestrator depends on (by
// interface only, per spec.md §9), draining the NDJSON message stream into
// a single distilled AgentResponse. costKey identifies the issue/PR this
// runner's calls should be billed against in costTracker.
type sessionRunner struct {
	client      *agentclient.Client
	costTracker *ratelimit.CostTracker
	costRepo    string
	costIssue   int
}

func newSessionRunner(client *agentclient.Client) *sessionRunner {
	return &sessionRunner{client: client}
}

func (r *sessionRunner) RunSession(ctx context.Context, req session.AgentRequest) (session.AgentResponse, error) {
	if r.costTracker != nil && !r.costTracker.CanMakeCall() {
		return session.AgentResponse{Errored: true, ErrorDetail: "daily call limit reached"}, nil
	}

	sess, err := r.client.Open(ctx, req.Prompt)
	if err != nil {
		return session.AgentResponse{}, fmt.Errorf("orchestrator: open agent session: %w", err)
	}
	defer sess.Cancel()

	var resp session.AgentResponse
	var textChunks []string

	for msg := range sess.Stream() {
		switch msg.Kind {
		case agentclient.KindAssistantText:
			textChunks = append(textChunks, msg.Text)
		case agentclient.KindStructuredOutput:
			if len(resp.StructuredOutput) == 0 {
				resp.StructuredOutput = msg.StructuredOutput
			}
		case agentclient.KindResult:
			if msg.ResultIsError {
				resp.Errored = true
				resp.ErrorDetail = msg.ResultText
			}
			if r.costTracker != nil && msg.ResultCostUSD > 0 {
				_ = r.costTracker.RecordKnownCost(r.costRepo, r.costIssue, string(req.Phase), msg.ResultCostUSD)
			}
		}
	}

	if err := sess.Wait(); err != nil {
		resp.Errored = true
		if resp.ErrorDetail == "" {
			resp.ErrorDetail = err.Error()
		}
	}
	if denial := sess.PolicyDenial(); denial != nil && !denial.Allowed {
		resp.Errored = true
		resp.ErrorDetail = "policy gate denied: " + denial.Reason
	}

	resp.Text = joinNonEmpty(textChunks)
	return resp, nil
}

func joinNonEmpty(chunks []string) string {
	var out string
	for _, c := range chunks {
		if c == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += c
	}
	return out
}
