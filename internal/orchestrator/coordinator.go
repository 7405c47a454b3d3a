// Package orchestrator is the composition root: it wires the decoupled
// internal/session and internal/ghreview cores to concrete infrastructure
// (internal/agentclient, internal/gitadapter, internal/github,
// internal/worktree, internal/evolution, internal/ratelimit,
// internal/statusfile) and exposes a single webhook.Executor-shaped entry
// point, generalizing the teacher's internal/webhook + internal/dispatcher
// trigger-to-execution glue from "run one Claude session against an
// issue/PR" to "drive a build loop, then a review pass, to completion."
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/forgepilot/swe-orchestrator/internal/agentclient"
	"github.com/forgepilot/swe-orchestrator/internal/ghcli"
	"github.com/forgepilot/swe-orchestrator/internal/gitadapter"
	"github.com/forgepilot/swe-orchestrator/internal/github"
	"github.com/forgepilot/swe-orchestrator/internal/policy"
	"github.com/forgepilot/swe-orchestrator/internal/prompt"
	"github.com/forgepilot/swe-orchestrator/internal/ratelimit"
	"github.com/forgepilot/swe-orchestrator/internal/session"
	"github.com/forgepilot/swe-orchestrator/internal/toolconfig"
	"github.com/forgepilot/swe-orchestrator/internal/webhook"
)

// Config parameterizes the Coordinator. ProjectDir/WorktreeRoot govern
// internal/worktree provisioning; the remaining fields are passed through
// to internal/session and internal/agentclient.
type Config struct {
	ProjectDir   string
	WorktreeRoot string

	DefaultModel          string
	DefaultThinkingBudget int
	IterationDelay        time.Duration

	// GitHubToken authenticates gh CLI calls when no GitHub App is
	// configured, or when GitHubAppID/GitHubPrivateKey resolution fails.
	GitHubToken string

	// GitHubAppID/GitHubPrivateKey, when both set, make the Coordinator mint
	// short-lived per-repo installation tokens instead of using the static
	// GitHubToken, following internal/github/auth.go's AppAuth.
	GitHubAppID      string
	GitHubPrivateKey string

	SpecialistCount   int
	SpecialistTimeout time.Duration

	ToolOptions toolconfig.Options
	Policy      *policy.Profile

	DailyCallLimit    int
	DailyCostLimit    float64
	PerIssueCostLimit float64
}

func (c Config) normalized() Config {
	if c.IterationDelay <= 0 {
		c.IterationDelay = 2 * time.Second
	}
	if c.SpecialistCount <= 0 {
		c.SpecialistCount = len(defaultSpecialists)
	}
	if c.SpecialistTimeout <= 0 {
		c.SpecialistTimeout = 5 * time.Minute
	}
	return c
}

// Coordinator implements webhook.Executor (and, by the identical method
// shape, dispatcher.TaskExecutor), dispatching each task to a build run or
// a PR review run depending on task.IsPR.
type Coordinator struct {
	cfg Config

	git         *gitadapter.Adapter
	gh          github.GHClient
	promptMgr   *prompt.Manager
	costTracker *ratelimit.CostTracker
	contextGath *githubContextGatherer

	appAuth    *github.AppAuth
	tokenCache *cache.Cache
}

// New wires a Coordinator from concrete infrastructure clients. gh and
// runner may be nil to use the production implementations
// (github.NewRealGHClient, ghcli.Runner{} for the PR context gatherer's
// read-only gh pr view/diff calls).
func New(cfg Config, gh github.GHClient, runner github.CommandRunner) *Coordinator {
	cfg = cfg.normalized()
	if gh == nil {
		gh = github.NewRealGHClient()
	}
	if runner == nil {
		runner = ghcli.Runner{}
	}
	var appAuth *github.AppAuth
	if cfg.GitHubAppID != "" && cfg.GitHubPrivateKey != "" {
		appAuth = &github.AppAuth{AppID: cfg.GitHubAppID, PrivateKey: cfg.GitHubPrivateKey}
	}
	return &Coordinator{
		cfg:         cfg,
		git:         gitadapter.New(),
		gh:          gh,
		promptMgr:   prompt.NewManager(),
		costTracker: ratelimit.NewCostTracker(cfg.DailyCallLimit, cfg.DailyCostLimit, cfg.PerIssueCostLimit, 0.8, nil),
		contextGath: newGitHubContextGatherer(runner),
		appAuth:     appAuth,
		tokenCache:  cache.New(5*time.Minute, 10*time.Minute),
	}
}

// resolveToken returns the token gh CLI calls against repo should use: a
// cached GitHub App installation token when appAuth is configured, falling
// back to the static GitHubToken otherwise (or if minting one fails, so a
// misconfigured App doesn't take down review/comment flows entirely).
func (c *Coordinator) resolveToken(repo string) (string, error) {
	if c.appAuth == nil {
		return c.cfg.GitHubToken, nil
	}
	if cached, ok := c.tokenCache.Get(repo); ok {
		return cached.(string), nil
	}
	inst, err := c.appAuth.GetInstallationToken(repo)
	if err != nil {
		if c.cfg.GitHubToken != "" {
			return c.cfg.GitHubToken, nil
		}
		return "", fmt.Errorf("orchestrator: resolve github app token for %s: %w", repo, err)
	}
	ttl := time.Until(inst.ExpiresAt) - time.Minute
	if ttl <= 0 {
		ttl = cache.DefaultExpiration
	}
	c.tokenCache.Set(repo, inst.Token, ttl)
	return inst.Token, nil
}

// agentClient builds an internal/agentclient.Client rooted at workdir, with
// the default tool surface and policy gate wired in.
func (c *Coordinator) agentClient(workdir string) *agentclient.Client {
	return agentclient.New(agentclient.Config{
		Model:       c.cfg.DefaultModel,
		ProjectRoot: workdir,
		ToolOptions: c.cfg.ToolOptions,
		Policy:      c.cfg.Policy,
	})
}

// newBilledRunner builds a sessionRunner whose agent calls are metered
// against c.costTracker under the given repo/issue key, per spec.md §9's
// cost-control design note.
func (c *Coordinator) newBilledRunner(workdir, repo string, issueNumber int) *sessionRunner {
	r := newSessionRunner(c.agentClient(workdir))
	r.costTracker = c.costTracker
	r.costRepo = repo
	r.costIssue = issueNumber
	return r
}

func (c *Coordinator) buildPromptBuilder(feature, repo string) session.PromptBuilder {
	promptContext := map[string]string{
		"repository":  repo,
		"issue_title": feature,
		"event_type":  "build_session",
	}
	return func(phase session.RunState, plan *session.ImplementationPlan, subtask *session.Subtask, validationErrs []session.ValidationError) string {
		if phase == session.StatePlanning {
			var prevJSON string
			var errStrs []string
			if plan != nil {
				if data, err := plan.Encode(); err == nil {
					prevJSON = string(data)
				}
			}
			for _, e := range validationErrs {
				errStrs = append(errStrs, e.String())
			}
			return c.promptMgr.BuildPlanningPrompt(feature, nil, promptContext, prevJSON, errStrs)
		}
		phaseName := ""
		subtaskDesc := ""
		if subtask != nil {
			subtaskDesc = subtask.Description
		}
		if plan != nil {
			for _, p := range plan.Phases {
				for _, st := range p.Subtasks {
					if subtask != nil && st.ID == subtask.ID {
						phaseName = p.Name
					}
				}
			}
		}
		return c.promptMgr.BuildCodingPrompt(feature, phaseName, subtaskDesc, nil, promptContext)
	}
}

// Execute implements webhook.Executor. A PR-context task is routed to the
// review pipeline; an issue-context task starts (or resumes) a build.
func (c *Coordinator) Execute(ctx context.Context, task *webhook.Task) error {
	if task == nil {
		return fmt.Errorf("orchestrator: nil task")
	}
	if task.IsPR {
		_, err := c.runReview(ctx, task.Repo, task.Number)
		return err
	}

	baseSHA, err := c.git.HeadSHA(ctx, c.cfg.ProjectDir)
	if err != nil {
		return fmt.Errorf("orchestrator: resolve base sha: %w", err)
	}
	taskID := fmt.Sprintf("issue-%d", task.Number)
	_, err = c.runBuild(ctx, taskID, task.IssueTitle+"\n\n"+task.IssueBody, task.Repo, baseSHA, task.Number)
	return err
}
