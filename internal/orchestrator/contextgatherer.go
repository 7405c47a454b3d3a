package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/forgepilot/swe-orchestrator/internal/ghreview"
	"github.com/forgepilot/swe-orchestrator/internal/github"
)

// githubContextGatherer implements ghreview.ContextGatherer by shelling out
// to the gh CLI, following the teacher's internal/github/command_runner.go
// convention (a CommandRunner seam instead of direct os/exec calls, so
// tests can inject a MockCommandRunner).
type githubContextGatherer struct {
	runner github.CommandRunner
}

func newGitHubContextGatherer(runner github.CommandRunner) *githubContextGatherer {
	return &githubContextGatherer{runner: runner}
}

// tokenedGatherer binds one resolved GitHub token to a gather call. A fresh
// value is built per call (see Coordinator.resolveToken) rather than stored
// on githubContextGatherer, since that type is shared across concurrent
// reviews of different repos with different installation tokens.
type tokenedGatherer struct {
	base  *githubContextGatherer
	token string
}

func (t tokenedGatherer) GatherPRContext(ctx context.Context, repo string, prNumber int) (*ghreview.PRContext, error) {
	return t.base.gather(ctx, repo, prNumber, t.token)
}

type ghPRView struct {
	Title        string `json:"title"`
	Body         string `json:"body"`
	Author       struct{ Login string } `json:"author"`
	BaseRefName  string `json:"baseRefName"`
	HeadRefName  string `json:"headRefName"`
	HeadRefOid   string `json:"headRefOid"`
	BaseRefOid   string `json:"baseRefOid"`
	MergeStateStatus string `json:"mergeStateStatus"`
	IsCrossRepository bool `json:"isCrossRepository"`
	Files []struct {
		Path      string `json:"path"`
		Additions int    `json:"additions"`
		Deletions int    `json:"deletions"`
	} `json:"files"`
	Commits []struct {
		Oid           string `json:"oid"`
		CommittedDate time.Time `json:"committedDate"`
	} `json:"commits"`
	StatusCheckRollup []struct {
		Name       string `json:"name"`
		Conclusion string `json:"conclusion"`
		State      string `json:"state"`
	} `json:"statusCheckRollup"`
}

var prViewFields = "title,body,author,baseRefName,headRefName,headRefOid,baseRefOid,mergeStateStatus,isCrossRepository,files,commits,statusCheckRollup"

// gather runs `gh pr view --json <fields>` for the PR's structured
// metadata and `gh pr diff` for the unified diff text, then assembles a
// ghreview.PRContext. token authenticates both calls via the same
// GITHUB_TOKEN/GH_TOKEN env-var convention internal/github's RealGHClient
// uses for every gh CLI invocation.
func (g *githubContextGatherer) gather(ctx context.Context, repo string, prNumber int, token string) (*ghreview.PRContext, error) {
	var out, diffOut []byte
	err := github.WithGitHubTokenEnv(token, func() error {
		var runErr error
		out, runErr = g.runner.Run("gh", "pr", "view", strconv.Itoa(prNumber), "--repo", repo, "--json", prViewFields)
		if runErr != nil {
			return fmt.Errorf("gh pr view: %w: %s", runErr, string(out))
		}
		diffOut, runErr = g.runner.Run("gh", "pr", "diff", strconv.Itoa(prNumber), "--repo", repo)
		if runErr != nil {
			return fmt.Errorf("gh pr diff: %w: %s", runErr, string(diffOut))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	var view ghPRView
	if err := json.Unmarshal(out, &view); err != nil {
		return nil, fmt.Errorf("orchestrator: parse gh pr view output: %w", err)
	}
	fullDiff := github.SanitizeContent(string(diffOut))

	pctx := &ghreview.PRContext{
		PRNumber:          prNumber,
		HeadSHA:           view.HeadRefOid,
		BaseSHA:           view.BaseRefOid,
		HeadBranch:        view.HeadRefName,
		BaseBranch:        view.BaseRefName,
		Title:             view.Title,
		Description:       github.SanitizeContent(view.Body),
		Author:            view.Author.Login,
		FullDiff:          fullDiff,
		HasMergeConflicts: strings.EqualFold(view.MergeStateStatus, string(ghreview.MergeStateConflicting)),
		MergeStateStatus:  ghreview.MergeState(view.MergeStateStatus),
		IsFork:            view.IsCrossRepository,
	}

	for _, f := range view.Files {
		pctx.ChangedFiles = append(pctx.ChangedFiles, ghreview.ChangedFile{
			Path:      f.Path,
			Status:    ghreview.FileModified,
			Additions: f.Additions,
			Deletions: f.Deletions,
		})
		pctx.TotalAdditions += f.Additions
		pctx.TotalDeletions += f.Deletions
	}

	for _, c := range view.Commits {
		pctx.Commits = append(pctx.Commits, ghreview.Commit{SHA: c.Oid, Timestamp: c.CommittedDate})
	}

	pctx.CIStatus = ghreview.CIPending
	allDone := len(view.StatusCheckRollup) > 0
	for _, check := range view.StatusCheckRollup {
		switch strings.ToUpper(check.Conclusion) {
		case "FAILURE", "CANCELLED", "TIMED_OUT":
			pctx.FailedChecks = append(pctx.FailedChecks, check.Name)
		case "":
			if !strings.EqualFold(check.State, "SUCCESS") {
				allDone = false
			}
		}
	}
	switch {
	case len(pctx.FailedChecks) > 0:
		pctx.CIStatus = ghreview.CIFailing
	case allDone:
		pctx.CIStatus = ghreview.CIPassing
	}

	return pctx, nil
}
