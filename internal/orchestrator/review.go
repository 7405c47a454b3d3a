package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forgepilot/swe-orchestrator/internal/ghreview"
)

// reviewStorePath is where a repo's prior PRReviewResult for a PR lives,
// rooted under the coordinator's project dir so a follow-up poll can find
// the previous pass without re-deriving it from the GitHub comment thread.
func (c *Coordinator) reviewStorePath(repo string, prNumber int) string {
	safeRepo := filepath.FromSlash(repo)
	return filepath.Join(c.cfg.ProjectDir, ".auto-claude", "reviews", safeRepo, fmt.Sprintf("pr-%d.json", prNumber))
}

func (c *Coordinator) loadPreviousReview(repo string, prNumber int) *ghreview.PRReviewResult {
	data, err := os.ReadFile(c.reviewStorePath(repo, prNumber))
	if err != nil {
		return nil
	}
	var prev ghreview.PRReviewResult
	if json.Unmarshal(data, &prev) != nil {
		return nil
	}
	return &prev
}

func (c *Coordinator) saveReview(repo string, result *ghreview.PRReviewResult) error {
	path := c.reviewStorePath(repo, result.PRNumber)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".review-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// runReview drives one PR Review Pipeline pass, per spec.md §4.I: gather
// context, fan out specialists, derive a verdict, post/update the tracking
// comment, and persist the result for the next follow-up poll to diff
// against.
func (c *Coordinator) runReview(ctx context.Context, repo string, prNumber int) (*ghreview.PRReviewResult, error) {
	tok, err := c.resolveToken(repo)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	tracker := newReviewTracker(repo, prNumber, c.gh)
	tracker.SetWorking()
	_ = tracker.Create(tok)

	pctx, err := c.gatherPRContextCached(ctx, repo, prNumber)
	if err != nil {
		tracker.SetFailed(err.Error())
		_ = tracker.Update(tok)
		return nil, fmt.Errorf("orchestrator: gather PR context: %w", err)
	}

	previous := c.loadPreviousReview(repo, prNumber)
	workdir := c.cfg.ProjectDir

	if previous != nil && previous.ReviewedCommitSHA == pctx.HeadSHA {
		// Head unchanged since the last review: refresh the verdict from a
		// fresh CI/merge overlay only, per spec.md §4.I step 1.
		refreshed := ghreview.RefreshUnchangedHead(previous, verdictInputFrom(pctx, previous.Findings))
		if err := c.saveReview(repo, refreshed); err != nil {
			return nil, err
		}
		c.postReviewComment(tracker, tok, refreshed)
		return refreshed, nil
	}

	var resolved, unresolved []string
	if previous != nil {
		// New commits since the last review: work out which files actually
		// need re-examination (spec.md §4.I step 2). The gh CLI's pr view
		// does not expose per-file blob SHAs, so previous.ReviewedFileBlobs
		// is always empty here and FollowupChangedFiles falls back to a
		// full re-review (DESIGN.md's Open Question #2 decision) rather
		// than erroring.
		prCommitSHAs := make([]string, len(pctx.Commits))
		for i, cm := range pctx.Commits {
			prCommitSHAs[i] = cm.SHA
		}
		_, _, _ = ghreview.FollowupChangedFiles(previous.ReviewedCommitSHA, prCommitSHAs, fileBlobsFrom(pctx.ChangedFiles), previous.ReviewedFileBlobs)

		for _, f := range previous.Findings {
			// File-level granularity only: no line-range diff data from
			// this gatherer, so "determinable" is always false and a
			// changed file's prior findings are conservatively cant_verify.
			status := ghreview.ClassifyResolution(false, false)
			if status == ghreview.ResolutionResolved {
				resolved = append(resolved, f.ID)
			} else {
				unresolved = append(unresolved, f.ID)
			}
		}
	}

	findings := c.runSpecialists(ctx, workdir, repo, pctx)

	result := &ghreview.PRReviewResult{
		PRNumber:           prNumber,
		Repo:               repo,
		Success:            true,
		Findings:           findings,
		ReviewedCommitSHA:  pctx.HeadSHA,
		IsFollowupReview:   previous != nil,
		ResolvedFindings:   resolved,
		UnresolvedFindings: unresolved,
	}
	result.Verdict, result.Blockers, result.VerdictReasoning = ghreview.DeriveVerdict(verdictInputFrom(pctx, findings))

	if err := c.saveReview(repo, result); err != nil {
		return nil, err
	}
	c.postReviewComment(tracker, tok, result)
	return result, nil
}

func fileBlobsFrom(files []ghreview.ChangedFile) []ghreview.FileBlob {
	blobs := make([]ghreview.FileBlob, len(files))
	for i, f := range files {
		blobs[i] = ghreview.FileBlob{Path: f.Path, Status: f.Status}
	}
	return blobs
}

func verdictInputFrom(pctx *ghreview.PRContext, findings []ghreview.Finding) ghreview.VerdictInput {
	return ghreview.VerdictInput{
		HasMergeConflicts: pctx.HasMergeConflicts,
		CIStatus:          pctx.CIStatus,
		FailedChecks:      pctx.FailedChecks,
		BranchBehindBase:  pctx.MergeStateStatus == ghreview.MergeStateBehind,
		Findings:          findings,
	}
}

