package orchestrator

import (
	"fmt"
	"strings"

	"github.com/forgepilot/swe-orchestrator/internal/ghreview"
	"github.com/forgepilot/swe-orchestrator/internal/github"
)

func newReviewTracker(repo string, prNumber int, gh github.GHClient) *github.CommentTracker {
	return github.NewCommentTrackerWithClient(repo, prNumber, "orchestrator", gh)
}

// postReviewComment renders result into the tracking comment and
// creates/updates it, matching the teacher's CommentTracker state-driven
// single-comment convention.
func (c *Coordinator) postReviewComment(tracker *github.CommentTracker, token string, result *ghreview.PRReviewResult) {
	summary := reviewSummary(result)
	if result.Verdict == ghreview.VerdictBlocked || result.Verdict == ghreview.VerdictNeedsRevision {
		tracker.SetFailed(summary)
	} else {
		tracker.SetCompleted(summary, changedFilePaths(result), 0)
	}

	if tracker.CommentID <= 0 {
		_ = tracker.Create(token)
		return
	}
	_ = tracker.Update(token)
}

func reviewSummary(result *ghreview.PRReviewResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Verdict: %s — %s\n", result.Verdict, result.VerdictReasoning)
	for _, blocker := range result.Blockers {
		fmt.Fprintf(&b, "- %s\n", blocker)
	}
	for _, f := range result.Findings {
		fmt.Fprintf(&b, "- [%s/%s] %s (%s:%d)\n", f.Severity, f.Category, f.Title, f.File, f.Line)
	}
	return b.String()
}

func changedFilePaths(result *ghreview.PRReviewResult) []string {
	var files []string
	seen := make(map[string]bool)
	for _, f := range result.Findings {
		if f.File == "" || seen[f.File] {
			continue
		}
		seen[f.File] = true
		files = append(files, f.File)
	}
	return files
}
