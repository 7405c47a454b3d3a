package postprocess

import (
	"fmt"
	"net/url"
)

// LinkGenerator builds the Markdown links Process appends to a task's
// coordination comment.
type LinkGenerator struct {
	ServerURL string
	Owner     string
	Repo      string
}

// NewLinkGenerator constructs a LinkGenerator for owner/repo on github.com.
func NewLinkGenerator(owner, repo string) *LinkGenerator {
	return &LinkGenerator{
		ServerURL: "https://github.com",
		Owner:     owner,
		Repo:      repo,
	}
}

// GenerateBranchLink returns a Markdown link to branch's tree view.
func (lg *LinkGenerator) GenerateBranchLink(branch string) string {
	url := fmt.Sprintf("%s/%s/%s/tree/%s", lg.ServerURL, lg.Owner, lg.Repo, branch)
	return fmt.Sprintf("\n[View branch](%s)", url)
}

// GeneratePRLink returns a Markdown link to GitHub's quick_pull compare view,
// pre-filled with a title/body referencing the originating issue or PR.
func (lg *LinkGenerator) GeneratePRLink(baseBranch, headBranch string, issueNumber int, isPR bool) string {
	entityType := "Issue"
	if isPR {
		entityType = "PR"
	}

	title := fmt.Sprintf("%s #%d: Changes from SWE Agent", entityType, issueNumber)
	body := fmt.Sprintf("This PR addresses %s #%d\n\nGenerated with [SWE Agent](https://github.com/forgepilot/swe-orchestrator-agent)",
		entityType, issueNumber)

	encodedTitle := url.QueryEscape(title)
	encodedBody := url.QueryEscape(body)

	prURL := fmt.Sprintf("%s/%s/%s/compare/%s...%s?quick_pull=1&title=%s&body=%s",
		lg.ServerURL,
		lg.Owner,
		lg.Repo,
		baseBranch,
		headBranch,
		encodedTitle,
		encodedBody,
	)

	return fmt.Sprintf("\n[Create a PR](%s)", prURL)
}

// GenerateJobRunLink returns a Markdown link to an Actions run, used when the
// build was triggered from a workflow run rather than a direct webhook.
func (lg *LinkGenerator) GenerateJobRunLink(runID string) string {
	url := fmt.Sprintf("%s/%s/%s/actions/runs/%s", lg.ServerURL, lg.Owner, lg.Repo, runID)
	return fmt.Sprintf("[Job Run](%s)", url)
}
