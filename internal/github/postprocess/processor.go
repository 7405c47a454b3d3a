// Package postprocess runs the finalize step internal/orchestrator performs
// once a build loop reaches session.OutcomeComplete: check whether the
// pushed branch actually diverged from base, generate branch/PR links (or
// delete the branch if nothing changed), and update the task's coordination
// comment, mirroring the teacher's post-session GitHub bookkeeping.
package postprocess

import (
	"context"
	"fmt"

	"github.com/google/go-github/v66/github"
)

// Processor runs the finalize pipeline for one task's branch.
type Processor struct {
	client      *github.Client
	owner       string
	repo        string
	commentID   int64
	branch      string
	baseBranch  string
	issueNumber int
	isPR        bool
}

// Allow tests to stub side-effectful helpers.
var (
	checkBranchStatus      = CheckBranchStatus
	deleteBranch           = DeleteBranch
	updateCommentWithLinks = func(ctx context.Context, client *github.Client, owner, repo string, commentID int64, branchLink, prLink string) error {
		cu := NewCommentUpdater(client, owner, repo)
		return cu.UpdateCommentWithLinks(ctx, commentID, branchLink, prLink)
	}
)

// NewProcessor constructs a Processor for one task's branch/baseBranch pair.
// commentID may be 0 if there is no coordination comment to update.
func NewProcessor(client *github.Client, owner, repo string, commentID int64, branch, baseBranch string, issueNumber int, isPR bool) *Processor {
	return &Processor{
		client:      client,
		owner:       owner,
		repo:        repo,
		commentID:   commentID,
		branch:      branch,
		baseBranch:  baseBranch,
		issueNumber: issueNumber,
		isPR:        isPR,
	}
}

// Process runs the finalize pipeline:
//  1. check the branch's status against baseBranch
//  2. generate a branch link (if it has commits)
//  3. generate a PR-creation link (if it has commits)
//  4. delete the branch if it ended up empty
//  5. update the coordination comment with the generated links
func (p *Processor) Process(ctx context.Context) error {
	if p.client == nil {
		return fmt.Errorf("nil github client")
	}
	if p.owner == "" || p.repo == "" || p.branch == "" {
		return fmt.Errorf("missing owner/repo/branch")
	}

	status, err := checkBranchStatus(ctx, p.client, p.owner, p.repo, p.branch, p.baseBranch)
	if err != nil {
		return err
	}
	if !status.Exists {
		return nil
	}

	lg := NewLinkGenerator(p.owner, p.repo)
	branchLink := ""
	prLink := ""
	if status.HasCommits {
		branchLink = lg.GenerateBranchLink(p.branch)
		prLink = lg.GeneratePRLink(p.baseBranch, p.branch, p.issueNumber, p.isPR)
	}

	if !status.HasCommits {
		if err := deleteBranch(ctx, p.client, p.owner, p.repo, p.branch); err != nil {
			return err
		}
		return nil
	}

	if p.commentID > 0 && (branchLink != "" || prLink != "") {
		if err := updateCommentWithLinks(ctx, p.client, p.owner, p.repo, p.commentID, branchLink, prLink); err != nil {
			return err
		}
	}
	return nil
}
