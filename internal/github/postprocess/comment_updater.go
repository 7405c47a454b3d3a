package postprocess

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v66/github"
)

// CommentUpdater appends branch/PR links to an existing issue or PR comment.
type CommentUpdater struct {
	client *github.Client
	owner  string
	repo   string
}

// NewCommentUpdater constructs a CommentUpdater bound to owner/repo.
func NewCommentUpdater(client *github.Client, owner, repo string) *CommentUpdater {
	return &CommentUpdater{
		client: client,
		owner:  owner,
		repo:   repo,
	}
}

// UpdateCommentWithLinks appends branchLink/prLink to commentID's body,
// unless it already has them (Process may be called more than once for the
// same task as a build's outcome is re-evaluated).
func (cu *CommentUpdater) UpdateCommentWithLinks(
	ctx context.Context,
	commentID int64,
	branchLink, prLink string,
) error {
	comment, _, err := cu.client.Issues.GetComment(ctx, cu.owner, cu.repo, commentID)
	if err != nil {
		return fmt.Errorf("failed to get comment: %w", err)
	}

	currentBody := comment.GetBody()

	if strings.Contains(currentBody, "[View branch]") || strings.Contains(currentBody, "[Create a PR]") {
		return nil
	}

	newBody := currentBody
	if branchLink != "" {
		newBody += branchLink
	}
	if prLink != "" {
		newBody += prLink
	}

	updateReq := &github.IssueComment{
		Body: &newBody,
	}

	_, _, err = cu.client.Issues.EditComment(ctx, cu.owner, cu.repo, commentID, updateReq)
	if err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}

	return nil
}
