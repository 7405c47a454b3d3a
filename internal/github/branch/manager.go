// Package branch manages the remote counterpart of a build worktree: the
// swe/issue-* branch internal/orchestrator pushes a completed build to, and
// later checks, links, or reclaims via CleanupOldBranches. internal/worktree
// reclaims the local worktree directory; Manager reclaims the matching
// GitHub ref.
package branch

import (
	"context"
	"fmt"

	"github.com/google/go-github/v66/github"
)

// Manager performs branch-ref operations against one repository.
type Manager struct {
	client *github.Client
	owner  string
	repo   string
}

// NewManager constructs a Manager bound to owner/repo.
func NewManager(client *github.Client, owner, repo string) *Manager {
	return &Manager{
		client: client,
		owner:  owner,
		repo:   repo,
	}
}

// CreateBranch creates (or, if it already exists, returns) the swe/issue-*
// branch for issueNumber off baseBranch's current HEAD.
func (m *Manager) CreateBranch(ctx context.Context, baseBranch string, issueNumber int, issueTitle string) (string, error) {
	branchName := GenerateBranchName(issueNumber, issueTitle)
	if !ValidateBranchName(branchName) {
		return "", fmt.Errorf("invalid branch name: %s", branchName)
	}

	if _, _, err := m.client.Git.GetRef(ctx, m.owner, m.repo, "refs/heads/"+branchName); err == nil {
		return branchName, nil
	}

	baseRef, _, err := m.client.Git.GetRef(ctx, m.owner, m.repo, "refs/heads/"+baseBranch)
	if err != nil {
		return "", fmt.Errorf("failed to get base branch: %w", err)
	}

	ref := &github.Reference{
		Ref: github.String("refs/heads/" + branchName),
		Object: &github.GitObject{
			SHA: baseRef.Object.SHA,
		},
	}

	if _, _, err = m.client.Git.CreateRef(ctx, m.owner, m.repo, ref); err != nil {
		return "", fmt.Errorf("failed to create branch: %w", err)
	}

	return branchName, nil
}

// BranchExists reports whether branchName exists on the remote.
func (m *Manager) BranchExists(ctx context.Context, branchName string) (bool, error) {
	if _, _, err := m.client.Git.GetRef(ctx, m.owner, m.repo, "refs/heads/"+branchName); err != nil {
		if _, ok := err.(*github.ErrorResponse); ok {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteBranch removes the remote ref for branchName.
func (m *Manager) DeleteBranch(ctx context.Context, branchName string) error {
	_, err := m.client.Git.DeleteRef(ctx, m.owner, m.repo, "refs/heads/"+branchName)
	return err
}
