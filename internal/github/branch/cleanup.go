package branch

import (
	"context"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
)

// CleanupOptions parameterizes CleanupOldBranches.
type CleanupOptions struct {
	// MaxAge is how long a branch may go without a new commit before it is
	// considered abandoned.
	MaxAge time.Duration

	// DryRun reports what would be deleted without deleting anything.
	DryRun bool

	// Prefix filters branches by name prefix; defaults to "swe/".
	Prefix string
}

// CleanupOldBranches deletes swe/* branches whose last commit is older than
// opts.MaxAge, mirroring internal/worktree.Manager.Cleanup's age phase but
// for the remote ref rather than the local worktree directory. It returns
// the names of branches deleted (or, under DryRun, that would have been).
func (m *Manager) CleanupOldBranches(ctx context.Context, opts CleanupOptions) ([]string, error) {
	if opts.Prefix == "" {
		opts.Prefix = "swe/"
	}
	if opts.MaxAge == 0 {
		opts.MaxAge = 30 * 24 * time.Hour
	}

	branches, err := m.listBranchesByPrefix(ctx, opts.Prefix)
	if err != nil {
		return nil, err
	}

	deleted := []string{}
	now := time.Now()

	for _, ref := range branches {
		commit, _, err := m.client.Repositories.GetCommit(ctx, m.owner, m.repo, ref.GetObject().GetSHA(), nil)
		if err != nil {
			continue
		}

		commitDate := commit.GetCommit().GetAuthor().GetDate().Time
		age := now.Sub(commitDate)

		if age > opts.MaxAge {
			branchName := strings.TrimPrefix(ref.GetRef(), "refs/heads/")

			if !opts.DryRun {
				if err := m.DeleteBranch(ctx, branchName); err != nil {
					continue
				}
			}

			deleted = append(deleted, branchName)
		}
	}

	return deleted, nil
}

func (m *Manager) listBranchesByPrefix(ctx context.Context, prefix string) ([]*github.Reference, error) {
	opts := &github.ReferenceListOptions{
		Ref: "heads/" + prefix,
	}

	refs, _, err := m.client.Git.ListMatchingRefs(ctx, m.owner, m.repo, opts)
	if err != nil {
		return nil, err
	}

	return refs, nil
}
