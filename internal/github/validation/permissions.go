// Package validation checks whether a GitHub actor is allowed to trigger a
// build/review (write/admin repo permission) and whether a comment should
// be ignored as bot chatter, gating internal/webhook's dispatch path.
package validation

import (
	"context"
	"fmt"

	"github.com/google/go-github/v66/github"

	ghclient "github.com/forgepilot/swe-orchestrator/internal/github"
	"github.com/forgepilot/swe-orchestrator/internal/webhook"
)

// CheckWritePermission reports whether user has write or admin permission
// on owner/repo.
func CheckWritePermission(ctx context.Context, client *github.Client, owner, repo, user string) (bool, error) {
	perm, _, err := client.Repositories.GetPermissionLevel(ctx, owner, repo, user)
	if err != nil {
		return false, fmt.Errorf("failed to get permission level: %w", err)
	}

	permission := perm.GetPermission()
	return permission == "write" || permission == "admin", nil
}

// CheckAdminPermission reports whether user has admin permission on
// owner/repo.
func CheckAdminPermission(ctx context.Context, client *github.Client, owner, repo, user string) (bool, error) {
	perm, _, err := client.Repositories.GetPermissionLevel(ctx, owner, repo, user)
	if err != nil {
		return false, fmt.Errorf("failed to get permission level: %w", err)
	}

	return perm.GetPermission() == "admin", nil
}

// EnsureWritePermission returns an error unless user has write (or admin)
// permission on owner/repo.
func EnsureWritePermission(ctx context.Context, client *github.Client, owner, repo, user string) error {
	hasWrite, err := CheckWritePermission(ctx, client, owner, repo, user)
	if err != nil {
		return err
	}
	if !hasWrite {
		return fmt.Errorf("user %s lacks write permission on %s/%s", user, owner, repo)
	}
	return nil
}

// RepoPermissionChecker implements webhook.PermissionChecker over the
// GitHub REST API, splitting "owner/repo" the same way the rest of
// internal/github does (see internal/github/auth.go's AppAuth) and minting
// a go-github client from a static token. internal/orchestrator's
// app-installation-token path doesn't run here: the webhook layer checks
// permission before a task is even queued, long before a Coordinator would
// mint a per-repo installation token, so a static token (or a PAT) is what
// this gate has available.
type RepoPermissionChecker struct {
	Token string
}

var _ webhook.PermissionChecker = RepoPermissionChecker{}

// HasWritePermission implements webhook.PermissionChecker.
func (c RepoPermissionChecker) HasWritePermission(ctx context.Context, repo, user string) (bool, error) {
	owner, name, err := splitOwnerRepo(repo)
	if err != nil {
		return false, err
	}
	client := ghclient.NewTokenClient(c.Token)
	return CheckWritePermission(ctx, client, owner, name, user)
}

func splitOwnerRepo(repo string) (owner, name string, err error) {
	for i := 0; i < len(repo); i++ {
		if repo[i] == '/' {
			return repo[:i], repo[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("validation: malformed repo %q, want owner/name", repo)
}
