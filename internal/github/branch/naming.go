package branch

import (
	"fmt"
	"regexp"
	"strings"
)

// GenerateBranchName builds a deterministic remote branch name for one
// issue's build, e.g. "swe/issue-123-fix-login-bug", so
// internal/orchestrator can push a worktree's HEAD and look the branch up
// again on a later finalize pass without tracking a separate mapping.
func GenerateBranchName(issueNumber int, issueTitle string) string {
	slug := slugify(issueTitle)

	// GitHub branch names have no hard limit, but a short name keeps the
	// comment links below readable; 48 leaves room for the numeric prefix.
	prefix := fmt.Sprintf("swe/issue-%d-", issueNumber)
	maxSlugLen := 48 - len(prefix)
	if maxSlugLen < 0 {
		maxSlugLen = 0
	}
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
	}

	slug = strings.TrimRight(slug, "-")

	return prefix + slug
}

// slugify turns a free-form title into a branch-name-safe slug:
// "Fix login bug!" -> "fix-login-bug".
func slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")

	reg := regexp.MustCompile(`[^a-z0-9-]+`)
	s = reg.ReplaceAllString(s, "")

	reg = regexp.MustCompile(`-+`)
	s = reg.ReplaceAllString(s, "-")

	return strings.Trim(s, "-")
}

// ValidateBranchName reports whether name is a well-formed swe/* branch
// name, used before pushing to reject a degenerate slug (empty title).
func ValidateBranchName(name string) bool {
	if !strings.HasPrefix(name, "swe/") {
		return false
	}
	if len(name) > 100 || len(name) < 10 {
		return false
	}
	reg := regexp.MustCompile(`^swe/[a-z0-9-/]+$`)
	return reg.MatchString(name)
}
