// Package git computes the bot git identity internal/worktree configures on
// each provisioned worktree, so commits made inside it attribute to the
// GitHub App rather than whatever user.name/user.email happens to be set on
// the host. The actual `git config` invocation lives in
// internal/gitadapter.Adapter.SetLocalIdentity, scoped to one worktree
// directory rather than --global, since a single host runs many worktrees
// concurrently for different repos/apps.
package git

import "fmt"

// DefaultAppName is used when no GitHub App name is configured.
const DefaultAppName = "swe-agent"

// BotIdentity derives the git user.name/user.email pair GitHub attributes
// commits from GitHub Apps to: "<appName>[bot]" and GitHub's noreply
// address keyed by the app's numeric bot ID.
func BotIdentity(botID int, appName string) (name, email string) {
	if appName == "" {
		appName = DefaultAppName
	}
	name = fmt.Sprintf("%s[bot]", appName)
	email = fmt.Sprintf("%d+%s[bot]@users.noreply.github.com", botID, appName)
	return name, email
}
