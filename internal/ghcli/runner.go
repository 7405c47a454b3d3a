// Package ghcli wraps go-gh/v2's gh CLI invocation for the read-only
// listing/viewing calls internal/orchestrator's PR context gatherer makes
// (gh pr view, gh pr diff). Mutating gh calls (gh pr create, gh repo clone)
// stay as allow-listed Bash-style invocations through internal/toolconfig
// and the agent's own tool surface, not through this package.
package ghcli

import (
	"fmt"

	gh "github.com/cli/go-gh/v2"

	"github.com/forgepilot/swe-orchestrator/internal/github"
)

// Runner implements github.CommandRunner over go-gh/v2's gh.Exec, which
// resolves and runs the gh binary the same way the teacher's
// RealCommandRunner does but also handles gh's own config/auth resolution
// (GH_CONFIG_DIR, keyring-backed tokens) instead of relying solely on the
// GITHUB_TOKEN/GH_TOKEN env vars github.WithGitHubTokenEnv sets.
//
// Only name == "gh" is supported; anything else is a caller error, since
// this runner exists specifically for the gh-CLI read path.
type Runner struct{}

// Run executes `gh <args...>` via go-gh/v2, combining stdout and stderr to
// match github.CommandRunner's contract.
func (Runner) Run(name string, args ...string) ([]byte, error) {
	if name != "gh" {
		return nil, fmt.Errorf("ghcli: unsupported command %q, only gh is wrapped", name)
	}
	stdout, stderr, err := gh.Exec(args...)
	if err != nil {
		if stderr.Len() > 0 {
			return stderr.Bytes(), fmt.Errorf("ghcli: gh %v: %w", args, err)
		}
		return stdout.Bytes(), fmt.Errorf("ghcli: gh %v: %w", args, err)
	}
	return stdout.Bytes(), nil
}

// RunInDir is unsupported: gh CLI read calls used here are repo-scoped via
// --repo rather than the working directory, so no caller needs it.
func (Runner) RunInDir(_, name string, args ...string) ([]byte, error) {
	return nil, fmt.Errorf("ghcli: RunInDir not supported, use --repo instead")
}

var _ github.CommandRunner = Runner{}
