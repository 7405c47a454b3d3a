// Package worktree implements the Worktree & Git State Manager: creation
// and teardown of detached per-task worktrees, age/count-bounded cleanup,
// and orphan reclamation.
//
// Grounded on runners/github/services/pr_worktree_manager.py from the
// original implementation (the same name format, cleanup ordering, and
// removal fallback chain) and on the teacher's git invocation conventions
// carried into internal/gitadapter.
package worktree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/forgepilot/swe-orchestrator/internal/gitadapter"
	botidentity "github.com/forgepilot/swe-orchestrator/internal/github/operations/git"
)

const (
	// DefaultMaxWorktrees bounds how many worktrees are kept once age-based
	// cleanup has run.
	DefaultMaxWorktrees = 10
	// DefaultMaxAge bounds how old a worktree may get before cleanup removes it.
	DefaultMaxAge = 7 * 24 * time.Hour

	createTimeout = 120 * time.Second
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9._\-]+$`)

// Entry describes one on-disk worktree directory under the managed root.
type Entry struct {
	Path string
	Age  time.Duration
}

// Manager owns the lifecycle of every worktree under root (a path relative
// to, or absolute under, the git project directory).
type Manager struct {
	Git  *gitadapter.Adapter
	Repo string // the git project directory (worktree add/remove/list run here)
	Root string // directory containing all managed worktrees

	MaxWorktrees int
	MaxAge       time.Duration

	// BotID and AppName identify the GitHub App commits made inside a
	// created worktree attribute to. BotID of 0 skips identity setup
	// entirely (e.g. no GitHub App configured, a bare PAT is in use).
	BotID   int
	AppName string
}

// New returns a Manager with spec-default cleanup bounds.
func New(git *gitadapter.Adapter, repo, root string) *Manager {
	return &Manager{
		Git:          git,
		Repo:         repo,
		Root:         root,
		MaxWorktrees: DefaultMaxWorktrees,
		MaxAge:       DefaultMaxAge,
	}
}

// Name builds the worktree directory name <prefix>-<id>-<short-sha>-<ms-timestamp>.
// The millisecond timestamp guarantees uniqueness across quick succession.
func Name(prefix, id, sha string, nowMillis int64) string {
	short := sha
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s-%s-%s-%d", prefix, id, short, nowMillis)
}

// Create runs cleanup, then registers a new detached worktree at
// <root>/<prefix>-<id>-<sha8>-<nowMillis> checked out to sha.
//
// Protocol: (1) best-effort fetch of sha from origin (needed for fork refs,
// non-fatal); (2) worktree add --detach with a bounded timeout; (3) verify
// the path exists; any failure removes a partially created directory.
func (m *Manager) Create(ctx context.Context, prefix, id, sha string, nowMillis int64) (string, error) {
	if !idPattern.MatchString(id) {
		return "", fmt.Errorf("worktree: invalid id %q", id)
	}
	if err := gitadapter.ValidateRef(sha); err != nil {
		return "", fmt.Errorf("worktree: invalid sha: %w", err)
	}

	if _, err := m.Cleanup(ctx, false); err != nil {
		// Cleanup failures should not block creation; surface via caller logs.
		_ = err
	}

	if err := os.MkdirAll(m.Root, 0o755); err != nil {
		return "", fmt.Errorf("worktree: create root: %w", err)
	}

	name := Name(prefix, id, sha, nowMillis)
	path := filepath.Join(m.Root, name)

	// The millisecond timestamp in Name makes a collision exceedingly rare,
	// but two sessions for the same id/sha created within the same
	// millisecond would otherwise race on this path; a uuid suffix breaks
	// the tie without disturbing Name's documented format.
	if _, err := os.Stat(path); err == nil {
		path = path + "-" + uuid.NewString()[:8]
	}

	// Fetch is best-effort: forked-repo PR heads live only on origin, and a
	// failure here must not block worktree creation from an already-local sha.
	_ = m.Git.Fetch(ctx, m.Repo, "origin", sha)

	createCtx, cancel := context.WithTimeout(ctx, createTimeout)
	defer cancel()

	if err := m.Git.WorktreeAdd(createCtx, m.Repo, path, sha); err != nil {
		os.RemoveAll(path)
		return "", fmt.Errorf("worktree: create: %w", err)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		os.RemoveAll(path)
		return "", fmt.Errorf("worktree: reported success but path missing: %s", path)
	}

	if m.BotID != 0 {
		name, email := botidentity.BotIdentity(m.BotID, m.AppName)
		// Identity setup is best-effort: a failure here should not discard an
		// otherwise successfully provisioned worktree, it only means commits
		// made inside it fall back to the ambient git config on the host.
		_ = m.Git.SetLocalIdentity(ctx, path, name, email)
	}

	return path, nil
}

// Remove tears down path via the fallback chain: `worktree remove --force`,
// then on failure a plain directory removal plus `worktree prune`.
func (m *Manager) Remove(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if err := m.Git.WorktreeRemove(ctx, m.Repo, path, true); err == nil {
		return nil
	}

	os.RemoveAll(path)
	return m.Git.WorktreePrune(ctx, m.Repo)
}

// Stats summarizes one cleanup pass.
type Stats struct {
	Orphaned int
	Expired  int
	Excess   int
}

// Total sums all removed worktrees across a cleanup pass.
func (s Stats) Total() int { return s.Orphaned + s.Expired + s.Excess }

// Cleanup runs the three-phase reclamation policy:
//  1. remove directories under root not registered with git (orphans)
//  2. remove worktrees older than MaxAge (skipped when force is true)
//  3. if still over MaxWorktrees, remove the oldest first
func (m *Manager) Cleanup(ctx context.Context, force bool) (Stats, error) {
	var stats Stats

	if _, err := os.Stat(m.Root); os.IsNotExist(err) {
		return stats, nil
	}

	registered, err := m.registeredSet(ctx)
	if err != nil {
		return stats, err
	}

	entries, err := m.listEntries()
	if err != nil {
		return stats, err
	}

	var remaining []Entry
	for _, e := range entries {
		if !registered[e.Path] {
			os.RemoveAll(e.Path)
			stats.Orphaned++
			continue
		}
		remaining = append(remaining, e)
	}

	_ = m.Git.WorktreePrune(ctx, m.Repo)

	if !force && m.MaxAge > 0 {
		var kept []Entry
		for _, e := range remaining {
			if e.Age > m.MaxAge {
				if err := m.Remove(ctx, e.Path); err == nil {
					stats.Expired++
					continue
				}
			}
			kept = append(kept, e)
		}
		remaining = kept
	}

	if m.MaxWorktrees > 0 && len(remaining) > m.MaxWorktrees {
		sort.Slice(remaining, func(i, j int) bool { return remaining[i].Age > remaining[j].Age })
		excess := len(remaining) - m.MaxWorktrees
		for i := 0; i < excess; i++ {
			if err := m.Remove(ctx, remaining[i].Path); err == nil {
				stats.Excess++
			}
		}
	}

	return stats, nil
}

func (m *Manager) registeredSet(ctx context.Context) (map[string]bool, error) {
	entries, err := m.Git.WorktreeList(ctx, m.Repo)
	if err != nil {
		return nil, fmt.Errorf("worktree: list: %w", err)
	}
	set := make(map[string]bool, len(entries))
	for _, e := range entries {
		resolved, err := filepath.Abs(e.Path)
		if err != nil {
			resolved = e.Path
		}
		set[resolved] = true
	}
	return set, nil
}

func (m *Manager) listEntries() ([]Entry, error) {
	dirEntries, err := os.ReadDir(m.Root)
	if err != nil {
		return nil, fmt.Errorf("worktree: read root: %w", err)
	}
	now := time.Now()
	var entries []Entry
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		full := filepath.Join(m.Root, de.Name())
		resolved, err := filepath.Abs(full)
		if err != nil {
			resolved = full
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Path: resolved, Age: now.Sub(info.ModTime())})
	}
	return entries, nil
}
