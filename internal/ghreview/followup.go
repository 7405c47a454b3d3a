package ghreview

import (
	"context"
	"sort"
)

// FileBlob is the per-file blob identity the follow-up pipeline compares
// against a previous review's ReviewedFileBlobs.
type FileBlob struct {
	Path    string
	Status  FileStatus
	BlobSHA string
}

// ContextGatherer fetches the PR state needed for a review pass. Kept as
// an interface (spec.md §9's "resolve structurally ... by interface"
// note) so this package never imports internal/github directly; a
// concrete adapter over the GitHub CLI/API is wired at the composition
// root.
type ContextGatherer interface {
	GatherPRContext(ctx context.Context, repo string, prNumber int) (*PRContext, error)
}

// BlobDiffChangedFiles implements the rebase-resistant fallback from
// spec.md §4.I step 2 / testable property 9 / scenario S7: a file is
// considered changed since the previous review iff it was added, removed,
// or renamed, or its blob SHA differs from the previous review's record.
// Files absent from previousBlobs but present in currentFiles are treated
// as newly tracked (equivalent to "added" for follow-up purposes).
func BlobDiffChangedFiles(previousBlobs map[string]string, currentFiles []FileBlob) []string {
	var changed []string
	for _, f := range currentFiles {
		if f.Status == FileAdded || f.Status == FileDeleted || f.Status == FileRenamed {
			changed = append(changed, f.Path)
			continue
		}
		prevBlob, tracked := previousBlobs[f.Path]
		if !tracked || prevBlob != f.BlobSHA {
			changed = append(changed, f.Path)
		}
	}
	sort.Strings(changed)
	return changed
}

func containsSHA(shas []string, target string) bool {
	for _, s := range shas {
		if s == target {
			return true
		}
	}
	return false
}

// FollowupChangedFiles determines the file set a follow-up review should
// re-examine, per spec.md §4.I step 2. When the previous review's commit
// is still present in the PR's commit list, the PR-scoped files endpoint
// (prFiles, already merge-excluded) is used as-is. Otherwise a rebase or
// force-push is assumed and the function falls back to blob-SHA
// comparison — unless previousBlobs is empty, in which case (DESIGN.md's
// Open Question #2 decision) it falls back to a full re-review of every
// current file rather than erroring.
func FollowupChangedFiles(previousCommitSHA string, prCommitSHAs []string, prFiles []FileBlob, previousBlobs map[string]string) (files []string, fullReview bool, note string) {
	if containsSHA(prCommitSHAs, previousCommitSHA) {
		for _, f := range prFiles {
			files = append(files, f.Path)
		}
		sort.Strings(files)
		return files, false, ""
	}

	if len(previousBlobs) == 0 {
		for _, f := range prFiles {
			files = append(files, f.Path)
		}
		sort.Strings(files)
		return files, true, "no prior reviewed_file_blobs available; fell back to a full re-review instead of a blob-diff follow-up"
	}

	return BlobDiffChangedFiles(previousBlobs, prFiles), false, ""
}

// ClassifyResolution determines a previous finding's resolution status by
// examining whether its (file, line) region changed in the interval diff.
// Per spec.md §4.I step 3, cant_verify is the conservative default when
// the region's change status could not be determined, and callers must
// treat it as unresolved (see TreatAsUnresolved).
func ClassifyResolution(regionChanged bool, determinable bool) ResolutionStatus {
	if !determinable {
		return ResolutionCantVerify
	}
	if regionChanged {
		return ResolutionResolved
	}
	return ResolutionUnresolved
}

// TreatAsUnresolved reports whether status should count against the
// verdict as an open finding; cant_verify is conservatively unresolved.
func TreatAsUnresolved(status ResolutionStatus) bool {
	return status == ResolutionUnresolved || status == ResolutionCantVerify || status == ResolutionPartiallyResolved
}

// RefreshUnchangedHead implements spec.md §4.I step 1: when the current
// head sha equals the previous review's reviewed commit, the verdict is
// recomputed from a fresh CI/merge overlay (overlay.Findings should be
// seeded from previous.Findings by the caller) while everything else
// about the prior result is carried over unchanged.
func RefreshUnchangedHead(previous *PRReviewResult, overlay VerdictInput) *PRReviewResult {
	verdict, blockers, reasoning := DeriveVerdict(overlay)
	refreshed := *previous
	refreshed.Verdict = verdict
	refreshed.Blockers = blockers
	refreshed.VerdictReasoning = reasoning
	return &refreshed
}
