package ghreview

import "fmt"

// VerdictInput is everything the shared verdict derivation (spec.md §4.I
// "Verdict derivation (shared)") needs. It is intentionally a plain data
// struct so both the initial and follow-up pipelines can build one from
// their own state and share this single pure function.
type VerdictInput struct {
	HasMergeConflicts bool
	CIStatus          CIStatus
	FailedChecks      []string
	AwaitingApproval  bool
	BranchBehindBase  bool

	Findings         []Finding
	StructuralIssues []Finding
	AICommentTriages []Finding
}

// blockerCategoryVerificationFailed/Redundancy are the two Finding
// categories the blocker list singles out, per spec.md §4.I step 8.
const (
	categoryVerificationFailed = "verification_failed"
	categoryRedundancy         = "redundancy"
)

// DeriveVerdict computes blockers (in the evaluation priority spec.md
// §4.I lists) and the resulting Verdict plus a deterministic bottom-line
// one-liner. It is a pure function: no I/O, no side effects.
func DeriveVerdict(in VerdictInput) (Verdict, []string, string) {
	var blockers []string
	hardBlocker := false

	if in.HasMergeConflicts {
		blockers = append(blockers, "Merge conflicts must be resolved")
		hardBlocker = true
	}

	for _, check := range in.FailedChecks {
		blockers = append(blockers, fmt.Sprintf("CI Failed: %s", check))
		hardBlocker = true
	}
	if in.CIStatus == CIFailing && len(in.FailedChecks) == 0 {
		blockers = append(blockers, "CI Failed")
		hardBlocker = true
	}

	if in.AwaitingApproval {
		blockers = append(blockers, "Workflow runs are awaiting maintainer approval")
		hardBlocker = true
	}

	for _, f := range in.Findings {
		if f.Category == categoryVerificationFailed {
			blockers = append(blockers, fmt.Sprintf("Unverifiable claim: %s", f.Title))
			hardBlocker = true
		}
	}

	for _, f := range in.Findings {
		if f.Category == categoryRedundancy && (f.Severity == SeverityHigh || f.Severity == SeverityCritical) {
			blockers = append(blockers, fmt.Sprintf("Redundant change (%s): %s", f.Severity, f.Title))
			hardBlocker = true
		}
	}

	for _, f := range in.Findings {
		if f.Severity == SeverityCritical {
			blockers = append(blockers, fmt.Sprintf("Critical finding (%s): %s", f.Category, f.Title))
			hardBlocker = true
		}
	}

	for _, s := range in.StructuralIssues {
		if s.Severity == SeverityHigh || s.Severity == SeverityCritical {
			blockers = append(blockers, fmt.Sprintf("Structural issue (%s): %s", s.Severity, s.Title))
			hardBlocker = true
		}
	}

	for _, t := range in.AICommentTriages {
		if t.Severity == SeverityCritical {
			blockers = append(blockers, fmt.Sprintf("AI-tool comment triaged critical: %s", t.Title))
			hardBlocker = true
		}
	}

	verdict := mapVerdict(in, hardBlocker)
	reasoning := bottomLine(verdict, in, blockers)
	return verdict, blockers, reasoning
}

func mapVerdict(in VerdictInput, hardBlocker bool) Verdict {
	if hardBlocker {
		return VerdictBlocked
	}
	if in.BranchBehindBase {
		return VerdictNeedsRevision
	}

	highestNonCritical := highestFindingSeverity(in.Findings)
	switch highestNonCritical {
	case SeverityHigh, SeverityMedium:
		return VerdictNeedsRevision
	case SeverityLow:
		return VerdictReadyToMerge
	default:
		return VerdictReadyToMerge
	}
}

func highestFindingSeverity(findings []Finding) Severity {
	rank := map[Severity]int{SeverityLow: 1, SeverityMedium: 2, SeverityHigh: 3, SeverityCritical: 4}
	var best Severity
	bestRank := 0
	for _, f := range findings {
		if r := rank[f.Severity]; r > bestRank {
			bestRank = r
			best = f.Severity
		}
	}
	return best
}

// bottomLine renders the deterministic one-liner. "Ready once CI passes"
// is only used when the sole blocking condition is CI and there are no
// code-blocking findings, per spec.md §4.I's closing requirement.
func bottomLine(verdict Verdict, in VerdictInput, blockers []string) string {
	hasCodeBlocker := false
	for _, f := range in.Findings {
		if f.Severity == SeverityCritical || f.Category == categoryVerificationFailed {
			hasCodeBlocker = true
		}
	}
	for _, s := range in.StructuralIssues {
		if s.Severity == SeverityHigh || s.Severity == SeverityCritical {
			hasCodeBlocker = true
		}
	}

	onlyCIBlocked := verdict == VerdictBlocked && !in.HasMergeConflicts && !hasCodeBlocker &&
		(in.CIStatus == CIFailing || len(in.FailedChecks) > 0 || in.AwaitingApproval)

	switch {
	case onlyCIBlocked:
		return "Ready once CI passes"
	case verdict == VerdictBlocked:
		return fmt.Sprintf("Blocked: %d blocker(s) must be resolved", len(blockers))
	case verdict == VerdictNeedsRevision:
		return "Needs revision before merge"
	default:
		return "Ready to merge"
	}
}
