package ghreview

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveVerdictNoFindingsIsReadyToMerge(t *testing.T) {
	verdict, blockers, line := DeriveVerdict(VerdictInput{})
	require.Equal(t, VerdictReadyToMerge, verdict)
	require.Empty(t, blockers)
	require.Equal(t, "Ready to merge", line)
}

func TestDeriveVerdictOnlyLowFindingsIsReadyToMerge(t *testing.T) {
	verdict, _, _ := DeriveVerdict(VerdictInput{
		Findings: []Finding{{Severity: SeverityLow, Title: "nit"}},
	})
	require.Equal(t, VerdictReadyToMerge, verdict)
}

func TestDeriveVerdictHighOrMediumFindingNeedsRevision(t *testing.T) {
	verdict, _, _ := DeriveVerdict(VerdictInput{
		Findings: []Finding{{Severity: SeverityMedium, Title: "fix this"}},
	})
	require.Equal(t, VerdictNeedsRevision, verdict)
}

func TestDeriveVerdictBranchBehindWithoutBlockersIsNeedsRevision(t *testing.T) {
	verdict, _, _ := DeriveVerdict(VerdictInput{BranchBehindBase: true})
	require.Equal(t, VerdictNeedsRevision, verdict)
}

func TestDeriveVerdictMergeConflictIsBlocked(t *testing.T) {
	verdict, blockers, _ := DeriveVerdict(VerdictInput{HasMergeConflicts: true})
	require.Equal(t, VerdictBlocked, verdict)
	require.Len(t, blockers, 1)
}

func TestDeriveVerdictCriticalFindingIsBlocked(t *testing.T) {
	verdict, blockers, _ := DeriveVerdict(VerdictInput{
		Findings: []Finding{{Severity: SeverityCritical, Category: "security", Title: "sql injection"}},
	})
	require.Equal(t, VerdictBlocked, verdict)
	require.Contains(t, blockers[0], "Critical finding")
}

// TestCIOnlyBlockGetsReadyOnceCIPassesLine implements spec.md's requirement
// that the "Ready once CI passes" one-liner appears only when CI is the
// sole blocking condition.
func TestCIOnlyBlockGetsReadyOnceCIPassesLine(t *testing.T) {
	verdict, _, line := DeriveVerdict(VerdictInput{FailedChecks: []string{"unit-tests"}})
	require.Equal(t, VerdictBlocked, verdict)
	require.Equal(t, "Ready once CI passes", line)
}

func TestCIBlockWithCodeBlockerDoesNotGetReadyOnceCILine(t *testing.T) {
	_, _, line := DeriveVerdict(VerdictInput{
		FailedChecks: []string{"unit-tests"},
		Findings:     []Finding{{Severity: SeverityCritical, Title: "bug"}},
	})
	require.NotEqual(t, "Ready once CI passes", line)
}

// TestS8CIRecovery implements spec.md's literal S8 scenario.
func TestS8CIRecovery(t *testing.T) {
	// Previous follow-up: BLOCKED solely due to failing CI.
	previous := &PRReviewResult{
		Verdict:  VerdictBlocked,
		Blockers: []string{"CI Failed: unit-tests"},
		Findings: nil,
	}

	// Next poll: CI now passing, no new commits, no findings.
	verdict, blockers, _ := DeriveVerdict(VerdictInput{CIStatus: CIPassing})
	require.Equal(t, VerdictReadyToMerge, verdict)
	require.Empty(t, blockers)
	require.NotEqual(t, previous.Verdict, verdict)
}

// TestVerdictMonotonicityWrtBlockers implements testable property 10:
// adding a blocker never improves the verdict.
func TestVerdictMonotonicityWrtBlockers(t *testing.T) {
	base := VerdictInput{Findings: []Finding{{Severity: SeverityLow}}}
	baseVerdict, _, _ := DeriveVerdict(base)

	withBlocker := base
	withBlocker.HasMergeConflicts = true
	blockedVerdict, _, _ := DeriveVerdict(withBlocker)

	require.GreaterOrEqual(t, blockedVerdict.Rank(), baseVerdict.Rank())
}

func TestDeriveVerdictRedundancyHighIsBlocked(t *testing.T) {
	verdict, blockers, _ := DeriveVerdict(VerdictInput{
		Findings: []Finding{{Severity: SeverityHigh, Category: categoryRedundancy, Title: "duplicate helper"}},
	})
	require.Equal(t, VerdictBlocked, verdict)
	require.Contains(t, blockers[0], "Redundant change")
}

func TestDeriveVerdictVerificationFailedIsBlocked(t *testing.T) {
	verdict, blockers, _ := DeriveVerdict(VerdictInput{
		Findings: []Finding{{Severity: SeverityLow, Category: categoryVerificationFailed, Title: "unverifiable perf claim"}},
	})
	require.Equal(t, VerdictBlocked, verdict)
	require.Contains(t, blockers[0], "Unverifiable claim")
}

func TestDeriveVerdictAwaitingApprovalIsBlocked(t *testing.T) {
	verdict, blockers, _ := DeriveVerdict(VerdictInput{AwaitingApproval: true})
	require.Equal(t, VerdictBlocked, verdict)
	require.Contains(t, blockers[0], "awaiting maintainer approval")
}

func TestDeriveVerdictStructuralHighIsBlocked(t *testing.T) {
	verdict, _, _ := DeriveVerdict(VerdictInput{
		StructuralIssues: []Finding{{Severity: SeverityHigh, Title: "circular dependency"}},
	})
	require.Equal(t, VerdictBlocked, verdict)
}
