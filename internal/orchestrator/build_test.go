package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgepilot/swe-orchestrator/internal/session"
	"github.com/forgepilot/swe-orchestrator/internal/statusfile"
)

func TestOutcomeToState(t *testing.T) {
	require.Equal(t, statusfile.StateComplete, outcomeToState(session.OutcomeComplete, true))
	require.Equal(t, statusfile.StateError, outcomeToState(session.OutcomeStuck, true))
	require.Equal(t, statusfile.StatePaused, outcomeToState(session.OutcomePaused, true))
	require.Equal(t, statusfile.StateError, outcomeToState(session.OutcomeError, true))
	require.Equal(t, statusfile.StateBuilding, outcomeToState(session.OutcomeContinue, true))
	require.Equal(t, statusfile.StatePlanning, outcomeToState(session.OutcomeContinue, false))
}

func TestBuildStatusCountsSubtasksByStatus(t *testing.T) {
	plan := &session.ImplementationPlan{
		Phases: []*session.Phase{{
			Subtasks: []*session.Subtask{
				{ID: "t1", Status: session.StatusCompleted},
				{ID: "t2", Status: session.StatusInProgress},
				{ID: "t3", Status: session.StatusStuck},
				{ID: "t4", Status: session.StatusPending},
			},
		}},
	}

	s := buildStatus("issue-1", statusfile.StateBuilding, plan, true)
	require.Equal(t, 4, s.Subtasks.Total)
	require.Equal(t, 1, s.Subtasks.Completed)
	require.Equal(t, 1, s.Subtasks.InProgress)
	require.Equal(t, 1, s.Subtasks.Failed)
	require.True(t, s.Active)
}

func TestBuildStatusNoPlanYieldsEmptyCounts(t *testing.T) {
	s := buildStatus("issue-1", statusfile.StatePlanning, nil, false)
	require.Equal(t, 0, s.Subtasks.Total)
	require.True(t, s.Active)
}

func TestBuildStatusCompleteIsInactive(t *testing.T) {
	s := buildStatus("issue-1", statusfile.StateComplete, nil, false)
	require.False(t, s.Active)
}

func TestLoadPlanQuietlyRoundTrips(t *testing.T) {
	specDir := t.TempDir()
	plan := &session.ImplementationPlan{
		Feature:      "demo",
		WorkflowType: session.WorkflowFeature,
		Phases: []*session.Phase{{
			ID:   "phase-1",
			Name: "Build it",
			Subtasks: []*session.Subtask{
				{ID: "t1", Description: "do the thing", Status: session.StatusPending},
			},
		}},
	}
	data, err := plan.Encode()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(specDir, "implementation_plan.json"), data, 0o644))

	loaded, ok := loadPlanQuietly(specDir)
	require.True(t, ok)
	require.Equal(t, "demo", loaded.Feature)
}

func TestLoadPlanQuietlyMissingFile(t *testing.T) {
	specDir := t.TempDir()
	_, ok := loadPlanQuietly(specDir)
	require.False(t, ok)
}

func TestLoadPlanQuietlyMalformedJSON(t *testing.T) {
	specDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(specDir, "implementation_plan.json"), []byte("not json"), 0o644))
	_, ok := loadPlanQuietly(specDir)
	require.False(t, ok)
}
