package framework

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlanTrackerLifecycle(t *testing.T) {
	dir := t.TempDir()
	tracker, err := NewPlanTracker(dir, nil)
	require.NoError(t, err)
	require.False(t, tracker.HasPendingSubPlans())

	require.NoError(t, tracker.AddPlan("Main Plan", []string{"obj 1", "obj 2"}))
	require.True(t, tracker.HasPendingSubPlans())
	require.Equal(t, []PendingSubPlan{
		{PlanName: "Main Plan", SubPlanName: "obj 1"},
		{PlanName: "Main Plan", SubPlanName: "obj 2"},
	}, tracker.PendingSubPlans())

	require.NoError(t, tracker.MarkSubPlanCompleted("Main Plan", "obj 1"))
	require.Equal(t, []PendingSubPlan{{PlanName: "Main Plan", SubPlanName: "obj 2"}}, tracker.PendingSubPlans())

	reloaded, err := NewPlanTracker(dir, nil)
	require.NoError(t, err)
	require.Equal(t, tracker.Plans(), reloaded.Plans())
}

func TestPlanTrackerMissIsNonFatal(t *testing.T) {
	tracker, err := NewPlanTracker(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, tracker.AddPlan("Main Plan", []string{"obj"}))
	require.NoError(t, tracker.MarkSubPlanCompleted("Other Plan", "obj"))
	require.NoError(t, tracker.MarkSubPlanCompleted("Main Plan", "unknown"))
	require.True(t, tracker.HasPendingSubPlans())
}

func TestPlanTrackerStatusIsMonotonic(t *testing.T) {
	tracker, err := NewPlanTracker(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, tracker.AddPlan("Complete Function: f", []string{"Complete the function 'f' in 'a.py'"}))
	require.NoError(t, tracker.MarkSubPlanCompleted("Complete Function: f", "Complete the function 'f' in 'a.py'"))

	// Further calls, including re-registration of the same plan name, never
	// flip the completed entry back.
	require.NoError(t, tracker.MarkSubPlanCompleted("Complete Function: f", "Complete the function 'f' in 'a.py'"))
	require.NoError(t, tracker.AddPlan("Complete Function: f", []string{"Complete the function 'f' in 'a.py'"}))
	plans := tracker.Plans()
	require.Len(t, plans, 2)
	require.Equal(t, SubPlanCompleted, plans[0].SubPlans[0].Status)
	require.Equal(t, SubPlanPending, plans[1].SubPlans[0].Status)
}

func TestPlanTrackerDuplicateSubGoals(t *testing.T) {
	tracker, err := NewPlanTracker(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, tracker.AddPlan("Main Plan", []string{"same", "same"}))
	require.NoError(t, tracker.MarkSubPlanCompleted("Main Plan", "same"))
	require.Len(t, tracker.PendingSubPlans(), 1)
	require.NoError(t, tracker.MarkSubPlanCompleted("Main Plan", "same"))
	require.False(t, tracker.HasPendingSubPlans())
}
