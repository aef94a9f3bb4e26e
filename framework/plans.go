package framework

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lexcodex/gitagent/persistence"
)

// PlanTrackerFileName is the plan tracker's backing document.
const PlanTrackerFileName = "plan_tracker.json"

// PlanTracker records every plan registered during runs together with the
// status of its sub-goals. Plans are never removed and a completed sub-goal
// never returns to pending.
type PlanTracker struct {
	mu    sync.Mutex
	path  string
	plans []PlanRecord
	log   *zap.Logger
	clock func() time.Time
}

// NewPlanTracker loads the tracker kept in dir.
func NewPlanTracker(dir string, log *zap.Logger) (*PlanTracker, error) {
	if dir == "" {
		return nil, errors.New("plan tracker directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	t := &PlanTracker{path: filepath.Join(dir, PlanTrackerFileName), log: log, clock: time.Now}
	if _, err := persistence.ReadJSON(t.path, &t.plans); err != nil {
		return nil, err
	}
	return t, nil
}

// AddPlan registers a plan with every sub-goal pending.
func (t *PlanTracker) AddPlan(name string, subGoals []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	record := PlanRecord{PlanName: name, CreatedAt: t.clock().UTC(), SubPlans: make([]SubPlan, 0, len(subGoals))}
	for _, goal := range subGoals {
		record.SubPlans = append(record.SubPlans, SubPlan{Name: goal, Status: SubPlanPending})
	}
	next := append(append([]PlanRecord(nil), t.plans...), record)
	if err := persistence.WriteJSON(t.path, next); err != nil {
		return err
	}
	t.plans = next
	t.log.Info("plan registered", zap.String("plan", name), zap.Int("sub_plans", len(subGoals)))
	return nil
}

// MarkSubPlanCompleted completes the first pending sub-goal with the given
// name in the most recent plan carrying planName. A miss is logged and
// otherwise ignored.
func (t *PlanTracker) MarkSubPlanCompleted(planName, subPlanName string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	planIdx, subIdx := -1, -1
	for i := len(t.plans) - 1; i >= 0 && planIdx < 0; i-- {
		if t.plans[i].PlanName != planName {
			continue
		}
		for j, sp := range t.plans[i].SubPlans {
			if sp.Name == subPlanName && sp.Status != SubPlanCompleted {
				planIdx, subIdx = i, j
				break
			}
		}
	}
	if planIdx < 0 {
		t.log.Warn("sub-plan not found or already completed",
			zap.String("plan", planName), zap.String("sub_plan", subPlanName))
		return nil
	}
	next := clonePlans(t.plans)
	next[planIdx].SubPlans[subIdx].Status = SubPlanCompleted
	if err := persistence.WriteJSON(t.path, next); err != nil {
		return err
	}
	t.plans = next
	t.log.Info("sub-plan completed", zap.String("plan", planName), zap.String("sub_plan", subPlanName))
	return nil
}

// PendingSubPlans lists every sub-goal still pending, in registration order.
func (t *PlanTracker) PendingSubPlans() []PendingSubPlan {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []PendingSubPlan
	for _, p := range t.plans {
		for _, sp := range p.SubPlans {
			if sp.Status == SubPlanPending {
				out = append(out, PendingSubPlan{PlanName: p.PlanName, SubPlanName: sp.Name})
			}
		}
	}
	return out
}

// HasPendingSubPlans reports whether any sub-goal is still pending.
func (t *PlanTracker) HasPendingSubPlans() bool {
	return len(t.PendingSubPlans()) > 0
}

// Plans returns a copy of every tracked plan.
func (t *PlanTracker) Plans() []PlanRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return clonePlans(t.plans)
}

func clonePlans(in []PlanRecord) []PlanRecord {
	out := make([]PlanRecord, len(in))
	for i, p := range in {
		out[i] = p
		out[i].SubPlans = append([]SubPlan(nil), p.SubPlans...)
	}
	return out
}
