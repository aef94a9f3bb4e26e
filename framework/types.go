package framework

import (
	"strings"
	"time"
)

// Objective is one actionable unit of work decomposed from a requirement.
type Objective = string

// PlanEntry is one ordered step of a Plan.
type PlanEntry struct {
	Objective string   `json:"objective"`
	Tasks     []string `json:"tasks,omitempty"`
}

// Action names a supported code change operation.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
)

// NormalizeAction maps the action spellings models produce onto the two
// supported actions. The second return is false for anything else.
func NormalizeAction(raw string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "add", "add_function":
		return ActionAdd, true
	case "update", "modify":
		return ActionUpdate, true
	default:
		return Action(strings.ToLower(strings.TrimSpace(raw))), false
	}
}

// CodeChange is a proposed edit to a single repository file.
type CodeChange struct {
	Action string `json:"action" validate:"required"`
	File   string `json:"file" validate:"required"`
	Code   string `json:"code" validate:"required"`
}

// FunctionRecord describes the completeness of one function.
type FunctionRecord struct {
	File        string `json:"file"`
	Function    string `json:"function"`
	IsComplete  bool   `json:"is_complete"`
	Suggestions string `json:"suggestions,omitempty"`
}

// Objective renders the descriptive objective used to repair the function.
func (r FunctionRecord) Objective() string {
	return "Complete the function '" + r.Function + "' in '" + r.File + "'"
}

// ChangeEntry is one undoable write recorded by the change tracker.
type ChangeEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	Agent         string    `json:"agent"`
	Action        string    `json:"action"`
	File          string    `json:"file"`
	ContentBefore string    `json:"content_before"`
	ContentAfter  string    `json:"content_after"`
}

// SubPlanStatus is the lifecycle state of a tracked sub-goal.
type SubPlanStatus string

const (
	SubPlanPending   SubPlanStatus = "pending"
	SubPlanCompleted SubPlanStatus = "completed"
)

// SubPlan is a sub-goal inside a tracked plan.
type SubPlan struct {
	Name   string        `json:"name"`
	Status SubPlanStatus `json:"status"`
}

// PlanRecord is one plan tracker entry.
type PlanRecord struct {
	PlanName  string    `json:"plan_name"`
	SubPlans  []SubPlan `json:"sub_plans"`
	CreatedAt time.Time `json:"timestamp"`
}

// PendingSubPlan addresses a sub-goal that has not completed yet.
type PendingSubPlan struct {
	PlanName    string `json:"plan_name"`
	SubPlanName string `json:"sub_plan_name"`
}
