package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lexcodex/gitagent/framework"
	"github.com/lexcodex/gitagent/tools"
)

// UndoCommand is the requirement text that triggers undo instead of a run.
const UndoCommand = "undo changes"

// MainPlanName is the tracker name of a run's top-level plan.
const MainPlanName = "Main Plan"

type runState string

const (
	stateStart            runState = "START"
	stateRepoMapped       runState = "REPO_MAPPED"
	stateObjectivesParsed runState = "OBJECTIVES_PARSED"
	statePlanCreated      runState = "PLAN_CREATED"
	stateSubgoalLoop      runState = "SUBGOAL_LOOP"
	stateValidation       runState = "VALIDATION"
	stateCompletionRetry  runState = "COMPLETION_RETRY_LOOP"
	stateDocsUpdated      runState = "DOCS_UPDATED"
	stateOptionalPublish  runState = "OPTIONAL_PUBLISH"
	stateDone             runState = "DONE"
)

// Publisher pushes a run's files and opens a pull request.
type Publisher interface {
	Publish(ctx context.Context, req tools.PublishRequest) (*tools.PublishResult, error)
}

// CoordinatorConfig holds the run policy.
type CoordinatorConfig struct {
	MaxCompletionRetries int
	ReadmeFile           string
	Branch               string
	Base                 string
}

// DefaultCoordinatorConfig mirrors the configuration defaults.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		MaxCompletionRetries: 3,
		ReadmeFile:           "README.md",
		Branch:               "auto-update-branch",
		Base:                 "main",
	}
}

// RunReport is the outcome of one requirement.
type RunReport struct {
	RunID          string
	Requirement    string
	Objectives     []string
	Applied        []framework.CodeChange
	Skipped        int
	Incomplete     []framework.FunctionRecord
	Retries        int
	Published      bool
	PullRequestURL string
	// Undo is set when the requirement was the undo command.
	Undo *UndoReport
}

// Coordinator sequences the stages for one requirement at a time.
type Coordinator struct {
	rt        *Runtime
	Config    CoordinatorConfig
	Publisher Publisher

	mapper       *RepositoryMapper
	query        *QueryUnderstanding
	planner      *Planner
	retriever    *ContextRetriever
	intermediate *IntermediateProcessor
	answer       *AnswerGenerator
	writer       *CodeWriter
	reflector    *SelfReflector
	validator    *CodeValidator
	docs         *DocsUpdater
	undoer       *Undoer
	restructurer *DirectoryRestructurer

	clock func() time.Time
	newID func() string
}

// NewCoordinator wires every stage onto rt.
func NewCoordinator(rt *Runtime, cfg CoordinatorConfig) *Coordinator {
	if cfg.MaxCompletionRetries < 0 {
		cfg.MaxCompletionRetries = 0
	}
	mapper := NewRepositoryMapper(rt)
	return &Coordinator{
		rt:           rt,
		Config:       cfg,
		mapper:       mapper,
		query:        NewQueryUnderstanding(rt),
		planner:      NewPlanner(rt),
		retriever:    NewContextRetriever(rt),
		intermediate: NewIntermediateProcessor(rt),
		answer:       NewAnswerGenerator(rt),
		writer:       NewCodeWriter(rt, NewCodeCompleter(rt)),
		reflector:    NewSelfReflector(rt),
		validator:    NewCodeValidator(rt, mapper, NewCompletenessChecker(rt)),
		docs:         NewDocsUpdater(rt, cfg.ReadmeFile),
		undoer:       NewUndoer(rt),
		restructurer: NewDirectoryRestructurer(rt),
		clock:        time.Now,
		newID:        func() string { return uuid.NewString() },
	}
}

// Checker exposes the completeness checker so callers can tune it.
func (c *Coordinator) Checker() *CompletenessChecker { return c.validator.Checker }

func (c *Coordinator) enter(runID string, s runState) {
	c.rt.log("Coordinator").Info("state", zap.String("run_id", runID), zap.String("state", string(s)))
}

// Run processes one requirement. The error is set only for fail-fast
// conditions, a failing prompter or cancellation; everything recoverable
// is reflected in the report instead.
func (c *Coordinator) Run(ctx context.Context, requirement string) (*RunReport, error) {
	requirement = strings.TrimSpace(requirement)
	report := &RunReport{RunID: c.newID(), Requirement: requirement}
	log := c.rt.log("Coordinator").With(zap.String("run_id", report.RunID))
	if requirement == "" {
		return report, framework.ErrEmptyRequirement
	}
	if strings.EqualFold(requirement, UndoCommand) {
		log.Info("undo requested")
		undo, err := c.Undo(ctx)
		report.Undo = undo
		return report, err
	}
	started := c.clock()
	c.enter(report.RunID, stateStart)
	c.rt.report().Status("Starting requirement processing...")

	scan, err := c.mapper.Run(ctx)
	if err != nil {
		return report, fmt.Errorf("map repository: %w", err)
	}
	if len(scan.Files) == 0 {
		c.rt.report().Warn("Failed to map the repository.", framework.ErrEmptyRepositoryMap)
		return report, framework.ErrEmptyRepositoryMap
	}
	repoMap := scan.Names()
	c.enter(report.RunID, stateRepoMapped)

	report.Objectives = c.query.Run(ctx, requirement)
	if len(report.Objectives) == 0 {
		c.rt.report().Warn("No objectives parsed from the requirement.", framework.ErrNoObjectives)
		return report, framework.ErrNoObjectives
	}
	c.enter(report.RunID, stateObjectivesParsed)

	plan := c.planner.Run(ctx, report.Objectives)
	if len(plan) == 0 {
		c.rt.report().Warn("No plan was generated.", framework.ErrEmptyPlan)
		return report, framework.ErrEmptyPlan
	}
	c.trackPlan(MainPlanName, planObjectives(plan))
	c.enter(report.RunID, statePlanCreated)

	c.enter(report.RunID, stateSubgoalLoop)
	for i, entry := range plan {
		if entry.Objective == "" {
			log.Warn("plan entry without objective skipped", zap.Int("index", i))
			c.rt.report().Warn(fmt.Sprintf("Plan entry %d has no objective; skipping.", i+1), nil)
			continue
		}
		c.rt.report().Status("Executing sub-objective: " + entry.Objective)
		res, err := c.processObjective(ctx, entry.Objective, repoMap)
		if err != nil {
			return report, err
		}
		c.collect(report, res)
		if len(res.Applied) > 0 {
			c.markDone(MainPlanName, entry.Objective)
			c.reflector.Run(ctx, res.Applied)
			if scan, err := c.mapper.Run(ctx); err == nil {
				repoMap = scan.Names()
			}
		}
	}

	c.enter(report.RunID, stateValidation)
	incomplete, err := c.validator.Run(ctx)
	if err != nil {
		return report, fmt.Errorf("validate repository: %w", err)
	}

	c.enter(report.RunID, stateCompletionRetry)
	for report.Retries < c.Config.MaxCompletionRetries && len(incomplete) > 0 {
		report.Retries++
		c.rt.Metrics.Retry()
		c.rt.report().Status(fmt.Sprintf("Attempt %d to complete incomplete functions.", report.Retries))
		for _, rec := range incomplete {
			planName := "Complete Function: " + rec.Function
			objective := rec.Objective()
			c.trackPlan(planName, []string{objective})
			res, err := c.processObjective(ctx, objective, c.currentMap(repoMap))
			if err != nil {
				return report, err
			}
			c.collect(report, res)
			if len(res.Applied) > 0 {
				c.markDone(planName, objective)
			}
		}
		if incomplete, err = c.validator.Run(ctx); err != nil {
			return report, fmt.Errorf("validate repository: %w", err)
		}
	}
	report.Incomplete = incomplete
	if len(incomplete) > 0 {
		log.Warn("functions still incomplete", zap.Int("count", len(incomplete)), zap.Int("attempts", report.Retries))
		c.rt.report().Warn(fmt.Sprintf("Failed to complete all functions after %d attempts.", report.Retries), nil)
	} else {
		c.rt.report().Status("All functions are complete.")
	}

	c.enter(report.RunID, stateDocsUpdated)
	if err := c.docs.Run(ctx, RunSummary{
		RunID:       report.RunID,
		Requirement: requirement,
		Objectives:  report.Objectives,
		Applied:     report.Applied,
		At:          c.clock(),
	}); err != nil {
		log.Error("readme update failed", zap.Error(err))
		c.rt.report().Warn("Failed to update "+c.docs.File, err)
	}

	if c.Publisher != nil {
		c.enter(report.RunID, stateOptionalPublish)
		c.publish(ctx, report, started)
	}
	c.enter(report.RunID, stateDone)
	c.rt.report().Status("Requirement processing completed.")
	return report, nil
}

// processObjective runs context retrieval through code writing for one
// objective.
func (c *Coordinator) processObjective(ctx context.Context, objective string, repoMap map[string][]string) (WriteResult, error) {
	retrieved, relevant := c.retriever.Run(ctx, objective, repoMap)
	additional := c.intermediate.Run(ctx, objective, relevant, retrieved)
	changes := c.answer.Run(ctx, objective, relevant, additional)
	if len(changes) == 0 {
		c.rt.log("Coordinator").Warn("no code changes generated", zap.String("objective", objective))
		c.rt.report().Warn("No code changes generated for: "+objective, nil)
		return WriteResult{}, nil
	}
	return c.writer.Apply(ctx, changes)
}

// Undo reverts every logged change.
func (c *Coordinator) Undo(ctx context.Context) (*UndoReport, error) {
	return c.undoer.Run(ctx)
}

// Restructure reorganises the repository per instructions.
func (c *Coordinator) Restructure(ctx context.Context, instructions string) (*RestructureReport, error) {
	return c.restructurer.Run(ctx, instructions)
}

func (c *Coordinator) publish(ctx context.Context, report *RunReport, since time.Time) {
	log := c.rt.log("Coordinator").With(zap.String("run_id", report.RunID))
	files := map[string]string{}
	for _, entry := range c.rt.Changes.Since(since) {
		if _, seen := files[entry.File]; seen {
			continue
		}
		content, exists, err := c.rt.Workspace.Read(entry.File)
		if err != nil || !exists {
			continue
		}
		files[entry.File] = content
	}
	if len(files) == 0 {
		c.rt.report().Status("Nothing to publish.")
		return
	}
	res, err := c.Publisher.Publish(ctx, tools.PublishRequest{
		Branch:  c.Config.Branch,
		Base:    c.Config.Base,
		Message: "Update based on requirement: " + report.Requirement,
		Title:   "Automated Update",
		Body: "This pull request was automatically generated based on the requirement: " +
			report.Requirement + "\n\nObjectives:\n" + bullets(report.Objectives),
		Files: files,
	})
	if err != nil {
		log.Error("publish failed", zap.Error(err))
		c.rt.report().Warn("Error during GitHub operations", err)
		return
	}
	report.Published = true
	report.PullRequestURL = res.PullRequestURL
	c.rt.report().Status("Pull request created: " + res.PullRequestURL)
}

func (c *Coordinator) collect(report *RunReport, res WriteResult) {
	report.Applied = append(report.Applied, res.Applied...)
	report.Skipped += res.Skipped
}

func (c *Coordinator) currentMap(fallback map[string][]string) map[string][]string {
	if c.rt.Memory == nil {
		return fallback
	}
	var m map[string][]string
	if c.rt.Memory.Decode(RepositoryMappingAgent, "repository_map", &m) && len(m) > 0 {
		return m
	}
	return fallback
}

func (c *Coordinator) trackPlan(name string, goals []string) {
	if c.rt.Plans == nil {
		return
	}
	if err := c.rt.Plans.AddPlan(name, goals); err != nil {
		c.rt.log("Coordinator").Error("plan tracker write failed", zap.String("plan", name), zap.Error(err))
	}
}

func (c *Coordinator) markDone(plan, goal string) {
	if c.rt.Plans == nil {
		return
	}
	if err := c.rt.Plans.MarkSubPlanCompleted(plan, goal); err != nil {
		c.rt.log("Coordinator").Error("plan tracker write failed", zap.String("plan", plan), zap.Error(err))
	}
}

func planObjectives(plan []framework.PlanEntry) []string {
	out := make([]string, 0, len(plan))
	for _, entry := range plan {
		if entry.Objective != "" {
			out = append(out, entry.Objective)
		}
	}
	return out
}
