package framework

import "errors"

var (
	// Fail-fast conditions that abort a run.
	ErrEmptyRequirement   = errors.New("no requirement provided")
	ErrEmptyRepositoryMap = errors.New("repository map is empty")
	ErrNoObjectives       = errors.New("no objectives parsed from requirement")
	ErrEmptyPlan          = errors.New("plan is empty")

	// Code change rejections.
	ErrAbsolutePath      = errors.New("absolute file paths are not allowed")
	ErrPathOutsideRepo   = errors.New("path resolves outside the repository")
	ErrFunctionExists    = errors.New("function already exists")
	ErrFunctionNotFound  = errors.New("function not found")
	ErrNoFunctionName    = errors.New("no function definition in code")
	ErrUnsupportedAction = errors.New("unsupported code change action")
	ErrUnsupportedSource = errors.New("no parser registered for file")

	// Startup failures.
	ErrMissingCredentials = errors.New("missing model backend credentials")
	ErrTargetNotWritable  = errors.New("target directory is not writable")
	ErrTargetIsToolDir    = errors.New("target directory is the tool's own directory")
)
