package runner

import (
	"context"
	"errors"
	"os"

	"autograder/internal/grader/sandbox/engine"
	"autograder/internal/grader/sandbox/result"
	"autograder/internal/grader/sandbox/spec"
	appErr "autograder/pkg/errors"
)

// DefaultRunner implements build and run workflows on top of an engine.
type DefaultRunner struct {
	eng engine.Engine
}

// NewRunner creates a runner backed by eng.
func NewRunner(eng engine.Engine) *DefaultRunner {
	return &DefaultRunner{eng: eng}
}

// Build turns the submission root into a runnable artifact.
// Interpreted languages only need their entry file to exist.
func (r *DefaultRunner) Build(ctx context.Context, req BuildRequest) (result.Artifact, error) {
	if req.Root == "" {
		return result.Artifact{}, appErr.ValidationError("root", "required")
	}
	if req.Language.ID == "" || req.Language.EntryFile == "" {
		return result.Artifact{}, appErr.ValidationError("language", "required")
	}
	vars, err := newTemplateVars(req.Root, req.Language)
	if err != nil {
		return result.Artifact{}, appErr.Wrap(err, appErr.JudgeSystemError)
	}
	if err := checkEntryPoint(vars.Src, req.Language.EntryFile); err != nil {
		return result.Artifact{}, err
	}
	if err := variantFor(req.Language).build(ctx, r.eng, req, vars); err != nil {
		return result.Artifact{}, err
	}
	cmd, err := buildCommand(req.Language.RunCmdTpl, vars)
	if err != nil {
		return result.Artifact{}, err
	}
	return result.Artifact{
		LanguageID: req.Language.ID,
		Root:       vars.Dir,
		Cmd:        cmd,
		Env:        req.Language.Env,
	}, nil
}

// Run executes the artifact once with input as its entire stdin.
func (r *DefaultRunner) Run(ctx context.Context, req RunRequest) (result.ExecutionOutcome, error) {
	if len(req.Artifact.Cmd) == 0 {
		return result.ExecutionOutcome{}, appErr.ValidationError("artifact", "required")
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultCaseTimeout
	}
	return r.eng.Run(ctx, spec.RunSpec{
		SubmissionID: req.SubmissionID,
		TaskID:       req.TaskID,
		WorkDir:      req.Artifact.Root,
		Cmd:          req.Artifact.Cmd,
		Env:          req.Artifact.Env,
		Stdin:        req.Input,
		Timeout:      timeout,
	})
}

func checkEntryPoint(path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return appErr.Newf(appErr.EntryPointNotFound, "%s not found in submission", name).
				WithDetail("entry_file", name)
		}
		return appErr.Wrapf(err, appErr.JudgeSystemError, "stat entry file failed")
	}
	if info.IsDir() {
		return appErr.Newf(appErr.EntryPointNotFound, "%s is a directory", name).
			WithDetail("entry_file", name)
	}
	return nil
}

