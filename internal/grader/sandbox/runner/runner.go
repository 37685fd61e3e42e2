package runner

import (
	"context"
	"time"

	"autograder/internal/grader/sandbox/profile"
	"autograder/internal/grader/sandbox/result"
)

// DefaultCaseTimeout bounds one case run when the request carries none.
const DefaultCaseTimeout = 10 * time.Second

// BuildRequest describes a build of one submission root.
type BuildRequest struct {
	SubmissionID string
	Root         string
	Language     profile.LanguageSpec
	Timeout      time.Duration
}

// RunRequest describes one case run of a built artifact.
type RunRequest struct {
	SubmissionID string
	TaskID       string
	Artifact     result.Artifact
	Input        string
	Timeout      time.Duration
}

// Runner builds submissions and runs their artifacts.
type Runner interface {
	Build(ctx context.Context, req BuildRequest) (result.Artifact, error)
	Run(ctx context.Context, req RunRequest) (result.ExecutionOutcome, error)
}
