package engine

import (
	"context"

	"autograder/internal/grader/sandbox/result"
	"autograder/internal/grader/sandbox/spec"
)

// Engine executes a RunSpec as a subprocess.
type Engine interface {
	// Run returns an error only for an invalid spec or a cancelled ctx.
	// Launch failures, timeouts and non-zero exits are reported in the outcome.
	Run(ctx context.Context, runSpec spec.RunSpec) (result.ExecutionOutcome, error)
}
