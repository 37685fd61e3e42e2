// Package sandbox grades one materialized submission against its test cases.
package sandbox

import (
	"context"
	"time"

	"autograder/internal/grader/sandbox/result"
)

// Grader is the high-level grading entrypoint used by the service layer.
type Grader interface {
	Grade(ctx context.Context, req GradeRequest) (result.GradeReport, error)
}

// GradeRequest contains all data needed to grade one submission.
// Root must point to a local directory prepared before calling the grader.
type GradeRequest struct {
	SubmissionID string
	Root         string
	LanguageID   string
	Tests        []result.TestCase
	// Timeout bounds each case run; zero uses the worker default.
	Timeout time.Duration
}

// ProgressReporter receives each case result as soon as it is scored.
type ProgressReporter interface {
	ReportCase(ctx context.Context, submissionID string, index, total int, res result.CaseResult)
}
