package sandbox

import (
	"context"
	"fmt"
	"time"

	"autograder/internal/grader/sandbox/config"
	"autograder/internal/grader/sandbox/result"
	"autograder/internal/grader/sandbox/runner"
	"autograder/internal/grader/sandbox/scorer"
	appErr "autograder/pkg/errors"
	"autograder/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultCompileTimeout = 60 * time.Second

// WorkerConfig holds worker timeouts.
type WorkerConfig struct {
	CaseTimeout    time.Duration
	CompileTimeout time.Duration
}

// Worker builds a submission once and runs its cases strictly in order.
type Worker struct {
	runner   runner.Runner
	langRepo config.Repository
	cfg      WorkerConfig
	reporter ProgressReporter
}

// NewWorker creates a new worker with required dependencies.
func NewWorker(r runner.Runner, langRepo config.Repository, cfg WorkerConfig) *Worker {
	if cfg.CaseTimeout <= 0 {
		cfg.CaseTimeout = runner.DefaultCaseTimeout
	}
	if cfg.CompileTimeout <= 0 {
		cfg.CompileTimeout = defaultCompileTimeout
	}
	return &Worker{runner: r, langRepo: langRepo, cfg: cfg}
}

// SetProgressReporter injects a reporter for per-case updates.
func (w *Worker) SetProgressReporter(reporter ProgressReporter) {
	w.reporter = reporter
}

// Grade runs the full grading workflow for one submission.
// Build or compile failures abort the call with no partial report.
func (w *Worker) Grade(ctx context.Context, req GradeRequest) (result.GradeReport, error) {
	if err := validateGradeRequest(req); err != nil {
		return result.GradeReport{}, err
	}
	if w.runner == nil || w.langRepo == nil {
		return result.GradeReport{}, appErr.New(appErr.JudgeSystemError).WithMessage("worker dependencies are not initialized")
	}

	lang, err := w.langRepo.GetLanguageSpec(ctx, req.LanguageID)
	if err != nil {
		return result.GradeReport{}, err
	}
	if len(req.Tests) == 0 {
		return result.EmptyReport(), nil
	}

	buildStart := time.Now()
	artifact, err := w.runner.Build(ctx, runner.BuildRequest{
		SubmissionID: req.SubmissionID,
		Root:         req.Root,
		Language:     lang,
		Timeout:      w.cfg.CompileTimeout,
	})
	if err != nil {
		logger.Warn(ctx, "build failed", zap.String("language", lang.ID), zap.Error(err))
		return result.GradeReport{}, err
	}
	logger.Debug(ctx, "build finished",
		zap.String("language", lang.ID),
		zap.Duration("elapsed", time.Since(buildStart)),
	)

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = w.cfg.CaseTimeout
	}

	tally := scorer.NewTally(len(req.Tests))
	for i, tc := range req.Tests {
		outcome, err := w.runner.Run(ctx, runner.RunRequest{
			SubmissionID: req.SubmissionID,
			TaskID:       fmt.Sprintf("case-%d", i),
			Artifact:     artifact,
			Input:        tc.Input,
			Timeout:      timeout,
		})
		if err != nil {
			return result.GradeReport{}, appErr.Wrapf(err, appErr.JudgeSystemError, "case %d aborted: %v", i, err)
		}
		res := scorer.Score(tc, outcome)
		tally.Add(res)
		if outcome.TimedOut || outcome.FailedToStart {
			logger.Info(ctx, "case did not complete",
				zap.Int("case", i),
				zap.Bool("timed_out", outcome.TimedOut),
				zap.String("start_error", outcome.StartError),
			)
		}
		if w.reporter != nil {
			w.reporter.ReportCase(ctx, req.SubmissionID, i, len(req.Tests), res)
		}
	}

	report := tally.Report()
	logger.Info(ctx, "grading finished",
		zap.String("language", lang.ID),
		zap.Int("cases", len(report.Results)),
		zap.Int("earned_points", report.EarnedPoints),
		zap.Int("total_points", report.TotalPoints),
	)
	return report, nil
}

func validateGradeRequest(req GradeRequest) error {
	if req.Root == "" {
		return appErr.ValidationError("root", "required")
	}
	if req.LanguageID == "" {
		return appErr.ValidationError("language", "required")
	}
	for i, tc := range req.Tests {
		if tc.Points < 0 {
			return appErr.ValidationError(fmt.Sprintf("test_cases[%d].points", i), "must not be negative")
		}
	}
	return nil
}
