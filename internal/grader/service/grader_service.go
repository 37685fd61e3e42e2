package service

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"autograder/internal/grader/metadata"
	"autograder/internal/grader/sandbox"
	"autograder/internal/grader/sandbox/config"
	"autograder/internal/grader/sandbox/result"
	"autograder/internal/grader/source"
	appErr "autograder/pkg/errors"
	"autograder/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultLanguage is used when a request names no language.
	DefaultLanguage = "python"

	defaultAcquireWait     = 2 * time.Second
	defaultMetadataTimeout = 5 * time.Second
	repoDirName            = "repo"
)

// SubmitRequest is one grading request.
type SubmitRequest struct {
	URL      string
	Language string
	Tests    []result.TestCase
}

// Score summarizes the points of a report.
type Score struct {
	EarnedPoints int     `json:"earned_points"`
	TotalPoints  int     `json:"total_points"`
	Percentage   float64 `json:"percentage"`
}

// Report is the externally visible grading report.
type Report struct {
	Message        string              `json:"message"`
	Results        []result.CaseResult `json:"results"`
	Score          Score               `json:"score"`
	LastCommitDate *string             `json:"last_commit_date"`
}

// Service runs the fetch, grade and report pipeline.
type Service struct {
	grader          sandbox.Grader
	languages       config.Repository
	source          source.Materializer
	metadata        metadata.Fetcher
	workRoot        string
	acquireWait     time.Duration
	metadataTimeout time.Duration
	sem             chan struct{}
}

// Config holds service dependencies and settings.
type Config struct {
	Grader          sandbox.Grader
	Languages       config.Repository
	Source          source.Materializer
	// Metadata is optional; without it last_commit_date is always null.
	Metadata        metadata.Fetcher
	WorkRoot        string
	PoolSize        int
	AcquireWait     time.Duration
	MetadataTimeout time.Duration
}

// NewService creates a new grading service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Grader == nil {
		return nil, fmt.Errorf("grader is required")
	}
	if cfg.Languages == nil {
		return nil, fmt.Errorf("language repository is required")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("source materializer is required")
	}
	if cfg.WorkRoot == "" {
		return nil, fmt.Errorf("work root is required")
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 1
	}
	acquireWait := cfg.AcquireWait
	if acquireWait <= 0 {
		acquireWait = defaultAcquireWait
	}
	metadataTimeout := cfg.MetadataTimeout
	if metadataTimeout <= 0 {
		metadataTimeout = defaultMetadataTimeout
	}
	return &Service{
		grader:          cfg.Grader,
		languages:       cfg.Languages,
		source:          cfg.Source,
		metadata:        cfg.Metadata,
		workRoot:        cfg.WorkRoot,
		acquireWait:     acquireWait,
		metadataTimeout: metadataTimeout,
		sem:             make(chan struct{}, poolSize),
	}, nil
}

// Submit fetches the submission, grades it and assembles the report.
// Fetch, compile and build failures return an error and no report.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (Report, error) {
	if req.URL == "" {
		return Report{}, appErr.ValidationError("url", "required").WithMessage("No URL provided")
	}
	if req.Language == "" {
		req.Language = DefaultLanguage
	}

	if err := s.acquireSlot(ctx); err != nil {
		return Report{}, err
	}
	defer s.releaseSlot()

	submissionID := uuid.NewString()
	ctx = logger.WithSubmission(ctx, submissionID)
	workDir := filepath.Join(s.workRoot, submissionID)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return Report{}, appErr.Wrapf(err, appErr.JudgeSystemError, "create workspace failed")
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn(ctx, "remove workspace failed", zap.String("dir", workDir), zap.Error(err))
		}
	}()

	logger.Info(ctx, "grading submission",
		zap.String("url", req.URL),
		zap.String("language", req.Language),
		zap.Int("cases", len(req.Tests)),
	)

	root := filepath.Join(workDir, repoDirName)
	if err := s.source.Materialize(ctx, req.URL, root); err != nil {
		return Report{}, err
	}

	report, err := s.grade(ctx, submissionID, root, req)
	if err != nil {
		return Report{}, err
	}
	report.LastCommitDate = s.lastCommitDate(ctx, req.URL)
	return report, nil
}

func (s *Service) grade(ctx context.Context, submissionID, root string, req SubmitRequest) (Report, error) {
	lang, err := s.languages.GetLanguageSpec(ctx, req.Language)
	if err != nil {
		if appErr.Is(err, appErr.LanguageNotSupported) {
			return zeroReport(err.Error()), nil
		}
		return Report{}, err
	}
	if _, ok := source.LocateEntry(root, lang.EntryFile); !ok {
		return zeroReport(fmt.Sprintf("%s not found in repo", lang.EntryFile)), nil
	}

	graded, err := s.grader.Grade(ctx, sandbox.GradeRequest{
		SubmissionID: submissionID,
		Root:         root,
		LanguageID:   lang.ID,
		Tests:        req.Tests,
	})
	if err != nil {
		if appErr.Is(err, appErr.EntryPointNotFound) {
			return zeroReport(err.Error()), nil
		}
		return Report{}, err
	}
	return Report{
		Message: fmt.Sprintf("%s test cases executed", lang.Name),
		Results: graded.Results,
		Score:   NewScore(graded.EarnedPoints, graded.TotalPoints),
	}, nil
}

func (s *Service) lastCommitDate(ctx context.Context, url string) *string {
	if s.metadata == nil {
		return nil
	}
	metaCtx, cancel := context.WithTimeout(ctx, s.metadataTimeout)
	defer cancel()

	date, err := s.metadata.LastCommitDate(metaCtx, url)
	if err != nil {
		logger.Debug(ctx, "last commit date unavailable", zap.Error(err))
		return nil
	}
	if date == "" {
		return nil
	}
	return &date
}

func (s *Service) acquireSlot(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return appErr.Wrapf(ctx.Err(), appErr.Timeout, "request cancelled while waiting for a worker")
	case <-time.After(s.acquireWait):
		return appErr.New(appErr.JudgeQueueFull).WithMessage("worker pool is full")
	}
}

func (s *Service) releaseSlot() {
	select {
	case <-s.sem:
	default:
	}
}

func zeroReport(message string) Report {
	return Report{
		Message: message,
		Results: []result.CaseResult{},
		Score:   NewScore(0, 0),
	}
}

// NewScore rounds the percentage to two decimals; zero total yields zero.
func NewScore(earned, total int) Score {
	score := Score{EarnedPoints: earned, TotalPoints: total}
	if total > 0 {
		score.Percentage = math.Round(float64(earned)*100/float64(total)*100) / 100
	}
	return score
}
