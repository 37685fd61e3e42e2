// Command grade grades a local submission directory against a case file
// and prints the report as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autograder/internal/grader/sandbox"
	"autograder/internal/grader/sandbox/config"
	"autograder/internal/grader/sandbox/engine"
	"autograder/internal/grader/sandbox/result"
	"autograder/internal/grader/sandbox/runner"
	"autograder/internal/grader/service"
	"autograder/pkg/utils/logger"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func main() {
	dir := flag.String("dir", ".", "Submission directory")
	language := flag.String("lang", service.DefaultLanguage, "Language selector (python, java, cpp)")
	casesPath := flag.String("cases", "", "YAML or JSON file with a list of test cases")
	timeout := flag.Duration("timeout", runner.DefaultCaseTimeout, "Per-case timeout")
	verbose := flag.Bool("v", false, "Print per-case progress to stderr")
	flag.Parse()

	if *casesPath == "" {
		fmt.Fprintln(os.Stderr, "-cases is required")
		flag.Usage()
		os.Exit(2)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	if err := logger.Init(logger.Config{Level: level, Format: "console", OutputPath: "stderr"}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	tests, err := loadCases(*casesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load cases failed: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	langRepo := config.NewLocalRepository(nil)
	worker := sandbox.NewWorker(
		runner.NewRunner(engine.NewEngine(engine.Config{})),
		langRepo,
		sandbox.WorkerConfig{CaseTimeout: *timeout},
	)
	if *verbose {
		worker.SetProgressReporter(stderrReporter{})
	}

	report, err := worker.Grade(ctx, sandbox.GradeRequest{
		SubmissionID: "local",
		Root:         *dir,
		LanguageID:   *language,
		Tests:        tests,
	})
	if err != nil {
		logger.Error(ctx, "grading failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	lang, _ := langRepo.GetLanguageSpec(ctx, *language)
	out := service.Report{
		Message: fmt.Sprintf("%s test cases executed", lang.Name),
		Results: report.Results,
		Score:   service.NewScore(report.EarnedPoints, report.TotalPoints),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "write report failed: %v\n", err)
		os.Exit(1)
	}
}

// loadCases accepts YAML or JSON. Cases are routed through the JSON decoder
// so both formats share the same defaults and scalar handling.
func loadCases(path string) ([]result.TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var tests []result.TestCase
	if err := json.Unmarshal(encoded, &tests); err != nil {
		return nil, fmt.Errorf("decode cases: %w", err)
	}
	return tests, nil
}

type stderrReporter struct{}

func (stderrReporter) ReportCase(ctx context.Context, submissionID string, index, total int, res result.CaseResult) {
	status := "FAIL"
	if res.Passed {
		status = "PASS"
	}
	fmt.Fprintf(os.Stderr, "[%s] case %d/%d (%d pts) at %s\n", status, index+1, total, res.Points, time.Now().Format(time.TimeOnly))
}
