package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"autograder/internal/grader/sandbox"
	"autograder/internal/grader/sandbox/config"
	"autograder/internal/grader/sandbox/result"
	appErr "autograder/pkg/errors"
)

type fakeMaterializer struct {
	files map[string]string
	err   error
	dests []string
}

func (f *fakeMaterializer) Materialize(ctx context.Context, url, dest string) error {
	f.dests = append(f.dests, dest)
	if f.err != nil {
		return f.err
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}
	for name, body := range f.files {
		if err := os.WriteFile(filepath.Join(dest, name), []byte(body), 0644); err != nil {
			return err
		}
	}
	return nil
}

type fakeGrader struct {
	report  result.GradeReport
	err     error
	calls   int
	lastReq sandbox.GradeRequest
	block   chan struct{}
}

func (f *fakeGrader) Grade(ctx context.Context, req sandbox.GradeRequest) (result.GradeReport, error) {
	f.calls++
	f.lastReq = req
	if f.block != nil {
		<-f.block
	}
	return f.report, f.err
}

type fakeFetcher struct {
	date string
	err  error
}

func (f *fakeFetcher) LastCommitDate(ctx context.Context, repoURL string) (string, error) {
	return f.date, f.err
}

func newTestService(t *testing.T, m *fakeMaterializer, g *fakeGrader, f *fakeFetcher) *Service {
	t.Helper()
	cfg := Config{
		Grader:      g,
		Languages:   config.NewLocalRepository(nil),
		Source:      m,
		WorkRoot:    t.TempDir(),
		AcquireWait: 50 * time.Millisecond,
	}
	if f != nil {
		cfg.Metadata = f
	}
	svc, err := NewService(cfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestSubmitPython(t *testing.T) {
	m := &fakeMaterializer{files: map[string]string{"main.py": "print(1)"}}
	g := &fakeGrader{report: result.GradeReport{
		Results:      []result.CaseResult{{Points: 1, Passed: true}, {Points: 2}},
		TotalPoints:  3,
		EarnedPoints: 1,
	}}
	svc := newTestService(t, m, g, &fakeFetcher{date: "2024-05-01T10:00:00Z"})

	report, err := svc.Submit(context.Background(), SubmitRequest{
		URL:   "https://github.com/alice/hw1",
		Tests: []result.TestCase{{Points: 1}, {Points: 2}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if report.Message != "Python test cases executed" {
		t.Fatalf("unexpected message: %s", report.Message)
	}
	if report.Score.Percentage != 33.33 || report.Score.TotalPoints != 3 || report.Score.EarnedPoints != 1 {
		t.Fatalf("unexpected score: %+v", report.Score)
	}
	if report.LastCommitDate == nil || *report.LastCommitDate != "2024-05-01T10:00:00Z" {
		t.Fatalf("unexpected last commit date: %v", report.LastCommitDate)
	}
	if g.lastReq.LanguageID != "python" || len(g.lastReq.Tests) != 2 {
		t.Fatalf("unexpected grade request: %+v", g.lastReq)
	}
	if _, err := os.Stat(filepath.Dir(m.dests[0])); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("workspace not removed: %v", err)
	}
}

func TestSubmitMessagesPerLanguage(t *testing.T) {
	tests := []struct {
		language string
		file     string
		message  string
	}{
		{"java", "Main.java", "Java test cases executed"},
		{"cpp", "main.cpp", "C++ test cases executed"},
	}
	for _, tt := range tests {
		t.Run(tt.language, func(t *testing.T) {
			m := &fakeMaterializer{files: map[string]string{tt.file: "x"}}
			svc := newTestService(t, m, &fakeGrader{report: result.EmptyReport()}, nil)
			report, err := svc.Submit(context.Background(), SubmitRequest{URL: "https://example.com/r.git", Language: tt.language})
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			if report.Message != tt.message {
				t.Fatalf("unexpected message: %s", report.Message)
			}
			if report.LastCommitDate != nil {
				t.Fatalf("expected null last commit date without fetcher")
			}
		})
	}
}

func TestSubmitZeroReports(t *testing.T) {
	tests := []struct {
		name     string
		language string
		files    map[string]string
		contains string
	}{
		{"unsupported language", "rust", map[string]string{"main.rs": "fn main(){}"}, "rust"},
		{"missing entry", "java", map[string]string{"main.py": "print(1)"}, "Main.java not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &fakeGrader{}
			svc := newTestService(t, &fakeMaterializer{files: tt.files}, g, &fakeFetcher{err: errors.New("rate limited")})
			report, err := svc.Submit(context.Background(), SubmitRequest{
				URL:      "https://github.com/alice/hw1",
				Language: tt.language,
				Tests:    []result.TestCase{{Points: 4}},
			})
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			if g.calls != 0 {
				t.Fatalf("grader must not run")
			}
			if !strings.Contains(report.Message, tt.contains) {
				t.Fatalf("unexpected message: %s", report.Message)
			}
			if report.Score != (Score{}) || len(report.Results) != 0 || report.Results == nil {
				t.Fatalf("expected zero report, got %+v", report)
			}
			if report.LastCommitDate != nil {
				t.Fatalf("metadata failure must yield null")
			}
		})
	}
}

func TestSubmitFatalErrors(t *testing.T) {
	fetchErr := appErr.New(appErr.SubmissionFetchFailed).WithMessage("Failed to clone repo: not found")
	compileErr := appErr.New(appErr.CompilationError).WithMessage("C++ compilation failed: boom")

	t.Run("materialize", func(t *testing.T) {
		svc := newTestService(t, &fakeMaterializer{err: fetchErr}, &fakeGrader{}, nil)
		_, err := svc.Submit(context.Background(), SubmitRequest{URL: "https://x/y"})
		if !appErr.Is(err, appErr.SubmissionFetchFailed) {
			t.Fatalf("expected fetch failure, got %v", err)
		}
	})
	t.Run("compile", func(t *testing.T) {
		m := &fakeMaterializer{files: map[string]string{"main.cpp": "int main(){"}}
		svc := newTestService(t, m, &fakeGrader{err: compileErr}, nil)
		_, err := svc.Submit(context.Background(), SubmitRequest{URL: "https://x/y", Language: "cpp", Tests: []result.TestCase{{Points: 1}}})
		if !appErr.Is(err, appErr.CompilationError) || !strings.Contains(err.Error(), "boom") {
			t.Fatalf("expected compile failure, got %v", err)
		}
	})
	t.Run("missing url", func(t *testing.T) {
		svc := newTestService(t, &fakeMaterializer{}, &fakeGrader{}, nil)
		_, err := svc.Submit(context.Background(), SubmitRequest{})
		if !appErr.Is(err, appErr.ValidationFailed) || err.Error() != "No URL provided" {
			t.Fatalf("expected validation failure, got %v", err)
		}
	})
}

func TestSubmitQueueFull(t *testing.T) {
	m := &fakeMaterializer{files: map[string]string{"main.py": "print(1)"}}
	g := &fakeGrader{report: result.EmptyReport(), block: make(chan struct{})}
	svc := newTestService(t, m, g, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(context.Background(), SubmitRequest{URL: "https://x/y"})
		done <- err
	}()
	for i := 0; i < 100 && len(svc.sem) == 0; i++ {
		time.Sleep(5 * time.Millisecond)
	}

	_, err := svc.Submit(context.Background(), SubmitRequest{URL: "https://x/y"})
	if !appErr.Is(err, appErr.JudgeQueueFull) {
		t.Fatalf("expected JudgeQueueFull, got %v", err)
	}
	close(g.block)
	if err := <-done; err != nil {
		t.Fatalf("first submission failed: %v", err)
	}
}

func TestReportJSONShape(t *testing.T) {
	data, err := json.Marshal(zeroReport("none"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"message":"none","results":[],"score":{"earned_points":0,"total_points":0,"percentage":0},"last_commit_date":null}`
	if string(data) != want {
		t.Fatalf("unexpected json:\n%s\nwant:\n%s", data, want)
	}
}

func TestNewScoreRounding(t *testing.T) {
	tests := []struct {
		earned, total int
		want          float64
	}{
		{0, 0, 0},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{5, 5, 100},
	}
	for _, tt := range tests {
		if got := NewScore(tt.earned, tt.total).Percentage; got != tt.want {
			t.Fatalf("NewScore(%d, %d) = %v, want %v", tt.earned, tt.total, got, tt.want)
		}
	}
}
