// Package scorer compares observed output to expected output and tallies points.
package scorer

import (
	"fmt"
	"strings"

	"autograder/internal/grader/sandbox/result"
)

// NoErrorPlaceholder is reported when a run wrote nothing to stderr.
const NoErrorPlaceholder = "no error"

// Score turns one case outcome into its visible record.
// Only leading and trailing whitespace is ignored; the comparison is otherwise exact.
func Score(tc result.TestCase, outcome result.ExecutionOutcome) result.CaseResult {
	expected := strings.TrimSpace(tc.ExpectedOutput)
	res := result.CaseResult{
		Input:          tc.Input,
		ExpectedOutput: expected,
		Points:         tc.Points,
	}

	switch {
	case outcome.TimedOut:
		limit := outcome.TimeLimitMs
		if limit <= 0 {
			limit = outcome.WallTimeMs
		}
		res.Error = fmt.Sprintf("timeout: execution exceeded %dms", limit)
		return res
	case outcome.FailedToStart:
		res.Error = "failed to start: " + outcome.StartError
		return res
	}

	res.Output = strings.TrimSpace(outcome.Stdout)
	res.Passed = res.Output == expected
	res.Error = outcome.Stderr
	if res.Error == "" {
		res.Error = NoErrorPlaceholder
	}
	return res
}

// Tally accumulates case results in input order.
type Tally struct {
	results []result.CaseResult
	total   int
	earned  int
}

// NewTally creates a tally sized for n cases.
func NewTally(n int) *Tally {
	return &Tally{results: make([]result.CaseResult, 0, n)}
}

// Add records one scored case.
func (t *Tally) Add(res result.CaseResult) {
	t.results = append(t.results, res)
	t.total += res.Points
	if res.Passed {
		t.earned += res.Points
	}
}

// Report returns the aggregate so far.
func (t *Tally) Report() result.GradeReport {
	results := make([]result.CaseResult, len(t.results))
	copy(results, t.results)
	return result.GradeReport{
		Results:      results,
		TotalPoints:  t.total,
		EarnedPoints: t.earned,
	}
}
