// Package result defines grading inputs, raw execution outcomes and scored reports.
package result

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DefaultPoints is awarded to a case that does not declare points.
const DefaultPoints = 1

// TestCase is one (input, expected output, points) triple.
// Identity is positional: results keep the order of the input list.
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	Points         int    `json:"points"`
}

// UnmarshalJSON accepts scalar input/expected_output of any JSON type and
// numeric strings for points. Booleans render as True and False.
// Missing points default to DefaultPoints.
func (tc *TestCase) UnmarshalJSON(data []byte) error {
	var raw struct {
		Input          json.RawMessage `json:"input"`
		ExpectedOutput json.RawMessage `json:"expected_output"`
		Points         json.RawMessage `json:"points"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	input, err := scalarText(raw.Input)
	if err != nil {
		return fmt.Errorf("input: %w", err)
	}
	expected, err := scalarText(raw.ExpectedOutput)
	if err != nil {
		return fmt.Errorf("expected_output: %w", err)
	}
	points, err := pointsValue(raw.Points)
	if err != nil {
		return fmt.Errorf("points: %w", err)
	}
	*tc = TestCase{Input: input, ExpectedOutput: expected, Points: points}
	return nil
}

func scalarText(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", fmt.Errorf("must be a scalar value")
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return "", err
		}
		if b {
			return "True", nil
		}
		return "False", nil
	default:
		return string(trimmed), nil
	}
}

func pointsValue(raw json.RawMessage) (int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return DefaultPoints, nil
	}
	text := string(trimmed)
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return 0, err
		}
		text = strings.TrimSpace(text)
	}
	if n, err := strconv.Atoi(text); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", text)
	}
	return int(f), nil
}

// Artifact is what gets invoked for every case of one grading run.
// It is owned by the run that built it and never shared.
type Artifact struct {
	LanguageID string
	Root       string
	Cmd        []string
	Env        []string
}

// ExecutionOutcome is the raw result of one case run.
// ExitCode and WallTimeMs are diagnostics only and never affect scoring.
// TimeLimitMs is the wall-clock bound the run was held to, zero when unbounded.
type ExecutionOutcome struct {
	Stdout        string
	Stderr        string
	TimedOut      bool
	FailedToStart bool
	StartError    string
	ExitCode      int
	WallTimeMs    int64
	TimeLimitMs   int64
}

// CaseResult is the externally visible record of one scored case.
type CaseResult struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	Output         string `json:"output"`
	Error          string `json:"error"`
	Points         int    `json:"points"`
	Passed         bool   `json:"passed"`
}

// GradeReport aggregates every case of one grading call.
type GradeReport struct {
	Results      []CaseResult `json:"results"`
	TotalPoints  int          `json:"total_points"`
	EarnedPoints int          `json:"earned_points"`
}

// EmptyReport is the report of a call with no cases.
func EmptyReport() GradeReport {
	return GradeReport{Results: []CaseResult{}}
}
