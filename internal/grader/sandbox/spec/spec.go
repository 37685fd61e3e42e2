// Package spec describes one subprocess invocation.
package spec

import "time"

// RunSpec is everything the engine needs to run one task.
type RunSpec struct {
	SubmissionID string
	TaskID       string
	WorkDir      string
	Cmd          []string
	Env          []string
	// Stdin is written in full and then closed.
	Stdin string
	// Timeout is a hard wall-clock bound; zero means no bound.
	Timeout time.Duration
}
