package engine

import "time"

const defaultWaitDelay = 2 * time.Second

// Config controls engine behavior.
type Config struct {
	// MaxOutputBytes caps captured stdout and stderr each; zero keeps everything.
	MaxOutputBytes int64
	// WaitDelay bounds pipe draining after the process exits or is killed.
	WaitDelay time.Duration
}
