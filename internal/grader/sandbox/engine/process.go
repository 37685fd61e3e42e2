package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"autograder/internal/grader/sandbox/result"
	"autograder/internal/grader/sandbox/spec"
	"autograder/pkg/utils/logger"

	"go.uber.org/zap"
)

type processEngine struct {
	cfg Config
}

// NewEngine creates an engine that runs commands directly on the host.
func NewEngine(cfg Config) Engine {
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = defaultWaitDelay
	}
	return &processEngine{cfg: cfg}
}

func (e *processEngine) Run(ctx context.Context, runSpec spec.RunSpec) (result.ExecutionOutcome, error) {
	if err := validateRunSpec(runSpec); err != nil {
		return result.ExecutionOutcome{}, err
	}
	if err := ctx.Err(); err != nil {
		return result.ExecutionOutcome{}, err
	}

	cmd := exec.Command(runSpec.Cmd[0], runSpec.Cmd[1:]...)
	cmd.Dir = runSpec.WorkDir
	if len(runSpec.Env) > 0 {
		cmd.Env = append(cmd.Environ(), runSpec.Env...)
	}
	cmd.Stdin = strings.NewReader(runSpec.Stdin)
	stdout := newLimitedBuffer(e.cfg.MaxOutputBytes)
	stderr := newLimitedBuffer(e.cfg.MaxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = e.cfg.WaitDelay
	setProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		logger.Warn(ctx, "start process failed",
			zap.String("task_id", runSpec.TaskID),
			zap.Strings("cmd", runSpec.Cmd),
			zap.Error(err),
		)
		return result.ExecutionOutcome{
			FailedToStart: true,
			StartError:    err.Error(),
			ExitCode:      -1,
		}, nil
	}

	var timedOut atomic.Bool
	var cancelled atomic.Bool
	done := make(chan struct{})
	go func() {
		var wallTimer <-chan time.Time
		if runSpec.Timeout > 0 {
			timer := time.NewTimer(runSpec.Timeout)
			defer timer.Stop()
			wallTimer = timer.C
		}
		select {
		case <-ctx.Done():
			cancelled.Store(true)
			killProcessGroup(cmd)
		case <-wallTimer:
			timedOut.Store(true)
			killProcessGroup(cmd)
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)

	outcome := result.ExecutionOutcome{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		TimedOut:   timedOut.Load(),
		ExitCode:   exitCodeFromErr(waitErr, cmd),
		WallTimeMs: time.Since(start).Milliseconds(),
	}
	if runSpec.Timeout > 0 {
		outcome.TimeLimitMs = runSpec.Timeout.Milliseconds()
	}
	if outcome.TimedOut && outcome.ExitCode == 0 {
		outcome.ExitCode = -1
	}
	if waitErr != nil && errors.Is(waitErr, exec.ErrWaitDelay) {
		logger.Debug(ctx, "output pipes outlived process", zap.String("task_id", runSpec.TaskID))
	}
	if cancelled.Load() {
		return outcome, ctx.Err()
	}
	return outcome, nil
}

func exitCodeFromErr(err error, cmd *exec.Cmd) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func validateRunSpec(runSpec spec.RunSpec) error {
	if runSpec.WorkDir == "" {
		return fmt.Errorf("work dir is required")
	}
	if len(runSpec.Cmd) == 0 || runSpec.Cmd[0] == "" {
		return fmt.Errorf("command is required")
	}
	return nil
}

// limitedBuffer keeps at most limit bytes and silently drops the rest,
// so a chatty child never blocks on a full pipe.
type limitedBuffer struct {
	buf   bytes.Buffer
	limit int64
}

func newLimitedBuffer(limit int64) *limitedBuffer {
	return &limitedBuffer{limit: limit}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if b.limit <= 0 {
		return b.buf.Write(p)
	}
	remaining := b.limit - int64(b.buf.Len())
	if remaining > 0 {
		if int64(len(p)) > remaining {
			b.buf.Write(p[:remaining])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

// String decodes captured bytes, replacing invalid UTF-8 sequences.
func (b *limitedBuffer) String() string {
	return strings.ToValidUTF8(b.buf.String(), "\uFFFD")
}
