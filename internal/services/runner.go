package services

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandRunner executes an external binary and returns its combined output.
// Services accept a runner so tests can substitute fakes for the real tools.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Run is the default CommandRunner. Every invocation inherits the context
// deadline, so no external tool can block a worker indefinitely.
func Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return output, Wrap(ErrTimeout, "", name, "invocation exceeded its deadline", ctx.Err())
		}
		return output, fmt.Errorf("%s: %w: %s", name, err, truncate(string(output), 2000))
	}
	return output, nil
}

// RunWithTimeout derives a deadline from the parent context before running.
func RunWithTimeout(ctx context.Context, timeout time.Duration, runner CommandRunner, name string, args ...string) ([]byte, error) {
	if runner == nil {
		runner = Run
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return runner(runCtx, name, args...)
}

// IsTimeout reports whether an error came from a deadline expiry.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
