package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// Sentinel exit codes, following shell convention. Adapters never see a
// different shape of result for the not-found and timeout paths; they branch
// on these codes instead.
const (
	ExitTimeout  = 124
	ExitNotFound = 127
)

// Result is what every external tool invocation produces, regardless of
// whether the binary ran, timed out, or was missing.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// TimedOut reports whether the invocation hit its wall-clock cutoff.
func (r Result) TimedOut() bool { return r.ExitCode == ExitTimeout }

// NotFound reports whether the binary was absent.
func (r Result) NotFound() bool { return r.ExitCode == ExitNotFound }

// Executor launches external tools. Stages hold the interface so tests can
// substitute canned results.
type Executor interface {
	Run(name string, args []string, timeout time.Duration) Result
	Exists(name string) bool
}

// Local runs tools on the local machine with a hard wall-clock timeout.
// There is no mid-invocation cancellation beyond that cutoff.
type Local struct{}

func (Local) Exists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func (Local) Run(name string, args []string, timeout time.Duration) Result {
	ctx := context.Background()
	cancel := func() {}
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		res.ExitCode = ExitTimeout
	case err == nil:
		res.ExitCode = 0
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else if errors.Is(err, exec.ErrNotFound) {
			res.ExitCode = ExitNotFound
		} else {
			// Failed to start for some other reason; surface it on stderr.
			res.ExitCode = 1
			if res.Stderr == "" {
				res.Stderr = err.Error()
			}
		}
	}
	return res
}

// TruncateStderr clips captured stderr for log lines.
func TruncateStderr(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 2000 {
		return s[:2000]
	}
	return s
}
