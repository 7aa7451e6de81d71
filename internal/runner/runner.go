package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
	"unicode/utf8"
)

// TimeoutMarker is the synthetic output stored when a command is killed by
// its deadline. Partial output collected before the kill is discarded.
const TimeoutMarker = "Timeout"

// Outcome is the normal result of running an external command. A non-zero
// exit is not an error; it is Success=false with the output preserved.
type Outcome struct {
	Success bool
	Output  string
}

// RunOpts describes one external command invocation.
type RunOpts struct {
	Dir     string
	Env     []string // KEY=VALUE pairs appended to the process environment
	Name    string
	Args    []string
	Timeout time.Duration
}

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, opts RunOpts) (Outcome, error)
}

// ExecRunner implements CommandRunner using os/exec. Stdout and stderr are
// merged into one stream and kept as raw bytes; invalid UTF-8 is carried
// through rather than rejected.
type ExecRunner struct{}

func (e *ExecRunner) Run(ctx context.Context, opts RunOpts) (Outcome, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, opts.Name, opts.Args...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	out, err := cmd.CombinedOutput()

	// The deadline kill surfaces as an ExitError (signal: killed), so the
	// context has to be consulted before the exit status.
	if ctx.Err() == context.DeadlineExceeded {
		return Outcome{Success: false, Output: TimeoutMarker}, nil
	}
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return Outcome{Success: false, Output: string(out)}, nil
		}
		// Executable not found, working directory missing, etc. The
		// batch cannot make progress, so this is a real error.
		return Outcome{}, fmt.Errorf("run %s: %w", opts.Name, err)
	}
	return Outcome{Success: true, Output: string(out)}, nil
}

// Truncate bounds a captured log to max bytes, keeping the prefix. The cut
// never leaves a partial UTF-8 sequence at the end.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	s = s[:max]
	for len(s) > 0 {
		r, size := utf8.DecodeLastRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			s = s[:len(s)-1]
			continue
		}
		break
	}
	return s
}
