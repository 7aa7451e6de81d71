// Package patch writes patch blobs into an environment and applies them with
// git. A patch that does not apply is a normal negative outcome, never fatal.
package patch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lucasnoah/patchforge/internal/runner"
)

// Applicator applies unified diffs inside an environment root.
type Applicator struct {
	run        runner.CommandRunner
	timeout    time.Duration
	maxLogSize int
}

// NewApplicator creates an Applicator.
func NewApplicator(run runner.CommandRunner, timeout time.Duration, maxLogSize int) *Applicator {
	return &Applicator{run: run, timeout: timeout, maxLogSize: maxLogSize}
}

// Apply writes patchText verbatim to <root>/<name> and runs git apply against
// it. Callers must not pass empty patch text; skipping the stage entirely is
// the contract for absent test patches.
func (a *Applicator) Apply(ctx context.Context, root, patchText, name string) (applied bool, log string, err error) {
	if patchText == "" {
		return false, "", fmt.Errorf("refusing to apply empty patch %q", name)
	}
	if err := os.WriteFile(filepath.Join(root, name), []byte(patchText), 0o644); err != nil {
		return false, "", fmt.Errorf("write %s: %w", name, err)
	}

	out, err := a.run.Run(ctx, runner.RunOpts{
		Dir:     root,
		Name:    "git",
		Args:    []string{"apply", "--whitespace=fix", name},
		Timeout: a.timeout,
	})
	if err != nil {
		return false, "", err
	}
	return out.Success, runner.Truncate(out.Output, a.maxLogSize), nil
}

// ChangedFiles returns the changed file paths from a unified diff's
// "diff --git a/... b/..." headers, in order of appearance.
func ChangedFiles(patchText string) []string {
	var files []string
	for _, line := range strings.Split(patchText, "\n") {
		if !strings.HasPrefix(line, "diff --git ") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 4 {
			continue
		}
		path := strings.TrimPrefix(parts[2], "a/")
		files = append(files, path)
	}
	return files
}
