package env

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lucasnoah/patchforge/internal/dataset"
	"github.com/lucasnoah/patchforge/internal/runner"
)

// WorktreeProvisioner checks instances out as detached git worktrees linked
// to a pre-existing shared clone. Creation is cheap because worktrees share
// the clone's object store; the store is only ever read by concurrent
// workers, never mutated through a worktree checkout.
type WorktreeProvisioner struct {
	run        runner.CommandRunner
	repoDir    string // shared local clone
	workDir    string // where per-instance roots are created
	timeout    time.Duration
	maxLogSize int
}

// NewWorktreeProvisioner creates a provisioner rooted at the given shared
// clone. workDir is created on first use.
func NewWorktreeProvisioner(run runner.CommandRunner, repoDir, workDir string, timeout time.Duration, maxLogSize int) *WorktreeProvisioner {
	return &WorktreeProvisioner{run: run, repoDir: repoDir, workDir: workDir, timeout: timeout, maxLogSize: maxLogSize}
}

// Provision adds a worktree detached at the instance's base commit.
func (p *WorktreeProvisioner) Provision(ctx context.Context, inst dataset.TaskInstance) (*Environment, error) {
	if _, err := os.Stat(p.repoDir); err != nil {
		return nil, fmt.Errorf("shared clone %s: %w", p.repoDir, err)
	}
	if err := os.MkdirAll(p.workDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", p.workDir, err)
	}

	root := filepath.Join(p.workDir, SanitizeID(inst.InstanceID))
	out, err := p.run.Run(ctx, runner.RunOpts{
		Dir:     p.repoDir,
		Name:    "git",
		Args:    []string{"worktree", "add", "--detach", root, inst.BaseCommit},
		Timeout: p.timeout,
	})
	if err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &ProvisionError{Step: "worktree_add", Log: runner.Truncate(out.Output, p.maxLogSize)}
	}
	return &Environment{InstanceID: inst.InstanceID, Root: root}, nil
}

// Teardown removes the worktree registration and deletes the directory.
// A worktree that is already gone counts as success.
func (p *WorktreeProvisioner) Teardown(ctx context.Context, e *Environment) error {
	if e == nil {
		return nil
	}
	if _, err := os.Stat(e.Root); os.IsNotExist(err) {
		// Registration may still linger; prune is best-effort.
		p.run.Run(ctx, runner.RunOpts{Dir: p.repoDir, Name: "git", Args: []string{"worktree", "prune"}, Timeout: p.timeout})
		return nil
	}

	out, err := p.run.Run(ctx, runner.RunOpts{
		Dir:     p.repoDir,
		Name:    "git",
		Args:    []string{"worktree", "remove", "--force", e.Root},
		Timeout: p.timeout,
	})
	if err != nil {
		return err
	}
	if !out.Success {
		// The checkout may have been corrupted by a failed build; fall back
		// to deleting the directory and pruning the registration.
		if rmErr := os.RemoveAll(e.Root); rmErr != nil {
			return fmt.Errorf("remove worktree %s: %v: %w", e.Root, out.Output, rmErr)
		}
		p.run.Run(ctx, runner.RunOpts{Dir: p.repoDir, Name: "git", Args: []string{"worktree", "prune"}, Timeout: p.timeout})
	}
	return nil
}
