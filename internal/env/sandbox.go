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

// SetupScripts holds the two script bodies supplied by the external test-spec
// provider. Their content is opaque, untrusted shell input that only ever
// runs inside the sandbox.
type SetupScripts struct {
	Env  string // environment setup (toolchains, system packages)
	Repo string // repository setup (clone, configure)
}

// SandboxProvisioner unpacks a base container image into a writable sandbox
// directory and runs the setup scripts inside it. Sandboxes are retained
// after validation for inspection; teardown only releases the binding.
type SandboxProvisioner struct {
	run        runner.CommandRunner
	tool       string // container tool binary, e.g. apptainer
	image      string // base image reference, e.g. ubuntu:22.04
	buildDir   string // where per-instance sandboxes are created
	scripts    SetupScripts
	timeout    time.Duration
	maxLogSize int
}

// NewSandboxProvisioner creates a sandbox provisioner for the given base image.
func NewSandboxProvisioner(run runner.CommandRunner, tool, image, buildDir string, scripts SetupScripts, timeout time.Duration, maxLogSize int) *SandboxProvisioner {
	return &SandboxProvisioner{
		run: run, tool: tool, image: image, buildDir: buildDir,
		scripts: scripts, timeout: timeout, maxLogSize: maxLogSize,
	}
}

// setup scripts run in declared order: environment first, then repository.
var setupOrder = []struct {
	step string
	file string
}{
	{"setup_env", "setup_env.sh"},
	{"setup_repo", "setup_repo.sh"},
}

// Provision builds the sandbox and runs the setup scripts inside it. An
// already-present sandbox directory is reused rather than rebuilt, which
// makes concurrent and repeated provisioning of the same image safe.
func (p *SandboxProvisioner) Provision(ctx context.Context, inst dataset.TaskInstance) (*Environment, error) {
	if err := os.MkdirAll(p.buildDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", p.buildDir, err)
	}
	root := filepath.Join(p.buildDir, SanitizeID(inst.InstanceID))

	if _, err := os.Stat(root); os.IsNotExist(err) {
		if err := p.buildSandbox(ctx, root); err != nil {
			return nil, err
		}
	}

	scriptDir := filepath.Join(root, "root")
	if err := os.MkdirAll(scriptDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", scriptDir, err)
	}
	bodies := map[string]string{"setup_env.sh": p.scripts.Env, "setup_repo.sh": p.scripts.Repo}
	for _, s := range setupOrder {
		if err := os.WriteFile(filepath.Join(scriptDir, s.file), []byte(bodies[s.file]), 0o755); err != nil {
			return nil, fmt.Errorf("write %s: %w", s.file, err)
		}
	}

	for _, s := range setupOrder {
		out, err := p.run.Run(ctx, runner.RunOpts{
			Dir:     p.buildDir,
			Name:    p.tool,
			Args:    []string{"exec", "--writable", root, "bash", "/root/" + s.file},
			Timeout: p.timeout,
		})
		if err != nil {
			return nil, err
		}
		if !out.Success {
			return nil, &ProvisionError{Step: s.step, Log: runner.Truncate(out.Output, p.maxLogSize)}
		}
	}

	return &Environment{InstanceID: inst.InstanceID, Root: root}, nil
}

// buildSandbox unpacks the base image, retrying once on failure since the
// pull crosses the network.
func (p *SandboxProvisioner) buildSandbox(ctx context.Context, root string) error {
	var out runner.Outcome
	for attempt := 0; attempt < 2; attempt++ {
		var err error
		out, err = p.run.Run(ctx, runner.RunOpts{
			Dir:     p.buildDir,
			Name:    p.tool,
			Args:    []string{"build", "--sandbox", root, "docker://" + p.image},
			Timeout: p.timeout,
		})
		if err != nil {
			return err
		}
		if out.Success {
			return nil
		}
		os.RemoveAll(root) // drop the partial unpack before retrying
	}
	return &ProvisionError{Step: "image_build", Log: runner.Truncate(out.Output, p.maxLogSize)}
}

// Teardown retains the sandbox directory for inspection. Nothing about the
// sandbox outlives the binding: the next instance gets its own root.
func (p *SandboxProvisioner) Teardown(ctx context.Context, e *Environment) error {
	return nil
}
