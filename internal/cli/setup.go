package cli

import (
	"fmt"
	"os"

	"github.com/lucasnoah/patchforge/internal/config"
	"github.com/lucasnoah/patchforge/internal/env"
	"github.com/lucasnoah/patchforge/internal/runner"
)

// newProvisioner builds the configured provisioning strategy. This is the
// single seam where a strategy is selected; everything downstream sees only
// the Provisioner contract.
func newProvisioner(cfg *config.Config, run runner.CommandRunner) (env.Provisioner, error) {
	v := cfg.Validation
	switch v.Strategy {
	case "worktree":
		return env.NewWorktreeProvisioner(run, v.RepoDir, v.WorkDir, v.CommandTimeoutDuration(), v.MaxLogSize), nil
	case "sandbox":
		scripts, err := loadSetupScripts(v.Sandbox)
		if err != nil {
			return nil, err
		}
		return env.NewSandboxProvisioner(run, v.Sandbox.Tool, v.Sandbox.Image, v.Sandbox.BuildDir,
			scripts, v.BuildTimeoutDuration(), v.MaxLogSize), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", v.Strategy)
	}
}

// loadSetupScripts reads the externally supplied setup script bodies. Unset
// paths yield empty scripts; a configured path that cannot be read is fatal.
func loadSetupScripts(sb config.Sandbox) (env.SetupScripts, error) {
	var scripts env.SetupScripts
	if sb.SetupEnvScript != "" {
		data, err := os.ReadFile(sb.SetupEnvScript)
		if err != nil {
			return scripts, fmt.Errorf("read setup_env_script: %w", err)
		}
		scripts.Env = string(data)
	}
	if sb.SetupRepoScript != "" {
		data, err := os.ReadFile(sb.SetupRepoScript)
		if err != nil {
			return scripts, fmt.Errorf("read setup_repo_script: %w", err)
		}
		scripts.Repo = string(data)
	}
	return scripts, nil
}

// loadConfig loads the effective config, preferring an explicit --config path.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}
