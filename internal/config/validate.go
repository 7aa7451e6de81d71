package config

import (
	"fmt"
	"time"
)

// Validate rejects configurations the pipeline cannot run with. Called after
// defaults have been applied, so only genuinely inconsistent input fails.
func Validate(cfg *Config) error {
	v := cfg.Validation

	switch v.Strategy {
	case "worktree":
		if v.RepoDir == "" {
			return fmt.Errorf("validation.repo_dir is required for the worktree strategy")
		}
	case "sandbox":
		if v.Sandbox.Image == "" {
			return fmt.Errorf("validation.sandbox.image is required for the sandbox strategy")
		}
	default:
		return fmt.Errorf("unknown validation.strategy %q (want worktree or sandbox)", v.Strategy)
	}

	if v.Workers < 1 {
		return fmt.Errorf("validation.workers must be at least 1, got %d", v.Workers)
	}

	switch v.Gate {
	case "build", "test":
	default:
		return fmt.Errorf("unknown validation.gate %q (want build or test)", v.Gate)
	}

	for name, s := range map[string]string{
		"command_timeout": v.CommandTimeout,
		"build_timeout":   v.BuildTimeout,
	} {
		if s == "" {
			continue
		}
		if _, err := time.ParseDuration(s); err != nil {
			return fmt.Errorf("validation.%s: %w", name, err)
		}
	}

	return nil
}
