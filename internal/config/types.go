package config

import "time"

// Config is the top-level configuration structure parsed from YAML.
type Config struct {
	Validation Validation `yaml:"validation"`
}

// Validation configures the isolated validation pipeline.
type Validation struct {
	Strategy       string  `yaml:"strategy"` // "worktree" or "sandbox"
	RepoDir        string  `yaml:"repo_dir"` // shared local clone (worktree strategy)
	WorkDir        string  `yaml:"work_dir"` // where per-instance roots are created
	Workers        int     `yaml:"workers"`
	CommandTimeout string  `yaml:"command_timeout"` // per auxiliary command (apply, worktree ops)
	BuildTimeout   string  `yaml:"build_timeout"`   // per build/test invocation
	MaxLogSize     int     `yaml:"max_log_size"`
	Gate           string  `yaml:"gate"` // "build" or "test": what partitions validated/failed
	DisableWerror  bool    `yaml:"disable_werror"`
	Sandbox        Sandbox `yaml:"sandbox"`
}

// Sandbox configures the container sandbox strategy. The two setup scripts
// are supplied by an external test-spec provider as files whose bodies this
// tool treats as opaque shell input.
type Sandbox struct {
	Tool            string `yaml:"tool"`  // container tool binary
	Image           string `yaml:"image"` // base image reference
	BuildDir        string `yaml:"build_dir"`
	SetupEnvScript  string `yaml:"setup_env_script"`
	SetupRepoScript string `yaml:"setup_repo_script"`
}

// CommandTimeoutDuration parses the auxiliary command timeout.
func (v Validation) CommandTimeoutDuration() time.Duration {
	return parseDuration(v.CommandTimeout, 5*time.Minute)
}

// BuildTimeoutDuration parses the build/test invocation timeout.
func (v Validation) BuildTimeoutDuration() time.Duration {
	return parseDuration(v.BuildTimeout, 100*time.Minute)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
