package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a configuration from the given YAML file path.
// After parsing, defaults are applied to unset values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches standard locations and loads the first config found.
// Search order: ./patchforge.yaml, ~/.patchforge/config.yaml. When nothing
// exists a default config is returned so worktree runs can be driven from
// flags alone.
func LoadDefault() (*Config, error) {
	candidates := []string{"patchforge.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".patchforge", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := &Config{}
	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults fills zero values with working defaults.
func applyDefaults(cfg *Config) {
	v := &cfg.Validation

	if v.Strategy == "" {
		v.Strategy = "worktree"
	}
	if v.Workers <= 0 {
		v.Workers = 4
	}
	if v.MaxLogSize <= 0 {
		v.MaxLogSize = 3000
	}
	if v.Gate == "" {
		v.Gate = "build"
	}
	if v.WorkDir == "" {
		v.WorkDir = stateDir("worktrees")
	}
	if v.Sandbox.Tool == "" {
		v.Sandbox.Tool = "apptainer"
	}
	if v.Sandbox.Image == "" {
		v.Sandbox.Image = "ubuntu:22.04"
	}
	if v.Sandbox.BuildDir == "" {
		v.Sandbox.BuildDir = stateDir("sandboxes")
	}
}

// stateDir returns ~/.patchforge/<name>, falling back to a relative path
// when the home directory cannot be resolved.
func stateDir(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".patchforge", name)
	}
	return filepath.Join(home, ".patchforge", name)
}
