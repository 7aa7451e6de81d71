package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patchforge.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
validation:
  repo_dir: ./spring-boot
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	v := cfg.Validation
	if v.Strategy != "worktree" {
		t.Errorf("strategy = %q, want worktree", v.Strategy)
	}
	if v.Workers != 4 {
		t.Errorf("workers = %d, want 4", v.Workers)
	}
	if v.MaxLogSize != 3000 {
		t.Errorf("max_log_size = %d, want 3000", v.MaxLogSize)
	}
	if v.Gate != "build" {
		t.Errorf("gate = %q, want build", v.Gate)
	}
	if v.Sandbox.Tool != "apptainer" || v.Sandbox.Image != "ubuntu:22.04" {
		t.Errorf("sandbox defaults not applied: %+v", v.Sandbox)
	}
}

func TestLoad_ExplicitValuesKept(t *testing.T) {
	path := writeConfig(t, `
validation:
  strategy: sandbox
  workers: 12
  build_timeout: 30m
  gate: test
  sandbox:
    tool: docker
    image: eclipse-temurin:17
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	v := cfg.Validation
	if v.Strategy != "sandbox" || v.Workers != 12 || v.Gate != "test" {
		t.Errorf("explicit values overridden: %+v", v)
	}
	if v.Sandbox.Tool != "docker" || v.Sandbox.Image != "eclipse-temurin:17" {
		t.Errorf("sandbox values overridden: %+v", v.Sandbox)
	}
	if got := v.BuildTimeoutDuration(); got != 30*time.Minute {
		t.Errorf("build timeout = %v, want 30m", got)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeConfig(t, "validation: [not a map")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestTimeoutFallbacks(t *testing.T) {
	var v Validation
	if got := v.CommandTimeoutDuration(); got != 5*time.Minute {
		t.Errorf("command timeout fallback = %v", got)
	}
	if got := v.BuildTimeoutDuration(); got != 100*time.Minute {
		t.Errorf("build timeout fallback = %v", got)
	}
	v.BuildTimeout = "not-a-duration"
	if got := v.BuildTimeoutDuration(); got != 100*time.Minute {
		t.Errorf("unparseable timeout should fall back, got %v", got)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.Validation.RepoDir = "/repo"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with repo dir", func(c *Config) {}, false},
		{"worktree without repo dir", func(c *Config) { c.Validation.RepoDir = "" }, true},
		{"unknown strategy", func(c *Config) { c.Validation.Strategy = "chroot" }, true},
		{"sandbox without image", func(c *Config) {
			c.Validation.Strategy = "sandbox"
			c.Validation.Sandbox.Image = ""
		}, true},
		{"sandbox ok without repo dir", func(c *Config) {
			c.Validation.Strategy = "sandbox"
			c.Validation.RepoDir = ""
		}, false},
		{"zero workers", func(c *Config) { c.Validation.Workers = 0 }, true},
		{"unknown gate", func(c *Config) { c.Validation.Gate = "always" }, true},
		{"bad duration", func(c *Config) { c.Validation.BuildTimeout = "ten minutes" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
