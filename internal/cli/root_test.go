package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores any flags changed by a previous Execute call so
// invocations of the shared rootCmd are isolated from each other.
func resetFlags(c *cobra.Command) {
	c.Flags().Visit(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func executeCommand(args ...string) (string, error) {
	resetFlags(rootCmd)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	SetVersion("test-version")
	out, err := executeCommand("version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "test-version") {
		t.Errorf("expected version output to contain 'test-version', got: %s", out)
	}
}

func TestRootHelp(t *testing.T) {
	out, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedSubcommands := []string{"validate", "env", "config", "db", "version"}
	for _, sub := range expectedSubcommands {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing subcommand %q", sub)
		}
	}
}

func TestEnvSubcommands(t *testing.T) {
	subcmds := []string{"provision", "teardown"}
	for _, sub := range subcmds {
		out, err := executeCommand("env", sub, "--help")
		if err != nil {
			t.Errorf("env %s --help failed: %v", sub, err)
		}
		if out == "" {
			t.Errorf("env %s --help produced no output", sub)
		}
	}
}

func TestConfigSubcommands(t *testing.T) {
	subcmds := []string{"validate", "show", "init"}
	for _, sub := range subcmds {
		out, err := executeCommand("config", sub, "--help")
		if err != nil {
			t.Errorf("config %s --help failed: %v", sub, err)
		}
		if out == "" {
			t.Errorf("config %s --help produced no output", sub)
		}
	}
}

func TestDBSubcommands(t *testing.T) {
	subcmds := []string{"migrate", "reset", "events"}
	for _, sub := range subcmds {
		out, err := executeCommand("db", sub, "--help")
		if err != nil {
			t.Errorf("db %s --help failed: %v", sub, err)
		}
		if out == "" {
			t.Errorf("db %s --help produced no output", sub)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	_, err := executeCommand("nonexistent")
	if err == nil {
		t.Error("expected error for unknown command, got nil")
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "patchforge.yaml")
	body := "validation:\n  strategy: chroot\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := executeCommand("validate", "--config", cfgPath, filepath.Join(dir, "data.jsonl"))
	if err == nil || !strings.Contains(err.Error(), "strategy") {
		t.Errorf("expected unknown strategy error, got: %v", err)
	}
}

func TestDBEventsRequiresExactlyOneFilter(t *testing.T) {
	_, err := executeCommand("db", "events")
	if err == nil || !strings.Contains(err.Error(), "--instance or --run") {
		t.Errorf("expected filter error, got: %v", err)
	}
}
