package runner

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRun_Success(t *testing.T) {
	r := &ExecRunner{}
	out, err := r.Run(context.Background(), RunOpts{
		Dir:  t.TempDir(),
		Name: "sh", Args: []string{"-c", "echo hello"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Success {
		t.Error("expected success")
	}
	if strings.TrimSpace(out.Output) != "hello" {
		t.Errorf("expected output hello, got %q", out.Output)
	}
}

func TestRun_NonZeroExitIsNotAnError(t *testing.T) {
	r := &ExecRunner{}
	out, err := r.Run(context.Background(), RunOpts{
		Name: "sh", Args: []string{"-c", "echo broken >&2; exit 3"},
	})
	if err != nil {
		t.Fatalf("non-zero exit must not be an error, got: %v", err)
	}
	if out.Success {
		t.Error("expected failure")
	}
	if !strings.Contains(out.Output, "broken") {
		t.Errorf("stderr should be captured in merged output, got %q", out.Output)
	}
}

func TestRun_MergesStdoutAndStderr(t *testing.T) {
	r := &ExecRunner{}
	out, err := r.Run(context.Background(), RunOpts{
		Name: "sh", Args: []string{"-c", "echo one; echo two >&2"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.Output, "one") || !strings.Contains(out.Output, "two") {
		t.Errorf("expected both streams in output, got %q", out.Output)
	}
}

func TestRun_TimeoutProducesMarker(t *testing.T) {
	r := &ExecRunner{}
	out, err := r.Run(context.Background(), RunOpts{
		Name: "sh", Args: []string{"-c", "echo partial; sleep 10"},
		Timeout: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("timeout must not be an error, got: %v", err)
	}
	if out.Success {
		t.Error("expected failure on timeout")
	}
	if out.Output != TimeoutMarker {
		t.Errorf("expected output %q, got %q", TimeoutMarker, out.Output)
	}
}

func TestRun_MissingExecutableIsFatal(t *testing.T) {
	r := &ExecRunner{}
	_, err := r.Run(context.Background(), RunOpts{Name: "definitely-not-a-real-tool-xyz"})
	if err == nil {
		t.Fatal("expected error for missing executable")
	}
}

func TestRun_EnvOverlay(t *testing.T) {
	r := &ExecRunner{}
	out, err := r.Run(context.Background(), RunOpts{
		Env:  []string{"PATCHFORGE_PROBE=overlay-value"},
		Name: "sh", Args: []string{"-c", "echo $PATCHFORGE_PROBE"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out.Output) != "overlay-value" {
		t.Errorf("expected overlay value, got %q", out.Output)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"shorter than max", "abc", 10, "abc"},
		{"exact length", "abc", 3, "abc"},
		{"cut to prefix", "abcdef", 3, "abc"},
		{"zero max keeps all", "abc", 0, "abc"},
		{"multibyte boundary", "aé", 2, "a"}, // é is 2 bytes, cut lands mid-rune
		{"multibyte kept whole", "aé", 3, "aé"},
		{"emoji boundary", "ab\U0001F600", 4, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestTruncate_NeverExceedsMax(t *testing.T) {
	long := strings.Repeat("héllo wörld ", 1000)
	for _, max := range []int{1, 2, 3, 100, 2999, 3000} {
		if got := Truncate(long, max); len(got) > max {
			t.Errorf("Truncate(..., %d) produced %d bytes", max, len(got))
		}
	}
}
