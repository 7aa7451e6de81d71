// Package buildtool resolves which build tool governs an environment and
// issues scoped build and test commands through it.
package buildtool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lucasnoah/patchforge/internal/patch"
	"github.com/lucasnoah/patchforge/internal/runner"
)

// Tool identifies a recognized build tool family.
type Tool string

const (
	Gradle Tool = "gradle"
	Maven  Tool = "maven"
)

// Phase selects between compiling a module and running its tests.
type Phase string

const (
	PhaseBuild Phase = "build"
	PhaseTest  Phase = "test"
)

// Detect inspects the environment root for build-tool markers: a gradlew
// wrapper script first, then a Maven project descriptor. Convention-based;
// nothing is configured.
func Detect(root string) (Tool, error) {
	if _, err := os.Stat(filepath.Join(root, "gradlew")); err == nil {
		return Gradle, nil
	}
	if _, err := os.Stat(filepath.Join(root, "pom.xml")); err == nil {
		return Maven, nil
	}
	return "", fmt.Errorf("no recognized build tool in %s (gradlew or pom.xml)", root)
}

// Scope is the sub-module a build or test command is confined to, derived
// from the patch content rather than stored anywhere.
type Scope struct {
	Module     string   // module root of the first changed file
	Candidates []string // distinct module roots across the whole patch
}

// Ambiguous reports whether the patch touches more than one plausible module
// root. The pipeline proceeds with the first but the condition is surfaced
// on the result.
func (s Scope) Ambiguous() bool {
	return len(s.Candidates) > 1
}

// ResolveScope derives the build scope from a patch: for each changed file,
// the path segments before the "src" marker, or the file's parent directory
// when no marker exists. A first file with no derivable root is a hard
// failure; the build cannot be scoped.
func ResolveScope(patchText string) (Scope, error) {
	files := patch.ChangedFiles(patchText)
	if len(files) == 0 {
		return Scope{}, fmt.Errorf("patch has no diff headers to derive a module from")
	}

	var scope Scope
	seen := make(map[string]bool)
	for _, f := range files {
		root := moduleRoot(f)
		if root == "" {
			continue
		}
		if !seen[root] {
			seen[root] = true
			scope.Candidates = append(scope.Candidates, root)
		}
	}

	first := moduleRoot(files[0])
	if first == "" {
		return Scope{}, fmt.Errorf("cannot determine module root from %q", files[0])
	}
	scope.Module = first
	return scope, nil
}

// moduleRoot extracts the module path for one changed file.
func moduleRoot(file string) string {
	parts := strings.Split(file, "/")
	for i, p := range parts {
		if p == "src" {
			return strings.Join(parts[:i], "/")
		}
	}
	dir := filepath.Dir(file)
	if dir == "." {
		return ""
	}
	return dir
}

// Invoker runs scoped build/test commands via the command runner.
type Invoker struct {
	run        runner.CommandRunner
	timeout    time.Duration
	maxLogSize int
}

// NewInvoker creates an Invoker.
func NewInvoker(run runner.CommandRunner, timeout time.Duration, maxLogSize int) *Invoker {
	return &Invoker{run: run, timeout: timeout, maxLogSize: maxLogSize}
}

// Invoke runs one build or test command scoped to the module, returning
// success and the truncated log.
func (i *Invoker) Invoke(ctx context.Context, tool Tool, scope Scope, phase Phase, root string) (bool, string, error) {
	name, args, err := command(tool, scope, phase, root)
	if err != nil {
		return false, "", err
	}
	out, runErr := i.run.Run(ctx, runner.RunOpts{
		Dir:     root,
		Name:    name,
		Args:    args,
		Timeout: i.timeout,
	})
	if runErr != nil {
		return false, "", runErr
	}
	// The timeout marker is stored whole; truncation only bounds real logs.
	if out.Output == runner.TimeoutMarker {
		return out.Success, out.Output, nil
	}
	return out.Success, runner.Truncate(out.Output, i.maxLogSize), nil
}

// command builds the argv for a tool/scope/phase combination.
func command(tool Tool, scope Scope, phase Phase, root string) (string, []string, error) {
	switch tool {
	case Gradle:
		// gradlew is addressed by absolute path: a bare "./gradlew" would
		// resolve against the process cwd, not the command's Dir.
		wrapper := filepath.Join(root, "gradlew")
		module := ":" + strings.ReplaceAll(scope.Module, "/", ":")
		switch phase {
		case PhaseBuild:
			return wrapper, []string{module + ":build", "-x", "test", "--build-cache"}, nil
		case PhaseTest:
			return wrapper, []string{module + ":test", "--build-cache"}, nil
		}
	case Maven:
		switch phase {
		case PhaseBuild:
			return "mvn", []string{"-pl", scope.Module, "-am", "clean", "install", "-DskipTests"}, nil
		case PhaseTest:
			return "mvn", []string{"-pl", scope.Module, "test"}, nil
		}
	}
	return "", nil, fmt.Errorf("unsupported tool/phase %s/%s", tool, phase)
}

// werrorPatch strips -Werror from every JavaCompile task so that warnings in
// untouched modules don't fail an otherwise clean build.
const werrorPatch = `

// Disable global -Werror for validation builds
allprojects {
    tasks.withType(JavaCompile).configureEach {
        options.compilerArgs.removeAll { it == '-Werror' }
    }
}
`

// DisableWerror appends the -Werror neutralizer to the environment's root
// build.gradle. Best-effort: environments without one are left alone.
func DisableWerror(root string) error {
	path := filepath.Join(root, "build.gradle")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open build.gradle: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(werrorPatch); err != nil {
		return fmt.Errorf("patch build.gradle: %w", err)
	}
	return nil
}
