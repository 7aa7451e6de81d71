// Package env provisions exclusive, disposable working directories for
// validation attempts. Two interchangeable strategies exist: a git worktree
// linked to a shared local clone, and a writable container sandbox.
package env

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/lucasnoah/patchforge/internal/dataset"
)

// Environment is a filesystem root bound to exactly one instance for the
// lifetime of one validation attempt. It is owned by the validation that
// created it and never shared.
type Environment struct {
	InstanceID string
	Root       string
}

// Provisioner creates and destroys environments. Teardown must be idempotent:
// tearing down an already-removed environment (or nil) succeeds.
type Provisioner interface {
	Provision(ctx context.Context, inst dataset.TaskInstance) (*Environment, error)
	Teardown(ctx context.Context, e *Environment) error
}

// ProvisionError carries the failing step and its captured log so the
// orchestrator can attribute the failure precisely.
type ProvisionError struct {
	Step string
	Log  string
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision failed at %s", e.Step)
}

var unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeID maps an instance ID to a path-safe directory name. Instance IDs
// contain owner/repo separators and image keys contain colons; either would
// break (or collide) as a literal path segment.
func SanitizeID(id string) string {
	s := strings.ReplaceAll(id, "/", "__")
	s = strings.ReplaceAll(s, ":", "__")
	s = unsafePathChars.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
