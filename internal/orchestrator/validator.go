// Package orchestrator drives the validation state machine over task
// instances and fans it out across a bounded worker pool.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lucasnoah/patchforge/internal/buildtool"
	"github.com/lucasnoah/patchforge/internal/dataset"
	"github.com/lucasnoah/patchforge/internal/env"
	"github.com/lucasnoah/patchforge/internal/runner"
)

// Stage is one state of the validation pipeline. Stages advance strictly
// forward; the first failure finalizes the result and skips the rest.
type Stage int

const (
	StageProvisioning Stage = iota
	StagePatchApply
	StageBuild
	StageTestPatchApply
	StageTest
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageProvisioning:
		return "PROVISIONING"
	case StagePatchApply:
		return "PATCH_APPLY"
	case StageBuild:
		return "BUILD"
	case StageTestPatchApply:
		return "TEST_PATCH_APPLY"
	case StageTest:
		return "TEST"
	case StageDone:
		return "DONE"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// patchApplier is the slice of patch.Applicator the validator needs.
type patchApplier interface {
	Apply(ctx context.Context, root, patchText, name string) (bool, string, error)
}

// buildInvoker is the slice of buildtool.Invoker the validator needs.
type buildInvoker interface {
	Invoke(ctx context.Context, tool buildtool.Tool, scope buildtool.Scope, phase buildtool.Phase, root string) (bool, string, error)
}

// EventLogger records validation lifecycle events. Nil disables logging.
type EventLogger interface {
	LogValidationEvent(runID, instanceID, stage, event, detail string) error
}

// Opts wires a Validator.
type Opts struct {
	Provisioner   env.Provisioner
	Applicator    patchApplier
	Invoker       buildInvoker
	MaxLogSize    int
	DisableWerror bool
	Events        EventLogger // optional
	RunID         string
}

// Validator runs one full validation attempt per instance.
type Validator struct {
	prov          env.Provisioner
	apply         patchApplier
	invoke        buildInvoker
	maxLogSize    int
	disableWerror bool
	events        EventLogger
	runID         string
}

// NewValidator creates a Validator.
func NewValidator(opts Opts) *Validator {
	return &Validator{
		prov:          opts.Provisioner,
		apply:         opts.Applicator,
		invoke:        opts.Invoker,
		maxLogSize:    opts.MaxLogSize,
		disableWerror: opts.DisableWerror,
		events:        opts.Events,
		runID:         opts.RunID,
	}
}

// Validate drives one instance through the pipeline. Per-instance failures
// (bad revision, patch conflict, build break, timeout) are encoded in the
// result; a non-nil error means an infrastructure fault that no instance can
// make progress past, which aborts the batch.
func (v *Validator) Validate(ctx context.Context, inst dataset.TaskInstance) (res dataset.ValidationResult, err error) {
	res = dataset.ValidationResult{InstanceID: inst.InstanceID}

	e, provErr := v.prov.Provision(ctx, inst)
	defer func() {
		// Teardown runs on every exit path, including a provisioning
		// failure that produced no environment at all.
		if terr := v.prov.Teardown(context.WithoutCancel(ctx), e); terr != nil {
			v.logEvent(inst.InstanceID, StageDone, "teardown_failed", terr.Error())
		}
	}()

	if provErr != nil {
		var perr *env.ProvisionError
		if !errors.As(provErr, &perr) {
			return res, provErr
		}
		res.FailedStage = StageProvisioning.String()
		res.PatchBuildLog = v.truncate(fmt.Sprintf("%s failed:\n%s", perr.Step, perr.Log))
		v.logEvent(inst.InstanceID, StageProvisioning, "stage_failed", perr.Step)
		return res, nil
	}
	v.logEvent(inst.InstanceID, StageProvisioning, "stage_passed", "")

	if v.disableWerror {
		if werr := buildtool.DisableWerror(e.Root); werr != nil {
			return res, werr
		}
	}

	// PATCH_APPLY
	applied, log, aerr := v.apply.Apply(ctx, e.Root, inst.Patch, "patch.diff")
	if aerr != nil {
		return res, aerr
	}
	if !applied {
		res.FailedStage = StagePatchApply.String()
		res.PatchBuildLog = v.truncate("Patch failed:\n" + log)
		v.logEvent(inst.InstanceID, StagePatchApply, "stage_failed", "")
		return res, nil
	}
	res.PatchApplied = true
	v.logEvent(inst.InstanceID, StagePatchApply, "stage_passed", "")

	// BUILD: scope resolution and tool detection gate the build itself.
	scope, serr := buildtool.ResolveScope(inst.Patch)
	if serr != nil {
		res.FailedStage = StageBuild.String()
		res.PatchBuildLog = v.truncate("Could not determine module scope: " + serr.Error())
		v.logEvent(inst.InstanceID, StageBuild, "stage_failed", "no module scope")
		return res, nil
	}
	res.BuildScope = scope.Module
	if scope.Ambiguous() {
		res.ScopeAmbiguous = true
		v.logEvent(inst.InstanceID, StageBuild, "scope_ambiguous", strings.Join(scope.Candidates, ", "))
	}

	tool, derr := buildtool.Detect(e.Root)
	if derr != nil {
		res.FailedStage = StageBuild.String()
		res.PatchBuildLog = v.truncate(derr.Error())
		v.logEvent(inst.InstanceID, StageBuild, "stage_failed", "no build tool")
		return res, nil
	}

	ok, log, berr := v.invoke.Invoke(ctx, tool, scope, buildtool.PhaseBuild, e.Root)
	if berr != nil {
		return res, berr
	}
	res.PatchBuildPassed = ok
	res.PatchBuildLog = v.truncate(log)
	if !ok {
		res.FailedStage = StageBuild.String()
		v.logEvent(inst.InstanceID, StageBuild, "stage_failed", failDetail(log))
		return res, nil
	}
	v.logEvent(inst.InstanceID, StageBuild, "stage_passed", "")

	// An instance without a test patch terminates successfully here.
	if inst.TestPatch == "" {
		v.logEvent(inst.InstanceID, StageDone, "completed", "no test patch")
		return res, nil
	}

	// TEST_PATCH_APPLY
	applied, log, aerr = v.apply.Apply(ctx, e.Root, inst.TestPatch, "test_patch.diff")
	if aerr != nil {
		return res, aerr
	}
	if !applied {
		res.FailedStage = StageTestPatchApply.String()
		res.TestBuildLog = v.truncate("Test patch failed:\n" + log)
		v.logEvent(inst.InstanceID, StageTestPatchApply, "stage_failed", "")
		return res, nil
	}
	res.TestPatchApplied = true
	v.logEvent(inst.InstanceID, StageTestPatchApply, "stage_passed", "")

	// TEST
	ok, log, berr = v.invoke.Invoke(ctx, tool, scope, buildtool.PhaseTest, e.Root)
	if berr != nil {
		return res, berr
	}
	res.TestBuildPassed = ok
	res.TestBuildLog = v.truncate(log)
	if !ok {
		res.FailedStage = StageTest.String()
		v.logEvent(inst.InstanceID, StageTest, "stage_failed", failDetail(log))
		return res, nil
	}
	v.logEvent(inst.InstanceID, StageTest, "stage_passed", "")
	v.logEvent(inst.InstanceID, StageDone, "completed", "")
	return res, nil
}

func (v *Validator) truncate(s string) string {
	return runner.Truncate(s, v.maxLogSize)
}

func (v *Validator) logEvent(instanceID string, stage Stage, event, detail string) {
	if v.events == nil {
		return
	}
	_ = v.events.LogValidationEvent(v.runID, instanceID, stage.String(), event, detail)
}

// failDetail distinguishes timeouts from ordinary failures in the event log.
func failDetail(log string) string {
	if log == runner.TimeoutMarker {
		return "timeout"
	}
	return ""
}
