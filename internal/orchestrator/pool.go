package orchestrator

import (
	"context"
	"sync"

	"github.com/lucasnoah/patchforge/internal/dataset"
)

// GatePolicy decides which partition a completed result belongs to.
type GatePolicy string

const (
	// GateBuild validates on a passing patch build, plus a passing test
	// build when a test patch was attempted.
	GateBuild GatePolicy = "build"
	// GateTest validates only on a passing test build; instances without a
	// test patch can never validate under this policy.
	GateTest GatePolicy = "test"
)

// Validated applies the policy to one result.
func (g GatePolicy) Validated(inst dataset.TaskInstance, res dataset.ValidationResult) bool {
	switch g {
	case GateTest:
		return res.TestBuildPassed
	default:
		if inst.TestPatch != "" {
			return res.PatchBuildPassed && res.TestBuildPassed
		}
		return res.PatchBuildPassed
	}
}

// Pool runs validations concurrently over a fixed number of workers. Each
// worker runs one full state machine to completion before taking the next
// instance; workers share nothing mutable.
type Pool struct {
	validator *Validator
	workers   int
	gate      GatePolicy
}

// NewPool creates a Pool.
func NewPool(validator *Validator, workers int, gate GatePolicy) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{validator: validator, workers: workers, gate: gate}
}

type completion struct {
	rec       dataset.Record
	validated bool
	err       error
}

// ValidateBatch validates all instances and partitions the results. Every
// instance yields exactly one record in exactly one partition, in completion
// order. onResult, if non-nil, is called once per record as it completes.
// A non-nil error means an infrastructure fault aborted the batch; records
// completed before the fault are still returned.
func (p *Pool) ValidateBatch(ctx context.Context, instances []dataset.TaskInstance, onResult func(dataset.Record, bool)) (validated, failed []dataset.Record, err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan dataset.TaskInstance)
	results := make(chan completion)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for inst := range jobs {
				results <- p.runOne(ctx, inst)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, inst := range instances {
			select {
			case jobs <- inst:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for c := range results {
		if c.err != nil {
			if err == nil {
				err = c.err
				cancel() // stop feeding; drain what's in flight
			}
			continue
		}
		if c.validated {
			validated = append(validated, c.rec)
		} else {
			failed = append(failed, c.rec)
		}
		if onResult != nil {
			onResult(c.rec, c.validated)
		}
	}
	return validated, failed, err
}

// runOne validates a single instance, screening out records the pipeline
// cannot run at all. Broken instances still produce a failed record so that
// nothing is silently dropped.
func (p *Pool) runOne(ctx context.Context, inst dataset.TaskInstance) completion {
	if verr := inst.Validate(); verr != nil {
		res := dataset.ValidationResult{
			InstanceID:    inst.InstanceID,
			FailedStage:   "INVALID",
			PatchBuildLog: verr.Error(),
		}
		return completion{rec: dataset.NewRecord(inst, res), validated: false}
	}

	res, err := p.validator.Validate(ctx, inst)
	if err != nil {
		return completion{err: err}
	}
	return completion{
		rec:       dataset.NewRecord(inst, res),
		validated: p.gate.Validated(inst, res),
	}
}
