package dataset

import "fmt"

// TaskInstance is one unit of work: a repository at a base revision plus a
// candidate patch and its accompanying test patch. Instances are immutable
// once loaded; re-validating the same instance is always safe.
type TaskInstance struct {
	InstanceID       string `json:"instance_id"`
	Repo             string `json:"repo,omitempty"`
	PullNumber       int    `json:"pull_number,omitempty"`
	BaseCommit       string `json:"base_commit"`
	Patch            string `json:"patch"`
	TestPatch        string `json:"test_patch,omitempty"`
	ProblemStatement string `json:"problem_statement,omitempty"`
	HintsText        string `json:"hints_text,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
}

// Validate checks the fields the pipeline cannot run without.
func (t TaskInstance) Validate() error {
	if t.InstanceID == "" {
		return fmt.Errorf("instance has no instance_id")
	}
	if t.BaseCommit == "" {
		return fmt.Errorf("instance %s has no base_commit", t.InstanceID)
	}
	if t.Patch == "" {
		return fmt.Errorf("instance %s has an empty patch", t.InstanceID)
	}
	return nil
}

// ValidationResult is the terminal record for one validation attempt. The
// four milestones are monotonic in pipeline order: TestBuildPassed implies
// TestPatchApplied implies PatchBuildPassed implies PatchApplied.
type ValidationResult struct {
	InstanceID       string `json:"instance_id"`
	PatchApplied     bool   `json:"patch_applied"`
	PatchBuildPassed bool   `json:"patch_build_passed"`
	TestPatchApplied bool   `json:"test_patch_applied"`
	TestBuildPassed  bool   `json:"test_build_passed"`
	PatchBuildLog    string `json:"patch_build_log"`
	TestBuildLog     string `json:"test_build_log"`
	FailedStage      string `json:"failed_stage,omitempty"`
	BuildScope       string `json:"build_scope,omitempty"`
	ScopeAmbiguous   bool   `json:"scope_ambiguous,omitempty"`
}

// Record is what the output streams carry: the instance fields plus the
// validation outcome, flattened into one JSON object.
type Record struct {
	TaskInstance
	PatchApplied     bool   `json:"patch_applied"`
	PatchBuildPassed bool   `json:"patch_build_passed"`
	TestPatchApplied bool   `json:"test_patch_applied"`
	TestBuildPassed  bool   `json:"test_build_passed"`
	PatchBuildLog    string `json:"patch_build_log"`
	TestBuildLog     string `json:"test_build_log"`
	FailedStage      string `json:"failed_stage,omitempty"`
	BuildScope       string `json:"build_scope,omitempty"`
	ScopeAmbiguous   bool   `json:"scope_ambiguous,omitempty"`
}

// NewRecord merges an instance with its validation result.
func NewRecord(inst TaskInstance, res ValidationResult) Record {
	return Record{
		TaskInstance:     inst,
		PatchApplied:     res.PatchApplied,
		PatchBuildPassed: res.PatchBuildPassed,
		TestPatchApplied: res.TestPatchApplied,
		TestBuildPassed:  res.TestBuildPassed,
		PatchBuildLog:    res.PatchBuildLog,
		TestBuildLog:     res.TestBuildLog,
		FailedStage:      res.FailedStage,
		BuildScope:       res.BuildScope,
		ScopeAmbiguous:   res.ScopeAmbiguous,
	}
}
