package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/lucasnoah/patchforge/internal/buildtool"
	"github.com/lucasnoah/patchforge/internal/config"
	"github.com/lucasnoah/patchforge/internal/dataset"
	"github.com/lucasnoah/patchforge/internal/db"
	"github.com/lucasnoah/patchforge/internal/orchestrator"
	"github.com/lucasnoah/patchforge/internal/patch"
	"github.com/lucasnoah/patchforge/internal/runner"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <dataset.jsonl>",
	Short: "Validate every instance in a JSONL dataset",
	Long: `Reads candidate instances from a JSONL file, runs each through
provision, patch apply, build, test patch apply, and test inside its own
disposable environment, and writes every instance to exactly one of the
validated or failed output streams.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(mustString(cmd, "config"))
		if err != nil {
			return err
		}
		applyValidateFlags(cmd, cfg)
		if err := config.Validate(cfg); err != nil {
			return err
		}
		return runValidate(cmd, cfg, args[0])
	},
}

// applyValidateFlags lets explicit flags override the loaded config.
func applyValidateFlags(cmd *cobra.Command, cfg *config.Config) {
	v := &cfg.Validation
	if cmd.Flags().Changed("strategy") {
		v.Strategy = mustString(cmd, "strategy")
	}
	if cmd.Flags().Changed("repo-dir") {
		v.RepoDir = mustString(cmd, "repo-dir")
	}
	if cmd.Flags().Changed("work-dir") {
		v.WorkDir = mustString(cmd, "work-dir")
	}
	if cmd.Flags().Changed("workers") {
		v.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("gate") {
		v.Gate = mustString(cmd, "gate")
	}
	if cmd.Flags().Changed("disable-werror") {
		v.DisableWerror, _ = cmd.Flags().GetBool("disable-werror")
	}
}

func runValidate(cmd *cobra.Command, cfg *config.Config, datasetPath string) error {
	v := cfg.Validation
	w := cmd.OutOrStdout()

	instances, malformed, err := dataset.Load(datasetPath)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	if malformed > 0 {
		fmt.Fprintf(w, "Warning: skipped %d malformed lines in %s\n", malformed, datasetPath)
	}
	if len(instances) == 0 {
		return fmt.Errorf("no instances in %s", datasetPath)
	}

	run := &runner.ExecRunner{}
	prov, err := newProvisioner(cfg, run)
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	events := openEventLog(w)
	if c, ok := events.(io.Closer); ok {
		defer c.Close()
	}

	validator := orchestrator.NewValidator(orchestrator.Opts{
		Provisioner:   prov,
		Applicator:    patch.NewApplicator(run, v.CommandTimeoutDuration(), v.MaxLogSize),
		Invoker:       buildtool.NewInvoker(run, v.BuildTimeoutDuration(), v.MaxLogSize),
		MaxLogSize:    v.MaxLogSize,
		DisableWerror: v.DisableWerror,
		Events:        events,
		RunID:         runID,
	})
	pool := orchestrator.NewPool(validator, v.Workers, orchestrator.GatePolicy(v.Gate))

	outPath := mustString(cmd, "output")
	failedPath := mustString(cmd, "failed")
	sink, err := dataset.OpenSink(outPath, failedPath)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer sink.Close()

	fmt.Fprintf(w, "Validating %d instances (strategy=%s, workers=%d, gate=%s, run=%s)\n",
		len(instances), v.Strategy, v.Workers, v.Gate, runID)

	var sinkErr error
	onResult := func(rec dataset.Record, validated bool) {
		if err := sink.Write(rec, validated); err != nil && sinkErr == nil {
			sinkErr = err
		}
		printStatus(w, rec, validated)
	}

	_, _, err = pool.ValidateBatch(context.Background(), instances, onResult)
	if err != nil {
		return fmt.Errorf("validation aborted: %w", err)
	}
	if sinkErr != nil {
		return fmt.Errorf("write results: %w", sinkErr)
	}

	passed, failed := sink.Counts()
	fmt.Fprintf(w, "\nPassed: %d / %d\n", passed, passed+failed)
	fmt.Fprintf(w, "Validated results: %s\n", outPath)
	fmt.Fprintf(w, "Failed results:    %s\n", failedPath)
	return nil
}

// openEventLog opens the sqlite event log. Event logging is best-effort; a
// missing or unwritable database degrades to a warning rather than blocking
// the batch.
func openEventLog(w io.Writer) orchestrator.EventLogger {
	path, err := db.DefaultPath()
	if err != nil {
		fmt.Fprintf(w, "Warning: event log disabled: %v\n", err)
		return nil
	}
	d, err := db.Open(path)
	if err != nil {
		fmt.Fprintf(w, "Warning: event log disabled: %v\n", err)
		return nil
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		fmt.Fprintf(w, "Warning: event log disabled: %v\n", err)
		return nil
	}
	return d
}

func printStatus(w io.Writer, rec dataset.Record, validated bool) {
	if validated {
		fmt.Fprintf(w, "%s %s\n", color.GreenString("PASS"), rec.InstanceID)
		return
	}
	stage := rec.FailedStage
	if stage == "" {
		stage = "GATE"
	}
	fmt.Fprintf(w, "%s %s (%s)\n", color.RedString("FAIL"), rec.InstanceID, stage)
}

func mustString(cmd *cobra.Command, name string) string {
	s, _ := cmd.Flags().GetString(name)
	return s
}

func init() {
	validateCmd.Flags().String("config", "", "Path to config file (default ./patchforge.yaml)")
	validateCmd.Flags().String("output", "validated.jsonl", "Output path for validated instances")
	validateCmd.Flags().String("failed", "failed.jsonl", "Output path for failed instances")
	validateCmd.Flags().String("strategy", "", "Isolation strategy (worktree, sandbox)")
	validateCmd.Flags().String("repo-dir", "", "Shared local clone (worktree strategy)")
	validateCmd.Flags().String("work-dir", "", "Directory for per-instance environments")
	validateCmd.Flags().Int("workers", 0, "Number of concurrent validators")
	validateCmd.Flags().String("gate", "", "Validation gate (build, test)")
	validateCmd.Flags().Bool("disable-werror", false, "Neutralize -Werror in gradle builds")
}
