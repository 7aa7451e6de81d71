package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "patchforge",
	Short: "Isolated validation of benchmark patch instances",
	Long: `patchforge checks whether candidate (repository, base commit, patch,
test patch) instances apply, build, and test cleanly, each inside its own
disposable environment: a git worktree linked to a shared clone, or a
writable container sandbox.

Results are partitioned into validated and failed JSONL streams; per-stage
events are recorded in ~/.patchforge/patchforge.db.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
}
