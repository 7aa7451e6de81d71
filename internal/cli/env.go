package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/lucasnoah/patchforge/internal/config"
	"github.com/lucasnoah/patchforge/internal/dataset"
	"github.com/lucasnoah/patchforge/internal/env"
	"github.com/lucasnoah/patchforge/internal/runner"
	"github.com/spf13/cobra"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Manage validation environments directly",
	Long: `Provision or tear down a single instance environment outside a
validation run. Useful for debugging a failing instance by hand.`,
}

var envProvisionCmd = &cobra.Command{
	Use:   "provision <instance-id> <base-commit>",
	Short: "Provision an environment for one instance",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(mustString(cmd, "config"))
		if err != nil {
			return err
		}
		if err := config.Validate(cfg); err != nil {
			return err
		}
		prov, err := newProvisioner(cfg, &runner.ExecRunner{})
		if err != nil {
			return err
		}

		inst := dataset.TaskInstance{InstanceID: args[0], BaseCommit: args[1]}
		e, err := prov.Provision(context.Background(), inst)
		if err != nil {
			var perr *env.ProvisionError
			if errors.As(err, &perr) {
				return fmt.Errorf("%s failed:\n%s", perr.Step, perr.Log)
			}
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), e.Root)
		return nil
	},
}

var envTeardownCmd = &cobra.Command{
	Use:   "teardown <instance-id>",
	Short: "Tear down the environment for one instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(mustString(cmd, "config"))
		if err != nil {
			return err
		}
		if err := config.Validate(cfg); err != nil {
			return err
		}
		prov, err := newProvisioner(cfg, &runner.ExecRunner{})
		if err != nil {
			return err
		}

		id := args[0]
		e := &env.Environment{InstanceID: id, Root: environmentRoot(cfg, id)}
		if err := prov.Teardown(context.Background(), e); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Tore down %s\n", e.Root)
		return nil
	},
}

// environmentRoot reconstructs where a strategy placed an instance's root.
func environmentRoot(cfg *config.Config, instanceID string) string {
	v := cfg.Validation
	if v.Strategy == "sandbox" {
		return filepath.Join(v.Sandbox.BuildDir, env.SanitizeID(instanceID))
	}
	return filepath.Join(v.WorkDir, env.SanitizeID(instanceID))
}

func init() {
	envCmd.AddCommand(envProvisionCmd)
	envCmd.AddCommand(envTeardownCmd)
	envCmd.PersistentFlags().String("config", "", "Path to config file (default ./patchforge.yaml)")
}
