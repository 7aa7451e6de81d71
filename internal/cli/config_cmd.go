package cli

import (
	"fmt"
	"os"

	"github.com/lucasnoah/patchforge/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configFile string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate and inspect configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configFile)
		if err != nil {
			return err
		}
		if err := config.Validate(cfg); err != nil {
			return err
		}
		cmd.Println("Configuration is valid.")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration with defaults merged",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configFile)
		if err != nil {
			return err
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshalling config: %w", err)
		}

		cmd.Print(string(data))
		return nil
	},
}

const starterConfig = `validation:
  strategy: worktree       # worktree or sandbox
  repo_dir: ""             # shared local clone (worktree strategy)
  work_dir: ""             # default ~/.patchforge/worktrees
  workers: 4
  command_timeout: 5m
  build_timeout: 100m
  max_log_size: 3000
  gate: build              # build or test
  disable_werror: false
  sandbox:
    tool: apptainer
    image: ubuntu:22.04
    build_dir: ""          # default ~/.patchforge/sandboxes
    setup_env_script: ""
    setup_repo_script: ""
`

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter patchforge.yaml in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "patchforge.yaml"
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		cmd.Printf("Wrote %s\n", path)
		return nil
	},
}

func init() {
	configCmd.PersistentFlags().StringVarP(&configFile, "file", "f", "", "path to config file")
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
