package cli

import (
	"fmt"
	"strings"

	"github.com/lucasnoah/patchforge/internal/db"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Event log management",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply event log schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDB()
		if err != nil {
			return err
		}
		defer d.Close()
		if err := d.Migrate(); err != nil {
			return err
		}
		cmd.Println("Schema is up to date.")
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the event log (destructive!)",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDB()
		if err != nil {
			return err
		}
		defer d.Close()
		if err := d.Reset(); err != nil {
			return err
		}
		cmd.Println("Event log reset.")
		return nil
	},
}

var dbEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recorded validation events",
	RunE: func(cmd *cobra.Command, args []string) error {
		instance := mustString(cmd, "instance")
		run := mustString(cmd, "run")
		if (instance == "") == (run == "") {
			return fmt.Errorf("exactly one of --instance or --run is required")
		}

		d, err := openDB()
		if err != nil {
			return err
		}
		defer d.Close()

		var events []db.ValidationEvent
		if instance != "" {
			events, err = d.GetInstanceEvents(instance)
		} else {
			events, err = d.GetRunEvents(run)
		}
		if err != nil {
			return err
		}
		if len(events) == 0 {
			cmd.Println("No events found.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-20s %-40s %-16s %-12s %s\n", "TIMESTAMP", "INSTANCE", "STAGE", "EVENT", "DETAIL")
		for _, e := range events {
			detail := e.Detail
			if i := strings.IndexByte(detail, '\n'); i >= 0 {
				detail = detail[:i] + "..."
			}
			fmt.Fprintf(w, "%-20s %-40s %-16s %-12s %s\n", e.Timestamp, e.InstanceID, e.Stage, e.Event, detail)
		}
		return nil
	},
}

func openDB() (*db.DB, error) {
	path, err := db.DefaultPath()
	if err != nil {
		return nil, err
	}
	return db.Open(path)
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbResetCmd)
	dbCmd.AddCommand(dbEventsCmd)

	dbEventsCmd.Flags().String("instance", "", "Show events for one instance ID")
	dbEventsCmd.Flags().String("run", "", "Show events for one batch run ID")
}
