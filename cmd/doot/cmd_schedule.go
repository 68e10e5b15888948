package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/user/doot/internal/schedule"
)

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage scheduled tasks",
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedule entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		entries, err := schedule.LoadEntries(cfg.Schedule.Path)
		if err != nil {
			return fmt.Errorf("load schedule: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("No scheduled tasks.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tTASK\tRECURRENCE\tDELIVERY")
		for _, e := range entries {
			delivery := e.Delivery
			if delivery == "" {
				delivery = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Time, e.TaskID, e.Recurrence, delivery)
		}
		return w.Flush()
	},
}
