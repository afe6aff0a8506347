package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/curatordash/internal/api"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List and delete task reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List task reports",
	RunE:  runReportsList,
}

var reportsRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove"},
	Short:   "Delete a task report",
	Args:    cobra.ExactArgs(1),
	RunE:    runReportsRemove,
}

func init() {
	reportsListCmd.Flags().String("status", "", "only show reports with this status (pending, verified, rejected)")
	addYesFlag(reportsRemoveCmd)

	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsRemoveCmd)
	rootCmd.AddCommand(reportsCmd)
}

func runReportsList(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")

	client, err := newClient()
	if err != nil {
		return err
	}
	reports, err := client.TaskReports(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing task reports: %w", err)
	}

	var shown []api.TaskReport
	for _, r := range reports {
		if status == "" || string(r.Status) == status {
			shown = append(shown, r)
		}
	}

	out := cmd.OutOrStdout()
	if len(shown) == 0 {
		fmt.Fprintln(out, "No task reports.")
		return nil
	}

	w := newTable(out)
	fmt.Fprintln(w, "ID\tCURATOR\tSERVER\tSTATUS\tPOINTS\tSUBMITTED\tDESCRIPTION")
	for _, r := range shown {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.CuratorName, r.ServerName, r.Status, r.Points, humanize.Time(r.CreatedAt), truncate(r.Description, 60))
	}
	return w.Flush()
}

func runReportsRemove(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	ok, err := confirm(cmd, fmt.Sprintf("Delete task report %d", id))
	if err != nil || !ok {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	if err := client.DeleteTaskReport(cmd.Context(), id); err != nil {
		return fmt.Errorf("deleting task report: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted task report %d\n", id)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
