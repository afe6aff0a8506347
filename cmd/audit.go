package cmd

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/curatordash/internal/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the journal of changes made through the dashboard",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal entries, newest first",
	RunE:  runAuditList,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete journal entries older than a given age",
	RunE:  runAuditPrune,
}

func init() {
	auditListCmd.Flags().String("client", "", "only show entries from this browser client id")
	auditListCmd.Flags().String("entity", "", "only show entries for this entity (curators, servers, reports, backup, settings)")
	auditListCmd.Flags().Bool("failed", false, "only show changes the backend rejected")
	auditListCmd.Flags().Int("limit", 50, "maximum number of entries")
	auditPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "delete entries older than this")
	addYesFlag(auditPruneCmd)

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditPruneCmd)
	rootCmd.AddCommand(auditCmd)
}

func runAuditList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	filter := audit.QueryFilter{}
	filter.ClientID, _ = cmd.Flags().GetString("client")
	filter.Entity, _ = cmd.Flags().GetString("entity")
	filter.Limit, _ = cmd.Flags().GetInt("limit")
	if failed, _ := cmd.Flags().GetBool("failed"); failed {
		filter.Outcome = audit.OutcomeFailed
	}

	entries, err := audit.NewStore(database).Query(cmd.Context(), filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No journal entries.")
		return nil
	}

	w := newTable(out)
	fmt.Fprintln(w, "WHEN\tACTION\tENTITY\tTARGET\tOUTCOME\tCLIENT\tDETAIL")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			humanize.Time(e.Timestamp), e.Action, e.Entity, e.Target, e.Outcome, shortID(e.ClientID), truncate(e.Detail, 60))
	}
	return w.Flush()
}

func runAuditPrune(cmd *cobra.Command, args []string) error {
	age, _ := cmd.Flags().GetDuration("older-than")
	if age <= 0 {
		return fmt.Errorf("--older-than must be positive")
	}
	ok, err := confirm(cmd, fmt.Sprintf("Delete journal entries older than %s", age))
	if err != nil || !ok {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	n, err := audit.NewStore(database).DeleteBefore(cmd.Context(), time.Now().Add(-age))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d journal entries\n", n)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
