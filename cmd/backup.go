package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/curatordash/internal/api"
	"github.com/ziadkadry99/curatordash/internal/progress"
)

var backupCmd = &cobra.Command{
	Use:     "backup",
	Aliases: []string{"backups"},
	Short:   "Manage backend backups",
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups and the automatic backup schedule",
	RunE:  runBackupList,
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a backup now",
	RunE:  runBackupCreate,
}

var backupDownloadCmd = &cobra.Command{
	Use:   "download <file>",
	Short: "Download a backup file",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupDownload,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Restore the backend from a backup",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupRestore,
}

var backupRemoveCmd = &cobra.Command{
	Use:     "rm <file|pattern>",
	Aliases: []string{"remove"},
	Short:   "Delete backups by name or glob pattern",
	Args:    cobra.ExactArgs(1),
	RunE:    runBackupRemove,
}

var backupCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete backups beyond the retention limit",
	RunE:  runBackupCleanup,
}

func init() {
	backupListCmd.Flags().String("match", "", "only list backups matching this glob pattern")
	backupDownloadCmd.Flags().StringP("output", "o", "", "output path (defaults to the backup name)")
	addYesFlag(backupRestoreCmd)
	addYesFlag(backupRemoveCmd)

	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupDownloadCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupRemoveCmd)
	backupCmd.AddCommand(backupCleanupCmd)
	rootCmd.AddCommand(backupCmd)
}

// matchBackups returns the backups whose filename matches pattern. An empty
// pattern matches everything.
func matchBackups(backups []api.Backup, pattern string) ([]api.Backup, error) {
	if pattern == "" {
		return backups, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}
	var out []api.Backup
	for _, b := range backups {
		if ok, _ := doublestar.Match(pattern, b.Filename); ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	pattern, _ := cmd.Flags().GetString("match")

	client, err := newClient()
	if err != nil {
		return err
	}
	listing, err := client.Backups(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing backups: %w", err)
	}
	backups, err := matchBackups(listing.Backups, pattern)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	s := listing.Settings
	schedule := "off"
	if s.AutoBackup {
		schedule = fmt.Sprintf("every %dh", s.IntervalHours)
	}
	fmt.Fprintf(out, "Automatic backups: %s, keeping %d\n\n", schedule, s.MaxBackups)

	if len(backups) == 0 {
		fmt.Fprintln(out, "No backups.")
		return nil
	}
	w := newTable(out)
	fmt.Fprintln(w, "FILE\tSIZE\tCREATED")
	for _, b := range backups {
		fmt.Fprintf(w, "%s\t%s\t%s\n", b.Filename, humanize.Bytes(uint64(max(b.Size, 0))), humanize.Time(b.CreatedAt))
	}
	return w.Flush()
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	b, err := client.CreateBackup(cmd.Context())
	if err != nil {
		return fmt.Errorf("creating backup: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", b.Filename, humanize.Bytes(uint64(max(b.Size, 0))))
	return nil
}

func runBackupDownload(cmd *cobra.Command, args []string) error {
	name := args[0]
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = filepath.Base(name)
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	rc, size, err := client.OpenBackup(cmd.Context(), name)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", name, err)
	}
	defer rc.Close()

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}
	n, err := progress.Copy(f, rc, size, name, progress.NewReporter(cmd.ErrOrStderr()))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(output)
		return fmt.Errorf("downloading %s: %w", name, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", output, humanize.Bytes(uint64(n)))
	return nil
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	name := args[0]
	ok, err := confirm(cmd, fmt.Sprintf("Restore %s? Current backend data will be replaced", name))
	if err != nil || !ok {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	if err := client.RestoreBackup(cmd.Context(), name); err != nil {
		return fmt.Errorf("restoring %s: %w", name, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", name)
	return nil
}

func runBackupRemove(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	listing, err := client.Backups(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing backups: %w", err)
	}
	targets, err := matchBackups(listing.Backups, args[0])
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no backups match %q", args[0])
	}

	ok, err := confirm(cmd, fmt.Sprintf("Delete %d backup(s)", len(targets)))
	if err != nil || !ok {
		return err
	}
	for _, b := range targets {
		if err := client.DeleteBackup(cmd.Context(), b.Filename); err != nil {
			return fmt.Errorf("deleting %s: %w", b.Filename, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", b.Filename)
	}
	return nil
}

func runBackupCleanup(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	res, err := client.CleanupBackups(cmd.Context())
	if err != nil {
		return fmt.Errorf("cleaning up backups: %w", err)
	}
	if len(res.Deleted) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to clean up")
		return nil
	}
	for _, name := range res.Deleted {
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", name)
	}
	return nil
}
