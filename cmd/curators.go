package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/curatordash/internal/api"
)

var curatorsCmd = &cobra.Command{
	Use:     "curators",
	Aliases: []string{"curator"},
	Short:   "List and manage tracked curators",
}

var curatorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all curators",
	RunE:  runCuratorsList,
}

var curatorsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a curator",
	Args:  cobra.ExactArgs(1),
	RunE:  runCuratorsAdd,
}

var curatorsRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove"},
	Short:   "Delete a curator",
	Args:    cobra.ExactArgs(1),
	RunE:    runCuratorsRemove,
}

func init() {
	curatorsAddCmd.Flags().String("discord-id", "", "Discord user id")
	curatorsAddCmd.Flags().StringSlice("servers", nil, "servers the curator works in")
	addYesFlag(curatorsRemoveCmd)

	curatorsCmd.AddCommand(curatorsListCmd)
	curatorsCmd.AddCommand(curatorsAddCmd)
	curatorsCmd.AddCommand(curatorsRemoveCmd)
	rootCmd.AddCommand(curatorsCmd)
}

func runCuratorsList(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	curators, err := client.Curators(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing curators: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(curators) == 0 {
		fmt.Fprintln(out, "No curators yet. Add one with `curatordash curators add <name>`.")
		return nil
	}

	w := newTable(out)
	fmt.Fprintln(w, "ID\tNAME\tDISCORD ID\tPOINTS\tACTIVITIES\tSERVERS\tLAST ACTIVE")
	for _, c := range curators {
		lastActive := "never"
		if !c.LastActiveAt.IsZero() {
			lastActive = humanize.Time(c.LastActiveAt)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			c.ID, c.Name, c.DiscordID, humanize.Comma(int64(c.TotalPoints)), c.ActivityCount,
			strings.Join(c.Servers, ","), lastActive)
	}
	return w.Flush()
}

func runCuratorsAdd(cmd *cobra.Command, args []string) error {
	discordID, _ := cmd.Flags().GetString("discord-id")
	servers, _ := cmd.Flags().GetStringSlice("servers")

	client, err := newClient()
	if err != nil {
		return err
	}
	c, err := client.CreateCurator(cmd.Context(), api.CuratorFields{
		Name:      args[0],
		DiscordID: discordID,
		Servers:   servers,
	})
	if err != nil {
		return fmt.Errorf("adding curator: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added curator %s (id %d)\n", c.Name, c.ID)
	return nil
}

func runCuratorsRemove(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	ok, err := confirm(cmd, fmt.Sprintf("Delete curator %d", id))
	if err != nil || !ok {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	if err := client.DeleteCurator(cmd.Context(), id); err != nil {
		return fmt.Errorf("deleting curator: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted curator %d\n", id)
	return nil
}
