package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List and seed Discord servers",
}

var serversListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all servers",
	RunE:  runServersList,
}

var serversInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Add the default server set",
	RunE:  runServersInit,
}

func init() {
	serversCmd.AddCommand(serversListCmd)
	serversCmd.AddCommand(serversInitCmd)
	rootCmd.AddCommand(serversCmd)
}

func runServersList(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	servers, err := client.Servers(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing servers: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(servers) == 0 {
		fmt.Fprintln(out, "No servers yet. Seed the defaults with `curatordash servers init`.")
		return nil
	}

	w := newTable(out)
	fmt.Fprintln(w, "ID\tNAME\tDISCORD ID\tACTIVE\tCURATORS")
	for _, s := range servers {
		active := "no"
		if s.IsActive {
			active = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", s.ID, s.Name, s.DiscordID, active, s.CuratorCount)
	}
	return w.Flush()
}

func runServersInit(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	if err := client.InitializeServers(cmd.Context()); err != nil {
		return fmt.Errorf("initializing servers: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Default servers added")
	return nil
}
