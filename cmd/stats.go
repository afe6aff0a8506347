package cmd

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/curatordash/internal/api"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the dashboard summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		s, err := client.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("loading stats: %w", err)
		}

		out := cmd.OutOrStdout()
		w := newTable(out)
		fmt.Fprintf(w, "Curators\t%s (%s active)\n", humanize.Comma(int64(s.TotalCurators)), humanize.Comma(int64(s.ActiveCurators)))
		fmt.Fprintf(w, "Activities\t%s (%s today)\n", humanize.Comma(int64(s.TotalActivities)), humanize.Comma(int64(s.ActivitiesToday)))
		fmt.Fprintf(w, "Servers\t%d\n", s.TotalServers)
		fmt.Fprintf(w, "Pending reports\t%d\n", s.PendingReports)
		if err := w.Flush(); err != nil {
			return err
		}

		if len(s.ActivityByType) > 0 {
			fmt.Fprintln(out, "\nActivity by type:")
			types := make([]string, 0, len(s.ActivityByType))
			for t := range s.ActivityByType {
				types = append(types, string(t))
			}
			sort.Strings(types)
			w = newTable(out)
			for _, t := range types {
				fmt.Fprintf(w, "  %s\t%d\n", t, s.ActivityByType[api.ActivityType(t)])
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}

		if len(s.TopCurators) > 0 {
			fmt.Fprintln(out, "\nTop curators:")
			w = newTable(out)
			for i, c := range s.TopCurators {
				fmt.Fprintf(w, "  %d.\t%s\t%s pts\n", i+1, c.Name, humanize.Comma(int64(c.TotalPoints)))
			}
			return w.Flush()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
