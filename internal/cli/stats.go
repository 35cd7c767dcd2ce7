package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show namespace statistics",
		Run:   runStats,
	}

	cmd.Flags().Bool("all", false, "Show database-wide statistics instead")

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	dbWide, _ := cmd.Flags().GetBool("all")

	a := openApp(nil)
	defer a.Close()

	if dbWide {
		stats, err := a.store.DatabaseStats(cmd.Context())
		if err != nil {
			exitErr("stats", err)
		}
		printJSON(cmd, stats)
		return
	}

	stats, err := a.store.GetStats(cmd.Context(), a.ns())
	if err != nil {
		exitErr("stats", err)
	}
	printJSON(cmd, stats)
}
