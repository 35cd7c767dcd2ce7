package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/vishalbelsare/memori-sub000/internal/manager"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context [description]",
		Short: "Assemble relevant memories for a prompt",
		Long:  "Search memories, then greedily pack the best ranked summaries into a token budget.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runContext,
	}

	cmd.Flags().IntP("budget", "b", 4000, "Max tokens in output")

	RootCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	budget, _ := cmd.Flags().GetInt("budget")

	a := openApp(nil)
	defer a.Close()

	result, err := a.manager().Context(cmd.Context(), manager.ContextParams{
		Query:  strings.Join(args, " "),
		Budget: budget,
	})
	if err != nil {
		exitErr("context", err)
	}
	printJSON(cmd, result)
}
