package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "promote [memory-id]",
		Short: "Move a short-term memory to long-term storage",
		Args:  cobra.ExactArgs(1),
		Run:   runPromote,
	}

	RootCmd.AddCommand(cmd)
}

func runPromote(cmd *cobra.Command, args []string) {
	a := openApp(nil)
	defer a.Close()

	mem, err := a.store.PromoteMemory(cmd.Context(), a.ns(), args[0])
	if err != nil {
		exitErr("promote", err)
	}
	printJSON(cmd, mem)
}
