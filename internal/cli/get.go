package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get [memory-id]",
		Short: "Retrieve a memory",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	a := openApp(nil)
	defer a.Close()

	mem, err := a.store.GetMemory(cmd.Context(), a.ns(), args[0])
	if err != nil {
		exitErr("get", err)
	}
	printJSON(cmd, mem)
}
