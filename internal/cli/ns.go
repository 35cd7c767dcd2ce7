package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	nsCmd := &cobra.Command{
		Use:     "namespaces",
		Aliases: []string{"ns"},
		Short:   "Namespace management",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all namespaces with row counts",
		Run:   runNSList,
	}

	nsCmd.AddCommand(listCmd)
	RootCmd.AddCommand(nsCmd)
}

func runNSList(cmd *cobra.Command, args []string) {
	a := openApp(nil)
	defer a.Close()

	rows, err := a.store.ListNamespaces(cmd.Context())
	if err != nil {
		exitErr("list namespaces", err)
	}
	printJSON(cmd, rows)
}
