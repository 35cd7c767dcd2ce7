package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a namespace as JSON",
		Long:  "Export the namespace's chats and live memories as one JSON document, readable by import.",
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	a := openApp(nil)
	defer a.Close()

	dump, err := a.store.Export(cmd.Context(), a.ns())
	if err != nil {
		exitErr("export", err)
	}
	printJSON(cmd, dump)
}
