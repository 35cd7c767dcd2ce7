package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vishalbelsare/memori-sub000/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete rows from a namespace",
		Long:  "Delete chats and/or memories from the namespace. Scope: all, chat, short_term, long_term, memories.",
		Run:   runClear,
	}

	cmd.Flags().String("scope", "all", "What to delete: all, chat, short_term, long_term, memories")
	cmd.Flags().Bool("yes", false, "Confirm the delete (irreversible)")

	RootCmd.AddCommand(cmd)
}

func runClear(cmd *cobra.Command, args []string) {
	scope, _ := cmd.Flags().GetString("scope")
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		exitErr("clear", fmt.Errorf("refusing to delete without --yes"))
	}
	if scope == "all" {
		scope = string(store.ScopeAll)
	}

	a := openApp(nil)
	defer a.Close()

	n, err := a.store.Clear(cmd.Context(), a.ns(), store.Scope(scope))
	if err != nil {
		exitErr("clear", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"ns":%q,"deleted":%d}`+"\n", a.ns(), n)
}
