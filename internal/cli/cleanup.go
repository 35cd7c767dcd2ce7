package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired short-term memories",
		Run:   runCleanup,
	}

	cmd.Flags().Bool("all-namespaces", false, "Clean every namespace")

	RootCmd.AddCommand(cmd)
}

func runCleanup(cmd *cobra.Command, args []string) {
	all, _ := cmd.Flags().GetBool("all-namespaces")

	a := openApp(nil)
	defer a.Close()

	ns := a.ns()
	if all {
		ns = ""
	}
	n, err := a.store.CleanupExpired(cmd.Context(), ns)
	if err != nil {
		exitErr("cleanup", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"removed":%d}`+"\n", n)
}
