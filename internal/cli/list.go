package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vishalbelsare/memori-sub000/internal/model"
	"github.com/vishalbelsare/memori-sub000/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories",
		Run:   runList,
	}

	cmd.Flags().String("category", "", "Filter by category")
	cmd.Flags().String("retention", "", "Filter by retention: short_term, long_term, permanent")
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("ids-only", false, "Only output memory ids")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")
	retention, _ := cmd.Flags().GetString("retention")
	limit, _ := cmd.Flags().GetInt("limit")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	a := openApp(nil)
	defer a.Close()

	memories, err := a.store.ListMemories(cmd.Context(), store.ListParams{
		Namespace: a.ns(),
		Category:  model.Category(category),
		Retention: model.Retention(retention),
		Limit:     limit,
	})
	if err != nil {
		exitErr("list", err)
	}

	if idsOnly {
		for _, m := range memories {
			fmt.Fprintln(cmd.OutOrStdout(), m.ID)
		}
		return
	}
	printJSON(cmd, memories)
}
