package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/vishalbelsare/memori-sub000/internal/manager"
	"github.com/vishalbelsare/memori-sub000/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories",
		Long:  "Plan the query, run the search cascade and print ranked memories.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().StringSlice("category", nil, "Only these categories (fact, preference, skill, context, rule)")
	cmd.Flags().Float64("min-importance", 0, "Minimum importance score")
	cmd.Flags().String("context", "", "Conversation context for query planning")
	cmd.Flags().IntP("limit", "l", 0, "Max results (default from config)")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	cats, _ := cmd.Flags().GetStringSlice("category")
	minImportance, _ := cmd.Flags().GetFloat64("min-importance")
	queryContext, _ := cmd.Flags().GetString("context")
	limit, _ := cmd.Flags().GetInt("limit")

	categories := make([]model.Category, 0, len(cats))
	for _, c := range cats {
		categories = append(categories, model.Category(strings.ToLower(strings.TrimSpace(c))))
	}

	a := openApp(nil)
	defer a.Close()

	results, err := a.manager().Search(cmd.Context(), manager.SearchParams{
		Query:         strings.Join(args, " "),
		Context:       queryContext,
		Categories:    categories,
		MinImportance: minImportance,
		Limit:         limit,
	})
	if err != nil {
		exitErr("search", err)
	}
	printJSON(cmd, results)
}
