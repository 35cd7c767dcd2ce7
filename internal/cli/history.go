package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded chats, newest first",
		Run:   runHistory,
	}

	cmd.Flags().StringP("session", "s", "", "Only this session")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	session, _ := cmd.Flags().GetString("session")
	limit, _ := cmd.Flags().GetInt("limit")

	a := openApp(nil)
	defer a.Close()

	chats, err := a.store.GetChatHistory(cmd.Context(), a.ns(), session, limit)
	if err != nil {
		exitErr("history", err)
	}
	printJSON(cmd, chats)
}
