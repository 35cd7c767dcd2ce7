package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vishalbelsare/memori-sub000/internal/manager"
)

func init() {
	cmd := &cobra.Command{
		Use:   "record [user input]",
		Short: "Record a conversation exchange",
		Long: "Store an exchange in chat history and keep a memory if the classifier finds it worth remembering.\n" +
			"User input can be a positional arg or piped via stdin.",
		Run: runRecord,
	}

	cmd.Flags().StringP("output", "o", "", "Assistant response")
	cmd.Flags().StringP("model", "m", "", "Model that produced the response")
	cmd.Flags().StringP("session", "s", "", "Session id")
	cmd.Flags().String("chat-id", "", "Chat id (default: generated)")
	cmd.Flags().Int("tokens", 0, "Tokens used")
	cmd.Flags().StringToString("meta", nil, "Metadata key=value pairs")
	cmd.Flags().String("prompt", "", "Extra instructions for the classifier")

	RootCmd.AddCommand(cmd)
}

func runRecord(cmd *cobra.Command, args []string) {
	output, _ := cmd.Flags().GetString("output")
	modelName, _ := cmd.Flags().GetString("model")
	session, _ := cmd.Flags().GetString("session")
	chatID, _ := cmd.Flags().GetString("chat-id")
	tokens, _ := cmd.Flags().GetInt("tokens")
	meta, _ := cmd.Flags().GetStringToString("meta")
	prompt, _ := cmd.Flags().GetString("prompt")

	input, err := readArgsOrStdin(args)
	if err != nil {
		exitErr("read stdin", err)
	}
	if input == "" {
		exitErr("record", fmt.Errorf("user input is required (positional arg or stdin)"))
	}

	a := openApp(nil)
	defer a.Close()

	out, err := a.manager().Record(cmd.Context(), manager.RecordParams{
		ChatID:     chatID,
		SessionID:  session,
		UserInput:  input,
		AIOutput:   output,
		Model:      modelName,
		TokensUsed: tokens,
		Metadata:   meta,
		Prompt:     prompt,
	})
	if err != nil {
		exitErr("record", err)
	}
	printJSON(cmd, out)
}
