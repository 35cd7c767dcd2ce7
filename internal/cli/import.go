package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vishalbelsare/memori-sub000/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a JSON export",
		Long: "Import a document produced by export, from a file or stdin. Rows keep their ids, so importing\n" +
			"twice is harmless. Without --ns the export's namespace is used.",
		Args: cobra.MaximumNArgs(1),
		Run:  runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var (
		data []byte
		err  error
	)
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		exitErr("read input", err)
	}

	var dump store.Dump
	if err := json.Unmarshal(data, &dump); err != nil {
		exitErr("parse json", err)
	}

	a := openApp(nil)
	defer a.Close()

	// An explicit --ns wins over the namespace recorded in the export.
	res, err := a.store.Import(cmd.Context(), nsFlag, &dump)
	if err != nil {
		exitErr("import", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"chats":%d,"memories":%d,"skipped":%d,"conflicts":%d}`+"\n",
		res.Chats, res.Memories, res.Skipped, res.Conflicts)
}
