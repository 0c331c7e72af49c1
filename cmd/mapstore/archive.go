package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Copy notes to and from the blob archive",
}

var archiveExportCmd = &cobra.Command{
	Use:   "export [ids...]",
	Short: "Export notes to the blob store (all notes when no id is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]int64, 0, len(args))
		for _, raw := range args {
			id, err := parseID(raw)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		n, err := app.ExportNotes(cmd.Context(), ids)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d notes\n", n)
		return nil
	},
}

var archiveImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import every archived note into the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		n, err := app.ImportNotes(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d notes\n", n)
		return nil
	},
}

func init() {
	archiveCmd.AddCommand(archiveExportCmd, archiveImportCmd)
	rootCmd.AddCommand(archiveCmd)
}
