package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"catalog-workers/internal/importer"
)

var (
	importSheet   string
	importPreview bool
	importSample  int
	importForce   bool
	importSheets  bool
)

// importCmd loads an existing catalog spreadsheet into product memory
var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import products from a CSV or Excel file into memory",
	Long: `Reads a CSV, XLSX or XLS export of an existing catalog and stores each row as a
memory record, so that the next generation job reuses its content.

Columns are matched by name (Portuguese or English aliases). Use --preview to see the
column mapping and the first rows without writing anything.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "Worksheet to read (defaults to the first)")
	importCmd.Flags().BoolVar(&importPreview, "preview", false, "Show the mapping and a sample without importing")
	importCmd.Flags().IntVar(&importSample, "sample", 5, "Rows shown by --preview")
	importCmd.Flags().BoolVar(&importForce, "force", false, "Overwrite products already in memory")
	importCmd.Flags().BoolVar(&importSheets, "sheets", false, "List the worksheets and exit")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	name := filepath.Base(path)

	if importSheets {
		sheets, err := importer.SheetNames(name, data)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), sheets)
	}

	table, err := importer.Read(name, data, importSheet)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, a, err := build(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	im := importer.New(a.Memory, s.log)
	if importPreview {
		return printJSON(cmd.OutOrStdout(), im.Preview(table, importSample))
	}

	res, err := im.Import(ctx, table, importForce)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}
