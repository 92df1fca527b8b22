package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var extractPlanOnly bool

// extractCmd dumps what the pipeline sees in a template
var extractCmd = &cobra.Command{
	Use:   "extract <template.xlsx>",
	Short: "Print the schema and column plan extracted from a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&extractPlanOnly, "plan", false, "Print only the column plan")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, a, err := build(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	f, schema, plan, err := a.Generator.Schema(data)
	if err != nil {
		return err
	}
	defer f.Close()

	if extractPlanOnly {
		return printJSON(cmd.OutOrStdout(), plan)
	}
	return printJSON(cmd.OutOrStdout(), map[string]interface{}{
		"schema":    schema,
		"plan":      plan,
		"unitCount": plan.UnitCount(),
	})
}
