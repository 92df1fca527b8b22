package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"catalog-workers/internal/memory"
)

var (
	memoryPage   int
	memoryLimit  int
	memorySearch string
	memoryStatus string
	memoryOrigin string
	memoryYes    bool
)

// memoryCmd groups the product memory maintenance commands
var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and maintain product memory",
	Long: `Product memory keeps generated content per product identifier so that later jobs
reuse it instead of calling the model again.

Subcommands:
  stats     - Counts by status and origin
  list      - Page through stored products
  delete    - Forget one product
  clear     - Forget every product
  validate  - Mark a product as reviewed`,
}

var memoryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show memory statistics",
	RunE:  runMemoryStats,
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored products",
	RunE:  runMemoryList,
}

var memoryDeleteCmd = &cobra.Command{
	Use:   "delete <identifier>",
	Short: "Delete one stored product",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemoryDelete,
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored product",
	RunE:  runMemoryClear,
}

var memoryValidateCmd = &cobra.Command{
	Use:   "validate <identifier>",
	Short: "Mark a stored product as validated",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemoryValidate,
}

func init() {
	memoryListCmd.Flags().IntVar(&memoryPage, "page", 1, "Page number")
	memoryListCmd.Flags().IntVar(&memoryLimit, "limit", 20, "Items per page")
	memoryListCmd.Flags().StringVar(&memorySearch, "search", "", "Filter by name, SKU or identifier")
	memoryListCmd.Flags().StringVar(&memoryStatus, "status", "", "Filter by status")
	memoryListCmd.Flags().StringVar(&memoryOrigin, "origin", "", "Filter by origin")
	memoryClearCmd.Flags().BoolVarP(&memoryYes, "yes", "y", false, "Confirm deletion")

	memoryCmd.AddCommand(memoryStatsCmd, memoryListCmd, memoryDeleteCmd, memoryClearCmd, memoryValidateCmd)
	rootCmd.AddCommand(memoryCmd)
}

func runMemoryStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, a, err := build(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := a.Memory.Stats(ctx)
	if err != nil {
		return fmt.Errorf("memory stats: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), stats)
}

func runMemoryList(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, a, err := build(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	page, err := a.Memory.List(ctx, memory.ListOptions{
		Page:   memoryPage,
		Limit:  memoryLimit,
		Search: memorySearch,
		Status: memory.Status(memoryStatus),
		Origin: memory.Origin(memoryOrigin),
	})
	if err != nil {
		return fmt.Errorf("memory list: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), page)
}

func runMemoryDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, a, err := build(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	deleted, err := a.Memory.Delete(ctx, args[0])
	if err != nil {
		return fmt.Errorf("memory delete: %w", err)
	}
	if !deleted {
		return fmt.Errorf("no stored product %q", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	return nil
}

func runMemoryClear(cmd *cobra.Command, args []string) error {
	if !memoryYes {
		return fmt.Errorf("refusing to clear product memory without --yes")
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, a, err := build(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := a.Memory.Clear(ctx)
	if err != nil {
		return fmt.Errorf("memory clear: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d products\n", n)
	return nil
}

func runMemoryValidate(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, a, err := build(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	ok, err := a.Memory.Validate(ctx, args[0])
	if err != nil {
		return fmt.Errorf("memory validate: %w", err)
	}
	if !ok {
		return fmt.Errorf("no stored product %q", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Validated %s\n", args[0])
	return nil
}
