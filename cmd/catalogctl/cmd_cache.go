package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"catalog-workers/internal/llm"
)

// cacheCmd manages the model response cache
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the model response cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count cached responses",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached response",
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func responseCache(client llm.Client) (*llm.CachedClient, error) {
	cached, ok := client.(*llm.CachedClient)
	if !ok {
		return nil, fmt.Errorf("response cache is disabled: set llm.cache.enabled and database.redis.address")
	}
	return cached, nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, a, err := build(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	cache, err := responseCache(a.LLM)
	if err != nil {
		return err
	}
	stats, err := cache.Stats(ctx)
	if err != nil {
		return fmt.Errorf("cache stats: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), map[string]interface{}{
		"entries": stats.Entries,
		"ttl":     stats.TTL.String(),
	})
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, a, err := build(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	cache, err := responseCache(a.LLM)
	if err != nil {
		return err
	}
	n, err := cache.Clear(ctx)
	if err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached responses\n", n)
	return nil
}
