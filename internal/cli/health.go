package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localcode/codescope/internal/health"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Report liveness of the lexical index, vector store, and Merkle snapshot",
	RunE:  runHealth,
}

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Drop all derived state for the project (cache, indexes, snapshot)",
	RunE:  runClearCache,
}

func init() {
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(clearCacheCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	dir, err := resolveDir()
	if err != nil {
		return err
	}
	status, err := svc.HealthCheck(context.Background(), dir)
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	fmt.Printf("overall:  %s\n", status.Overall)
	printComponent("lexical", status.Lexical)
	printComponent("vector", status.Vector)
	printComponent("merkle", status.Merkle)
	return nil
}

func printComponent(name string, c health.ComponentHealth) {
	if c.LatencyMS != nil {
		fmt.Printf("%-8s %-10s %s (%dms)\n", name, c.Status, c.Message, *c.LatencyMS)
		return
	}
	fmt.Printf("%-8s %-10s %s\n", name, c.Status, c.Message)
}

func runClearCache(cmd *cobra.Command, args []string) error {
	dir, err := resolveDir()
	if err != nil {
		return err
	}
	if err := svc.ClearCache(context.Background(), dir); err != nil {
		return fmt.Errorf("clear-cache: %w", err)
	}
	fmt.Println("cleared")
	return nil
}
