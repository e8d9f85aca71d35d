package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var forceFlag bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the project for hybrid search",
	Long: `Index parses every tracked source file, chunks it into retrieval units,
embeds and writes them into the lexical (BM25) and vector (cosine k-NN)
stores, and persists a Merkle snapshot so the next run only reprocesses
what changed.

Examples:
  # Incrementally index the current directory
  codescope index

  # Drop all derived state and rebuild from scratch
  codescope index --force
`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&forceFlag, "force", "f", false, "clear all derived state and rebuild from scratch")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\ninterrupted, cancelling at the next batch boundary...")
		cancel()
	}()

	dir, err := resolveDir()
	if err != nil {
		return err
	}

	result, err := svc.IndexCodebase(ctx, dir, forceFlag)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}

	fmt.Printf("indexed in %s\n", result.Duration)
	fmt.Printf("  total:     %d\n", result.Stats.TotalFiles)
	fmt.Printf("  indexed:   %d\n", result.Stats.IndexedFiles)
	fmt.Printf("  unchanged: %d\n", result.Stats.UnchangedFiles)
	fmt.Printf("  skipped:   %d\n", result.Stats.SkippedFiles)
	fmt.Printf("  chunks:    %d\n", result.Stats.TotalChunks)
	if verboseFlag {
		for _, fe := range result.FileErrors {
			fmt.Printf("  skip [%s] %s: %s\n", fe.Category, fe.Path, fe.Message)
		}
	}
	return nil
}
