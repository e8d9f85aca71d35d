package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localcode/codescope/internal/search"
)

var limitFlag int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Hybrid lexical + semantic search over the project",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var similarCmd = &cobra.Command{
	Use:   "similar <query>",
	Short: "Vector-only similarity search, bypassing lexical fusion",
	Args:  cobra.ExactArgs(1),
	RunE:  runSimilar,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(similarCmd)
	searchCmd.Flags().IntVarP(&limitFlag, "limit", "n", 15, "maximum results to return")
	similarCmd.Flags().IntVarP(&limitFlag, "limit", "n", 15, "maximum results to return")
}

func runSearch(cmd *cobra.Command, args []string) error {
	dir, err := resolveDir()
	if err != nil {
		return err
	}
	results, err := svc.Search(context.Background(), dir, args[0], limitFlag)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	printResults(results)
	return nil
}

func runSimilar(cmd *cobra.Command, args []string) error {
	dir, err := resolveDir()
	if err != nil {
		return err
	}
	results, err := svc.GetSimilarCode(context.Background(), args[0], dir, limitFlag)
	if err != nil {
		return fmt.Errorf("similar: %w", err)
	}
	printResults(results)
	return nil
}

func printResults(results []search.Result) {
	if len(results) == 0 {
		fmt.Println("no results")
		return
	}
	for i, r := range results {
		fmt.Printf("%d. %s  %s:%d-%d  (score %.4f)\n",
			i+1, r.Chunk.Context.SymbolName, r.Chunk.Context.FilePath,
			r.Chunk.Context.StartLine, r.Chunk.Context.EndLine, r.Score)
		if r.LexicalScore != nil {
			fmt.Printf("   lexical rank %d, score %.4f\n", *r.LexicalRank, *r.LexicalScore)
		}
		if r.VectorScore != nil {
			fmt.Printf("   vector rank %d, score %.4f\n", *r.VectorRank, *r.VectorScore)
		}
	}
}
