package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var symbolArgFlag string

var definitionCmd = &cobra.Command{
	Use:   "definition <symbol>",
	Short: "Find where a symbol is defined",
	Args:  cobra.ExactArgs(1),
	RunE:  runDefinition,
}

var referencesCmd = &cobra.Command{
	Use:   "references <symbol>",
	Short: "Find every call site that references a symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runReferences,
}

var depsCmd = &cobra.Command{
	Use:   "deps <file>",
	Short: "List a file's import declarations",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeps,
}

var callgraphCmd = &cobra.Command{
	Use:   "callgraph <file>",
	Short: "Show a file's call graph, optionally filtered to one symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runCallgraph,
}

var complexityCmd = &cobra.Command{
	Use:   "complexity <file>",
	Short: "Report shallow, parse-derived size metrics for a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runComplexity,
}

var readCmd = &cobra.Command{
	Use:   "read <file>",
	Short: "Print a file's content, refusing binary files",
	Args:  cobra.ExactArgs(1),
	RunE:  runRead,
}

func init() {
	rootCmd.AddCommand(definitionCmd, referencesCmd, depsCmd, callgraphCmd, complexityCmd, readCmd)
	callgraphCmd.Flags().StringVarP(&symbolArgFlag, "symbol", "s", "", "filter to a single symbol's edges")
}

func runDefinition(cmd *cobra.Command, args []string) error {
	dir, err := resolveDir()
	if err != nil {
		return err
	}
	locs, err := svc.FindDefinition(context.Background(), args[0], dir)
	if err != nil {
		return fmt.Errorf("definition: %w", err)
	}
	if len(locs) == 0 {
		fmt.Println("no definitions found")
		return nil
	}
	for _, l := range locs {
		fmt.Printf("%s:%d-%d  %s (%s)\n", l.FilePath, l.StartLine, l.EndLine, l.Symbol, l.Kind)
	}
	return nil
}

func runReferences(cmd *cobra.Command, args []string) error {
	dir, err := resolveDir()
	if err != nil {
		return err
	}
	refs, err := svc.FindReferences(context.Background(), args[0], dir)
	if err != nil {
		return fmt.Errorf("references: %w", err)
	}
	if len(refs) == 0 {
		fmt.Println("no references found")
		return nil
	}
	for _, r := range refs {
		fmt.Printf("%s:%d-%d  called from %s\n", r.FilePath, r.CallerStartLine, r.CallerEndLine, r.CallerSymbol)
	}
	return nil
}

func runDeps(cmd *cobra.Command, args []string) error {
	imports, err := svc.GetDependencies(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("deps: %w", err)
	}
	for _, imp := range imports {
		marker := ""
		if imp.Glob {
			marker = "::*"
		}
		fmt.Printf("%s%s %v\n", imp.Path, marker, imp.Items)
	}
	return nil
}

func runCallgraph(cmd *cobra.Command, args []string) error {
	view, err := svc.GetCallGraph(context.Background(), args[0], symbolArgFlag)
	if err != nil {
		return fmt.Errorf("callgraph: %w", err)
	}
	for caller, callees := range view.Edges {
		fmt.Printf("%s -> %v\n", caller, callees)
	}
	return nil
}

func runComplexity(cmd *cobra.Command, args []string) error {
	metrics, err := svc.AnalyzeComplexity(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("complexity: %w", err)
	}
	fmt.Printf("file:                  %s\n", metrics.FilePath)
	fmt.Printf("total lines:           %d\n", metrics.TotalLines)
	fmt.Printf("symbols:               %d\n", metrics.SymbolCount)
	fmt.Printf("functions:             %d\n", metrics.FunctionCount)
	fmt.Printf("avg function lines:    %.1f\n", metrics.AverageFunctionLines)
	fmt.Printf("max outgoing calls:    %d\n", metrics.MaxOutgoingCalls)
	fmt.Printf("external dependencies: %d\n", metrics.ExternalDependencies)
	return nil
}

func runRead(cmd *cobra.Command, args []string) error {
	content, err := svc.ReadFileContent(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	fmt.Print(content)
	return nil
}
