// Package cli wires the codescope tool surface (internal/api) to a cobra
// command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/localcode/codescope/internal/api"
)

var (
	dirFlag     string
	verboseFlag bool

	svc = api.NewService()
)

var rootCmd = &cobra.Command{
	Use:   "codescope",
	Short: "A local code-intelligence indexer and hybrid search engine",
	Long: `codescope indexes a Rust source tree into semantic code chunks and serves
keyword + semantic queries through a single fused ranking (Reciprocal Rank
Fusion over a BM25 lexical index and a cosine k-NN vector store).`,
}

// Execute runs the root command, exiting non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&dirFlag, "dir", "d", ".", "project directory to operate on")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose output")
	viper.BindPFlag("dir", rootCmd.PersistentFlags().Lookup("dir"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	viper.SetEnvPrefix("CODESCOPE")
	viper.AutomaticEnv()
}

func resolveDir() (string, error) {
	if dirFlag != "" {
		return dirFlag, nil
	}
	return os.Getwd()
}
