package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pinealan/dna-microarray-db/internal/cli"
)

// Version info
var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// Root command
var rootCmd = &cobra.Command{
	Use:   "microarraydb",
	Short: "DNA methylation microarray metadata crawler",
	Long: `microarraydb crawls public genomics repositories for DNA methylation
microarray samples, enriches their metadata and ingests the raw IDAT
files into a relational database and an S3-compatible blob store.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Example: `  # Crawl GEO
  microarraydb geo

  # Preview an ArrayExpress crawl without writing anywhere
  microarraydb arrayexpress --dry-run

  # Crawl both repositories, stopping after 100 samples each
  microarraydb all --limit 100`,
}

func init() {
	rootCmd.AddCommand(cli.NewGeoCmd())
	rootCmd.AddCommand(cli.NewArrayExpressCmd())
	rootCmd.AddCommand(cli.NewAllCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
