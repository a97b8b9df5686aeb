package main

import (
	"fmt"
	"os"

	"github.com/corpusworks/corpusd/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "corpus",
		Short: "Corpus CLI - document search over your own files",
		Long: `Corpus CLI ingests documents and searches them with hybrid ranking.

Environment variables:
  CORPUS_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")

	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.CollectionCmd())
	rootCmd.AddCommand(client.DocumentCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
