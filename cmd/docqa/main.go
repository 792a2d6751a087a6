// Command docqa answers questions about uploaded text documents.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	userID     string

	stderr io.Writer = os.Stderr
)

var rootCmd = &cobra.Command{
	Use:           "docqa",
	Short:         "Question answering over your text documents",
	Long:          `docqa chunks and indexes .txt documents and answers questions about them with a language model.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "docqa.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "Owner email for ingest, ask, history and documents")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
