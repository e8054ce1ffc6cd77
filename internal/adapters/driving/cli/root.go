// Package cli implements the documind command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/documind/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	flagVerbose bool
	flagConfig  string
)

var rootCmd = &cobra.Command{
	Use:   "documind",
	Short: "Chat with your PDF documents",
	Long: `documind is a document question-answering server.

Upload a PDF, wait for it to be indexed, then ask questions about its
contents. Answers are grounded in the document and cite the pages they
came from.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(flagVerbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to config file")
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}
