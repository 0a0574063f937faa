// Package cmd provides CLI commands for ledger-suggest.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ledger-suggest",
	Short: "Suggest accounting entries from ledger history",
	Long: `ledger-suggest proposes the accounts, split and description of a new
accounting entry by mining how similar transactions were booked before.

It supports:
- Suggesting an entry from the command line or over HTTP
- Importing deals and journals from freee into the ledger database
- Rendering suggestions as Beancount drafts

Example:
  ledger-suggest suggest --direction out --gross 1100000 --tax 100000 --desc "Beli kertas A4"
  ledger-suggest serve
  ledger-suggest sync --from 2024-01-01 --to 2024-01-31
  ledger-suggest stats`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logging
		logLevel := slog.LevelInfo
		if debug {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "env file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statsCmd)
}

func getConfigFile() string {
	return cfgFile
}

// exitOnError logs err and exits when it is non-nil.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
