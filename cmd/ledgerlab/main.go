package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ledgerlab/log"
)

func main() {
	var (
		logLevel     string
		debugModules string
	)

	rootCmd := &cobra.Command{
		Use:   "ledgerlab",
		Short: "In-memory ledger with pluggable proof-of-work and proof-of-stake consensus",
		Long: `ledgerlab runs a single-node blockchain ledger with a validator registry
and swappable consensus rules (pow, pos or hybrid). State lives in memory
and is served over an HTTP API with a websocket block feed.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.InitLogger(logLevel)
			log.EnableModules(debugModules)
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace|debug|info|warn|error|crit)")
	rootCmd.PersistentFlags().StringVar(&debugModules, "debug", "", "Comma-separated modules to enable trace/debug logs for")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newDemoCmd())
	rootCmd.AddCommand(newConsoleCmd())
	rootCmd.AddCommand(newSpecCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
