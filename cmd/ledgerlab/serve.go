package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ledgerlab/node"
)

func newServeCmd() *cobra.Command {
	var (
		specPath string
		httpAddr string
		mode     string
		miner    string
		autoMine bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a ledger node with the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := node.DefaultChainSpec()
			if specPath != "" {
				loaded, err := node.LoadChainSpec(specPath)
				if err != nil {
					return err
				}
				spec = loaded
			}
			if mode != "" {
				spec.Mode = mode
			}

			n, err := node.New(node.Config{
				Spec:     spec,
				HTTPAddr: httpAddr,
				Miner:    miner,
				AutoMine: autoMine,
			})
			if err != nil {
				return err
			}
			if err := n.Start(); err != nil {
				return err
			}

			fmt.Printf("Chain %q serving on %s (mode=%s, automine=%v)\n", spec.Name, httpAddr, spec.Mode, autoMine)
			fmt.Println("Press Ctrl+C to stop")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := n.WaitForInterrupt(ctx); err != nil {
				return err
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return n.Stop(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&specPath, "chainspec", "", "Path to a chain spec JSON file")
	cmd.Flags().StringVar(&httpAddr, "http", node.DefaultHTTPAddr, "HTTP listen address")
	cmd.Flags().StringVar(&mode, "mode", "", "Override the consensus mode (pow|pos|hybrid)")
	cmd.Flags().StringVar(&miner, "miner", "", "Coinbase address for automined pow blocks")
	cmd.Flags().BoolVar(&autoMine, "automine", false, "Mine pending transactions on a schedule")

	return cmd
}
