package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ledgerlab/consensus"
	"ledgerlab/node"
)

func newSpecCmd() *cobra.Command {
	var (
		mode    string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "spec",
		Short: "Print a chain spec to start a config file from",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := node.DefaultChainSpec()
			if mode != "" {
				parsed, err := consensus.ParseMode(mode)
				if err != nil {
					return err
				}
				spec.Mode = string(parsed)
			}

			// Stake-based chains need somebody in the registry to produce
			// blocks, so seed a couple of example validators.
			if spec.Mode != string(consensus.ModePoW) {
				spec.GenesisValidators = []node.GenesisValidator{
					{Address: "validator-1", Stake: 64},
					{Address: "validator-2", Stake: 96},
				}
			}

			data, err := json.MarshalIndent(spec, "", "  ")
			if err != nil {
				return err
			}
			data = append(data, '\n')

			if outPath != "" {
				if err := os.WriteFile(outPath, data, 0o644); err != nil {
					return err
				}
				fmt.Printf("Wrote chain spec to %s\n", outPath)
				return nil
			}
			fmt.Print(string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Consensus mode to template (pow|pos|hybrid)")
	cmd.Flags().StringVar(&outPath, "out", "", "Write the spec to a file instead of stdout")

	return cmd
}
