package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
	"github.com/spf13/cobra"

	"ledgerlab/consensus"
	"ledgerlab/ledger"
	"ledgerlab/ledger/store"
	"ledgerlab/testutil"
)

func newDemoCmd() *cobra.Command {
	var (
		modeFlag string
		blocks   int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted single-process tour of the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := consensus.ParseMode(modeFlag)
			if err != nil {
				return err
			}
			if blocks < 1 {
				return errors.New("at least one block is required")
			}
			return runDemo(cmd.Context(), mode, blocks, interval)
		},
	}

	cmd.Flags().StringVar(&modeFlag, "mode", "hybrid", "Consensus mode (pow|pos|hybrid)")
	cmd.Flags().IntVar(&blocks, "blocks", 5, "Blocks to mine before wrapping up")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Delay between mined blocks")

	return cmd
}

func runDemo(ctx context.Context, mode consensus.Mode, blocks int, interval time.Duration) error {
	pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("Ledger", pterm.FgCyan.ToStyle()),
		putils.LettersFromStringWithStyle("Lab", pterm.FgLightMagenta.ToStyle()),
	).Render()
	pterm.Info.Printfln("Consensus mode: %s", mode)
	pterm.Println()

	engine, err := consensus.NewEngine(consensus.Config{Mode: mode})
	if err != nil {
		return err
	}
	led, err := ledger.NewLedger(store.NewMemoryChainStore(), engine, ledger.Config{})
	if err != nil {
		return err
	}

	if mode != consensus.ModePoW {
		validators := []struct {
			addr  string
			stake float64
		}{
			{"validator-alpha", 64},
			{"validator-beta", 96},
			{"validator-gamma", 48},
		}
		for _, v := range validators {
			if err := engine.AddValidator(v.addr, v.stake); err != nil {
				return err
			}
			pterm.Info.Printfln("Registered %s with stake %.0f", v.addr, v.stake)
		}
		pterm.Println()
	}

	bot := testutil.NewTrafficBot(led, 4, 300*time.Millisecond)
	bot.Start()
	defer bot.Stop()

	for i := 1; i <= blocks; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		miner, err := pickDemoMiner(mode, engine)
		if err != nil {
			pterm.Error.Printfln("No eligible miner: %v", err)
			continue
		}

		spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Mining block %d as %s ...", i, miner))
		block, err := led.MineBlock(ctx, miner)
		switch {
		case errors.Is(err, ledger.ErrNoPendingTransactions):
			spinner.Warning("Nothing in the pool yet")
			continue
		case err != nil:
			spinner.Fail(err.Error())
			continue
		}
		spinner.Success(fmt.Sprintf("Block %d mined by %s with %d txs (hash %.16s...)",
			block.Index, block.Miner, len(block.Transactions), block.Hash))

		// Halfway through, misbehave on purpose to show slashing.
		if mode != consensus.ModePoW && i == blocks/2+1 {
			slashDemoValidator(engine, "validator-gamma")
		}
	}

	bot.Stop()
	pterm.Println()

	if err := led.ValidateChain(); err != nil {
		pterm.Error.Printfln("Chain failed validation: %v", err)
	} else {
		pterm.Success.Println("Full chain walk validated clean")
	}

	stats, err := led.NetworkStats()
	if err != nil {
		return err
	}
	pterm.Info.Printfln("Final height %d, %d transactions across %d blocks",
		stats.Height, stats.TotalTransactions, stats.TotalBlocks)

	tableData := pterm.TableData{{"Account", "Balance"}}
	for _, acct := range bot.Accounts() {
		balance, err := led.AccountBalance(acct.Address)
		if err != nil {
			return err
		}
		tableData = append(tableData, []string{fmt.Sprintf("%.12s...", acct.Address), fmt.Sprintf("%.2f", balance)})
	}
	pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()

	if mode != consensus.ModePoW {
		pterm.Println()
		vtable := pterm.TableData{{"Validator", "Stake", "Reputation", "Active"}}
		for _, v := range engine.Validators() {
			vtable = append(vtable, []string{
				v.Address,
				fmt.Sprintf("%.2f", v.Stake),
				fmt.Sprintf("%.0f", v.Reputation),
				fmt.Sprintf("%v", v.IsActive),
			})
		}
		pterm.DefaultTable.WithHasHeader().WithData(vtable).Render()
	}

	return nil
}

func pickDemoMiner(mode consensus.Mode, engine *consensus.Engine) (string, error) {
	if mode == consensus.ModePoW {
		return "demo-miner", nil
	}
	return engine.SelectValidator()
}

func slashDemoValidator(engine *consensus.Engine, address string) {
	before, err := engine.Validator(address)
	if err != nil {
		return
	}
	if err := engine.SlashValidator(address, "missed attestation window"); err != nil {
		pterm.Error.Printfln("Slash failed: %v", err)
		return
	}
	after, _ := engine.Validator(address)
	pterm.Warning.Printfln("Slashed %s for downtime: stake %.1f -> %.1f, reputation %.0f -> %.0f",
		address, before.Stake, after.Stake, before.Reputation, after.Reputation)
}
