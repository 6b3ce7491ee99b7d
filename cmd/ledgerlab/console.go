package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"ledgerlab/consensus"
	"ledgerlab/ledger"
	"ledgerlab/ledger/store"
	"ledgerlab/testutil"
)

func newConsoleCmd() *cobra.Command {
	var modeFlag string

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Interactive console against a fresh in-memory chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := consensus.ParseMode(modeFlag)
			if err != nil {
				return err
			}
			return runConsole(mode)
		},
	}

	cmd.Flags().StringVar(&modeFlag, "mode", "pow", "Consensus mode (pow|pos|hybrid)")

	return cmd
}

type console struct {
	mode     consensus.Mode
	ledger   *ledger.Ledger
	engine   *consensus.Engine
	accounts []testutil.Account
}

func runConsole(mode consensus.Mode) error {
	engine, err := consensus.NewEngine(consensus.Config{Mode: mode})
	if err != nil {
		return err
	}
	led, err := ledger.NewLedger(store.NewMemoryChainStore(), engine, ledger.Config{})
	if err != nil {
		return err
	}

	c := &console{
		mode:     mode,
		ledger:   led,
		engine:   engine,
		accounts: testutil.GenerateAccounts(3),
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "ledgerlab> ",
		HistoryFile: "/tmp/ledgerlab_console_history.txt",
	})
	if err != nil {
		return fmt.Errorf("failed to start readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("Console attached to a fresh %s chain. Type 'help' for commands, 'exit' to quit.\n", mode)

	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		if err := c.dispatch(line); err != nil {
			fmt.Println("error:", err)
		}
	}
	fmt.Println("Leaving console.")
	return nil
}

func (c *console) dispatch(line string) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		c.printHelp()
		return nil
	case "accounts":
		return c.printAccounts()
	case "tx":
		return c.submitTransaction(args)
	case "pending":
		return c.printPending()
	case "mine":
		return c.mine(args)
	case "chain":
		return c.printChain(args)
	case "balance":
		return c.printBalance(args)
	case "validate":
		if err := c.ledger.ValidateChain(); err != nil {
			return err
		}
		fmt.Println("chain is valid")
		return nil
	case "validators":
		return c.printValidators()
	case "register":
		return c.registerValidator(args)
	case "slash":
		return c.slashValidator(args)
	case "stats":
		return c.printStats()
	default:
		return fmt.Errorf("unknown command %q, try 'help'", cmd)
	}
}

func (c *console) printHelp() {
	fmt.Print(`Commands:
  accounts                           list the console's keyed accounts
  tx <from#> <to#|address> <amount> [fee]
                                     sign and queue a transfer
  pending                            show the transaction pool
  mine [miner]                       mine the pool into a block
  chain [limit]                      render recent blocks as a tree
  balance <address|#>                replayed balance for an account
  validate                           walk the full chain and verify it
  validators                         show the validator registry
  register <address> <stake>         add or reactivate a validator
  slash <address> [reason...]        penalize a validator
  stats                              network and consensus summary
  exit                               leave the console
`)
}

// resolveAccount turns a numeric argument into one of the console's account
// addresses and passes anything else through untouched.
func (c *console) resolveAccount(arg string) string {
	if idx, err := strconv.Atoi(arg); err == nil && idx >= 0 && idx < len(c.accounts) {
		return c.accounts[idx].Address
	}
	return arg
}

func (c *console) printAccounts() error {
	for i, acct := range c.accounts {
		balance, err := c.ledger.AccountBalance(acct.Address)
		if err != nil {
			return err
		}
		fmt.Printf("  [%d] %s  balance=%.2f\n", i, acct.Address, balance)
	}
	return nil
}

func (c *console) submitTransaction(args []string) error {
	if len(args) < 3 {
		return errors.New("usage: tx <from#> <to#|address> <amount> [fee]")
	}

	fromIdx, err := strconv.Atoi(args[0])
	if err != nil || fromIdx < 0 || fromIdx >= len(c.accounts) {
		return fmt.Errorf("from must be an account index 0..%d", len(c.accounts)-1)
	}
	from := c.accounts[fromIdx]
	to := c.resolveAccount(args[1])

	amount, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("bad amount %q", args[2])
	}
	fee := 0.0
	if len(args) > 3 {
		if fee, err = strconv.ParseFloat(args[3], 64); err != nil {
			return fmt.Errorf("bad fee %q", args[3])
		}
	}

	tx, err := ledger.NewSignedTransaction(from.Address, to, amount, fee, from.PrivateKey)
	if err != nil {
		return err
	}
	if err := c.ledger.AddTransaction(tx); err != nil {
		return err
	}
	fmt.Printf("queued %s (%.2f -> %.12s...)\n", tx.ID, tx.Amount, tx.To)
	return nil
}

func (c *console) printPending() error {
	pending, err := c.ledger.PendingTransactions()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("pool is empty")
		return nil
	}
	for _, tx := range pending {
		fmt.Printf("  %s  %.12s... -> %.12s...  amount=%.2f fee=%.2f\n", tx.ID, tx.From, tx.To, tx.Amount, tx.Fee)
	}
	return nil
}

func (c *console) mine(args []string) error {
	var miner string
	switch {
	case len(args) > 0:
		miner = c.resolveAccount(args[0])
	case c.mode == consensus.ModePoW:
		miner = "console-miner"
	default:
		selected, err := c.engine.SelectValidator()
		if err != nil {
			return err
		}
		miner = selected
	}

	block, err := c.ledger.MineBlock(context.Background(), miner)
	if err != nil {
		return err
	}
	fmt.Printf("mined block %d by %s with %d txs (nonce %d, hash %.16s...)\n",
		block.Index, block.Miner, len(block.Transactions), block.Nonce, block.Hash)
	return nil
}

func (c *console) printChain(args []string) error {
	limit := 10
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed < 0 {
			return fmt.Errorf("bad limit %q", args[0])
		}
		limit = parsed
	}

	blocks, err := c.ledger.Chain(limit)
	if err != nil {
		return err
	}

	tree := treeprint.New()
	tree.SetValue("chain")
	for _, b := range blocks {
		branch := tree.AddBranch(fmt.Sprintf("block %d  hash=%.16s...  prev=%.16s...  miner=%s",
			b.Index, b.Hash, b.PreviousHash, b.Miner))
		for _, tx := range b.Transactions {
			branch.AddNode(fmt.Sprintf("%s  %.12s... -> %.12s...  amount=%.2f", tx.ID, tx.From, tx.To, tx.Amount))
		}
	}
	fmt.Println(tree.String())
	return nil
}

func (c *console) printBalance(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: balance <address|#>")
	}
	address := c.resolveAccount(args[0])
	balance, err := c.ledger.AccountBalance(address)
	if err != nil {
		return err
	}
	fmt.Printf("%s = %.2f\n", address, balance)
	return nil
}

func (c *console) printValidators() error {
	validators := c.engine.Validators()
	if len(validators) == 0 {
		fmt.Println("registry is empty")
		return nil
	}
	for _, v := range validators {
		fmt.Printf("  %s  stake=%.2f reputation=%.0f active=%v\n", v.Address, v.Stake, v.Reputation, v.IsActive)
	}
	return nil
}

func (c *console) registerValidator(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: register <address> <stake>")
	}
	stake, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("bad stake %q", args[1])
	}
	if err := c.engine.AddValidator(args[0], stake); err != nil {
		return err
	}
	fmt.Printf("registered %s with stake %.2f\n", args[0], stake)
	return nil
}

func (c *console) slashValidator(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: slash <address> [reason...]")
	}
	reason := "manual"
	if len(args) > 1 {
		reason = strings.Join(args[1:], " ")
	}
	if err := c.engine.SlashValidator(args[0], reason); err != nil {
		return err
	}
	v, err := c.engine.Validator(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("slashed %s: stake=%.2f reputation=%.0f active=%v\n", v.Address, v.Stake, v.Reputation, v.IsActive)
	return nil
}

func (c *console) printStats() error {
	stats, err := c.ledger.NetworkStats()
	if err != nil {
		return err
	}
	fmt.Printf("height=%d blocks=%d txs=%d pending=%d difficulty=%d reward=%.1f\n",
		stats.Height, stats.TotalBlocks, stats.TotalTransactions, stats.PendingCount, stats.Difficulty, stats.BlockReward)

	cs := c.engine.Stats()
	fmt.Printf("mode=%s validators=%d active=%d total_stake=%.2f active_stake=%.2f avg_reputation=%.1f\n",
		cs.Mode, cs.ValidatorCount, cs.ActiveCount, cs.TotalStake, cs.TotalActiveStake, cs.AverageReputation)
	return nil
}
