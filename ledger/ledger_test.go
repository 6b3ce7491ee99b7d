package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerlab/consensus"
	"ledgerlab/ledger"
	"ledgerlab/ledger/store"
	"ledgerlab/testutil"
)

// scriptedValidator stands in for a consensus engine and returns a fixed
// verdict for every candidate.
type scriptedValidator struct {
	err  error
	work bool
}

func (s *scriptedValidator) ValidateBlock(*ledger.Block) error { return s.err }
func (s *scriptedValidator) RequiresWork() bool                { return s.work }

func TestNewLedger(t *testing.T) {
	t.Run("rejects missing collaborators", func(t *testing.T) {
		_, err := ledger.NewLedger(nil, &scriptedValidator{}, ledger.Config{})
		assert.ErrorContains(t, err, "chain store is nil")

		_, err = ledger.NewLedger(store.NewMemoryChainStore(), nil, ledger.Config{})
		assert.ErrorContains(t, err, "block validator is nil")
	})

	t.Run("rejects negative tuning", func(t *testing.T) {
		_, err := ledger.NewLedger(store.NewMemoryChainStore(), &scriptedValidator{}, ledger.Config{Difficulty: -1})
		assert.ErrorContains(t, err, "difficulty")

		_, err = ledger.NewLedger(store.NewMemoryChainStore(), &scriptedValidator{}, ledger.Config{BlockReward: -5})
		assert.ErrorContains(t, err, "reward")
	})

	t.Run("zero config falls back to defaults", func(t *testing.T) {
		led, err := ledger.NewLedger(store.NewMemoryChainStore(), &scriptedValidator{}, ledger.Config{})
		require.NoError(t, err)

		cfg := led.Config()
		assert.Equal(t, ledger.DefaultDifficulty, cfg.Difficulty)
		assert.Equal(t, ledger.DefaultBlockReward, cfg.BlockReward)
		assert.Equal(t, ledger.DefaultMaxMineDuration, cfg.MaxMineDuration)
	})

	t.Run("seeds a fresh store with genesis", func(t *testing.T) {
		led, err := ledger.NewLedger(store.NewMemoryChainStore(), &scriptedValidator{}, ledger.Config{})
		require.NoError(t, err)

		head, err := led.LatestBlock()
		require.NoError(t, err)
		assert.Equal(t, int64(0), head.Index)
		assert.Equal(t, ledger.GenesisMiner, head.Miner)
		assert.Equal(t, ledger.GenesisPreviousHash, head.PreviousHash)
	})

	t.Run("leaves a populated store alone", func(t *testing.T) {
		chainStore := store.NewMemoryChainStore()
		_, err := ledger.NewLedger(chainStore, &scriptedValidator{}, ledger.Config{})
		require.NoError(t, err)
		_, err = ledger.NewLedger(chainStore, &scriptedValidator{}, ledger.Config{})
		require.NoError(t, err)

		height, err := chainStore.Height()
		require.NoError(t, err)
		assert.Equal(t, int64(1), height)
	})
}

func TestNewSignedTransaction(t *testing.T) {
	account := testutil.FirstAccount()

	t.Run("builds a valid transaction", func(t *testing.T) {
		tx, err := ledger.NewSignedTransaction(account.Address, "bob", 10, 0.25, account.PrivateKey)
		require.NoError(t, err)

		assert.Len(t, tx.ID, 36)
		assert.Len(t, tx.Signature, ledger.SignatureLength)
		assert.Equal(t, account.Address, tx.From)
		assert.Greater(t, tx.Timestamp, int64(0))
		assert.NoError(t, ledger.ValidateTransaction(&tx))
	})

	t.Run("fresh ids per call", func(t *testing.T) {
		a, err := ledger.NewSignedTransaction(account.Address, "bob", 1, 0, account.PrivateKey)
		require.NoError(t, err)
		b, err := ledger.NewSignedTransaction(account.Address, "bob", 1, 0, account.PrivateKey)
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("self transfers are allowed", func(t *testing.T) {
		_, err := ledger.NewSignedTransaction(account.Address, account.Address, 5, 0, account.PrivateKey)
		assert.NoError(t, err)
	})

	t.Run("rejects invalid amounts", func(t *testing.T) {
		_, err := ledger.NewSignedTransaction(account.Address, "bob", 0, 0, account.PrivateKey)
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	})
}

func TestAddTransaction(t *testing.T) {
	led, _, _ := testutil.NewLedgerStack(consensus.ModePoW)
	account := testutil.FirstAccount()

	t.Run("queues a valid transaction", func(t *testing.T) {
		tx := testutil.SignedTransaction(account, "bob", 10, 0)
		require.NoError(t, led.AddTransaction(tx))

		pending, err := led.PendingTransactions()
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, tx.ID, pending[0].ID)
	})

	t.Run("rejects structural garbage without touching the pool", func(t *testing.T) {
		err := led.AddTransaction(ledger.Transaction{ID: "raw", From: "a", To: "b", Amount: 1})
		assert.ErrorIs(t, err, ledger.ErrBadSignature)

		pending, err := led.PendingTransactions()
		require.NoError(t, err)
		assert.Len(t, pending, 1)
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		pending, err := led.PendingTransactions()
		require.NoError(t, err)
		require.Len(t, pending, 1)

		assert.ErrorIs(t, led.AddTransaction(pending[0]), ledger.ErrDuplicateTransaction)
	})
}

func TestMineBlock(t *testing.T) {
	led, _, _ := testutil.NewLedgerStack(consensus.ModePoW)
	accounts := testutil.GenerateAccounts(2)
	alice, bob := accounts[0], accounts[1]

	var genesisHash string
	var firstHash string

	t.Run("empty pool mines nothing", func(t *testing.T) {
		_, err := led.MineBlock(context.Background(), "miner-1")
		assert.ErrorIs(t, err, ledger.ErrNoPendingTransactions)

		head, err := led.LatestBlock()
		require.NoError(t, err)
		assert.Equal(t, int64(0), head.Index)
		genesisHash = head.Hash
	})

	t.Run("commits pending transactions into a linked block", func(t *testing.T) {
		tx := testutil.SignedTransaction(alice, bob.Address, 10, 0.25)
		require.NoError(t, led.AddTransaction(tx))

		block, err := led.MineBlock(context.Background(), "miner-1")
		require.NoError(t, err)

		assert.Equal(t, int64(1), block.Index)
		assert.Equal(t, genesisHash, block.PreviousHash)
		assert.Equal(t, "miner-1", block.Miner)
		assert.Equal(t, ledger.DefaultBlockReward, block.Reward)
		require.Len(t, block.Transactions, 1)
		assert.Equal(t, tx.ID, block.Transactions[0].ID)

		// The committed hash covers the block and meets its difficulty
		assert.Equal(t, ledger.CalculateHash(block), block.Hash)
		assert.True(t, ledger.HashMeetsDifficulty(block.Hash, block.Difficulty))

		pending, err := led.PendingTransactions()
		require.NoError(t, err)
		assert.Empty(t, pending)
		firstHash = block.Hash
	})

	t.Run("derives balances from the committed chain", func(t *testing.T) {
		aliceBalance, err := led.AccountBalance(alice.Address)
		require.NoError(t, err)
		assert.Equal(t, -10.0, aliceBalance, "fee is recorded but never charged")

		bobBalance, err := led.AccountBalance(bob.Address)
		require.NoError(t, err)
		assert.Equal(t, 10.0, bobBalance)

		minerBalance, err := led.AccountBalance("miner-1")
		require.NoError(t, err)
		assert.Equal(t, ledger.DefaultBlockReward, minerBalance)
	})

	t.Run("next block links to the previous one", func(t *testing.T) {
		tx := testutil.SignedTransaction(bob, alice.Address, 3, 0)
		require.NoError(t, led.AddTransaction(tx))

		block, err := led.MineBlock(context.Background(), "miner-2")
		require.NoError(t, err)
		assert.Equal(t, int64(2), block.Index)
		assert.Equal(t, firstHash, block.PreviousHash)

		require.NoError(t, led.ValidateChain())
	})

	t.Run("stats reflect the mined chain", func(t *testing.T) {
		stats, err := led.NetworkStats()
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.Height)
		assert.Equal(t, 3, stats.TotalBlocks)
		assert.Equal(t, 2, stats.TotalTransactions)
		assert.Equal(t, 0, stats.PendingCount)
	})
}

func TestMineBlockKeepsPoolOnFailure(t *testing.T) {
	account := testutil.FirstAccount()

	t.Run("empty miner address", func(t *testing.T) {
		led, _, _ := testutil.NewLedgerStack(consensus.ModePoW)
		require.NoError(t, led.AddTransaction(testutil.SignedTransaction(account, "bob", 1, 0)))

		_, err := led.MineBlock(context.Background(), "")
		assert.ErrorIs(t, err, ledger.ErrEmptyMiner)

		pending, err := led.PendingTransactions()
		require.NoError(t, err)
		assert.Len(t, pending, 1)
	})

	t.Run("validator rejection restores the pool in order", func(t *testing.T) {
		rejection := errors.New("validator has insufficient stake")
		led, err := ledger.NewLedger(store.NewMemoryChainStore(), &scriptedValidator{err: rejection}, ledger.Config{Difficulty: 1})
		require.NoError(t, err)

		first := testutil.SignedTransaction(account, "bob", 1, 0)
		second := testutil.SignedTransaction(account, "carol", 2, 0)
		require.NoError(t, led.AddTransaction(first))
		require.NoError(t, led.AddTransaction(second))

		_, err = led.MineBlock(context.Background(), "miner-1")
		require.ErrorIs(t, err, rejection)

		pending, err := led.PendingTransactions()
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, first.ID, pending[0].ID)
		assert.Equal(t, second.ID, pending[1].ID)

		head, err := led.LatestBlock()
		require.NoError(t, err)
		assert.Equal(t, int64(0), head.Index, "rejected candidate must not be committed")
	})

	t.Run("nonce search deadline restores the pool", func(t *testing.T) {
		// 64 leading zeros cannot be found, the deadline has to fire.
		led, err := ledger.NewLedger(store.NewMemoryChainStore(), &scriptedValidator{work: true}, ledger.Config{
			Difficulty:      64,
			MaxMineDuration: 15 * time.Millisecond,
		})
		require.NoError(t, err)

		tx := testutil.SignedTransaction(account, "bob", 1, 0)
		require.NoError(t, led.AddTransaction(tx))

		_, err = led.MineBlock(context.Background(), "miner-1")
		assert.ErrorIs(t, err, ledger.ErrMiningTimeout)

		pending, err := led.PendingTransactions()
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, tx.ID, pending[0].ID)
	})
}

func TestValidateChain(t *testing.T) {
	led, _, chainStore := testutil.NewLedgerStack(consensus.ModePoW)
	account := testutil.FirstAccount()

	for i := 0; i < 2; i++ {
		require.NoError(t, led.AddTransaction(testutil.SignedTransaction(account, "bob", float64(i+1), 0)))
		_, err := led.MineBlock(context.Background(), "miner-1")
		require.NoError(t, err)
	}

	// The store hands out the live head pointer, which lets these tests
	// corrupt committed state the way a buggy caller would.
	head, err := chainStore.HeadBlock()
	require.NoError(t, err)
	origPrev, origHash := head.PreviousHash, head.Hash

	t.Run("clean chain", func(t *testing.T) {
		assert.NoError(t, led.ValidateChain())
	})

	t.Run("tampered transaction breaks the block hash", func(t *testing.T) {
		head.Transactions[0].Amount += 1000

		var mismatch ledger.ErrHashMismatch
		err := led.ValidateChain()
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, head.Index, mismatch.Index)

		head.Transactions[0].Amount -= 1000
		assert.NoError(t, led.ValidateChain())
	})

	t.Run("rewritten parent pointer breaks the link", func(t *testing.T) {
		head.PreviousHash = "0000000000000000"
		head.Hash = ledger.CalculateHash(head)

		var broken ledger.ErrBrokenLink
		err := led.ValidateChain()
		require.ErrorAs(t, err, &broken)
		assert.Equal(t, head.Index, broken.Index)

		head.PreviousHash, head.Hash = origPrev, origHash
		assert.NoError(t, led.ValidateChain())
	})

	t.Run("skipped index is caught", func(t *testing.T) {
		gap := &ledger.Block{
			Index:        head.Index + 2,
			Timestamp:    time.Now().UnixMilli(),
			Transactions: []ledger.Transaction{},
			PreviousHash: head.Hash,
		}
		gap.Hash = ledger.CalculateHash(gap)
		require.NoError(t, chainStore.AppendBlock(gap))

		var gapErr ledger.ErrIndexGap
		err := led.ValidateChain()
		require.ErrorAs(t, err, &gapErr)
		assert.Equal(t, head.Index+2, gapErr.Index)
		assert.Equal(t, head.Index+1, gapErr.Expected)
	})
}

func TestLatestBlockIsACopy(t *testing.T) {
	led, _, _ := testutil.NewLedgerStack(consensus.ModePoW)
	account := testutil.FirstAccount()

	require.NoError(t, led.AddTransaction(testutil.SignedTransaction(account, "bob", 10, 0)))
	_, err := led.MineBlock(context.Background(), "miner-1")
	require.NoError(t, err)

	head, err := led.LatestBlock()
	require.NoError(t, err)
	head.Transactions[0].Amount = 999999
	head.Hash = "tampered"

	fresh, err := led.LatestBlock()
	require.NoError(t, err)
	assert.Equal(t, 10.0, fresh.Transactions[0].Amount)
	assert.NoError(t, led.ValidateChain())
}

func TestSubscribeBlocks(t *testing.T) {
	account := testutil.FirstAccount()

	mineOne := func(t *testing.T, led *ledger.Ledger, amount float64) *ledger.Block {
		t.Helper()
		require.NoError(t, led.AddTransaction(testutil.SignedTransaction(account, "bob", amount, 0)))
		block, err := led.MineBlock(context.Background(), "miner-1")
		require.NoError(t, err)
		return block
	}

	t.Run("delivers committed blocks", func(t *testing.T) {
		led, _, _ := testutil.NewLedgerStack(consensus.ModePoW)
		ch, cancel := led.SubscribeBlocks(2)
		defer cancel()

		mined := mineOne(t, led, 1)

		select {
		case got := <-ch:
			assert.Equal(t, mined.Index, got.Index)
			assert.Equal(t, mined.Hash, got.Hash)
		case <-time.After(time.Second):
			t.Fatal("no block notification arrived")
		}
	})

	t.Run("slow subscribers miss blocks instead of stalling mining", func(t *testing.T) {
		led, _, _ := testutil.NewLedgerStack(consensus.ModePoW)
		ch, cancel := led.SubscribeBlocks(1)
		defer cancel()

		first := mineOne(t, led, 1)
		mineOne(t, led, 2)

		got := <-ch
		assert.Equal(t, first.Index, got.Index)

		select {
		case extra := <-ch:
			t.Fatalf("expected the second notification to be dropped, got block %d", extra.Index)
		default:
		}
	})

	t.Run("cancel closes the channel and is idempotent", func(t *testing.T) {
		led, _, _ := testutil.NewLedgerStack(consensus.ModePoW)
		ch, cancel := led.SubscribeBlocks(1)

		cancel()
		cancel()

		_, open := <-ch
		assert.False(t, open)

		// Mining after cancel must not panic on the removed subscriber
		mineOne(t, led, 1)
	})
}

func TestConcurrentMiningKeepsChainConsistent(t *testing.T) {
	led, _, _ := testutil.NewLedgerStack(consensus.ModePoW)
	accounts := testutil.GenerateAccounts(4)
	const rounds = 5

	var wg sync.WaitGroup
	for i, account := range accounts {
		wg.Add(1)
		go func(i int, account testutil.Account) {
			defer wg.Done()
			miner := fmt.Sprintf("miner-%d", i)
			for r := 0; r < rounds; r++ {
				if err := led.AddTransaction(testutil.SignedTransaction(account, "sink", 1, 0)); err != nil {
					t.Errorf("add transaction: %v", err)
					return
				}
				// Another miner may have drained the pool first
				if _, err := led.MineBlock(context.Background(), miner); err != nil && !errors.Is(err, ledger.ErrNoPendingTransactions) {
					t.Errorf("mine block: %v", err)
					return
				}
			}
		}(i, account)
	}
	wg.Wait()

	require.NoError(t, led.ValidateChain())

	chain, err := led.Chain(0)
	require.NoError(t, err)
	committed := 0
	seen := make(map[string]bool)
	for _, b := range chain {
		for _, tx := range b.Transactions {
			assert.False(t, seen[tx.ID], "transaction %s committed twice", tx.ID)
			seen[tx.ID] = true
			committed++
		}
	}

	pending, err := led.PendingTransactions()
	require.NoError(t, err)
	assert.Equal(t, len(accounts)*rounds, committed+len(pending))

	sinkBalance, err := led.AccountBalance("sink")
	require.NoError(t, err)
	assert.Equal(t, float64(committed), sinkBalance)
}
