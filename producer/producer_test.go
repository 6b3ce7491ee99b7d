package producer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerlab/consensus"
	"ledgerlab/ledger"
	"ledgerlab/testutil"
)

func heightReached(led *ledger.Ledger, height int64) func() bool {
	return func() bool {
		head, err := led.LatestBlock()
		return err == nil && head.Index >= height
	}
}

func TestNew(t *testing.T) {
	led, engine, _ := testutil.NewLedgerStack(consensus.ModePoW)

	t.Run("rejects missing collaborators", func(t *testing.T) {
		_, err := New(nil, engine, Config{Miner: "rig-1"})
		assert.ErrorContains(t, err, "ledger is nil")

		_, err = New(led, nil, Config{Miner: "rig-1"})
		assert.ErrorContains(t, err, "engine is nil")
	})

	t.Run("proof of work needs a coinbase address", func(t *testing.T) {
		_, err := New(led, engine, Config{})
		assert.ErrorContains(t, err, "miner address is required")
	})

	t.Run("stake modes pick their own miner", func(t *testing.T) {
		posLedger, posEngine, _ := testutil.NewLedgerStack(consensus.ModePoS)
		_, err := New(posLedger, posEngine, Config{})
		assert.NoError(t, err)
	})

	t.Run("zero interval falls back to the default", func(t *testing.T) {
		p, err := New(led, engine, Config{Miner: "rig-1"})
		require.NoError(t, err)
		assert.Equal(t, DefaultInterval, p.cfg.Interval)
	})
}

func TestStartStop(t *testing.T) {
	t.Run("stop before start", func(t *testing.T) {
		led, engine, _ := testutil.NewLedgerStack(consensus.ModePoW)
		p, err := New(led, engine, Config{Miner: "rig-1"})
		require.NoError(t, err)

		assert.ErrorIs(t, p.Stop(), ErrNotRunning)
	})

	t.Run("start and stop are one-shot", func(t *testing.T) {
		led, engine, _ := testutil.NewLedgerStack(consensus.ModePoW)
		p, err := New(led, engine, Config{Miner: "rig-1", Interval: time.Hour})
		require.NoError(t, err)

		require.NoError(t, p.Start())
		assert.NoError(t, p.Start(), "repeated start is a no-op")

		require.NoError(t, p.Stop())
		assert.NoError(t, p.Stop(), "repeated stop is a no-op")
	})
}

func TestScheduledProduction(t *testing.T) {
	t.Run("proof of work uses the configured coinbase", func(t *testing.T) {
		led, engine, _ := testutil.NewLedgerStack(consensus.ModePoW)
		account := testutil.FirstAccount()
		require.NoError(t, led.AddTransaction(testutil.SignedTransaction(account, "bob", 5, 0)))

		p, err := New(led, engine, Config{Interval: 20 * time.Millisecond, Miner: "rig-1"})
		require.NoError(t, err)
		require.NoError(t, p.Start())
		defer p.Stop()

		require.Eventually(t, heightReached(led, 1), 2*time.Second, 10*time.Millisecond)

		head, err := led.LatestBlock()
		require.NoError(t, err)
		assert.Equal(t, "rig-1", head.Miner)
	})

	t.Run("stake modes mine with a selected validator", func(t *testing.T) {
		led, engine, _ := testutil.NewLedgerStack(consensus.ModePoS)
		require.NoError(t, engine.AddValidator("val-1", 64))
		account := testutil.FirstAccount()
		require.NoError(t, led.AddTransaction(testutil.SignedTransaction(account, "bob", 5, 0)))

		p, err := New(led, engine, Config{Interval: 20 * time.Millisecond})
		require.NoError(t, err)
		require.NoError(t, p.Start())
		defer p.Stop()

		require.Eventually(t, heightReached(led, 1), 2*time.Second, 10*time.Millisecond)

		head, err := led.LatestBlock()
		require.NoError(t, err)
		assert.Equal(t, "val-1", head.Miner)
	})

	t.Run("no eligible validator skips the attempt", func(t *testing.T) {
		led, engine, _ := testutil.NewLedgerStack(consensus.ModePoS)
		account := testutil.FirstAccount()
		require.NoError(t, led.AddTransaction(testutil.SignedTransaction(account, "bob", 5, 0)))

		p, err := New(led, engine, Config{Interval: 15 * time.Millisecond})
		require.NoError(t, err)
		require.NoError(t, p.Start())

		// Several ticks pass without anyone to mine
		time.Sleep(80 * time.Millisecond)
		require.NoError(t, p.Stop())

		head, err := led.LatestBlock()
		require.NoError(t, err)
		assert.Equal(t, int64(0), head.Index)

		pending, err := led.PendingTransactions()
		require.NoError(t, err)
		assert.Len(t, pending, 1, "skipped attempts leave the pool alone")
	})
}

func TestTrigger(t *testing.T) {
	led, engine, _ := testutil.NewLedgerStack(consensus.ModePoS)
	require.NoError(t, engine.AddValidator("val-1", 64))
	account := testutil.FirstAccount()

	// An hour-long interval keeps the ticker out of the picture
	p, err := New(led, engine, Config{Interval: time.Hour})
	require.NoError(t, err)
	require.NoError(t, p.Start())
	defer p.Stop()

	t.Run("mines on demand", func(t *testing.T) {
		require.NoError(t, led.AddTransaction(testutil.SignedTransaction(account, "bob", 5, 0)))
		p.Trigger()

		require.Eventually(t, heightReached(led, 1), 2*time.Second, 10*time.Millisecond)
	})

	t.Run("rapid triggers coalesce", func(t *testing.T) {
		require.NoError(t, led.AddTransaction(testutil.SignedTransaction(account, "bob", 7, 0)))
		p.Trigger()
		p.Trigger()
		p.Trigger()

		require.Eventually(t, heightReached(led, 2), 2*time.Second, 10*time.Millisecond)

		// The extra events found an empty pool and mined nothing
		time.Sleep(50 * time.Millisecond)
		head, err := led.LatestBlock()
		require.NoError(t, err)
		assert.Equal(t, int64(2), head.Index)
	})
}
