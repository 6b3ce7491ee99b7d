package testutil

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"ledgerlab/ledger"
	"ledgerlab/log"
)

// TrafficBot feeds random transfers between its accounts into a ledger.
// It exists for demos and soak runs, the amounts and pairings mean nothing.
type TrafficBot struct {
	ledger   *ledger.Ledger
	accounts []Account
	interval time.Duration
	rng      *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTrafficBot(led *ledger.Ledger, accountCount int, interval time.Duration) *TrafficBot {
	if accountCount < 2 {
		accountCount = 2
	}
	if interval <= 0 {
		interval = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &TrafficBot{
		ledger:   led,
		accounts: GenerateAccounts(accountCount),
		interval: interval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Accounts returns the bot's generated accounts.
func (b *TrafficBot) Accounts() []Account {
	return b.accounts
}

// SubmitOnce queues a single random transfer.
func (b *TrafficBot) SubmitOnce() error {
	fromIdx := b.rng.Intn(len(b.accounts))
	toIdx := b.rng.Intn(len(b.accounts))
	for toIdx == fromIdx {
		toIdx = b.rng.Intn(len(b.accounts))
	}

	amount := float64(b.rng.Intn(100) + 1)
	fee := float64(b.rng.Intn(10)) / 10

	tx, err := ledger.NewSignedTransaction(
		b.accounts[fromIdx].Address,
		b.accounts[toIdx].Address,
		amount,
		fee,
		b.accounts[fromIdx].PrivateKey,
	)
	if err != nil {
		return err
	}
	return b.ledger.AddTransaction(tx)
}

// Start submits a random transfer every interval until Stop is called.
func (b *TrafficBot) Start() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-b.ctx.Done():
				return
			case <-ticker.C:
				if err := b.SubmitOnce(); err != nil {
					log.Warn(log.DemoModule, "bot transfer rejected", "err", err)
				}
			}
		}
	}()
}

func (b *TrafficBot) Stop() {
	b.cancel()
	b.wg.Wait()
}
