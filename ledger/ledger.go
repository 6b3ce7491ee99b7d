package ledger

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	uuid "github.com/nu7hatch/gouuid"

	"ledgerlab/log"
)

const DefaultMaxMineDuration = 30 * time.Second

// Config holds the tunable block production parameters of a ledger.
type Config struct {
	Difficulty      int
	BlockReward     float64
	MaxMineDuration time.Duration
}

// Ledger owns the committed chain and the pending pool, and drives block
// production through the injected BlockValidator.
type Ledger struct {
	store     ChainStore
	validator BlockValidator
	cfg       Config

	// mu serializes the drain/mine/validate/append sequence so that at most
	// one candidate block is in flight at a time.
	mu sync.Mutex

	subMu   sync.Mutex
	subs    map[int]chan Block
	nextSub int
}

// NewLedger wires a ledger over the given store and validator. A fresh store
// is seeded with the genesis block.
func NewLedger(chainStore ChainStore, validator BlockValidator, cfg Config) (*Ledger, error) {
	if chainStore == nil {
		return nil, errors.New("chain store is nil")
	}
	if validator == nil {
		return nil, errors.New("block validator is nil")
	}
	if cfg.Difficulty < 0 {
		return nil, fmt.Errorf("difficulty cannot be negative: %d", cfg.Difficulty)
	}
	if cfg.BlockReward < 0 {
		return nil, fmt.Errorf("block reward cannot be negative: %f", cfg.BlockReward)
	}
	if cfg.Difficulty == 0 {
		cfg.Difficulty = DefaultDifficulty
	}
	if cfg.BlockReward == 0 {
		cfg.BlockReward = DefaultBlockReward
	}
	if cfg.MaxMineDuration <= 0 {
		cfg.MaxMineDuration = DefaultMaxMineDuration
	}

	l := &Ledger{
		store:     chainStore,
		validator: validator,
		cfg:       cfg,
		subs:      make(map[int]chan Block),
	}

	height, err := chainStore.Height()
	if err != nil {
		return nil, fmt.Errorf("failed to get chain height: %w", err)
	}
	if height == 0 {
		genesis := NewGenesisBlock()
		if err := chainStore.AppendBlock(genesis); err != nil {
			return nil, fmt.Errorf("failed to add genesis block: %w", err)
		}
		log.Info(log.LedgerModule, "chain initialized with genesis block", "hash", shortHash(genesis.Hash))
	}

	return l, nil
}

// Config returns the ledger's effective configuration after defaulting.
func (l *Ledger) Config() Config {
	return l.cfg
}

// NewSignedTransaction builds a transaction with a fresh id and a signature
// over its digest. The transaction is not submitted to any pool.
func NewSignedTransaction(from, to string, amount, fee float64, privatekey ed25519.PrivateKey) (Transaction, error) {
	u, err := uuid.NewV4()
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to generate transaction id: %w", err)
	}

	tx := Transaction{
		ID:        u.String(),
		From:      from,
		To:        to,
		Amount:    amount,
		Fee:       fee,
		Timestamp: time.Now().UnixMilli(),
	}
	SignTransaction(&tx, privatekey)

	if err := ValidateTransaction(&tx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// AddTransaction appends a structurally valid transaction to the pending pool.
// Rejected transactions leave no trace.
func (l *Ledger) AddTransaction(tx Transaction) error {
	if err := ValidateTransaction(&tx); err != nil {
		log.Debug(log.LedgerModule, "transaction rejected", "id", tx.ID, "err", err)
		return err
	}
	if err := l.store.AddPending(tx); err != nil {
		log.Debug(log.LedgerModule, "transaction rejected", "id", tx.ID, "err", err)
		return err
	}
	log.Debug(log.LedgerModule, "transaction queued", "id", tx.ID, "from", tx.From, "to", tx.To, "amount", tx.Amount)
	return nil
}

// MineBlock drains the pending pool into a candidate block, finds a nonce when
// the validator demands proof of work, and commits the candidate once the
// validator accepts it. On rejection or timeout the drained transactions are
// restored to the front of the pool.
func (l *Ledger) MineBlock(ctx context.Context, miner string) (*Block, error) {
	if miner == "" {
		return nil, ErrEmptyMiner
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	drained := l.store.DrainPending()
	if len(drained) == 0 {
		return nil, ErrNoPendingTransactions
	}

	head, err := l.store.HeadBlock()
	if err != nil {
		l.store.RestorePending(drained)
		return nil, fmt.Errorf("failed to get head block: %w", err)
	}

	candidate := &Block{
		Index:        head.Index + 1,
		Timestamp:    time.Now().UnixMilli(),
		Transactions: drained,
		PreviousHash: head.Hash,
		Nonce:        0,
		Difficulty:   l.cfg.Difficulty,
		Miner:        miner,
		Reward:       l.cfg.BlockReward,
	}

	if l.validator.RequiresWork() {
		mineCtx, cancel := context.WithTimeout(ctx, l.cfg.MaxMineDuration)
		nonce, err := MineCorrectNonce(mineCtx, candidate)
		cancel()
		if err != nil {
			l.store.RestorePending(drained)
			log.Warn(log.LedgerModule, "nonce search abandoned", "height", candidate.Index, "err", err)
			return nil, fmt.Errorf("%w: %v", ErrMiningTimeout, err)
		}
		candidate.Nonce = nonce
	}
	candidate.Hash = CalculateHash(candidate)

	if err := l.validator.ValidateBlock(candidate); err != nil {
		l.store.RestorePending(drained)
		log.Warn(log.LedgerModule, "candidate block rejected", "height", candidate.Index, "miner", miner, "err", err)
		return nil, fmt.Errorf("block rejected: %w", err)
	}

	if err := l.store.AppendBlock(candidate); err != nil {
		l.store.RestorePending(drained)
		return nil, fmt.Errorf("failed to append block: %w", err)
	}

	log.Info(log.LedgerModule, "block committed", "height", candidate.Index, "hash", shortHash(candidate.Hash), "txs", len(candidate.Transactions), "miner", miner)
	l.notify(candidate)
	return candidate, nil
}

// ValidateChain walks the committed chain from block one and checks that every
// block's hash matches its contents, links to its predecessor and continues
// the index sequence.
func (l *Ledger) ValidateChain() error {
	blocks, err := l.store.Blocks(0)
	if err != nil {
		return fmt.Errorf("failed to get chain: %w", err)
	}

	for i := 1; i < len(blocks); i++ {
		b, prev := &blocks[i], &blocks[i-1]

		if b.Index != prev.Index+1 {
			err := ErrIndexGap{Index: b.Index, Expected: prev.Index + 1}
			log.Error(log.LedgerModule, "chain validation failed", "height", b.Index, "err", err)
			return err
		}
		if CalculateHash(b) != b.Hash {
			err := ErrHashMismatch{Index: b.Index}
			log.Error(log.LedgerModule, "chain validation failed", "height", b.Index, "err", err)
			return err
		}
		if b.PreviousHash != prev.Hash {
			err := ErrBrokenLink{Index: b.Index}
			log.Error(log.LedgerModule, "chain validation failed", "height", b.Index, "err", err)
			return err
		}
	}
	return nil
}

// AccountBalance derives an address balance by replaying the committed chain.
func (l *Ledger) AccountBalance(address string) (float64, error) {
	return l.store.AccountBalance(address)
}

// Chain returns deep copies of the most recent limit blocks, oldest first.
// A limit of zero returns the whole chain.
func (l *Ledger) Chain(limit int) ([]Block, error) {
	return l.store.Blocks(limit)
}

// PendingTransactions returns a copy of the pool in arrival order.
func (l *Ledger) PendingTransactions() ([]Transaction, error) {
	return l.store.Pending()
}

// LatestBlock returns a deep copy of the head block.
func (l *Ledger) LatestBlock() (Block, error) {
	head, err := l.store.HeadBlock()
	if err != nil {
		return Block{}, err
	}
	var cp Block
	if err := copier.Copy(&cp, head); err != nil {
		return Block{}, fmt.Errorf("failed to copy head block: %w", err)
	}
	return cp, nil
}

// NetworkStats summarizes the chain and pool. The individual reads are not
// taken under one lock, a commit between them only skews counters by one.
func (l *Ledger) NetworkStats() (NetworkStats, error) {
	head, err := l.store.HeadBlock()
	if err != nil {
		return NetworkStats{}, err
	}
	height, err := l.store.Height()
	if err != nil {
		return NetworkStats{}, err
	}
	txCount, err := l.store.TransactionCount()
	if err != nil {
		return NetworkStats{}, err
	}
	pendingCount, err := l.store.PendingCount()
	if err != nil {
		return NetworkStats{}, err
	}

	return NetworkStats{
		Height:            head.Index,
		TotalBlocks:       int(height),
		TotalTransactions: txCount,
		PendingCount:      pendingCount,
		LatestHash:        head.Hash,
		Difficulty:        l.cfg.Difficulty,
		BlockReward:       l.cfg.BlockReward,
	}, nil
}

// SubscribeBlocks registers a listener for committed blocks. Slow listeners
// miss blocks rather than stall mining. The returned func cancels the
// subscription and closes the channel.
func (l *Ledger) SubscribeBlocks(buf int) (<-chan Block, func()) {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan Block, buf)

	l.subMu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = ch
	l.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.subMu.Lock()
			delete(l.subs, id)
			close(ch)
			l.subMu.Unlock()
		})
	}
	return ch, cancel
}

func (l *Ledger) notify(b *Block) {
	l.subMu.Lock()
	defer l.subMu.Unlock()

	if len(l.subs) == 0 {
		return
	}
	var cp Block
	if err := copier.Copy(&cp, b); err != nil {
		log.Error(log.LedgerModule, "failed to copy block for subscribers", "err", err)
		return
	}
	for _, ch := range l.subs {
		select {
		case ch <- cp:
		default:
		}
	}
}

func shortHash(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
