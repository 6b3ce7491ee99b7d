package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jinzhu/copier"

	"ledgerlab/ledger"
)

// MemoryChainStore keeps the chain and the pending pool in process memory.
// Reads hand out copies so callers cannot mutate committed state.
type MemoryChainStore struct {
	mu         sync.RWMutex
	blocks     []*ledger.Block
	pending    []ledger.Transaction
	pendingIDs map[string]struct{}
	txCount    int
}

func NewMemoryChainStore() *MemoryChainStore {
	return &MemoryChainStore{
		blocks:     make([]*ledger.Block, 0),
		pending:    make([]ledger.Transaction, 0),
		pendingIDs: make(map[string]struct{}),
	}
}

func (m *MemoryChainStore) AppendBlock(block *ledger.Block) error {
	if block == nil {
		return errors.New("block is nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Just append the block to the chain - validation is done by the caller
	m.blocks = append(m.blocks, block)
	m.txCount += len(block.Transactions)
	return nil
}

func (m *MemoryChainStore) AddPending(tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pendingIDs[tx.ID]; ok {
		return ledger.ErrDuplicateTransaction
	}
	m.pending = append(m.pending, tx)
	m.pendingIDs[tx.ID] = struct{}{}
	return nil
}

// DrainPending removes and returns the whole pool in arrival order.
func (m *MemoryChainStore) DrainPending() []ledger.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	drained := m.pending
	m.pending = make([]ledger.Transaction, 0)
	m.pendingIDs = make(map[string]struct{})
	return drained
}

// RestorePending puts drained transactions back at the front of the pool,
// ahead of anything that arrived while they were out. Transactions whose id
// reappeared in the meantime are dropped.
func (m *MemoryChainStore) RestorePending(txs []ledger.Transaction) {
	if len(txs) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	restored := make([]ledger.Transaction, 0, len(txs)+len(m.pending))
	for _, tx := range txs {
		if _, ok := m.pendingIDs[tx.ID]; ok {
			continue
		}
		restored = append(restored, tx)
		m.pendingIDs[tx.ID] = struct{}{}
	}
	m.pending = append(restored, m.pending...)
}

// HeadBlock returns the live head block. The pointer is owned by the store;
// callers that need a mutable copy go through Blocks.
func (m *MemoryChainStore) HeadBlock() (*ledger.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.blocks) < 1 {
		return nil, errors.New("chain is empty")
	}
	return m.blocks[len(m.blocks)-1], nil
}

// Blocks returns deep copies of the most recent limit blocks, oldest first.
// A limit of zero returns the whole chain.
func (m *MemoryChainStore) Blocks(limit int) ([]ledger.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := 0
	if limit > 0 && limit < len(m.blocks) {
		start = len(m.blocks) - limit
	}

	out := make([]ledger.Block, 0, len(m.blocks)-start)
	for _, b := range m.blocks[start:] {
		var cp ledger.Block
		if err := copier.Copy(&cp, b); err != nil {
			return nil, fmt.Errorf("failed to copy block %d: %w", b.Index, err)
		}
		out = append(out, cp)
	}
	return out, nil
}

func (m *MemoryChainStore) Height() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.blocks)), nil
}

func (m *MemoryChainStore) Pending() ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.Transaction, len(m.pending))
	copy(out, m.pending)
	return out, nil
}

func (m *MemoryChainStore) PendingCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pending), nil
}

func (m *MemoryChainStore) TransactionCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.txCount, nil
}

func (m *MemoryChainStore) AccountBalance(address string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ledger.ReplayBalance(m.blocks, address), nil
}
