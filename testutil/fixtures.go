package testutil

import (
	"math/rand"

	"ledgerlab/consensus"
	"ledgerlab/ledger"
	"ledgerlab/ledger/store"
)

// NewEngine builds an engine in the given mode with difficulty 1 and a seeded
// selection source, so draws reproduce across runs.
func NewEngine(mode consensus.Mode) *consensus.Engine {
	engine, err := consensus.NewEngine(consensus.Config{
		Mode:       mode,
		Difficulty: 1,
		Rand:       rand.New(rand.NewSource(1)),
	})
	if err != nil {
		panic("failed to build engine: " + err.Error())
	}
	return engine
}

// NewLedgerStack wires a memory store, a seeded engine and a ledger with
// difficulty 1 so proof-of-work tests stay fast. The store handle gives tests
// direct access to committed state.
func NewLedgerStack(mode consensus.Mode) (*ledger.Ledger, *consensus.Engine, *store.MemoryChainStore) {
	chainStore := store.NewMemoryChainStore()
	engine := NewEngine(mode)

	led, err := ledger.NewLedger(chainStore, engine, ledger.Config{Difficulty: 1})
	if err != nil {
		panic("failed to build ledger: " + err.Error())
	}
	return led, engine, chainStore
}

// SignedTransaction builds a valid signed transfer from an account.
func SignedTransaction(from Account, to string, amount, fee float64) ledger.Transaction {
	tx, err := ledger.NewSignedTransaction(from.Address, to, amount, fee, from.PrivateKey)
	if err != nil {
		panic("failed to build transaction: " + err.Error())
	}
	return tx
}
