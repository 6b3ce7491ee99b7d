package ledger

// BlockValidator decides whether a candidate block may join the chain.
// Implemented by the consensus engine (avoids circular imports).
type BlockValidator interface {
	ValidateBlock(block *Block) error

	// RequiresWork reports whether candidates must carry a proof-of-work nonce.
	RequiresWork() bool
}

// ChainStore owns the committed blocks and the pending transaction pool.
// Implementations lock internally; callers coordinate multi-step sequences.
type ChainStore interface {

	// Update/Add/Put
	AppendBlock(block *Block) error
	AddPending(tx Transaction) error
	DrainPending() []Transaction
	RestorePending(txs []Transaction)

	// Getters
	HeadBlock() (*Block, error)
	Blocks(limit int) ([]Block, error)
	Height() (int64, error)
	Pending() ([]Transaction, error)
	PendingCount() (int, error)
	TransactionCount() (int, error)
	AccountBalance(address string) (float64, error)
}
