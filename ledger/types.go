package ledger

import "crypto/ed25519"

const (
	// SignatureLength is the hex length of an ed25519 transaction signature.
	SignatureLength = ed25519.SignatureSize * 2

	DefaultDifficulty  = 2
	DefaultBlockReward = 50.0

	// GenesisPreviousHash is the parent sentinel carried by the first block.
	GenesisPreviousHash = "0"
	// GenesisTimestamp is 2024-01-01T00:00:00Z in Unix milliseconds, fixed so
	// every fresh chain starts from the same genesis hash.
	GenesisTimestamp int64 = 1704067200000
	GenesisMiner           = "genesis"
)

// Transaction is a signed transfer between two addresses. Fees are recorded
// on the wire but are not charged when balances are derived.
type Transaction struct {
	ID        string  `json:"id"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Amount    float64 `json:"amount"`
	Fee       float64 `json:"fee"`
	Signature string  `json:"signature"`
	Timestamp int64   `json:"timestamp"`
}

type Block struct {
	Index        int64         `json:"index"`
	Timestamp    int64         `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
	PreviousHash string        `json:"previous_hash"`
	Hash         string        `json:"hash"`
	Nonce        int64         `json:"nonce"`
	Difficulty   int           `json:"difficulty"`
	Miner        string        `json:"miner"`
	Reward       float64       `json:"reward"`
}

// NetworkStats is a point-in-time summary of the chain and pool.
type NetworkStats struct {
	Height            int64   `json:"height"`
	TotalBlocks       int     `json:"total_blocks"`
	TotalTransactions int     `json:"total_transactions"`
	PendingCount      int     `json:"pending_count"`
	LatestHash        string  `json:"latest_hash"`
	Difficulty        int     `json:"difficulty"`
	BlockReward       float64 `json:"block_reward"`
}
