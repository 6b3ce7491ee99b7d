package ledger

// NewGenesisBlock returns the first block of a fresh chain. Every field is
// fixed, so two chains always agree on block zero.
func NewGenesisBlock() *Block {
	b := &Block{
		Index:        0,
		Timestamp:    GenesisTimestamp,
		Transactions: []Transaction{},
		PreviousHash: GenesisPreviousHash,
		Nonce:        0,
		Difficulty:   0,
		Miner:        GenesisMiner,
		Reward:       0,
	}
	b.Hash = CalculateHash(b)
	return b
}
