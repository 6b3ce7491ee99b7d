package ledger

import "math"

// ValidateTransaction checks the structural invariants of a transaction.
// The signature is checked for shape only, never verified cryptographically.
func ValidateTransaction(tx *Transaction) error {
	if tx.ID == "" {
		return ErrEmptyTransactionID
	}
	if tx.From == "" || tx.To == "" {
		return ErrMissingAddress
	}
	if !(tx.Amount > 0) || math.IsInf(tx.Amount, 0) {
		return ErrInvalidAmount
	}
	if tx.Fee < 0 || math.IsNaN(tx.Fee) {
		return ErrNegativeFee
	}
	if len(tx.Signature) != SignatureLength {
		return ErrBadSignature
	}
	return nil
}

// ReplayBalance derives an address balance by replaying every committed block:
// incoming amounts are credited, outgoing amounts debited, and the block
// reward credited to the miner. Fees do not move balances.
func ReplayBalance(blocks []*Block, address string) float64 {
	balance := 0.0
	for _, b := range blocks {
		for i := range b.Transactions {
			tx := &b.Transactions[i]
			if tx.To == address {
				balance += tx.Amount
			}
			if tx.From == address {
				balance -= tx.Amount
			}
		}
		if b.Miner == address {
			balance += b.Reward
		}
	}
	return balance
}
