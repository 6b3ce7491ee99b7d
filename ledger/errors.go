package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTransactionID    = errors.New("transaction id is empty")
	ErrMissingAddress        = errors.New("transaction needs both from and to addresses")
	ErrInvalidAmount         = errors.New("transaction amount must be a positive finite number")
	ErrNegativeFee           = errors.New("transaction fee cannot be negative")
	ErrBadSignature          = errors.New("transaction signature has the wrong length")
	ErrDuplicateTransaction  = errors.New("transaction id already pending")
	ErrNoPendingTransactions = errors.New("no pending transactions to mine")
	ErrMiningTimeout         = errors.New("nonce search exceeded the mining deadline")
	ErrEmptyMiner            = errors.New("miner address is empty")
)

// ErrHashMismatch is returned when a block's stored hash does not match its contents
type ErrHashMismatch struct {
	Index int64
}

func (e ErrHashMismatch) Error() string {
	return fmt.Sprintf("block %d hash does not match its contents", e.Index)
}

// ErrBrokenLink is returned when a block does not reference its predecessor's hash
type ErrBrokenLink struct {
	Index int64
}

func (e ErrBrokenLink) Error() string {
	return fmt.Sprintf("block %d previous hash does not match block %d", e.Index, e.Index-1)
}

// ErrIndexGap is returned when block indices are not strictly sequential
type ErrIndexGap struct {
	Index    int64
	Expected int64
}

func (e ErrIndexGap) Error() string {
	return fmt.Sprintf("block index %d where %d was expected", e.Index, e.Expected)
}
