package ledger

import (
	"context"
)

// MineCorrectNonce increments the block nonce until its hash meets the block's
// difficulty. The search stops early when ctx is cancelled, leaving the block
// with whatever nonce was reached.
func MineCorrectNonce(ctx context.Context, b *Block) (int64, error) {
	for hash := CalculateHash(b); !HashMeetsDifficulty(hash, b.Difficulty); hash = CalculateHash(b) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
		b.Nonce += 1
	}

	return b.Nonce, nil
}
