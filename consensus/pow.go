package consensus

import (
	"fmt"

	"ledgerlab/ledger"
)

// checkWork recomputes the block hash and verifies it against the stored hash
// and the engine difficulty. Tampered contents surface here as a hash
// mismatch before the difficulty is even considered.
func (e *Engine) checkWork(b *ledger.Block) error {
	recomputed := ledger.CalculateHash(b)
	if recomputed != b.Hash {
		return fmt.Errorf("%w: stored %.16s, recomputed %.16s", ErrWrongHash, b.Hash, recomputed)
	}
	if !ledger.HashMeetsDifficulty(b.Hash, e.cfg.Difficulty) {
		return fmt.Errorf("%w: need %d leading zeros", ErrInsufficientWork, e.cfg.Difficulty)
	}
	return nil
}
