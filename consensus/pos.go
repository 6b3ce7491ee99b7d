package consensus

import (
	"fmt"
	"sort"
	"time"

	"ledgerlab/ledger"
)

// checkStake verifies that the block's miner is a registered, active validator
// holding enough stake, and that its share of the total active stake clears
// the selection threshold. A passing check stamps the validator's
// LastValidation.
//
// The threshold comparison is strict, so once enough evenly staked validators
// are active nobody clears it. Operators tune SelectionThreshold per chain.
func (e *Engine) checkStake(b *ledger.Block) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, ok := e.validators[b.Miner]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownValidator, b.Miner)
	}
	if !v.IsActive {
		return fmt.Errorf("%w: %s", ErrInactiveValidator, b.Miner)
	}
	if v.Stake < e.cfg.MinimumStake {
		return fmt.Errorf("%w: %.2f with minimum %.2f", ErrInsufficientStake, v.Stake, e.cfg.MinimumStake)
	}

	total := e.totalActiveStakeUnsafe()
	if total <= 0 {
		return ErrNoEligibleValidators
	}
	probability := v.Stake / total
	if probability <= e.cfg.SelectionThreshold {
		return fmt.Errorf("%w: %.3f with threshold %.2f", ErrBelowSelectionThreshold, probability, e.cfg.SelectionThreshold)
	}

	v.LastValidation = time.Now().UnixMilli()
	return nil
}

// SelectValidator picks a validator with probability proportional to its
// stake. Only active validators holding at least the minimum stake enter the
// wheel.
func (e *Engine) SelectValidator() (string, error) {
	type weightedValidator struct {
		address string
		weight  float64
	}

	e.mu.RLock()
	eligible := make([]weightedValidator, 0, len(e.validators))
	totalWeight := 0.0
	for _, v := range e.validators {
		if v.IsActive && v.Stake >= e.cfg.MinimumStake {
			eligible = append(eligible, weightedValidator{
				address: v.Address,
				weight:  v.Stake,
			})
			totalWeight += v.Stake
		}
	}
	e.mu.RUnlock()

	if len(eligible) == 0 || totalWeight <= 0 {
		return "", ErrNoEligibleValidators
	}

	// Sorted iteration keeps the draw deterministic for a seeded source.
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].address < eligible[j].address
	})

	e.rngMu.Lock()
	r := e.rng.Float64() * totalWeight
	e.rngMu.Unlock()

	for _, wv := range eligible {
		r -= wv.weight
		if r <= 0 {
			return wv.address, nil
		}
	}

	return eligible[len(eligible)-1].address, nil
}
