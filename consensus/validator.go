package consensus

import (
	"fmt"
	"math"
	"sort"

	"ledgerlab/log"
)

// Validator is a registered stakeholder eligible to produce blocks.
// Validators are never deleted, losing too much stake deactivates them.
type Validator struct {
	Address        string  `json:"address"`
	Stake          float64 `json:"stake"`
	Reputation     float64 `json:"reputation"`
	IsActive       bool    `json:"is_active"`
	LastValidation int64   `json:"last_validation"`
}

// AddValidator registers a validator with the given stake. Registering an
// existing address replaces its record, which is also the only way back to
// active after a deactivating slash.
func (e *Engine) AddValidator(address string, stake float64) error {
	if address == "" {
		return ErrEmptyAddress
	}
	if !(stake >= e.cfg.MinimumStake) || math.IsInf(stake, 0) {
		return fmt.Errorf("%w: %.2f with minimum %.2f", ErrInsufficientStake, stake, e.cfg.MinimumStake)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	_, replaced := e.validators[address]
	e.validators[address] = &Validator{
		Address:    address,
		Stake:      stake,
		Reputation: MaxReputation,
		IsActive:   true,
	}

	log.Info(log.ConsensusModule, "validator registered", "address", address, "stake", stake, "replaced", replaced)
	return nil
}

// SlashValidator burns a fraction of the validator's stake and reputation.
// The validator is deactivated when the remaining stake falls below the
// minimum.
func (e *Engine) SlashValidator(address, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, ok := e.validators[address]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownValidator, address)
	}

	penalty := v.Stake * e.cfg.SlashingPenalty
	v.Stake -= penalty
	v.Reputation -= e.cfg.ReputationPenalty
	if v.Reputation < 0 {
		v.Reputation = 0
	}
	if v.Stake < e.cfg.MinimumStake {
		v.IsActive = false
	}

	log.Warn(log.ConsensusModule, "validator slashed", "address", address, "reason", reason,
		"penalty", penalty, "stake", v.Stake, "reputation", v.Reputation, "active", v.IsActive)
	return nil
}

// Validator returns a copy of the registered validator for the address.
func (e *Engine) Validator(address string) (Validator, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v, ok := e.validators[address]
	if !ok {
		return Validator{}, fmt.Errorf("%w: %s", ErrUnknownValidator, address)
	}
	return *v, nil
}

// Validators returns copies of every registered validator in address order.
func (e *Engine) Validators() []Validator {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Validator, 0, len(e.validators))
	for _, v := range e.validators {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address < out[j].Address
	})
	return out
}

// totalActiveStakeUnsafe sums the stake of active validators - must be called
// with the lock held.
func (e *Engine) totalActiveStakeUnsafe() float64 {
	total := 0.0
	for _, v := range e.validators {
		if v.IsActive {
			total += v.Stake
		}
	}
	return total
}
