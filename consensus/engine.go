package consensus

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"ledgerlab/ledger"
	"ledgerlab/log"
)

// Mode selects which acceptance rules the engine applies to candidate blocks.
// The mode is fixed for the engine's lifetime.
type Mode string

const (
	ModePoW    Mode = "pow"
	ModePoS    Mode = "pos"
	ModeHybrid Mode = "hybrid"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePoW, ModePoS, ModeHybrid:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

const (
	DefaultMinimumStake       = 32.0
	DefaultSlashingPenalty    = 0.10
	DefaultReputationPenalty  = 10.0
	DefaultSelectionThreshold = 0.1
	MaxReputation             = 100.0

	// Candidate timestamps outside [now-maxCandidateAge, now+maxClockSkew]
	// are rejected regardless of mode.
	maxCandidateAge = time.Hour
	maxClockSkew    = time.Minute
)

// Config holds the consensus parameters. Zero values fall back to the
// defaults above.
type Config struct {
	Mode               Mode
	Difficulty         int
	MinimumStake       float64
	SlashingPenalty    float64
	ReputationPenalty  float64
	SelectionThreshold float64

	// Rand drives validator selection. Leave nil outside of tests.
	Rand *rand.Rand
}

// Engine manages the validator registry and applies the configured acceptance
// rules to candidate blocks. It implements ledger.BlockValidator.
type Engine struct {
	cfg Config

	mu         sync.RWMutex
	validators map[string]*Validator

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewEngine(cfg Config) (*Engine, error) {
	if _, err := ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}
	if cfg.Difficulty < 0 {
		return nil, fmt.Errorf("difficulty cannot be negative: %d", cfg.Difficulty)
	}
	if cfg.MinimumStake < 0 || cfg.SlashingPenalty < 0 || cfg.ReputationPenalty < 0 || cfg.SelectionThreshold < 0 {
		return nil, errors.New("consensus parameters cannot be negative")
	}
	if cfg.SlashingPenalty >= 1 {
		return nil, fmt.Errorf("slashing penalty must be a fraction below 1: %f", cfg.SlashingPenalty)
	}

	if cfg.Difficulty == 0 {
		cfg.Difficulty = ledger.DefaultDifficulty
	}
	if cfg.MinimumStake == 0 {
		cfg.MinimumStake = DefaultMinimumStake
	}
	if cfg.SlashingPenalty == 0 {
		cfg.SlashingPenalty = DefaultSlashingPenalty
	}
	if cfg.ReputationPenalty == 0 {
		cfg.ReputationPenalty = DefaultReputationPenalty
	}
	if cfg.SelectionThreshold == 0 {
		cfg.SelectionThreshold = DefaultSelectionThreshold
	}

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	log.Info(log.ConsensusModule, "consensus engine ready", "mode", string(cfg.Mode),
		"difficulty", cfg.Difficulty, "minimum_stake", cfg.MinimumStake)

	return &Engine{
		cfg:        cfg,
		validators: make(map[string]*Validator),
		rng:        rng,
	}, nil
}

func (e *Engine) Mode() Mode {
	return e.cfg.Mode
}

// RequiresWork reports whether candidate blocks must carry a proof-of-work
// nonce. Only the pure proof-of-stake mode skips the nonce search.
func (e *Engine) RequiresWork() bool {
	return e.cfg.Mode != ModePoS
}

// ValidateBlock runs the structural checks shared by every mode, then the
// mode-specific acceptance rules. Hybrid demands both work and stake.
func (e *Engine) ValidateBlock(b *ledger.Block) error {
	if err := e.validateStructure(b); err != nil {
		return err
	}

	switch e.cfg.Mode {
	case ModePoW:
		return e.checkWork(b)
	case ModePoS:
		return e.checkStake(b)
	case ModeHybrid:
		if err := e.checkWork(b); err != nil {
			return err
		}
		return e.checkStake(b)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, e.cfg.Mode)
	}
}

func (e *Engine) validateStructure(b *ledger.Block) error {
	if b == nil {
		return errors.New("block is nil")
	}
	if b.Index < 0 {
		return fmt.Errorf("%w: %d", ErrBadIndex, b.Index)
	}
	if b.Hash == "" || b.PreviousHash == "" {
		return ErrMissingHash
	}

	now := time.Now().UnixMilli()
	if b.Timestamp > now+maxClockSkew.Milliseconds() {
		return fmt.Errorf("%w: %d", ErrTimestampFuture, b.Timestamp)
	}
	if b.Timestamp < now-maxCandidateAge.Milliseconds() {
		return fmt.Errorf("%w: %d", ErrTimestampStale, b.Timestamp)
	}

	for i := range b.Transactions {
		if err := ledger.ValidateTransaction(&b.Transactions[i]); err != nil {
			return fmt.Errorf("transaction %d failed validation: %w", i, err)
		}
	}
	return nil
}

// Stats is a point-in-time summary of the validator registry.
type Stats struct {
	Mode              Mode    `json:"mode"`
	ValidatorCount    int     `json:"validator_count"`
	ActiveCount       int     `json:"active_count"`
	TotalStake        float64 `json:"total_stake"`
	TotalActiveStake  float64 `json:"total_active_stake"`
	AverageReputation float64 `json:"average_reputation"`
	MinimumStake      float64 `json:"minimum_stake"`
}

func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := Stats{
		Mode:           e.cfg.Mode,
		ValidatorCount: len(e.validators),
		MinimumStake:   e.cfg.MinimumStake,
	}

	reputation := 0.0
	for _, v := range e.validators {
		s.TotalStake += v.Stake
		if v.IsActive {
			s.ActiveCount++
			s.TotalActiveStake += v.Stake
			reputation += v.Reputation
		}
	}
	if s.ActiveCount > 0 {
		s.AverageReputation = reputation / float64(s.ActiveCount)
	}
	return s
}
