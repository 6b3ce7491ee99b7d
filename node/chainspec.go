package node

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"ledgerlab/consensus"
	"ledgerlab/ledger"
)

// Duration wraps time.Duration so chain specs can say "10s" instead of a
// nanosecond count. Bare numbers are still accepted as nanoseconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		d.Duration = parsed
		return nil
	case float64:
		d.Duration = time.Duration(v)
		return nil
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
}

// GenesisValidator seeds the registry before the node starts serving.
type GenesisValidator struct {
	Address string  `json:"address"`
	Stake   float64 `json:"stake"`
}

// ChainSpec is the chain's launch configuration. Fields left out of a spec
// file keep the defaults from DefaultChainSpec.
type ChainSpec struct {
	Name               string             `json:"name"`
	Mode               string             `json:"mode"`
	Difficulty         int                `json:"difficulty"`
	BlockReward        float64            `json:"block_reward"`
	MinimumStake       float64            `json:"minimum_stake"`
	SlashingPenalty    float64            `json:"slashing_penalty"`
	ReputationPenalty  float64            `json:"reputation_penalty"`
	SelectionThreshold float64            `json:"selection_threshold"`
	MineInterval       Duration           `json:"mine_interval"`
	MaxMineDuration    Duration           `json:"max_mine_duration"`
	GenesisValidators  []GenesisValidator `json:"genesis_validators"`
}

// DefaultChainSpec returns a proof-of-work development chain with the stock
// consensus parameters spelled out.
func DefaultChainSpec() *ChainSpec {
	return &ChainSpec{
		Name:               "ledgerlab-dev",
		Mode:               string(consensus.ModePoW),
		Difficulty:         ledger.DefaultDifficulty,
		BlockReward:        ledger.DefaultBlockReward,
		MinimumStake:       consensus.DefaultMinimumStake,
		SlashingPenalty:    consensus.DefaultSlashingPenalty,
		ReputationPenalty:  consensus.DefaultReputationPenalty,
		SelectionThreshold: consensus.DefaultSelectionThreshold,
		MineInterval:       Duration{10 * time.Second},
		MaxMineDuration:    Duration{ledger.DefaultMaxMineDuration},
	}
}

// LoadChainSpec reads a spec file on top of the defaults, so a file only
// needs the fields it wants to change.
func LoadChainSpec(path string) (*ChainSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain spec: %w", err)
	}

	spec := DefaultChainSpec()
	if err := json.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("failed to parse chain spec: %w", err)
	}

	if _, err := consensus.ParseMode(spec.Mode); err != nil {
		return nil, err
	}
	for i, v := range spec.GenesisValidators {
		if v.Address == "" {
			return nil, fmt.Errorf("genesis validator %d has no address", i)
		}
	}
	return spec, nil
}
