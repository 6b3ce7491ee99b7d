package consensus

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddValidator(t *testing.T) {
	engine := newTestEngine(t, Config{Mode: ModePoS})

	t.Run("rejects bad registrations", func(t *testing.T) {
		assert.ErrorIs(t, engine.AddValidator("", 64), ErrEmptyAddress)
		assert.ErrorIs(t, engine.AddValidator("val-1", 31.99), ErrInsufficientStake)
		assert.ErrorIs(t, engine.AddValidator("val-1", math.NaN()), ErrInsufficientStake)
		assert.ErrorIs(t, engine.AddValidator("val-1", math.Inf(1)), ErrInsufficientStake)
		assert.Empty(t, engine.Validators())
	})

	t.Run("registers at exactly the minimum", func(t *testing.T) {
		require.NoError(t, engine.AddValidator("val-1", DefaultMinimumStake))

		v, err := engine.Validator("val-1")
		require.NoError(t, err)
		assert.Equal(t, DefaultMinimumStake, v.Stake)
		assert.Equal(t, MaxReputation, v.Reputation)
		assert.True(t, v.IsActive)
		assert.Zero(t, v.LastValidation)
	})

	t.Run("re-registering replaces the record", func(t *testing.T) {
		require.NoError(t, engine.SlashValidator("val-1", "downtime"))
		require.NoError(t, engine.AddValidator("val-1", 64))

		v, err := engine.Validator("val-1")
		require.NoError(t, err)
		assert.Equal(t, 64.0, v.Stake)
		assert.Equal(t, MaxReputation, v.Reputation, "replacement resets the reputation")
	})

	t.Run("listing is sorted by address", func(t *testing.T) {
		require.NoError(t, engine.AddValidator("val-c", 48))
		require.NoError(t, engine.AddValidator("val-a", 32))

		validators := engine.Validators()
		require.Len(t, validators, 3)
		assert.Equal(t, "val-1", validators[0].Address)
		assert.Equal(t, "val-a", validators[1].Address)
		assert.Equal(t, "val-c", validators[2].Address)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		v, err := engine.Validator("val-1")
		require.NoError(t, err)
		v.Stake = 0

		fresh, err := engine.Validator("val-1")
		require.NoError(t, err)
		assert.Equal(t, 64.0, fresh.Stake)
	})
}

func TestSlashValidator(t *testing.T) {
	t.Run("unknown address", func(t *testing.T) {
		engine := newTestEngine(t, Config{Mode: ModePoS})
		assert.ErrorIs(t, engine.SlashValidator("nobody", "downtime"), ErrUnknownValidator)
	})

	t.Run("repeated slashes burn stake until deactivation", func(t *testing.T) {
		engine := newTestEngine(t, Config{Mode: ModePoS})
		require.NoError(t, engine.AddValidator("val-1", 40))

		steps := []struct {
			stake      float64
			reputation float64
			active     bool
		}{
			{stake: 36, reputation: 90, active: true},
			{stake: 32.4, reputation: 80, active: true},
			{stake: 29.16, reputation: 70, active: false},
		}
		for _, step := range steps {
			require.NoError(t, engine.SlashValidator("val-1", "missed attestation"))

			v, err := engine.Validator("val-1")
			require.NoError(t, err)
			assert.InDelta(t, step.stake, v.Stake, 1e-9)
			assert.InDelta(t, step.reputation, v.Reputation, 1e-9)
			assert.Equal(t, step.active, v.IsActive)
		}
	})

	t.Run("deactivated validators stay registered", func(t *testing.T) {
		engine := newTestEngine(t, Config{Mode: ModePoS})
		require.NoError(t, engine.AddValidator("val-1", 33))
		require.NoError(t, engine.SlashValidator("val-1", "equivocation"))

		v, err := engine.Validator("val-1")
		require.NoError(t, err)
		assert.False(t, v.IsActive)
		assert.Len(t, engine.Validators(), 1)

		// Slashing keeps working on an inactive record
		require.NoError(t, engine.SlashValidator("val-1", "equivocation"))
	})

	t.Run("reputation floors at zero", func(t *testing.T) {
		engine := newTestEngine(t, Config{Mode: ModePoS})
		require.NoError(t, engine.AddValidator("whale", 1_000_000))

		for i := 0; i < 11; i++ {
			require.NoError(t, engine.SlashValidator("whale", "downtime"))
		}

		v, err := engine.Validator("whale")
		require.NoError(t, err)
		assert.Zero(t, v.Reputation)
		assert.True(t, v.IsActive, "a large stake survives many slashes")
	})

	t.Run("custom penalties", func(t *testing.T) {
		engine := newTestEngine(t, Config{Mode: ModePoS, SlashingPenalty: 0.5, ReputationPenalty: 25})
		require.NoError(t, engine.AddValidator("val-1", 100))
		require.NoError(t, engine.SlashValidator("val-1", "double signing"))

		v, err := engine.Validator("val-1")
		require.NoError(t, err)
		assert.InDelta(t, 50.0, v.Stake, 1e-9)
		assert.InDelta(t, 75.0, v.Reputation, 1e-9)
		assert.True(t, v.IsActive)
	})
}

func TestStats(t *testing.T) {
	t.Run("empty registry", func(t *testing.T) {
		engine := newTestEngine(t, Config{Mode: ModeHybrid})

		s := engine.Stats()
		assert.Equal(t, ModeHybrid, s.Mode)
		assert.Zero(t, s.ValidatorCount)
		assert.Zero(t, s.ActiveCount)
		assert.Zero(t, s.TotalStake)
		assert.Zero(t, s.AverageReputation)
		assert.Equal(t, DefaultMinimumStake, s.MinimumStake)
	})

	t.Run("active and inactive validators", func(t *testing.T) {
		engine := newTestEngine(t, Config{Mode: ModePoS})
		require.NoError(t, engine.AddValidator("val-a", 64))
		require.NoError(t, engine.AddValidator("val-b", 32))
		require.NoError(t, engine.AddValidator("val-c", 33))
		require.NoError(t, engine.SlashValidator("val-c", "downtime"))

		s := engine.Stats()
		assert.Equal(t, 3, s.ValidatorCount)
		assert.Equal(t, 2, s.ActiveCount)
		assert.InDelta(t, 64+32+29.7, s.TotalStake, 1e-9)
		assert.InDelta(t, 96, s.TotalActiveStake, 1e-9)
		assert.InDelta(t, 100, s.AverageReputation, 1e-9, "only active validators count")
	})
}
