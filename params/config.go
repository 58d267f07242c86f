// Package params holds the simulator's single configuration object.
// Mirrors the teacher's engine.Config (cmd/equa-beacon-engine/engine/types.go):
// one struct, constructed once, passed down — no process-global state.
package params

import (
	"math/big"
	"time"
)

// Config is every tunable of the simulator. A single instance is built in
// cmd/beaconsim and handed to each consensus.Node, which passes the values
// proposer.Schedule needs as arguments; nothing reads ambient globals.
type Config struct {
	// Timing
	SecondsPerSlot time.Duration `json:"secondsPerSlot"`
	SlotsPerEpoch  uint64        `json:"slotsPerEpoch"`

	// Economics
	BlockReward         float64 `json:"blockReward"`
	RedistributionRatio float64 `json:"redistributionRatio"`
	MaxEffectiveBalance float64 `json:"maxEffectiveBalance"`

	// Proposal / mining
	Ceiling              *big.Int `json:"ceiling"` // numerical SHA-256 of the canonicalized header must be strictly less than this (spec.md §4.4, P4)
	MaxBlockTransactions int      `json:"maxBlockTransactions"`
	MiningBatchSize      uint64   `json:"miningBatchSize"`

	// Bootstrap
	GenesisValidatorCount int `json:"genesisValidatorCount"`
}

// REWARDER_SENTINEL and GENESIS_PREV_HASH are represented directly by
// types.ZeroAddress / types.ZeroHash; no duplicate constant is kept here.

// DefaultConfig returns the simulator's default tunables, matching spec.md's
// constants section. Ceiling defaults to 2^256 / difficulty with a modest
// difficulty, the same target-derivation idiom as the teacher's
// NewLightPoW, so block proposal in tests and the demo binary completes in
// a handful of nonce attempts rather than requiring real mining hardware.
func DefaultConfig() *Config {
	maxTarget := new(big.Int).Lsh(big.NewInt(1), 256)
	ceiling := new(big.Int).Div(maxTarget, big.NewInt(4))

	return &Config{
		SecondsPerSlot:        12 * time.Second,
		SlotsPerEpoch:         32,
		BlockReward:           4.0,
		RedistributionRatio:   0.5,
		MaxEffectiveBalance:   32.0,
		Ceiling:               ceiling,
		MaxBlockTransactions:  50,
		MiningBatchSize:       10000,
		GenesisValidatorCount: 5,
	}
}
