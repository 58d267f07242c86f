package proposer

import (
	"testing"

	"github.com/beaconsim/beaconsim/beaconcrypto"
	"github.com/beaconsim/beaconsim/types"
	"github.com/stretchr/testify/require"
)

func mkValidator(b byte, balance float64) *types.Validator {
	return &types.Validator{Address: types.BytesToAddress([]byte{b}), EffectiveBalance: balance, Active: true}
}

// TestScheduleDeterministic covers spec.md P5: identical
// (validators, randao_mix) produces an identical schedule.
func TestScheduleDeterministic(t *testing.T) {
	active := []*types.Validator{mkValidator(1, 32), mkValidator(2, 32), mkValidator(3, 32)}
	mix := beaconcrypto.Sha256([]byte("seed"))

	s1 := Schedule(7, 32, active, 32, [32]byte(mix))
	s2 := Schedule(7, 32, active, 32, [32]byte(mix))

	require.Equal(t, s1.Proposers, s2.Proposers)
}

// TestRandaoMixSymmetry covers spec.md P6: XOR accumulation is
// order-independent.
func TestRandaoMixSymmetry(t *testing.T) {
	r1 := []byte("reveal-one")
	r2 := []byte("reveal-two")

	var zero [32]byte
	forward := beaconcrypto.AggregateRandaoMix(beaconcrypto.AggregateRandaoMix(zero, r1), r2)
	backward := beaconcrypto.AggregateRandaoMix(beaconcrypto.AggregateRandaoMix(zero, r2), r1)

	require.Equal(t, forward, backward)
}

func TestScheduleCoversEveryEpochSlot(t *testing.T) {
	active := []*types.Validator{mkValidator(1, 32)}
	mix := beaconcrypto.Sha256([]byte("seed"))
	sched := Schedule(2, 8, active, 32, [32]byte(mix))

	require.Len(t, sched.Proposers, 8)
	for s := uint64(16); s < 24; s++ {
		proposer, ok := ProposerForSlot(sched, s)
		require.True(t, ok)
		require.Equal(t, active[0].Address, proposer)
	}
}
