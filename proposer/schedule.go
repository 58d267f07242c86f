// Package proposer computes the per-epoch RANDAO proposer schedule:
// rejection sampling weighted by effective balance, derived from the
// epoch's RANDAO mix. Mirrors the teacher's ProposerSelector
// (cmd/equa-beacon-engine/engine/proposer.go) in overall shape — cache,
// deterministic active-validator ordering, epoch scheduling — but replaces
// its PoW-quality/VRF hybrid weighting with the spec's pure RANDAO
// rejection-sampling rule.
package proposer

import (
	"encoding/binary"

	"github.com/beaconsim/beaconsim/beacon"
	"github.com/beaconsim/beaconsim/beaconcrypto"
	"github.com/beaconsim/beaconsim/types"
)

// Schedule computes the proposer for every slot of epoch, given the active
// validator set (in the deterministic order beacon.State.ActiveValidators
// returns) and the epoch's RANDAO mix (spec.md §4.3).
func Schedule(epoch, slotsPerEpoch uint64, active []*types.Validator, maxEffectiveBalance float64, mix [32]byte) *beacon.EpochSchedule {
	sched := &beacon.EpochSchedule{
		Epoch:     epoch,
		Proposers: make(map[uint64]types.Address, slotsPerEpoch),
		Seed:      types.Hash(mix),
	}
	if len(active) == 0 {
		return sched
	}

	epochSeed := mix[:]
	startSlot := epoch * slotsPerEpoch
	for s := startSlot; s < startSlot+slotsPerEpoch; s++ {
		sched.Proposers[s] = selectSlotProposer(epochSeed, s, active, maxEffectiveBalance)
	}
	return sched
}

// selectSlotProposer implements spec.md §4.3 steps 1-3: derive a per-slot
// seed, then rejection-sample a candidate index weighted by effective
// balance until one is accepted.
func selectSlotProposer(epochSeed []byte, slot uint64, active []*types.Validator, maxEffectiveBalance float64) types.Address {
	slotSeed := beaconcrypto.Sha256(appendU64(epochSeed, slot))

	for k := uint64(0); ; k++ {
		h := beaconcrypto.Sha256(appendU64(slotSeed.Bytes(), k))

		idx := binary.LittleEndian.Uint64(h[0:8]) % uint64(len(active))
		candidate := active[idx]

		// h[8] * MAX_EFFECTIVE_BALANCE <= effective_balance(candidate) * 255
		lhs := float64(h[8]) * maxEffectiveBalance
		rhs := candidate.EffectiveBalance * 255
		if lhs <= rhs {
			return candidate.Address
		}
	}
}

func appendU64(prefix []byte, v uint64) []byte {
	buf := make([]byte, len(prefix)+8)
	copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[len(prefix):], v)
	return buf
}

// ProposerForSlot looks up slot's proposer in sched.
func ProposerForSlot(sched *beacon.EpochSchedule, slot uint64) (types.Address, bool) {
	addr, ok := sched.Proposers[slot]
	return addr, ok
}

// UpdateRandaoMix folds a newly revealed RANDAO value into epoch's mix via
// XOR accumulation (spec.md §4.3).
func UpdateRandaoMix(state *beacon.State, epoch uint64, reveal []byte) {
	mix := state.RandaoMix(epoch)
	state.SetRandaoMix(epoch, beaconcrypto.AggregateRandaoMix(mix, reveal))
}
