// Package beacon holds BeaconState: the validator registry, RANDAO mixes,
// per-epoch proposer schedules, and the consolidated attestation pool that
// LMD-GHOST reads from. Mirrors the shape of the teacher's engine types
// (Validator, Epoch, Slot) adapted to the spec's RANDAO/LMD-GHOST semantics
// instead of EQUA's PoW-VRF/MEV-reputation semantics.
package beacon

import (
	"sync"

	"github.com/beaconsim/beaconsim/types"
)

// EpochSchedule is the proposer assignment for every slot in one epoch,
// computed once at epoch boundary (spec.md §4.3).
type EpochSchedule struct {
	Epoch     uint64
	Proposers map[uint64]types.Address // slot -> proposer
	Seed      types.Hash                // RANDAO mix the schedule was derived from
}

// State is the beacon chain's off-block-tree state: who is a validator, what
// the current RANDAO mix is, what the current and past epoch schedules were,
// and every attestation seen, consolidated per spec.md §9 rather than split
// across a stateful forkchoice struct.
type State struct {
	mu sync.RWMutex

	validators map[types.Address]*types.Validator
	order      []types.Address // deterministic validator iteration order

	randaoMixes    map[uint64][32]byte // epoch -> mix
	epochSchedules map[uint64]*EpochSchedule

	// latestAttestations holds only the most recent attestation per
	// validator (by Timestamp), which is exactly the input LMD-GHOST needs
	// (spec.md §4.2).
	latestAttestations map[types.Address]*types.Attestation

	// pool is beacon_pool: attestations seen but not yet included in a
	// block, keyed by (head_hash, validator) for spec.md §4.7 step 1's
	// duplicate check. Entries are removed on inclusion (MarkProcessed,
	// called when a block is applied); a reorganization does not rebuild
	// the pool.
	pool map[attestationKey]*types.Attestation

	// processed is processed_attestations: (block_hash, validator) pairs
	// already included in some applied block (spec.md §4.4 step 6,
	// §4.6 step 3).
	processed map[attestationKey]bool
}

type attestationKey struct {
	head      types.Hash
	validator types.Address
}

// NewState returns an empty beacon state.
func NewState() *State {
	return &State{
		validators:         make(map[types.Address]*types.Validator),
		randaoMixes:        make(map[uint64][32]byte),
		epochSchedules:     make(map[uint64]*EpochSchedule),
		latestAttestations: make(map[types.Address]*types.Attestation),
		pool:               make(map[attestationKey]*types.Attestation),
		processed:          make(map[attestationKey]bool),
	}
}

// AddValidator registers v, preserving first-seen insertion order for
// ActiveValidators — every node registers the same validators in the same
// order during network bootstrap, so this is already deterministic
// network-wide without needing a sort, matching the teacher's
// ProposerSelector.getActiveValidators's deterministic-ordering guarantee.
func (s *State) AddValidator(v *types.Validator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.validators[v.Address]; !exists {
		s.order = append(s.order, v.Address)
	}
	s.validators[v.Address] = v
}

// Validator returns the validator registered at addr, if any.
func (s *State) Validator(addr types.Address) (*types.Validator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.validators[addr]
	return v, ok
}

// ActiveValidators returns every active validator in deterministic order.
func (s *State) ActiveValidators() []*types.Validator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Validator, 0, len(s.order))
	for _, addr := range s.order {
		if v := s.validators[addr]; v.Active {
			out = append(out, v)
		}
	}
	return out
}

// RandaoMix returns the mix recorded for epoch, or the zero mix if none yet.
func (s *State) RandaoMix(epoch uint64) [32]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.randaoMixes[epoch]
}

// SetRandaoMix records the mix for epoch (called after folding in a reveal).
func (s *State) SetRandaoMix(epoch uint64, mix [32]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.randaoMixes[epoch] = mix
}

// ResetRandaoMixes discards every recorded RANDAO mix, used at the start of
// a reorganization rebuild (spec.md §4.7 step 6) alongside ResetProcessed:
// the replay recomputes every mix from the new canonical chain's own
// reveals, so a stale entry folded in from the discarded branch must not
// survive to seed a future epoch's proposer schedule.
func (s *State) ResetRandaoMixes() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.randaoMixes = make(map[uint64][32]byte)
}

// SetEpochSchedule stores the computed proposer schedule for an epoch.
func (s *State) SetEpochSchedule(sched *EpochSchedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epochSchedules[sched.Epoch] = sched
}

// EpochScheduleFor returns the stored schedule for epoch, if computed.
func (s *State) EpochScheduleFor(epoch uint64) (*EpochSchedule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sched, ok := s.epochSchedules[epoch]
	return sched, ok
}

// LatestAttestations returns a snapshot of the current validator -> latest
// attestation map, the exact input LMD-GHOST needs to accumulate
// attested_eth weights.
func (s *State) LatestAttestations() map[types.Address]*types.Attestation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[types.Address]*types.Attestation, len(s.latestAttestations))
	for k, v := range s.latestAttestations {
		out[k] = v
	}
	return out
}
