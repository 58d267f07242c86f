package beacon

import (
	"errors"

	"github.com/beaconsim/beaconsim/types"
	"github.com/ethereum/go-ethereum/log"
)

var (
	// ErrDuplicateAttestation is returned when the exact (head_hash,
	// validator) pair is already in the pool (spec.md §4.7 step 1).
	ErrDuplicateAttestation = errors.New("beacon: duplicate attestation")
	// ErrUnknownAttestor is returned when the attesting address is not a
	// registered validator.
	ErrUnknownAttestor = errors.New("beacon: unknown attestor")
)

// AddAttestation records att in beacon_pool and, if it is newer than the
// validator's previous vote, updates latest_attestations — the input
// LMD-GHOST reads weights from. Grounded on the teacher's
// AttestationPool.AddAttestation (dedup + validator tracking shape),
// adapted to the spec's (head_hash, validator) pool key and
// timestamp-ordered latest-vote replacement (spec.md §4.2 steps 1-4, §4.7
// steps 1-2) instead of EQUA's per-slot MEV/ordering pool.
func (s *State) AddAttestation(att *types.Attestation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.validators[att.Validator]; !ok {
		return ErrUnknownAttestor
	}

	key := attestationKey{head: att.HeadHash, validator: att.Validator}
	if _, dup := s.pool[key]; dup {
		return ErrDuplicateAttestation
	}
	s.pool[key] = att

	if prev, ok := s.latestAttestations[att.Validator]; !ok || att.Timestamp > prev.Timestamp {
		s.latestAttestations[att.Validator] = att
	}

	log.Debug("attestation recorded",
		"validator", att.Validator.Hex()[:10],
		"slot", att.Slot,
		"head", att.HeadHash.Hex()[:10])

	return nil
}

// IsProcessed reports whether (blockHash, validator) has already been
// included in some applied block (spec.md §4.4 step 6).
func (s *State) IsProcessed(blockHash types.Hash, validator types.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processed[attestationKey{head: blockHash, validator: validator}]
}

// MarkProcessed records that att has been included in blockHash and removes
// it from beacon_pool (spec.md §4.4 step 3, §4.6 "pruned on inclusion").
func (s *State) MarkProcessed(blockHash types.Hash, att *types.Attestation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[attestationKey{head: blockHash, validator: att.Validator}] = true
	delete(s.pool, attestationKey{head: att.HeadHash, validator: att.Validator})
}

// ResetProcessed discards processed_attestations, used at the start of a
// reorganization rebuild (spec.md §4.7 step 6).
func (s *State) ResetProcessed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed = make(map[attestationKey]bool)
}

// PendingAttestations returns every attestation currently in beacon_pool,
// for a proposer assembling a block body.
func (s *State) PendingAttestations() []*types.Attestation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Attestation, 0, len(s.pool))
	for _, a := range s.pool {
		out = append(out, a)
	}
	return out
}
