package types

import "encoding/binary"

// Validator is a registered beacon-chain participant: its identity, stake
// weight, its secp256k1 public key, and the BLS public key used to verify
// its RANDAO reveals (blocks themselves carry no signature). Mirrors the shape of the teacher's stake.Validator, minus the
// slashing/key-share fields that belong to a threshold-crypto layer this
// simulator does not implement.
type Validator struct {
	Address          Address `json:"address"`
	PublicKey        []byte  `json:"publicKey"`       // secp256k1, compressed
	RandaoPublicKey  []byte  `json:"randaoPublicKey"` // BLS12-381
	EffectiveBalance float64 `json:"effectiveBalance"`
	Active           bool    `json:"active"`
}

// Attestation is a validator's vote for what it believes is the canonical
// head at a given slot, carrying enough weight information for LMD-GHOST
// to fold into attested_eth (spec.md §4.2, §4.7).
type Attestation struct {
	Validator Address `json:"validator"`
	Slot      uint64  `json:"slot"`
	HeadHash  Hash    `json:"headHash"`
	Timestamp int64   `json:"timestamp"` // milliseconds since epoch; only a strictly newer one replaces the validator's latest attestation (spec.md §4.2 step 2)
	Signature []byte  `json:"signature"` // BLS12-381
}

// SigningMessage is the canonical pre-image signed for an attestation,
// hand-concatenated the same way as Transaction and BlockHeader, grounded on
// the teacher's attestationSigningMessage.
func (a *Attestation) SigningMessage() []byte {
	buf := make([]byte, 0, AddressLength+HashLength+8)
	buf = append(buf, a.Validator.Bytes()...)
	buf = append(buf, a.HeadHash.Bytes()...)

	slotBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(slotBytes, a.Slot)
	buf = append(buf, slotBytes...)
	return buf
}
