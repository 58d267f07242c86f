package beaconcrypto

import (
	"fmt"

	"github.com/beaconsim/beaconsim/types"
	blst "github.com/supranational/blst/bindings/go"
)

// randaoDST is the domain-separation tag for RANDAO reveal signatures,
// keeping them non-interchangeable with any other BLS-signed message in the
// system (standard BLS hygiene, mirrored from the teacher's per-purpose
// signing-message prefixes in attestationSigningMessage).
const randaoDST = "BEACONSIM_RANDAO_REVEAL_V1"

// attestationDST separates attestation-vote signatures from RANDAO reveals
// under the same validator key.
const attestationDST = "BEACONSIM_ATTESTATION_V1"

// BLSKeyPair is a validator's RANDAO reveal signing key (min-pk scheme:
// public key in G1, signature in G2).
type BLSKeyPair struct {
	Secret *blst.SecretKey
	Public *blst.P1Affine
}

// DeriveBLSKeyPair deterministically derives a BLS12-381 key pair from ikm,
// mirroring DeriveKeyPair's reproducibility requirement for the secp256k1 key.
func DeriveBLSKeyPair(ikm []byte) *BLSKeyPair {
	if len(ikm) < 32 {
		padded := make([]byte, 32)
		copy(padded, ikm)
		ikm = padded
	}
	sk := blst.KeyGen(ikm)
	pk := new(blst.P1Affine).From(sk)
	return &BLSKeyPair{Secret: sk, Public: pk}
}

// randaoMessage builds the signing message for a RANDAO reveal at epoch.
func randaoMessage(epoch uint64) []byte {
	return []byte(fmt.Sprintf("RANDAO_REVEAL_%d", epoch))
}

// SignRandaoReveal signs the per-epoch RANDAO reveal message.
func SignRandaoReveal(kp *BLSKeyPair, epoch uint64) []byte {
	sig := new(blst.P2Affine).Sign(kp.Secret, randaoMessage(epoch), []byte(randaoDST))
	return sig.Compress()
}

// VerifyRandaoReveal checks a RANDAO reveal signature against a compressed
// G1 public key.
func VerifyRandaoReveal(pubKeyBytes []byte, epoch uint64, sigBytes []byte) bool {
	pub := new(blst.P1Affine).Uncompress(pubKeyBytes)
	if pub == nil {
		return false
	}
	sig := new(blst.P2Affine).Uncompress(sigBytes)
	if sig == nil {
		return false
	}
	return sig.Verify(true, pub, true, randaoMessage(epoch), []byte(randaoDST))
}

// SignAttestation signs an attestation's canonical pre-image with the
// validator's BLS key (spec.md §6 bls_sign contract).
func SignAttestation(kp *BLSKeyPair, att *types.Attestation) []byte {
	sig := new(blst.P2Affine).Sign(kp.Secret, att.SigningMessage(), []byte(attestationDST))
	return sig.Compress()
}

// VerifyAttestation checks an attestation's BLS signature against a
// compressed G1 public key.
func VerifyAttestation(pubKeyBytes []byte, att *types.Attestation) bool {
	pub := new(blst.P1Affine).Uncompress(pubKeyBytes)
	if pub == nil {
		return false
	}
	sig := new(blst.P2Affine).Uncompress(att.Signature)
	if sig == nil {
		return false
	}
	return sig.Verify(true, pub, true, att.SigningMessage(), []byte(attestationDST))
}

// AggregateAttestationSignatures combines multiple validators' attestation
// signatures into one (spec.md §6 bls_aggregate contract), used only for
// inspection/compact gossip — verification here always checks individual
// signatures, matching spec.md §7's "empty attestation aggregation fails
// fast" policy.
func AggregateAttestationSignatures(sigs [][]byte) ([]byte, error) {
	if len(sigs) == 0 {
		return nil, fmt.Errorf("beaconcrypto: cannot aggregate zero signatures")
	}
	parsed := make([]*blst.P2Affine, 0, len(sigs))
	for _, s := range sigs {
		sig := new(blst.P2Affine).Uncompress(s)
		if sig == nil {
			return nil, fmt.Errorf("beaconcrypto: invalid signature in aggregate set")
		}
		parsed = append(parsed, sig)
	}
	agg := new(blst.P2Aggregate)
	if !agg.Aggregate(parsed, true) {
		return nil, fmt.Errorf("beaconcrypto: aggregation failed")
	}
	return agg.ToAffine().Compress(), nil
}

// AggregateRandaoMix folds a newly revealed RANDAO value into the running
// mix via XOR accumulation (spec.md §4.3 epoch-seed update).
func AggregateRandaoMix(mix [32]byte, reveal []byte) [32]byte {
	revealHash := Sha256(reveal)
	var out [32]byte
	for i := range out {
		out[i] = mix[i] ^ revealHash[i]
	}
	return out
}
