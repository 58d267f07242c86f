package beaconcrypto

import (
	"fmt"

	"github.com/beaconsim/beaconsim/types"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// KeyPair bundles a validator's secp256k1 signing key with its derived
// address (spec.md §6: Address = SHA256(compressed public key)).
type KeyPair struct {
	Private *secp256k1.PrivateKey
	Public  *secp256k1.PublicKey
	Address types.Address
}

// DeriveKeyPair deterministically derives a secp256k1 key pair from seed,
// matching spec.md §6's requirement that a node's identity be reproducible
// from a known seed (e.g. SHA256(nodeID || "PRIVATE_KEY_SALT")).
func DeriveKeyPair(seed []byte) *KeyPair {
	digest := Sha256(seed)
	priv := secp256k1.PrivKeyFromBytes(digest[:])
	pub := priv.PubKey()
	addr := types.BytesToAddress(Sha256(pub.SerializeCompressed()).Bytes())
	return &KeyPair{Private: priv, Public: pub, Address: addr}
}

// Sign produces a DER-encoded ECDSA signature over the SHA-256 digest of msg.
func Sign(priv *secp256k1.PrivateKey, msg []byte) []byte {
	digest := Sha256(msg)
	sig := ecdsa.Sign(priv, digest[:])
	return sig.Serialize()
}

// VerifySignature checks an ECDSA signature over msg against a compressed
// public key.
func VerifySignature(pubKeyBytes, msg, sig []byte) bool {
	pub, err := secp256k1.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false
	}
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	digest := Sha256(msg)
	return parsed.Verify(digest[:], pub)
}

// AddressFromPublicKey recomputes the SHA-256-derived address for a
// compressed public key, used to validate that a transaction's From field
// matches its attached PublicKey (spec.md §4.4.3).
func AddressFromPublicKey(pubKeyBytes []byte) (types.Address, error) {
	if _, err := secp256k1.ParsePubKey(pubKeyBytes); err != nil {
		return types.Address{}, fmt.Errorf("parse public key: %w", err)
	}
	return types.BytesToAddress(Sha256(pubKeyBytes).Bytes()), nil
}
