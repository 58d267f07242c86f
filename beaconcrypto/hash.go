// Package beaconcrypto wraps the hashing and signature primitives named by
// the simulator's crypto contract: SHA-256 content hashing, secp256k1 ECDSA
// for transaction signatures, and BLS12-381 for RANDAO reveals and
// attestation signatures. It
// plays the role the teacher's crypto package plays for a full client.
package beaconcrypto

import (
	"crypto/sha256"

	"github.com/beaconsim/beaconsim/types"
)

// Sha256 returns the SHA-256 digest of data as a Hash. The spec's hash
// contract is literally SHA-256, so this wraps the standard library directly
// rather than reaching for a third-party digest implementation.
func Sha256(data []byte) types.Hash {
	return types.Hash(sha256.Sum256(data))
}

// HashBlockHeader returns the canonical block identity hash.
func HashBlockHeader(h *types.BlockHeader) types.Hash {
	return Sha256(h.SigningMessage())
}

// HashTransaction returns the canonical transaction id.
func HashTransaction(tx *types.Transaction) types.Hash {
	return Sha256(tx.SigningMessage())
}

// HashTransactions returns SHA256(serialize(transactions)), checked against
// a block header's TransactionsHash (spec.md §4.4 block validity step 3).
func HashTransactions(txs []*types.Transaction) types.Hash {
	return Sha256(types.SerializeTransactions(txs))
}
