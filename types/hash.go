// Package types defines the wire data model shared by every consensus
// component: hashes, addresses, blocks, transactions, accounts, validators
// and attestations. It plays the role the teacher's core/types package
// plays for a full execution client.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashLength is the size in bytes of a Hash.
const HashLength = 32

// Hash is a 32-byte value, rendered as a lowercase hex string of length 64.
type Hash [HashLength]byte

// ZeroHash is the all-zero hash, used as GENESIS_PREV_HASH: the reserved
// constant that identifies the null root as a genesis block's parent.
var ZeroHash = Hash{}

// BytesToHash left-pads b with zeros into a Hash, or keeps only its last
// HashLength bytes if b is longer.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// HexToHash parses a "0x"-prefixed or bare hex string into a Hash.
func HexToHash(s string) Hash {
	return BytesToHash(FromHex(s))
}

// FromHex decodes a "0x"-prefixed or bare hex string, ignoring errors (returns
// whatever prefix decoded successfully), matching the teacher's forgiving
// common.FromHex convention.
func FromHex(s string) []byte {
	if len(s) >= 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, _ := hex.DecodeString(s)
	return b
}

// Bytes returns the raw bytes of the hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns the "0x"-prefixed lowercase hex encoding.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Hex() }

// IsZero reports whether h is the all-zero (null root / genesis-parent)
// sentinel hash.
func (h Hash) IsZero() bool { return h == ZeroHash }

// MarshalJSON implements json.Marshaler.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Hex())
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*h = HexToHash(s)
	return nil
}

// Less gives a deterministic lexicographic order over hashes, used to break
// GHOST-HEAD ties (spec.md §4.2 step 3).
func (h Hash) Less(other Hash) bool {
	for i := range h {
		if h[i] != other[i] {
			return h[i] < other[i]
		}
	}
	return false
}

func (h Hash) GoString() string { return fmt.Sprintf("types.HexToHash(%q)", h.Hex()) }
