package types

import (
	"encoding/hex"
	"encoding/json"
)

// AddressLength is the size in bytes of an Address: the spec derives
// addresses as SHA-256 (32 bytes) of a compressed public key, unlike
// Ethereum's own 20-byte Keccak-derived address, so Address cannot reuse
// go-ethereum's common.Address.
const AddressLength = 32

// Address is a 32-byte value derived as SHA256(compressed ECDSA public key).
type Address [AddressLength]byte

// ZeroAddress is the REWARDER_SENTINEL: the reserved "from" address of a
// coinbase transaction, since no real account produces it.
var ZeroAddress = Address{}

// BytesToAddress left-pads b with zeros into an Address, or keeps only its
// last AddressLength bytes if b is longer.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// HexToAddress parses a "0x"-prefixed or bare hex string into an Address.
func HexToAddress(s string) Address {
	return BytesToAddress(FromHex(s))
}

// Bytes returns the raw bytes of the address.
func (a Address) Bytes() []byte { return a[:] }

// Hex returns the "0x"-prefixed lowercase hex encoding.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

// String implements fmt.Stringer.
func (a Address) String() string { return a.Hex() }

// IsZero reports whether a is the reward-sentinel address.
func (a Address) IsZero() bool { return a == ZeroAddress }

// MarshalJSON implements json.Marshaler.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Hex())
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*a = HexToAddress(s)
	return nil
}
