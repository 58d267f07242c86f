package types

import (
	"encoding/binary"
	"math"
)

// Transaction is a single account-model transfer. Coinbase transactions use
// From == ZeroAddress (the REWARDER_SENTINEL) and an empty PublicKey and
// Signature.
type Transaction struct {
	TxID      Hash    `json:"txid"`
	From      Address `json:"from"`
	To        Address `json:"to"`
	Value     float64 `json:"value"`
	Nonce     uint64  `json:"nonce"`
	Timestamp int64   `json:"timestamp"` // milliseconds since epoch
	PublicKey []byte  `json:"publicKey,omitempty"`
	Signature []byte  `json:"signature,omitempty"`
	// Data is an opaque payload used only by external demo collaborators
	// (e.g. a "paint contract" transaction kind); the core transition
	// function never interprets it.
	Data []byte `json:"data,omitempty"`
}

// IsCoinbase reports whether tx is the block's reward transaction.
func (tx *Transaction) IsCoinbase() bool {
	return tx.From.IsZero()
}

// SigningMessage returns the canonical bytes recomputed as
// recompute_txid(from, to, value, nonce, timestamp) == txid (spec.md §4.4.3),
// and also used as the ECDSA signing payload's pre-image together with TxID.
// Hand-concatenated big-endian encoding, matching the teacher's
// attestationSigningMessage / GenerateChallenge idiom rather than a generic
// codec.
func (tx *Transaction) SigningMessage() []byte {
	buf := make([]byte, 0, AddressLength*2+8+8+8)
	buf = append(buf, tx.From.Bytes()...)
	buf = append(buf, tx.To.Bytes()...)

	valueBits := make([]byte, 8)
	binary.BigEndian.PutUint64(valueBits, math.Float64bits(tx.Value))
	buf = append(buf, valueBits...)

	nonceBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(nonceBytes, tx.Nonce)
	buf = append(buf, nonceBytes...)

	tsBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(tsBytes, uint64(tx.Timestamp))
	buf = append(buf, tsBytes...)

	return buf
}

// Account is a ledger entry. Only Balance and Nonce are used by the core
// transition function; Code/Storage/CodeHash are reserved for a future
// contract-execution layer and are never populated here.
type Account struct {
	Address  Address `json:"address"`
	Balance  float64 `json:"balance"`
	Nonce    uint64  `json:"nonce"`
	Code     []byte  `json:"code,omitempty"`
	Storage  []byte  `json:"storage,omitempty"`
	CodeHash Hash    `json:"codeHash,omitempty"`
}

// Receipt records the outcome of applying one transaction.
type Receipt struct {
	TxID   Hash  `json:"txid"`
	Status uint8 `json:"status"` // 1 = applied, 0 = skipped
}
