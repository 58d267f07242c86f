package types

import (
	"encoding/binary"
)

// BlockHeader carries everything needed to verify a block without its body:
// identity, lineage, proposer, the RANDAO reveal, and the nonce solving the
// proposal ceiling check (spec.md §3, §4.4).
type BlockHeader struct {
	Hash             Hash    `json:"hash"`
	ParentHash       Hash    `json:"parentHash"`
	Height           uint64  `json:"height"`
	Slot             uint64  `json:"slot"`
	Proposer         Address `json:"proposer"`
	Nonce            uint64  `json:"nonce"`
	Timestamp        int64   `json:"timestamp"`
	StateRoot        Hash    `json:"stateRoot"`
	TransactionsHash Hash    `json:"transactionsHash"`
	RandaoReveal     []byte  `json:"randaoReveal,omitempty"`
}

// Block is a header plus its transaction body and the attestations the
// proposer chose to include (spec.md §4.6 step 2).
type Block struct {
	Header       BlockHeader    `json:"header"`
	Transactions []*Transaction `json:"transactions"`
	Attestations []*Attestation `json:"attestations,omitempty"`
}

// SigningMessage is the canonical header pre-image hashed to produce the
// block's identity and checked against the ceiling (spec.md §4.4 block
// validity steps 3-4). Hand-concatenated big-endian fields, the same idiom
// as Transaction.SigningMessage and the teacher's pow.go GenerateChallenge.
func (h *BlockHeader) SigningMessage() []byte {
	buf := make([]byte, 0, HashLength*3+8*4+AddressLength+len(h.RandaoReveal))
	buf = append(buf, h.ParentHash.Bytes()...)
	buf = append(buf, h.StateRoot.Bytes()...)
	buf = append(buf, h.TransactionsHash.Bytes()...)
	buf = append(buf, h.Proposer.Bytes()...)

	heightBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(heightBytes, h.Height)
	buf = append(buf, heightBytes...)

	slotBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(slotBytes, h.Slot)
	buf = append(buf, slotBytes...)

	tsBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(tsBytes, uint64(h.Timestamp))
	buf = append(buf, tsBytes...)

	nonceBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(nonceBytes, h.Nonce)
	buf = append(buf, nonceBytes...)

	buf = append(buf, h.RandaoReveal...)

	return buf
}

// IsGenesisParent reports whether h is a genesis block (its parent is the
// null-root sentinel, GENESIS_PREV_HASH).
func (h *BlockHeader) IsGenesisParent() bool {
	return h.ParentHash.IsZero()
}

// SerializeTransactions builds the canonical pre-image of
// SHA256(serialize(transactions)) (spec.md §4.4 block validity step 3): the
// concatenation of every transaction's TxID, in block order. The hash itself
// is computed over these bytes by beaconcrypto.HashTransactions.
func SerializeTransactions(txs []*Transaction) []byte {
	var buf []byte
	for _, tx := range txs {
		buf = append(buf, tx.TxID.Bytes()...)
	}
	return buf
}
