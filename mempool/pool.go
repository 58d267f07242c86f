// Package mempool holds pending transactions and validates them against a
// world-state snapshot before a proposer includes them in a block
// (spec.md §4.4 "Transaction validity"). Grounded on the teacher's
// AttestationPool shape (map + mutex + Add/Get) generalized from
// attestations to transactions.
package mempool

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"

	"github.com/beaconsim/beaconsim/beaconcrypto"
	"github.com/beaconsim/beaconsim/state"
	"github.com/beaconsim/beaconsim/types"
)

var (
	ErrMissingPublicKey  = errors.New("mempool: missing public key")
	ErrAddressMismatch   = errors.New("mempool: SHA256(public key) does not match from address")
	ErrMissingSignature  = errors.New("mempool: missing signature")
	ErrInvalidSignature  = errors.New("mempool: signature does not verify")
	ErrTxIDMismatch      = errors.New("mempool: recomputed txid does not match")
	ErrAlreadyPending    = errors.New("mempool: transaction already pending")
)

// Pool is the set of pending, structurally-valid transactions awaiting
// inclusion. It does not re-check nonce/balance — that is a point-in-time
// snapshot check redone by the proposer against the canonical world state
// (spec.md §4.4 step 4), since balances can change between submission and
// inclusion.
type Pool struct {
	mu  sync.RWMutex
	txs map[types.Hash]*types.Transaction
}

// NewPool returns an empty mempool.
func NewPool() *Pool {
	return &Pool{txs: make(map[types.Hash]*types.Transaction)}
}

// Validate checks a non-coinbase transaction's structural validity
// (spec.md §4.4 "Transaction validity" steps 1-3): public key present and
// matches from, signature present and verifies, and the txid recomputes.
func Validate(tx *types.Transaction) error {
	if len(tx.PublicKey) == 0 {
		return ErrMissingPublicKey
	}
	addr, err := beaconcrypto.AddressFromPublicKey(tx.PublicKey)
	if err != nil || addr != tx.From {
		return ErrAddressMismatch
	}
	if len(tx.Signature) == 0 {
		return ErrMissingSignature
	}
	signingPayload, err := json.Marshal(struct {
		TxID types.Hash `json:"txid"`
	}{TxID: tx.TxID})
	if err != nil {
		return err
	}
	if !beaconcrypto.VerifySignature(tx.PublicKey, signingPayload, tx.Signature) {
		return ErrInvalidSignature
	}
	recomputed := beaconcrypto.HashTransaction(tx)
	if !bytes.Equal(recomputed.Bytes(), tx.TxID.Bytes()) {
		return ErrTxIDMismatch
	}
	return nil
}

// Add validates and stores tx. Coinbase transactions never pass through the
// mempool (they are synthesized by the proposer), so Add rejects them.
func (p *Pool) Add(tx *types.Transaction) error {
	if tx.IsCoinbase() {
		return errors.New("mempool: coinbase transactions are not submitted")
	}
	if err := Validate(tx); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.txs[tx.TxID]; exists {
		return ErrAlreadyPending
	}
	p.txs[tx.TxID] = tx
	return nil
}

// Remove drops tx from the pool (called once it has been included in a
// block).
func (p *Pool) Remove(txid types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.txs, txid)
}

// SelectForBlock returns up to max pending transactions that pass the
// balance/nonce snapshot check against world, in an address-then-nonce
// deterministic order so every node assembling from the same pool and
// world state makes the same selection.
func (p *Pool) SelectForBlock(world *state.World, max int) []*types.Transaction {
	p.mu.RLock()
	candidates := make([]*types.Transaction, 0, len(p.txs))
	for _, tx := range p.txs {
		candidates = append(candidates, tx)
	}
	p.mu.RUnlock()

	sortTransactions(candidates)

	out := make([]*types.Transaction, 0, max)
	seen := make(map[types.Address]uint64)
	for _, tx := range candidates {
		if len(out) >= max {
			break
		}
		expectedNonce, ok := seen[tx.From]
		if !ok {
			expectedNonce = world.Nonce(tx.From)
		}
		if tx.Nonce != expectedNonce || world.Balance(tx.From) < tx.Value {
			continue
		}
		out = append(out, tx)
		seen[tx.From] = tx.Nonce + 1
	}
	return out
}

func sortTransactions(txs []*types.Transaction) {
	for i := 1; i < len(txs); i++ {
		for j := i; j > 0; j-- {
			if less(txs[j], txs[j-1]) {
				txs[j], txs[j-1] = txs[j-1], txs[j]
			} else {
				break
			}
		}
	}
}

func less(a, b *types.Transaction) bool {
	ab, bb := a.From.Bytes(), b.From.Bytes()
	for i := range ab {
		if ab[i] != bb[i] {
			return ab[i] < bb[i]
		}
	}
	return a.Nonce < b.Nonce
}
