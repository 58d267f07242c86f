// Package state implements WorldState: the account ledger and the
// deterministic block-application transition function (spec.md §4.4
// "State transition", §4.5, §4.7). Grounded on the teacher's overall
// "apply in strict, replayable order" idiom (Engine.processSlot /
// Equa.Finalize), generalized to the spec's coinbase + flat-fee-free
// transfer model instead of EQUA's MEV-aware ordering and gas accounting.
package state

import (
	"sync"

	"github.com/beaconsim/beaconsim/types"
)

// World is the account ledger. Balances are plain float64 per spec.md's own
// test-scenario values (fractional ETH amounts), not a wei-scaled integer.
type World struct {
	mu       sync.RWMutex
	accounts map[types.Address]*types.Account
	receipts map[types.Hash]*types.Receipt
}

// New returns an empty world state.
func New() *World {
	return &World{
		accounts: make(map[types.Address]*types.Account),
		receipts: make(map[types.Hash]*types.Receipt),
	}
}

// Account returns a's ledger entry, creating a zero-balance one if absent —
// every address implicitly exists with a zero balance until first credited
// (spec.md never requires pre-registration of accounts).
func (w *World) Account(a types.Address) *types.Account {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.accountLocked(a)
}

func (w *World) accountLocked(a types.Address) *types.Account {
	acc, ok := w.accounts[a]
	if !ok {
		acc = &types.Account{Address: a}
		w.accounts[a] = acc
	}
	return acc
}

// Balance returns a's current balance.
func (w *World) Balance(a types.Address) float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if acc, ok := w.accounts[a]; ok {
		return acc.Balance
	}
	return 0
}

// Nonce returns a's current nonce.
func (w *World) Nonce(a types.Address) uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if acc, ok := w.accounts[a]; ok {
		return acc.Nonce
	}
	return 0
}

// Receipt returns the recorded receipt for txid, if any.
func (w *World) Receipt(txid types.Hash) (*types.Receipt, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r, ok := w.receipts[txid]
	return r, ok
}

// Reset clears all accounts and receipts, used at the start of a
// reorganization replay (spec.md §4.7 step 6: "discard world state").
func (w *World) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.accounts = make(map[types.Address]*types.Account)
	w.receipts = make(map[types.Hash]*types.Receipt)
}

// ApplyCoinbase credits reward to proposer without bumping its nonce
// (spec.md §4.4 transition step 1).
func (w *World) ApplyCoinbase(proposer types.Address, reward float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	acc := w.accountLocked(proposer)
	acc.Balance += reward
}

// ApplyTransaction applies tx's transfer if the account snapshot permits it
// (spec.md §4.4 step 4, transition step 2): nonce must match exactly and
// balance must cover the value. On failure the transaction is skipped, not
// fatal — receipt status 0, no balance or nonce change.
func (w *World) ApplyTransaction(tx *types.Transaction) *types.Receipt {
	w.mu.Lock()
	defer w.mu.Unlock()

	from := w.accountLocked(tx.From)
	receipt := &types.Receipt{TxID: tx.TxID}

	if from.Nonce != tx.Nonce || from.Balance < tx.Value {
		receipt.Status = 0
		w.receipts[tx.TxID] = receipt
		return receipt
	}

	to := w.accountLocked(tx.To)
	from.Balance -= tx.Value
	to.Balance += tx.Value
	from.Nonce++

	receipt.Status = 1
	w.receipts[tx.TxID] = receipt
	return receipt
}

// Snapshot returns a deep copy of every account, for NodeState projection
// (spec.md §6) and tests.
func (w *World) Snapshot() map[types.Address]types.Account {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[types.Address]types.Account, len(w.accounts))
	for addr, acc := range w.accounts {
		out[addr] = *acc
	}
	return out
}
