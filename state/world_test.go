package state

import (
	"testing"

	"github.com/beaconsim/beaconsim/types"
	"github.com/stretchr/testify/require"
)

func addr(b byte) types.Address {
	return types.BytesToAddress([]byte{b})
}

func TestApplyCoinbaseCreditsWithoutNonceBump(t *testing.T) {
	w := New()
	proposer := addr(1)
	w.ApplyCoinbase(proposer, 2.0)

	require.Equal(t, 2.0, w.Balance(proposer))
	require.Equal(t, uint64(0), w.Nonce(proposer))
}

func TestApplyTransactionSuccess(t *testing.T) {
	w := New()
	from, to := addr(1), addr(2)
	w.ApplyCoinbase(from, 10.0)

	tx := &types.Transaction{TxID: types.BytesToHash([]byte{1}), From: from, To: to, Value: 4.0, Nonce: 0}
	receipt := w.ApplyTransaction(tx)

	require.Equal(t, uint8(1), receipt.Status)
	require.Equal(t, 6.0, w.Balance(from))
	require.Equal(t, 4.0, w.Balance(to))
	require.Equal(t, uint64(1), w.Nonce(from))
}

func TestApplyTransactionSkippedOnInsufficientBalance(t *testing.T) {
	w := New()
	from, to := addr(1), addr(2)

	tx := &types.Transaction{TxID: types.BytesToHash([]byte{1}), From: from, To: to, Value: 4.0, Nonce: 0}
	receipt := w.ApplyTransaction(tx)

	require.Equal(t, uint8(0), receipt.Status)
	require.Equal(t, 0.0, w.Balance(from))
	require.Equal(t, uint64(0), w.Nonce(from))
}

func TestApplyTransactionSkippedOnNonceMismatch(t *testing.T) {
	w := New()
	from, to := addr(1), addr(2)
	w.ApplyCoinbase(from, 10.0)

	tx := &types.Transaction{TxID: types.BytesToHash([]byte{1}), From: from, To: to, Value: 4.0, Nonce: 5}
	receipt := w.ApplyTransaction(tx)

	require.Equal(t, uint8(0), receipt.Status)
	require.Equal(t, 10.0, w.Balance(from))
}

func TestResetClearsState(t *testing.T) {
	w := New()
	w.ApplyCoinbase(addr(1), 5.0)
	w.Reset()
	require.Equal(t, 0.0, w.Balance(addr(1)))
}
