package mempool

import (
	"encoding/json"
	"testing"

	"github.com/beaconsim/beaconsim/beaconcrypto"
	"github.com/beaconsim/beaconsim/state"
	"github.com/beaconsim/beaconsim/types"
	"github.com/stretchr/testify/require"
)

func signedTx(t *testing.T, kp *beaconcrypto.KeyPair, to types.Address, value float64, nonce uint64) *types.Transaction {
	t.Helper()
	tx := &types.Transaction{
		From:      kp.Address,
		To:        to,
		Value:     value,
		Nonce:     nonce,
		Timestamp: 1000,
		PublicKey: kp.Public.SerializeCompressed(),
	}
	tx.TxID = beaconcrypto.HashTransaction(tx)
	payload, err := json.Marshal(struct {
		TxID types.Hash `json:"txid"`
	}{TxID: tx.TxID})
	require.NoError(t, err)
	tx.Signature = beaconcrypto.Sign(kp.Private, payload)
	return tx
}

func TestPoolAddValidTransaction(t *testing.T) {
	kp := beaconcrypto.DeriveKeyPair([]byte("node-1"))
	to := types.BytesToAddress([]byte{0x02})
	tx := signedTx(t, kp, to, 1.0, 0)

	p := NewPool()
	require.NoError(t, p.Add(tx))
	require.ErrorIs(t, p.Add(tx), ErrAlreadyPending)
}

func TestPoolRejectsTamperedSignature(t *testing.T) {
	kp := beaconcrypto.DeriveKeyPair([]byte("node-1"))
	to := types.BytesToAddress([]byte{0x02})
	tx := signedTx(t, kp, to, 1.0, 0)
	tx.Signature[0] ^= 0xFF

	p := NewPool()
	require.ErrorIs(t, p.Add(tx), ErrInvalidSignature)
}

func TestPoolRejectsAddressMismatch(t *testing.T) {
	kp := beaconcrypto.DeriveKeyPair([]byte("node-1"))
	other := beaconcrypto.DeriveKeyPair([]byte("node-2"))
	to := types.BytesToAddress([]byte{0x02})
	tx := signedTx(t, kp, to, 1.0, 0)
	tx.From = other.Address // from no longer matches the attached public key

	p := NewPool()
	require.ErrorIs(t, p.Add(tx), ErrAddressMismatch)
}

func TestSelectForBlockSkipsInsufficientBalance(t *testing.T) {
	kp := beaconcrypto.DeriveKeyPair([]byte("node-1"))
	to := types.BytesToAddress([]byte{0x02})
	tx := signedTx(t, kp, to, 5.0, 0)

	p := NewPool()
	require.NoError(t, p.Add(tx))

	w := state.New()
	selected := p.SelectForBlock(w, 10)
	require.Empty(t, selected, "tx from a zero-balance account should be skipped at selection time")

	w.ApplyCoinbase(kp.Address, 10.0)
	selected = p.SelectForBlock(w, 10)
	require.Len(t, selected, 1)
}
