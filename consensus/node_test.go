package consensus

import (
	"testing"

	"github.com/beaconsim/beaconsim/beacon"
	"github.com/beaconsim/beaconsim/beaconcrypto"
	"github.com/beaconsim/beaconsim/params"
	"github.com/beaconsim/beaconsim/proposer"
	"github.com/beaconsim/beaconsim/types"
	"github.com/stretchr/testify/require"
)

func newTestNode(t *testing.T, seed string) (*Node, *beaconcrypto.KeyPair, *beaconcrypto.BLSKeyPair) {
	t.Helper()
	keys := beaconcrypto.DeriveKeyPair([]byte(seed))
	blsKeys := beaconcrypto.DeriveBLSKeyPair([]byte(seed))

	cfg := params.DefaultConfig()
	// The genesis block grants this node one BLOCK_REWARD through its
	// coinbase, as in spec.md S1.
	grant := &types.Transaction{From: types.ZeroAddress, To: keys.Address, Value: cfg.BlockReward}
	grant.TxID = beaconcrypto.HashTransaction(grant)
	genesis := &types.Block{Header: types.BlockHeader{
		ParentHash:       types.ZeroHash,
		Height:           0,
		Proposer:         keys.Address,
		TransactionsHash: beaconcrypto.HashTransactions([]*types.Transaction{grant}),
	}, Transactions: []*types.Transaction{grant}}
	genesis.Header.Hash = beaconcrypto.HashBlockHeader(&genesis.Header)

	n, err := New("n1", keys, blsKeys, cfg, genesis)
	require.NoError(t, err)

	n.RegisterValidator(&types.Validator{
		Address:          keys.Address,
		PublicKey:        keys.Public.SerializeCompressed(),
		RandaoPublicKey:  blsKeys.Public.Compress(),
		EffectiveBalance: 32,
		Active:           true,
	})

	// Force this node to be the sole scheduled proposer for every slot of
	// epoch 0, bypassing RANDAO's rejection sampling so the test is
	// deterministic regardless of weighted-sampling outcome.
	sched := &beacon.EpochSchedule{Epoch: 0, Proposers: make(map[uint64]types.Address)}
	for s := uint64(0); s < cfg.SlotsPerEpoch; s++ {
		sched.Proposers[s] = keys.Address
	}
	n.InstallEpochSchedule(sched)

	return n, keys, blsKeys
}

// TestSingleNodeCoinbaseBlocks reproduces spec.md S1: on top of the genesis
// grant, three coinbase-only blocks credit the miner BLOCK_REWARD each,
// nonce stays 0.
func TestSingleNodeCoinbaseBlocks(t *testing.T) {
	n, keys, _ := newTestNode(t, "node-1")

	for slot := uint64(1); slot <= 3; slot++ {
		n.Tick(slot)
	}

	snap := n.Snapshot()
	acc := snap.Accounts[keys.Address]
	require.Equal(t, 4*n.cfg.BlockReward, acc.Balance)
	require.Equal(t, uint64(0), acc.Nonce)
	require.Equal(t, uint64(3), n.Stats().BlocksProposed)
}

// TestSkippedSlotEmitsAttestationOnly covers the non-proposer branch of the
// slot state machine (spec.md §4.6 step 1-2: Skipped, then attest).
func TestSkippedSlotEmitsAttestationOnly(t *testing.T) {
	n, keys, _ := newTestNode(t, "node-1")

	// Point the schedule at a different address so this node is never the
	// proposer.
	other := types.BytesToAddress([]byte{0xFF})
	sched := &beacon.EpochSchedule{Epoch: 0, Proposers: make(map[uint64]types.Address)}
	for s := uint64(0); s < n.cfg.SlotsPerEpoch; s++ {
		sched.Proposers[s] = other
	}
	n.InstallEpochSchedule(sched)

	n.Tick(1)

	require.Equal(t, uint64(1), n.Stats().MissedSlots)
	// Only the genesis grant: the skipped slot credits nothing.
	require.Equal(t, n.cfg.BlockReward, n.Snapshot().Accounts[keys.Address].Balance)
}

// TestEnsureScheduleForUsesPriorEpochMix guards against the off-by-one this
// package once had: epoch E's schedule must be seeded from
// randao_mix[E-1], the mix finalized by the end of the prior epoch
// (spec.md §4.3, §4.6 step 1), not randao_mix[E], which is still being
// accumulated by epoch E's own blocks when the schedule is first computed.
func TestEnsureScheduleForUsesPriorEpochMix(t *testing.T) {
	n, _, _ := newTestNode(t, "node-1")

	second := beaconcrypto.DeriveKeyPair([]byte("node-2"))
	n.RegisterValidator(&types.Validator{
		Address:          second.Address,
		PublicKey:        second.Public.SerializeCompressed(),
		EffectiveBalance: 32,
		Active:           true,
	})

	priorMix := [32]byte{0xAA}
	ownMix := [32]byte{0xBB}
	n.beacon.SetRandaoMix(0, priorMix)
	n.beacon.SetRandaoMix(1, ownMix)

	got := n.ensureScheduleFor(1)

	active := n.beacon.ActiveValidators()
	want := proposer.Schedule(1, n.cfg.SlotsPerEpoch, active, n.cfg.MaxEffectiveBalance, priorMix)
	require.Equal(t, want.Proposers, got.Proposers)

	wrong := proposer.Schedule(1, n.cfg.SlotsPerEpoch, active, n.cfg.MaxEffectiveBalance, ownMix)
	require.NotEqual(t, wrong.Proposers, got.Proposers, "schedule must not be seeded from its own epoch's mix")
}

// TestEnsureScheduleForEpochZeroUsesZeroSeed covers the bootstrap
// special-case: epoch 0 has no prior epoch, so it is seeded with the zero
// mix rather than underflowing epoch-1.
func TestEnsureScheduleForEpochZeroUsesZeroSeed(t *testing.T) {
	keys := beaconcrypto.DeriveKeyPair([]byte("node-1"))
	blsKeys := beaconcrypto.DeriveBLSKeyPair([]byte("node-1"))
	cfg := params.DefaultConfig()
	genesis := &types.Block{Header: types.BlockHeader{ParentHash: types.ZeroHash, Height: 0, Proposer: keys.Address}}
	genesis.Header.Hash = beaconcrypto.HashBlockHeader(&genesis.Header)

	n, err := New("n1", keys, blsKeys, cfg, genesis)
	require.NoError(t, err)
	n.RegisterValidator(&types.Validator{Address: keys.Address, EffectiveBalance: 32, Active: true})

	got := n.ensureScheduleFor(0)

	want := proposer.Schedule(0, cfg.SlotsPerEpoch, n.beacon.ActiveValidators(), cfg.MaxEffectiveBalance, [32]byte{})
	require.Equal(t, want.Proposers, got.Proposers)
}

// TestApplyReorganizationResetsRandaoMixes guards against the RANDAO leak
// this package once had: a reorganization must rebuild randaoMixes from
// scratch by replaying only the new canonical chain (spec.md §4.7 step 6),
// not leave reveals folded in from the discarded branch.
func TestApplyReorganizationResetsRandaoMixes(t *testing.T) {
	n, keys, _ := newTestNode(t, "node-1")

	genesis, err := n.tree.GetBlock(n.head)
	require.NoError(t, err)

	buildChild := func(reveal []byte) *types.Block {
		header := types.BlockHeader{
			ParentHash:   genesis.Header.Hash,
			Height:       genesis.Header.Height + 1,
			Slot:         1,
			Proposer:     keys.Address,
			RandaoReveal: reveal,
		}
		header.Hash = beaconcrypto.HashBlockHeader(&header)
		return &types.Block{Header: header}
	}

	forkA := buildChild([]byte("fork-a-reveal"))
	forkB := buildChild([]byte("fork-b-reveal"))
	require.NoError(t, n.tree.AddBlock(forkA))
	require.NoError(t, n.tree.AddBlock(forkB))

	// Apply the discarded fork first, as if it had briefly been canonical.
	n.applyBlockToWorld(forkA)
	epoch := n.epochOf(forkA.Header.Slot)
	require.NotEqual(t, [32]byte{}, n.beacon.RandaoMix(epoch))

	n.applyReorganization(forkB.Header.Hash)

	want := beaconcrypto.AggregateRandaoMix([32]byte{}, forkB.Header.RandaoReveal)
	require.Equal(t, want, n.beacon.RandaoMix(epoch),
		"post-reorg mix must derive solely from the new canonical chain's own reveal")
}
