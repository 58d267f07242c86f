package network

import (
	"context"
	"testing"

	"github.com/beaconsim/beaconsim/beacon"
	"github.com/beaconsim/beaconsim/beaconcrypto"
	"github.com/beaconsim/beaconsim/consensus"
	"github.com/beaconsim/beaconsim/params"
	"github.com/beaconsim/beaconsim/types"
	"github.com/stretchr/testify/require"
)

// TestNetworkPropagatesProposedBlocks covers spec.md §4.8's happy path: a
// block proposed by one node reaches every peer directly, with no sync
// request needed, and both nodes converge on the same head.
func TestNetworkPropagatesProposedBlocks(t *testing.T) {
	cfg := params.DefaultConfig()

	keysA := beaconcrypto.DeriveKeyPair([]byte("net-a"))
	blsA := beaconcrypto.DeriveBLSKeyPair([]byte("net-a"))
	keysB := beaconcrypto.DeriveKeyPair([]byte("net-b"))
	blsB := beaconcrypto.DeriveBLSKeyPair([]byte("net-b"))

	genesis := &types.Block{Header: types.BlockHeader{ParentHash: types.ZeroHash, Height: 0, Proposer: keysA.Address}}
	genesis.Header.Hash = beaconcrypto.HashBlockHeader(&genesis.Header)

	nodeA, err := consensus.New("net-a", keysA, blsA, cfg, genesis)
	require.NoError(t, err)
	nodeB, err := consensus.New("net-b", keysB, blsB, cfg, genesis)
	require.NoError(t, err)

	valA := &types.Validator{
		Address:          keysA.Address,
		PublicKey:        keysA.Public.SerializeCompressed(),
		RandaoPublicKey:  blsA.Public.Compress(),
		EffectiveBalance: 32,
		Active:           true,
	}
	valB := &types.Validator{
		Address:          keysB.Address,
		PublicKey:        keysB.Public.SerializeCompressed(),
		RandaoPublicKey:  blsB.Public.Compress(),
		EffectiveBalance: 32,
		Active:           true,
	}

	sched := &beacon.EpochSchedule{Epoch: 0, Proposers: make(map[uint64]types.Address)}
	for s := uint64(0); s < cfg.SlotsPerEpoch; s++ {
		sched.Proposers[s] = keysA.Address
	}

	for _, n := range []*consensus.Node{nodeA, nodeB} {
		n.RegisterValidator(valA)
		n.RegisterValidator(valB)
		n.InstallEpochSchedule(sched)
	}

	net := New(1)
	net.AddNode(nodeA)
	net.AddNode(nodeB)

	require.NoError(t, net.Tick(context.Background(), 1))

	require.Equal(t, nodeA.Head(), nodeB.Head())
	require.Equal(t, uint64(1), nodeA.Stats().BlocksProposed)
	require.NotEqual(t, genesis.Header.Hash, nodeB.Head())
}

// TestNetworkSyncRecoversDroppedBlock forces every direct delivery to drop
// so the only path to convergence is the HeadBroadcast -> ChainRequest ->
// ChainResponse sync protocol (spec.md §4.8).
func TestNetworkSyncRecoversDroppedBlock(t *testing.T) {
	cfg := params.DefaultConfig()

	keysA := beaconcrypto.DeriveKeyPair([]byte("sync-a"))
	blsA := beaconcrypto.DeriveBLSKeyPair([]byte("sync-a"))
	keysB := beaconcrypto.DeriveKeyPair([]byte("sync-b"))
	blsB := beaconcrypto.DeriveBLSKeyPair([]byte("sync-b"))

	genesis := &types.Block{Header: types.BlockHeader{ParentHash: types.ZeroHash, Height: 0, Proposer: keysA.Address}}
	genesis.Header.Hash = beaconcrypto.HashBlockHeader(&genesis.Header)

	nodeA, err := consensus.New("sync-a", keysA, blsA, cfg, genesis)
	require.NoError(t, err)
	nodeB, err := consensus.New("sync-b", keysB, blsB, cfg, genesis)
	require.NoError(t, err)

	valA := &types.Validator{Address: keysA.Address, PublicKey: keysA.Public.SerializeCompressed(), RandaoPublicKey: blsA.Public.Compress(), EffectiveBalance: 32, Active: true}
	valB := &types.Validator{Address: keysB.Address, PublicKey: keysB.Public.SerializeCompressed(), RandaoPublicKey: blsB.Public.Compress(), EffectiveBalance: 32, Active: true}

	sched := &beacon.EpochSchedule{Epoch: 0, Proposers: make(map[uint64]types.Address)}
	for s := uint64(0); s < cfg.SlotsPerEpoch; s++ {
		sched.Proposers[s] = keysA.Address
	}
	for _, n := range []*consensus.Node{nodeA, nodeB} {
		n.RegisterValidator(valA)
		n.RegisterValidator(valB)
		n.InstallEpochSchedule(sched)
	}

	net := New(7)
	net.SetDropRate(1.0) // force every direct block delivery to miss
	net.AddNode(nodeA)
	net.AddNode(nodeB)

	require.NoError(t, net.Tick(context.Background(), 1))

	// Direct delivery dropped, but the head broadcast still reaches B and
	// triggers a ChainRequest/ChainResponse round trip.
	require.Equal(t, nodeA.Head(), nodeB.Head())
}
