package forkchoice

import (
	"testing"

	"github.com/beaconsim/beaconsim/chain"
	"github.com/beaconsim/beaconsim/types"
	"github.com/stretchr/testify/require"
)

func blk(parent types.Hash, label byte) *types.Block {
	h := types.BlockHeader{ParentHash: parent}
	h.Hash = types.BytesToHash([]byte{label})
	return &types.Block{Header: h}
}

func unitWeight(types.Address) float64 { return 1 }

// TestHeadHeaviestSubtree reproduces spec.md S5: Tree G -> A -> {A1, A2},
// G -> B -> B1. Latest attestations V1..V5 -> A2,A2,B1,A1,A2. HEAD = A2.
func TestHeadHeaviestSubtree(t *testing.T) {
	tr := chain.NewTree()
	g := blk(types.ZeroHash, 'G')
	a := blk(g.Header.Hash, 'A')
	b := blk(g.Header.Hash, 'B')
	a1 := blk(a.Header.Hash, '1') // A1
	a2 := blk(a.Header.Hash, '2') // A2
	b1 := blk(b.Header.Hash, '3') // B1
	for _, blk := range []*types.Block{g, a, b, a1, a2, b1} {
		require.NoError(t, tr.AddBlock(blk))
	}

	latest := map[types.Address]*types.Attestation{
		addr(1): {HeadHash: a2.Header.Hash},
		addr(2): {HeadHash: a2.Header.Hash},
		addr(3): {HeadHash: b1.Header.Hash},
		addr(4): {HeadHash: a1.Header.Hash},
		addr(5): {HeadHash: a2.Header.Hash},
	}

	head := Head(tr.AsView(), latest, unitWeight, g.Header.Hash)
	require.Equal(t, a2.Header.Hash, head)
}

// TestHeadLateMessageStability reproduces spec.md S6: V3 moves from B1 to
// A2; HEAD remains A2, no oscillation.
func TestHeadLateMessageStability(t *testing.T) {
	tr := chain.NewTree()
	g := blk(types.ZeroHash, 'G')
	a := blk(g.Header.Hash, 'A')
	b := blk(g.Header.Hash, 'B')
	a1 := blk(a.Header.Hash, '1')
	a2 := blk(a.Header.Hash, '2')
	b1 := blk(b.Header.Hash, '3')
	for _, blk := range []*types.Block{g, a, b, a1, a2, b1} {
		require.NoError(t, tr.AddBlock(blk))
	}

	latest := map[types.Address]*types.Attestation{
		addr(1): {HeadHash: a2.Header.Hash},
		addr(2): {HeadHash: a2.Header.Hash},
		addr(3): {HeadHash: a2.Header.Hash}, // moved from B1
		addr(4): {HeadHash: a1.Header.Hash},
		addr(5): {HeadHash: a2.Header.Hash},
	}

	head := Head(tr.AsView(), latest, unitWeight, g.Header.Hash)
	require.Equal(t, a2.Header.Hash, head)
}

func addr(b byte) types.Address {
	return types.BytesToAddress([]byte{b})
}
