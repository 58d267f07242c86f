// Package forkchoice implements LMD-GHOST (latest-message-driven greedy
// heaviest-observed subtree). Per spec.md §9's design note it is a stateless
// module parameterized by a chain.View plus the caller's latest-attestation
// map, rather than a stateful struct duplicating what beacon.State already
// owns — the teacher's own ForkChoice struct (fork_reputation.go) is
// stateful and MEV/ordering-weighted, which this package deliberately does
// not follow; only its package-level "takes a view, returns a decision"
// shape survives.
package forkchoice

import (
	"github.com/beaconsim/beaconsim/chain"
	"github.com/beaconsim/beaconsim/types"
)

// WeightFunc resolves a validator's stake weight for attested_eth
// accumulation (typically beacon.State's EffectiveBalance lookup).
type WeightFunc func(validator types.Address) float64

// Head computes the current GHOST-HEAD: starting at root, repeatedly
// descend into the child with the greatest attested_eth, breaking ties by
// lexicographically smallest block hash, until a block with no children is
// reached (spec.md §4.2 GHOST-HEAD walk). Children with zero attested_eth
// are still descended into when no sibling outweighs them.
//
// root is the tree's genesis block hash (the null root's only child in the
// common case — if several genesis blocks exist, root must be a virtual
// hash whose Children the view resolves to the forest's actual roots).
func Head(view chain.View, latest map[types.Address]*types.Attestation, weight WeightFunc, root types.Hash) types.Hash {
	weights := attestedWeights(view, latest, weight)

	current := root
	for {
		children := view.Children(current)
		if len(children) == 0 {
			return current
		}
		best := children[0]
		bestWeight := weights[best]
		for _, c := range children[1:] {
			w := weights[c]
			if w > bestWeight || (w == bestWeight && c.Less(best)) {
				best = c
				bestWeight = w
			}
		}
		current = best
	}
}

// attestedWeights computes, for every node reachable from any validator's
// attested head up to the root, the sum of attesting validator weights
// (spec.md §4.2 step 1/P1): each validator's weight is added to every
// ancestor of its latest attested head, including the head itself.
func attestedWeights(view chain.View, latest map[types.Address]*types.Attestation, weight WeightFunc) map[types.Hash]float64 {
	weights := make(map[types.Hash]float64)
	for validator, att := range latest {
		if att == nil || !view.Has(att.HeadHash) {
			continue
		}
		w := weight(validator)
		node := att.HeadHash
		for {
			weights[node] += w
			parent, ok := parentOf(view, node)
			if !ok {
				break
			}
			node = parent
		}
	}
	return weights
}

// parentOf asks the view for node's parent. chain.View does not expose
// Parent directly (it is a read-only capability limited to Children/Has for
// the forward-walk that Head itself needs); ParentLookup augments it.
func parentOf(view chain.View, node types.Hash) (types.Hash, bool) {
	if pv, ok := view.(ParentLookup); ok {
		return pv.Parent(node)
	}
	return types.Hash{}, false
}

// ParentLookup is implemented by chain.Tree to let forkchoice walk a vote up
// to the root without chain.View growing a full mutation-capable surface.
type ParentLookup interface {
	Parent(hash types.Hash) (types.Hash, bool)
}
