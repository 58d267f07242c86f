package chain

import "github.com/beaconsim/beaconsim/types"

// View is the read-only capability the stateless forkchoice package needs.
// Keeping it as a narrow interface (rather than handing forkchoice the whole
// *Tree) matches spec.md §9's ChainView design note and keeps forkchoice
// decoupled from mutation.
type View interface {
	Children(hash types.Hash) []types.Hash
	Has(hash types.Hash) bool
}

// AsView returns t as a View.
func (t *Tree) AsView() View { return t }
