// Package chain holds the block tree: every block a node has ever accepted,
// indexed so that ancestry and height queries never walk a cyclic pointer
// graph (spec.md §9 design notes).
package chain

import (
	"errors"
	"sync"

	"github.com/beaconsim/beaconsim/types"
)

var (
	// ErrUnknownParent is returned when a block's parent hash is not present
	// in the tree.
	ErrUnknownParent = errors.New("chain: unknown parent")
	// ErrDuplicateBlock is returned when a block hash is already stored.
	ErrDuplicateBlock = errors.New("chain: duplicate block")
	// ErrUnknownBlock is returned when a hash has no corresponding node.
	ErrUnknownBlock = errors.New("chain: unknown block")
)

// nilIndex marks the absence of a parent (the null root / genesis parent).
const nilIndex = -1

// node is one arena slot: a stored block plus integer links to its parent
// and children. Indices, not pointers, so the structure can never form a
// reference cycle and is trivially walkable from any direction.
type node struct {
	block    *types.Block
	parent   int
	children []int
}

// Tree is the arena-indexed block tree. All mutation goes through AddBlock;
// all traversal is index-based.
type Tree struct {
	mu      sync.RWMutex
	nodes   []node
	byHash  map[types.Hash]int
	genesis int // index of the first block accepted with a zero parent hash
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{
		byHash:  make(map[types.Hash]int),
		genesis: nilIndex,
	}
}

// AddBlock inserts block into the tree. The parent must already be present
// unless block is a genesis block (ParentHash == types.ZeroHash), in which
// case it becomes a root (spec.md §4.1, §4.5).
func (t *Tree) AddBlock(block *types.Block) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := block.Header.Hash
	if _, exists := t.byHash[h]; exists {
		return ErrDuplicateBlock
	}

	parentIdx := nilIndex
	if !block.Header.IsGenesisParent() {
		idx, ok := t.byHash[block.Header.ParentHash]
		if !ok {
			return ErrUnknownParent
		}
		parentIdx = idx
	}

	idx := len(t.nodes)
	t.nodes = append(t.nodes, node{block: block, parent: parentIdx, children: nil})
	t.byHash[h] = idx

	if parentIdx != nilIndex {
		t.nodes[parentIdx].children = append(t.nodes[parentIdx].children, idx)
	} else if t.genesis == nilIndex {
		t.genesis = idx
	}
	return nil
}

// GetBlock returns the stored block for hash.
func (t *Tree) GetBlock(hash types.Hash) (*types.Block, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx, ok := t.byHash[hash]
	if !ok {
		return nil, ErrUnknownBlock
	}
	return t.nodes[idx].block, nil
}

// Has reports whether hash is already stored.
func (t *Tree) Has(hash types.Hash) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.byHash[hash]
	return ok
}

// Children returns the hashes of every block whose parent is hash.
func (t *Tree) Children(hash types.Hash) []types.Hash {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx, ok := t.byHash[hash]
	if !ok {
		return nil
	}
	out := make([]types.Hash, 0, len(t.nodes[idx].children))
	for _, c := range t.nodes[idx].children {
		out = append(out, t.nodes[c].block.Header.Hash)
	}
	return out
}

// Parent returns the parent hash of hash, and false if hash is a genesis
// block or unknown.
func (t *Tree) Parent(hash types.Hash) (types.Hash, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx, ok := t.byHash[hash]
	if !ok || t.nodes[idx].parent == nilIndex {
		return types.Hash{}, false
	}
	return t.nodes[t.nodes[idx].parent].block.Header.Hash, true
}

// AllBlocks returns every stored block, in insertion order.
func (t *Tree) AllBlocks() []*types.Block {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*types.Block, len(t.nodes))
	for i, n := range t.nodes {
		out[i] = n.block
	}
	return out
}

// AncestorChain walks from hash back to its genesis root and returns the
// hashes in root-first order, grounded on spec.md §4.5's requirement to
// rebuild world state by replaying a full chain from genesis.
func (t *Tree) AncestorChain(hash types.Hash) ([]types.Hash, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idx, ok := t.byHash[hash]
	if !ok {
		return nil, ErrUnknownBlock
	}

	var rev []types.Hash
	for idx != nilIndex {
		rev = append(rev, t.nodes[idx].block.Header.Hash)
		idx = t.nodes[idx].parent
	}
	out := make([]types.Hash, len(rev))
	for i, h := range rev {
		out[len(rev)-1-i] = h
	}
	return out, nil
}

// CommonAncestor returns the most recent block hash common to the ancestor
// chains of a and b (used when computing a reorg's fork point, spec.md §4.5).
func (t *Tree) CommonAncestor(a, b types.Hash) (types.Hash, error) {
	t.mu.RLock()
	idxA, okA := t.byHash[a]
	idxB, okB := t.byHash[b]
	t.mu.RUnlock()
	if !okA || !okB {
		return types.Hash{}, ErrUnknownBlock
	}

	seen := make(map[int]bool)
	t.mu.RLock()
	for i := idxA; i != nilIndex; i = t.nodes[i].parent {
		seen[i] = true
	}
	cur := idxB
	for cur != nilIndex && !seen[cur] {
		cur = t.nodes[cur].parent
	}
	t.mu.RUnlock()

	if cur == nilIndex {
		return types.Hash{}, errors.New("chain: no common ancestor")
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodes[cur].block.Header.Hash, nil
}

// Height returns the stored height of hash's block.
func (t *Tree) Height(hash types.Hash) (uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx, ok := t.byHash[hash]
	if !ok {
		return 0, ErrUnknownBlock
	}
	return t.nodes[idx].block.Header.Height, nil
}

// Leaves returns the hashes of every block with no children — the tips a
// fork-choice walk or sync peer might be pointing at.
func (t *Tree) Leaves() []types.Hash {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []types.Hash
	for i, n := range t.nodes {
		if len(n.children) == 0 {
			out = append(out, t.nodes[i].block.Header.Hash)
		}
	}
	return out
}
