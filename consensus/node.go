// Package consensus implements the per-node slot state machine: block
// proposal, validation, application, and attestation handling
// (spec.md §4.4-§4.7). Node is the single point of serialization for one
// node's event entry points, grounded on the teacher's
// Engine (mu sync.RWMutex + ctx/cancel/wg), generalized from EQUA's
// PoW-VRF/MEV-aware engine to the spec's RANDAO/LMD-GHOST semantics.
package consensus

import (
	"errors"
	"fmt"
	"sync"

	"github.com/beaconsim/beaconsim/beacon"
	"github.com/beaconsim/beaconsim/beaconcrypto"
	"github.com/beaconsim/beaconsim/chain"
	"github.com/beaconsim/beaconsim/forkchoice"
	"github.com/beaconsim/beaconsim/mempool"
	"github.com/beaconsim/beaconsim/params"
	"github.com/beaconsim/beaconsim/proposer"
	"github.com/beaconsim/beaconsim/state"
	"github.com/beaconsim/beaconsim/types"
	"github.com/ethereum/go-ethereum/log"
)

var (
	errUnknownParent       = errors.New("consensus: unknown parent block")
	errBadHeight           = errors.New("consensus: height does not extend parent")
	errBadTxHash           = errors.New("consensus: transaction hash mismatch")
	errCeilingNotMet       = errors.New("consensus: header hash does not satisfy ceiling")
	errMissingRandaoReveal = errors.New("consensus: missing RANDAO reveal on non-genesis block")
	errBadRandaoReveal     = errors.New("consensus: RANDAO reveal does not verify")
	errNotScheduled        = errors.New("consensus: not the scheduled proposer for this slot")
	errDuplicateBlock      = errors.New("consensus: block already known")
	errAttestationInPast   = errors.New("consensus: attested block not canonical")
)

// Phase names the slot state machine's states (spec.md §4.6).
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseProposing
	PhaseProposed
	PhaseSkipped
	PhaseAttesting
	PhaseDone
)

// NodeState is the read-only projection handed to the presentation-layer
// collaborator (spec.md §6).
type NodeState struct {
	NodeID      string
	Address     types.Address
	PublicKey   []byte
	Head        types.Hash
	Blocks      []*types.Block
	Accounts    map[types.Address]types.Account
	Mempool     int
	PeerIDs     []string
	Phase       Phase
}

// Stats mirrors the teacher's operational counters (Engine.Stats),
// surfaced periodically by cmd/beaconsim instead of a UI.
type Stats struct {
	SlotsProcessed  uint64
	BlocksProposed  uint64
	MissedSlots     uint64
	Reorganizations uint64
}

// Node is one simulated validator: its view of the tree, world state, and
// beacon state, plus its own signing keys.
type Node struct {
	mu sync.Mutex // serializes Tick/ReceiveBlock/ReceiveAttestation/SubmitTransaction, per spec.md §5

	id      string
	address types.Address
	keys    *beaconcrypto.KeyPair
	blsKeys *beaconcrypto.BLSKeyPair
	cfg     *params.Config

	tree    *chain.Tree
	world   *state.World
	beacon  *beacon.State
	pool    *mempool.Pool
	peerIDs []string

	head types.Hash

	mining       bool
	miningHeight uint64
	miningStop   chan struct{}

	phase Phase
	stats Stats

	onChainUpdated       func(NodeState)
	onBlockBroadcast     func(*types.Block)
	onAttestationEmitted func(*types.Attestation)
}

// New constructs a Node. genesis must already satisfy BlockHeader.IsGenesisParent.
func New(id string, keys *beaconcrypto.KeyPair, blsKeys *beaconcrypto.BLSKeyPair, cfg *params.Config, genesis *types.Block) (*Node, error) {
	n := &Node{
		id:      id,
		address: keys.Address,
		keys:    keys,
		blsKeys: blsKeys,
		cfg:     cfg,
		tree:    chain.NewTree(),
		world:   state.New(),
		beacon:  beacon.NewState(),
		pool:    mempool.NewPool(),
	}
	if err := n.tree.AddBlock(genesis); err != nil {
		return nil, fmt.Errorf("consensus: add genesis: %w", err)
	}
	n.head = genesis.Header.Hash
	n.applyBlockToWorld(genesis)
	return n, nil
}

// RegisterValidator adds v to this node's beacon state (called identically
// on every node during network bootstrap so every validator set is
// consistent, mirroring the teacher's initializeGenesisValidators).
func (n *Node) RegisterValidator(v *types.Validator) {
	n.beacon.AddValidator(v)
}

// OnChainUpdated registers cb to be invoked after any head change.
func (n *Node) OnChainUpdated(cb func(NodeState)) { n.onChainUpdated = cb }

// OnBlockBroadcast registers cb to be invoked when this node proposes a new
// block that must be gossiped.
func (n *Node) OnBlockBroadcast(cb func(*types.Block)) { n.onBlockBroadcast = cb }

// OnAttestationEmitted registers cb to be invoked whenever this node casts a
// vote that must be gossiped to peers.
func (n *Node) OnAttestationEmitted(cb func(*types.Attestation)) { n.onAttestationEmitted = cb }

// Head returns the current GHOST-HEAD hash.
func (n *Node) Head() types.Hash {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.head
}

// Stats returns a copy of the node's operational counters.
func (n *Node) Stats() Stats {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stats
}

// Snapshot returns a read-only projection of the node's state (spec.md §6).
func (n *Node) Snapshot() NodeState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return NodeState{
		NodeID:    n.id,
		Address:   n.address,
		PublicKey: n.keys.Public.SerializeCompressed(),
		Head:      n.head,
		Blocks:    n.tree.AllBlocks(),
		Accounts:  n.world.Snapshot(),
		Mempool:   0,
		PeerIDs:   append([]string(nil), n.peerIDs...),
		Phase:     n.phase,
	}
}

// SubmitTransaction validates and enqueues tx (spec.md §6 transaction
// source collaborator).
func (n *Node) SubmitTransaction(tx *types.Transaction) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pool.Add(tx)
}

// ID returns this node's identifier.
func (n *Node) ID() string { return n.id }

// Address returns this node's validator/miner address.
func (n *Node) Address() types.Address { return n.address }

// InstallEpochSchedule overrides the cached proposer schedule for an epoch.
// Schedules not installed this way are derived from RANDAO on first use via
// ensureScheduleFor. cmd/beaconsim's bootstrap uses it to seed every node
// with an identical epoch-0 schedule; tests use it for deterministic setups.
func (n *Node) InstallEpochSchedule(sched *beacon.EpochSchedule) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.beacon.SetEpochSchedule(sched)
}

// AddPeer registers a peer identifier for presentation purposes.
func (n *Node) AddPeer(peerID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.peerIDs = append(n.peerIDs, peerID)
}

// HasBlock reports whether hash is already known to this node (used by the
// sync protocol to decide whether a HeadBroadcast needs a ChainRequest).
func (n *Node) HasBlock(hash types.Hash) bool {
	return n.tree.Has(hash)
}

// ChainUpTo returns the full canonical-order chain of blocks from genesis to
// head, used to answer a ChainRequest (spec.md §4.8).
func (n *Node) ChainUpTo(head types.Hash) ([]*types.Block, error) {
	path, err := n.tree.AncestorChain(head)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Block, 0, len(path))
	for _, h := range path {
		b, err := n.tree.GetBlock(h)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (n *Node) epochOf(slot uint64) uint64 { return slot / n.cfg.SlotsPerEpoch }

// ensureScheduleFor computes and caches the RANDAO proposer schedule for
// epoch if absent (spec.md §4.6 step 1). The schedule for epoch is seeded
// from randao_mix[epoch-1] — the mix finalized by the end of the prior
// epoch's reveals — not randao_mix[epoch], which is still being
// accumulated by epoch's own blocks at the time this runs (spec.md §4.3,
// §4.6 step 1). Epoch 0 has no prior epoch, so it uses the zero seed the
// network bootstraps genesis with.
func (n *Node) ensureScheduleFor(epoch uint64) *beacon.EpochSchedule {
	if sched, ok := n.beacon.EpochScheduleFor(epoch); ok {
		return sched
	}
	active := n.beacon.ActiveValidators()
	var mix [32]byte
	if epoch > 0 {
		mix = n.beacon.RandaoMix(epoch - 1)
	}
	sched := proposer.Schedule(epoch, n.cfg.SlotsPerEpoch, active, n.cfg.MaxEffectiveBalance, mix)
	n.beacon.SetEpochSchedule(sched)
	return sched
}

// recomputeHeadAndReconcile runs fork-choice, then applies forward
// -progress or reorganization as the new head demands (spec.md §4.7 steps
// 3-6).
func (n *Node) recomputeHeadAndReconcile() {
	genesisRoot, err := n.genesisRoot()
	if err != nil {
		return
	}
	latest := n.beacon.LatestAttestations()
	weight := func(addr types.Address) float64 {
		if v, ok := n.beacon.Validator(addr); ok && v.Active {
			return v.EffectiveBalance
		}
		return 0
	}

	newHead := forkchoice.Head(n.tree.AsView(), latest, weight, genesisRoot)
	if newHead == n.head || !n.tree.Has(newHead) {
		return
	}

	oldHead := n.head
	if n.isDescendant(newHead, oldHead) {
		n.applyForwardProgress(oldHead, newHead)
	} else {
		n.applyReorganization(newHead)
		n.stats.Reorganizations++
	}
	n.head = newHead

	if n.onChainUpdated != nil {
		n.onChainUpdated(n.snapshotLocked())
	}
}

func (n *Node) snapshotLocked() NodeState {
	return NodeState{
		NodeID:    n.id,
		Address:   n.address,
		PublicKey: n.keys.Public.SerializeCompressed(),
		Head:      n.head,
		Blocks:    n.tree.AllBlocks(),
		Accounts:  n.world.Snapshot(),
		PeerIDs:   append([]string(nil), n.peerIDs...),
		Phase:     n.phase,
	}
}

func (n *Node) genesisRoot() (types.Hash, error) {
	all := n.tree.AllBlocks()
	for _, b := range all {
		if b.Header.IsGenesisParent() {
			return b.Header.Hash, nil
		}
	}
	return types.Hash{}, errors.New("consensus: no genesis block")
}

// isDescendant reports whether head is a descendant of ancestor (or equal
// to it).
func (n *Node) isDescendant(head, ancestor types.Hash) bool {
	ancestors, err := n.tree.AncestorChain(head)
	if err != nil {
		return false
	}
	for _, h := range ancestors {
		if h == ancestor {
			return true
		}
	}
	return false
}

// applyForwardProgress applies each block on (oldHead, newHead] in order
// against the existing world state (spec.md §4.7 step 5).
func (n *Node) applyForwardProgress(oldHead, newHead types.Hash) {
	path, err := n.tree.AncestorChain(newHead)
	if err != nil {
		return
	}
	apply := false
	for _, h := range path {
		if !apply {
			if h == oldHead {
				apply = true
			}
			continue
		}
		block, err := n.tree.GetBlock(h)
		if err != nil {
			continue
		}
		n.applyBlockToWorld(block)
	}
}

// applyReorganization discards world state and processed_attestations and
// replays the full new canonical chain from genesis (spec.md §4.7 step 6).
func (n *Node) applyReorganization(newHead types.Hash) {
	n.world.Reset()
	n.beacon.ResetProcessed()
	n.beacon.ResetRandaoMixes()

	path, err := n.tree.AncestorChain(newHead)
	if err != nil {
		return
	}
	for _, h := range path {
		block, err := n.tree.GetBlock(h)
		if err != nil {
			continue
		}
		n.applyBlockToWorld(block)
	}
	log.Info("reorganization complete", "node", n.id, "newHead", newHead.Hex()[:10])
}

// applyBlockToWorld runs the state-transition function for block in strict
// order (spec.md §4.4 "State transition").
func (n *Node) applyBlockToWorld(block *types.Block) {
	epoch := n.epochOf(block.Header.Slot)

	for i, tx := range block.Transactions {
		if i == 0 && tx.IsCoinbase() {
			n.world.ApplyCoinbase(tx.To, n.cfg.BlockReward)
			continue
		}
		n.world.ApplyTransaction(tx)
		n.pool.Remove(tx.TxID)
	}

	for _, att := range block.Attestations {
		n.beacon.MarkProcessed(block.Header.Hash, att)
	}

	if !block.Header.IsGenesisParent() && len(block.Header.RandaoReveal) > 0 {
		// Folds into randaoMixes[epoch] (this block's own epoch), which
		// ensureScheduleFor reads back as epoch+1's seed — see its
		// epoch-1 indexing.
		proposer.UpdateRandaoMix(n.beacon, epoch, block.Header.RandaoReveal)
	}
}
