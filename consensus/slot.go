package consensus

import (
	"time"

	"github.com/beaconsim/beaconsim/beaconcrypto"
	"github.com/beaconsim/beaconsim/proposer"
	"github.com/beaconsim/beaconsim/types"
	"github.com/ethereum/go-ethereum/log"
)

// Tick drives the slot state machine for slot (spec.md §4.6). If this node
// is the scheduled proposer it assembles, searches a nonce for, and
// broadcasts a block; otherwise it marks the slot skipped. In every branch
// it then emits an attestation for its current head before returning. It
// does not wait for a block for slot to arrive first, so a non-proposer
// votes for whatever head it holds at tick time.
func (n *Node) Tick(slot uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.stats.SlotsProcessed++
	epoch := n.epochOf(slot)
	sched := n.ensureScheduleFor(epoch)

	expected, ok := proposer.ProposerForSlot(sched, slot)
	if !ok || expected != n.address {
		n.phase = PhaseSkipped
		n.stats.MissedSlots++
		n.emitAttestationLocked(slot)
		return
	}

	n.phase = PhaseProposing
	block, err := n.assembleAndSolveLocked(slot, epoch)
	if err != nil {
		log.Warn("block proposal failed", "node", n.id, "slot", slot, "err", err)
		n.phase = PhaseSkipped
		n.emitAttestationLocked(slot)
		return
	}

	if err := n.acceptBlockLocked(block); err != nil {
		log.Warn("own block rejected", "node", n.id, "slot", slot, "err", err)
		n.phase = PhaseSkipped
		n.emitAttestationLocked(slot)
		return
	}

	n.phase = PhaseProposed
	n.stats.BlocksProposed++
	if n.onBlockBroadcast != nil {
		n.onBlockBroadcast(block)
	}
	n.emitAttestationLocked(slot)
	n.phase = PhaseDone
}

// assembleAndSolveLocked builds the candidate block body, computes its
// RANDAO reveal, and searches a satisfying nonce (spec.md §4.6 step 2).
func (n *Node) assembleAndSolveLocked(slot, epoch uint64) (*types.Block, error) {
	parent, err := n.tree.GetBlock(n.head)
	if err != nil {
		return nil, err
	}

	coinbase := &types.Transaction{
		From:      types.ZeroAddress,
		To:        n.address,
		Value:     n.cfg.BlockReward,
		Timestamp: time.Now().UnixMilli(),
	}
	coinbase.TxID = beaconcrypto.HashTransaction(coinbase)

	txs := []*types.Transaction{coinbase}
	txs = append(txs, n.pool.SelectForBlock(n.world, n.cfg.MaxBlockTransactions-1)...)

	atts := n.eligiblePendingAttestations()

	reveal := beaconcrypto.SignRandaoReveal(n.blsKeys, epoch)

	header := types.BlockHeader{
		ParentHash:       parent.Header.Hash,
		Height:           parent.Header.Height + 1,
		Slot:             slot,
		Proposer:         n.address,
		Timestamp:        time.Now().UnixMilli(),
		TransactionsHash: beaconcrypto.HashTransactions(txs),
		RandaoReveal:     reveal,
	}

	stop := make(chan struct{})
	n.mining = true
	n.miningHeight = header.Height
	n.miningStop = stop

	n.mu.Unlock()
	nonce, hash, err := searchNonce(header, n.cfg, stop)
	n.mu.Lock()

	n.mining = false
	n.miningStop = nil
	if err != nil {
		return nil, err
	}
	header.Nonce = nonce
	header.Hash = hash

	return &types.Block{Header: header, Transactions: txs, Attestations: atts}, nil
}

// eligiblePendingAttestations returns beacon_pool attestations whose head
// is on the canonical chain and not yet processed (spec.md §4.6 step 2).
func (n *Node) eligiblePendingAttestations() []*types.Attestation {
	var out []*types.Attestation
	for _, att := range n.beacon.PendingAttestations() {
		if !n.tree.Has(att.HeadHash) {
			continue
		}
		if !n.isDescendant(n.head, att.HeadHash) && att.HeadHash != n.head {
			continue
		}
		out = append(out, att)
	}
	return out
}

// emitAttestationLocked casts this node's vote for its current head
// (spec.md §4.6 step 3) and folds it into its own beacon state immediately
// (the network layer is responsible for gossiping it to peers).
func (n *Node) emitAttestationLocked(slot uint64) *types.Attestation {
	att := &types.Attestation{
		Validator: n.address,
		Slot:      slot,
		HeadHash:  n.head,
		Timestamp: time.Now().UnixMilli(),
	}
	att.Signature = beaconcrypto.SignAttestation(n.blsKeys, att)

	if err := n.beacon.AddAttestation(att); err == nil {
		n.recomputeHeadAndReconcile()
		if n.onAttestationEmitted != nil {
			n.onAttestationEmitted(att)
		}
	}
	return att
}

// ReceiveAttestation processes an attestation gossiped by a peer.
func (n *Node) ReceiveAttestation(att *types.Attestation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.beacon.AddAttestation(att); err != nil {
		return err
	}
	n.recomputeHeadAndReconcile()
	return nil
}

// ReceiveBlock validates and adds a block gossiped or synced from a peer
// (spec.md §4.5 add_block).
func (n *Node) ReceiveBlock(block *types.Block) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.acceptBlockLocked(block)
}
