package consensus

import (
	"bytes"
	"math/big"

	"github.com/beaconsim/beaconsim/beaconcrypto"
	"github.com/beaconsim/beaconsim/types"
	"github.com/ethereum/go-ethereum/log"
)

// acceptBlockLocked validates block against the tree and, if it extends the
// canonical chain, applies it; otherwise it is stored as a known fork
// (spec.md §4.5 add_block). Caller must hold n.mu.
func (n *Node) acceptBlockLocked(block *types.Block) error {
	if n.tree.Has(block.Header.Hash) {
		return errDuplicateBlock
	}

	// If a proposal is in flight for this height, a competing block means
	// the local search is no longer worth finishing (spec.md §5
	// cancellation).
	if n.mining && block.Header.Height == n.miningHeight && n.miningStop != nil {
		close(n.miningStop)
		n.miningStop = nil
	}

	if !block.Header.IsGenesisParent() {
		if err := n.validateBlock(block); err != nil {
			return err
		}
	}

	if err := n.tree.AddBlock(block); err != nil {
		return err
	}

	if block.Header.ParentHash == n.head {
		n.applyBlockToWorld(block)
		n.head = block.Header.Hash
		if n.onChainUpdated != nil {
			n.onChainUpdated(n.snapshotLocked())
		}
	} else {
		log.Debug("block kept as fork, head unchanged", "node", n.id, "hash", block.Header.Hash.Hex()[:10])
	}

	return nil
}

// validateBlock checks every spec.md §4.4 "Block validity" condition
// against the current head's world state.
func (n *Node) validateBlock(block *types.Block) error {
	head, err := n.tree.GetBlock(n.head)
	if err != nil {
		return err
	}

	if block.Header.ParentHash != n.head {
		// Fork against a non-head parent is still acceptable structurally
		// as long as the parent is known; the extends-head checks below
		// only gate application, not tree insertion.
		if !n.tree.Has(block.Header.ParentHash) {
			return errUnknownParent
		}
	} else if block.Header.Height != head.Header.Height+1 {
		return errBadHeight
	}

	expectedTxHash := beaconcrypto.HashTransactions(block.Transactions)
	if !bytes.Equal(expectedTxHash.Bytes(), block.Header.TransactionsHash.Bytes()) {
		return errBadTxHash
	}

	headerHash := beaconcrypto.HashBlockHeader(&block.Header)
	hashInt := new(big.Int).SetBytes(headerHash.Bytes())
	if hashInt.Cmp(n.cfg.Ceiling) >= 0 {
		return errCeilingNotMet
	}

	if len(block.Header.RandaoReveal) == 0 {
		return errMissingRandaoReveal
	}
	epoch := n.epochOf(block.Header.Slot)
	sched := n.ensureScheduleFor(epoch)
	proposerAddr, ok := sched.Proposers[block.Header.Slot]
	if !ok || proposerAddr != block.Header.Proposer {
		return errNotScheduled
	}
	proposerValidator, ok := n.beacon.Validator(proposerAddr)
	if !ok {
		return errNotScheduled
	}
	if !beaconcrypto.VerifyRandaoReveal(proposerValidator.RandaoPublicKey, epoch, block.Header.RandaoReveal) {
		return errBadRandaoReveal
	}

	for _, att := range block.Attestations {
		if _, ok := n.beacon.Validator(att.Validator); !ok {
			return errAttestationInPast
		}
		if !n.tree.Has(att.HeadHash) {
			return errAttestationInPast
		}
		if n.beacon.IsProcessed(block.Header.Hash, att.Validator) {
			return errAttestationInPast
		}
	}

	return nil
}
