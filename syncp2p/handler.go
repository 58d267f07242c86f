package syncp2p

import (
	"sync"

	"github.com/beaconsim/beaconsim/consensus"
	"github.com/beaconsim/beaconsim/types"
	"github.com/ethereum/go-ethereum/log"
)

// Transport is the thin send-side the Handler needs from whatever binds
// nodes together (the network package's in-process switch, or a real
// socket layer). Direct sends target one peer; HeadBroadcast fans out to
// everyone.
type Transport interface {
	SendChainRequest(to types.Address, req ChainRequest)
	SendChainResponse(to types.Address, resp ChainResponse)
}

// Handler wraps one Node with the sync protocol's reactive rules
// (spec.md §4.8). It deduplicates in-flight requests for the same head so a
// storm of identical HeadBroadcasts produces one ChainRequest, mirroring the
// teacher's RPCClient's single-flight-per-inflight-id idiom generalized from
// JSON-RPC calls to chain-sync requests.
type Handler struct {
	node      *consensus.Node
	transport Transport

	mu      sync.Mutex
	pending map[types.Hash]bool
}

// NewHandler binds node to transport.
func NewHandler(node *consensus.Node, transport Transport) *Handler {
	return &Handler{
		node:      node,
		transport: transport,
		pending:   make(map[types.Hash]bool),
	}
}

// HandleHeadBroadcast reacts to a peer announcing head. If the head is
// unknown locally, a ChainRequest is issued; duplicate requests for the same
// still-unresolved head are suppressed (spec.md §4.8 "idempotent").
func (h *Handler) HandleHeadBroadcast(msg HeadBroadcast) {
	if h.node.HasBlock(msg.Head) {
		return
	}

	h.mu.Lock()
	if h.pending[msg.Head] {
		h.mu.Unlock()
		return
	}
	h.pending[msg.Head] = true
	h.mu.Unlock()

	h.transport.SendChainRequest(msg.From, ChainRequest{
		From:          h.node.Address(),
		To:            msg.From,
		RequestedHead: msg.Head,
	})
}

// HandleChainRequest answers req if the requested head is known. A
// responder missing RequestedHead sends nothing back, per spec.md §4.8 — a
// silent miss, not an error response.
func (h *Handler) HandleChainRequest(req ChainRequest) {
	if !h.node.HasBlock(req.RequestedHead) {
		log.Debug("chain request for unknown head dropped", "node", h.node.ID(), "head", req.RequestedHead.Hex()[:10])
		return
	}

	blocks, err := h.node.ChainUpTo(req.RequestedHead)
	if err != nil {
		return
	}

	h.transport.SendChainResponse(req.From, ChainResponse{
		From:          h.node.Address(),
		To:            req.From,
		RequestedHead: req.RequestedHead,
		Blocks:        blocks,
	})
}

// HandleChainResponse applies each block of resp in order, allowing partial
// success: blocks already known or whose parent is not yet present are
// skipped rather than aborting the whole response (spec.md §4.8
// "add_chain"). A response this node never requested is ignored.
func (h *Handler) HandleChainResponse(resp ChainResponse) {
	h.mu.Lock()
	requested := h.pending[resp.RequestedHead]
	if requested {
		delete(h.pending, resp.RequestedHead)
	}
	h.mu.Unlock()

	if !requested {
		log.Debug("unsolicited chain response ignored", "node", h.node.ID(), "head", resp.RequestedHead.Hex()[:10])
		return
	}

	applied := 0
	for _, block := range resp.Blocks {
		if h.node.HasBlock(block.Header.Hash) {
			continue
		}
		if err := h.node.ReceiveBlock(block); err != nil {
			log.Debug("add_chain block rejected", "node", h.node.ID(), "hash", block.Header.Hash.Hex()[:10], "err", err)
			continue
		}
		applied++
	}
	log.Info("chain sync applied", "node", h.node.ID(), "from", resp.From.Hex()[:10], "blocks", len(resp.Blocks), "applied", applied)
}
