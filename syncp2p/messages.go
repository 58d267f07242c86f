// Package syncp2p implements the three-message chain-synchronization
// protocol (spec.md §4.8): HeadBroadcast, ChainRequest, ChainResponse. It is
// deliberately thin — message shapes plus the handling logic a Node's
// transport layer calls into — grounded on the teacher's RPCClient's
// request/response pairing idiom (cmd/equa-beacon-engine/engine/rpc.go),
// generalized from an Engine-API JSON-RPC client to an in-process message
// switch.
package syncp2p

import "github.com/beaconsim/beaconsim/types"

// HeadBroadcast announces a node's head. The in-process network sends one
// to every peer after each block a node proposes; nothing sends it on a
// timer.
type HeadBroadcast struct {
	From types.Address `json:"from"`
	Head types.Hash    `json:"head"`
}

// ChainRequest is sent directly to a peer whose announced head is unknown
// locally, asking for the canonical chain back to genesis level.
type ChainRequest struct {
	From          types.Address `json:"from"`
	To            types.Address `json:"to"`
	RequestedHead types.Hash    `json:"requestedHead"`
}

// ChainResponse answers a ChainRequest with the canonical chain from
// genesis to RequestedHead, in that order. A responder that does not have
// RequestedHead sends no response at all (spec.md §4.8) — there is no
// "not found" ChainResponse variant.
type ChainResponse struct {
	From          types.Address  `json:"from"`
	To            types.Address  `json:"to"`
	RequestedHead types.Hash     `json:"requestedHead"`
	Blocks        []*types.Block `json:"blocks"`
}
