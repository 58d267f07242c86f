// Package network binds a set of consensus.Node instances together with an
// in-process transport: direct block/attestation gossip plus the syncp2p
// chain-sync protocol. It is grounded on the teacher's Engine lifecycle
// (ctx/cancel/wg, a slot ticker driving a fan-out of work) generalized from
// one engine's internal goroutines to N engines' concurrent slot
// processing, and on its RPCClient's request/response plumbing generalized
// into syncp2p.Transport.
package network

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/beaconsim/beaconsim/consensus"
	"github.com/beaconsim/beaconsim/syncp2p"
	"github.com/beaconsim/beaconsim/types"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"
)

// Network owns every simulated node and fans slot ticks, block gossip, and
// attestation gossip out across them.
type Network struct {
	mu       sync.RWMutex
	nodes    map[types.Address]*consensus.Node
	handlers map[types.Address]*syncp2p.Handler
	order    []types.Address

	// dropRate simulates an unreliable transport: each direct block or
	// attestation delivery is silently dropped with this probability,
	// exercising the sync protocol's "peer never saw it" recovery path
	// (spec.md §4.8) instead of only its happy path. Head broadcasts and
	// sync messages are never dropped. Zero by default.
	dropRate float64
	rng      *rand.Rand
}

// New returns an empty Network. seed makes the simulated transport's drop
// decisions reproducible across runs.
func New(seed int64) *Network {
	return &Network{
		nodes:    make(map[types.Address]*consensus.Node),
		handlers: make(map[types.Address]*syncp2p.Handler),
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// SetDropRate configures the simulated unreliable-transport drop
// probability in [0, 1]; 1 drops every direct delivery.
func (net *Network) SetDropRate(rate float64) { net.dropRate = rate }

// AddNode registers n and wires its block/attestation broadcast hooks to
// fan out across every peer already or later present in the network.
func (net *Network) AddNode(n *consensus.Node) {
	net.mu.Lock()
	defer net.mu.Unlock()

	net.nodes[n.Address()] = n
	net.handlers[n.Address()] = syncp2p.NewHandler(n, net)
	net.order = append(net.order, n.Address())

	n.OnBlockBroadcast(func(block *types.Block) {
		net.broadcastBlock(n.Address(), block)
	})
	n.OnAttestationEmitted(func(att *types.Attestation) {
		net.broadcastAttestation(n.Address(), att)
	})
}

// Nodes returns every registered node, in registration order.
func (net *Network) Nodes() []*consensus.Node {
	net.mu.RLock()
	defer net.mu.RUnlock()
	out := make([]*consensus.Node, 0, len(net.order))
	for _, addr := range net.order {
		out = append(out, net.nodes[addr])
	}
	return out
}

func (net *Network) peersOf(from types.Address) []*consensus.Node {
	net.mu.RLock()
	defer net.mu.RUnlock()
	out := make([]*consensus.Node, 0, len(net.order))
	for _, addr := range net.order {
		if addr == from {
			continue
		}
		out = append(out, net.nodes[addr])
	}
	return out
}

func (net *Network) dropped() bool {
	if net.dropRate <= 0 {
		return false
	}
	net.mu.Lock()
	defer net.mu.Unlock()
	return net.rng.Float64() < net.dropRate
}

// broadcastBlock delivers block directly to every peer (a real gossip
// network would relay hop-by-hop; this simulator's Non-goals exclude
// network-topology modeling, so every peer is one hop) and then announces
// the broadcaster's new head, mirroring spec.md §4.8's two-channel design:
// blocks propagate eagerly, heads are what peers reconcile against when a
// direct delivery was lost.
func (net *Network) broadcastBlock(from types.Address, block *types.Block) {
	var wg sync.WaitGroup
	for _, peer := range net.peersOf(from) {
		if net.dropped() {
			continue
		}
		wg.Add(1)
		go func(p *consensus.Node) {
			defer wg.Done()
			if err := p.ReceiveBlock(block); err != nil {
				log.Debug("peer rejected broadcast block", "peer", p.ID(), "err", err)
			}
		}(peer)
	}
	wg.Wait()
	net.broadcastHead(from, block.Header.Hash)
}

// broadcastAttestation delivers att directly to every peer.
func (net *Network) broadcastAttestation(from types.Address, att *types.Attestation) {
	for _, peer := range net.peersOf(from) {
		if net.dropped() {
			continue
		}
		if err := peer.ReceiveAttestation(att); err != nil {
			log.Debug("peer rejected attestation", "peer", peer.ID(), "err", err)
		}
	}
}

// broadcastHead announces head, from's newly proposed head block, to every
// peer, letting a peer that missed the direct block delivery request it via
// syncp2p. The caller passes head in because from is still inside its own
// Tick, holding its node mutex, so from's Head() cannot be called here.
func (net *Network) broadcastHead(from types.Address, head types.Hash) {
	for _, peer := range net.peersOf(from) {
		net.mu.RLock()
		handler := net.handlers[peer.Address()]
		net.mu.RUnlock()
		handler.HandleHeadBroadcast(syncp2p.HeadBroadcast{From: from, Head: head})
	}
}

// SendChainRequest implements syncp2p.Transport.
func (net *Network) SendChainRequest(to types.Address, req syncp2p.ChainRequest) {
	net.mu.RLock()
	handler, ok := net.handlers[to]
	net.mu.RUnlock()
	if !ok {
		return
	}
	handler.HandleChainRequest(req)
}

// SendChainResponse implements syncp2p.Transport.
func (net *Network) SendChainResponse(to types.Address, resp syncp2p.ChainResponse) {
	net.mu.RLock()
	handler, ok := net.handlers[to]
	net.mu.RUnlock()
	if !ok {
		return
	}
	handler.HandleChainResponse(resp)
}

// Tick drives a single slot across every node concurrently, joining on the
// errgroup so the caller's clock can rely on every node having finished
// processing slot before advancing (spec.md §4.6's per-node state machine
// run once per node per slot).
func (net *Network) Tick(ctx context.Context, slot uint64) error {
	nodes := net.Nodes()
	g, _ := errgroup.WithContext(ctx)
	for _, n := range nodes {
		n := n
		g.Go(func() error {
			n.Tick(slot)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("network: slot %d: %w", slot, err)
	}
	return nil
}
