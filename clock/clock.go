// Package clock is the external slot-clock collaborator (spec.md §6): it
// owns wall-clock time and ticks a callback once per slot. Nothing else in
// the simulator reads system time directly, keeping the rest of the module
// deterministic and independently testable. Grounded on the teacher's
// Engine.slotTicker (cmd/equa-beacon-engine/engine/engine.go): a
// time.Ticker feeding a buffered channel drained by a single consumer
// goroutine, generalized from one engine's internal channel to an
// injectable callback so it can drive an entire network.Network.
package clock

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// Clock ticks once every period, starting at startSlot.
type Clock struct {
	period    time.Duration
	startSlot uint64
}

// New returns a Clock that ticks every period, starting the slot counter at
// startSlot (1, conventionally — slot 0 is genesis and is never ticked).
func New(period time.Duration, startSlot uint64) *Clock {
	return &Clock{period: period, startSlot: startSlot}
}

// Run invokes onTick once per slot until ctx is cancelled. Ticks are
// sequential: onTick for slot N+1 does not begin until onTick for slot N
// returns, matching spec.md §5's single-threaded-per-node event model
// scaled up to "one slot's worth of network-wide work completes before the
// next begins."
func (c *Clock) Run(ctx context.Context, onTick func(ctx context.Context, slot uint64) error) {
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	slot := c.startSlot
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := onTick(ctx, slot); err != nil {
				log.Error("slot processing failed", "slot", slot, "err", err)
			}
			slot++
		}
	}
}
