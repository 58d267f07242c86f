package clock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClockTicksSequentialSlots(t *testing.T) {
	c := New(5*time.Millisecond, 1)

	var seen int64
	ctx, cancel := context.WithCancel(context.Background())

	var got []uint64
	done := make(chan struct{})
	go func() {
		c.Run(ctx, func(_ context.Context, slot uint64) error {
			got = append(got, slot)
			if atomic.AddInt64(&seen, 1) == 3 {
				cancel()
			}
			return nil
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("clock did not stop after cancel")
	}

	require.GreaterOrEqual(t, len(got), 3)
	require.Equal(t, uint64(1), got[0])
	require.Equal(t, uint64(2), got[1])
	require.Equal(t, uint64(3), got[2])
}
