package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mote/trace"
)

func TestSleepArmsTimerOnceAndWakes(t *testing.T) {
	h := newHarness(t, RetireCorrupted)

	done := false
	idx := h.create(t, func(ctx *Context) {
		ctx.Sleep(100)
		done = true
	}, 1, "sleeper")

	require.True(t, h.q.RunOnce())
	assert.Equal(t, StateSleep, h.state(idx))
	ti, _ := h.k.Thread(idx)
	assert.Equal(t, uint16(100), ti.SleepMillis)
	assert.Equal(t, []arm{{id: idx, ms: 100}}, h.timers.oneShots())

	h.q.RunPending(0)
	assert.Equal(t, []arm{{id: idx, ms: 100}}, h.timers.oneShots())
	assert.False(t, h.k.CyclePending())
	assert.Equal(t, 0, h.q.Len())

	h.k.ServiceTimerFired(idx)
	assert.Equal(t, StateActive, h.state(idx))
	assert.True(t, h.k.CyclePending())
	assert.Equal(t, 1, h.q.Len())
	assert.Equal(t, 1, h.rec.Count(trace.EvThreadWake))

	h.q.RunPending(0)
	assert.True(t, done)
	assert.Equal(t, StateNull, h.state(idx))
}

func TestSleepLetsOthersRun(t *testing.T) {
	h := newHarness(t, RetireCorrupted)

	var order []string
	h.create(t, func(ctx *Context) {
		ctx.Sleep(50)
		order = append(order, "sleeper")
	}, 1, "sleeper")
	h.create(t, func(ctx *Context) {
		for i := 0; i < 3; i++ {
			order = append(order, "worker")
			ctx.Yield()
		}
	}, 1, "worker")

	h.q.RunPending(0)
	assert.Equal(t, []string{"worker", "worker", "worker"}, order)

	h.k.ServiceTimerFired(0)
	h.q.RunPending(0)
	assert.Equal(t, "sleeper", order[len(order)-1])
}

func TestServiceTimerFiredTickRearmsCycle(t *testing.T) {
	h := newHarness(t, RetireCorrupted)
	h.k.tick = 10
	h.k.Boot()
	assert.Equal(t, []arm{{id: TickTimerID, ms: 10}}, h.timers.periodic)

	idx := h.create(t, func(ctx *Context) { ctx.Sleep(10) }, 1, "w")
	h.q.RunPending(0)
	require.Equal(t, StateSleep, h.state(idx))
	require.False(t, h.k.CyclePending())

	h.k.ServiceTimerFired(TickTimerID)
	assert.True(t, h.k.CyclePending())
	assert.Equal(t, 1, h.q.Len())

	h.k.ServiceTimerFired(TickTimerID)
	assert.Equal(t, 1, h.q.Len())

	h.q.RunPending(0)
	assert.False(t, h.k.CyclePending())
}

func TestWakeInvalidTargetIsNoop(t *testing.T) {
	h := newHarness(t, RetireCorrupted)
	idx := h.create(t, idle, 1, "w")
	h.q.RunPending(1)
	n := h.q.Len()

	h.k.Wake(200)
	h.k.Wake(idx)
	h.k.Wake(idx + 1)

	assert.Equal(t, StateActive, h.state(idx))
	assert.Equal(t, StateNull, h.state(idx+1))
	assert.Equal(t, n, h.q.Len())
	assert.Equal(t, 0, h.rec.Count(trace.EvThreadWake))
}

func TestUnblockIOBroadcast(t *testing.T) {
	h := newHarness(t, RetireCorrupted)

	match := IOKey{Type: 1, ID: 7}
	other := IOKey{Type: 1, ID: 8}
	keys := []IOKey{match, other, match, other, match}
	for _, key := range keys {
		key := key
		h.create(t, func(ctx *Context) {
			ctx.WaitIO(key, nil)
			idle(ctx)
		}, 1, "io")
	}

	h.q.RunPending(0)
	for i := range keys {
		require.Equal(t, StateIO, h.state(uint8(i)))
	}
	require.False(t, h.k.CyclePending())

	n := h.k.UnblockIO(match)
	assert.Equal(t, 3, n)
	for i, key := range keys {
		want := StateIO
		if key == match {
			want = StateActive
		}
		assert.Equal(t, want, h.state(uint8(i)), "slot %d", i)
	}
	assert.Equal(t, 1, h.q.Len())

	assert.Equal(t, 0, h.k.UnblockIO(IOKey{Type: 9, ID: 9}))
	assert.Equal(t, 1, h.q.Len())
}

func TestWaitIOChecksReadyUnderSection(t *testing.T) {
	h := newHarness(t, RetireCorrupted)

	key := IOKey{Type: 2, ID: 1}
	avail := 0
	got := 0
	idx := h.create(t, func(ctx *Context) {
		for got < 2 {
			ctx.WaitIO(key, func() bool { return avail > got })
			got++
		}
	}, 1, "reader")

	h.q.RunPending(0)
	require.Equal(t, StateIO, h.state(idx))

	// A spurious unblock puts the reader straight back to sleep.
	h.k.UnblockIO(key)
	h.q.RunPending(0)
	require.Equal(t, StateIO, h.state(idx))
	assert.Equal(t, 0, got)

	a := h.k.atomic.Start()
	avail = 2
	a.End()
	h.k.UnblockIO(key)
	h.q.RunPending(0)
	assert.Equal(t, 2, got)
	assert.Equal(t, StateNull, h.state(idx))
}

func TestWaitIOOutsideThread(t *testing.T) {
	h := newHarness(t, RetireCorrupted)
	h.create(t, idle, 1, "w")
	ctx := &Context{k: h.k, idx: 0}
	assert.False(t, ctx.WaitIO(IOKey{}, nil))
	assert.Equal(t, StateActive, h.state(0))
}
