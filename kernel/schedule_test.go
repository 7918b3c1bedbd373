package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func picks(t *testing.T, k *Kernel, n int) []uint8 {
	t.Helper()
	out := make([]uint8, 0, n)
	for i := 0; i < n; i++ {
		idx, ok := k.selectNext()
		require.True(t, ok, "pick %d", i)
		out = append(out, idx)
	}
	return out
}

func TestSelectNextCreditOrder(t *testing.T) {
	h := newHarness(t, RetireCorrupted)
	h.create(t, idle, 3, "p3")
	h.create(t, idle, 1, "p1")
	h.create(t, idle, 2, "p2")

	want := []uint8{0, 0, 2, 0, 1, 2}
	for gen := 0; gen < 3; gen++ {
		got := picks(t, h.k, len(want))
		if !assert.Equal(t, want, got, "generation %d", gen) {
			return
		}
	}
}

func TestSelectNextCountsMatchPriorities(t *testing.T) {
	h := newHarness(t, RetireCorrupted)
	prios := []uint8{2, 5, 1, 3}
	total := 0
	for _, p := range prios {
		h.create(t, idle, p, "w")
		total += int(p)
	}

	for gen := 0; gen < 4; gen++ {
		counts := make(map[uint8]int)
		for _, idx := range picks(t, h.k, total) {
			counts[idx]++
		}
		for i, p := range prios {
			assert.Equal(t, int(p), counts[uint8(i)], "slot %d generation %d", i, gen)
		}
	}
}

func TestSelectNextSkipsInactive(t *testing.T) {
	h := newHarness(t, RetireCorrupted)
	h.create(t, idle, 5, "sleeper")
	h.create(t, idle, 1, "runner")

	a := h.k.atomic.Start()
	h.k.threads[0].state = StateSleep
	h.k.threads[0].wait = sleepInfo{ms: 10}
	a.End()

	assert.Equal(t, []uint8{1, 1, 1}, picks(t, h.k, 3))
}

func TestSelectNextNoActiveClearsPending(t *testing.T) {
	h := newHarness(t, RetireCorrupted)
	h.create(t, idle, 1, "w")
	require.True(t, h.k.CyclePending())

	a := h.k.atomic.Start()
	h.k.threads[0].state = StateBreak
	a.End()

	_, ok := h.k.selectNext()
	assert.False(t, ok)
	assert.False(t, h.k.CyclePending())
}

// A wake landing between the scan and the refill joins the new generation.
func TestSelectNextInterleavedWake(t *testing.T) {
	h := newHarness(t, RetireCorrupted)
	h.create(t, idle, 1, "a")
	h.create(t, idle, 1, "b")
	h.create(t, idle, 2, "late")

	a := h.k.atomic.Start()
	h.k.threads[2].state = StateSleep
	h.k.threads[2].wait = sleepInfo{ms: 5}
	a.End()

	require.Equal(t, []uint8{0, 1}, picks(t, h.k, 2))

	woke := 0
	h.k.betweenPhases = func() {
		woke++
		h.k.Wake(2)
	}
	first, ok := h.k.selectNext()
	h.k.betweenPhases = nil
	require.True(t, ok)
	require.Equal(t, 1, woke)
	assert.Equal(t, uint8(0), first)
	assert.Equal(t, StateActive, h.state(2))

	counts := map[uint8]int{first: 1}
	for _, idx := range picks(t, h.k, 3) {
		counts[idx]++
	}
	assert.Equal(t, map[uint8]int{0: 1, 1: 1, 2: 2}, counts)

	for _, ti := range h.k.Snapshot()[:3] {
		assert.Equal(t, int16(0), ti.Remaining, "slot %d", ti.Index)
	}
}

// A create landing between the scan and the refill is refilled with the rest.
func TestSelectNextInterleavedCreate(t *testing.T) {
	h := newHarness(t, RetireCorrupted)
	h.create(t, idle, 1, "a")
	require.Equal(t, []uint8{0}, picks(t, h.k, 1))

	h.k.betweenPhases = func() {
		h.k.betweenPhases = nil
		_, res := h.k.CreateThread(idle, slotRegion(1), testBSS, 3, "new")
		require.Equal(t, CreateOK, res)
	}
	first, ok := h.k.selectNext()
	require.True(t, ok)
	assert.Equal(t, uint8(0), first)

	ti, _ := h.k.Thread(1)
	assert.Equal(t, int16(3), ti.Remaining)
	assert.Equal(t, []uint8{1, 1, 1}, picks(t, h.k, 3))
}
