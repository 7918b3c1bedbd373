package kernel

import (
	"sync"
	"testing"
	"time"

	"mote/taskq"
	"mote/trace"
)

type arm struct {
	id uint8
	ms uint16
}

type fakeTimers struct {
	mu       sync.Mutex
	oneShot  []arm
	periodic []arm

	// fire, when set, wakes the slot from a goroutine after the delay.
	fire func(id uint8)
}

func (f *fakeTimers) StartOneShot(id uint8, ms uint16) bool {
	f.mu.Lock()
	f.oneShot = append(f.oneShot, arm{id, ms})
	fire := f.fire
	f.mu.Unlock()
	if fire != nil {
		go func() {
			time.Sleep(time.Duration(ms) * time.Millisecond)
			fire(id)
		}()
	}
	return true
}

func (f *fakeTimers) StartPeriodic(id uint8, ms uint16) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.periodic = append(f.periodic, arm{id, ms})
	return true
}

func (f *fakeTimers) oneShots() []arm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]arm(nil), f.oneShot...)
}

type fakeDrivers struct {
	mu       sync.Mutex
	ranges   []Region
	released []uint8
}

func (f *fakeDrivers) DeregisterIOHandlesInRange(start, end uint16) {
	f.mu.Lock()
	f.ranges = append(f.ranges, Region{Start: start, End: end})
	f.mu.Unlock()
}

func (f *fakeDrivers) ReleaseMutexesOwnedBy(idx uint8) {
	f.mu.Lock()
	f.released = append(f.released, idx)
	f.mu.Unlock()
}

type harness struct {
	k       *Kernel
	q       *taskq.Queue
	timers  *fakeTimers
	drivers *fakeDrivers
	rec     *trace.Recorder
}

func newHarness(t *testing.T, policy FaultPolicy) *harness {
	t.Helper()
	h := &harness{
		q:       taskq.New(),
		timers:  &fakeTimers{},
		drivers: &fakeDrivers{},
		rec:     trace.NewRecorder(trace.Config{Capacity: 512}),
	}
	h.k = New(Config{
		Poster:      h.q,
		Timers:      h.timers,
		Tracer:      h.rec,
		Drivers:     h.drivers,
		FaultPolicy: policy,
	})
	t.Cleanup(h.k.Close)
	return h
}

func slotRegion(i int) Region {
	return Region{Start: uint16(i * 256), End: uint16(i*256 + 256)}
}

const testBSS = 16

func (h *harness) create(t *testing.T, fn ThreadFunc, prio uint8, name string) uint8 {
	t.Helper()
	a := h.k.atomic.Start()
	free := -1
	for i := range h.k.threads {
		if h.k.threads[i].state == StateNull {
			free = i
			break
		}
	}
	a.End()
	if free < 0 {
		t.Fatalf("no free slot for %s", name)
	}
	idx, res := h.k.CreateThread(fn, slotRegion(free), testBSS, prio, name)
	if res != CreateOK {
		t.Fatalf("CreateThread(%s) = %v", name, res)
	}
	return idx
}

func (h *harness) state(idx uint8) State {
	ti, _ := h.k.Thread(idx)
	return ti.State
}

func idle(ctx *Context) {
	for {
		ctx.Yield()
	}
}
