package kernel

import "mote/trace"

// Wake moves slot idx from SLEEP to ACTIVE and requests a scheduling cycle.
// Waking a slot that is out of range or not sleeping does nothing. Safe to
// call from any goroutine.
func (k *Kernel) Wake(idx uint8) {
	if int(idx) >= MaxThreads {
		return
	}
	a := k.atomic.Start()
	t := &k.threads[idx]
	if t.state != StateSleep {
		a.End()
		return
	}
	t.state = StateActive
	t.wait = nil
	k.armCycleLocked()
	a.End()
	k.tracer.Trace(trace.EvThreadWake, idx)
}

// UnblockIO releases every thread blocked on key. At most one scheduling
// cycle is requested regardless of how many threads were released.
func (k *Kernel) UnblockIO(key IOKey) int {
	var woken [MaxThreads]bool
	n := 0
	a := k.atomic.Start()
	for i := range k.threads {
		t := &k.threads[i]
		if got, ok := t.ioKey(); ok && got == key {
			t.state = StateActive
			t.wait = nil
			woken[i] = true
			n++
		}
	}
	if n > 0 {
		k.armCycleLocked()
	}
	a.End()
	for i, w := range woken {
		if w {
			k.tracer.Trace(trace.EvThreadWake, uint8(i))
		}
	}
	return n
}

// ServiceTimerFired is the timer callback. TickTimerID re-checks for pending
// scheduling work; any other id wakes that slot.
func (k *Kernel) ServiceTimerFired(id uint8) {
	if id == TickTimerID {
		k.PostThreadTask()
		return
	}
	k.Wake(id)
}
