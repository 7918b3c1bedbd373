package kernel

import "mote/trace"

// threadTask runs one scheduling slice: pick a thread, check its guard,
// switch into it, and once it yields, service pending sleeps.
func (k *Kernel) threadTask() {
	select {
	case <-k.quit:
		return
	default:
	}

	idx, ok := k.selectNext()
	if !ok {
		return
	}
	if !k.checkGuard(idx) {
		a := k.atomic.Start()
		k.cyclePending = false
		a.End()
		return
	}

	a := k.atomic.Start()
	t := &k.threads[idx]
	ec := t.ec
	var fn ThreadFunc
	if !ec.started {
		fn, _ = t.entry()
		ec.started = true
		t.wait = nil
	}
	k.current = int(idx)
	a.End()

	alive := k.switchToThread(idx, ec, fn)

	a = k.atomic.Start()
	k.current = noThread
	if !alive {
		k.cyclePending = false
	}
	a.End()
	if alive {
		k.handleService()
	}
}

// handleService arms the timer of the first PRESLEEP thread and comes back
// for the next one; with nothing left to arm it posts the next slice.
func (k *Kernel) handleService() {
	a := k.atomic.Start()
	for i := range k.threads {
		t := &k.threads[i]
		if t.state != StatePreSleep {
			continue
		}
		ms, _ := t.sleepMillis()
		t.state = StateSleep
		if !k.post.Post(k.handleService, PrioService) {
			k.cyclePending = false
		}
		a.End()

		k.tracer.Trace(trace.EvThreadSleep, uint8(i))
		if !k.timers.StartOneShot(uint8(i), ms) {
			k.log.Warn().Int("thread", i).Uint16("ms", ms).Msg("sleep timer not armed, waking")
			k.Wake(uint8(i))
		}
		return
	}
	if !k.post.Post(k.threadTask, PrioThreadTask) {
		k.cyclePending = false
	}
	a.End()
}
