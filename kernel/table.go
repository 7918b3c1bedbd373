package kernel

import "mote/trace"

// CreateResult describes the outcome of CreateThread.
type CreateResult uint8

const (
	CreateOK CreateResult = iota
	CreateErrInThread
	CreateErrNoSlot
	CreateErrNilEntry
	CreateErrBadRegion
	CreateErrBadPriority
)

func (r CreateResult) String() string {
	switch r {
	case CreateOK:
		return "ok"
	case CreateErrInThread:
		return "called from thread context"
	case CreateErrNoSlot:
		return "no free slot"
	case CreateErrNilEntry:
		return "nil entry"
	case CreateErrBadRegion:
		return "bad memory region"
	case CreateErrBadPriority:
		return "zero priority"
	default:
		return "unknown"
	}
}

// CreateThread installs entry in the first free slot. region is the thread's
// memory; its End is the stack top. The sentinels are planted right after
// staticDataSize bytes of static data. Threads cannot create threads.
//
// On failure the table is left untouched.
func (k *Kernel) CreateThread(entry ThreadFunc, region Region, staticDataSize uint16, priority uint8, name string) (uint8, CreateResult) {
	if entry == nil {
		return 0, CreateErrNilEntry
	}
	if priority == 0 {
		return 0, CreateErrBadPriority
	}
	if !k.validRegion(region, staticDataSize) {
		return 0, CreateErrBadRegion
	}

	a := k.atomic.Start()
	if k.current != noThread {
		a.End()
		return 0, CreateErrInThread
	}
	idx := -1
	for i := range k.threads {
		if k.threads[i].state == StateNull {
			idx = i
			break
		}
	}
	if idx < 0 {
		a.End()
		return 0, CreateErrNoSlot
	}

	t := &k.threads[idx]
	*t = thread{
		state:     StateActive,
		ec:        newExecContext(),
		wait:      entryInfo{fn: entry},
		priority:  priority,
		remaining: int16(priority),
		region:    region,
		bss:       staticDataSize,
	}
	copyName(&t.name, name)
	k.guard.Plant(k.ram, int(region.Start)+int(staticDataSize))
	k.armCycleLocked()
	a.End()

	k.tracer.Trace(trace.EvThreadCreate, uint8(idx))
	k.log.Debug().
		Int("thread", idx).
		Str("name", name).
		Uint8("priority", priority).
		Uint16("start", region.Start).
		Uint16("end", region.End).
		Msg("thread created")
	return uint8(idx), CreateOK
}

func (k *Kernel) validRegion(r Region, bss uint16) bool {
	if r.Start >= r.End || int(r.End) > len(k.ram) {
		return false
	}
	return int(r.Start)+int(bss)+SentinelBytes <= int(r.End)
}

// destroyCurrentThread frees the slot of the running thread. The caller must
// be that thread and must hand control back to the kernel right after.
func (k *Kernel) destroyCurrentThread(idx uint8) {
	a := k.atomic.Start()
	region := k.threads[idx].region
	a.End()

	k.drivers.DeregisterIOHandlesInRange(region.Start, region.End)
	k.drivers.ReleaseMutexesOwnedBy(idx)

	a = k.atomic.Start()
	k.threads[idx] = thread{}
	a.End()

	k.tracer.Trace(trace.EvThreadDestroy, idx)
	k.log.Debug().Uint8("thread", idx).Msg("thread destroyed")
}

type reaped struct {
	idx    uint8
	region Region
	ec     *execContext
}

// reapLocked frees slot idx and returns what is left to clean up once the
// section is released.
func (k *Kernel) reapLocked(idx uint8) *reaped {
	t := &k.threads[idx]
	r := &reaped{idx: idx, region: t.region, ec: t.ec}
	*t = thread{}
	return r
}

func (k *Kernel) finishReap(r *reaped) {
	k.drivers.DeregisterIOHandlesInRange(r.region.Start, r.region.End)
	k.drivers.ReleaseMutexesOwnedBy(r.idx)
	if r.ec != nil {
		r.ec.discard()
	}
	k.tracer.Trace(trace.EvThreadReap, r.idx)
	k.log.Info().Uint8("thread", r.idx).Msg("thread reaped")
}

// Reap frees a slot left in StateMemError or StateBreak. Its goroutine is
// discarded without running the exit hook.
func (k *Kernel) Reap(idx uint8) bool {
	if int(idx) >= MaxThreads {
		return false
	}
	a := k.atomic.Start()
	s := k.threads[idx].state
	if s != StateMemError && s != StateBreak {
		a.End()
		return false
	}
	r := k.reapLocked(idx)
	a.End()
	k.finishReap(r)
	return true
}

// Continue resumes a thread halted by Break.
func (k *Kernel) Continue(idx uint8) bool {
	if int(idx) >= MaxThreads {
		return false
	}
	a := k.atomic.Start()
	t := &k.threads[idx]
	if t.state != StateBreak {
		a.End()
		return false
	}
	t.state = StateActive
	k.armCycleLocked()
	a.End()
	k.tracer.Trace(trace.EvThreadContinue, idx)
	return true
}
