// Package kernel is the thread core of the node: a fixed thread table, a
// credit scheduler, goroutine-backed context switching, sleep/wake and a
// sentinel corruption guard.
//
// Threads are cooperative. Exactly one flow runs on the node at a time: either
// the kernel (inside a task posted to the deferred-task runner) or the thread
// it switched into. Control only returns to the kernel when the thread yields.
package kernel

import (
	"sync"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/rs/zerolog"

	"mote/trace"
)

// DefaultRAMSize matches the data memory of the reference node.
const DefaultRAMSize = 4096

// Task priority levels used when posting kernel work.
const (
	PrioThreadTask uint8 = 2
	PrioService    uint8 = 3
)

// Poster runs deferred tasks.
type Poster interface {
	Post(fn func(), prio uint8) bool
}

// Timers arms timers whose expiry is reported back through
// Kernel.ServiceTimerFired.
type Timers interface {
	StartOneShot(id uint8, ms uint16) bool
	StartPeriodic(id uint8, ms uint16) bool
}

// Tracer receives trace events.
type Tracer = trace.Tracer

// Drivers is the I/O layer cleanup invoked when a thread dies.
type Drivers interface {
	DeregisterIOHandlesInRange(start, end uint16)
	ReleaseMutexesOwnedBy(idx uint8)
}

// FaultPolicy decides what happens to a slot whose sentinels were overwritten.
type FaultPolicy uint8

const (
	// RetireCorrupted leaves the slot in StateMemError until Reap is called.
	RetireCorrupted FaultPolicy = iota
	// ReclaimCorrupted frees the slot as soon as corruption is detected.
	ReclaimCorrupted
)

func (p FaultPolicy) String() string {
	switch p {
	case RetireCorrupted:
		return "retire"
	case ReclaimCorrupted:
		return "reclaim"
	default:
		return "unknown"
	}
}

// Config wires the kernel to its collaborators. Nil collaborators are
// replaced by no-op implementations, except Poster which is required for
// anything to run.
type Config struct {
	RAMSize      int
	Poster       Poster
	Timers       Timers
	Tracer       Tracer
	Drivers      Drivers
	Guard        Guard
	FaultPolicy  FaultPolicy
	TickPeriodMs uint16
	Log          zerolog.Logger
}

// Kernel owns the thread table.
type Kernel struct {
	atomic Section

	threads      [MaxThreads]thread
	current      int
	cyclePending bool

	ram []byte

	post    Poster
	timers  Timers
	tracer  Tracer
	drivers Drivers
	guard   Guard
	policy  FaultPolicy
	tick    uint16

	log    zerolog.Logger
	faults *catrate.Limiter

	yield     chan struct{}
	quit      chan struct{}
	closeOnce sync.Once

	betweenPhases func()
}

// New creates a kernel instance.
func New(cfg Config) *Kernel {
	if cfg.RAMSize <= 0 {
		cfg.RAMSize = DefaultRAMSize
	}
	if cfg.RAMSize > 1<<16 {
		cfg.RAMSize = 1 << 16
	}
	k := &Kernel{
		current: noThread,
		ram:     make([]byte, cfg.RAMSize),
		post:    cfg.Poster,
		timers:  cfg.Timers,
		tracer:  cfg.Tracer,
		drivers: cfg.Drivers,
		guard:   cfg.Guard,
		policy:  cfg.FaultPolicy,
		tick:    cfg.TickPeriodMs,
		log:     cfg.Log,
		faults: catrate.NewLimiter(map[time.Duration]int{
			time.Second: 1,
			time.Minute: 10,
		}),
		yield: make(chan struct{}),
		quit:  make(chan struct{}),
	}
	if k.post == nil {
		k.post = nopPoster{}
	}
	if k.timers == nil {
		k.timers = nopTimers{}
	}
	if k.tracer == nil {
		k.tracer = trace.Nop{}
	}
	if k.drivers == nil {
		k.drivers = nopDrivers{}
	}
	if k.guard == nil {
		k.guard = SentinelGuard{}
	}
	return k
}

// Boot arms the periodic scheduling tick, if configured.
func (k *Kernel) Boot() {
	if k.tick == 0 {
		return
	}
	if !k.timers.StartPeriodic(TickTimerID, k.tick) {
		k.log.Warn().Uint16("period_ms", k.tick).Msg("scheduling tick not armed")
	}
}

// Close discards every parked thread context. The kernel must not be used
// afterwards.
func (k *Kernel) Close() {
	k.closeOnce.Do(func() { close(k.quit) })
}

// Atomic returns the node-wide critical section.
func (k *Kernel) Atomic() *Section { return &k.atomic }

// RAM returns the byte range r of node memory, or nil if r is out of bounds.
func (k *Kernel) RAM(r Region) []byte {
	if r.Start > r.End || int(r.End) > len(k.ram) {
		return nil
	}
	return k.ram[r.Start:r.End:r.End]
}

// RAMSize returns the size of node memory.
func (k *Kernel) RAMSize() int { return len(k.ram) }

// IsThread reports whether control is currently inside a thread.
func (k *Kernel) IsThread() bool {
	a := k.atomic.Start()
	defer a.End()
	return k.current != noThread
}

// CurrentIndex returns the slot of the running thread, or 0 when called from
// kernel context.
func (k *Kernel) CurrentIndex() uint8 {
	a := k.atomic.Start()
	defer a.End()
	if k.current == noThread {
		return 0
	}
	return uint8(k.current)
}

// Current returns the running thread's context, or nil from kernel context.
func (k *Kernel) Current() *Context {
	a := k.atomic.Start()
	defer a.End()
	if k.current == noThread {
		return nil
	}
	return &Context{k: k, idx: uint8(k.current)}
}

// Thread returns a snapshot of slot idx.
func (k *Kernel) Thread(idx uint8) (ThreadInfo, bool) {
	if int(idx) >= MaxThreads {
		return ThreadInfo{}, false
	}
	a := k.atomic.Start()
	defer a.End()
	return k.threads[idx].info(idx), true
}

// Snapshot returns every slot, free ones included.
func (k *Kernel) Snapshot() []ThreadInfo {
	a := k.atomic.Start()
	defer a.End()
	out := make([]ThreadInfo, MaxThreads)
	for i := range k.threads {
		out[i] = k.threads[i].info(uint8(i))
	}
	return out
}

// CyclePending reports whether a scheduling cycle is queued or running.
func (k *Kernel) CyclePending() bool {
	a := k.atomic.Start()
	defer a.End()
	return k.cyclePending
}

// armCycleLocked posts the thread task unless a cycle is already pending.
func (k *Kernel) armCycleLocked() {
	if k.cyclePending {
		return
	}
	if k.post.Post(k.threadTask, PrioThreadTask) {
		k.cyclePending = true
	}
}

// PostThreadTask requests a scheduling cycle if none is pending.
func (k *Kernel) PostThreadTask() {
	a := k.atomic.Start()
	k.armCycleLocked()
	a.End()
}

type nopPoster struct{}

func (nopPoster) Post(func(), uint8) bool { return false }

type nopTimers struct{}

func (nopTimers) StartOneShot(uint8, uint16) bool  { return false }
func (nopTimers) StartPeriodic(uint8, uint16) bool { return false }

type nopDrivers struct{}

func (nopDrivers) DeregisterIOHandlesInRange(uint16, uint16) {}
func (nopDrivers) ReleaseMutexesOwnedBy(uint8)              {}
