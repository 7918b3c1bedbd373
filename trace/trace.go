// Package trace records kernel and system-call events.
//
// Events are kept in a fixed ring (oldest entries are overwritten) and may be
// mirrored to a structured logger. Tracing is never required for correctness.
package trace

import (
	"sync"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/rs/zerolog"
)

// Kind identifies a trace event.
type Kind uint8

const (
	EvThreadCreate Kind = iota + 1
	EvThreadDestroy
	EvSwitchToThread
	EvSwitchFromThread
	EvMemError
	EvThreadBreak
	EvThreadReap
	EvThreadSleep
	EvThreadWake
	EvThreadContinue

	EvSyscallYield
	EvSyscallSleep
	EvSyscallExit
	EvSyscallBreak
	EvSyscallThreadIndex
	EvSyscallThreadHandle
	EvSyscallLEDOn
	EvSyscallLEDOff
	EvSyscallLEDToggle
	EvSyscallReadEEPROM
	EvSyscallWriteEEPROM
	EvSyscallADC
	EvSyscallMutex
	EvSyscallUnlock
	EvSyscallRegisterReceive
	EvSyscallPostTask
	EvSyscallPostThreadTask
	EvSyscallOnExit
	EvSyscallReceive
)

func (k Kind) String() string {
	switch k {
	case EvThreadCreate:
		return "thread_create"
	case EvThreadDestroy:
		return "thread_destroy"
	case EvSwitchToThread:
		return "switch_to_thread"
	case EvSwitchFromThread:
		return "switch_from_thread"
	case EvMemError:
		return "mem_error"
	case EvThreadBreak:
		return "thread_break"
	case EvThreadReap:
		return "thread_reap"
	case EvThreadSleep:
		return "thread_sleep"
	case EvThreadWake:
		return "thread_wake"
	case EvThreadContinue:
		return "thread_continue"
	case EvSyscallYield:
		return "sys_yield"
	case EvSyscallSleep:
		return "sys_sleep"
	case EvSyscallExit:
		return "sys_exit"
	case EvSyscallBreak:
		return "sys_break"
	case EvSyscallThreadIndex:
		return "sys_thread_index"
	case EvSyscallThreadHandle:
		return "sys_thread_handle"
	case EvSyscallLEDOn:
		return "sys_led_on"
	case EvSyscallLEDOff:
		return "sys_led_off"
	case EvSyscallLEDToggle:
		return "sys_led_toggle"
	case EvSyscallReadEEPROM:
		return "sys_read_eeprom"
	case EvSyscallWriteEEPROM:
		return "sys_write_eeprom"
	case EvSyscallADC:
		return "sys_adc"
	case EvSyscallMutex:
		return "sys_mutex"
	case EvSyscallUnlock:
		return "sys_unlock"
	case EvSyscallRegisterReceive:
		return "sys_register_receive"
	case EvSyscallPostTask:
		return "sys_post_task"
	case EvSyscallPostThreadTask:
		return "sys_post_thread_task"
	case EvSyscallOnExit:
		return "sys_on_exit"
	case EvSyscallReceive:
		return "sys_receive"
	default:
		return "unknown"
	}
}

// Tracer receives trace events.
type Tracer interface {
	Trace(kind Kind, thread uint8)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Trace(Kind, uint8) {}

// Event is one recorded trace entry.
type Event struct {
	Seq    uint32
	Kind   Kind
	Thread uint8
}

// DefaultCapacity is the ring size used when Config.Capacity is zero.
const DefaultCapacity = 64

// Config configures a Recorder.
type Config struct {
	// Capacity is the number of events retained.
	Capacity int

	// Log mirrors events at debug level when set.
	Log *zerolog.Logger

	// Rates limits mirrored log lines per event kind, e.g. {time.Second: 20}.
	// Recording into the ring is never limited.
	Rates map[time.Duration]int
}

// Recorder is a fixed-capacity event ring.
type Recorder struct {
	mu     sync.Mutex
	seq    uint32
	head   int
	n      int
	events []Event

	log     *zerolog.Logger
	limiter *catrate.Limiter
}

// NewRecorder returns a Recorder configured by cfg.
func NewRecorder(cfg Config) *Recorder {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	r := &Recorder{
		events: make([]Event, cfg.Capacity),
		log:    cfg.Log,
	}
	if len(cfg.Rates) != 0 {
		r.limiter = catrate.NewLimiter(cfg.Rates)
	}
	return r
}

// Trace records one event.
func (r *Recorder) Trace(kind Kind, thread uint8) {
	r.mu.Lock()
	r.seq++
	ev := Event{Seq: r.seq, Kind: kind, Thread: thread}
	r.events[r.head] = ev
	r.head = (r.head + 1) % len(r.events)
	if r.n < len(r.events) {
		r.n++
	}
	r.mu.Unlock()

	if r.log == nil {
		return
	}
	if r.limiter != nil {
		if _, ok := r.limiter.Allow(kind); !ok {
			return
		}
	}
	r.log.Debug().
		Uint32("seq", ev.Seq).
		Stringer("event", kind).
		Uint8("thread", thread).
		Msg("trace")
}

// Events appends the retained events, oldest first, to dst.
func (r *Recorder) Events(dst []Event) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := (r.head - r.n + len(r.events)) % len(r.events)
	for i := 0; i < r.n; i++ {
		dst = append(dst, r.events[(start+i)%len(r.events)])
	}
	return dst
}

// Count returns how many events of kind are currently retained.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	start := (r.head - r.n + len(r.events)) % len(r.events)
	for i := 0; i < r.n; i++ {
		if r.events[(start+i)%len(r.events)].Kind == kind {
			count++
		}
	}
	return count
}

// Total returns the number of events ever recorded.
func (r *Recorder) Total() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}
