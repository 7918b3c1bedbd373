package kernel

const (
	// MaxThreads is the size of the thread table.
	MaxThreads = 8

	// TickTimerID is the timer id reserved for the periodic scheduling tick.
	// Every other id below MaxThreads names the slot to wake.
	TickTimerID uint8 = 9

	// NameLen is the size of the fixed thread name buffer (NUL included).
	NameLen = 16

	noThread = -1
)

// State is the scheduling state of a thread slot.
type State uint8

const (
	StateNull State = iota
	StateActive
	StatePreSleep
	StateSleep
	StateIO
	StateMemError
	StateBreak
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "null"
	case StateActive:
		return "active"
	case StatePreSleep:
		return "presleep"
	case StateSleep:
		return "sleep"
	case StateIO:
		return "io"
	case StateMemError:
		return "mem_error"
	case StateBreak:
		return "break"
	default:
		return "unknown"
	}
}

// ThreadFunc is a thread entry point. Returning from it destroys the thread.
type ThreadFunc func(ctx *Context)

// IOKey identifies what a blocked thread waits for. Type values are defined
// by the driver layer.
type IOKey struct {
	Type uint8
	ID   uint8
}

// Region is a half-open byte range [Start, End) of node RAM. End is the
// thread's stack top.
type Region struct {
	Start uint16
	End   uint16
}

// Len returns the region size in bytes.
func (r Region) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return int(r.End - r.Start)
}

// Contains reports whether o lies entirely inside r.
func (r Region) Contains(o Region) bool {
	return o.Start >= r.Start && o.End <= r.End && o.Start <= o.End
}

// waitInfo holds the per-state data of a slot. Which variant is valid is
// decided by the slot state; the accessors on thread enforce that.
type waitInfo interface {
	waitInfo()
}

type entryInfo struct{ fn ThreadFunc }

type sleepInfo struct{ ms uint16 }

type ioInfo struct{ key IOKey }

func (entryInfo) waitInfo() {}
func (sleepInfo) waitInfo() {}
func (ioInfo) waitInfo()    {}

type thread struct {
	state State
	ec    *execContext
	wait  waitInfo

	priority  uint8
	remaining int16

	region Region
	bss    uint16
	name   [NameLen]byte

	onExit func()
	// exiting is set once the exit hook starts.
	exiting bool
}

// entry returns the entry point of a slot that has not run yet.
func (t *thread) entry() (ThreadFunc, bool) {
	if t.state != StateActive {
		return nil, false
	}
	e, ok := t.wait.(entryInfo)
	return e.fn, ok
}

func (t *thread) sleepMillis() (uint16, bool) {
	if t.state != StatePreSleep && t.state != StateSleep {
		return 0, false
	}
	s, ok := t.wait.(sleepInfo)
	return s.ms, ok
}

func (t *thread) ioKey() (IOKey, bool) {
	if t.state != StateIO {
		return IOKey{}, false
	}
	w, ok := t.wait.(ioInfo)
	return w.key, ok
}

func (t *thread) nameString() string {
	for i, b := range t.name {
		if b == 0 {
			return string(t.name[:i])
		}
	}
	return string(t.name[:])
}

func copyName(dst *[NameLen]byte, name string) {
	*dst = [NameLen]byte{}
	n := len(name)
	if n > NameLen-1 {
		n = NameLen - 1
	}
	copy(dst[:n], name[:n])
}

// ThreadInfo is a read-only snapshot of one slot.
type ThreadInfo struct {
	Index          uint8
	State          State
	Name           string
	Priority       uint8
	Remaining      int16
	Region         Region
	StaticDataSize uint16
	SleepMillis    uint16
	IO             IOKey
	Started        bool
}

func (t *thread) info(idx uint8) ThreadInfo {
	ti := ThreadInfo{
		Index:          idx,
		State:          t.state,
		Name:           t.nameString(),
		Priority:       t.priority,
		Remaining:      t.remaining,
		Region:         t.region,
		StaticDataSize: t.bss,
	}
	ti.SleepMillis, _ = t.sleepMillis()
	ti.IO, _ = t.ioKey()
	if t.ec != nil {
		ti.Started = t.ec.started
	}
	return ti
}
