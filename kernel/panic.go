package kernel

import "sync/atomic"

// PanicInfo contains details about a panic recovered from a thread.
type PanicInfo struct {
	Thread uint8
	Name   string
	Value  any
	Stack  []byte
}

var panicHandler atomic.Value // func(PanicInfo)

// SetPanicHandler installs a process-wide handler for thread panics.
//
// The handler runs on the panicking thread before it is destroyed. It must
// not panic or yield.
func SetPanicHandler(fn func(PanicInfo)) {
	panicHandler.Store(fn)
}

func (k *Kernel) reportPanic(idx uint8, v any) {
	a := k.atomic.Start()
	name := k.threads[idx].nameString()
	a.End()

	info := PanicInfo{Thread: idx, Name: name, Value: v, Stack: captureStack()}
	k.log.Error().
		Uint8("thread", idx).
		Str("name", name).
		Interface("panic", v).
		Msg("thread panicked")
	if h := panicHandler.Load(); h != nil {
		if fn, ok := h.(func(PanicInfo)); ok && fn != nil {
			fn(info)
		}
	}
}
