package kernel

import (
	"runtime"
	"sync"

	"mote/trace"
)

// execContext is the saved execution point of a thread. The thread body runs
// on its own goroutine; control moves between the kernel and the thread only
// by handing a token over a channel, so at most one of them runs at a time.
type execContext struct {
	resume chan struct{}
	kill   chan struct{}
	once   sync.Once

	// started is guarded by the kernel section.
	started bool

	// discarded is only touched by the thread goroutine.
	discarded bool
}

func newExecContext() *execContext {
	return &execContext{
		resume: make(chan struct{}),
		kill:   make(chan struct{}),
	}
}

// discard makes a parked thread goroutine unwind without running any more
// thread code.
func (ec *execContext) discard() {
	ec.once.Do(func() { close(ec.kill) })
}

// switchToThread transfers control into slot idx and blocks until the thread
// yields back. fn is non-nil on the first switch and names the entry point.
// It reports false if the kernel was closed while waiting.
func (k *Kernel) switchToThread(idx uint8, ec *execContext, fn ThreadFunc) bool {
	k.tracer.Trace(trace.EvSwitchToThread, idx)
	if fn != nil {
		go k.dispatch(idx, ec, fn)
	} else {
		select {
		case ec.resume <- struct{}{}:
		case <-ec.kill:
			return true
		case <-k.quit:
			return false
		}
	}
	select {
	case <-k.yield:
	case <-k.quit:
		return false
	}
	k.tracer.Trace(trace.EvSwitchFromThread, idx)
	return true
}

// yieldToKernel hands control back to the kernel and parks the calling thread
// until it is switched in again.
func (k *Kernel) yieldToKernel(ec *execContext) {
	select {
	case k.yield <- struct{}{}:
	case <-k.quit:
		ec.discarded = true
		runtime.Goexit()
	}
	select {
	case <-ec.resume:
	case <-ec.kill:
		ec.discarded = true
		runtime.Goexit()
	case <-k.quit:
		ec.discarded = true
		runtime.Goexit()
	}
}

// handoffFinal is the last yield of a destroyed thread. The goroutine returns
// right after.
func (k *Kernel) handoffFinal() {
	select {
	case k.yield <- struct{}{}:
	case <-k.quit:
	}
}

// dispatch is the body of every thread goroutine: run the entry function to
// completion, then destroy the thread. Destruction sits in the outer defer so
// a Goexit from the exit hook cannot skip it.
func (k *Kernel) dispatch(idx uint8, ec *execContext, fn ThreadFunc) {
	ctx := &Context{k: k, idx: idx}
	defer func() {
		if ec.discarded {
			return
		}
		k.destroyCurrentThread(idx)
		k.handoffFinal()
	}()
	defer func() {
		if ec.discarded {
			return
		}
		if r := recover(); r != nil {
			k.reportPanic(idx, r)
		}
		k.runExitHook(idx)
	}()
	fn(ctx)
}

func (k *Kernel) runExitHook(idx uint8) {
	a := k.atomic.Start()
	t := &k.threads[idx]
	fn := t.onExit
	t.onExit = nil
	t.exiting = fn != nil
	a.End()
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			k.reportPanic(idx, r)
		}
	}()
	fn()
}
