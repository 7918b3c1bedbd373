package kernel

import (
	"runtime"

	"mote/trace"
)

// Context is a thread's handle on the kernel. Its blocking methods must only
// be called from the thread's own goroutine; called from anywhere else they
// do nothing.
type Context struct {
	k   *Kernel
	idx uint8
}

// Kernel returns the kernel the thread runs on.
func (c *Context) Kernel() *Kernel { return c.k }

// Index returns the thread's slot.
func (c *Context) Index() uint8 { return c.idx }

// Name returns the thread's name.
func (c *Context) Name() string {
	a := c.k.atomic.Start()
	defer a.End()
	return c.k.threads[c.idx].nameString()
}

// Memory returns the thread's whole region.
func (c *Context) Memory() []byte {
	a := c.k.atomic.Start()
	r := c.k.threads[c.idx].region
	a.End()
	return c.k.RAM(r)
}

// StaticData returns the static data part of the thread's region, which ends
// right before the sentinels.
func (c *Context) StaticData() []byte {
	a := c.k.atomic.Start()
	t := &c.k.threads[c.idx]
	r := Region{Start: t.region.Start, End: t.region.Start + t.bss}
	a.End()
	return c.k.RAM(r)
}

// runningLocked reports whether this context's thread holds the CPU.
func (c *Context) runningLocked() bool {
	return c.k.current == int(c.idx)
}

func (c *Context) execLocked() *execContext {
	return c.k.threads[c.idx].ec
}

// Yield gives up the rest of the slice. The thread stays runnable.
func (c *Context) Yield() {
	a := c.k.atomic.Start()
	if !c.runningLocked() {
		a.End()
		return
	}
	ec := c.execLocked()
	a.End()
	c.k.yieldToKernel(ec)
}

// Sleep suspends the thread for ms milliseconds. The timer is armed by the
// kernel after the thread has yielded.
func (c *Context) Sleep(ms uint16) {
	a := c.k.atomic.Start()
	if !c.runningLocked() {
		a.End()
		return
	}
	t := &c.k.threads[c.idx]
	t.state = StatePreSleep
	t.wait = sleepInfo{ms: ms}
	ec := t.ec
	a.End()
	c.k.yieldToKernel(ec)
}

// WaitIO blocks until ready reports true. ready runs inside the kernel
// section and must not block; a nil ready waits for one UnblockIO on key.
// It returns false if the caller is not the running thread.
func (c *Context) WaitIO(key IOKey, ready func() bool) bool {
	for {
		a := c.k.atomic.Start()
		if !c.runningLocked() {
			a.End()
			return false
		}
		if ready != nil && ready() {
			a.End()
			return true
		}
		t := &c.k.threads[c.idx]
		t.state = StateIO
		t.wait = ioInfo{key: key}
		ec := t.ec
		a.End()
		c.k.yieldToKernel(ec)
		if ready == nil {
			return true
		}
	}
}

// Exit destroys the thread. It does not return, except from inside the
// exit hook where the thread is already terminating and Exit does nothing.
func (c *Context) Exit() {
	a := c.k.atomic.Start()
	running := c.runningLocked() && !c.k.threads[c.idx].exiting
	a.End()
	if running {
		runtime.Goexit()
	}
}

// Break halts the thread for debugging. It stays off the schedule until
// Kernel.Continue or Kernel.Reap.
func (c *Context) Break() {
	a := c.k.atomic.Start()
	if !c.runningLocked() {
		a.End()
		return
	}
	t := &c.k.threads[c.idx]
	t.state = StateBreak
	ec := t.ec
	a.End()
	c.k.tracer.Trace(trace.EvThreadBreak, c.idx)
	c.k.log.Warn().Uint8("thread", c.idx).Msg("thread halted")
	c.k.yieldToKernel(ec)
}

// OnExit registers fn to run on the thread when it terminates normally,
// either by returning, by Exit or after a panic.
func (c *Context) OnExit(fn func()) {
	a := c.k.atomic.Start()
	c.k.threads[c.idx].onExit = fn
	a.End()
}
