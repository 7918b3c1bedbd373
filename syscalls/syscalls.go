// Package syscalls is the service surface offered to running threads. Each
// call tags a trace event with the calling thread's index and then delegates
// to the kernel or a driver.
package syscalls

import (
	"fmt"

	"github.com/rs/zerolog"

	"mote/hal"
	"mote/ioreg"
	"mote/kernel"
	"mote/trace"
)

// Config wires a Surface.
type Config struct {
	Kernel *kernel.Kernel
	IO     *ioreg.Registry
	Poster kernel.Poster
	Tracer trace.Tracer
	LEDs   hal.LEDs
	EEPROM hal.EEPROM
	ADC    hal.ADC
	Log    zerolog.Logger
}

// Surface holds the services threads may call.
type Surface struct {
	k      *kernel.Kernel
	io     *ioreg.Registry
	post   kernel.Poster
	tracer trace.Tracer
	leds   hal.LEDs
	eeprom hal.EEPROM
	adc    hal.ADC
	log    zerolog.Logger
}

// New returns a Surface. Missing devices make the matching calls fail with
// hal.ErrNotImplemented.
func New(cfg Config) *Surface {
	s := &Surface{
		k:      cfg.Kernel,
		io:     cfg.IO,
		post:   cfg.Poster,
		tracer: cfg.Tracer,
		leds:   cfg.LEDs,
		eeprom: cfg.EEPROM,
		adc:    cfg.ADC,
		log:    cfg.Log,
	}
	if s.tracer == nil {
		s.tracer = trace.Nop{}
	}
	return s
}

func (s *Surface) tag(kind trace.Kind) {
	s.tracer.Trace(kind, s.k.CurrentIndex())
}

// Yield gives up the rest of the slice.
func (s *Surface) Yield(ctx *kernel.Context) {
	s.tag(trace.EvSyscallYield)
	ctx.Yield()
}

// Sleep suspends the calling thread for ms milliseconds.
func (s *Surface) Sleep(ctx *kernel.Context, ms uint16) {
	s.tag(trace.EvSyscallSleep)
	ctx.Sleep(ms)
}

// Exit terminates the calling thread.
func (s *Surface) Exit(ctx *kernel.Context) {
	s.tag(trace.EvSyscallExit)
	ctx.Exit()
}

// Break halts the calling thread until a debugger continues or reaps it.
func (s *Surface) Break(ctx *kernel.Context) {
	s.tag(trace.EvSyscallBreak)
	ctx.Break()
}

// CurrentThreadIndex returns the slot of the running thread, 0 outside one.
func (s *Surface) CurrentThreadIndex() uint8 {
	s.tag(trace.EvSyscallThreadIndex)
	return s.k.CurrentIndex()
}

// CurrentThread returns the running thread's handle, nil outside one.
func (s *Surface) CurrentThread() *kernel.Context {
	s.tag(trace.EvSyscallThreadHandle)
	return s.k.Current()
}

// OnExit registers a cleanup callback for the calling thread.
func (s *Surface) OnExit(ctx *kernel.Context, fn func()) {
	s.tag(trace.EvSyscallOnExit)
	ctx.OnExit(fn)
}

func (s *Surface) led(c hal.LEDColor) (hal.LED, error) {
	if s.leds == nil {
		return nil, fmt.Errorf("led %s: %w", c, hal.ErrNotImplemented)
	}
	l := s.leds.LED(c)
	if l == nil {
		return nil, fmt.Errorf("led %s: %w", c, hal.ErrOutOfRange)
	}
	return l, nil
}

// LEDOn turns LED c on.
func (s *Surface) LEDOn(c hal.LEDColor) error {
	s.tag(trace.EvSyscallLEDOn)
	l, err := s.led(c)
	if err != nil {
		return err
	}
	l.High()
	return nil
}

// LEDOff turns LED c off.
func (s *Surface) LEDOff(c hal.LEDColor) error {
	s.tag(trace.EvSyscallLEDOff)
	l, err := s.led(c)
	if err != nil {
		return err
	}
	l.Low()
	return nil
}

// LEDToggle flips LED c.
func (s *Surface) LEDToggle(c hal.LEDColor) error {
	s.tag(trace.EvSyscallLEDToggle)
	l, err := s.led(c)
	if err != nil {
		return err
	}
	l.Toggle()
	return nil
}

// PostTask queues fn on the deferred-task runner.
func (s *Surface) PostTask(fn func(), prio uint8) bool {
	s.tag(trace.EvSyscallPostTask)
	if s.post == nil {
		return false
	}
	return s.post.Post(fn, prio)
}

// PostThreadTask requests a scheduling cycle.
func (s *Surface) PostThreadTask() {
	s.tag(trace.EvSyscallPostThreadTask)
	s.k.PostThreadTask()
}
