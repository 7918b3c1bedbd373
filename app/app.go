// Package app boots a node: it wires the thread kernel to the task runner,
// timers, drivers and syscall surface, and starts the configured threads.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mote/hal"
	"mote/internal/nodecfg"
	"mote/ioreg"
	"mote/kernel"
	"mote/monitor"
	"mote/syscalls"
	"mote/taskq"
	"mote/timer"
	"mote/trace"
)

// BeaconTimerID drives the simulated radio beacon.
const BeaconTimerID uint8 = 10

// Config controls a node.
type Config struct {
	TickPeriodMs  uint16
	FaultPolicy   kernel.FaultPolicy
	Demo          bool
	Monitor       bool
	BeaconMs      uint16
	TraceCapacity int

	// UseEEPROM applies the node record stored in EEPROM over these fields.
	UseEEPROM bool
	// Override runs after the EEPROM record is applied. Settings given
	// explicitly on the command line go here so they win over the record.
	Override func(*Config)

	Log zerolog.Logger
}

// DefaultConfig returns the settings used when nothing else is configured.
func DefaultConfig() Config {
	return Config{
		TickPeriodMs:  50,
		Demo:          true,
		Monitor:       true,
		BeaconMs:      2000,
		TraceCapacity: trace.DefaultCapacity,
		UseEEPROM:     true,
		Log:           zerolog.Nop(),
	}
}

// Node is a booted node.
type Node struct {
	h   hal.HAL
	cfg Config
	log zerolog.Logger

	NodeID uint16
	Name   string

	Kernel  *kernel.Kernel
	Tasks   *taskq.Queue
	Timers  *timer.Service
	IO      *ioreg.Registry
	Sys     *syscalls.Surface
	Trace   *trace.Recorder
	Monitor *monitor.Monitor
}

// NewNode wires a node on h. Threads are not started until Boot.
func NewNode(h hal.HAL, cfg Config) *Node {
	n := &Node{h: h, cfg: cfg, log: cfg.Log, Name: "mote"}
	if cfg.UseEEPROM {
		n.applyEEPROM()
	}
	if cfg.Override != nil {
		cfg.Override(&n.cfg)
	}

	n.Tasks = taskq.New()
	n.IO = ioreg.New(n.log.With().Str("component", "io").Logger())
	n.Timers = timer.New(nil, n.log.With().Str("component", "timer").Logger())

	traceLog := n.log.With().Str("component", "trace").Logger()
	n.Trace = trace.NewRecorder(trace.Config{
		Capacity: n.cfg.TraceCapacity,
		Log:      &traceLog,
		Rates:    map[time.Duration]int{time.Second: 20},
	})

	n.Kernel = kernel.New(kernel.Config{
		Poster:       n.Tasks,
		Timers:       n.Timers,
		Tracer:       n.Trace,
		Drivers:      n.IO,
		FaultPolicy:  n.cfg.FaultPolicy,
		TickPeriodMs: n.cfg.TickPeriodMs,
		Log:          n.log.With().Str("component", "kernel").Logger(),
	})
	n.IO.Attach(n.Kernel)
	n.Timers.SetHandler(n.timerFired)

	var leds hal.LEDs
	var adc hal.ADC
	var eeprom hal.EEPROM
	if h != nil {
		leds, adc, eeprom = h.LEDs(), h.ADC(), h.EEPROM()
	}
	n.Sys = syscalls.New(syscalls.Config{
		Kernel: n.Kernel,
		IO:     n.IO,
		Poster: n.Tasks,
		Tracer: n.Trace,
		LEDs:   leds,
		EEPROM: eeprom,
		ADC:    adc,
		Log:    n.log,
	})

	var screen *monitor.Screen
	if n.cfg.Monitor && h != nil {
		if d := h.Display(); d != nil {
			if fb := d.Framebuffer(); fb != nil && fb.Buffer() != nil {
				screen = monitor.NewScreen(fb)
			}
		}
	}
	n.Monitor = monitor.New(n.Kernel, screen, n.log.With().Str("component", "monitor").Logger())
	return n
}

func (n *Node) applyEEPROM() {
	if n.h == nil || n.h.EEPROM() == nil {
		return
	}
	buf := make([]byte, nodecfg.Size)
	if _, err := n.h.EEPROM().ReadAt(buf, 0); err != nil {
		n.log.Warn().Err(err).Msg("eeprom config unreadable")
		return
	}
	rec, err := nodecfg.Decode(buf)
	if err != nil {
		if !errors.Is(err, nodecfg.ErrNoConfig) {
			n.log.Warn().Err(err).Msg("eeprom config rejected")
		}
		return
	}
	n.NodeID = rec.NodeID
	n.Name = rec.Name
	n.cfg.TickPeriodMs = rec.TickPeriodMs
	n.cfg.Demo = rec.Flags&nodecfg.FlagDemo != 0
	if rec.Flags&nodecfg.FlagReclaimCorrupted != 0 {
		n.cfg.FaultPolicy = kernel.ReclaimCorrupted
	} else {
		n.cfg.FaultPolicy = kernel.RetireCorrupted
	}
	n.log.Info().Uint16("node", rec.NodeID).Str("name", rec.Name).Msg("eeprom config loaded")
}

// timerFired routes timer expiries: thread slots and the scheduling tick go
// to the kernel, the beacon to the simulated radio.
func (n *Node) timerFired(id uint8) {
	switch {
	case id == BeaconTimerID:
		n.beacon()
	case id < kernel.MaxThreads || id == kernel.TickTimerID:
		n.Kernel.ServiceTimerFired(id)
	default:
		n.log.Debug().Uint8("timer", id).Msg("unrouted timer")
	}
}

// Boot arms the scheduling tick and starts the configured threads.
func (n *Node) Boot() error {
	installPanicHandler(n.h, n.log)
	n.Kernel.Boot()
	if n.cfg.BeaconMs > 0 {
		n.Timers.StartPeriodic(BeaconTimerID, n.cfg.BeaconMs)
	}
	if n.cfg.Demo {
		if err := n.startDemo(); err != nil {
			return err
		}
	}
	n.log.Info().
		Uint16("node", n.NodeID).
		Str("name", n.Name).
		Uint16("tick_ms", n.cfg.TickPeriodMs).
		Stringer("fault_policy", n.cfg.FaultPolicy).
		Msg("node booted")
	return nil
}

// Spawn starts a thread in slot memory region r.
func (n *Node) Spawn(fn kernel.ThreadFunc, r kernel.Region, bss uint16, prio uint8, name string) (uint8, error) {
	idx, res := n.Kernel.CreateThread(fn, r, bss, prio, name)
	if res != kernel.CreateOK {
		return 0, fmt.Errorf("spawn %s: %s", name, res)
	}
	return idx, nil
}

// Run drives the node until ctx is done: the task runner and the timer
// service run side by side and stop together.
func (n *Node) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return n.Tasks.Run(ctx) })
	if n.h != nil && n.h.Time() != nil {
		if ticks := n.h.Time().Ticks(); ticks != nil {
			g.Go(func() error { return n.Timers.Run(ctx, ticks) })
		}
	}
	g.Go(func() error {
		<-ctx.Done()
		n.Kernel.Close()
		return nil
	})
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Step is called once per host frame.
func (n *Node) Step() error {
	n.Monitor.Poll()
	return nil
}

// Start boots a node on h, runs it in the background and returns the frame
// step function used by the host runners.
func Start(ctx context.Context, h hal.HAL, cfg Config) func() error {
	n := NewNode(h, cfg)
	if err := n.Boot(); err != nil {
		return func() error { return err }
	}
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()
	return func() error {
		select {
		case err := <-done:
			if err == nil {
				err = ctx.Err()
			}
			return err
		default:
		}
		return n.Step()
	}
}

// Run boots a node and blocks forever (TinyGo entrypoint).
func Run(h hal.HAL) {
	cfg := DefaultConfig()
	cfg.Log = NewLogger(h, zerolog.InfoLevel, false)
	n := NewNode(h, cfg)
	if err := n.Boot(); err != nil {
		cfg.Log.Error().Err(err).Msg("boot failed")
	}
	_ = n.Run(context.Background())
	select {}
}
