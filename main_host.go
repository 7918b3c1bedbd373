//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"

	"mote/app"
	"mote/hal"
	"mote/internal/buildinfo"
	"mote/kernel"
)

// nodeFlags are the flags that may also come from the EEPROM node record.
type nodeFlags struct {
	noDemo  bool
	reclaim bool
	tickMs  uint
}

// override returns the app.Config override for the node flags named in set,
// so flags given on the command line win over the EEPROM record while the
// record still wins over flag defaults.
func (f nodeFlags) override(set map[string]bool) func(*app.Config) {
	return func(c *app.Config) {
		if set["no-demo"] {
			c.Demo = !f.noDemo
		}
		if set["reclaim"] {
			if f.reclaim {
				c.FaultPolicy = kernel.ReclaimCorrupted
			} else {
				c.FaultPolicy = kernel.RetireCorrupted
			}
		}
		if set["tick"] {
			c.TickPeriodMs = uint16(f.tickMs)
		}
	}
}

func main() {
	var cfg hal.HeadlessConfig
	var nf nodeFlags
	var (
		noMonitor bool
		noEEPROM  bool
		beaconMs  uint
		level     string
		version   bool
	)
	flag.BoolVar(&cfg.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&cfg.Hz, "hz", 60, "Frame rate in headless mode.")
	flag.Uint64Var(&cfg.Frames, "frames", 0, "Stop after N frames in headless mode (0 = run forever).")
	flag.BoolVar(&cfg.Simulated, "sim", false, "Headless mode: advance time by 1000/hz ms per frame instead of wall time.")
	flag.BoolVar(&nf.noDemo, "no-demo", false, "Do not start the demo threads.")
	flag.BoolVar(&noMonitor, "no-monitor", false, "Do not draw the thread table.")
	flag.BoolVar(&noEEPROM, "no-eeprom-config", false, "Ignore the node record stored in EEPROM.")
	flag.BoolVar(&nf.reclaim, "reclaim", false, "Free corrupted thread slots instead of retiring them.")
	flag.UintVar(&nf.tickMs, "tick", 50, "Scheduling tick period (ms, 0 = none).")
	flag.UintVar(&beaconMs, "beacon", 2000, "Simulated radio beacon period (ms, 0 = none).")
	flag.StringVar(&level, "log-level", "info", "Log level (trace, debug, info, warn, error).")
	flag.BoolVar(&version, "version", false, "Print the build version and exit.")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if version {
		fmt.Println(buildinfo.String())
		return
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
	if nf.tickMs > 0xFFFF || beaconMs > 0xFFFF {
		fmt.Fprintln(os.Stderr, "error: -tick and -beacon must fit in 16 bits")
		os.Exit(2)
	}

	newApp := func(ctx context.Context, h hal.HAL) func() error {
		c := app.DefaultConfig()
		c.Log = app.NewLogger(h, lvl, true)
		c.Monitor = !noMonitor
		c.UseEEPROM = !noEEPROM
		c.BeaconMs = uint16(beaconMs)
		if noEEPROM {
			set["no-demo"], set["reclaim"], set["tick"] = true, true, true
		}
		c.Override = nf.override(set)
		return app.Start(ctx, h, c)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cfg.Enabled {
		err = hal.RunHeadless(ctx, newApp, cfg)
	} else {
		err = hal.RunWindow(ctx, newApp)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
