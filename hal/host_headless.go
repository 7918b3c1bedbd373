//go:build !baremetal

package hal

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Enabled bool
	Hz      int
	// Frames stops the runner after that many frames; 0 runs until ctx ends.
	Frames uint64
	// Simulated advances the millisecond clock by exactly 1000/Hz per frame
	// instead of following the wall clock, so bounded runs are reproducible.
	Simulated bool
}

// RunHeadless runs the node without opening a window. newApp starts the node
// and returns a step function called once per frame.
func RunHeadless(ctx context.Context, newApp func(context.Context, HAL) func() error, cfg HeadlessConfig) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 || cfg.Hz > 1000 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}
	perFrame := uint64(1000 / cfg.Hz)

	h := New().(*hostHAL)
	step := newApp(ctx, h)

	var wait <-chan time.Time
	if !cfg.Simulated {
		t := time.NewTicker(d)
		defer t.Stop()
		wait = t.C
	}

	var frame uint64
	defer func() {
		h.logger.WriteLineString("headless: stopped after " + strconv.FormatUint(frame, 10) + " frames")
	}()
	for {
		if wait != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-wait:
			}
			h.t.step(1)
		} else {
			if err := ctx.Err(); err != nil {
				return err
			}
			h.t.stepN(perFrame)
		}

		if step != nil {
			if err := step(); err != nil {
				return fmt.Errorf("headless frame %d: %w", frame, err)
			}
		}
		frame++
		if cfg.Frames > 0 && frame >= cfg.Frames {
			return nil
		}
	}
}
