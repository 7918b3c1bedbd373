//go:build !baremetal

package hal

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// hostADC synthesizes slowly varying sensor readings.
type hostADC struct {
	mu    sync.Mutex
	start time.Time
	fixed [NumADCChannels]int32
}

func newHostADC() *hostADC {
	a := &hostADC{start: time.Now()}
	for i := range a.fixed {
		a.fixed[i] = -1
	}
	return a
}

// Set pins channel ch to v. A negative v restores the synthetic signal.
func (a *hostADC) Set(ch ADCChannel, v int32) {
	if ch >= NumADCChannels {
		return
	}
	a.mu.Lock()
	a.fixed[ch] = v
	a.mu.Unlock()
}

func (a *hostADC) Read(ch ADCChannel) (uint16, error) {
	if ch >= NumADCChannels {
		return 0, fmt.Errorf("adc channel %d: %w", ch, ErrOutOfRange)
	}
	a.mu.Lock()
	v := a.fixed[ch]
	a.mu.Unlock()
	if v >= 0 {
		return uint16(v) & 0x3FF, nil
	}

	secs := time.Since(a.start).Seconds()
	period := 10.0 + 3.0*float64(ch)
	s := math.Sin(2 * math.Pi * secs / period)
	return uint16(512 + 400*s), nil
}
