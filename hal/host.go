//go:build !baremetal

package hal

import (
	"fmt"
	"os"
	"sync"
)

type hostHAL struct {
	logger *hostLogger
	leds   ledBank
	eeprom EEPROM
	adc    *hostADC
	fb     *hostFramebuffer
	t      *hostTime
}

// New returns a host HAL implementation.
//
// The EEPROM is backed by the file named in MOTE_EEPROM_PATH (default
// mote.eeprom); if it cannot be opened a volatile EEPROM is used instead.
func New() HAL {
	logger := &hostLogger{w: os.Stdout}
	h := &hostHAL{
		logger: logger,
		eeprom: openHostEEPROM(logger),
		adc:    newHostADC(),
		fb:     newHostFramebuffer(240, 160),
		t:      newHostTime(),
	}
	for c := LEDColor(0); c < NumLEDs; c++ {
		h.leds[c] = &hostLED{color: c, logger: logger}
	}
	return h
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) LEDs() LEDs       { return &h.leds }
func (h *hostHAL) EEPROM() EEPROM   { return h.eeprom }
func (h *hostHAL) ADC() ADC         { return h.adc }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Time() Time       { return h.t }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostLogger struct {
	mu sync.Mutex
	w  *os.File
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

type hostLED struct {
	mu     sync.Mutex
	on     bool
	color  LEDColor
	logger Logger
}

func (l *hostLED) set(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.on == on {
		return
	}
	l.on = on
	state := "LOW"
	if on {
		state = "HIGH"
	}
	l.logger.WriteLineString("led " + l.color.String() + ": " + state)
}

func (l *hostLED) High() { l.set(true) }
func (l *hostLED) Low()  { l.set(false) }

func (l *hostLED) Toggle() {
	l.set(!l.IsOn())
}

func (l *hostLED) IsOn() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}
