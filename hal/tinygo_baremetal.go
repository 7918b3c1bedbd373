//go:build tinygo && baremetal

package hal

import (
	"machine"
	"time"
)

type tinyGoHAL struct {
	logger *uartLogger
	leds   ledBank
	eeprom EEPROM
	fb     *stubFramebuffer
	t      *tinyGoTime
}

// New returns a board HAL implementation.
//
// UART: UART0 at 115200 8N1. Only the on-board LED is wired; it serves as the
// green LED. The EEPROM is volatile and the ADC is not wired.
func New() HAL {
	uart := machine.DefaultUART
	uart.Configure(machine.UARTConfig{BaudRate: 115200})

	ledPin := machine.LED
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	h := &tinyGoHAL{
		logger: &uartLogger{uart: uart},
		eeprom: NewMemEEPROM(EEPROMSizeBytes),
		fb:     &stubFramebuffer{w: 240, h: 160},
		t:      newTinyGoTime(),
	}
	h.leds[LEDRed] = &nullLED{}
	h.leds[LEDGreen] = &pinLED{pin: ledPin}
	h.leds[LEDYellow] = &nullLED{}
	return h
}

// EEPROMSizeBytes is the size of the node EEPROM.
const EEPROMSizeBytes = 4096

func (h *tinyGoHAL) Logger() Logger   { return h.logger }
func (h *tinyGoHAL) LEDs() LEDs       { return &h.leds }
func (h *tinyGoHAL) EEPROM() EEPROM   { return h.eeprom }
func (h *tinyGoHAL) ADC() ADC         { return nullADC{} }
func (h *tinyGoHAL) Display() Display { return tinyGoDisplay{fb: h.fb} }
func (h *tinyGoHAL) Time() Time       { return h.t }

type tinyGoDisplay struct {
	fb Framebuffer
}

func (d tinyGoDisplay) Framebuffer() Framebuffer { return d.fb }

type uartLogger struct {
	uart *machine.UART
}

func (l *uartLogger) WriteLineString(s string) {
	l.uart.Write([]byte(s))
	l.uart.Write([]byte("\r\n"))
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	l.uart.Write(b)
	l.uart.Write([]byte("\r\n"))
}

type pinLED struct {
	pin machine.Pin
	on  bool
}

func (l *pinLED) High()      { l.on = true; l.pin.High() }
func (l *pinLED) Low()       { l.on = false; l.pin.Low() }
func (l *pinLED) IsOn() bool { return l.on }

func (l *pinLED) Toggle() {
	if l.on {
		l.Low()
	} else {
		l.High()
	}
}

type nullLED struct{ on bool }

func (l *nullLED) High()      { l.on = true }
func (l *nullLED) Low()       { l.on = false }
func (l *nullLED) Toggle()    { l.on = !l.on }
func (l *nullLED) IsOn() bool { return l.on }

type tinyGoTime struct {
	ch  chan uint64
	seq uint64
}

func newTinyGoTime() *tinyGoTime {
	t := &tinyGoTime{ch: make(chan uint64, 16)}
	go func() {
		ticker := time.NewTicker(time.Millisecond)
		for range ticker.C {
			t.seq++
			select {
			case t.ch <- t.seq:
			default:
			}
		}
	}()
	return t
}

func (t *tinyGoTime) Ticks() <-chan uint64 { return t.ch }

type stubFramebuffer struct {
	w int
	h int
}

func (f *stubFramebuffer) Width() int             { return f.w }
func (f *stubFramebuffer) Height() int            { return f.h }
func (f *stubFramebuffer) Format() PixelFormat    { return PixelFormatRGB565 }
func (f *stubFramebuffer) StrideBytes() int       { return f.w * 2 }
func (f *stubFramebuffer) Buffer() []byte         { return nil }
func (f *stubFramebuffer) ClearRGB(r, g, b uint8) {}
func (f *stubFramebuffer) Present() error         { return ErrNotImplemented }
