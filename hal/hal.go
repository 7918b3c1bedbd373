package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
	Toggle()
	IsOn() bool
}

// LEDColor names one of the node's status LEDs.
type LEDColor uint8

const (
	LEDRed LEDColor = iota
	LEDGreen
	LEDYellow
	NumLEDs
)

func (c LEDColor) String() string {
	switch c {
	case LEDRed:
		return "red"
	case LEDGreen:
		return "green"
	case LEDYellow:
		return "yellow"
	default:
		return "unknown"
	}
}

// LEDs gives access to the status LEDs. Unknown colors return nil.
type LEDs interface {
	LED(c LEDColor) LED
}

var (
	ErrNotImplemented = errors.New("not implemented")
	ErrOutOfRange     = errors.New("out of range")
)

// EEPROM is byte-addressable non-volatile memory. Unlike flash it needs no
// erase before a write.
type EEPROM interface {
	SizeBytes() int
	ReadAt(p []byte, off int) (int, error)
	WriteAt(p []byte, off int) (int, error)
}

// ADCChannel names a sensor input.
type ADCChannel uint8

const (
	ADCLight ADCChannel = iota
	ADCTemp
	ADCMagX
	ADCMagY
	ADCAccX
	ADCAccY
	NumADCChannels
)

func (c ADCChannel) String() string {
	switch c {
	case ADCLight:
		return "light"
	case ADCTemp:
		return "temp"
	case ADCMagX:
		return "mag_x"
	case ADCMagY:
		return "mag_y"
	case ADCAccX:
		return "acc_x"
	case ADCAccY:
		return "acc_y"
	default:
		return "unknown"
	}
}

// ADC samples sensor channels. Readings are 10-bit.
type ADC interface {
	Read(ch ADCChannel) (uint16, error)
}

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Time provides a millisecond tick stream.
type Time interface {
	Ticks() <-chan uint64
}

// HAL provides the only contact point between the node and the outside world.
type HAL interface {
	Logger() Logger
	LEDs() LEDs
	EEPROM() EEPROM
	ADC() ADC
	Display() Display
	Time() Time
}
