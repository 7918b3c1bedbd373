package hal

import (
	"fmt"
	"sync"
)

// MemEEPROM is a volatile EEPROM, used where no backing store exists.
type MemEEPROM struct {
	mu  sync.Mutex
	buf []byte
}

// NewMemEEPROM returns an erased (0xFF) EEPROM of size bytes.
func NewMemEEPROM(size int) *MemEEPROM {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0xFF
	}
	return &MemEEPROM{buf: buf}
}

func (m *MemEEPROM) SizeBytes() int { return len(m.buf) }

func (m *MemEEPROM) ReadAt(p []byte, off int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if off < 0 || off >= len(m.buf) {
		return 0, fmt.Errorf("eeprom read at %d: %w", off, ErrOutOfRange)
	}
	return copy(p, m.buf[off:]), nil
}

func (m *MemEEPROM) WriteAt(p []byte, off int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if off < 0 || off >= len(m.buf) {
		return 0, fmt.Errorf("eeprom write at %d: %w", off, ErrOutOfRange)
	}
	return copy(m.buf[off:], p), nil
}

type nullADC struct{}

func (nullADC) Read(ch ADCChannel) (uint16, error) {
	return 0, fmt.Errorf("adc %s: %w", ch, ErrNotImplemented)
}

// ledBank is a fixed set of LEDs indexed by color.
type ledBank [NumLEDs]LED

func (b *ledBank) LED(c LEDColor) LED {
	if c >= NumLEDs {
		return nil
	}
	return b[c]
}
