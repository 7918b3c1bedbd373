package syscalls

import (
	"fmt"

	"mote/hal"
	"mote/ioreg"
	"mote/kernel"
	"mote/trace"
)

// ReadEEPROM reads len(p) bytes at off. The access runs inside the kernel
// section so no wake or timer callback interleaves with it.
func (s *Surface) ReadEEPROM(p []byte, off int) (int, error) {
	s.tag(trace.EvSyscallReadEEPROM)
	if s.eeprom == nil {
		return 0, fmt.Errorf("eeprom: %w", hal.ErrNotImplemented)
	}
	a := s.k.Atomic().Start()
	defer a.End()
	return s.eeprom.ReadAt(p, off)
}

// WriteEEPROM writes p at off inside the kernel section.
func (s *Surface) WriteEEPROM(p []byte, off int) (int, error) {
	s.tag(trace.EvSyscallWriteEEPROM)
	if s.eeprom == nil {
		return 0, fmt.Errorf("eeprom: %w", hal.ErrNotImplemented)
	}
	a := s.k.Atomic().Start()
	defer a.End()
	return s.eeprom.WriteAt(p, off)
}

// ReadADC samples channel ch.
func (s *Surface) ReadADC(ch hal.ADCChannel) (uint16, error) {
	s.tag(trace.EvSyscallADC)
	if s.adc == nil {
		return 0, fmt.Errorf("adc %s: %w", ch, hal.ErrNotImplemented)
	}
	return s.adc.Read(ch)
}

func (s *Surface) Light() (uint16, error) { return s.ReadADC(hal.ADCLight) }
func (s *Surface) Temp() (uint16, error)  { return s.ReadADC(hal.ADCTemp) }
func (s *Surface) MagX() (uint16, error)  { return s.ReadADC(hal.ADCMagX) }
func (s *Surface) MagY() (uint16, error)  { return s.ReadADC(hal.ADCMagY) }
func (s *Surface) AccX() (uint16, error)  { return s.ReadADC(hal.ADCAccX) }
func (s *Surface) AccY() (uint16, error)  { return s.ReadADC(hal.ADCAccY) }

// RadioMutex returns the radio lock.
func (s *Surface) RadioMutex() *ioreg.Mutex { return s.io.RadioMutex() }

// SerialMutex returns the serial port lock.
func (s *Surface) SerialMutex() *ioreg.Mutex { return s.io.SerialMutex() }

// Lock blocks until the calling thread owns m.
func (s *Surface) Lock(ctx *kernel.Context, m *ioreg.Mutex) bool {
	s.tag(trace.EvSyscallMutex)
	return m.Lock(ctx)
}

// Unlock releases m.
func (s *Surface) Unlock(ctx *kernel.Context, m *ioreg.Mutex) bool {
	s.tag(trace.EvSyscallUnlock)
	return m.Unlock(ctx)
}

// RegisterReceive reserves a receive handle whose buffer buf lies in the
// calling thread's memory.
func (s *Surface) RegisterReceive(ctx *kernel.Context, port uint16, buf kernel.Region) (uint8, bool) {
	s.tag(trace.EvSyscallRegisterReceive)
	return s.io.RegisterReceive(ctx, port, buf)
}

// Receive waits for the handle's packet and returns its length.
func (s *Surface) Receive(ctx *kernel.Context, id uint8) (int, bool) {
	s.tag(trace.EvSyscallReceive)
	return s.io.Receive(ctx, id)
}
