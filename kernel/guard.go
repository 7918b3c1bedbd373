package kernel

import (
	"encoding/binary"

	"mote/trace"
)

// SentinelMagic is planted twice after a thread's static data.
const SentinelMagic uint16 = 0xEEFF

// SentinelBytes is the space the sentinels occupy.
const SentinelBytes = 4

// Guard plants and checks the corruption markers of a thread region. at is
// the RAM offset just past the thread's static data.
type Guard interface {
	Plant(ram []byte, at int)
	Check(ram []byte, at int) bool
}

// SentinelGuard writes two little-endian SentinelMagic words.
type SentinelGuard struct{}

func (SentinelGuard) Plant(ram []byte, at int) {
	binary.LittleEndian.PutUint16(ram[at:at+2], SentinelMagic)
	binary.LittleEndian.PutUint16(ram[at+2:at+4], SentinelMagic)
}

func (SentinelGuard) Check(ram []byte, at int) bool {
	if at < 0 || at+SentinelBytes > len(ram) {
		return false
	}
	return binary.LittleEndian.Uint16(ram[at:at+2]) == SentinelMagic &&
		binary.LittleEndian.Uint16(ram[at+2:at+4]) == SentinelMagic
}

// checkGuard verifies the sentinels of slot idx before it is switched in.
// On mismatch the slot is quarantined and false is returned.
func (k *Kernel) checkGuard(idx uint8) bool {
	a := k.atomic.Start()
	t := &k.threads[idx]
	if k.guard.Check(k.ram, int(t.region.Start)+int(t.bss)) {
		a.End()
		return true
	}
	t.state = StateMemError
	name := t.nameString()
	var cleanup *reaped
	if k.policy == ReclaimCorrupted {
		cleanup = k.reapLocked(idx)
	}
	a.End()

	k.tracer.Trace(trace.EvMemError, idx)
	if _, ok := k.faults.Allow(idx); ok {
		k.log.Error().
			Uint8("thread", idx).
			Str("name", name).
			Stringer("policy", k.policy).
			Msg("memory corruption detected")
	}
	if cleanup != nil {
		k.finishReap(cleanup)
	}
	return false
}
