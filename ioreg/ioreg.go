// Package ioreg is the driver side of thread I/O: mutexes owned by thread
// index and receive handles whose buffers live in thread memory.
//
// All registry state is guarded by the kernel section, the same lock that
// protects the thread table, so a thread can check a condition and block on
// it without missing the wake-up.
package ioreg

import (
	"github.com/rs/zerolog"

	"mote/kernel"
)

// I/O types used in kernel.IOKey.
const (
	IORadio uint8 = iota + 1
	IOSerial
	IOMutex
	IOReceive
)

// MaxHandles is the size of the receive handle table.
const MaxHandles = 8

// Well-known mutex ids.
const (
	RadioMutexID uint8 = iota
	SerialMutexID
	numMutexes
)

// Registry implements kernel.Drivers.
type Registry struct {
	k       *kernel.Kernel
	mutexes [numMutexes]Mutex
	handles [MaxHandles]handle
	log     zerolog.Logger
}

// New returns a registry. It must be attached to a kernel before use.
func New(log zerolog.Logger) *Registry {
	r := &Registry{log: log}
	for i := range r.mutexes {
		r.mutexes[i] = Mutex{r: r, id: uint8(i)}
	}
	return r
}

// Attach binds r to the kernel whose threads it serves.
func (r *Registry) Attach(k *kernel.Kernel) { r.k = k }

// Mutex returns the mutex with the given id, or nil.
func (r *Registry) Mutex(id uint8) *Mutex {
	if int(id) >= len(r.mutexes) {
		return nil
	}
	return &r.mutexes[id]
}

// RadioMutex guards the radio.
func (r *Registry) RadioMutex() *Mutex { return r.Mutex(RadioMutexID) }

// SerialMutex guards the serial port.
func (r *Registry) SerialMutex() *Mutex { return r.Mutex(SerialMutexID) }

// ReleaseMutexesOwnedBy unlocks every mutex held by thread idx.
func (r *Registry) ReleaseMutexesOwnedBy(idx uint8) {
	var freed []uint8
	a := r.k.Atomic().Start()
	for i := range r.mutexes {
		m := &r.mutexes[i]
		if m.locked && m.owner == idx {
			m.locked = false
			freed = append(freed, m.id)
		}
	}
	a.End()
	for _, id := range freed {
		r.log.Warn().Uint8("thread", idx).Uint8("mutex", id).Msg("mutex released on thread exit")
		r.k.UnblockIO(kernel.IOKey{Type: IOMutex, ID: id})
	}
}

// DeregisterIOHandlesInRange drops every receive handle whose buffer lies in
// [start, end).
func (r *Registry) DeregisterIOHandlesInRange(start, end uint16) {
	span := kernel.Region{Start: start, End: end}
	n := 0
	a := r.k.Atomic().Start()
	for i := range r.handles {
		h := &r.handles[i]
		if h.used && span.Contains(h.buf) {
			*h = handle{}
			n++
		}
	}
	a.End()
	if n > 0 {
		r.log.Debug().Uint16("start", start).Uint16("end", end).Int("handles", n).Msg("receive handles dropped")
	}
}
