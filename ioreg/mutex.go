package ioreg

import "mote/kernel"

// Mutex is a lock owned by a thread index. A thread that dies while holding
// it releases it implicitly.
type Mutex struct {
	r      *Registry
	id     uint8
	locked bool
	owner  uint8
}

// ID returns the mutex id.
func (m *Mutex) ID() uint8 { return m.id }

func (m *Mutex) key() kernel.IOKey {
	return kernel.IOKey{Type: IOMutex, ID: m.id}
}

// Lock blocks the calling thread until it owns m. Locking a mutex the thread
// already owns returns immediately.
func (m *Mutex) Lock(ctx *kernel.Context) bool {
	idx := ctx.Index()
	return ctx.WaitIO(m.key(), func() bool {
		if m.locked {
			return m.owner == idx
		}
		m.locked = true
		m.owner = idx
		return true
	})
}

// Unlock releases m if the calling thread owns it and wakes all waiters.
func (m *Mutex) Unlock(ctx *kernel.Context) bool {
	a := m.r.k.Atomic().Start()
	if !m.locked || m.owner != ctx.Index() {
		a.End()
		return false
	}
	m.locked = false
	a.End()
	m.r.k.UnblockIO(m.key())
	return true
}

// Owner returns the owning thread index.
func (m *Mutex) Owner() (uint8, bool) {
	a := m.r.k.Atomic().Start()
	defer a.End()
	return m.owner, m.locked
}
