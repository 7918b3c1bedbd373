package ioreg

import "mote/kernel"

type handle struct {
	used   bool
	port   uint16
	thread uint8
	buf    kernel.Region
	n      int
	done   bool
}

// RegisterReceive reserves a handle that copies the next packet on port into
// buf, which must lie inside the calling thread's memory. It returns the
// handle id.
func (r *Registry) RegisterReceive(ctx *kernel.Context, port uint16, buf kernel.Region) (uint8, bool) {
	ti, ok := r.k.Thread(ctx.Index())
	if !ok || !ti.Region.Contains(buf) || buf.Len() == 0 {
		return 0, false
	}
	a := r.k.Atomic().Start()
	defer a.End()
	for i := range r.handles {
		h := &r.handles[i]
		if h.used {
			continue
		}
		*h = handle{used: true, port: port, thread: ctx.Index(), buf: buf}
		return uint8(i), true
	}
	return 0, false
}

// Receive blocks until a packet lands in the handle's buffer, then frees the
// handle and returns the number of bytes copied.
func (r *Registry) Receive(ctx *kernel.Context, id uint8) (int, bool) {
	if int(id) >= MaxHandles {
		return 0, false
	}
	h := &r.handles[id]
	var n int
	ok := ctx.WaitIO(kernel.IOKey{Type: IOReceive, ID: id}, func() bool {
		if !h.used || h.thread != ctx.Index() {
			n = -1
			return true
		}
		if !h.done {
			return false
		}
		n = h.n
		*h = handle{}
		return true
	})
	if !ok || n < 0 {
		return 0, false
	}
	return n, true
}

// Deliver copies payload into the buffer of every handle waiting on port and
// wakes their threads. It returns the number of handles served.
func (r *Registry) Deliver(port uint16, payload []byte) int {
	var served []uint8
	a := r.k.Atomic().Start()
	for i := range r.handles {
		h := &r.handles[i]
		if !h.used || h.done || h.port != port {
			continue
		}
		mem := r.k.RAM(h.buf)
		h.n = copy(mem, payload)
		h.done = true
		served = append(served, uint8(i))
	}
	a.End()
	for _, id := range served {
		r.k.UnblockIO(kernel.IOKey{Type: IOReceive, ID: id})
	}
	return len(served)
}

// Pending returns the number of registered handles.
func (r *Registry) Pending() int {
	a := r.k.Atomic().Start()
	defer a.End()
	n := 0
	for i := range r.handles {
		if r.handles[i].used {
			n++
		}
	}
	return n
}
