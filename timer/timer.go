// Package timer provides one-shot and periodic timers keyed by small integer
// ids, driven by the HAL millisecond tick stream.
package timer

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// MaxTimers is the number of timer ids.
const MaxTimers = 16

// Mode selects one-shot or repeating behaviour.
type Mode uint8

const (
	OneShot Mode = iota + 1
	Periodic
)

func (m Mode) String() string {
	switch m {
	case OneShot:
		return "one_shot"
	case Periodic:
		return "periodic"
	default:
		return "unknown"
	}
}

type slot struct {
	mode   Mode
	period uint64
	due    uint64
}

// Handler is invoked with the id of each timer that fires. It runs on the
// goroutine that calls Tick, outside the service lock.
type Handler func(id uint8)

// Service is a fixed table of timers.
type Service struct {
	mu      sync.Mutex
	now     uint64
	slots   [MaxTimers]slot
	handler Handler

	log zerolog.Logger
}

// New returns a timer service. The handler may be set later with SetHandler.
func New(h Handler, log zerolog.Logger) *Service {
	return &Service{handler: h, log: log}
}

// SetHandler replaces the fired callback.
func (s *Service) SetHandler(h Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// StartOneShot arms timer id to fire once after ms milliseconds.
func (s *Service) StartOneShot(id uint8, ms uint16) bool {
	return s.start(id, OneShot, ms)
}

// StartPeriodic arms timer id to fire every ms milliseconds.
func (s *Service) StartPeriodic(id uint8, ms uint16) bool {
	if ms == 0 {
		return false
	}
	return s.start(id, Periodic, ms)
}

func (s *Service) start(id uint8, mode Mode, ms uint16) bool {
	if int(id) >= MaxTimers {
		s.log.Warn().Uint8("timer", id).Msg("timer id out of range")
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[id] = slot{mode: mode, period: uint64(ms), due: s.now + uint64(ms)}
	return true
}

// Stop disarms timer id.
func (s *Service) Stop(id uint8) {
	if int(id) >= MaxTimers {
		return
	}
	s.mu.Lock()
	s.slots[id] = slot{}
	s.mu.Unlock()
}

// Armed reports whether timer id is armed.
func (s *Service) Armed(id uint8) bool {
	if int(id) >= MaxTimers {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[id].mode != 0
}

// Now returns the last observed tick.
func (s *Service) Now() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Tick advances the clock to now and fires every due timer in id order.
func (s *Service) Tick(now uint64) {
	var fired [MaxTimers]uint8
	n := 0

	s.mu.Lock()
	if now > s.now {
		s.now = now
	}
	for i := range s.slots {
		sl := &s.slots[i]
		if sl.mode == 0 || sl.due > s.now {
			continue
		}
		fired[n] = uint8(i)
		n++
		if sl.mode == Periodic {
			sl.due = s.now + sl.period
		} else {
			*sl = slot{}
		}
	}
	h := s.handler
	s.mu.Unlock()

	if h == nil {
		return
	}
	for _, id := range fired[:n] {
		h(id)
	}
}

// Run feeds ticks into the service until ctx is done or ticks is closed.
func (s *Service) Run(ctx context.Context, ticks <-chan uint64) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case seq, ok := <-ticks:
			if !ok {
				return nil
			}
			s.Tick(seq)
		}
	}
}
