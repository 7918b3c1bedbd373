// Package monitor polls the thread table and reports what it finds: state
// changes go to the log, and the table can be dumped as text or drawn on a
// screen. Memory corruption is only ever reported here, by inspection.
package monitor

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"mote/kernel"
)

// Change is a slot whose state differs from the previous poll.
type Change struct {
	Index uint8
	Name  string
	From  kernel.State
	To    kernel.State
}

// Monitor watches one kernel.
type Monitor struct {
	k      *kernel.Kernel
	screen *Screen
	log    zerolog.Logger
	last   [kernel.MaxThreads]kernel.State
	polls  uint64
}

// New returns a monitor. screen may be nil.
func New(k *kernel.Kernel, screen *Screen, log zerolog.Logger) *Monitor {
	return &Monitor{k: k, screen: screen, log: log}
}

// Poll compares the thread table with the previous poll, logs the changes
// and redraws the screen if one is attached.
func (m *Monitor) Poll() []Change {
	infos := m.k.Snapshot()
	m.polls++

	var changes []Change
	for _, ti := range infos {
		prev := m.last[ti.Index]
		if prev == ti.State {
			continue
		}
		m.last[ti.Index] = ti.State
		c := Change{Index: ti.Index, Name: ti.Name, From: prev, To: ti.State}
		changes = append(changes, c)

		ev := m.log.Debug()
		if ti.State == kernel.StateMemError {
			ev = m.log.Error()
		}
		ev.Uint8("thread", c.Index).
			Str("name", c.Name).
			Stringer("from", c.From).
			Stringer("to", c.To).
			Msg("thread state")
	}

	if m.screen != nil && (len(changes) > 0 || m.polls == 1) {
		header := fmt.Sprintf("mote threads (%d live)", live(infos))
		if err := m.screen.Show(header, infos); err != nil {
			m.log.Debug().Err(err).Msg("screen refresh")
		}
	}
	return changes
}

// Faulted returns the slots currently in StateMemError.
func (m *Monitor) Faulted() []uint8 {
	var out []uint8
	for _, ti := range m.k.Snapshot() {
		if ti.State == kernel.StateMemError {
			out = append(out, ti.Index)
		}
	}
	return out
}

func live(infos []kernel.ThreadInfo) int {
	n := 0
	for _, ti := range infos {
		if ti.State != kernel.StateNull {
			n++
		}
	}
	return n
}

// Dump writes the live slots of infos as a table.
func Dump(w io.Writer, infos []kernel.ThreadInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IDX\tNAME\tSTATE\tCREDITS\tREGION\tWAIT")
	for _, ti := range infos {
		if ti.State == kernel.StateNull {
			continue
		}
		wait := "-"
		switch ti.State {
		case kernel.StateSleep, kernel.StatePreSleep:
			wait = fmt.Sprintf("%dms", ti.SleepMillis)
		case kernel.StateIO:
			wait = fmt.Sprintf("io %d/%d", ti.IO.Type, ti.IO.ID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d/%d\t%04x-%04x\t%s\n",
			ti.Index, ti.Name, ti.State, ti.Remaining, ti.Priority,
			ti.Region.Start, ti.Region.End, wait)
	}
	return tw.Flush()
}
