package monitor

import (
	"fmt"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"

	"mote/hal"
	"mote/kernel"
)

// Screen draws the thread table on a framebuffer.
type Screen struct {
	fb   hal.Framebuffer
	d    *fbDisplay
	t    *tinyterm.Terminal
	cols int
}

var font = &proggy.TinySZ8pt7b

// NewScreen returns a screen drawing on fb.
func NewScreen(fb hal.Framebuffer) *Screen {
	s := &Screen{fb: fb, d: &fbDisplay{fb: fb}}
	_, w := tinyfont.LineWidth(font, "0")
	if w > 0 {
		s.cols = fb.Width() / int(w)
	}
	return s
}

// Columns returns the number of text columns that fit on the screen.
func (s *Screen) Columns() int { return s.cols }

func (s *Screen) reset() {
	s.fb.ClearRGB(0, 0, 0)
	s.t = tinyterm.NewTerminal(s.d)
	s.t.Configure(&tinyterm.Config{
		Font:       font,
		FontHeight: 10,
		FontOffset: 7,
	})
}

// Show redraws the screen with a header line and one row per live slot.
func (s *Screen) Show(header string, infos []kernel.ThreadInfo) error {
	s.reset()
	fmt.Fprintf(s.t, "%s\r\n", clip(header, s.cols))
	for _, ti := range infos {
		if ti.State == kernel.StateNull {
			continue
		}
		line := fmt.Sprintf("%d %-8s %-9s %d/%d", ti.Index, ti.Name, ti.State, ti.Remaining, ti.Priority)
		fmt.Fprintf(s.t, "%s\r\n", clip(line, s.cols))
	}
	return s.d.Display()
}

func clip(s string, n int) string {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
