package app

import (
	"fmt"
	"image/color"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"mote/hal"
	"mote/kernel"
)

// installPanicHandler logs thread panics and paints a banner on the bottom
// of the screen. The node keeps running; the thread is destroyed by the
// kernel after the handler returns.
func installPanicHandler(h hal.HAL, log zerolog.Logger) {
	kernel.SetPanicHandler(func(info kernel.PanicInfo) {
		ev := log.Error().Uint8("thread", info.Thread).Str("name", info.Name).Interface("panic", info.Value)
		if len(info.Stack) > 0 {
			ev = ev.Str("stack", firstLines(string(info.Stack), 6))
		}
		ev.Msg("thread panic")

		if h == nil || h.Display() == nil {
			return
		}
		fb := h.Display().Framebuffer()
		if fb == nil || fb.Buffer() == nil {
			return
		}
		drawBanner(fb, fmt.Sprintf("panic in %s (%d): %v", info.Name, info.Thread, info.Value))
	})
}

func firstLines(s string, n int) string {
	lines := strings.SplitN(s, "\n", n+1)
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}

func drawBanner(fb hal.Framebuffer, msg string) {
	font := &proggy.TinySZ8pt7b
	fontHeight, fontOffset := int16(10), int16(7)
	_, outboxWidth := tinyfont.LineWidth(font, "0")
	fontWidth := int16(outboxWidth)
	if fontWidth <= 0 {
		return
	}

	d := panicDisplay{fb: fb}
	w, hgt := d.Size()
	y := hgt - fontHeight
	for x := int16(0); x < w; x++ {
		for yy := y; yy < hgt; yy++ {
			d.SetPixel(x, yy, color.RGBA{R: 0x80, A: 0xFF})
		}
	}
	chunk, _ := takeRunes(msg, w/fontWidth)
	drawTextLine(d, font, fontWidth, fontOffset, 0, y, chunk, color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF})
	_ = fb.Present()
}

func drawTextLine(
	d panicDisplay,
	font tinyfont.Fonter,
	fontWidth, fontOffset int16,
	x0, y0 int16,
	s string,
	fg color.RGBA,
) {
	var drawX = x0
	for _, r := range s {
		tinyfont.DrawChar(d, font, drawX, y0+fontOffset, r, fg)
		drawX += fontWidth
	}
}

type panicDisplay struct {
	fb hal.Framebuffer
}

func (d panicDisplay) Size() (x, y int16) {
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d panicDisplay) SetPixel(x, y int16, c color.RGBA) {
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= d.fb.Width() || iy < 0 || iy >= d.fb.Height() {
		return
	}
	hal.PutRGB565(d.fb.Buffer(), iy*d.fb.StrideBytes()+ix*2, hal.RGB565(c.R, c.G, c.B))
}

func (d panicDisplay) Display() error { return nil }

func takeRunes(s string, n int16) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	var i int
	var count int16
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		count++
	}
	return s[:i], s[i:]
}
