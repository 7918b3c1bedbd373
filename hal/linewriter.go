package hal

import "bytes"

// LineWriter adapts a Logger to io.Writer. Each complete line written is
// forwarded as one log line; a trailing partial line is held until the next
// newline.
type LineWriter struct {
	L   Logger
	buf []byte
}

func (w *LineWriter) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			w.buf = append(w.buf, p...)
			break
		}
		if len(w.buf) > 0 {
			w.buf = append(w.buf, p[:i]...)
			w.L.WriteLineBytes(w.buf)
			w.buf = w.buf[:0]
		} else {
			w.L.WriteLineBytes(p[:i])
		}
		p = p[i+1:]
	}
	return n, nil
}
