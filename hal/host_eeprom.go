//go:build !baremetal

package hal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

const (
	hostEEPROMDefaultPath = "mote.eeprom"

	// EEPROMSizeBytes is the size of the node EEPROM.
	EEPROMSizeBytes = 4096
)

// FileEEPROM is an EEPROM backed by a regular file.
type FileEEPROM struct {
	mu   sync.Mutex
	f    *os.File
	size int
}

func openHostEEPROM(l Logger) EEPROM {
	path := os.Getenv("MOTE_EEPROM_PATH")
	if path == "" {
		path = hostEEPROMDefaultPath
	}
	e, err := OpenFileEEPROM(path, EEPROMSizeBytes)
	if err != nil {
		l.WriteLineString("eeprom: " + err.Error() + " (using volatile eeprom)")
		return NewMemEEPROM(EEPROMSizeBytes)
	}
	return e
}

// OpenFileEEPROM opens or creates path. A new or empty file is grown to size
// bytes of 0xFF; an existing file keeps its own size.
func OpenFileEEPROM(path string, size int) (*FileEEPROM, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open eeprom %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat eeprom %s: %w", path, err)
	}
	if st.Size() > 0 {
		return &FileEEPROM{f: f, size: int(st.Size())}, nil
	}

	blank := make([]byte, size)
	for i := range blank {
		blank[i] = 0xFF
	}
	if _, err := f.WriteAt(blank, 0); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("format eeprom %s: %w", path, err)
	}
	return &FileEEPROM{f: f, size: size}, nil
}

func (e *FileEEPROM) SizeBytes() int { return e.size }

func (e *FileEEPROM) ReadAt(p []byte, off int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if off < 0 || off >= e.size {
		return 0, fmt.Errorf("eeprom read at %d: %w", off, ErrOutOfRange)
	}
	if maxN := e.size - off; len(p) > maxN {
		p = p[:maxN]
	}
	n, err := e.f.ReadAt(p, int64(off))
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return n, err
}

func (e *FileEEPROM) WriteAt(p []byte, off int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if off < 0 || off >= e.size {
		return 0, fmt.Errorf("eeprom write at %d: %w", off, ErrOutOfRange)
	}
	if maxN := e.size - off; len(p) > maxN {
		p = p[:maxN]
	}
	return e.f.WriteAt(p, int64(off))
}

// Close closes the backing file.
func (e *FileEEPROM) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.f.Close()
}
