// Package nodecfg defines the node configuration record stored at the start
// of the EEPROM.
package nodecfg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

const (
	// Size is the encoded record size.
	Size = 30

	// UserOffset is the first EEPROM byte free for threads.
	UserOffset = 64

	version = 1
	nameLen = 16
)

var magic = [4]byte{'M', 'O', 'T', 'E'}

var (
	ErrNoConfig   = errors.New("nodecfg: no config record")
	ErrBadVersion = errors.New("nodecfg: unsupported version")
	ErrChecksum   = errors.New("nodecfg: checksum mismatch")
)

// Flags toggle optional node behaviour.
type Flags uint8

const (
	FlagDemo Flags = 1 << iota
	FlagReclaimCorrupted
)

// Config is the decoded record.
type Config struct {
	NodeID       uint16
	TickPeriodMs uint16
	Flags        Flags
	Name         string
}

// Encode returns the record for c. Names longer than 16 bytes are cut.
func Encode(c Config) []byte {
	b := make([]byte, Size)
	copy(b[0:4], magic[:])
	b[4] = version
	b[5] = byte(c.Flags)
	binary.LittleEndian.PutUint16(b[6:8], c.NodeID)
	binary.LittleEndian.PutUint16(b[8:10], c.TickPeriodMs)
	name := c.Name
	if len(name) > nameLen {
		name = name[:nameLen]
	}
	copy(b[10:10+nameLen], name)
	binary.LittleEndian.PutUint32(b[26:30], crc32.ChecksumIEEE(b[:26]))
	return b
}

// Decode parses a record. An erased EEPROM yields ErrNoConfig.
func Decode(b []byte) (Config, error) {
	if len(b) < Size || [4]byte(b[0:4]) != magic {
		return Config{}, ErrNoConfig
	}
	if b[4] != version {
		return Config{}, fmt.Errorf("%w: %d", ErrBadVersion, b[4])
	}
	if binary.LittleEndian.Uint32(b[26:30]) != crc32.ChecksumIEEE(b[:26]) {
		return Config{}, ErrChecksum
	}
	name := b[10 : 10+nameLen]
	for i, c := range name {
		if c == 0 {
			name = name[:i]
			break
		}
	}
	return Config{
		Flags:        Flags(b[5]),
		NodeID:       binary.LittleEndian.Uint16(b[6:8]),
		TickPeriodMs: binary.LittleEndian.Uint16(b[8:10]),
		Name:         string(name),
	}, nil
}
