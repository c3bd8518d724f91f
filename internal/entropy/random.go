// Package entropy draws fresh seeds from the operating system's random source
// for runs that should not repeat.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"log/slog"
	"time"
)

// reader is the entropy source (replaced in tests).
var reader io.Reader = rand.Reader

// NewSeed returns a non-negative random seed. Falls back to the wall clock
// if the system source fails.
func NewSeed() int64 {
	var buf [8]byte
	if _, err := io.ReadFull(reader, buf[:]); err != nil {
		slog.Warn("entropy: system random source failed, seeding from clock", "error", err)
		return time.Now().UnixNano() & (1<<63 - 1)
	}
	return int64(binary.BigEndian.Uint64(buf[:]) >> 1)
}
