// Package uuid mints the fresh identifier values spec.md §3.3's Guid
// expression produces: a v4-shaped UUID string read from a caller-supplied
// entropy source, so callers (tests, deterministic replays) can supply a
// fixed reader and get a reproducible identifier.
//
// Grounded on internal/uuid/uuid.go's New, trimmed to the bit-twiddling
// this module actually needs — the Rego uuid.parse builtin's decode-a-MAC-
// address/clock-sequence machinery has no counterpart here, since nothing
// in this module parses a UUID back apart, only mints one.
package uuid

import (
	"fmt"
	"io"
)

// New creates a version 4 random UUID, reading 16 bytes of entropy from r.
func New(r io.Reader) (string, error) {
	bs := make([]byte, 16)
	n, err := io.ReadFull(r, bs)
	if n != len(bs) || err != nil {
		return "", err
	}
	bs[8] = bs[8]&^0xc0 | 0x80
	bs[6] = bs[6]&^0xf0 | 0x40
	return fmt.Sprintf("%x-%x-%x-%x-%x", bs[0:4], bs[4:6], bs[6:8], bs[8:10], bs[10:]), nil
}
