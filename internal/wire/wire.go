// Package wire frames values published to a byte store so readers can reject
// foreign or damaged bytes and know when the value was written.
package wire

import (
	"encoding/binary"
	"errors"
	"time"
)

const (
	version byte = 1
	hdrLen       = 4 + 1 + 8 + 4
)

var (
	ErrCorrupt = errors.New("swrcache: corrupt record")
	magic4     = [...]byte{'S', 'W', 'R', 'C'}
)

// Record: magic(4) | ver(1) | stamp(u64 be, unix nanos) | vlen(u32 be) | payload(vlen)
func EncodeRecord(stamp time.Time, payload []byte) []byte {
	b := make([]byte, hdrLen, hdrLen+len(payload))
	copy(b, magic4[:])
	b[4] = version
	binary.BigEndian.PutUint64(b[5:13], uint64(stamp.UnixNano()))
	binary.BigEndian.PutUint32(b[13:17], uint32(len(payload)))
	return append(b, payload...)
}

// DecodeRecord validates framing strictly: bad magic or version, truncation and
// trailing bytes are all ErrCorrupt. The payload aliases b.
func DecodeRecord(b []byte) (stamp time.Time, payload []byte, err error) {
	if len(b) < hdrLen || [4]byte(b[:4]) != magic4 || b[4] != version {
		return time.Time{}, nil, ErrCorrupt
	}
	ns := int64(binary.BigEndian.Uint64(b[5:13]))
	vlen := int(binary.BigEndian.Uint32(b[13:17]))
	if vlen != len(b)-hdrLen {
		return time.Time{}, nil, ErrCorrupt
	}
	return time.Unix(0, ns), b[hdrLen:], nil
}
