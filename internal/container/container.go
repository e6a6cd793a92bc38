// Package container locates frames in an "00dc" chunked byte stream.
//
// Each frame is laid out as
//
//	+--------+--------+--------+--------+
//	|  '0'   |  '0'   |  'd'   |  'c'   |   marker
//	+--------+--------+--------+--------+
//	|      payload length, uint32 LE    |
//	+--------+--------+--------+--------+
//	|     payload (length bytes) ...    |
//
// Frames may be separated by arbitrary bytes, which are skipped. The length
// is little-endian, matching the RIFF chunks this layout is taken from.
package container

import (
	"github.com/nareix/joy4/utils/bits/pio"
	errors "golang.org/x/xerrors"
)

const (
	MarkerSize = 4
	HeaderSize = MarkerSize + 4
)

// Marker is the chunk id that starts every frame header.
var Marker = [MarkerSize]byte{'0', '0', 'd', 'c'}

var (
	ErrNoMarker    = errors.New("container: no frame marker")
	ErrShortHeader = errors.New("container: short frame header")
)

// Header is a decoded frame header.
type Header struct {
	Length uint32
}

// Size of the whole frame, header included.
func (h Header) FrameSize() uint64 {
	return HeaderSize + uint64(h.Length)
}

// ParseHeader decodes the frame header at the start of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, errors.Errorf("%d bytes: %w", len(b), ErrShortHeader)
	}
	if !isMarker(b) {
		return Header{}, errors.Errorf("found %q: %w", b[:MarkerSize], ErrNoMarker)
	}
	return Header{Length: pio.U32LE(b[MarkerSize:])}, nil
}

// AppendFrame appends a complete frame carrying payload to dst.
func AppendFrame(dst, payload []byte) []byte {
	var hdr [HeaderSize]byte
	copy(hdr[:], Marker[:])
	pio.PutU32LE(hdr[MarkerSize:], uint32(len(payload)))
	dst = append(dst, hdr[:]...)
	return append(dst, payload...)
}

func isMarker(b []byte) bool {
	return b[0] == Marker[0] && b[1] == Marker[1] && b[2] == Marker[2] && b[3] == Marker[3]
}
