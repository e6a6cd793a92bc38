package container

import (
	"bytes"
)

// DefaultMaxCarry bounds the bytes a Scanner in carry mode holds back between
// calls to Scan.
const DefaultMaxCarry = 8 << 20

// Result counts what one Scan call found.
type Result struct {
	// Frames passed to the callback.
	Frames int

	// Candidates dropped because the frame ran past the end of the data.
	Truncated int

	// Candidates dropped in carry mode because the declared frame exceeds
	// MaxCarry.
	Oversize int
}

func (r *Result) Add(o Result) {
	r.Frames += o.Frames
	r.Truncated += o.Truncated
	r.Oversize += o.Oversize
}

// Dropped is the total number of discarded candidates.
func (r Result) Dropped() int {
	return r.Truncated + r.Oversize
}

// A Scanner extracts frames from successive chunks of a container stream.
//
// By default every chunk is scanned on its own: a frame that does not fit
// entirely inside the chunk is dropped. With Carry set, the unterminated tail
// of a chunk is held back and prepended to the next one, so frames spanning
// chunk boundaries are recovered.
type Scanner struct {
	Carry bool

	// Upper bound on a carried frame, header included. Zero means
	// DefaultMaxCarry.
	MaxCarry int

	pending []byte
	joined  []byte
}

// Scan calls fn once per complete frame in data, in order. The payload slice
// is only valid during the call.
func (s *Scanner) Scan(data []byte, fn func(payload []byte)) (res Result) {
	buf := data
	if s.Carry && len(s.pending) > 0 {
		s.joined = append(append(s.joined[:0], s.pending...), data...)
		buf = s.joined
	}
	s.pending = s.pending[:0]

	i := 0
	for {
		j := bytes.Index(buf[i:], Marker[:])
		if j < 0 {
			if s.Carry {
				s.keepMarkerPrefix(buf[i:])
			}
			return
		}
		m := i + j

		hdr, err := ParseHeader(buf[m:])
		if err != nil {
			// Header cut off by the end of the chunk.
			if s.Carry {
				s.pending = append(s.pending, buf[m:]...)
			} else {
				res.Truncated++
			}
			return
		}

		end := uint64(m) + hdr.FrameSize()
		if end > uint64(len(buf)) {
			switch {
			case !s.Carry:
				res.Truncated++
			case hdr.FrameSize() > uint64(s.maxCarry()):
				res.Oversize++
			default:
				s.pending = append(s.pending, buf[m:]...)
				return
			}
			// A bogus length must not hide later frames.
			i = m + MarkerSize
			continue
		}

		fn(buf[m+HeaderSize : end])
		res.Frames++
		i = int(end)
	}
}

// Flush ends the stream. In carry mode, a frame still held back can never
// complete, and is counted as truncated.
func (s *Scanner) Flush() (res Result) {
	if len(s.pending) >= MarkerSize && isMarker(s.pending) {
		res.Truncated++
	}
	s.pending = s.pending[:0]
	return
}

// Pending returns the number of bytes held back for the next Scan.
func (s *Scanner) Pending() int {
	return len(s.pending)
}

func (s *Scanner) maxCarry() int {
	if s.MaxCarry > 0 {
		return s.MaxCarry
	}
	return DefaultMaxCarry
}

// Hold back the longest suffix of b that could begin a marker.
func (s *Scanner) keepMarkerPrefix(b []byte) {
	for n := MarkerSize - 1; n > 0; n-- {
		if len(b) >= n && bytes.HasPrefix(Marker[:], b[len(b)-n:]) {
			s.pending = append(s.pending, b[len(b)-n:]...)
			return
		}
	}
}
