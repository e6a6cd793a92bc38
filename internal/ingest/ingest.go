//////////////////////////////////////////////////////////////////////////////
//
// Producers filling pool slots from a byte source
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package ingest

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/lanikai/alohaplay/internal/logging"
	"github.com/lanikai/alohaplay/internal/media"
	"github.com/lanikai/alohaplay/internal/ring"
)

var log = logging.DefaultLogger.WithTag("ingest")

// Give up on readers that keep returning (0, nil).
const maxEmptyReads = 100

// A Producer fills pool slots in order until its source is exhausted. It
// returns nil when the source ends or ctx is cancelled, and closes the write
// side of the pool on return either way. Cancellation is only observed
// between slot fills and while waiting for a free slot.
type Producer interface {
	Produce(ctx context.Context, pool *ring.Pool) error
}

// SourceError reports a failed read from the underlying source, as opposed
// to the source simply running out of data.
type SourceError struct {
	// Stream offset at which the read failed.
	Offset int64

	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source read failed at offset %d: %v", e.Offset, e.Err)
}

func (e *SourceError) Cause() error  { return e.Err }
func (e *SourceError) Unwrap() error { return e.Err }

// Stats counts ingested data. Safe for concurrent reads.
type Stats struct {
	bytes uint64
	slots uint64
}

func (s *Stats) Bytes() uint64 { return atomic.LoadUint64(&s.bytes) }
func (s *Stats) Slots() uint64 { return atomic.LoadUint64(&s.slots) }

func (s *Stats) add(n int) {
	if s != nil {
		atomic.AddUint64(&s.bytes, uint64(n))
		atomic.AddUint64(&s.slots, 1)
	}
}

// For picks the producer matching the capabilities of src. Memory sources are
// copied slot by slot, everything else is read as a stream.
func For(src media.Source, stats *Stats) (Producer, error) {
	switch s := src.(type) {
	case media.MemorySource:
		return NewMemoryProducer(s.Bytes(), stats), nil
	case media.StreamSource:
		return NewStreamProducer(s, stats), nil
	}
	return nil, errors.Errorf("source %s is neither a stream nor in memory", src.Name())
}

// fillFunc writes the next run of source bytes into buf. It reports how many
// bytes were written, and whether the source is finished.
type fillFunc func(buf []byte) (n int, done bool, err error)

// run is the slot loop shared by all producers.
func run(ctx context.Context, pool *ring.Pool, stats *Stats, fill fillFunc) error {
	defer pool.CloseWrite()

	for {
		if ctx.Err() != nil {
			log.Debug("Stop requested, producer exiting")
			return nil
		}

		slot, err := pool.AcquireWrite(ctx)
		if err != nil {
			if err == ring.ErrClosed || ctx.Err() != nil {
				return nil
			}
			return err
		}

		n, done, err := fill(slot.Buf)
		if n > 0 {
			pool.CommitWrite(n)
			stats.add(n)
			log.Trace(5, "Committed slot %d with %d bytes", slot.Index, n)
		} else {
			pool.AbortWrite()
		}

		if err != nil {
			log.Error("%v", err)
			return err
		}
		if done {
			log.Debug("Source exhausted")
			return nil
		}
	}
}

type streamProducer struct {
	r      io.Reader
	offset int64
	stats  *Stats
}

// NewStreamProducer reads r sequentially into slots, reissuing short reads
// until each slot is full. Only io.EOF ends the stream normally; the final
// partial slot is committed with its valid length. Any other read error,
// io.ErrUnexpectedEOF from a cut off source included, is returned as a
// *SourceError after committing the bytes read so far.
func NewStreamProducer(r io.Reader, stats *Stats) Producer {
	return &streamProducer{r: r, stats: stats}
}

func (p *streamProducer) Produce(ctx context.Context, pool *ring.Pool) error {
	return run(ctx, pool, p.stats, p.fill)
}

func (p *streamProducer) fill(buf []byte) (n int, done bool, err error) {
	empty := 0
	for n < len(buf) {
		m, rerr := p.r.Read(buf[n:])
		n += m
		switch {
		case rerr == io.EOF:
			done = true
		case rerr != nil:
			err = &SourceError{Offset: p.offset + int64(n), Err: rerr}
			done = true
		case m == 0:
			if empty++; empty >= maxEmptyReads {
				err = &SourceError{Offset: p.offset + int64(n), Err: io.ErrNoProgress}
				done = true
			}
		default:
			empty = 0
		}
		if done {
			break
		}
	}
	p.offset += int64(n)
	return
}

type memoryProducer struct {
	data  []byte
	off   int
	stats *Stats
}

// NewMemoryProducer copies data into slots, min(slot size, remaining) bytes
// at a time, with the same commit semantics as a stream that ends after the
// last byte.
func NewMemoryProducer(data []byte, stats *Stats) Producer {
	return &memoryProducer{data: data, stats: stats}
}

func (p *memoryProducer) Produce(ctx context.Context, pool *ring.Pool) error {
	return run(ctx, pool, p.stats, p.fill)
}

func (p *memoryProducer) fill(buf []byte) (int, bool, error) {
	n := copy(buf, p.data[p.off:])
	p.off += n
	return n, p.off == len(p.data), nil
}
