//////////////////////////////////////////////////////////////////////////////
//
// Frame extractor: scans filled slots, decodes frames and delivers them
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package extract

import (
	"context"
	"image"
	"io"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/lanikai/alohaplay/internal/container"
	"github.com/lanikai/alohaplay/internal/decode"
	"github.com/lanikai/alohaplay/internal/logging"
	"github.com/lanikai/alohaplay/internal/render"
	"github.com/lanikai/alohaplay/internal/ring"
)

var log = logging.DefaultLogger.WithTag("extract")

type Config struct {
	Decoder decode.Decoder
	Canvas  *render.Canvas

	// Deliver is called synchronously for every decoded frame, on the
	// extractor goroutine. The image is the canvas itself, and is only valid
	// until Deliver returns. A slow Deliver holds up extraction, and once the
	// pool fills up, ingestion as well.
	Deliver func(*image.RGBA)

	// Paces delivery to the playback rate. Nil delivers as fast as frames
	// are decoded.
	Limiter *rate.Limiter

	// Recover frames spanning slot boundaries. See container.Scanner.
	Carry    bool
	MaxCarry int

	// Called with each slot before it is scanned.
	OnSlot func(*ring.Slot)
}

// Stats counts extraction results. Safe for concurrent reads.
type Stats struct {
	slots        uint64
	bytes        uint64
	delivered    uint64
	truncated    uint64
	oversize     uint64
	decodeErrors uint64
}

func (s *Stats) Slots() uint64        { return atomic.LoadUint64(&s.slots) }
func (s *Stats) Bytes() uint64        { return atomic.LoadUint64(&s.bytes) }
func (s *Stats) Delivered() uint64    { return atomic.LoadUint64(&s.delivered) }
func (s *Stats) Truncated() uint64    { return atomic.LoadUint64(&s.truncated) }
func (s *Stats) Oversize() uint64     { return atomic.LoadUint64(&s.oversize) }
func (s *Stats) DecodeErrors() uint64 { return atomic.LoadUint64(&s.decodeErrors) }

// Dropped counts every frame that was found but not delivered.
func (s *Stats) Dropped() uint64 {
	return s.Truncated() + s.Oversize() + s.DecodeErrors()
}

func (s *Stats) addScan(r container.Result) {
	atomic.AddUint64(&s.truncated, uint64(r.Truncated))
	atomic.AddUint64(&s.oversize, uint64(r.Oversize))
}

// Extractor is the consumer side of the pool.
type Extractor struct {
	cfg     Config
	scanner container.Scanner
	stats   *Stats
	lastSeq uint64
}

func New(cfg Config, stats *Stats) *Extractor {
	if cfg.Decoder == nil {
		cfg.Decoder = decode.Image
	}
	if stats == nil {
		stats = new(Stats)
	}
	return &Extractor{
		cfg:     cfg,
		scanner: container.Scanner{Carry: cfg.Carry, MaxCarry: cfg.MaxCarry},
		stats:   stats,
	}
}

// Run consumes slots until the producer closes the pool, or ctx is cancelled.
// Every acquired slot is released before Run returns.
func (e *Extractor) Run(ctx context.Context, pool *ring.Pool) error {
	for {
		slot, err := pool.AcquireRead(ctx)
		if err == io.EOF {
			e.stats.addScan(e.scanner.Flush())
			log.Debug("End of stream after %d slots", e.stats.Slots())
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		e.scanSlot(ctx, slot)
		pool.CommitRead()

		if ctx.Err() != nil {
			log.Debug("Stop requested, extractor exiting")
			return nil
		}
	}
}

func (e *Extractor) scanSlot(ctx context.Context, slot *ring.Slot) {
	if slot.Seq <= e.lastSeq {
		log.Error("Slot %d out of order: seq %d after %d", slot.Index, slot.Seq, e.lastSeq)
	}
	e.lastSeq = slot.Seq
	if e.cfg.OnSlot != nil {
		e.cfg.OnSlot(slot)
	}

	res := e.scanner.Scan(slot.Bytes(), func(payload []byte) {
		e.frame(ctx, payload)
	})
	e.stats.addScan(res)
	atomic.AddUint64(&e.stats.slots, 1)
	atomic.AddUint64(&e.stats.bytes, uint64(slot.Len))

	if res.Dropped() > 0 {
		log.Debug("Slot %d (seq %d): %d frames, %d truncated, %d oversize",
			slot.Index, slot.Seq, res.Frames, res.Truncated, res.Oversize)
	}
}

func (e *Extractor) frame(ctx context.Context, payload []byte) {
	if ctx.Err() != nil {
		return
	}

	img, err := e.cfg.Decoder.Decode(payload)
	if err != nil {
		atomic.AddUint64(&e.stats.decodeErrors, 1)
		log.Debug("Skipping frame: %v", err)
		return
	}

	canvas := e.cfg.Canvas.Render(img)

	if e.cfg.Limiter != nil {
		if err := e.cfg.Limiter.Wait(ctx); err != nil {
			return
		}
	}

	if e.cfg.Deliver != nil {
		e.cfg.Deliver(canvas)
	}
	atomic.AddUint64(&e.stats.delivered, 1)
}
