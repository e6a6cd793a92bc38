//////////////////////////////////////////////////////////////////////////////
//
// Player runs one playback session at a time over a persistent slot pool
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package alohaplay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/lanikai/alohaplay/internal/decode"
	"github.com/lanikai/alohaplay/internal/extract"
	"github.com/lanikai/alohaplay/internal/ingest"
	"github.com/lanikai/alohaplay/internal/logging"
	"github.com/lanikai/alohaplay/internal/media"
	"github.com/lanikai/alohaplay/internal/metrics"
	"github.com/lanikai/alohaplay/internal/render"
	"github.com/lanikai/alohaplay/internal/ring"
)

var log = logging.DefaultLogger.WithTag("player")

// Source is a container byte source. See OpenSource.
type Source = media.Source

var (
	// OpenSource opens a source spec of the form "tag:path", e.g.
	// "zstd:/var/lib/clips/lobby.avi.zst". A bare path opens a file.
	OpenSource = media.OpenSource

	FromBytes  = media.FromBytes
	FromReader = media.FromReader
)

type Status int

const (
	Idle Status = iota
	Active
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Stats is a snapshot of the player's counters, accumulated over all sessions.
type Stats struct {
	BytesIngested   uint64
	SlotsFilled     uint64
	SlotsScanned    uint64
	FramesDelivered uint64
	FramesTruncated uint64
	FramesOversize  uint64
	DecodeErrors    uint64
}

// Player owns the slot pool and the lifecycle of the producer and extractor
// workers. At most one session is active at a time.
type Player struct {
	cfg     Config
	scale   render.Scale
	pool    *ring.Pool
	decoder decode.Decoder

	ingestStats  ingest.Stats
	extractStats extract.Stats
	collector    *metrics.Collector

	mu      sync.Mutex
	session *session
	status  Status
	err     error
}

type session struct {
	id     string
	src    media.Source
	cancel context.CancelFunc

	// Closed once both workers have exited and err is final.
	done chan struct{}
	err  error
}

func NewPlayer(cfg Config) (*Player, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	scale, _ := render.ParseScale(cfg.Scale)

	var dec decode.Decoder = decode.Image
	if cfg.Decode != nil {
		dec = decode.DecoderFunc(cfg.Decode)
	}
	if cfg.CacheSize > 0 {
		dec = decode.NewCache(dec, cfg.CacheSize)
	}

	p := &Player{
		cfg:     cfg,
		scale:   scale,
		pool:    ring.New(cfg.Slots, cfg.SlotSize),
		decoder: dec,
	}
	p.collector = metrics.NewCollector(&p.ingestStats, &p.extractStats, p.pool, nil)
	return p, nil
}

// Must is a helper that wraps a call to a function returning (*Player, error)
// and panics if the error is non-nil.
func Must(p *Player, err error) *Player {
	if err != nil {
		panic(err)
	}
	return p
}

// Start plays src on a canvas of the configured size. See StartSized.
func (p *Player) Start(src Source) error {
	return p.StartSized(src, p.cfg.Width, p.cfg.Height)
}

// StartSized begins a new session playing src onto a width x height canvas,
// and returns without waiting for playback to finish. It fails with
// ErrAlreadyActive if a session is running. The player takes ownership of
// src and closes it when the session ends.
func (p *Player) StartSized(src Source, width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "canvas size %dx%d", width, height)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status == Active {
		return ErrAlreadyActive
	}

	producer, err := ingest.For(src, &p.ingestStats)
	if err != nil {
		return err
	}
	if err := p.pool.Reset(); err != nil {
		return errors.Wrap(err, "reset pool")
	}

	cfg := extract.Config{
		Decoder:  p.decoder,
		Canvas:   render.NewCanvas(width, height, p.scale),
		Deliver:  p.cfg.Deliver,
		Carry:    p.cfg.Carry,
		MaxCarry: p.cfg.MaxCarry,
	}
	if p.cfg.FrameRate > 0 {
		cfg.Limiter = rate.NewLimiter(rate.Limit(p.cfg.FrameRate), 1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:     uuid.New().String(),
		src:    src,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	p.session = s
	p.status = Active
	p.err = nil

	log.Info("Session %s: playing %s on %dx%d canvas", s.id, src.Name(), width, height)
	go p.run(ctx, s, producer, extract.New(cfg, &p.extractStats))
	return nil
}

func (p *Player) run(ctx context.Context, s *session, producer ingest.Producer, ext *extract.Extractor) {
	var wg sync.WaitGroup
	var perr, eerr error

	// A failing producer still closes the pool, so the extractor drains
	// every committed slot before the session ends.
	wg.Add(1)
	go func() {
		defer wg.Done()
		perr = producer.Produce(ctx, p.pool)
	}()

	// The producer may be waiting for a free slot.
	if eerr = ext.Run(ctx, p.pool); eerr != nil {
		s.cancel()
	}
	wg.Wait()
	s.cancel()

	if err := s.src.Close(); err != nil {
		log.Warn("Session %s: close %s: %v", s.id, s.src.Name(), err)
	}

	err := perr
	if err == nil {
		err = eerr
	}

	p.mu.Lock()
	s.err = err
	if err != nil {
		log.Error("Session %s failed: %v", s.id, err)
		p.status = Failed
		p.err = err
	} else {
		log.Info("Session %s ended", s.id)
		p.status = Idle
	}
	p.mu.Unlock()
	close(s.done)
}

// Stop asks the current session to end, and returns immediately. The workers
// exit at their next slot boundary.
func (p *Player) Stop() {
	p.mu.Lock()
	s := p.session
	p.mu.Unlock()

	if s != nil {
		s.cancel()
	}
}

// StopWait stops the current session and waits up to timeout for both workers
// to exit. A producer stuck in a source read cannot be interrupted; in that
// case ErrStopTimeout is returned and the session remains active.
func (p *Player) StopWait(timeout time.Duration) error {
	p.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := p.Wait(ctx); err == context.DeadlineExceeded {
		return ErrStopTimeout
	}
	return nil
}

// Wait blocks until the current (or most recent) session ends, and returns
// its error.
func (p *Player) Wait(ctx context.Context) error {
	p.mu.Lock()
	s := p.session
	p.mu.Unlock()

	if s == nil {
		return ErrNotActive
	}
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Err returns the error that failed the most recent session, if any.
func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// SessionID identifies the current or most recent session in logs.
func (p *Player) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return ""
	}
	return p.session.id
}

func (p *Player) Stats() Stats {
	return Stats{
		BytesIngested:   p.ingestStats.Bytes(),
		SlotsFilled:     p.ingestStats.Slots(),
		SlotsScanned:    p.extractStats.Slots(),
		FramesDelivered: p.extractStats.Delivered(),
		FramesTruncated: p.extractStats.Truncated(),
		FramesOversize:  p.extractStats.Oversize(),
		DecodeErrors:    p.extractStats.DecodeErrors(),
	}
}

// Collector exports the player's counters to prometheus.
func (p *Player) Collector() prometheus.Collector {
	return p.collector
}
