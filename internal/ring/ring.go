//////////////////////////////////////////////////////////////////////////////
//
// Fixed-capacity slot ring shared by one producer and one consumer
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package ring

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/lanikai/alohaplay/internal/logging"
)

var log = logging.DefaultLogger.WithTag("ring")

var (
	// ErrBusy is returned by Reset while a slot is still owned by either side.
	ErrBusy = errors.New("ring: slot still owned")

	// ErrClosed is returned to a blocked producer when the pool is reset.
	ErrClosed = errors.New("ring: pool closed")
)

// Op identifies a pool transition, for use with WithTrace.
type Op int

const (
	AcquireWrite Op = iota
	CommitWrite
	AcquireRead
	CommitRead
)

func (op Op) String() string {
	switch op {
	case AcquireWrite:
		return "AcquireWrite"
	case CommitWrite:
		return "CommitWrite"
	case AcquireRead:
		return "AcquireRead"
	case CommitRead:
		return "CommitRead"
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// A Slot is one fixed-size buffer of the pool.
type Slot struct {
	// Position of the slot in the ring, 0 <= Index < Cap().
	Index int

	// Commit sequence number. Strictly increasing in commit order, starting
	// at 1 after New or Reset.
	Seq uint64

	// Number of valid bytes at the front of Buf.
	Len int

	// Full-capacity backing buffer. Bytes past Len are stale.
	Buf []byte
}

// Bytes returns the valid prefix of the slot.
func (s *Slot) Bytes() []byte {
	return s.Buf[:s.Len]
}

// Pool is a single-producer/single-consumer ring of equally sized slots.
// Slots are read in exactly the order they were committed, exactly once, and
// a committed slot is never handed to the producer again until the consumer
// has released it.
type Pool struct {
	slots []Slot

	// Ring state, guarded by mu. writeIndex == (readIndex + filled) % len(slots).
	writeIndex int
	readIndex  int
	filled     int

	// Sequence number of the next committed slot.
	nextSeq uint64

	// Ownership flags, one slot per side at most.
	writing bool
	reading bool

	// Set by CloseWrite. Readers see io.EOF once the ring drains.
	eof bool

	// Single-item channels used to wake a blocked side. A pending token may be
	// stale, so waiters always re-check state under mu.
	readable chan struct{}
	writable chan struct{}

	// Closed by Reset to release a producer blocked on a full ring.
	closed chan struct{}

	trace func(op Op, index int)

	mu sync.Mutex
}

// Option configures a Pool.
type Option func(*Pool)

// WithTrace installs a hook called on every ownership transition. The hook
// runs with the pool lock held and must not call back into the pool.
func WithTrace(fn func(op Op, index int)) Option {
	return func(p *Pool) {
		p.trace = fn
	}
}

// New creates a pool of n slots, each holding size bytes. The slots are
// carved out of a single allocation.
func New(n, size int, opts ...Option) *Pool {
	if n < 1 || size < 1 {
		panic(fmt.Sprintf("ring: invalid pool geometry %d x %d", n, size))
	}

	backing := make([]byte, n*size)
	p := &Pool{
		slots:    make([]Slot, n),
		nextSeq:  1,
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
	for i := range p.slots {
		p.slots[i] = Slot{
			Index: i,
			Buf:   backing[i*size : (i+1)*size : (i+1)*size],
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Cap returns the number of slots.
func (p *Pool) Cap() int {
	return len(p.slots)
}

// SlotSize returns the capacity of each slot in bytes.
func (p *Pool) SlotSize() int {
	return len(p.slots[0].Buf)
}

// Len returns the number of committed slots awaiting the consumer.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filled
}

// AcquireWrite returns the next slot to fill, blocking while every slot is
// committed and unread.
func (p *Pool) AcquireWrite(ctx context.Context) (*Slot, error) {
	for {
		p.mu.Lock()
		if p.writing {
			p.mu.Unlock()
			panic("ring: producer already owns a slot")
		}
		closed := p.closed
		if p.filled < len(p.slots) {
			s := &p.slots[p.writeIndex]
			s.Len = 0
			p.writing = true
			p.emit(AcquireWrite, s.Index)
			p.mu.Unlock()
			return s, nil
		}
		p.mu.Unlock()

		log.Trace(5, "ring full, producer waiting")
		select {
		case <-p.writable:
		case <-closed:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// CommitWrite marks the slot returned by AcquireWrite as holding n valid
// bytes, and hands it to the consumer.
func (p *Pool) CommitWrite(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.writing {
		panic("ring: CommitWrite without AcquireWrite")
	}
	s := &p.slots[p.writeIndex]
	if n < 0 || n > len(s.Buf) {
		panic(fmt.Sprintf("ring: commit of %d bytes into %d-byte slot", n, len(s.Buf)))
	}
	s.Len = n
	s.Seq = p.nextSeq
	p.nextSeq++

	p.writing = false
	p.filled++
	p.writeIndex = (p.writeIndex + 1) % len(p.slots)
	p.emit(CommitWrite, s.Index)
	signal(p.readable)
}

// AbortWrite returns the slot obtained by AcquireWrite without committing it.
func (p *Pool) AbortWrite() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.writing {
		panic("ring: AbortWrite without AcquireWrite")
	}
	p.slots[p.writeIndex].Len = 0
	p.writing = false
}

// CloseWrite tells the consumer that no more slots will be committed. Slots
// already committed are still delivered.
func (p *Pool) CloseWrite() {
	p.mu.Lock()
	p.eof = true
	p.mu.Unlock()
	signal(p.readable)
}

// AcquireRead returns the oldest committed slot, blocking while none is
// available. It returns io.EOF once CloseWrite was called and every committed
// slot has been read.
func (p *Pool) AcquireRead(ctx context.Context) (*Slot, error) {
	for {
		p.mu.Lock()
		if p.reading {
			p.mu.Unlock()
			panic("ring: consumer already owns a slot")
		}
		if p.filled > 0 {
			s := &p.slots[p.readIndex]
			p.reading = true
			p.emit(AcquireRead, s.Index)
			p.mu.Unlock()
			return s, nil
		}
		eof := p.eof
		p.mu.Unlock()

		if eof {
			return nil, io.EOF
		}

		select {
		case <-p.readable:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// CommitRead releases the slot returned by AcquireRead back to the producer.
func (p *Pool) CommitRead() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.reading {
		panic("ring: CommitRead without AcquireRead")
	}
	s := &p.slots[p.readIndex]
	s.Len = 0

	p.reading = false
	p.filled--
	p.readIndex = (p.readIndex + 1) % len(p.slots)
	p.emit(CommitRead, s.Index)
	signal(p.writable)
}

// Reset empties the pool for reuse by a new session. Unread slots are
// discarded. It fails with ErrBusy if either side still owns a slot.
func (p *Pool) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writing || p.reading {
		return ErrBusy
	}

	close(p.closed)
	p.closed = make(chan struct{})

	if p.filled > 0 {
		log.Debug("Discarding %d unread slots", p.filled)
	}
	for i := range p.slots {
		p.slots[i].Len = 0
		p.slots[i].Seq = 0
	}
	p.writeIndex, p.readIndex, p.filled = 0, 0, 0
	p.nextSeq = 1
	p.eof = false
	drain(p.readable)
	drain(p.writable)
	return nil
}

func (p *Pool) emit(op Op, index int) {
	if p.trace != nil {
		p.trace(op, index)
	}
}

// Leave a wakeup token without blocking. One pending token is enough, since
// the waiter re-checks state.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func drain(ch chan struct{}) {
	select {
	case <-ch:
	default:
	}
}
