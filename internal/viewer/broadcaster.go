//////////////////////////////////////////////////////////////////////////////
//
// Broadcast encoded frames from one writer to multiple subscribers.
//
// Each subscriber has its own buffered channel. A written frame is added to
// every subscriber's channel by reference, without copying. Once a
// subscriber's channel is full, the oldest frame is dropped for each new one,
// so a slow browser never holds up playback.
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package viewer

import (
	"sync"

	"github.com/pkg/errors"
)

var errNotFound = errors.New("subscriber not found")

type Broadcaster struct {
	mutex       sync.Mutex
	subscribers []chan []byte
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Close the broadcaster. Every subscriber channel is drained and closed.
func (b *Broadcaster) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for _, subscriber := range b.subscribers {
		for len(subscriber) > 0 {
			<-subscriber
		}
		close(subscriber)
	}
	b.subscribers = nil
	return nil
}

// Subscribe to broadcasts, buffering up to n frames for the subscriber.
func (b *Broadcaster) Subscribe(n int) <-chan []byte {
	if n < 1 {
		panic("malformed buffer size")
	}

	channel := make(chan []byte, n)
	b.mutex.Lock()
	b.subscribers = append(b.subscribers, channel)
	b.mutex.Unlock()
	return channel
}

// Unsubscribe by providing the channel returned by Subscribe. The channel is
// closed.
func (b *Broadcaster) Unsubscribe(s <-chan []byte) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for i, subscriber := range b.subscribers {
		if s == subscriber {
			// Order not preserved
			subs := b.subscribers
			close(subs[i])
			subs[len(subs)-1], subs[i] = subs[i], subs[len(subs)-1]
			b.subscribers = subs[:len(subs)-1]
			return nil
		}
	}
	return errNotFound
}

// Len returns the number of subscribers.
func (b *Broadcaster) Len() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.subscribers)
}

// Write p to all subscribers. The caller must not modify p afterwards.
func (b *Broadcaster) Write(p []byte) (n int, err error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for _, subscriber := range b.subscribers {
		select {
		case subscriber <- p:
		default:
			// Subscriber backlogged. Drop oldest, add newest.
			select {
			case <-subscriber:
			default:
			}
			subscriber <- p
		}
	}
	return len(p), nil
}
