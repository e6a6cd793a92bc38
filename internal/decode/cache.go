package decode

import (
	"bytes"
	"hash/fnv"
	"image"
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/lanikai/alohaplay/internal/logging"
)

var log = logging.DefaultLogger.WithTag("decode")

// Cache remembers the most recently decoded payloads. Static scenes in MJPEG
// streams repeat byte-identical frames, which then skip decoding entirely.
type Cache struct {
	next Decoder

	lru *lru.Cache
	mu  sync.Mutex

	hits, misses uint64
}

type cacheEntry struct {
	payload []byte
	img     image.Image
}

// NewCache wraps next with an LRU of up to n decoded images. Decode errors are
// not cached.
func NewCache(next Decoder, n int) *Cache {
	return &Cache{
		next: next,
		lru:  lru.New(n),
	}
}

func (c *Cache) Decode(b []byte) (image.Image, error) {
	h := fnv.New64a()
	h.Write(b)
	key := h.Sum64()

	c.mu.Lock()
	if v, ok := c.lru.Get(key); ok {
		if e := v.(*cacheEntry); bytes.Equal(e.payload, b) {
			c.hits++
			c.mu.Unlock()
			return e.img, nil
		}
	}
	c.misses++
	c.mu.Unlock()

	img, err := c.next.Decode(b)
	if err != nil {
		return nil, err
	}

	e := &cacheEntry{payload: append([]byte(nil), b...), img: img}
	c.mu.Lock()
	c.lru.Add(key, e)
	c.mu.Unlock()
	return img, nil
}

// Stats returns the hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
