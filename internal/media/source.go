//////////////////////////////////////////////////////////////////////////////
//
// Byte sources feeding the playback pipeline
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package media

import (
	"io"

	"github.com/lanikai/alohaplay/internal/logging"
)

var log = logging.DefaultLogger.WithTag("media")

// Generic interface for a container byte source.
type Source interface {
	// Human readable description, for logging.
	Name() string

	// Free up any resources associated with the source.
	Close() error
}

// A StreamSource is read sequentially until io.EOF. Its total length may be
// unknown.
type StreamSource interface {
	Source
	io.Reader
}

// A MemorySource holds its entire content in memory up front.
type MemorySource interface {
	Source

	// Bytes returns the complete content. The slice must not be modified, and
	// is valid until Close.
	Bytes() []byte
}

type memorySource struct {
	name  string
	data  []byte
	close func() error
}

// FromBytes wraps an in-memory container.
func FromBytes(name string, data []byte) MemorySource {
	return &memorySource{name: name, data: data}
}

func (s *memorySource) Name() string  { return s.name }
func (s *memorySource) Bytes() []byte { return s.data }

func (s *memorySource) Close() error {
	s.data = nil
	if s.close != nil {
		return s.close()
	}
	return nil
}

type streamSource struct {
	io.Reader
	name   string
	closer io.Closer
}

// FromReader wraps an arbitrary reader. If r is also an io.Closer, it is
// closed with the source.
func FromReader(name string, r io.Reader) StreamSource {
	s := &streamSource{Reader: r, name: name}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

func (s *streamSource) Name() string { return s.name }

func (s *streamSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
