package ingest

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/alohaplay/internal/media"
	"github.com/lanikai/alohaplay/internal/ring"
)

// drain reads every slot until the producer closes the pool.
func drain(t *testing.T, pool *ring.Pool) []string {
	var chunks []string
	for {
		s, err := pool.AcquireRead(context.Background())
		if err == io.EOF {
			return chunks
		}
		require.NoError(t, err)
		chunks = append(chunks, string(s.Bytes()))
		pool.CommitRead()
	}
}

func produce(t *testing.T, p Producer, pool *ring.Pool) ([]string, error) {
	errc := make(chan error, 1)
	go func() { errc <- p.Produce(context.Background(), pool) }()
	chunks := drain(t, pool)
	return chunks, <-errc
}

func TestStreamShortReads(t *testing.T) {
	input := "abcdefghijklmnopqrstuvwxyz"
	for name, r := range map[string]io.Reader{
		"full":    strings.NewReader(input),
		"onebyte": iotest.OneByteReader(strings.NewReader(input)),
		"half":    iotest.HalfReader(strings.NewReader(input)),
		"dataeof": iotest.DataErrReader(strings.NewReader(input)),
	} {
		var stats Stats
		chunks, err := produce(t, NewStreamProducer(r, &stats), ring.New(3, 10))
		require.NoError(t, err, name)
		assert.Equal(t, []string{"abcdefghij", "klmnopqrst", "uvwxyz"}, chunks, name)
		assert.EqualValues(t, 26, stats.Bytes(), name)
		assert.EqualValues(t, 3, stats.Slots(), name)
	}
}

func TestStreamExactMultiple(t *testing.T) {
	chunks, err := produce(t, NewStreamProducer(strings.NewReader("12345678"), nil), ring.New(2, 4))
	require.NoError(t, err)
	assert.Equal(t, []string{"1234", "5678"}, chunks)
}

type failingReader struct {
	data string
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.data == "" {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestStreamSourceError(t *testing.T) {
	boom := errors.New("device unplugged")
	chunks, err := produce(t, NewStreamProducer(&failingReader{"abcdef", boom}, nil), ring.New(3, 4))

	assert.Equal(t, []string{"abcd", "ef"}, chunks)
	serr, ok := err.(*SourceError)
	require.True(t, ok, "%T", err)
	assert.EqualValues(t, 6, serr.Offset)
	assert.Equal(t, boom, errors.Cause(err))
}

func TestStreamUnexpectedEOF(t *testing.T) {
	chunks, err := produce(t, NewStreamProducer(&failingReader{"abcdef", io.ErrUnexpectedEOF}, nil), ring.New(3, 4))

	assert.Equal(t, []string{"abcd", "ef"}, chunks)
	serr, ok := err.(*SourceError)
	require.True(t, ok, "%T", err)
	assert.EqualValues(t, 6, serr.Offset)
	assert.Equal(t, io.ErrUnexpectedEOF, errors.Cause(err))
}

type stuckReader struct{}

func (stuckReader) Read(p []byte) (int, error) { return 0, nil }

func TestStreamNoProgress(t *testing.T) {
	_, err := produce(t, NewStreamProducer(stuckReader{}, nil), ring.New(1, 4))
	assert.Equal(t, io.ErrNoProgress, errors.Cause(err))
}

func TestMemoryProducer(t *testing.T) {
	var stats Stats
	chunks, err := produce(t, NewMemoryProducer([]byte("0123456789"), &stats), ring.New(2, 4))
	require.NoError(t, err)
	assert.Equal(t, []string{"0123", "4567", "89"}, chunks)
	assert.EqualValues(t, 10, stats.Bytes())

	chunks, err = produce(t, NewMemoryProducer(nil, nil), ring.New(2, 4))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestProducersAgree(t *testing.T) {
	data := bytes.Repeat([]byte("00dc\x04\x00\x00\x00wxyz"), 7)
	a, err := produce(t, NewMemoryProducer(data, nil), ring.New(3, 16))
	require.NoError(t, err)
	b, err := produce(t, NewStreamProducer(iotest.HalfReader(bytes.NewReader(data)), nil), ring.New(3, 16))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestStopBetweenFills(t *testing.T) {
	pool := ring.New(2, 4)
	ctx, cancel := context.WithCancel(context.Background())

	// Endless source; producer fills the ring and blocks.
	errc := make(chan error, 1)
	go func() { errc <- NewStreamProducer(iotest.OneByteReader(endless{}), nil).Produce(ctx, pool) }()

	for pool.Len() < 2 {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("producer did not observe stop")
	}
	assert.Equal(t, 2, pool.Len())
}

type endless struct{}

func (endless) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'x'
	}
	return len(p), nil
}

func TestFor(t *testing.T) {
	p, err := For(media.FromBytes("m", []byte("x")), nil)
	require.NoError(t, err)
	assert.IsType(t, &memoryProducer{}, p)

	p, err = For(media.FromReader("s", strings.NewReader("x")), nil)
	require.NoError(t, err)
	assert.IsType(t, &streamProducer{}, p)

	_, err = For(bareSource{}, nil)
	assert.Error(t, err)
}

type bareSource struct{}

func (bareSource) Name() string { return "bare" }
func (bareSource) Close() error { return nil }
