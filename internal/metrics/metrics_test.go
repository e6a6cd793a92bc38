package metrics

import (
	"context"
	"image"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/alohaplay/internal/container"
	"github.com/lanikai/alohaplay/internal/decode"
	"github.com/lanikai/alohaplay/internal/extract"
	"github.com/lanikai/alohaplay/internal/ingest"
	"github.com/lanikai/alohaplay/internal/render"
	"github.com/lanikai/alohaplay/internal/ring"
)

func TestCollector(t *testing.T) {
	data := container.AppendFrame(nil, []byte("ok"))
	data = container.AppendFrame(data, []byte("truncated"))
	data = data[:len(data)-1]

	pool := ring.New(2, 64)
	var ing ingest.Stats
	var ext extract.Stats
	ctx := context.Background()
	require.NoError(t, ingest.NewMemoryProducer(data, &ing).Produce(ctx, pool))
	require.NoError(t, extract.New(extract.Config{
		Decoder: decode.DecoderFunc(func(b []byte) (image.Image, error) {
			return image.NewGray(image.Rect(0, 0, 1, 1)), nil
		}),
		Canvas: render.NewCanvas(1, 1, render.Origin),
	}, &ext).Run(ctx, pool))

	c := NewCollector(&ing, &ext, pool, prometheus.Labels{"player": "test"})
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	expected := `
# HELP alohaplay_frames_delivered_total Frames decoded and delivered.
# TYPE alohaplay_frames_delivered_total counter
alohaplay_frames_delivered_total{player="test"} 1
# HELP alohaplay_frames_dropped_total Frames found in the stream but not delivered.
# TYPE alohaplay_frames_dropped_total counter
alohaplay_frames_dropped_total{player="test",reason="decode"} 0
alohaplay_frames_dropped_total{player="test",reason="oversize"} 0
alohaplay_frames_dropped_total{player="test",reason="truncated"} 1
# HELP alohaplay_pool_filled_slots Committed slots not yet released by the extractor.
# TYPE alohaplay_pool_filled_slots gauge
alohaplay_pool_filled_slots{player="test"} 0
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"alohaplay_frames_delivered_total", "alohaplay_frames_dropped_total", "alohaplay_pool_filled_slots"))

	n, err := testutil.GatherAndCount(reg, "alohaplay_ingest_bytes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
