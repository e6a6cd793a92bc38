package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/alohaplay"
)

func writePNG(t *testing.T, path string, w, h int) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func TestPackPlays(t *testing.T) {
	dir := t.TempDir()
	var images []string
	for i, name := range []string{"a.png", "b.png", "c.png"} {
		path := filepath.Join(dir, name)
		writePNG(t, path, 8+i, 8)
		images = append(images, path)
	}

	for _, out := range []string{"clip.avi", "clip.avi.zst"} {
		t.Run(out, func(t *testing.T) {
			path := filepath.Join(dir, out)
			require.NoError(t, pack(append([]string{path}, images...)))

			spec := path
			if filepath.Ext(out) == ".zst" {
				spec = "zstd:" + path
			}
			src, err := alohaplay.OpenSource(spec)
			require.NoError(t, err)

			delivered := 0
			p := alohaplay.Must(alohaplay.NewPlayer(alohaplay.Config{
				Width:    16,
				Height:   16,
				SlotSize: 4096,
				Deliver:  func(*image.RGBA) { delivered++ },
			}))
			require.NoError(t, p.Start(src))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			require.NoError(t, p.Wait(ctx))
			assert.Equal(t, 3, delivered)
		})
	}
}

func TestPackUsage(t *testing.T) {
	assert.Error(t, pack(nil))
	assert.Error(t, pack([]string{filepath.Join(t.TempDir(), "out.avi"), "/nonexistent.png"}))
}
