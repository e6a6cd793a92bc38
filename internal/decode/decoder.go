//////////////////////////////////////////////////////////////////////////////
//
// Frame payload decoders
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package decode

import (
	"bytes"
	"image"

	// Formats a frame payload may carry. MJPEG is by far the most common.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	errors "golang.org/x/xerrors"
)

// ErrEmpty is returned for zero-length payloads.
var ErrEmpty = errors.New("decode: empty payload")

// Decoder turns one frame payload into an image.
type Decoder interface {
	Decode(b []byte) (image.Image, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(b []byte) (image.Image, error)

func (f DecoderFunc) Decode(b []byte) (image.Image, error) {
	return f(b)
}

// Image decodes any format registered with the image package, sniffing the
// format from the payload.
var Image Decoder = DecoderFunc(decodeImage)

func decodeImage(b []byte) (image.Image, error) {
	if len(b) == 0 {
		return nil, ErrEmpty
	}
	img, format, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Errorf("decode %d byte payload: %w", len(b), err)
	}
	log.Trace(6, "Decoded %s %v", format, img.Bounds())
	return img, nil
}
