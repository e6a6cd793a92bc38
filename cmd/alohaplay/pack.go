package main

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/lanikai/alohaplay/internal/container"
	"github.com/lanikai/alohaplay/internal/decode"
)

// pack writes one frame per image file into a new container. Output names
// ending in .zst are zstd compressed.
func pack(args []string) (err error) {
	if len(args) < 2 {
		return errors.New("usage: alohaplay pack OUTPUT IMAGE...")
	}

	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	var w io.Writer = f
	if strings.HasSuffix(args[0], ".zst") {
		enc, zerr := zstd.NewWriter(f)
		if zerr != nil {
			return zerr
		}
		defer func() {
			if cerr := enc.Close(); err == nil {
				err = cerr
			}
		}()
		w = enc
	}

	var frame []byte
	for _, name := range args[1:] {
		payload, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := decode.Image.Decode(payload); err != nil {
			log.Warn("%s will not play: %v", name, err)
		}

		frame = container.AppendFrame(frame[:0], payload)
		if _, err := w.Write(frame); err != nil {
			return errors.Wrap(err, args[0])
		}
	}
	log.Info("Packed %d frames into %s", len(args)-1, args[0])
	return nil
}
