// Package render draws decoded frames onto a fixed-size output canvas.
package render

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Scale selects how a frame is placed on the canvas.
type Scale int

const (
	// Origin copies the frame unscaled to (0,0), clipped to the canvas.
	Origin Scale = iota

	// Fit scales the frame to cover the whole canvas.
	Fit
)

func ParseScale(s string) (Scale, error) {
	switch s {
	case "", "origin":
		return Origin, nil
	case "fit":
		return Fit, nil
	}
	return 0, fmt.Errorf("unknown scale mode %q", s)
}

func (s Scale) String() string {
	if s == Fit {
		return "fit"
	}
	return "origin"
}

// Canvas is the output surface. Its pixel buffer is reused for every frame.
type Canvas struct {
	img   *image.RGBA
	scale Scale
}

func NewCanvas(width, height int, scale Scale) *Canvas {
	return &Canvas{
		img:   image.NewRGBA(image.Rect(0, 0, width, height)),
		scale: scale,
	}
}

// Render draws src and returns the canvas image. Areas of the canvas the frame
// does not cover are cleared.
func (c *Canvas) Render(src image.Image) *image.RGBA {
	dst := c.img
	sb := src.Bounds()

	switch c.scale {
	case Fit:
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, sb, draw.Src, nil)
	default:
		if sb.Dx() < dst.Rect.Dx() || sb.Dy() < dst.Rect.Dy() {
			c.clear()
		}
		r := image.Rectangle{Max: sb.Size()}.Intersect(dst.Bounds())
		draw.Draw(dst, r, src, sb.Min, draw.Src)
	}
	return dst
}

func (c *Canvas) clear() {
	for i := range c.img.Pix {
		c.img.Pix[i] = 0
	}
}
