package domain

import (
	"fmt"
	"image"
	"image/color"
)

// Frame is a packed, row-major image buffer (HWC layout).
// Channels is 1 for grayscale and 3 for RGB.
type Frame struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte
	Seq      uint64 // producer sequence number, 0 if unknown
}

// NewFrame allocates a zeroed frame.
func NewFrame(width, height, channels int) *Frame {
	return &Frame{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]byte, width*height*channels),
	}
}

// Validate checks that the pixel buffer matches the declared geometry.
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", f.Width, f.Height)
	}
	if f.Channels != 1 && f.Channels != 3 {
		return fmt.Errorf("unsupported channel count %d", f.Channels)
	}
	if len(f.Pix) != f.Width*f.Height*f.Channels {
		return fmt.Errorf("pixel buffer has %d bytes, want %d", len(f.Pix), f.Width*f.Height*f.Channels)
	}
	return nil
}

// At returns the sample at (x, y) for channel c.
func (f *Frame) At(x, y, c int) byte {
	return f.Pix[(y*f.Width+x)*f.Channels+c]
}

// Luma returns the grayscale intensity at (x, y) in [0, 255].
func (f *Frame) Luma(x, y int) float64 {
	if f.Channels == 1 {
		return float64(f.At(x, y, 0))
	}
	r, g, b := float64(f.At(x, y, 0)), float64(f.At(x, y, 1)), float64(f.At(x, y, 2))
	return 0.299*r + 0.587*g + 0.114*b
}

// ToImage converts the frame into an image.Image for encoding.
func (f *Frame) ToImage() image.Image {
	if f.Channels == 1 {
		img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
		copy(img.Pix, f.Pix)
		return img
	}
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			img.Set(x, y, color.RGBA{R: f.At(x, y, 0), G: f.At(x, y, 1), B: f.At(x, y, 2), A: 0xff})
		}
	}
	return img
}

// FrameFromImage packs an image into an RGB frame.
func FrameFromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy(), 3)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			f.Pix[i], f.Pix[i+1], f.Pix[i+2] = byte(r>>8), byte(g>>8), byte(bl>>8)
			i += 3
		}
	}
	return f
}
