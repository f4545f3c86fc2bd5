// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package image1bit

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// Color is the drawing operation applied to one bit.
type Color byte

// Possible colors. Black clears the bit, White sets it and Invert flips it.
const (
	Black  Color = 0
	White  Color = 1
	Invert Color = 2
)

// Valid reports whether c is one of Black, White or Invert.
func (c Color) Valid() bool {
	return c <= Invert
}

// RGBA implements color.Color.
//
// Invert has no absolute value; it is reported as White.
func (c Color) RGBA() (uint32, uint32, uint32, uint32) {
	if c == Black {
		return 0, 0, 0, 0xFFFF
	}
	return 0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF
}

func (c Color) String() string {
	switch c {
	case Black:
		return "Black"
	case White:
		return "White"
	case Invert:
		return "Invert"
	default:
		return fmt.Sprintf("Color(%d)", byte(c))
	}
}

// BitModel is the color model of a FrameBuffer.
var BitModel = color.ModelFunc(convert)

func convert(c color.Color) color.Color {
	if b, ok := c.(Color); ok {
		if b == Black {
			return Black
		}
		return White
	}
	r, g, b, _ := c.RGBA()
	// Luminance, same weights as color.GrayModel.
	y := (19595*r + 38470*g + 7471*b + 1<<15) >> 16
	if y >= 0x8000 {
		return White
	}
	return Black
}

// Geometry describes the pixel and glyph cell size of a display.
type Geometry struct {
	Width      int
	Height     int
	FontWidth  int
	FontHeight int
}

// PCD8544 is the geometry of the Nokia 5110 panel with the bundled 8x8 font.
var PCD8544 = Geometry{
	Width:      84,
	Height:     48,
	FontWidth:  8,
	FontHeight: 8,
}

// PixelCount returns the number of bytes needed to hold one frame.
func (g Geometry) PixelCount() int {
	return g.Width * g.Height / 8
}

// Validate returns an error if the geometry cannot be page-addressed.
func (g Geometry) Validate() error {
	if g.Width <= 0 {
		return fmt.Errorf("image1bit: invalid width %d", g.Width)
	}
	if g.Height <= 0 || g.Height&7 != 0 {
		return fmt.Errorf("image1bit: invalid height %d; must be a positive multiple of 8", g.Height)
	}
	if g.FontWidth <= 0 || g.FontHeight <= 0 {
		return fmt.Errorf("image1bit: invalid font cell %dx%d", g.FontWidth, g.FontHeight)
	}
	return nil
}

// ErrSizeMismatch is matched by every *SizeMismatchError.
var ErrSizeMismatch = errors.New("image1bit: buffer size mismatch")

// SizeMismatchError is returned when a read out is requested with a length
// different from the frame size.
type SizeMismatchError struct {
	Want int
	Got  int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("image1bit: buffer size mismatch; expected %d bytes, got %d bytes", e.Want, e.Got)
}

// Is makes errors.Is(err, ErrSizeMismatch) succeed.
func (e *SizeMismatchError) Is(target error) bool {
	return target == ErrSizeMismatch
}

// FrameBuffer is a 1 bit image stored in pages of 8 rows.
//
// Pixel (x, y) is bit y&7 of Pix[x+(y/8)*Width].
type FrameBuffer struct {
	Pix []byte

	geo  Geometry
	rect image.Rectangle
}

// New returns a zero filled FrameBuffer for g.
func New(g Geometry) (*FrameBuffer, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &FrameBuffer{
		Pix:  make([]byte, g.PixelCount()),
		geo:  g,
		rect: image.Rect(0, 0, g.Width, g.Height),
	}, nil
}

// Geometry returns the geometry the buffer was created with.
func (f *FrameBuffer) Geometry() Geometry {
	return f.geo
}

// Clear sets every pixel to Black.
func (f *FrameBuffer) Clear() {
	for i := range f.Pix {
		f.Pix[i] = 0
	}
}

// SetPixel applies c to the pixel at (x, y).
//
// Coordinates outside the buffer and invalid colors are ignored.
func (f *FrameBuffer) SetPixel(x, y int, c Color) {
	if x < 0 || x >= f.geo.Width || y < 0 || y >= f.geo.Height {
		return
	}
	offset := x + (y/8)*f.geo.Width
	mask := byte(1 << uint(y&7))
	switch c {
	case White:
		f.Pix[offset] |= mask
	case Black:
		f.Pix[offset] &^= mask
	case Invert:
		f.Pix[offset] ^= mask
	}
}

// GetPixel returns the bit at (x, y), or 0 outside the buffer.
func (f *FrameBuffer) GetPixel(x, y int) int {
	if x < 0 || x >= f.geo.Width || y < 0 || y >= f.geo.Height {
		return 0
	}
	return int(f.Pix[x+(y/8)*f.geo.Width]>>uint(y&7)) & 1
}

// BitAt is the boolean form of GetPixel.
func (f *FrameBuffer) BitAt(x, y int) bool {
	return f.GetPixel(x, y) == 1
}

// ReadInto copies the frame into dst.
//
// expected must match the frame size and dst must be able to hold it,
// otherwise a *SizeMismatchError is returned and dst is left untouched.
func (f *FrameBuffer) ReadInto(dst []byte, expected int) error {
	if expected != len(f.Pix) {
		return &SizeMismatchError{Want: len(f.Pix), Got: expected}
	}
	if len(dst) < expected {
		return &SizeMismatchError{Want: len(f.Pix), Got: len(dst)}
	}
	copy(dst, f.Pix)
	return nil
}

// Snapshot returns a copy of the frame.
func (f *FrameBuffer) Snapshot() []byte {
	out := make([]byte, len(f.Pix))
	copy(out, f.Pix)
	return out
}

// ColorModel implements image.Image.
func (f *FrameBuffer) ColorModel() color.Model {
	return BitModel
}

// Bounds implements image.Image. Min is always {0, 0}.
func (f *FrameBuffer) Bounds() image.Rectangle {
	return f.rect
}

// At implements image.Image.
func (f *FrameBuffer) At(x, y int) color.Color {
	if f.BitAt(x, y) {
		return White
	}
	return Black
}

// Set implements draw.Image.
//
// A Color value is applied as is, including Invert. Any other color is
// converted through BitModel first.
func (f *FrameBuffer) Set(x, y int, c color.Color) {
	if b, ok := c.(Color); ok {
		f.SetPixel(x, y, b)
		return
	}
	f.SetPixel(x, y, BitModel.Convert(c).(Color))
}

var _ draw.Image = &FrameBuffer{}
