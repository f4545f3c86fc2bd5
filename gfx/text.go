// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gfx

import (
	"image"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/GermanBionicSystems/nokia5110/image1bit"
)

// Glyph cell of Font8x8.
const (
	FontWidth  = 8
	FontHeight = 8
)

// scaledWidth is the width of one font pixel at scale s. It grows at roughly
// half the rate of the height.
func scaledWidth(s int) int {
	return (s & 1) + s/2
}

// CharAdvance returns how far the cursor moves right after one character at
// the given scale.
func CharAdvance(scale int) int {
	if scale <= 1 {
		return FontWidth
	}
	return FontWidth * scaledWidth(scale)
}

// Char draws byte b with its top-left corner at (x, y).
//
// At scale 1 each set glyph bit is one pixel. At scale s > 1 it is a block
// (s&1)+s/2 pixels wide and s pixels tall. Bytes above 0x7F draw nothing.
// A scale below 1 is treated as 1.
func Char(dst Canvas, x, y int, b byte, c image1bit.Color, scale int) {
	if int(b) >= len(Font8x8) {
		return
	}
	glyph := &Font8x8[b]
	w := scaledWidth(scale)
	for row := 0; row < FontHeight; row++ {
		bits := glyph[row]
		for col := 0; col < FontWidth; col++ {
			if bits&0x01 != 0 {
				if scale <= 1 {
					dst.SetPixel(x+col, y+row, c)
				} else {
					FillRect(dst, x+col*w, y+row*scale, w, scale, c)
				}
			}
			bits >>= 1
		}
	}
}

// Text draws s starting at (x, y) and returns the cursor position after the
// last byte.
//
// A '\n' moves the cursor to column 0 and down by FontHeight*scale. There is
// no wrapping; text running off the canvas is clipped.
func Text(dst Canvas, x, y int, s []byte, c image1bit.Color, scale int) (int, int) {
	if scale < 1 {
		scale = 1
	}
	for _, b := range s {
		if b == '\n' {
			x = 0
			y += FontHeight * scale
			continue
		}
		Char(dst, x, y, b, c, scale)
		x += CharAdvance(scale)
	}
	return x, y
}

// FaceText draws s with an arbitrary font face, the baseline of the first
// glyph starting at (x, y).
//
// It is meant for faces from golang.org/x/image/font such as
// basicfont.Face7x13. Only Black and White are meaningful; any other value is
// drawn as White.
func FaceText(dst draw.Image, face font.Face, x, y int, s string, c image1bit.Color) {
	if c != image1bit.Black {
		c = image1bit.White
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  &image.Uniform{C: c},
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
