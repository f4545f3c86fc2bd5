// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gfx rasterizes lines, rectangles, circles and bitmap text into a
// 1 bit Canvas.
//
// All operations clip silently against the canvas bounds; off screen geometry
// is never an error. Coordinates are plain ints and colors are the
// image1bit operations Black, White and Invert.
//
// Text uses Font8x8, an 8x8 bitmap font covering ASCII 0x00-0x7F. Characters
// are scaled by an integer factor; the horizontal scale is (s&1)+s/2 while the
// vertical scale is s, so scaled glyphs are narrower than they are tall.
package gfx
