// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gfx

import (
	"image"

	"github.com/GermanBionicSystems/nokia5110/image1bit"
)

// Canvas is the pixel contract the rasterizer draws through.
//
// SetPixel must ignore coordinates outside Bounds.
type Canvas interface {
	SetPixel(x, y int, c image1bit.Color)
	Bounds() image.Rectangle
}

var _ Canvas = &image1bit.FrameBuffer{}

func swap(a, b int) (int, int) {
	return b, a
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Line draws a segment from (x0, y0) to (x1, y1) inclusive with Bresenham's
// algorithm.
func Line(dst Canvas, x0, y0, x1, y1 int, c image1bit.Color) {
	steep := abs(y1-y0) > abs(x1-x0)
	if steep {
		x0, y0 = swap(x0, y0)
		x1, y1 = swap(x1, y1)
	}
	if x0 > x1 {
		x0, x1 = swap(x0, x1)
		y0, y1 = swap(y0, y1)
	}

	dx := x1 - x0
	dy := abs(y1 - y0)
	err := dx / 2
	ystep := -1
	if y0 < y1 {
		ystep = 1
	}

	for ; x0 <= x1; x0++ {
		if steep {
			dst.SetPixel(y0, x0, c)
		} else {
			dst.SetPixel(x0, y0, c)
		}
		err -= dy
		if err < 0 {
			y0 += ystep
			err += dx
		}
	}
}

// VLine draws h pixels down from (x, y).
func VLine(dst Canvas, x, y, h int, c image1bit.Color) {
	b := dst.Bounds()
	if y < b.Min.Y {
		h -= b.Min.Y - y
		y = b.Min.Y
	}
	if y+h > b.Max.Y {
		h = b.Max.Y - y
	}
	if h <= 0 {
		return
	}
	for i := 0; i < h; i++ {
		dst.SetPixel(x, y+i, c)
	}
}

// HLine draws w pixels right from (x, y).
func HLine(dst Canvas, x, y, w int, c image1bit.Color) {
	b := dst.Bounds()
	if x < b.Min.X {
		w -= b.Min.X - x
		x = b.Min.X
	}
	if x+w > b.Max.X {
		w = b.Max.X - x
	}
	if w <= 0 {
		return
	}
	for i := 0; i < w; i++ {
		dst.SetPixel(x+i, y, c)
	}
}

// Rect draws the outline of the w×h box whose top-left corner is (x, y).
//
// The box covers columns x..x+w-1 and rows y..y+h-1.
func Rect(dst Canvas, x, y, w, h int, c image1bit.Color) {
	HLine(dst, x, y, w, c)
	HLine(dst, x, y+h-1, w, c)
	VLine(dst, x, y, h, c)
	VLine(dst, x+w-1, y, h, c)
}

// FillRect fills the w×h box whose top-left corner is (x, y).
func FillRect(dst Canvas, x, y, w, h int, c image1bit.Color) {
	for i := 0; i < w; i++ {
		VLine(dst, x+i, y, h, c)
	}
}

// Circle draws a circle of radius r around (cx, cy) with the midpoint
// algorithm.
//
// Every pixel of the outline is set exactly once.
func Circle(dst Canvas, cx, cy, r int, c image1bit.Color) {
	if r < 0 {
		return
	}
	if r == 0 {
		dst.SetPixel(cx, cy, c)
		return
	}
	x, y := 0, r
	d := 1 - r

	dst.SetPixel(cx, cy+r, c)
	dst.SetPixel(cx, cy-r, c)
	dst.SetPixel(cx+r, cy, c)
	dst.SetPixel(cx-r, cy, c)

	for x < y {
		x++
		if d < 0 {
			d += 2*x + 3
		} else {
			y--
			d += 2*x - 2*y + 5
		}
		if x > y {
			// Already drawn as the mirror of the previous step.
			break
		}
		dst.SetPixel(cx+x, cy+y, c)
		dst.SetPixel(cx-x, cy+y, c)
		dst.SetPixel(cx+x, cy-y, c)
		dst.SetPixel(cx-x, cy-y, c)
		if x == y {
			continue
		}
		dst.SetPixel(cx+y, cy+x, c)
		dst.SetPixel(cx-y, cy+x, c)
		dst.SetPixel(cx+y, cy-x, c)
		dst.SetPixel(cx-y, cy-x, c)
	}
}

// FillCircle fills a disk of radius r around (cx, cy).
//
// It follows the same recurrence as Circle but records, for every row, the
// widest span reached by the mirrored points. Each row is then drawn once so
// Invert flips every pixel of the disk exactly one time.
func FillCircle(dst Canvas, cx, cy, r int, c image1bit.Color) {
	if r < 0 {
		return
	}
	x, y := 0, r
	d := 1 - r

	// half[row] is the half width of the span drawn at cy±row.
	half := make([]int, r+1)
	for i := range half {
		half[i] = -1
	}
	widen := func(row, w int) {
		if w > half[row] {
			half[row] = w
		}
	}
	widen(0, r)
	widen(r, 0)

	for x < y {
		x++
		if d < 0 {
			d += 2*x + 3
		} else {
			y--
			d += 2*x - 2*y + 5
		}
		widen(y, x)
		widen(x, y)
	}

	HLine(dst, cx-half[0], cy, 2*half[0]+1, c)
	for row := 1; row <= r; row++ {
		if half[row] < 0 {
			continue
		}
		HLine(dst, cx-half[row], cy-row, 2*half[row]+1, c)
		HLine(dst, cx-half[row], cy+row, 2*half[row]+1, c)
	}
}
