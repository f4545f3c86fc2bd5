// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package console implements a PCD8544 emulator that outputs to terminal
// (stdout) using ANSI color codes.
//
// Dev decodes the command and data stream a driver would send on the wire, so
// it can be handed to pcd8544.New in place of a real SPI bus. Useful while
// you are waiting for your Nokia 5110 module to come by mail.
package console

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"io"
	"os"
	"sync"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/GermanBionicSystems/nokia5110/image1bit"
	"github.com/GermanBionicSystems/nokia5110/transfer"
)

// Mode is the display configuration selected by the display control
// command.
type Mode int

// Possible modes.
const (
	Blank Mode = iota
	Normal
	AllOn
	Inverse
)

func (m Mode) String() string {
	switch m {
	case Blank:
		return "Blank"
	case Normal:
		return "Normal"
	case AllOn:
		return "AllOn"
	case Inverse:
		return "Inverse"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Opts represents the options available for this display.
type Opts struct {
	Geometry image1bit.Geometry
	// W receives the rendering. Defaults to a colorable stdout, in which case
	// ANSI is enabled when stdout is a terminal.
	W io.Writer
	// ANSI renders colored cells. When false, pixels are printed as '#' and
	// '.'.
	ANSI    bool
	Palette *ansi256.Palette
	// AutoRefresh renders the RAM every time the address counter wraps back
	// to the origin, which happens once per full frame.
	AutoRefresh bool

	_ struct{}
}

var (
	lit   = color.NRGBA{0x1E, 0x28, 0x1E, 0xFF}
	unlit = color.NRGBA{0x9B, 0xBC, 0x9B, 0xFF}
)

// Dev is a PCD8544 emulator.
type Dev struct {
	mu      sync.Mutex
	w       io.Writer
	ansi    bool
	palette ansi256.Palette
	auto    bool

	ram    *image1bit.FrameBuffer
	width  int
	pages  int
	x, y   int
	ext    bool
	vert   bool
	pd     bool
	mode   Mode
	vop    int
	bias   int
	temp   int
	frames int
	drawn  bool

	buf bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{}
	}
	g := opts.Geometry
	if g == (image1bit.Geometry{}) {
		g = image1bit.PCD8544
	}
	ram, err := image1bit.New(g)
	if err != nil {
		return nil, fmt.Errorf("console: %w", err)
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	d := &Dev{
		w:       opts.W,
		ansi:    opts.ANSI,
		palette: *p,
		auto:    opts.AutoRefresh,
		ram:     ram,
		width:   g.Width,
		pages:   g.Height / 8,
		// The controller powers up blank and in power down until the first
		// function set.
		pd: true,
	}
	if d.w == nil {
		d.w = colorable.NewColorableStdout()
		fd := os.Stdout.Fd()
		d.ansi = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("console.Dev{%dx%d}", d.width, d.pages*8)
}

// Tx implements transfer.Bus.
func (d *Dev) Tx(ctx context.Context, w []byte, m transfer.Mode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if m == transfer.Command {
		for _, b := range w {
			d.command(b)
		}
		return nil
	}
	for _, b := range w {
		if d.write(b) && d.auto {
			if err := d.render(d.w); err != nil {
				return err
			}
		}
	}
	return nil
}

// command decodes one instruction.
func (d *Dev) command(b byte) {
	switch {
	case b&0xF8 == 0x20:
		d.pd = b&0x04 != 0
		d.vert = b&0x02 != 0
		d.ext = b&0x01 != 0
	case d.ext && b&0x80 != 0:
		d.vop = int(b & 0x7F)
	case d.ext && b&0xF8 == 0x10:
		d.bias = int(b & 0x07)
	case d.ext && b&0xFC == 0x04:
		d.temp = int(b & 0x03)
	case !d.ext && b&0x80 != 0:
		if x := int(b & 0x7F); x < d.width {
			d.x = x
		}
	case !d.ext && b&0xF8 == 0x40:
		if y := int(b & 0x07); y < d.pages {
			d.y = y
		}
	case !d.ext && b&0xF8 == 0x08:
		switch b & 0x05 {
		case 0x00:
			d.mode = Blank
		case 0x04:
			d.mode = Normal
		case 0x01:
			d.mode = AllOn
		case 0x05:
			d.mode = Inverse
		}
	}
}

// write stores b at the address counter and advances it. It returns true
// when the counter wrapped back to the origin.
func (d *Dev) write(b byte) bool {
	d.ram.Pix[d.x+d.y*d.width] = b
	if d.vert {
		if d.y++; d.y == d.pages {
			d.y = 0
			if d.x++; d.x == d.width {
				d.x = 0
			}
		}
	} else {
		if d.x++; d.x == d.width {
			d.x = 0
			if d.y++; d.y == d.pages {
				d.y = 0
			}
		}
	}
	if d.x == 0 && d.y == 0 {
		d.frames++
		return true
	}
	return false
}

// Halt implements conn.Resource.
//
// It resets the terminal colors so it is not corrupted.
func (d *Dev) Halt() error {
	if !d.ansi {
		return nil
	}
	_, err := d.w.Write([]byte("\033[0m\n"))
	return err
}

// Refresh renders the display to the writer given in Opts.
func (d *Dev) Refresh() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.render(d.w)
}

// Render renders the display to w as plain text, one line per row.
func (d *Dev) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ansi := d.ansi
	d.ansi = false
	defer func() { d.ansi = ansi }()
	drawn := d.drawn
	defer func() { d.drawn = drawn }()
	return d.render(w)
}

// on returns whether the pixel is dark once the display mode is applied.
func (d *Dev) on(x, y int) bool {
	if d.pd {
		return false
	}
	switch d.mode {
	case Normal:
		return d.ram.BitAt(x, y)
	case Inverse:
		return !d.ram.BitAt(x, y)
	case AllOn:
		return true
	default:
		return false
	}
}

func (d *Dev) render(w io.Writer) error {
	// This code is designed to minimize the amount of memory allocated per call.
	d.buf.Reset()
	h := d.pages * 8
	if d.ansi {
		if d.drawn {
			// Draw over the previous frame.
			fmt.Fprintf(&d.buf, "\033[%dA", h)
		}
		_, _ = d.buf.WriteString("\r\033[0m")
	}
	for y := 0; y < h; y++ {
		for x := 0; x < d.width; x++ {
			switch {
			case d.ansi && d.on(x, y):
				_, _ = io.WriteString(&d.buf, d.palette.Block(lit))
			case d.ansi:
				_, _ = io.WriteString(&d.buf, d.palette.Block(unlit))
			case d.on(x, y):
				_ = d.buf.WriteByte('#')
			default:
				_ = d.buf.WriteByte('.')
			}
		}
		if d.ansi {
			_, _ = d.buf.WriteString("\033[0m")
		}
		_ = d.buf.WriteByte('\n')
	}
	d.drawn = true
	_, err := d.buf.WriteTo(w)
	return err
}

// RAM returns a copy of the display data RAM, in the page layout of
// image1bit.FrameBuffer.Pix.
func (d *Dev) RAM() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ram.Snapshot()
}

// Contrast returns the operating voltage setting.
func (d *Dev) Contrast() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.vop
}

// Bias returns the bias system setting.
func (d *Dev) Bias() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bias
}

// TempCoeff returns the temperature coefficient setting.
func (d *Dev) TempCoeff() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.temp
}

// Mode returns the display configuration.
func (d *Dev) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// PowerDown reports whether the controller is in power down mode.
func (d *Dev) PowerDown() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pd
}

// Frames returns the number of complete frames written.
func (d *Dev) Frames() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

var _ transfer.Bus = &Dev{}
var _ fmt.Stringer = &Dev{}
