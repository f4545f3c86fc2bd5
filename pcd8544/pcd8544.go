// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pcd8544

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/GermanBionicSystems/nokia5110/gfx"
	"github.com/GermanBionicSystems/nokia5110/image1bit"
	"github.com/GermanBionicSystems/nokia5110/transfer"
)

const (
	_FUNCTIONSET    = 0x20
	_POWERDOWN      = 0x04
	_VADDRMODE      = 0x02
	_EXTINSTRUCTION = 0x01

	_DISPLAYCTRL    = 0x08
	_DISPLAYBLANK   = 0x00
	_DISPLAYNORMAL  = 0x04
	_DISPLAYALLON   = 0x01
	_DISPLAYINVERSE = 0x05

	_SETYADDR = 0x40
	_SETXADDR = 0x80

	// Extended instruction set.
	_SETTEMP = 0x04
	_SETBIAS = 0x10
	_SETVOP  = 0x80
)

// MaxContrast is the largest operating voltage (Vop) setting.
const MaxContrast = 0x7F

// ErrInvalidColor is returned by the drawing methods for a color other than
// Black, White or Invert, unless Opts.LenientColor is set.
var ErrInvalidColor = errors.New("pcd8544: invalid color")

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Geometry:  image1bit.PCD8544,
	Frequency: 4 * physic.MegaHertz,
	Contrast:  0x39,
	Bias:      3,
	TempCoeff: 0,
	Strategy:  transfer.Bounded,
	MaxTxSize: transfer.DefaultMaxTxSize,
	Timeout:   transfer.DefaultTimeout,
}

// Opts defines the options for the device.
type Opts struct {
	Geometry image1bit.Geometry
	// Frequency is the SPI clock. The controller is rated for 4MHz.
	Frequency physic.Frequency
	// CS is an optional GPIO driven as chip enable around every transaction.
	// Leave nil when the SPI host drives CE.
	CS gpio.PinOut
	// NoReset skips the RST pulse before initialization.
	NoReset bool
	// Contrast is the operating voltage setting, 1 to MaxContrast. 0 selects
	// the default; use SetContrast to go lower.
	Contrast int
	// Bias is the bias system, 1 to 7. 0 selects the default.
	Bias int
	// TempCoeff is the temperature coefficient, 0 to 3.
	TempCoeff int

	// Strategy selects between one transaction per payload (Direct, for DMA
	// capable hosts) and transactions capped to MaxTxSize (Bounded).
	Strategy  transfer.Strategy
	MaxTxSize int
	// Timeout bounds each transaction.
	Timeout time.Duration
	// Retries is the number of extra attempts for a failed transaction.
	Retries int
	// OnError decides whether a failed chunk stops the frame.
	OnError transfer.Policy

	// LenientColor makes the drawing methods draw White for an invalid color
	// instead of returning ErrInvalidColor.
	LenientColor bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (o *Opts) validate() error {
	if err := o.Geometry.Validate(); err != nil {
		return fmt.Errorf("pcd8544: %w", err)
	}
	if o.Contrast < 0 || o.Contrast > MaxContrast {
		return fmt.Errorf("pcd8544: invalid contrast %d", o.Contrast)
	}
	if o.Bias < 0 || o.Bias > 7 {
		return fmt.Errorf("pcd8544: invalid bias %d", o.Bias)
	}
	if o.TempCoeff < 0 || o.TempCoeff > 3 {
		return fmt.Errorf("pcd8544: invalid temperature coefficient %d", o.TempCoeff)
	}
	return nil
}

// withDefaults returns a copy of opts where zero fields are taken from
// DefaultOpts.
//
// TempCoeff has no such treatment since 0 is its default.
func withDefaults(opts *Opts) Opts {
	if opts == nil {
		return DefaultOpts
	}
	o := *opts
	if o.Geometry == (image1bit.Geometry{}) {
		o.Geometry = DefaultOpts.Geometry
	}
	if o.Frequency == 0 {
		o.Frequency = DefaultOpts.Frequency
	}
	if o.Contrast == 0 {
		o.Contrast = DefaultOpts.Contrast
	}
	if o.Bias == 0 {
		o.Bias = DefaultOpts.Bias
	}
	if o.MaxTxSize <= 0 {
		o.MaxTxSize = DefaultOpts.MaxTxSize
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultOpts.Timeout
	}
	return o
}

// Config is the effective configuration of a Dev.
type Config struct {
	Geometry  image1bit.Geometry
	Frequency physic.Frequency
	Mode      spi.Mode
	Strategy  transfer.Strategy
	MaxTxSize int
	Timeout   time.Duration
	Retries   int
	Contrast  int
	Bias      int
	TempCoeff int
	Inverted  bool
	Halted    bool
}

// Dev is an open handle to the display controller.
type Dev struct {
	bus    transfer.Bus
	sender *transfer.Sender
	log    *slog.Logger
	opts   Opts

	mu sync.Mutex
	fb *image1bit.FrameBuffer
	// scratch holds the frame being sent; it is owned by Display.
	scratch  []byte
	rect     image.Rectangle
	contrast int
	inverted bool
	halted   bool
}

// New returns a Dev that talks to the controller through bus and initializes
// it.
//
// Use NewSPI for a real display; New is meant for emulators and custom
// transports.
func New(bus transfer.Bus, opts *Opts) (*Dev, error) {
	o := withDefaults(opts)
	if err := o.validate(); err != nil {
		return nil, err
	}
	if bus == nil {
		return nil, errors.New("pcd8544: nil bus")
	}
	fb, err := image1bit.New(o.Geometry)
	if err != nil {
		return nil, fmt.Errorf("pcd8544: %w", err)
	}
	log := o.Logger
	if log == nil {
		log = slog.Default()
	}
	d := &Dev{
		bus: bus,
		sender: &transfer.Sender{
			Bus:       bus,
			Strategy:  o.Strategy,
			MaxTxSize: o.MaxTxSize,
			Timeout:   o.Timeout,
			Retries:   o.Retries,
			OnError:   o.OnError,
			Logger:    log,
		},
		log:      log,
		opts:     o,
		fb:       fb,
		scratch:  make([]byte, o.Geometry.PixelCount()),
		rect:     fb.Bounds(),
		contrast: o.Contrast,
	}
	if err := d.sendCommand(context.Background(), append(initCmd(&o), d.addressCmd()...)); err != nil {
		return nil, err
	}
	log.Info("pcd8544: initialized",
		"size", d.rect.Max.String(), "contrast", o.Contrast, "bias", o.Bias, "strategy", o.Strategy.String())
	return d, nil
}

func initCmd(o *Opts) []byte {
	return []byte{
		_FUNCTIONSET | _EXTINSTRUCTION, // Extended instruction set
		_SETTEMP | byte(o.TempCoeff),   // Temperature coefficient
		_SETBIAS | byte(o.Bias),        // Bias system
		_SETVOP | byte(o.Contrast),     // Contrast
	}
}

// addressCmd returns to the basic instruction set in horizontal addressing
// mode and points the RAM address at the top left corner.
func (d *Dev) addressCmd() []byte {
	mode := byte(_DISPLAYNORMAL)
	if d.inverted {
		mode = _DISPLAYINVERSE
	}
	return []byte{
		_FUNCTIONSET,
		_DISPLAYCTRL | mode,
		_SETXADDR | 0,
		_SETYADDR | 0,
	}
}

func (d *Dev) String() string {
	return fmt.Sprintf("pcd8544.Dev{%s, %s}", d.bus, d.rect.Max)
}

// Config returns the configuration in effect.
func (d *Dev) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Config{
		Geometry:  d.opts.Geometry,
		Frequency: d.opts.Frequency,
		Mode:      spi.Mode0,
		Strategy:  d.opts.Strategy,
		MaxTxSize: d.opts.MaxTxSize,
		Timeout:   d.opts.Timeout,
		Retries:   d.opts.Retries,
		Contrast:  d.contrast,
		Bias:      d.opts.Bias,
		TempCoeff: d.opts.TempCoeff,
		Inverted:  d.inverted,
		Halted:    d.halted,
	}
}

// Stats returns the transaction counters.
func (d *Dev) Stats() transfer.Stats {
	return d.sender.Stats()
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer. Min is guaranteed to be {0, 0}.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Draw implements display.Drawer.
//
// src is converted into the frame buffer, then the whole frame is sent.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	draw.Src.Draw(d.fb, r, src, sp)
	return d.flush(context.Background())
}

// Write replaces the frame buffer with pixels and sends it.
//
// The format is the one of image1bit.FrameBuffer.Pix: horizontal bands of 8
// rows, one byte per column, LSB on top.
func (d *Dev) Write(pixels []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(pixels) != len(d.fb.Pix) {
		return 0, fmt.Errorf("pcd8544: invalid pixel stream length; expected %d bytes, got %d bytes", len(d.fb.Pix), len(pixels))
	}
	copy(d.fb.Pix, pixels)
	if err := d.flush(context.Background()); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// Display sends the frame buffer to the controller.
//
// The frame is copied before the first transaction; drawing while a frame is
// in flight waits for it to complete.
func (d *Dev) Display(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flush(ctx)
}

func (d *Dev) flush(ctx context.Context) error {
	if err := d.fb.ReadInto(d.scratch, d.opts.Geometry.PixelCount()); err != nil {
		return fmt.Errorf("pcd8544: %w", err)
	}
	cmdErr := d.sendCommand(ctx, d.addressCmd())
	if cmdErr != nil && (d.opts.OnError == transfer.Abort || ctx.Err() != nil) {
		return cmdErr
	}
	dataErr := d.sender.Send(ctx, d.scratch, transfer.Data)
	if dataErr != nil {
		// An abandoned transaction may still be reading the old buffer.
		d.scratch = make([]byte, len(d.scratch))
	}
	if err := errors.Join(cmdErr, dataErr); err != nil {
		return err
	}
	d.log.Debug("pcd8544: frame sent", "bytes", len(d.scratch))
	return nil
}

// SetContrast changes the operating voltage. v is clamped to [0,
// MaxContrast].
func (d *Dev) SetContrast(ctx context.Context, v int) error {
	if v < 0 {
		v = 0
	} else if v > MaxContrast {
		v = MaxContrast
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.sendCommand(ctx, []byte{_FUNCTIONSET | _EXTINSTRUCTION, _SETVOP | byte(v)}); err != nil {
		return err
	}
	d.contrast = v
	d.log.Info("pcd8544: contrast set", "contrast", v)
	return nil
}

// Invert switches between normal and inverse video.
func (d *Dev) Invert(ctx context.Context, inverse bool) error {
	mode := byte(_DISPLAYNORMAL)
	if inverse {
		mode = _DISPLAYINVERSE
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.sendCommand(ctx, []byte{_FUNCTIONSET, _DISPLAYCTRL | mode}); err != nil {
		return err
	}
	d.inverted = inverse
	return nil
}

// Halt puts the controller in power down mode. RAM content is kept.
//
// Sending any other command afterward wakes the display up.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.sendCommand(context.Background(), []byte{_FUNCTIONSET | _POWERDOWN}); err != nil {
		return err
	}
	d.halted = true
	return nil
}

// sendCommand sends cmd as one command payload.
//
// Every command sequence but the power down one starts with a function set
// clearing PD, which is how a halted display wakes up.
func (d *Dev) sendCommand(ctx context.Context, cmd []byte) error {
	if err := d.sender.Send(ctx, cmd, transfer.Command); err != nil {
		return err
	}
	d.halted = false
	return nil
}

// color applies the color policy.
func (d *Dev) color(c image1bit.Color) (image1bit.Color, error) {
	if c.Valid() {
		return c, nil
	}
	if d.opts.LenientColor {
		return image1bit.White, nil
	}
	return 0, fmt.Errorf("%w %d", ErrInvalidColor, byte(c))
}

// Clear blanks the frame buffer. The display is not updated until Display.
func (d *Dev) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fb.Clear()
}

// SetPixel draws one pixel. Coordinates outside the display are ignored.
func (d *Dev) SetPixel(x, y int, c image1bit.Color) error {
	return d.paint(c, func(c image1bit.Color) { d.fb.SetPixel(x, y, c) })
}

// Pixel returns 1 if the pixel is set, 0 if not or outside the display.
func (d *Dev) Pixel(x, y int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fb.GetPixel(x, y)
}

// Line draws a line between two points, both included.
func (d *Dev) Line(x0, y0, x1, y1 int, c image1bit.Color) error {
	return d.paint(c, func(c image1bit.Color) { gfx.Line(d.fb, x0, y0, x1, y1, c) })
}

// VLine draws h pixels down from (x, y).
func (d *Dev) VLine(x, y, h int, c image1bit.Color) error {
	return d.paint(c, func(c image1bit.Color) { gfx.VLine(d.fb, x, y, h, c) })
}

// HLine draws w pixels right from (x, y).
func (d *Dev) HLine(x, y, w int, c image1bit.Color) error {
	return d.paint(c, func(c image1bit.Color) { gfx.HLine(d.fb, x, y, w, c) })
}

// Rect draws the outline of a w by h rectangle.
func (d *Dev) Rect(x, y, w, h int, c image1bit.Color) error {
	return d.paint(c, func(c image1bit.Color) { gfx.Rect(d.fb, x, y, w, h, c) })
}

// FillRect fills a w by h rectangle.
func (d *Dev) FillRect(x, y, w, h int, c image1bit.Color) error {
	return d.paint(c, func(c image1bit.Color) { gfx.FillRect(d.fb, x, y, w, h, c) })
}

// Circle draws the outline of a circle of radius r.
func (d *Dev) Circle(x, y, r int, c image1bit.Color) error {
	return d.paint(c, func(c image1bit.Color) { gfx.Circle(d.fb, x, y, r, c) })
}

// FillCircle fills a disk of radius r.
func (d *Dev) FillCircle(x, y, r int, c image1bit.Color) error {
	return d.paint(c, func(c image1bit.Color) { gfx.FillCircle(d.fb, x, y, r, c) })
}

// Text draws s with the built-in 8x8 font and returns the cursor after the
// last glyph.
func (d *Dev) Text(x, y int, s string, c image1bit.Color, scale int) (int, int, error) {
	var cx, cy int
	err := d.paint(c, func(c image1bit.Color) { cx, cy = gfx.Text(d.fb, x, y, []byte(s), c, scale) })
	if err != nil {
		return x, y, err
	}
	return cx, cy, nil
}

func (d *Dev) paint(c image1bit.Color, fn func(c image1bit.Color)) error {
	c, err := d.color(c)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(c)
	return nil
}

var _ display.Drawer = &Dev{}
