// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pcd8544

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/GermanBionicSystems/nokia5110/image1bit"
	"github.com/GermanBionicSystems/nokia5110/transfer"
)

type op struct {
	Mode transfer.Mode
	Data []byte
}

// recorder is a transfer.Bus keeping a copy of every transaction.
type recorder struct {
	ops []op
	// fail, when set, is consulted with the 0 based index of each call.
	fail  func(i int) bool
	calls int
}

func (r *recorder) Tx(ctx context.Context, w []byte, m transfer.Mode) error {
	i := r.calls
	r.calls++
	if r.fail != nil && r.fail(i) {
		return errors.New("bus error")
	}
	r.ops = append(r.ops, op{Mode: m, Data: append([]byte(nil), w...)})
	return nil
}

func (r *recorder) String() string {
	return "recorder"
}

// data concatenates the data transactions recorded after skip operations.
func (r *recorder) data(skip int) []byte {
	var out []byte
	for _, o := range r.ops[skip:] {
		if o.Mode == transfer.Data {
			out = append(out, o.Data...)
		}
	}
	return out
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDev(t *testing.T, bus transfer.Bus, edit func(o *Opts)) *Dev {
	t.Helper()
	o := DefaultOpts
	o.Logger = quiet()
	if edit != nil {
		edit(&o)
	}
	d, err := New(bus, &o)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestNewInitSequence(t *testing.T) {
	r := &recorder{}
	newDev(t, r, nil)
	want := []op{{Mode: transfer.Command, Data: []byte{0x21, 0x04, 0x13, 0xB9, 0x20, 0x0C, 0x80, 0x40}}}
	if diff := cmp.Diff(r.ops, want); diff != "" {
		t.Fatalf("init (-got +want):\n%s", diff)
	}
}

func TestNewCustomInit(t *testing.T) {
	r := &recorder{}
	newDev(t, r, func(o *Opts) {
		o.Contrast = 0x40
		o.Bias = 4
		o.TempCoeff = 2
	})
	if diff := cmp.Diff(r.ops[0].Data[:4], []byte{0x21, 0x06, 0x14, 0xC0}); diff != "" {
		t.Fatalf("init (-got +want):\n%s", diff)
	}
}

func TestNewInvalidOpts(t *testing.T) {
	for name, edit := range map[string]func(o *Opts){
		"contrast":  func(o *Opts) { o.Contrast = 200 },
		"bias":      func(o *Opts) { o.Bias = 8 },
		"tempcoeff": func(o *Opts) { o.TempCoeff = -1 },
		"height":    func(o *Opts) { o.Geometry.Height = 47 },
	} {
		t.Run(name, func(t *testing.T) {
			o := DefaultOpts
			edit(&o)
			if _, err := New(&recorder{}, &o); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	if _, err := New(nil, nil); err == nil {
		t.Fatal("expected error for nil bus")
	}
}

func TestNewPartialOpts(t *testing.T) {
	r := &recorder{}
	if _, err := New(r, &Opts{Logger: quiet()}); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x21, 0x04, 0x13, 0xB9, 0x20, 0x0C, 0x80, 0x40}
	if diff := cmp.Diff(r.ops[0].Data, want); diff != "" {
		t.Fatalf("init (-got +want):\n%s", diff)
	}
}

func TestNewInitFailure(t *testing.T) {
	_, err := New(&recorder{fail: func(int) bool { return true }}, &Opts{Logger: quiet()})
	var te *transfer.Error
	if !errors.As(err, &te) {
		t.Fatalf("New() = %v, want *transfer.Error", err)
	}
}

func TestDisplayTopLine(t *testing.T) {
	r := &recorder{}
	d := newDev(t, r, nil)
	if err := d.Line(0, 0, 83, 0, image1bit.White); err != nil {
		t.Fatal(err)
	}
	if err := d.Display(context.Background()); err != nil {
		t.Fatal(err)
	}
	ops := r.ops[1:]
	if len(ops) != 17 {
		t.Fatalf("%d transactions, want 1 command and 16 data", len(ops))
	}
	if diff := cmp.Diff(ops[0], op{Mode: transfer.Command, Data: []byte{0x20, 0x0C, 0x80, 0x40}}); diff != "" {
		t.Fatalf("address reset (-got +want):\n%s", diff)
	}
	for i, o := range ops[1:] {
		want := 32
		if i == 15 {
			want = 24
		}
		if o.Mode != transfer.Data || len(o.Data) != want {
			t.Fatalf("chunk %d: %s with %d bytes", i, o.Mode, len(o.Data))
		}
	}
	frame := make([]byte, 504)
	for i := 0; i < 84; i++ {
		frame[i] = 0x01
	}
	if diff := cmp.Diff(r.data(1), frame); diff != "" {
		t.Fatalf("frame (-got +want):\n%s", diff)
	}
}

func TestDisplayDirect(t *testing.T) {
	r := &recorder{}
	d := newDev(t, r, func(o *Opts) { o.Strategy = transfer.Direct })
	if err := d.FillRect(0, 0, 84, 48, image1bit.White); err != nil {
		t.Fatal(err)
	}
	if err := d.Display(context.Background()); err != nil {
		t.Fatal(err)
	}
	ops := r.ops[1:]
	if len(ops) != 2 || ops[1].Mode != transfer.Data || len(ops[1].Data) != 504 {
		t.Fatalf("got %d transactions, want the address reset and one 504 bytes frame", len(ops))
	}
	if !bytes.Equal(ops[1].Data, bytes.Repeat([]byte{0xFF}, 504)) {
		t.Fatal("frame is not fully set")
	}
}

func TestDisplaySnapshot(t *testing.T) {
	// The bus draws while the frame is in flight; the frame must not change.
	var d *Dev
	r := &recorder{}
	bus := transfer.BusFunc(func(ctx context.Context, w []byte, m transfer.Mode) error {
		if d != nil && m == transfer.Data {
			// Modifying the frame buffer from the bus would deadlock; touch the
			// pixels directly.
			d.fb.SetPixel(0, 0, image1bit.White)
		}
		return r.Tx(ctx, w, m)
	})
	d = newDev(t, bus, nil)
	if err := d.Display(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r.data(1), make([]byte, 504)) {
		t.Fatal("frame changed while in flight")
	}
}

func TestDisplayContinueOnError(t *testing.T) {
	// Calls: 0 init, 1 address, 2.. data chunks.
	r := &recorder{fail: func(i int) bool { return i == 5 }}
	d := newDev(t, r, nil)
	err := d.Display(context.Background())
	var te *transfer.Error
	if !errors.As(err, &te) {
		t.Fatalf("Display() = %v, want *transfer.Error", err)
	}
	if len(te.Chunks) != 1 || te.Chunks[0].Index != 3 || te.Sent != 15 {
		t.Fatalf("Error = %+v", te)
	}
	if n := len(r.ops[1:]); n != 16 {
		t.Fatalf("%d transactions went through, want 16", n)
	}
}

func TestDisplayReplacesScratchAfterError(t *testing.T) {
	r := &recorder{fail: func(i int) bool { return i == 3 }}
	d := newDev(t, r, nil)
	before := &d.scratch[0]
	if err := d.Display(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if &d.scratch[0] == before {
		t.Fatal("scratch buffer reused after a failed frame")
	}
	before = &d.scratch[0]
	if err := d.Display(context.Background()); err != nil {
		t.Fatal(err)
	}
	if &d.scratch[0] != before {
		t.Fatal("scratch buffer replaced after a good frame")
	}
}

func TestDisplayAbort(t *testing.T) {
	r := &recorder{fail: func(i int) bool { return i == 1 }}
	d := newDev(t, r, func(o *Opts) { o.OnError = transfer.Abort })
	if err := d.Display(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if n := len(r.ops); n != 1 {
		t.Fatalf("%d transactions, want only the init", n)
	}
}

func TestDisplayCommandFailureStillSendsFrame(t *testing.T) {
	r := &recorder{fail: func(i int) bool { return i == 1 }}
	d := newDev(t, r, nil)
	if err := d.Display(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := len(r.data(1)); got != 504 {
		t.Fatalf("%d data bytes sent, want 504", got)
	}
}

func TestDisplayCanceled(t *testing.T) {
	r := &recorder{}
	d := newDev(t, r, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Display(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Display() = %v, want context.Canceled", err)
	}
	if len(r.ops) != 1 {
		t.Fatal("transactions issued on a canceled context")
	}
}

func TestSetContrast(t *testing.T) {
	for _, tc := range []struct {
		in, want int
	}{
		{-5, 0},
		{0, 0},
		{0x39, 0x39},
		{127, 127},
		{200, 127},
	} {
		r := &recorder{}
		d := newDev(t, r, nil)
		if err := d.SetContrast(context.Background(), tc.in); err != nil {
			t.Fatal(err)
		}
		want := op{Mode: transfer.Command, Data: []byte{0x21, 0x80 | byte(tc.want)}}
		if diff := cmp.Diff(r.ops[len(r.ops)-1], want); diff != "" {
			t.Fatalf("SetContrast(%d) (-got +want):\n%s", tc.in, diff)
		}
		if got := d.Config().Contrast; got != tc.want {
			t.Fatalf("Config().Contrast = %d, want %d", got, tc.want)
		}
	}
}

func TestInvert(t *testing.T) {
	r := &recorder{}
	d := newDev(t, r, nil)
	if err := d.Invert(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(r.ops[1].Data, []byte{0x20, 0x0D}); diff != "" {
		t.Fatalf("Invert(true) (-got +want):\n%s", diff)
	}
	if err := d.Display(context.Background()); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(r.ops[2].Data, []byte{0x20, 0x0D, 0x80, 0x40}); diff != "" {
		t.Fatalf("address reset (-got +want):\n%s", diff)
	}
	if !d.Config().Inverted {
		t.Fatal("Config().Inverted = false")
	}
}

func TestHaltWakesUp(t *testing.T) {
	r := &recorder{}
	d := newDev(t, r, nil)
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(r.ops[1], op{Mode: transfer.Command, Data: []byte{0x24}}); diff != "" {
		t.Fatalf("Halt() (-got +want):\n%s", diff)
	}
	if !d.Config().Halted {
		t.Fatal("not halted")
	}
	if err := d.Display(context.Background()); err != nil {
		t.Fatal(err)
	}
	if d.Config().Halted {
		t.Fatal("still halted after Display")
	}
	if r.ops[2].Data[0] != 0x20 {
		t.Fatalf("first command after halt = %#x, want power up function set", r.ops[2].Data[0])
	}
}

func TestInvalidColor(t *testing.T) {
	for _, tc := range []struct {
		name string
		draw func(d *Dev, c image1bit.Color) error
		// p is a pixel the call draws.
		p image.Point
	}{
		{"SetPixel", func(d *Dev, c image1bit.Color) error { return d.SetPixel(1, 1, c) }, image.Pt(1, 1)},
		{"Line", func(d *Dev, c image1bit.Color) error { return d.Line(1, 1, 1, 1, c) }, image.Pt(1, 1)},
		{"VLine", func(d *Dev, c image1bit.Color) error { return d.VLine(1, 1, 1, c) }, image.Pt(1, 1)},
		{"HLine", func(d *Dev, c image1bit.Color) error { return d.HLine(1, 1, 1, c) }, image.Pt(1, 1)},
		{"Rect", func(d *Dev, c image1bit.Color) error { return d.Rect(1, 1, 1, 1, c) }, image.Pt(1, 1)},
		{"FillRect", func(d *Dev, c image1bit.Color) error { return d.FillRect(1, 1, 1, 1, c) }, image.Pt(1, 1)},
		{"Circle", func(d *Dev, c image1bit.Color) error { return d.Circle(1, 1, 0, c) }, image.Pt(1, 1)},
		{"FillCircle", func(d *Dev, c image1bit.Color) error { return d.FillCircle(1, 1, 0, c) }, image.Pt(1, 1)},
		{"Text", func(d *Dev, c image1bit.Color) error {
			_, _, err := d.Text(0, 0, "_", c, 1)
			return err
		}, image.Pt(1, 7)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			strict := newDev(t, &recorder{}, nil)
			if err := tc.draw(strict, 7); !errors.Is(err, ErrInvalidColor) {
				t.Fatalf("strict: err = %v, want ErrInvalidColor", err)
			}
			if strict.Pixel(tc.p.X, tc.p.Y) != 0 {
				t.Fatal("strict: pixel drawn")
			}

			lenient := newDev(t, &recorder{}, func(o *Opts) { o.LenientColor = true })
			if err := tc.draw(lenient, 7); err != nil {
				t.Fatalf("lenient: %v", err)
			}
			if lenient.Pixel(tc.p.X, tc.p.Y) != 1 {
				t.Fatal("lenient: pixel not drawn in White")
			}
		})
	}
}

func TestText(t *testing.T) {
	d := newDev(t, &recorder{}, nil)
	x, y, err := d.Text(0, 0, "Hi\nyo", image1bit.White, 1)
	if err != nil {
		t.Fatal(err)
	}
	if x != 16 || y != 8 {
		t.Fatalf("cursor = (%d, %d), want (16, 8)", x, y)
	}
}

func TestClearAndPixel(t *testing.T) {
	d := newDev(t, &recorder{}, nil)
	if err := d.SetPixel(10, 20, image1bit.White); err != nil {
		t.Fatal(err)
	}
	if d.Pixel(10, 20) != 1 || d.Pixel(-1, 0) != 0 || d.Pixel(84, 0) != 0 {
		t.Fatal("Pixel()")
	}
	d.Clear()
	if d.Pixel(10, 20) != 0 {
		t.Fatal("Clear() left a pixel")
	}
}

func TestWrite(t *testing.T) {
	r := &recorder{}
	d := newDev(t, r, nil)
	if _, err := d.Write(make([]byte, 503)); err == nil {
		t.Fatal("expected error on short frame")
	}
	if len(r.ops) != 1 {
		t.Fatal("a rejected frame was sent")
	}
	frame := make([]byte, 504)
	for i := range frame {
		frame[i] = byte(i)
	}
	n, err := d.Write(frame)
	if err != nil || n != 504 {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	if diff := cmp.Diff(r.data(1), frame); diff != "" {
		t.Fatalf("frame (-got +want):\n%s", diff)
	}
}

func TestDraw(t *testing.T) {
	r := &recorder{}
	d := newDev(t, r, nil)
	img := image.NewGray(image.Rect(0, 0, 84, 48))
	for x := 0; x < 84; x++ {
		img.SetGray(x, 8, color.Gray{Y: 0xFF})
	}
	if err := d.Draw(d.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	frame := make([]byte, 504)
	for i := 84; i < 2*84; i++ {
		frame[i] = 0x01
	}
	if diff := cmp.Diff(r.data(1), frame); diff != "" {
		t.Fatalf("frame (-got +want):\n%s", diff)
	}
	if d.ColorModel() != image1bit.BitModel {
		t.Fatal("ColorModel()")
	}
}

func TestConfig(t *testing.T) {
	d := newDev(t, &recorder{}, func(o *Opts) { o.MaxTxSize = 0 })
	c := d.Config()
	if c.Geometry != image1bit.PCD8544 || c.MaxTxSize != 32 || c.Frequency != DefaultOpts.Frequency {
		t.Fatalf("Config() = %+v", c)
	}
	if got := d.String(); got != "pcd8544.Dev{recorder, (84,48)}" {
		t.Fatalf("String() = %q", got)
	}
}

func TestStats(t *testing.T) {
	d := newDev(t, &recorder{}, nil)
	if err := d.Display(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := d.Stats(); got.Transactions != 18 || got.Bytes != 8+4+504 {
		t.Fatalf("Stats() = %+v", got)
	}
}
