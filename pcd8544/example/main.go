// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// example draws a few frames on a Nokia 5110 display, or on the terminal
// with -console.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/nokia5110/console"
	"github.com/GermanBionicSystems/nokia5110/gfx"
	"github.com/GermanBionicSystems/nokia5110/image1bit"
	"github.com/GermanBionicSystems/nokia5110/pcd8544"
	"github.com/GermanBionicSystems/nokia5110/transfer"
)

func mainImpl() error {
	spiID := flag.String("spi", "", "SPI port to use")
	dcName := flag.String("dc", "GPIO16", "DC pin")
	rstName := flag.String("rst", "GPIO17", "RST pin; empty to skip the reset pulse")
	emulate := flag.Bool("console", false, "render on the terminal instead of a display")
	contrast := flag.Int("contrast", pcd8544.DefaultOpts.Contrast, "operating voltage, 0 to 127")
	direct := flag.Bool("direct", false, "send the frame as a single transaction")
	text := flag.String("text", "Hello 5110", "text to draw")
	pause := flag.Duration("pause", 2*time.Second, "pause between frames")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := pcd8544.DefaultOpts
	opts.Contrast = *contrast
	opts.Logger = logger
	if *direct {
		opts.Strategy = transfer.Direct
	}

	var dev *pcd8544.Dev
	if *emulate {
		emu, err := console.New(&console.Opts{AutoRefresh: true})
		if err != nil {
			return err
		}
		defer emu.Halt()
		if dev, err = pcd8544.New(emu, &opts); err != nil {
			return err
		}
	} else {
		if _, err := host.Init(); err != nil {
			return err
		}
		p, err := spireg.Open(*spiID)
		if err != nil {
			return err
		}
		defer p.Close()
		dc := gpioreg.ByName(*dcName)
		if dc == nil {
			return fmt.Errorf("invalid DC pin %q", *dcName)
		}
		var rst = gpioreg.ByName(*rstName)
		if *rstName != "" && rst == nil {
			return fmt.Errorf("invalid RST pin %q", *rstName)
		}
		opts.NoReset = rst == nil
		if dev, err = pcd8544.NewSPI(p, dc, rst, &opts); err != nil {
			return err
		}
	}
	defer dev.Halt()
	logger.Info("display ready", "dev", dev.String())
	ctx := context.Background()

	// Frame 1: primitives and the built-in font.
	_ = dev.Rect(0, 0, 84, 48, image1bit.White)
	_ = dev.Circle(16, 24, 12, image1bit.White)
	_ = dev.FillCircle(16, 24, 6, image1bit.White)
	_ = dev.Line(30, 4, 80, 44, image1bit.White)
	_, _, _ = dev.Text(30, 4, "5110", image1bit.Invert, 1)
	_, _, _ = dev.Text(30, 28, "Hi", image1bit.White, 2)
	if err := dev.Display(ctx); err != nil {
		return err
	}
	time.Sleep(*pause)

	// Frame 2: anti-aliased TrueType text rendered off screen, thresholded by
	// the display color model.
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return err
	}
	b := dev.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGB(1, 1, 1)
	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: 14}))
	dc.DrawStringAnchored(*text, float64(b.Dx())/2, float64(b.Dy())/2, 0.5, 0.5)
	dc.DrawRoundedRectangle(1, 1, float64(b.Dx()-2), float64(b.Dy()-2), 6)
	dc.Stroke()
	if err := dev.Draw(b, dc.Image(), b.Min); err != nil {
		return err
	}
	time.Sleep(*pause)

	// Frame 3: a frame composed locally and written raw.
	fb, err := image1bit.New(dev.Config().Geometry)
	if err != nil {
		return err
	}
	gfx.FaceText(fb, basicfont.Face7x13, 2, 12, "periph", image1bit.White)
	gfx.FillRect(fb, 0, 16, 84, 32, image1bit.White)
	gfx.FaceText(fb, basicfont.Face7x13, 2, 36, *text, image1bit.Black)
	if _, err := dev.Write(fb.Pix); err != nil {
		return err
	}
	time.Sleep(*pause)

	for _, inverse := range []bool{true, false} {
		if err := dev.Invert(ctx, inverse); err != nil {
			return err
		}
		time.Sleep(*pause / 2)
	}
	logger.Debug("done", "stats", fmt.Sprintf("%+v", dev.Stats()))
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		log.Fatalf("example: %s.", err)
	}
}
