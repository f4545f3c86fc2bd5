// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pcd8544

import (
	"context"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"

	"github.com/GermanBionicSystems/nokia5110/transfer"
)

// NewSPI returns a Dev object that communicates over SPI to a PCD8544 display
// controller.
//
// dc selects between command (Low) and data (High). rst may be nil when the
// reset line is handled outside of this driver; otherwise it is pulsed unless
// opts.NoReset is set.
func NewSPI(p spi.Port, dc, rst gpio.PinOut, opts *Opts) (*Dev, error) {
	if dc == nil || dc == gpio.INVALID {
		return nil, fmt.Errorf("pcd8544: dc pin is required")
	}
	o := withDefaults(opts)
	if err := o.validate(); err != nil {
		return nil, err
	}
	c, err := p.Connect(o.Frequency, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("pcd8544: %w", err)
	}
	if l, ok := c.(conn.Limits); ok {
		if max := l.MaxTxSize(); max > 0 && max < o.MaxTxSize {
			o.MaxTxSize = max
		}
	}
	b := &spiBus{c: c, dc: dc, cs: o.CS}
	eh := errorHandler{b: b}
	eh.dcOut(gpio.Low)
	eh.csOut(gpio.High)
	if rst != nil && !o.NoReset {
		eh.reset(rst)
	}
	if eh.err != nil {
		return nil, fmt.Errorf("pcd8544: %w", eh.err)
	}
	return New(b, &o)
}

// spiBus implements transfer.Bus on a 4-wire SPI connection.
type spiBus struct {
	// mu serializes transactions, including the ones abandoned after a timeout.
	mu sync.Mutex
	c  spi.Conn
	dc gpio.PinOut
	cs gpio.PinOut
}

func (b *spiBus) String() string {
	return fmt.Sprintf("%s, %s", b.c, b.dc)
}

// Tx implements transfer.Bus.
func (b *spiBus) Tx(ctx context.Context, w []byte, m transfer.Mode) error {
	return transfer.Await(ctx, func() error {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.tx(w, m)
	})
}

func (b *spiBus) tx(w []byte, m transfer.Mode) error {
	l := gpio.Low
	if m == transfer.Data {
		l = gpio.High
	}
	eh := errorHandler{b: b}
	eh.dcOut(l)
	eh.csOut(gpio.Low)
	eh.cTx(w)
	err := eh.err
	// Release the lines even after a failed transfer.
	eh.err = nil
	eh.csOut(gpio.High)
	eh.dcOut(gpio.Low)
	if err != nil {
		return err
	}
	return eh.err
}

// errorHandler is a wrapper for error management.
type errorHandler struct {
	b   *spiBus
	err error
}

func (eh *errorHandler) dcOut(l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.err = eh.b.dc.Out(l)
}

func (eh *errorHandler) csOut(l gpio.Level) {
	if eh.err != nil || eh.b.cs == nil {
		return
	}
	eh.err = eh.b.cs.Out(l)
}

func (eh *errorHandler) cTx(w []byte) {
	if eh.err != nil {
		return
	}
	eh.err = eh.b.c.Tx(w, nil)
}

// reset pulses rst low for 10ms.
func (eh *errorHandler) reset(rst gpio.PinOut) {
	for _, l := range []gpio.Level{gpio.High, gpio.Low} {
		if eh.err != nil {
			return
		}
		eh.err = rst.Out(l)
	}
	if eh.err != nil {
		return
	}
	time.Sleep(10 * time.Millisecond)
	eh.err = rst.Out(gpio.High)
}
