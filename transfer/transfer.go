// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Mode selects the level of the command/data line during a transaction.
type Mode bool

// Possible modes.
const (
	Command Mode = false
	Data    Mode = true
)

func (m Mode) String() string {
	if m == Data {
		return "data"
	}
	return "command"
}

// Strategy selects how a payload is cut into transactions.
type Strategy int

// Possible strategies.
const (
	// Bounded sends chunks of at most MaxTxSize bytes.
	Bounded Strategy = iota
	// Direct sends the whole payload as one transaction.
	Direct
)

func (s Strategy) String() string {
	switch s {
	case Bounded:
		return "bounded"
	case Direct:
		return "direct"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Policy decides what happens to the rest of a payload after a chunk fails.
type Policy int

// Possible policies.
const (
	// Continue logs the failure and sends the remaining chunks.
	Continue Policy = iota
	// Abort stops at the first failed chunk.
	Abort
)

// DefaultMaxTxSize is the largest transaction a non-DMA SPI host accepts.
const DefaultMaxTxSize = 32

// DefaultTimeout bounds the wait for a single transaction.
const DefaultTimeout = time.Second

// ErrTimeout is returned by a Bus when a transaction did not complete before
// its deadline.
var ErrTimeout = errors.New("transfer: transaction timed out")

// Bus is a synchronous transport.
//
// Tx must assert the command/data line to m for the whole transaction and
// return once the bytes are on the wire, or with an error when ctx expires.
type Bus interface {
	Tx(ctx context.Context, w []byte, m Mode) error
}

// BusFunc adapts a function to the Bus interface.
type BusFunc func(ctx context.Context, w []byte, m Mode) error

// Tx implements Bus.
func (f BusFunc) Tx(ctx context.Context, w []byte, m Mode) error {
	return f(ctx, w, m)
}

// Await runs fn, which must not block forever, and waits until it returns or
// ctx is done. An expired deadline is reported as ErrTimeout.
//
// fn keeps running in the background after a timeout; callers that share a
// resource with fn must serialize access themselves.
func Await(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		}
		return ctx.Err()
	}
}

// Chunk is one transaction of a payload.
type Chunk struct {
	Data []byte
	Mode Mode
}

// Split cuts payload into chunks of at most max bytes; the last chunk holds
// the remainder. max <= 0 means no limit. The chunks alias payload.
func Split(payload []byte, max int, m Mode) []Chunk {
	if len(payload) == 0 {
		return nil
	}
	if max <= 0 || max >= len(payload) {
		return []Chunk{{Data: payload, Mode: m}}
	}
	out := make([]Chunk, 0, (len(payload)+max-1)/max)
	for len(payload) > 0 {
		n := max
		if n > len(payload) {
			n = len(payload)
		}
		out = append(out, Chunk{Data: payload[:n], Mode: m})
		payload = payload[n:]
	}
	return out
}

// ChunkError describes one failed transaction.
type ChunkError struct {
	Index  int
	Offset int
	Len    int
	Mode   Mode
	Err    error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("transfer: %s chunk %d (offset %d, %d bytes): %v", e.Mode, e.Index, e.Offset, e.Len, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// Error aggregates the failed chunks of one Send.
type Error struct {
	Chunks []*ChunkError
	// Sent is the number of chunks that succeeded.
	Sent int
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "transfer: %d chunk(s) failed, %d sent", len(e.Chunks), e.Sent)
	for _, c := range e.Chunks {
		b.WriteString("; ")
		fmt.Fprintf(&b, "chunk %d: %v", c.Index, c.Err)
	}
	return b.String()
}

// Unwrap returns the individual chunk errors for errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, len(e.Chunks))
	for i, c := range e.Chunks {
		out[i] = c
	}
	return out
}

// Stats counts the transactions issued by a Sender.
type Stats struct {
	Transactions int
	Bytes        int
	Failures     int
	Retries      int
}

// Sender writes payloads to a Bus.
//
// The zero value of every field but Bus is usable.
type Sender struct {
	Bus      Bus
	Strategy Strategy
	// MaxTxSize is the chunk size in Bounded mode. Defaults to
	// DefaultMaxTxSize.
	MaxTxSize int
	// Timeout bounds each transaction. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Retries is the number of extra attempts for a failed chunk.
	Retries int
	OnError Policy
	// Logger receives failures. Defaults to slog.Default().
	Logger *slog.Logger

	mu    sync.Mutex
	stats Stats
}

func (s *Sender) maxTxSize() int {
	if s.MaxTxSize > 0 {
		return s.MaxTxSize
	}
	return DefaultMaxTxSize
}

func (s *Sender) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultTimeout
}

func (s *Sender) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Chunks returns how payload would be cut with the current settings.
func (s *Sender) Chunks(payload []byte, m Mode) []Chunk {
	if s.Strategy == Direct {
		return Split(payload, 0, m)
	}
	return Split(payload, s.maxTxSize(), m)
}

// Send writes payload to the bus as m.
//
// Chunks are sent in order, each awaited before the next. On failure the
// returned error is an *Error. With the Continue policy every chunk is
// attempted; with Abort the remaining chunks are skipped. A canceled ctx
// stops the payload and returns ctx.Err(), joined with the *Error of the
// chunks that already failed.
func (s *Sender) Send(ctx context.Context, payload []byte, m Mode) error {
	if s.Bus == nil {
		return errors.New("transfer: nil Bus")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var failures []*ChunkError
	sent := 0
	offset := 0
	for i, c := range s.Chunks(payload, m) {
		if err := ctx.Err(); err != nil {
			if len(failures) != 0 {
				return errors.Join(err, &Error{Chunks: failures, Sent: sent})
			}
			return err
		}
		if err := s.tx(ctx, c); err != nil {
			s.stats.Failures++
			s.logger().Warn("transfer failed",
				"chunk", i, "offset", offset, "len", len(c.Data), "mode", c.Mode.String(), "err", err)
			failures = append(failures, &ChunkError{Index: i, Offset: offset, Len: len(c.Data), Mode: c.Mode, Err: err})
			if s.OnError == Abort {
				return &Error{Chunks: failures, Sent: sent}
			}
		} else {
			sent++
		}
		offset += len(c.Data)
	}
	if len(failures) != 0 {
		return &Error{Chunks: failures, Sent: sent}
	}
	return nil
}

// tx sends one chunk, retrying up to s.Retries times.
//
// The returned error matches ErrTimeout when any attempt timed out, since the
// bus may still be reading c.Data.
func (s *Sender) tx(ctx context.Context, c Chunk) error {
	var err error
	timedOut := false
	for attempt := 0; attempt <= s.Retries; attempt++ {
		if attempt > 0 {
			s.stats.Retries++
		}
		tctx, cancel := context.WithTimeout(ctx, s.timeout())
		err = s.Bus.Tx(tctx, c.Data, c.Mode)
		cancel()
		s.stats.Transactions++
		if err == nil {
			s.stats.Bytes += len(c.Data)
			return nil
		}
		if errors.Is(err, ErrTimeout) {
			timedOut = true
		}
		if ctx.Err() != nil {
			break
		}
	}
	if timedOut && !errors.Is(err, ErrTimeout) {
		return fmt.Errorf("%w (an earlier attempt: %w)", err, ErrTimeout)
	}
	return err
}

// Stats returns the counters accumulated since the Sender was created.
func (s *Sender) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
