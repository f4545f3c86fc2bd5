// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package transfer splits payloads into bus transactions tagged as command or
// data.
//
// A Sender pushes a payload to a Bus either as a single transaction (Direct,
// the equivalent of a DMA capable bus) or as a sequence of transactions no
// larger than MaxTxSize (Bounded). In both cases each transaction is awaited
// before the next one is issued; nothing is pipelined.
//
// How the command/data line is driven is left to the Bus; every transaction
// carries the Mode it must be asserted for.
package transfer
