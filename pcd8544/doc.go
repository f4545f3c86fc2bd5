// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pcd8544 controls a PCD8544 LCD controller, as found on the Nokia
// 5110 and 3310 84x48 modules.
//
// The controller is write only. Drawing happens in a local page-addressed
// frame buffer which Display pushes to the controller RAM in one go: a short
// command sequence resetting the RAM address followed by the 504 bytes of the
// frame.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/Monochrome/Nokia5110.pdf
//
// # Wiring
//
// Connect DIN to SPI_MOSI, CLK to SPI_CLK and CE to SPI_CS. DC and RST go to
// any two GPIO. When the chip enable line is not driven by the SPI host, pass
// the GPIO in Opts.CS.
package pcd8544
