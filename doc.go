// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package nokia5110 is a container for the PCD8544 (Nokia 5110) display
// driver and its supporting packages.
//
// image1bit holds the page-addressed frame buffer, gfx rasterizes shapes and
// text into it, transfer splits payloads into bus transactions, pcd8544 ties
// them to a SPI bus and console emulates the controller on a terminal.
package nokia5110
