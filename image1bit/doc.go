// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package image1bit implements a page-addressed 1 bit per pixel frame buffer.
//
// Each byte holds 8 vertically stacked pixels of one column, least
// significant bit on top. The buffer is organized in horizontal pages of 8
// rows, which is the native RAM layout of the PCD8544 and most monochrome
// LCD/OLED controllers, so the buffer can be streamed to the device as is.
//
// FrameBuffer implements draw.Image so it can be the destination of
// image/draw and golang.org/x/image/font operations.
package image1bit
