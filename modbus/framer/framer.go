// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package framer converts frames to and from either wire encoding. It is
// the single codec shared by the master and the slave.
package framer

import (
	"time"

	"github.com/ffutop/modbus-textlink/modbus"
	"github.com/ffutop/modbus-textlink/modbus/ascii"
	"github.com/ffutop/modbus-textlink/modbus/rtu"
	"github.com/ffutop/modbus-textlink/transport"
)

// Encode renders frame in the given encoding.
func Encode(frame modbus.Frame, enc modbus.Encoding) ([]byte, error) {
	switch enc {
	case modbus.ASCII:
		return ascii.Encode(frame)
	case modbus.RTU:
		return rtu.Encode(frame)
	default:
		return nil, modbus.NewFramingError("unknown encoding %v", enc)
	}
}

// Decode parses and verifies raw in the given encoding. It returns a
// *modbus.FramingError or a *modbus.ChecksumError on failure.
func Decode(raw []byte, enc modbus.Encoding) (modbus.Frame, error) {
	switch enc {
	case modbus.ASCII:
		return ascii.Decode(raw)
	case modbus.RTU:
		return rtu.Decode(raw)
	default:
		return modbus.Frame{}, modbus.NewFramingError("unknown encoding %v", enc)
	}
}

// ReadFrame reads the bytes of one frame from port. See ascii.ReadFrame and
// rtu.ReadFrame for how each encoding finds the end of a frame.
func ReadFrame(port transport.Port, enc modbus.Encoding, timeout, interChar time.Duration) ([]byte, error) {
	switch enc {
	case modbus.ASCII:
		return ascii.ReadFrame(port, timeout, interChar)
	case modbus.RTU:
		return rtu.ReadFrame(port, timeout, interChar)
	default:
		return nil, modbus.NewFramingError("unknown encoding %v", enc)
	}
}

// InterCharTimeout resolves the silence that ends a frame. A positive
// configured value wins. Otherwise RTU uses the 3.5 character time at
// baudRate, and ASCII (zero) waits up to the response timeout.
func InterCharTimeout(enc modbus.Encoding, baudRate int, configured time.Duration) time.Duration {
	if configured > 0 {
		return configured
	}
	if enc == modbus.RTU {
		return rtu.FrameDelay(baudRate)
	}
	return 0
}

// MinSize returns the smallest valid ADU for enc.
func MinSize(enc modbus.Encoding) int {
	if enc == modbus.ASCII {
		return ascii.MinSize
	}
	return rtu.MinSize
}
