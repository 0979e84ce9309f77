// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"github.com/ffutop/modbus-textlink/modbus"
	"github.com/ffutop/modbus-textlink/modbus/crc"
)

// Decode extracts a frame from an RTU ADU and verifies its CRC.
func Decode(raw []byte) (modbus.Frame, error) {
	length := len(raw)
	// Minimum size (including address, function and CRC)
	if length < MinSize {
		return modbus.Frame{}, modbus.NewFramingError("rtu frame length '%v' does not meet minimum '%v'", length, MinSize)
	}
	if length > MaxSize {
		return modbus.Frame{}, modbus.NewFramingError("rtu frame length '%v' exceeds maximum '%v'", length, MaxSize)
	}

	var c crc.CRC
	c.Reset().PushBytes(raw[0 : length-2])
	checksum := uint16(raw[length-1])<<8 | uint16(raw[length-2])
	if checksum != c.Value() {
		return modbus.Frame{}, &modbus.ChecksumError{Received: checksum, Expected: c.Value()}
	}

	payload := make([]byte, length-MinSize)
	copy(payload, raw[2:length-2])
	return modbus.Frame{
		Address:      raw[0],
		FunctionCode: raw[1],
		Payload:      payload,
	}, nil
}

// Encode encodes a frame as an RTU ADU:
//
//	Slave Address   : 1 byte
//	Function        : 1 byte
//	Payload         : 0 up to 252 bytes
//	CRC             : 2 bytes, low byte first
func Encode(frame modbus.Frame) ([]byte, error) {
	length := len(frame.Payload) + MinSize
	if length > MaxSize {
		return nil, modbus.NewFramingError("length of payload '%v' must not be bigger than '%v'", len(frame.Payload), modbus.MaxPayloadSize)
	}
	raw := make([]byte, length)

	raw[0] = frame.Address
	raw[1] = frame.FunctionCode
	copy(raw[2:], frame.Payload)

	checksum := crc.Checksum(raw[0 : length-2])
	raw[length-1] = byte(checksum >> 8)
	raw[length-2] = byte(checksum)
	return raw, nil
}
