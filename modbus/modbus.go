// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package modbus defines the frame model shared by the master and slave
// roles of the text link protocol.
package modbus

import (
	"fmt"
	"strings"
)

// Function Codes
const (
	FuncCodeWriteText = 0x01
	FuncCodeReadText  = 0x02

	// ExceptionFlag marks a response as an exception response.
	ExceptionFlag = 0x80
)

// Exception Codes
const (
	// ExceptionCodeIllegalFunction is the only exception code this protocol
	// emits. It covers unsupported functions as well as processing errors.
	ExceptionCodeIllegalFunction = 0x01
)

// Slave addressing
const (
	MinSlaveAddress = 1
	MaxSlaveAddress = 247
)

// MaxPayloadSize is the largest payload carried by a single frame.
// max RTU ADU = 256 bytes = address (1) + function (1) + payload (252) + CRC (2).
const MaxPayloadSize = 252

// Encoding selects the wire format of a frame.
type Encoding int

const (
	ASCII Encoding = iota
	RTU
)

func (e Encoding) String() string {
	switch e {
	case ASCII:
		return "ascii"
	case RTU:
		return "rtu"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// ParseEncoding parses "ascii" or "rtu" (case-insensitive).
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ascii":
		return ASCII, nil
	case "rtu":
		return RTU, nil
	default:
		return 0, fmt.Errorf("modbus: unknown encoding '%v'", s)
	}
}

// Frame is one protocol message independent of its wire encoding.
// The checksum is not stored; it is derived from the other fields.
type Frame struct {
	Address      byte
	FunctionCode byte
	Payload      []byte
}

// IsException reports whether the frame is an exception response.
func (f Frame) IsException() bool {
	return f.FunctionCode&ExceptionFlag != 0
}

// ExceptionCode returns the exception code carried by an exception response.
func (f Frame) ExceptionCode() byte {
	if !f.IsException() || len(f.Payload) == 0 {
		return 0
	}
	return f.Payload[0]
}

// Exception builds the exception response for a request frame.
func Exception(address, functionCode, code byte) Frame {
	return Frame{
		Address:      address,
		FunctionCode: functionCode | ExceptionFlag,
		Payload:      []byte{code},
	}
}

func (f Frame) String() string {
	return fmt.Sprintf("address=%d function=0x%02X payload=% X", f.Address, f.FunctionCode, f.Payload)
}
