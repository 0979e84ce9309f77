// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package ascii implements the textual Modbus ASCII framing.
package ascii

import (
	"bytes"
	"encoding/hex"

	"github.com/ffutop/modbus-textlink/modbus"
	"github.com/ffutop/modbus-textlink/modbus/lrc"
)

const (
	Start = ':'
	End   = "\r\n"

	// MinSize is start, address, function, LRC and end.
	MinSize = 1 + 2 + 2 + 2 + 2
	MaxSize = 1 + 2*(2+modbus.MaxPayloadSize+1) + 2

	hexTable = "0123456789ABCDEF"
)

// Encode encodes a frame as an ASCII ADU:
//
//	Start           : 1 char
//	Address         : 2 chars
//	Function        : 2 chars
//	Payload         : 0 up to 2x252 chars
//	LRC             : 2 chars
//	End             : 2 chars
func Encode(frame modbus.Frame) ([]byte, error) {
	if len(frame.Payload) > modbus.MaxPayloadSize {
		return nil, modbus.NewFramingError("length of payload '%v' must not be bigger than '%v'", len(frame.Payload), modbus.MaxPayloadSize)
	}

	var buf bytes.Buffer
	buf.Grow(MinSize + 2*len(frame.Payload))

	buf.WriteByte(Start)
	writeHex(&buf, []byte{frame.Address, frame.FunctionCode})
	writeHex(&buf, frame.Payload)
	writeHex(&buf, []byte{lrc.Checksum(frame.Address, frame.FunctionCode, frame.Payload)})
	buf.WriteString(End)

	return buf.Bytes(), nil
}

// Decode extracts a frame from an ASCII ADU and verifies its LRC.
// Hex digits are accepted in either case.
func Decode(raw []byte) (modbus.Frame, error) {
	length := len(raw)
	if length < MinSize {
		return modbus.Frame{}, modbus.NewFramingError("ascii frame length '%v' does not meet minimum '%v'", length, MinSize)
	}
	if raw[0] != Start {
		return modbus.Frame{}, modbus.NewFramingError("ascii frame '%q'... is not started with '%c'", raw[0], Start)
	}
	if !bytes.HasSuffix(raw, []byte(End)) {
		return modbus.Frame{}, modbus.NewFramingError("ascii frame ...'%q' is not ended with '%q'", raw[length-2:], End)
	}

	body := raw[1 : length-len(End)]
	// Length excluding colon and CRLF must be an even number
	if len(body)%2 != 0 {
		return modbus.Frame{}, modbus.NewFramingError("ascii frame body length '%v' is not an even number", len(body))
	}
	data := make([]byte, hex.DecodedLen(len(body)))
	if _, err := hex.Decode(data, body); err != nil {
		return modbus.Frame{}, modbus.NewFramingError("invalid hex: %v", err)
	}

	address, functionCode := data[0], data[1]
	payload := data[2 : len(data)-1]
	received := data[len(data)-1]
	if expected := lrc.Checksum(address, functionCode, payload); received != expected {
		return modbus.Frame{}, &modbus.ChecksumError{Received: uint16(received), Expected: uint16(expected)}
	}

	return modbus.Frame{
		Address:      address,
		FunctionCode: functionCode,
		Payload:      payload,
	}, nil
}

// writeHex encodes byte to string in hexadecimal, e.g. 0xA5 => "A5"
func writeHex(buf *bytes.Buffer, value []byte) {
	for _, v := range value {
		buf.WriteByte(hexTable[v>>4])
		buf.WriteByte(hexTable[v&0x0F])
	}
}
