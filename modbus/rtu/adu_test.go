// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/ffutop/modbus-textlink/modbus"
	"github.com/ffutop/modbus-textlink/transport/porttest"
)

func TestEncode_DeadBeef(t *testing.T) {
	frame := modbus.Frame{Address: 0x05, FunctionCode: 0x01, Payload: []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	want := []byte{0x05, 0x01, 0xDE, 0xAD, 0xBE, 0xEF, 0xA6, 0x6B}

	raw, err := Encode(frame)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !bytes.Equal(raw, want) {
		t.Errorf("Encode() mismatch.\nWant: % X\nGot:  % X", want, raw)
	}

	decoded, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if decoded.Address != frame.Address || decoded.FunctionCode != frame.FunctionCode || !bytes.Equal(decoded.Payload, frame.Payload) {
		t.Errorf("Decode() = %v, want %v", decoded, frame)
	}
}

func TestEncode_PayloadTooLarge(t *testing.T) {
	_, err := Encode(modbus.Frame{Address: 1, FunctionCode: 1, Payload: make([]byte, modbus.MaxPayloadSize+1)})
	var fe *modbus.FramingError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FramingError, got %v", err)
	}

	if _, err := Encode(modbus.Frame{Address: 1, FunctionCode: 1, Payload: make([]byte, modbus.MaxPayloadSize)}); err != nil {
		t.Errorf("max payload rejected: %v", err)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		checksum bool
	}{
		{"Empty", nil, false},
		{"ThreeBytes", []byte{0x05, 0x02, 0x83}, false},
		{"BadCRC", []byte{0x01, 0x03, 0x02, 0xAA, 0xBB, 0xFF, 0xFF}, true},
		{"SwappedCRC", []byte{0x05, 0x02, 0x21, 0x83}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw)
			var fe *modbus.FramingError
			var ce *modbus.ChecksumError
			switch {
			case tt.checksum && !errors.As(err, &ce):
				t.Errorf("expected ChecksumError, got %v", err)
			case !tt.checksum && !errors.As(err, &fe):
				t.Errorf("expected FramingError, got %v", err)
			}
		})
	}
}

func TestDecode_MinimalFrame(t *testing.T) {
	f, err := Decode([]byte{0x05, 0x02, 0x83, 0x21})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if f.Address != 5 || f.FunctionCode != 2 || len(f.Payload) != 0 {
		t.Errorf("Decode() = %v", f)
	}
}

func TestReadFrame(t *testing.T) {
	want := []byte{0x05, 0x01, 0xDE, 0xAD, 0xBE, 0xEF, 0xA6, 0x6B}
	// Split delivery, as a serial driver hands over partial buffers.
	port := porttest.New(want[:3], want[3:])

	raw, err := ReadFrame(port, 100*time.Millisecond, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if !bytes.Equal(raw, want) {
		t.Errorf("ReadFrame() = % X, want % X", raw, want)
	}
}

func TestReadFrame_Timeout(t *testing.T) {
	port := porttest.New()

	_, err := ReadFrame(port, 20*time.Millisecond, 5*time.Millisecond)
	if !errors.Is(err, modbus.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestFrameDelay(t *testing.T) {
	tests := []struct {
		baudRate int
		want     time.Duration
	}{
		{9600, 3645 * time.Microsecond},
		{19200, 1822 * time.Microsecond},
		{115200, 1750 * time.Microsecond},
		{0, 1750 * time.Microsecond},
	}
	for _, tt := range tests {
		if got := FrameDelay(tt.baudRate); got != tt.want {
			t.Errorf("FrameDelay(%d) = %v, want %v", tt.baudRate, got, tt.want)
		}
	}
}
