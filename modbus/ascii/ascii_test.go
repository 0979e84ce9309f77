// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package ascii

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/ffutop/modbus-textlink/modbus"
	"github.com/ffutop/modbus-textlink/transport/porttest"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		frame modbus.Frame
		want  string
	}{
		{"WriteHi", modbus.Frame{Address: 5, FunctionCode: 1, Payload: []byte("hi")}, ":0501686929\r\n"},
		{"ReadText", modbus.Frame{Address: 5, FunctionCode: 2}, ":0502F9\r\n"},
		{"Exception", modbus.Exception(5, 3, 1), ":05830177\r\n"},
		{"UppercaseHex", modbus.Frame{Address: 0xAB, FunctionCode: 1, Payload: []byte{0xCD}}, ":AB01CD87\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.frame)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncode_PayloadTooLarge(t *testing.T) {
	_, err := Encode(modbus.Frame{Address: 1, FunctionCode: 1, Payload: make([]byte, modbus.MaxPayloadSize+1)})
	var fe *modbus.FramingError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FramingError, got %v", err)
	}
}

func TestDecode(t *testing.T) {
	f, err := Decode([]byte(":0502686928\r\n"))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if f.Address != 5 || f.FunctionCode != 2 || string(f.Payload) != "hi" {
		t.Errorf("Decode() = %v", f)
	}
}

func TestDecode_CaseInsensitive(t *testing.T) {
	upper, err := Decode([]byte(":AB01CD87\r\n"))
	if err != nil {
		t.Fatalf("Decode(upper) error = %v", err)
	}
	lower, err := Decode([]byte(":ab01cd87\r\n"))
	if err != nil {
		t.Fatalf("Decode(lower) error = %v", err)
	}
	if upper.Address != lower.Address || !bytes.Equal(upper.Payload, lower.Payload) {
		t.Errorf("upper %v != lower %v", upper, lower)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		checksum bool
	}{
		{"TooShort", ":0501\r\n", false},
		{"MissingStart", "0501686929\r\n", false},
		{"MissingTerminator", ":050168692900", false},
		{"OnlyCR", ":05016869291\r", false},
		{"OddLength", ":050168692\r\n", false},
		{"NotHex", ":0501686Z29\r\n", false},
		{"BadLRC", ":050168692A\r\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
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

func TestReadFrame(t *testing.T) {
	// Noise before the start character is discarded.
	port := porttest.New([]byte("\x00\xFFxx"), []byte(":0502"), []byte("F9\r"), []byte("\n"))

	raw, err := ReadFrame(port, 100*time.Millisecond, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if string(raw) != ":0502F9\r\n" {
		t.Errorf("ReadFrame() = %q", raw)
	}
}

func TestReadFrame_Timeout(t *testing.T) {
	port := porttest.New()

	_, err := ReadFrame(port, 20*time.Millisecond, 10*time.Millisecond)
	if !errors.Is(err, modbus.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestReadFrame_Incomplete(t *testing.T) {
	port := porttest.New([]byte(":0502F9"))

	_, err := ReadFrame(port, 50*time.Millisecond, 10*time.Millisecond)
	var fe *modbus.FramingError
	if !errors.As(err, &fe) {
		t.Errorf("expected FramingError, got %v", err)
	}
}

func TestReadFrame_Restart(t *testing.T) {
	// A second start character abandons the partial frame.
	port := porttest.New([]byte(":05:0502F9\r\n"))

	raw, err := ReadFrame(port, 50*time.Millisecond, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if string(raw) != ":0502F9\r\n" {
		t.Errorf("ReadFrame() = %q", raw)
	}
}
