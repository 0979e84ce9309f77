// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package slave implements the slave role: it answers write-text and
// read-text requests addressed to it from a single TextStore.
package slave

import (
	"fmt"
	"log/slog"

	"github.com/ffutop/modbus-textlink/internal/slave/store"
	"github.com/ffutop/modbus-textlink/modbus"
	"github.com/ffutop/modbus-textlink/modbus/framer"
)

// Dispatcher turns one raw request frame into raw response bytes.
type Dispatcher struct {
	address  byte
	encoding modbus.Encoding
	store    *store.TextStore
}

// NewDispatcher creates a Dispatcher answering for address.
func NewDispatcher(address byte, enc modbus.Encoding, s *store.TextStore) *Dispatcher {
	return &Dispatcher{
		address:  address,
		encoding: enc,
		store:    s,
	}
}

// Address returns the slave address this dispatcher answers for.
func (d *Dispatcher) Address() byte {
	return d.address
}

// Store returns the TextStore behind the dispatcher.
func (d *Dispatcher) Store() *store.TextStore {
	return d.store
}

// Handle processes a raw request and returns the encoded response.
// A nil result means nothing must be sent: malformed frames and frames
// for other slaves are dropped silently.
func (d *Dispatcher) Handle(raw []byte) []byte {
	if len(raw) < framer.MinSize(d.encoding) {
		slog.Debug("Dropping short frame", "len", len(raw))
		return nil
	}

	req, err := framer.Decode(raw, d.encoding)
	if err != nil {
		slog.Debug("Dropping undecodable frame", "err", err)
		return nil
	}

	if req.Address != d.address {
		slog.Debug("Dropping frame", "err", modbus.ErrAddressMismatch, "address", req.Address)
		return nil
	}

	resp, err := d.process(req)
	if err != nil {
		slog.Debug("Request failed", "function", req.FunctionCode, "err", err)
		resp = modbus.Exception(d.address, req.FunctionCode, modbus.ExceptionCodeIllegalFunction)
	}

	out, err := framer.Encode(resp, d.encoding)
	if err != nil {
		// Only an oversized payload gets here; answer with an exception instead.
		slog.Debug("Failed to encode response", "err", err)
		out, _ = framer.Encode(modbus.Exception(d.address, req.FunctionCode, modbus.ExceptionCodeIllegalFunction), d.encoding)
	}
	return out
}

// process executes the function of req against the store.
func (d *Dispatcher) process(req modbus.Frame) (modbus.Frame, error) {
	switch req.FunctionCode {
	case modbus.FuncCodeWriteText:
		return d.handleWriteText(req)
	case modbus.FuncCodeReadText:
		return d.handleReadText(req)
	default:
		return modbus.Frame{}, &modbus.UnsupportedFunctionError{FunctionCode: req.FunctionCode}
	}
}

func (d *Dispatcher) handleWriteText(req modbus.Frame) (modbus.Frame, error) {
	text, err := modbus.DecodeText(req.Payload)
	if err != nil {
		return modbus.Frame{}, err
	}
	if err := d.store.Set(text); err != nil {
		return modbus.Frame{}, err
	}
	slog.Debug("Text written", "address", d.address, "len", len(text))

	// Echo address and function with an empty payload
	return modbus.Frame{
		Address:      d.address,
		FunctionCode: req.FunctionCode,
	}, nil
}

func (d *Dispatcher) handleReadText(req modbus.Frame) (modbus.Frame, error) {
	text := d.store.Get()
	if len(text) > modbus.MaxPayloadSize {
		return modbus.Frame{}, fmt.Errorf("text of %d bytes does not fit a response", len(text))
	}
	slog.Debug("Text read", "address", d.address, "len", len(text))

	return modbus.Frame{
		Address:      d.address,
		FunctionCode: req.FunctionCode,
		Payload:      []byte(text),
	}, nil
}
