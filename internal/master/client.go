// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package master implements the master role: request/response transactions
// with a bounded number of attempts.
package master

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ffutop/modbus-textlink/modbus"
	"github.com/ffutop/modbus-textlink/modbus/framer"
	"github.com/ffutop/modbus-textlink/transport"
)

const (
	DefaultTimeout = time.Second
	DefaultRetries = 3
)

// Client sends requests to slaves over a single port.
// Only one transaction is in flight at a time.
type Client struct {
	Port     transport.Port
	Encoding modbus.Encoding

	// Timeout bounds the wait for a response in each attempt.
	Timeout time.Duration
	// Retries is the number of resends after the first attempt.
	Retries int
	// InterCharTimeout is the silence that ends a response frame.
	// Zero derives it from BaudRate for RTU.
	InterCharTimeout time.Duration
	// BaudRate is the line speed, zero if unknown.
	BaudRate int

	mu sync.Mutex
}

// NewClient allocates a Client with the default timeout and retries.
func NewClient(port transport.Port, enc modbus.Encoding) *Client {
	return &Client{
		Port:     port,
		Encoding: enc,
		Timeout:  DefaultTimeout,
		Retries:  DefaultRetries,
	}
}

// Execute sends a request and returns the first valid response from
// address. Lost, corrupt and misaddressed responses are retried up to
// Retries times; after that the returned error wraps modbus.ErrTimeout.
// An exception response is a valid response and is returned as is.
func (c *Client) Execute(ctx context.Context, address, functionCode byte, payload []byte) (modbus.Frame, error) {
	if address < modbus.MinSlaveAddress || address > modbus.MaxSlaveAddress {
		return modbus.Frame{}, fmt.Errorf("invalid slave address %d", address)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	attempts := c.Retries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return modbus.Frame{}, err
		}

		// The request is rebuilt for every attempt
		raw, err := framer.Encode(modbus.Frame{
			Address:      address,
			FunctionCode: functionCode,
			Payload:      payload,
		}, c.Encoding)
		if err != nil {
			return modbus.Frame{}, fmt.Errorf("failed to encode request: %w", err)
		}

		resp, err := c.send(raw, address, functionCode)
		if err == nil {
			return resp, nil
		}
		if !isRetriable(err) {
			return modbus.Frame{}, err
		}
		lastErr = err
		slog.Debug("Attempt failed", "address", address, "attempt", attempt, "attempts", attempts, "err", err)
	}

	return modbus.Frame{}, fmt.Errorf("%w after %d attempts: %v", modbus.ErrTimeout, attempts, lastErr)
}

// send performs a single attempt.
func (c *Client) send(raw []byte, address, functionCode byte) (modbus.Frame, error) {
	slog.Debug("send to slave", "request", hex.EncodeToString(raw))
	if _, err := c.Port.Write(raw); err != nil {
		return modbus.Frame{}, fmt.Errorf("failed to write request: %w", err)
	}

	interChar := framer.InterCharTimeout(c.Encoding, c.BaudRate, c.InterCharTimeout)
	data, err := framer.ReadFrame(c.Port, c.Encoding, c.timeout(), interChar)
	if err != nil {
		return modbus.Frame{}, err
	}
	slog.Debug("recv from slave", "response", hex.EncodeToString(data))

	resp, err := framer.Decode(data, c.Encoding)
	if err != nil {
		return modbus.Frame{}, err
	}
	if resp.Address != address {
		return modbus.Frame{}, fmt.Errorf("%w: response from %d, expected %d", modbus.ErrAddressMismatch, resp.Address, address)
	}
	if resp.FunctionCode&^modbus.ExceptionFlag != functionCode {
		return modbus.Frame{}, modbus.NewFramingError("response function 0x%02X does not match request 0x%02X", resp.FunctionCode, functionCode)
	}
	return resp, nil
}

func (c *Client) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

func isRetriable(err error) bool {
	var framingErr *modbus.FramingError
	var checksumErr *modbus.ChecksumError
	return errors.Is(err, modbus.ErrTimeout) ||
		errors.Is(err, modbus.ErrAddressMismatch) ||
		errors.As(err, &framingErr) ||
		errors.As(err, &checksumErr)
}

// WriteText stores text in the slave at address and returns its response,
// which is either an acknowledgement or an exception response.
func (c *Client) WriteText(ctx context.Context, address byte, text string) (modbus.Frame, error) {
	if len(text) > modbus.MaxPayloadSize {
		return modbus.Frame{}, fmt.Errorf("text of %d bytes exceeds %d", len(text), modbus.MaxPayloadSize)
	}
	return c.Execute(ctx, address, modbus.FuncCodeWriteText, []byte(text))
}

// ReadText returns the text held by the slave at address.
// An exception response is reported as a *modbus.ExceptionError.
func (c *Client) ReadText(ctx context.Context, address byte) (string, error) {
	resp, err := c.Execute(ctx, address, modbus.FuncCodeReadText, nil)
	if err != nil {
		return "", err
	}
	if resp.IsException() {
		return "", &modbus.ExceptionError{FunctionCode: resp.FunctionCode, ExceptionCode: resp.ExceptionCode()}
	}
	return modbus.DecodeText(resp.Payload)
}
