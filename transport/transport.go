// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package transport defines the byte-stream contract both protocol roles
// run on. Implementations live in the sub packages (serial, tcp, local).
package transport

import (
	"errors"
	"io"
	"time"
)

// ErrTimeout is returned by Port.Read when no byte arrived within the
// configured timeout. Implementations may return it together with n > 0.
var ErrTimeout = errors.New("transport: read timed out")

// Port is a byte stream to a single peer.
//
// Read blocks until at least one byte is available or the timeout set by
// SetTimeout elapses, in which case it returns ErrTimeout. A zero timeout
// blocks indefinitely.
type Port interface {
	io.ReadWriteCloser

	// SetTimeout sets the per-call read timeout.
	SetTimeout(timeout time.Duration) error

	// SetBaudRate changes the line speed. Ports without a physical line
	// accept and ignore it.
	SetBaudRate(baudRate int) error
}

// IsTimeout reports whether err is a read timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
