// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package tcp implements transport.Port over a TCP stream, for serial
// device servers and serial-to-TCP bridges.
package tcp

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/ffutop/modbus-textlink/transport"
)

const (
	tcpTimeout = 10 * time.Second
)

// Port dials Address on first use and keeps the connection until it fails
// or is closed.
type Port struct {
	Address     string
	DialTimeout time.Duration

	mu      sync.Mutex
	conn    net.Conn
	timeout time.Duration
}

// NewPort allocates a Port for address ("host:port").
func NewPort(address string) *Port {
	return &Port{
		Address:     address,
		DialTimeout: tcpTimeout,
	}
}

// connect ensures there is an active connection. Caller must hold the mutex.
func (p *Port) connect() error {
	if p.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("tcp", p.Address, p.DialTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", p.Address, err)
	}
	slog.Debug("tcp connected", "addr", p.Address)
	p.conn = conn
	return nil
}

// close closes the connection and resets the state. Caller must hold the mutex.
func (p *Port) close() (err error) {
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	return
}

func (p *Port) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(); err != nil {
		return 0, err
	}
	n, err := readConn(p.conn, b, p.timeout)
	if err != nil && !transport.IsTimeout(err) {
		// Redial on next use
		p.close()
	}
	return n, err
}

func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(); err != nil {
		return 0, err
	}
	n, err := writeConn(p.conn, b)
	if err != nil {
		p.close()
	}
	return n, err
}

func (p *Port) SetTimeout(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.timeout = timeout
	return nil
}

// SetBaudRate is a no-op; the line speed belongs to the device server.
func (p *Port) SetBaudRate(baudRate int) error {
	return nil
}

func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.close()
}

// readConn reads with a deadline derived from timeout (zero blocks) and
// maps a deadline hit to transport.ErrTimeout.
func readConn(conn net.Conn, b []byte, timeout time.Duration) (int, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return 0, err
	}
	n, err := conn.Read(b)
	if n > 0 {
		slog.Debug("tcp recv", "addr", conn.RemoteAddr(), "data", hex.EncodeToString(b[:n]))
	}
	if err != nil && n == 0 {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return 0, transport.ErrTimeout
		}
		return 0, err
	}
	return n, nil
}

func writeConn(conn net.Conn, b []byte) (int, error) {
	slog.Debug("tcp send", "addr", conn.RemoteAddr(), "data", hex.EncodeToString(b))
	return conn.Write(b)
}

var _ transport.Port = (*Port)(nil)
