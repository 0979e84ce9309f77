// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package tcp

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/ffutop/modbus-textlink/transport"
)

// ErrNoPeer is returned by ListenerPort.Write while no peer is connected.
var ErrNoPeer = errors.New("tcp: no peer connected")

// ListenerPort serves one peer at a time on a listening socket. A peer is
// accepted by the first Read without a connection; when it disconnects the
// next Read waits for a new one.
type ListenerPort struct {
	listener *net.TCPListener

	mu      sync.Mutex
	conn    net.Conn
	timeout time.Duration
}

// Listen opens a ListenerPort on address.
func Listen(address string) (*ListenerPort, error) {
	addr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("invalid address %s: %w", address, err)
	}
	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	slog.Info("TCP port listening", "addr", listener.Addr())
	return &ListenerPort{listener: listener}, nil
}

// Addr returns the listening address.
func (p *ListenerPort) Addr() net.Addr {
	return p.listener.Addr()
}

// accept waits for a peer until the read timeout. Caller must hold the mutex.
func (p *ListenerPort) accept() error {
	if p.conn != nil {
		return nil
	}
	var deadline time.Time
	if p.timeout > 0 {
		deadline = time.Now().Add(p.timeout)
	}
	if err := p.listener.SetDeadline(deadline); err != nil {
		return err
	}
	conn, err := p.listener.Accept()
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return transport.ErrTimeout
		}
		return err
	}
	slog.Info("New TCP peer connected", "addr", conn.RemoteAddr())
	p.conn = conn
	return nil
}

func (p *ListenerPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.accept(); err != nil {
		return 0, err
	}
	n, err := readConn(p.conn, b, p.timeout)
	if err != nil && !transport.IsTimeout(err) {
		if errors.Is(err, io.EOF) {
			slog.Info("TCP peer disconnected", "addr", p.conn.RemoteAddr())
		}
		p.conn.Close()
		p.conn = nil
	}
	return n, err
}

func (p *ListenerPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return 0, ErrNoPeer
	}
	n, err := writeConn(p.conn, b)
	if err != nil {
		p.conn.Close()
		p.conn = nil
	}
	return n, err
}

func (p *ListenerPort) SetTimeout(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.timeout = timeout
	return nil
}

// SetBaudRate is a no-op.
func (p *ListenerPort) SetBaudRate(baudRate int) error {
	return nil
}

// Close drops the peer and closes the listener.
func (p *ListenerPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	return p.listener.Close()
}

var _ transport.Port = (*ListenerPort)(nil)
