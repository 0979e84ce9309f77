// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package local provides an in-process loopback transport.Port: every
// write is handed to a Handler and its reply is served to the next reads.
package local

import (
	"io"
	"sync"
	"time"

	"github.com/ffutop/modbus-textlink/transport"
)

// Handler answers one written chunk. A nil reply sends nothing back.
type Handler interface {
	Handle(raw []byte) []byte
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(raw []byte) []byte

func (f HandlerFunc) Handle(raw []byte) []byte {
	return f(raw)
}

// Port connects a master directly to a Handler such as a slave Dispatcher.
type Port struct {
	handler Handler

	mu      sync.Mutex
	pending []byte
	timeout time.Duration
	closed  bool
	ready   chan struct{}
}

// NewPort creates a loopback Port in front of handler.
func NewPort(handler Handler) *Port {
	return &Port{
		handler: handler,
		ready:   make(chan struct{}, 1),
	}
}

// Write passes b to the handler and queues the reply.
func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	p.mu.Unlock()

	resp := p.handler.Handle(append([]byte(nil), b...))
	if len(resp) > 0 {
		p.mu.Lock()
		p.pending = append(p.pending, resp...)
		p.mu.Unlock()
		p.signal()
	}
	return len(b), nil
}

// Read returns queued reply bytes, waiting up to the timeout for some.
func (p *Port) Read(b []byte) (int, error) {
	var timer <-chan time.Time
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return 0, io.ErrClosedPipe
		}
		if len(p.pending) > 0 {
			n := copy(b, p.pending)
			p.pending = p.pending[n:]
			p.mu.Unlock()
			return n, nil
		}
		if timer == nil && p.timeout > 0 {
			timer = time.After(p.timeout)
		}
		p.mu.Unlock()

		select {
		case <-p.ready:
		case <-timer:
			return 0, transport.ErrTimeout
		}
	}
}

func (p *Port) SetTimeout(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = timeout
	return nil
}

// SetBaudRate is a no-op.
func (p *Port) SetBaudRate(baudRate int) error {
	return nil
}

func (p *Port) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.signal()
	return nil
}

func (p *Port) signal() {
	select {
	case p.ready <- struct{}{}:
	default:
	}
}

var _ transport.Port = (*Port)(nil)
