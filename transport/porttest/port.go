// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package porttest provides a scripted transport.Port for tests.
package porttest

import (
	"io"
	"sync"
	"time"

	"github.com/ffutop/modbus-textlink/transport"
)

const pollInterval = time.Millisecond

// Port is an in-memory transport.Port. Bytes queued with Feed are served
// by Read; writes are recorded and passed to OnWrite.
type Port struct {
	// OnWrite is called after every Write, outside the lock, so it can
	// queue a reply with Feed.
	OnWrite func(p *Port, data []byte)

	mu       sync.Mutex
	chunks   [][]byte
	writes   [][]byte
	timeout  time.Duration
	baudRate int
	closed   bool
}

// New returns a Port that will serve the given chunks in order.
func New(chunks ...[]byte) *Port {
	p := &Port{}
	for _, c := range chunks {
		p.Feed(c)
	}
	return p
}

// Feed queues a chunk for Read.
func (p *Port) Feed(chunk []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks = append(p.chunks, append([]byte(nil), chunk...))
}

// Trickle feeds data one byte at a time from a goroutine, sleeping gap
// between bytes like a slow line.
func (p *Port) Trickle(data []byte, gap time.Duration) {
	data = append([]byte(nil), data...)
	go func() {
		for i, b := range data {
			if i > 0 {
				time.Sleep(gap)
			}
			p.Feed([]byte{b})
		}
	}()
}

// Read returns bytes from the head chunk, or ErrTimeout once the
// configured timeout elapsed without data.
func (p *Port) Read(b []byte) (int, error) {
	start := time.Now()
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return 0, io.ErrClosedPipe
		}
		if len(p.chunks) > 0 {
			n := copy(b, p.chunks[0])
			if n == len(p.chunks[0]) {
				p.chunks = p.chunks[1:]
			} else {
				p.chunks[0] = p.chunks[0][n:]
			}
			p.mu.Unlock()
			return n, nil
		}
		timeout := p.timeout
		p.mu.Unlock()

		if timeout > 0 && time.Since(start) >= timeout {
			return 0, transport.ErrTimeout
		}
		time.Sleep(pollInterval)
	}
}

func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	data := append([]byte(nil), b...)
	p.writes = append(p.writes, data)
	hook := p.OnWrite
	p.mu.Unlock()

	if hook != nil {
		hook(p, data)
	}
	return len(b), nil
}

func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *Port) SetTimeout(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = timeout
	return nil
}

func (p *Port) SetBaudRate(baudRate int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.baudRate = baudRate
	return nil
}

// Writes returns a copy of every chunk written so far.
func (p *Port) Writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.writes))
	copy(out, p.writes)
	return out
}

// BaudRate returns the last baud rate set.
func (p *Port) BaudRate() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.baudRate
}

// Closed reports whether Close was called.
func (p *Port) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Pending returns the number of queued bytes not read yet.
func (p *Port) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.chunks {
		n += len(c)
	}
	return n
}
