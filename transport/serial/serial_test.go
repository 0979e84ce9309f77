// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package serial

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/grid-x/serial"

	"github.com/ffutop/modbus-textlink/internal/config"
	"github.com/ffutop/modbus-textlink/transport"
)

// mockPort mimics the driver: each Read returns the next scripted chunk or
// serial.ErrTimeout after a poll interval.
type mockPort struct {
	chunks [][]byte
	writer bytes.Buffer
	reads  int
	closed bool
}

func (m *mockPort) Read(b []byte) (int, error) {
	m.reads++
	if len(m.chunks) == 0 {
		time.Sleep(time.Millisecond)
		return 0, serial.ErrTimeout
	}
	chunk := m.chunks[0]
	m.chunks = m.chunks[1:]
	if chunk == nil {
		return 0, serial.ErrTimeout
	}
	return copy(b, chunk), nil
}

func (m *mockPort) Write(b []byte) (int, error) { return m.writer.Write(b) }

func (m *mockPort) Close() error {
	m.closed = true
	return nil
}

func TestNewPort(t *testing.T) {
	p := NewPort(config.SerialConfig{
		Device:   "/dev/ttyUSB0",
		BaudRate: 9600,
		DataBits: 8,
		Parity:   "N",
		StopBits: 1,
		Timeout:  time.Second,
		RS485:    true,
	})

	if p.Config.Address != "/dev/ttyUSB0" || p.Config.BaudRate != 9600 {
		t.Errorf("unexpected config %+v", p.Config)
	}
	if p.Config.Timeout != pollInterval {
		t.Errorf("driver timeout = %v, want %v", p.Config.Timeout, pollInterval)
	}
	if !p.Config.RS485.Enabled {
		t.Error("RS485 not enabled")
	}
	if p.timeout != time.Second {
		t.Errorf("read timeout = %v, want 1s", p.timeout)
	}
}

func TestPort_ReadSkipsDriverTimeouts(t *testing.T) {
	mock := &mockPort{chunks: [][]byte{nil, nil, []byte("PONG")}}
	p := NewPort(config.SerialConfig{})
	p.port = mock
	p.SetTimeout(time.Second)

	buf := make([]byte, 4)
	n, err := p.Read(buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(buf[:n]) != "PONG" {
		t.Errorf("Read() = %q", buf[:n])
	}
	if mock.reads != 3 {
		t.Errorf("driver reads = %d, want 3", mock.reads)
	}
}

func TestPort_ReadTimeout(t *testing.T) {
	p := NewPort(config.SerialConfig{})
	p.port = &mockPort{}
	p.SetTimeout(10 * time.Millisecond)

	start := time.Now()
	_, err := p.Read(make([]byte, 1))
	if !errors.Is(err, transport.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("Read returned after %v, before the timeout", elapsed)
	}
}

func TestPort_WriteAndClose(t *testing.T) {
	mock := &mockPort{}
	p := NewPort(config.SerialConfig{})
	p.port = mock

	if _, err := p.Write([]byte(":0502F9\r\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if mock.writer.String() != ":0502F9\r\n" {
		t.Errorf("written %q", mock.writer.String())
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !mock.closed || p.port != nil {
		t.Error("port not released on Close")
	}
}

func TestPort_SetBaudRateWhileClosed(t *testing.T) {
	p := NewPort(config.SerialConfig{BaudRate: 9600})
	if err := p.SetBaudRate(19200); err != nil {
		t.Fatalf("SetBaudRate() error = %v", err)
	}
	if p.Config.BaudRate != 19200 {
		t.Errorf("BaudRate = %d, want 19200", p.Config.BaudRate)
	}
}

func TestPort_CloseIdle(t *testing.T) {
	mock := &mockPort{}
	p := NewPort(config.SerialConfig{})
	p.port = mock
	p.IdleTimeout = 10 * time.Millisecond

	p.Write([]byte{0x00})
	time.Sleep(50 * time.Millisecond)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.port != nil || !mock.closed {
		t.Error("idle port was not closed")
	}
}
