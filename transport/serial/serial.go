// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package serial implements transport.Port on a physical serial line.
package serial

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/grid-x/serial"
	bugst "go.bug.st/serial"

	"github.com/ffutop/modbus-textlink/internal/config"
	"github.com/ffutop/modbus-textlink/transport"
)

const (
	// pollInterval is the read timeout handed to the driver. Longer per-call
	// timeouts are built from repeated polls so SetTimeout never reopens
	// the device.
	pollInterval = 20 * time.Millisecond

	// DefaultIdleTimeout closes an unused master port.
	DefaultIdleTimeout = 60 * time.Second
)

// Port is a serial port with lazy open and optional idle close.
type Port struct {
	// Serial port configuration.
	serial.Config

	IdleTimeout time.Duration

	mu sync.Mutex
	// port is platform-dependent data structure for serial port.
	port         io.ReadWriteCloser
	timeout      time.Duration
	lastActivity time.Time
	closeTimer   *time.Timer
}

// NewPort maps the serial configuration onto a Port. The device is opened
// on first use or by Connect.
func NewPort(cfg config.SerialConfig) *Port {
	p := &Port{timeout: cfg.Timeout}
	p.Config.Address = cfg.Device
	p.Config.BaudRate = cfg.BaudRate
	p.Config.DataBits = cfg.DataBits
	p.Config.StopBits = cfg.StopBits
	p.Config.Parity = cfg.Parity
	p.Config.Timeout = pollInterval
	if cfg.RS485 {
		p.Config.RS485.Enabled = true
		p.Config.RS485.DelayRtsBeforeSend = cfg.DelayRtsBeforeSend
		p.Config.RS485.DelayRtsAfterSend = cfg.DelayRtsAfterSend
		p.Config.RS485.RtsHighDuringSend = cfg.RtsHighDuringSend
		p.Config.RS485.RtsHighAfterSend = cfg.RtsHighAfterSend
		p.Config.RS485.RxDuringTx = cfg.RxDuringTx
	}
	return p
}

// ListPorts returns the serial ports present on this machine.
func ListPorts() ([]string, error) {
	ports, err := bugst.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

func (p *Port) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.connect(ctx)
}

// connect connects to the serial port if it is not connected. Caller must hold the mutex.
func (p *Port) connect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if p.port == nil {
		port, err := serial.Open(&p.Config)
		if err != nil {
			return fmt.Errorf("could not open %s: %w", p.Config.Address, err)
		}
		slog.Debug("serial port opened", "device", p.Config.Address, "baudRate", p.Config.BaudRate)
		p.port = port
	}
	return nil
}

// Read blocks until data arrives or the timeout set by SetTimeout elapses.
func (p *Port) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(context.Background()); err != nil {
		return 0, err
	}
	p.touch()

	start := time.Now()
	for {
		n, err := p.port.Read(b)
		if n > 0 {
			slog.Debug("serial recv", "device", p.Config.Address, "data", hex.EncodeToString(b[:n]))
			return n, nil
		}
		if err != nil && !errors.Is(err, serial.ErrTimeout) {
			return 0, err
		}
		if p.timeout > 0 && time.Since(start) >= p.timeout {
			return 0, transport.ErrTimeout
		}
	}
}

func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(context.Background()); err != nil {
		return 0, err
	}
	p.touch()

	slog.Debug("serial send", "device", p.Config.Address, "data", hex.EncodeToString(b))
	return p.port.Write(b)
}

func (p *Port) SetTimeout(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.timeout = timeout
	return nil
}

// SetBaudRate reopens the device at the new speed if it is open.
func (p *Port) SetBaudRate(baudRate int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Config.BaudRate == baudRate && p.port != nil {
		return nil
	}
	p.Config.BaudRate = baudRate
	if p.port == nil {
		return nil
	}
	if err := p.close(); err != nil {
		slog.Warn("failed to close serial port before reconfiguring", "device", p.Config.Address, "err", err)
	}
	return p.connect(context.Background())
}

func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closeTimer != nil {
		p.closeTimer.Stop()
	}
	return p.close()
}

// close closes the serial port if it is connected. Caller must hold the mutex.
func (p *Port) close() (err error) {
	if p.port != nil {
		err = p.port.Close()
		p.port = nil
	}
	return
}

// touch records activity and rearms the idle timer. Caller must hold the mutex.
func (p *Port) touch() {
	p.lastActivity = time.Now()
	p.startCloseTimer()
}

func (p *Port) startCloseTimer() {
	if p.IdleTimeout <= 0 {
		return
	}
	if p.closeTimer == nil {
		p.closeTimer = time.AfterFunc(p.IdleTimeout, p.closeIdle)
	} else {
		p.closeTimer.Reset(p.IdleTimeout)
	}
}

// closeIdle closes the connection if last activity is passed behind IdleTimeout.
func (p *Port) closeIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.IdleTimeout <= 0 {
		return
	}

	if idle := time.Since(p.lastActivity); idle >= p.IdleTimeout {
		slog.Debug("closing serial port due to idle timeout", "device", p.Config.Address, "idle", idle)
		p.close()
	}
}

var _ transport.Port = (*Port)(nil)
