// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package slave

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ffutop/modbus-textlink/modbus"
	"github.com/ffutop/modbus-textlink/modbus/framer"
	"github.com/ffutop/modbus-textlink/transport"
)

// DefaultReadTimeout bounds a single frame read, and with it the time Stop
// waits for the listen loop.
const DefaultReadTimeout = 500 * time.Millisecond

// Server runs the listen loop of a slave on its own goroutine.
// It owns the port and closes it on Stop.
type Server struct {
	port        transport.Port
	dispatcher  *Dispatcher
	readTimeout time.Duration
	interChar   time.Duration

	// BaudRate is the line speed, zero if unknown. With a zero inter-char
	// timeout an RTU slave derives the frame silence from it. Set it
	// before Start.
	BaudRate int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewServer creates a Server reading requests from port.
func NewServer(port transport.Port, d *Dispatcher, readTimeout, interChar time.Duration) *Server {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	return &Server{
		port:        port,
		dispatcher:  d,
		readTimeout: readTimeout,
		interChar:   interChar,
		done:        make(chan struct{}),
	}
}

// Start launches the listen loop and returns immediately.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return errors.New("slave: server already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	slog.Info("Slave listening", "address", s.dispatcher.Address(), "encoding", s.dispatcher.encoding)

	go func() {
		defer close(s.done)
		s.scanLoop(ctx)
	}()
	return nil
}

// Stop ends the listen loop, waits for it and closes the port.
// The loop notices the request within one read timeout.
func (s *Server) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	slog.Info("Slave stopped", "address", s.dispatcher.Address())
	return s.port.Close()
}

// Done is closed once the listen loop exited. It stays open for a server
// that was never started.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

func (s *Server) scanLoop(ctx context.Context) {
	interChar := framer.InterCharTimeout(s.dispatcher.encoding, s.BaudRate, s.interChar)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		raw, err := framer.ReadFrame(s.port, s.dispatcher.encoding, s.readTimeout, interChar)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, modbus.ErrTimeout) {
				continue
			}
			var framingErr *modbus.FramingError
			if errors.As(err, &framingErr) {
				slog.Debug("Discarding incomplete frame", "err", err)
				continue
			}
			// The port failed; back off for one read timeout before retrying.
			slog.Warn("Slave read failed", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.readTimeout):
			}
			continue
		}

		resp := s.dispatcher.Handle(raw)
		if resp == nil {
			continue
		}
		if _, err := s.port.Write(resp); err != nil {
			slog.Warn("Failed to write response", "err", err)
		}
	}
}
