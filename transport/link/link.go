// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package link provides raw terminal utilities over a transport.Port:
// buffered text sends, terminator-delimited reads, hex I/O, ping and
// baud rate detection.
package link

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/ffutop/modbus-textlink/transport"
)

// AutobaudRates are tried in order by Autobaud.
var AutobaudRates = []int{300, 600, 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}

const (
	pingRequest  = "PING"
	pongResponse = "PONG"

	// Autobaud drains stale bytes until the line is quiet for drainQuiet,
	// giving up after drainLimit.
	drainQuiet = 10 * time.Millisecond
	drainLimit = 200 * time.Millisecond
)

var (
	// ErrAutobaudFailed is returned when no candidate rate got a PONG.
	ErrAutobaudFailed = errors.New("link: autobaud failed")

	// ErrNoTerminator is returned by ReadUntil on a link without terminator.
	ErrNoTerminator = errors.New("link: no terminator configured")
)

// Link is not safe for concurrent use.
type Link struct {
	port       transport.Port
	terminator []byte
	timeout    time.Duration

	sendBuf strings.Builder
	recvBuf string
}

// New creates a Link over port. timeout applies to every read.
func New(port transport.Port, terminator []byte, timeout time.Duration) *Link {
	return &Link{
		port:       port,
		terminator: append([]byte(nil), terminator...),
		timeout:    timeout,
	}
}

// AppendSend appends text to the send buffer.
func (l *Link) AppendSend(text string) {
	l.sendBuf.WriteString(text)
}

// SendBuffer returns the pending send buffer.
func (l *Link) SendBuffer() string {
	return l.sendBuf.String()
}

// ReceiveBuffer returns the text of the last Receive or ReadUntil.
func (l *Link) ReceiveBuffer() string {
	return l.recvBuf
}

// Flush writes the send buffer followed by the terminator and clears the
// buffer. An empty buffer sends nothing.
func (l *Link) Flush() error {
	if l.sendBuf.Len() == 0 {
		return nil
	}
	data := append([]byte(l.sendBuf.String()), l.terminator...)
	if _, err := l.port.Write(data); err != nil {
		return fmt.Errorf("failed to send buffer: %w", err)
	}
	slog.Debug("link sent", "data", fmt.Sprintf("%q", data))
	l.sendBuf.Reset()
	return nil
}

// Receive reads up to n bytes as text and records them as the receive
// buffer. Fewer bytes are returned if the timeout elapses first.
func (l *Link) Receive(n int) (string, error) {
	data, err := l.read(n)
	if err != nil {
		return "", err
	}
	text, err := decodeText(data)
	if err != nil {
		return "", err
	}
	l.recvBuf = text
	return text, nil
}

// ReadUntil reads one byte at a time until the terminator and returns the
// text before it. It is bounded only by the port timeout: if a read times
// out the text received so far is returned with transport.ErrTimeout.
func (l *Link) ReadUntil() (string, error) {
	if len(l.terminator) == 0 {
		return "", ErrNoTerminator
	}
	if err := l.port.SetTimeout(l.timeout); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	b := make([]byte, 1)
	for {
		n, err := l.port.Read(b)
		if n == 1 {
			buf.WriteByte(b[0])
			if bytes.HasSuffix(buf.Bytes(), l.terminator) {
				break
			}
			continue
		}
		if err == nil {
			continue
		}
		partial := buf.String()
		if transport.IsTimeout(err) {
			return partial, fmt.Errorf("link: no terminator after %d bytes: %w", len(partial), transport.ErrTimeout)
		}
		return partial, err
	}

	text, err := decodeText(buf.Bytes()[:buf.Len()-len(l.terminator)])
	if err != nil {
		return "", err
	}
	l.recvBuf = text
	return text, nil
}

// SendHex writes the bytes spelled by a hex string. Spaces are ignored.
func (l *Link) SendHex(s string) error {
	data, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		return fmt.Errorf("invalid hex data: %w", err)
	}
	if _, err := l.port.Write(data); err != nil {
		return fmt.Errorf("failed to send data: %w", err)
	}
	slog.Debug("link sent", "data", hex.EncodeToString(data))
	return nil
}

// ReceiveHex reads up to n bytes and returns them as lowercase hex.
func (l *Link) ReceiveHex(n int) (string, error) {
	data, err := l.read(n)
	if err != nil {
		return "", err
	}
	l.recvBuf = hex.EncodeToString(data)
	return l.recvBuf, nil
}

// Transaction writes text followed by the terminator and reads up to
// responseSize bytes within timeout.
func (l *Link) Transaction(text string, responseSize int, timeout time.Duration) (string, error) {
	saved := l.timeout
	l.timeout = timeout
	defer func() { l.timeout = saved }()

	if err := l.write(text); err != nil {
		return "", err
	}
	data, err := l.read(responseSize)
	if err != nil {
		return "", err
	}
	return decodeText(data)
}

// Ping sends PING and returns the time until a 4-byte reply (or the
// timeout). The reply content is not checked.
func (l *Link) Ping() (time.Duration, error) {
	if err := l.write(pingRequest); err != nil {
		return 0, err
	}
	start := time.Now()
	if _, err := l.read(len(pongResponse)); err != nil {
		return 0, fmt.Errorf("ping failed: %w", err)
	}
	return time.Since(start), nil
}

// Autobaud tries AutobaudRates in order and keeps the first rate at which
// the peer answers PONG. On failure the port is left at the last rate.
func (l *Link) Autobaud() (int, error) {
	for _, rate := range AutobaudRates {
		if err := l.port.SetBaudRate(rate); err != nil {
			return 0, fmt.Errorf("failed to set baud rate %d: %w", rate, err)
		}
		if err := l.drain(); err != nil {
			return 0, err
		}
		if err := l.write(pingRequest); err != nil {
			return 0, err
		}
		data, err := l.read(len(pongResponse))
		if err != nil && !transport.IsTimeout(err) {
			return 0, err
		}
		if string(data) == pongResponse {
			slog.Info("Autobaud detected rate", "baud_rate", rate)
			return rate, nil
		}
		slog.Debug("No PONG", "baud_rate", rate, "response", hex.EncodeToString(data))
	}
	return 0, ErrAutobaudFailed
}

// drain discards bytes left over from an earlier exchange.
func (l *Link) drain() error {
	quiet := l.timeout
	if quiet <= 0 || quiet > drainQuiet {
		quiet = drainQuiet
	}
	if err := l.port.SetTimeout(quiet); err != nil {
		return err
	}

	buf := make([]byte, 64)
	deadline := time.Now().Add(drainLimit)
	for time.Now().Before(deadline) {
		n, err := l.port.Read(buf)
		if err != nil {
			if transport.IsTimeout(err) {
				return nil
			}
			return fmt.Errorf("failed to drain: %w", err)
		}
		if n == 0 {
			return nil
		}
		slog.Debug("Discarded stale bytes", "data", hex.EncodeToString(buf[:n]))
	}
	return nil
}

func (l *Link) write(text string) error {
	data := append([]byte(text), l.terminator...)
	if _, err := l.port.Write(data); err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}
	return nil
}

// read reads until n bytes arrived or a read times out. It returns
// transport.ErrTimeout only when nothing arrived at all.
func (l *Link) read(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid read size %d", n)
	}
	if err := l.port.SetTimeout(l.timeout); err != nil {
		return nil, err
	}

	data := make([]byte, n)
	got := 0
	for got < n {
		m, err := l.port.Read(data[got:])
		got += m
		if err != nil {
			if transport.IsTimeout(err) && got > 0 {
				break
			}
			return data[:got], err
		}
	}
	return data[:got], nil
}

func decodeText(data []byte) (string, error) {
	text, _, err := transform.Bytes(encoding.UTF8Validator, data)
	if err != nil {
		return "", fmt.Errorf("received data is not text: %w", err)
	}
	return string(text), nil
}
