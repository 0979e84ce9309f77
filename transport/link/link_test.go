// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package link

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/text/encoding"

	"github.com/ffutop/modbus-textlink/transport"
	"github.com/ffutop/modbus-textlink/transport/porttest"
)

const testTimeout = 20 * time.Millisecond

func TestLink_SendBuffer(t *testing.T) {
	port := porttest.New()
	l := New(port, []byte("\r\n"), testTimeout)

	// Nothing is sent for an empty buffer
	if err := l.Flush(); err != nil {
		t.Fatal(err)
	}
	if n := len(port.Writes()); n != 0 {
		t.Fatalf("%d writes for empty buffer", n)
	}

	l.AppendSend("AT")
	l.AppendSend("+GMR")
	if got := l.SendBuffer(); got != "AT+GMR" {
		t.Errorf("SendBuffer() = %q", got)
	}
	if err := l.Flush(); err != nil {
		t.Fatal(err)
	}
	if got := string(port.Writes()[0]); got != "AT+GMR\r\n" {
		t.Errorf("sent %q", got)
	}
	if got := l.SendBuffer(); got != "" {
		t.Errorf("buffer not cleared: %q", got)
	}
}

func TestLink_ReadUntil(t *testing.T) {
	tests := []struct {
		name       string
		terminator string
		chunks     []string
		want       string
		wantErr    error
	}{
		{"CRLF", "\r\n", []string{"OK", "\r", "\nrest"}, "OK", nil},
		{"LoneCR", "\r\n", []string{"a\rb\r\n"}, "a\rb", nil},
		{"LF", "\n", []string{"line\n"}, "line", nil},
		{"Custom", ";", []string{"x=1;y=2;"}, "x=1", nil},
		{"EmptyLine", "\n", []string{"\n"}, "", nil},
		{"Timeout", "\n", []string{"partial"}, "partial", transport.ErrTimeout},
		{"NoTerminator", "", []string{"data"}, "", ErrNoTerminator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := porttest.New()
			for _, c := range tt.chunks {
				port.Feed([]byte(c))
			}
			l := New(port, []byte(tt.terminator), testTimeout)

			got, err := l.ReadUntil()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ReadUntil() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ReadUntil() = %q, want %q", got, tt.want)
			}
			if err == nil && l.ReceiveBuffer() != tt.want {
				t.Errorf("ReceiveBuffer() = %q", l.ReceiveBuffer())
			}
		})
	}
}

func TestLink_Receive(t *testing.T) {
	port := porttest.New([]byte("hel"), []byte("lo world"))
	l := New(port, nil, testTimeout)

	got, err := l.Receive(5)
	if err != nil || got != "hello" {
		t.Fatalf("Receive(5) = %q, %v", got, err)
	}
	if l.ReceiveBuffer() != "hello" {
		t.Errorf("ReceiveBuffer() = %q", l.ReceiveBuffer())
	}

	// Short read on timeout
	got, err = l.Receive(64)
	if err != nil || got != " world" {
		t.Fatalf("Receive(64) = %q, %v", got, err)
	}

	if _, err := l.Receive(1); !errors.Is(err, transport.ErrTimeout) {
		t.Errorf("Receive() on silent port error = %v", err)
	}

	port.Feed([]byte{'o', 0xFF})
	if _, err := l.Receive(2); !errors.Is(err, encoding.ErrInvalidUTF8) {
		t.Errorf("Receive() of invalid UTF-8 error = %v", err)
	}
}

func TestLink_Hex(t *testing.T) {
	port := porttest.New([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	l := New(port, []byte("\r\n"), testTimeout)

	if err := l.SendHex("01 02 0a"); err != nil {
		t.Fatal(err)
	}
	if got := port.Writes()[0]; string(got) != "\x01\x02\x0a" {
		t.Errorf("sent % X", got)
	}
	if err := l.SendHex("zz"); err == nil {
		t.Error("expected error for invalid hex")
	}

	got, err := l.ReceiveHex(4)
	if err != nil || got != "deadbeef" {
		t.Errorf("ReceiveHex() = %q, %v", got, err)
	}
	if l.ReceiveBuffer() != "deadbeef" {
		t.Errorf("ReceiveBuffer() = %q after ReceiveHex", l.ReceiveBuffer())
	}
}

func TestLink_Transaction(t *testing.T) {
	port := porttest.New()
	port.OnWrite = func(p *porttest.Port, data []byte) {
		if string(data) == "STATUS\r" {
			p.Feed([]byte("READY"))
		}
	}
	l := New(port, []byte("\r"), time.Second)

	got, err := l.Transaction("STATUS", 5, testTimeout)
	if err != nil || got != "READY" {
		t.Fatalf("Transaction() = %q, %v", got, err)
	}

	start := time.Now()
	if _, err := l.Transaction("UNKNOWN", 5, testTimeout); !errors.Is(err, transport.ErrTimeout) {
		t.Errorf("Transaction() error = %v, want timeout", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Transaction() used the link timeout: %v", elapsed)
	}
}

func TestLink_Ping(t *testing.T) {
	port := porttest.New()
	port.OnWrite = func(p *porttest.Port, data []byte) {
		p.Feed([]byte("PONG"))
	}
	l := New(port, []byte("\r\n"), testTimeout)

	rtt, err := l.Ping()
	if err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if rtt < 0 || rtt > testTimeout {
		t.Errorf("Ping() = %v", rtt)
	}
	if got := string(port.Writes()[0]); got != "PING\r\n" {
		t.Errorf("sent %q", got)
	}

	// No reply at all
	silent := New(porttest.New(), []byte("\r\n"), testTimeout)
	if _, err := silent.Ping(); !errors.Is(err, transport.ErrTimeout) {
		t.Errorf("Ping() on silent port error = %v", err)
	}
}

func TestLink_Autobaud(t *testing.T) {
	port := porttest.New()
	port.OnWrite = func(p *porttest.Port, data []byte) {
		if p.BaudRate() == 9600 {
			p.Feed([]byte("PONG"))
		} else if p.BaudRate() < 9600 {
			p.Feed([]byte{0x00, 0xF8}) // garbage at a wrong rate
		}
	}
	l := New(port, []byte("\r\n"), testTimeout)

	rate, err := l.Autobaud()
	if err != nil {
		t.Fatalf("Autobaud() error = %v", err)
	}
	if rate != 9600 {
		t.Errorf("Autobaud() = %d, want 9600", rate)
	}
	if port.BaudRate() != 9600 {
		t.Errorf("port left at %d", port.BaudRate())
	}
	if n := len(port.Writes()); n != 6 {
		t.Errorf("%d pings, want 6", n)
	}
}

func TestLink_AutobaudDrainsStaleBytes(t *testing.T) {
	port := porttest.New()
	port.OnWrite = func(p *porttest.Port, data []byte) {
		switch p.BaudRate() {
		case 4800:
			// more garbage than one PONG read consumes
			p.Feed([]byte{0x00, 0xF8, 0x80, 0x00, 0xF8, 0x80, 0x00, 0xF8})
		case 9600:
			p.Feed([]byte("PONG"))
		}
	}
	l := New(port, []byte("\r\n"), testTimeout)

	rate, err := l.Autobaud()
	if err != nil {
		t.Fatalf("Autobaud() error = %v", err)
	}
	if rate != 9600 {
		t.Errorf("Autobaud() = %d, want 9600", rate)
	}
	if port.Pending() != 0 {
		t.Errorf("%d bytes left unread", port.Pending())
	}
}

func TestLink_AutobaudFailed(t *testing.T) {
	port := porttest.New()
	l := New(port, nil, 5*time.Millisecond)

	if _, err := l.Autobaud(); !errors.Is(err, ErrAutobaudFailed) {
		t.Errorf("Autobaud() error = %v, want ErrAutobaudFailed", err)
	}
	if n := len(port.Writes()); n != len(AutobaudRates) {
		t.Errorf("%d pings, want %d", n, len(AutobaudRates))
	}
}
