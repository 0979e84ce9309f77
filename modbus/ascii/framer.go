// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package ascii

import (
	"time"

	"github.com/ffutop/modbus-textlink/modbus"
	"github.com/ffutop/modbus-textlink/transport"
)

const (
	stateStart = 1 << iota
	stateBody
	stateEnd
)

// ReadFrame reads one ASCII ADU from the port, start character and
// terminator included. Bytes preceding the start character are discarded.
//
// It returns modbus.ErrTimeout if no start character arrives within
// timeout, and a FramingError if the frame stalls for longer than interChar
// or grows beyond MaxSize before its terminator.
func ReadFrame(port transport.Port, timeout, interChar time.Duration) ([]byte, error) {
	if interChar <= 0 {
		interChar = timeout
	}
	if err := port.SetTimeout(timeout); err != nil {
		return nil, err
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	buf := make([]byte, 1)
	data := make([]byte, 0, MaxSize)
	state := stateStart

	for {
		n, err := port.Read(buf)
		if err != nil && !transport.IsTimeout(err) {
			return nil, err
		}
		if n == 0 {
			if state == stateStart {
				if deadline.IsZero() || time.Now().Before(deadline) {
					continue
				}
				return nil, modbus.ErrTimeout
			}
			return nil, modbus.NewFramingError("incomplete ascii frame '%q'", data)
		}

		switch state {
		case stateStart:
			if buf[0] != Start {
				if !deadline.IsZero() && time.Now().After(deadline) {
					return nil, modbus.ErrTimeout
				}
				continue
			}
			data = append(data, buf[0])
			state = stateBody
			if err := port.SetTimeout(interChar); err != nil {
				return nil, err
			}
		case stateBody:
			if buf[0] == Start {
				// A new frame started before the previous one ended.
				data = append(data[:0], buf[0])
				continue
			}
			data = append(data, buf[0])
			if buf[0] == End[0] {
				state = stateEnd
			}
		case stateEnd:
			data = append(data, buf[0])
			switch buf[0] {
			case End[1]:
				return data, nil
			case End[0]:
			default:
				state = stateBody
			}
		}

		if len(data) >= MaxSize {
			return nil, modbus.NewFramingError("ascii frame exceeds maximum '%v'", MaxSize)
		}
	}
}
