// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"time"

	"github.com/ffutop/modbus-textlink/modbus"
	"github.com/ffutop/modbus-textlink/transport"
)

// ReadFrame reads one RTU ADU from the port.
//
// RTU frames carry no length field for text payloads, so the end of a frame
// is the first gap longer than interChar after data started to arrive.
// It returns modbus.ErrTimeout if nothing arrives within timeout.
func ReadFrame(port transport.Port, timeout, interChar time.Duration) ([]byte, error) {
	if err := port.SetTimeout(timeout); err != nil {
		return nil, err
	}

	data := make([]byte, MaxSize)
	n, err := port.Read(data)
	if n == 0 {
		if err == nil || transport.IsTimeout(err) {
			return nil, modbus.ErrTimeout
		}
		return nil, err
	}

	if interChar <= 0 {
		interChar = FrameDelay(0)
	}
	if err := port.SetTimeout(interChar); err != nil {
		return nil, err
	}
	for n < MaxSize {
		m, err := port.Read(data[n:])
		n += m
		if err != nil {
			if transport.IsTimeout(err) {
				break
			}
			return nil, err
		}
		if m == 0 {
			break
		}
	}
	return data[:n], nil
}

// FrameDelay returns the 3.5 character silence that separates RTU frames
// at the given baud rate.
func FrameDelay(baudRate int) time.Duration {
	if baudRate <= 0 || baudRate > 19200 {
		return 1750 * time.Microsecond
	}
	return time.Duration(35000000/baudRate) * time.Microsecond
}
