// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package lrc implements the Longitudinal Redundancy Check used by ASCII frames.
package lrc

// LRC accumulates bytes and yields their two's complement sum.
type LRC struct {
	sum uint8
}

func (lrc *LRC) Reset() *LRC {
	lrc.sum = 0
	return lrc
}

func (lrc *LRC) PushByte(b byte) *LRC {
	lrc.sum += b
	return lrc
}

func (lrc *LRC) PushBytes(data []byte) *LRC {
	for _, b := range data {
		lrc.sum += b
	}
	return lrc
}

// Value returns the two's complement of the sum modulo 256.
func (lrc *LRC) Value() byte {
	return uint8(-int8(lrc.sum))
}

// Checksum returns the LRC over address, function code and payload.
func Checksum(address, functionCode byte, payload []byte) byte {
	var lrc LRC
	return lrc.PushByte(address).PushByte(functionCode).PushBytes(payload).Value()
}
