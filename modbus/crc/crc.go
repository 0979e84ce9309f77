// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package crc implements the Modbus CRC16 used by RTU frames.
package crc

import (
	"github.com/sigurn/crc16"
)

var table = crc16.MakeTable(crc16.CRC16_MODBUS)

// CRC is an incremental Modbus CRC16 (polynomial 0xA001 reflected, init 0xFFFF).
// The zero value must be Reset before use.
type CRC struct {
	value uint16
}

// Reset restores the initial register value.
func (crc *CRC) Reset() *CRC {
	crc.value = crc16.Init(table)
	return crc
}

// PushBytes feeds bs into the register.
func (crc *CRC) PushBytes(bs []byte) *CRC {
	crc.value = crc16.Update(crc.value, bs, table)
	return crc
}

// Value returns the checksum of all pushed bytes.
func (crc *CRC) Value() uint16 {
	return crc16.Complete(crc.value, table)
}

// Checksum returns the CRC16 of data.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, table)
}
