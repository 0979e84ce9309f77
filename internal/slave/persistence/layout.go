// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"encoding/binary"
	"fmt"

	"github.com/ffutop/modbus-textlink/modbus"
)

// Record layout shared by FileStorage and MmapStorage:
//   - Length: 4 bytes, big endian (Offset 0)
//   - Text:   252 bytes, zero padded (Offset 4)
const (
	sizeLength = 4
	sizeText   = modbus.MaxPayloadSize
	totalSize  = sizeLength + sizeText

	offsetLength = 0
	offsetText   = offsetLength + sizeLength
)

// encodeRecord writes text into data, which must hold totalSize bytes.
func encodeRecord(data []byte, text string) error {
	if len(text) > sizeText {
		return fmt.Errorf("text of %d bytes exceeds %d", len(text), sizeText)
	}
	binary.BigEndian.PutUint32(data[offsetLength:], uint32(len(text)))
	n := copy(data[offsetText:offsetText+sizeText], text)
	clear(data[offsetText+n : offsetText+sizeText])
	return nil
}
