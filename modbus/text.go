// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// DecodeText interprets a write-text or read-text payload as UTF-8.
func DecodeText(payload []byte) (string, error) {
	text, _, err := transform.Bytes(encoding.UTF8Validator, payload)
	if err != nil {
		return "", fmt.Errorf("modbus: payload is not valid UTF-8: %w", err)
	}
	return string(text), nil
}
