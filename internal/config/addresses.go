// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ffutop/modbus-textlink/modbus"
)

// ParseAddresses parses a string of slave addresses (e.g. "1,2,5-10") into a slice of bytes.
// Every address must be a valid slave address (1-247).
func ParseAddresses(input string) ([]byte, error) {
	var ids []byte
	parts := strings.Split(input, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "-") {
			// Range
			ranges := strings.Split(part, "-")
			if len(ranges) != 2 {
				return nil, fmt.Errorf("invalid range: %s", part)
			}
			start, err := strconv.Atoi(strings.TrimSpace(ranges[0]))
			if err != nil {
				return nil, fmt.Errorf("invalid start of range: %w", err)
			}
			end, err := strconv.Atoi(strings.TrimSpace(ranges[1]))
			if err != nil {
				return nil, fmt.Errorf("invalid end of range: %w", err)
			}
			if start > end {
				return nil, fmt.Errorf("start of range %d is greater than end %d", start, end)
			}
			for i := start; i <= end; i++ {
				if err := checkAddress(i); err != nil {
					return nil, err
				}
				ids = append(ids, byte(i))
			}
		} else {
			// Single
			id, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid address: %w", err)
			}
			if err := checkAddress(id); err != nil {
				return nil, err
			}
			ids = append(ids, byte(id))
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no address in '%s'", input)
	}
	return ids, nil
}

func checkAddress(id int) error {
	if id < modbus.MinSlaveAddress || id > modbus.MaxSlaveAddress {
		return fmt.Errorf("address out of range: %d", id)
	}
	return nil
}
