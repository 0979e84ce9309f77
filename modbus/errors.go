// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when no valid response arrived within the
	// attempt and retry budget.
	ErrTimeout = errors.New("modbus: request timed out")

	// ErrAddressMismatch reports a frame that is not addressed to this unit.
	ErrAddressMismatch = errors.New("modbus: address mismatch")
)

// FramingError reports a malformed or incomplete byte sequence.
type FramingError struct {
	Reason string
}

func (e *FramingError) Error() string {
	return "modbus: framing error: " + e.Reason
}

// NewFramingError creates a FramingError with a formatted reason.
func NewFramingError(format string, v ...interface{}) *FramingError {
	return &FramingError{Reason: fmt.Sprintf(format, v...)}
}

// ChecksumError reports a frame whose checksum does not match its content.
type ChecksumError struct {
	Received uint16
	Expected uint16
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("modbus: checksum '0x%04X' does not match expected '0x%04X'", e.Received, e.Expected)
}

// UnsupportedFunctionError reports a function code outside write-text and read-text.
type UnsupportedFunctionError struct {
	FunctionCode byte
}

func (e *UnsupportedFunctionError) Error() string {
	return fmt.Sprintf("modbus: unsupported function code 0x%02X", e.FunctionCode)
}

// ExceptionError is returned to a master when the slave answered with an
// exception response.
type ExceptionError struct {
	FunctionCode  byte
	ExceptionCode byte
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("modbus: exception '%v' (function 0x%02X)", e.ExceptionCode, e.FunctionCode)
}
