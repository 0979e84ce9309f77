// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"fmt"
)

// Storage mirrors the text held by a slave so it can be inspected after a
// crash. The mirror is never read back: a slave always starts empty.
type Storage interface {
	// Open prepares the mirror and resets it to the empty text.
	Open() error

	// Save replaces the mirrored text. It returns once the text is durable.
	Save(text string) error

	// Close releases the underlying resources.
	Close() error
}

// New returns the Storage selected by kind ("memory", "file" or "mmap").
func New(kind, path string) (Storage, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStorage(), nil
	case "file":
		return NewFileStorage(path), nil
	case "mmap":
		return NewMmapStorage(path), nil
	default:
		return nil, fmt.Errorf("unknown persistence type '%s'", kind)
	}
}
