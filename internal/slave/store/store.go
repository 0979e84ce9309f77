// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package store

import (
	"fmt"
	"sync"

	"github.com/ffutop/modbus-textlink/internal/slave/persistence"
)

// TextStore holds the single text value of a slave.
// Reads and writes are serialized; a write is visible to every later read.
type TextStore struct {
	mu      sync.RWMutex
	text    string
	storage persistence.Storage
}

// New creates an empty, non-persistent TextStore.
func New() *TextStore {
	return &TextStore{storage: persistence.NewMemoryStorage()}
}

// Open creates an empty TextStore mirrored to storage. Whatever the mirror
// held before is discarded.
func Open(storage persistence.Storage) (*TextStore, error) {
	if err := storage.Open(); err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return &TextStore{storage: storage}, nil
}

// Get returns the current text.
func (s *TextStore) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// Set replaces the current text. The in-memory value only changes once the
// mirror accepted it.
func (s *TextStore) Set(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Save(text); err != nil {
		return fmt.Errorf("failed to persist text: %w", err)
	}
	s.text = text
	return nil
}

// Close releases the storage.
func (s *TextStore) Close() error {
	return s.storage.Close()
}
