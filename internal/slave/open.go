// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package slave

import (
	"log/slog"

	"github.com/ffutop/modbus-textlink/internal/config"
	"github.com/ffutop/modbus-textlink/internal/slave/persistence"
	"github.com/ffutop/modbus-textlink/internal/slave/store"
)

// OpenStore creates the TextStore selected by cfg. The store always starts
// empty; file and mmap storage only mirror its text for inspection. If the
// mirror cannot be opened the slave runs without one.
func OpenStore(cfg config.PersistenceConfig) *store.TextStore {
	storage, err := persistence.New(cfg.Type, cfg.Path)
	if err != nil {
		slog.Error("Invalid persistence, using memory storage", "err", err)
		return store.New()
	}

	switch cfg.Type {
	case "file", "mmap":
		slog.Info("Initializing text store with mirror", "persistence", cfg.Type, "path", cfg.Path)
	default:
		slog.Info("Initializing text store without mirror")
	}

	s, err := store.Open(storage)
	if err != nil {
		slog.Error("Failed to open text mirror", "err", err)
		slog.Warn("Falling back to MemoryStorage")
		storage.Close()
		return store.New()
	}
	return s
}
