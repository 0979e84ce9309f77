// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package slave

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ffutop/modbus-textlink/internal/config"
)

func TestOpenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "text.bin")

	s := OpenStore(config.PersistenceConfig{Type: "mmap", Path: path})
	if err := s.Set("mirrored"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("mirrored")) {
		t.Errorf("mirror file does not hold the last text")
	}

	// A restarted slave starts empty whatever the mirror held
	s = OpenStore(config.PersistenceConfig{Type: "mmap", Path: path})
	defer s.Close()
	if got := s.Get(); got != "" {
		t.Errorf("Get() = %q, want empty", got)
	}
}

func TestOpenStore_Fallback(t *testing.T) {
	dir := t.TempDir()
	// A directory cannot be opened as a storage file
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	s := OpenStore(config.PersistenceConfig{Type: "file", Path: filepath.Join(dir, "sub")})
	if err := s.Set("memory only"); err != nil {
		t.Errorf("Set() on fallback store error = %v", err)
	}

	s = OpenStore(config.PersistenceConfig{Type: "sql"})
	if got := s.Get(); got != "" {
		t.Errorf("Get() = %q", got)
	}
}
