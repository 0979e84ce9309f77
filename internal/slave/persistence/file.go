// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"fmt"
	"os"
)

// FileStorage mirrors the text in a small fixed-size file, rewritten and
// synced on every Save.
type FileStorage struct {
	path string
	file *os.File
	data []byte
}

// NewFileStorage creates a new FileStorage.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{
		path: path,
	}
}

// Open opens (creating if necessary) the file and resets it to the empty
// text.
func (fs *FileStorage) Open() error {
	f, err := os.OpenFile(fs.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}

	if err := f.Truncate(int64(totalSize)); err != nil {
		f.Close()
		return fmt.Errorf("failed to resize file: %w", err)
	}

	fs.file = f
	fs.data = make([]byte, totalSize)
	if err := fs.Save(""); err != nil {
		fs.Close()
		return err
	}
	return nil
}

// Save writes the text and syncs the file to disk.
func (fs *FileStorage) Save(text string) error {
	if fs.file == nil {
		return fmt.Errorf("file storage is not open")
	}
	if err := encodeRecord(fs.data, text); err != nil {
		return err
	}
	if _, err := fs.file.WriteAt(fs.data, 0); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := fs.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file to disk: %w", err)
	}
	return nil
}

// Close the file.
func (fs *FileStorage) Close() error {
	if fs.file == nil {
		return nil
	}
	err := fs.file.Close()
	fs.file = nil
	return err
}
