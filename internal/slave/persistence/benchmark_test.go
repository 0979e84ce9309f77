package persistence

import (
	"path/filepath"
	"testing"
)

// BenchmarkMemoryStorage_Save benchmarks Save for MemoryStorage (baseline).
func BenchmarkMemoryStorage_Save(b *testing.B) {
	ms := NewMemoryStorage()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ms.Save("hello")
	}
}

func BenchmarkFileStorage_Save(b *testing.B) {
	tmpDir := b.TempDir()
	path := filepath.Join(tmpDir, "bench_file.bin")
	ms := NewFileStorage(path)
	if err := ms.Open(); err != nil {
		b.Fatalf("Failed to open file storage: %v", err)
	}
	defer ms.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := ms.Save("hello"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkMmapStorage_Save benchmarks Save for MmapStorage (msync).
func BenchmarkMmapStorage_Save(b *testing.B) {
	tmpDir := b.TempDir()
	path := filepath.Join(tmpDir, "bench_mmap.bin")
	ms := NewMmapStorage(path)
	if err := ms.Open(); err != nil {
		b.Fatalf("Failed to open mmap storage: %v", err)
	}
	defer ms.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := ms.Save("hello"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkMmapStorage_Open benchmarks Open for MmapStorage.
// Note: This involves file open, fstat, mmap and msync system calls.
func BenchmarkMmapStorage_Open(b *testing.B) {
	tmpDir := b.TempDir()
	path := filepath.Join(tmpDir, "bench_mmap_open.bin")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ms := NewMmapStorage(path)
		if err := ms.Open(); err != nil {
			b.Fatalf("Open failed: %v", err)
		}
		ms.Close() // Cleanup to allow next Open
	}
}
