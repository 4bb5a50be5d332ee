package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLocalDiskBackendWriteBytesCreatesParentDirs(t *testing.T) {
	root := t.TempDir()
	b := NewLocalDiskBackend(root)

	if err := b.WriteBytes("0/0_0_0.b3dm", []byte("payload")); err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(root, "0", "0_0_0.b3dm"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("got %q, want %q", got, "payload")
	}
}

func TestLocalDiskBackendEnsureDirectory(t *testing.T) {
	root := t.TempDir()
	b := NewLocalDiskBackend(root)

	if err := b.EnsureDirectory("Data/tile_0"); err != nil {
		t.Fatalf("EnsureDirectory: %v", err)
	}
	info, err := os.Stat(filepath.Join(root, "Data", "tile_0"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("expected a directory")
	}
}
