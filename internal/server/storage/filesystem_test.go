package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

func TestFileSystemStore_Save(t *testing.T) {
	t.Run("saves file to disk", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileSystemStore(dir)

		data := bytes.NewReader([]byte("test content"))
		n, err := store.Save("abc123.mp4", data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if n != 12 {
			t.Errorf("expected 12 bytes written, got %d", n)
		}

		// Verify file exists on disk
		content, err := os.ReadFile(filepath.Join(dir, "abc123.mp4"))
		if err != nil {
			t.Fatalf("failed to read saved file: %v", err)
		}
		if string(content) != "test content" {
			t.Errorf("expected 'test content', got %q", content)
		}
	})

	t.Run("saves large content", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileSystemStore(dir)

		largeContent := strings.Repeat("x", 1024*1024) // 1MB
		data := bytes.NewReader([]byte(largeContent))
		n, err := store.Save("large.mp4", data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if n != int64(len(largeContent)) {
			t.Errorf("expected %d bytes, got %d", len(largeContent), n)
		}
	})

	t.Run("strips directory components from filename", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileSystemStore(dir)

		if _, err := store.Save("../escape.mp4", bytes.NewReader([]byte("data"))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := os.Stat(filepath.Join(dir, "escape.mp4")); err != nil {
			t.Errorf("expected file inside storage dir: %v", err)
		}
		if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.mp4")); !os.IsNotExist(err) {
			t.Error("file escaped the storage directory")
		}
	})
}

func TestFileSystemStore_GetPath(t *testing.T) {
	t.Run("returns path for existing file", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileSystemStore(dir)

		// Create the file first
		filePath := filepath.Join(dir, "test123.mp4")
		os.WriteFile(filePath, []byte("data"), 0644)

		path, err := store.GetPath("test123.mp4")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if path != filePath {
			t.Errorf("expected %s, got %s", filePath, path)
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileSystemStore(dir)

		_, err := store.GetPath("nonexistent.mp4")
		if err == nil {
			t.Error("expected error for nonexistent file")
		}
	})
}

func TestFileSystemStore_Delete(t *testing.T) {
	t.Run("deletes existing file", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileSystemStore(dir)

		// Create the file
		filePath := filepath.Join(dir, "del123.mp4")
		os.WriteFile(filePath, []byte("data"), 0644)

		if err := store.Delete("del123.mp4"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Verify file is gone
		if _, err := os.Stat(filePath); !os.IsNotExist(err) {
			t.Error("expected file to be deleted")
		}
	})

	t.Run("no error for missing file", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileSystemStore(dir)

		if err := store.Delete("nonexistent.mp4"); err != nil {
			t.Errorf("expected no error for missing file, got: %v", err)
		}
	})
}

func TestFileSystemStore_DiskUsage(t *testing.T) {
	t.Run("sums stored file sizes", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileSystemStore(dir)

		store.Save("a.mp4", bytes.NewReader(make([]byte, 100)))
		store.Save("b.mp4", bytes.NewReader(make([]byte, 250)))

		usage, err := store.DiskUsage()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if usage != 350 {
			t.Errorf("expected 350 bytes, got %d", usage)
		}
	})

	t.Run("empty directory is zero", func(t *testing.T) {
		store := NewFileSystemStore(t.TempDir())

		usage, err := store.DiskUsage()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if usage != 0 {
			t.Errorf("expected 0 bytes, got %d", usage)
		}
	})
}

func TestFileSystemStore_List(t *testing.T) {
	dir := t.TempDir()
	store := NewFileSystemStore(dir)

	store.Save("one.mp4", bytes.NewReader([]byte("x")))
	store.Save("two.webm", bytes.NewReader([]byte("y")))
	os.Mkdir(filepath.Join(dir, "subdir"), 0755)

	names, err := store.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sort.Strings(names)

	want := []string{"one.mp4", "two.webm"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("expected %v, got %v", want, names)
			break
		}
	}
}

func TestFileSystemStore_EnsureDir(t *testing.T) {
	t.Run("creates directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "storage", "path")
		store := NewFileSystemStore(dir)

		if err := store.EnsureDir(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("directory not created: %v", err)
		}
		if !info.IsDir() {
			t.Error("expected a directory")
		}
	})

	t.Run("succeeds if directory exists", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileSystemStore(dir)

		if err := store.EnsureDir(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
